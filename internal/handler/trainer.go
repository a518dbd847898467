package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"studentdesk/internal/apperr"
	"studentdesk/internal/model"
	"studentdesk/internal/profile"
	"studentdesk/internal/quiz"
)

func (h *Handler) trainerRoutes(g *gin.RouterGroup) {
	h.trainerProfileRoutes(g)
	h.trainerQuizRoutes(g)
	h.trainerAttendanceRoutes(g)
	h.trainerQRRoutes(g)

	g.GET("/feedback", func(c *gin.Context) {
		id, ok := self(c, model.RoleTrainer)
		if !ok {
			return
		}
		list, err := h.Feedback.ByTrainer(c.Request.Context(), id)
		reply(c, http.StatusOK, list, err)
	})

	g.GET("/live/attendance", func(c *gin.Context) {
		batchID := c.Query("batch_id")
		if batchID == "" {
			fail(c, apperr.Validation("batch_id is required"))
			return
		}
		if err := h.Live.Serve(c.Writer, c.Request, batchID); err != nil {
			log.Printf("live subscribe for batch %s: %v", batchID, err)
		}
	})
}

func (h *Handler) trainerProfileRoutes(g *gin.RouterGroup) {
	g.GET("/profile", func(c *gin.Context) {
		tr, err := h.Profiles.TrainerByUser(c.Request.Context(), actor(c).UserID)
		reply(c, http.StatusOK, tr, err)
	})

	g.PUT("/profile", func(c *gin.Context) {
		id, ok := self(c, model.RoleTrainer)
		if !ok {
			return
		}
		var u profile.Update
		if !bind(c, &u) {
			return
		}
		tr, err := h.Profiles.UpdateTrainerProfile(c.Request.Context(), id, u)
		reply(c, http.StatusOK, tr, err)
	})

	g.POST("/profile/photo", func(c *gin.Context) {
		id, ok := self(c, model.RoleTrainer)
		if !ok {
			return
		}
		photo(c, func(p profile.Photo) (any, error) {
			return h.Profiles.UploadTrainerPhoto(c.Request.Context(), id, p)
		})
	})

	g.GET("/batches", func(c *gin.Context) {
		batches, err := h.Profiles.ListBatches(c.Request.Context(), ownerScope(c))
		reply(c, http.StatusOK, batches, err)
	})
}

func (h *Handler) trainerQuizRoutes(g *gin.RouterGroup) {
	g.POST("/quiz", func(c *gin.Context) {
		id, ok := self(c, model.RoleTrainer)
		if !ok {
			return
		}
		var spec quiz.Spec
		if !bind(c, &spec) {
			return
		}
		v, err := h.Quizzes.CreateQuiz(c.Request.Context(), spec, id)
		reply(c, http.StatusCreated, v, err)
	})

	g.GET("/quizzes", func(c *gin.Context) {
		if scope := ownerScope(c); scope != "" {
			list, err := h.Quizzes.QuizzesByTrainer(c.Request.Context(), scope)
			reply(c, http.StatusOK, list, err)
			return
		}
		list, err := h.Quizzes.AllQuizzes(c.Request.Context())
		reply(c, http.StatusOK, list, err)
	})

	g.PUT("/quiz/:id", func(c *gin.Context) {
		var spec quiz.Spec
		if !bind(c, &spec) {
			return
		}
		v, err := h.Quizzes.UpdateQuiz(c.Request.Context(), c.Param("id"), spec, ownerScope(c))
		reply(c, http.StatusOK, v, err)
	})

	g.POST("/quiz/:id/activate", func(c *gin.Context) {
		noContent(c, h.Quizzes.ActivateQuiz(c.Request.Context(), c.Param("id"), ownerScope(c)))
	})
	g.POST("/quiz/:id/deactivate", func(c *gin.Context) {
		noContent(c, h.Quizzes.DeactivateQuiz(c.Request.Context(), c.Param("id"), ownerScope(c)))
	})

	g.GET("/quiz/:id/questions", func(c *gin.Context) {
		qs, err := h.Quizzes.AuthoringQuestions(c.Request.Context(), c.Param("id"), ownerScope(c))
		reply(c, http.StatusOK, qs, err)
	})

	g.POST("/quiz/:id/questions", func(c *gin.Context) {
		var spec quiz.QuestionSpec
		if !bind(c, &spec) {
			return
		}
		q, err := h.Quizzes.AddQuestion(c.Request.Context(), c.Param("id"), spec, ownerScope(c))
		reply(c, http.StatusCreated, q, err)
	})

	g.PUT("/question/:id", func(c *gin.Context) {
		var spec quiz.QuestionSpec
		if !bind(c, &spec) {
			return
		}
		q, err := h.Quizzes.UpdateQuestion(c.Request.Context(), c.Param("id"), spec, ownerScope(c))
		reply(c, http.StatusOK, q, err)
	})

	g.DELETE("/question/:id", func(c *gin.Context) {
		noContent(c, h.Quizzes.DeleteQuestion(c.Request.Context(), c.Param("id"), ownerScope(c)))
	})

	g.GET("/quiz/:id/analytics", func(c *gin.Context) {
		if err := h.Quizzes.RequireOwner(c.Request.Context(), c.Param("id"), ownerScope(c)); err != nil {
			fail(c, err)
			return
		}
		stats, err := h.Analytics.Quiz(c.Request.Context(), c.Param("id"))
		reply(c, http.StatusOK, stats, err)
	})
	g.GET("/quiz/:id/results", func(c *gin.Context) {
		res, err := h.Quizzes.QuizResults(c.Request.Context(), c.Param("id"), ownerScope(c))
		reply(c, http.StatusOK, res, err)
	})
	g.GET("/quiz/:id/attempts", func(c *gin.Context) {
		atts, err := h.Quizzes.QuizAttempts(c.Request.Context(), c.Param("id"), ownerScope(c))
		reply(c, http.StatusOK, atts, err)
	})
}

func (h *Handler) trainerAttendanceRoutes(g *gin.RouterGroup) {
	g.GET("/attendance", func(c *gin.Context) {
		views, err := attendanceViews(h.Attendance.AttendanceByDate(c.Request.Context(), c.Query("date")))
		reply(c, http.StatusOK, views, err)
	})

	g.POST("/attendance/manual", func(c *gin.Context) {
		var req struct {
			StudentID string                 `json:"student_id" binding:"required"`
			Status    model.AttendanceStatus `json:"status" binding:"required"`
			Date      string                 `json:"date"`
		}
		if !bind(c, &req) {
			return
		}
		rec, err := h.Attendance.MarkManualAttendance(c.Request.Context(), req.StudentID, req.Status, req.Date)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, rec.View())
	})

	g.POST("/attendance/bulk", func(c *gin.Context) {
		var req struct {
			Statuses map[string]model.AttendanceStatus `json:"statuses" binding:"required"`
			Date     string                            `json:"date"`
		}
		if !bind(c, &req) {
			return
		}
		views, err := attendanceViews(h.Attendance.BulkMarkAttendance(c.Request.Context(), req.Statuses, req.Date))
		reply(c, http.StatusCreated, views, err)
	})

	g.PUT("/attendance/:id", func(c *gin.Context) {
		var req struct {
			Status model.AttendanceStatus `json:"status" binding:"required"`
		}
		if !bind(c, &req) {
			return
		}
		rec, err := h.Attendance.UpdateAttendanceStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rec.View())
	})

	g.DELETE("/attendance/:id", func(c *gin.Context) {
		noContent(c, h.Attendance.DeleteAttendance(c.Request.Context(), c.Param("id")))
	})

	g.POST("/batch/:id/attendance/present", func(c *gin.Context) {
		views, err := attendanceViews(h.Attendance.MarkAllBatchStudentsPresent(c.Request.Context(), c.Param("id"), c.Query("date")))
		reply(c, http.StatusCreated, views, err)
	})

	g.GET("/batch/:id/attendance", func(c *gin.Context) {
		if date := c.Query("date"); date != "" {
			views, err := attendanceViews(h.Attendance.BatchAttendanceByDate(c.Request.Context(), c.Param("id"), date))
			reply(c, http.StatusOK, views, err)
			return
		}
		views, err := attendanceViews(h.Attendance.BatchAttendance(c.Request.Context(), c.Param("id")))
		reply(c, http.StatusOK, views, err)
	})

	g.GET("/batch/:id/attendance/analytics", func(c *gin.Context) {
		stats, err := h.Analytics.BatchAttendance(c.Request.Context(), c.Param("id"))
		reply(c, http.StatusOK, stats, err)
	})

	g.GET("/batch/:id/attendance/report", func(c *gin.Context) {
		rep, err := h.Attendance.BatchReport(c.Request.Context(), c.Param("id"), c.Query("from"), c.Query("to"))
		reply(c, http.StatusOK, rep, err)
	})
}

func (h *Handler) trainerQRRoutes(g *gin.RouterGroup) {
	g.POST("/qr", func(c *gin.Context) {
		var req struct {
			BatchID    string `json:"batch_id" binding:"required"`
			TTLMinutes int    `json:"ttl_minutes"`
		}
		if !bind(c, &req) {
			return
		}
		qr, err := h.Attendance.IssueQRCode(c.Request.Context(), req.BatchID, time.Duration(req.TTLMinutes)*time.Minute)
		reply(c, http.StatusCreated, qr, err)
	})

	// gin cannot route a suffix after a parameter, so "/qr/<token>.png"
	// arrives with the extension attached.
	g.GET("/qr/:token", func(c *gin.Context) {
		size, ok := intQuery(c, "size", 0)
		if !ok {
			return
		}
		token := strings.TrimSuffix(c.Param("token"), ".png")
		png, err := h.Attendance.RenderQRCode(c.Request.Context(), token, size)
		if err != nil {
			fail(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	g.DELETE("/qr/:token", func(c *gin.Context) {
		noContent(c, h.Attendance.DeactivateQRCode(c.Request.Context(), c.Param("token")))
	})

	g.GET("/batch/:id/qr", func(c *gin.Context) {
		codes, err := h.Attendance.ActiveQRCodes(c.Request.Context(), c.Param("id"))
		reply(c, http.StatusOK, codes, err)
	})
}

func noContent(c *gin.Context, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
