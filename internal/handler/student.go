package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studentdesk/internal/apperr"
	"studentdesk/internal/feedback"
	"studentdesk/internal/model"
	"studentdesk/internal/profile"
)

func (h *Handler) studentRoutes(g *gin.RouterGroup) {
	g.GET("/profile", func(c *gin.Context) {
		st, err := h.Profiles.StudentByUser(c.Request.Context(), actor(c).UserID)
		reply(c, http.StatusOK, st, err)
	})

	g.PUT("/profile", func(c *gin.Context) {
		id, ok := self(c, model.RoleStudent)
		if !ok {
			return
		}
		var u profile.Update
		if !bind(c, &u) {
			return
		}
		st, err := h.Profiles.UpdateStudentProfile(c.Request.Context(), id, u)
		reply(c, http.StatusOK, st, err)
	})

	g.POST("/profile/photo", func(c *gin.Context) {
		id, ok := self(c, model.RoleStudent)
		if !ok {
			return
		}
		photo(c, func(p profile.Photo) (any, error) {
			return h.Profiles.UploadStudentPhoto(c.Request.Context(), id, p)
		})
	})

	g.POST("/attendance/mark", func(c *gin.Context) {
		id, ok := self(c, model.RoleStudent)
		if !ok {
			return
		}
		var req struct {
			QRCodeID string `json:"qr_code_id"`
		}
		if !bind(c, &req) {
			return
		}
		rec, err := h.Attendance.MarkAttendance(c.Request.Context(), id, req.QRCodeID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, rec.View())
	})

	g.GET("/attendance", func(c *gin.Context) {
		id, ok := self(c, model.RoleStudent)
		if !ok {
			return
		}
		from, to := c.Query("from"), c.Query("to")
		if from == "" && to == "" {
			views, err := attendanceViews(h.Attendance.StudentAttendance(c.Request.Context(), id))
			reply(c, http.StatusOK, views, err)
			return
		}
		views, err := attendanceViews(h.Attendance.StudentAttendanceByRange(c.Request.Context(), id, from, to))
		reply(c, http.StatusOK, views, err)
	})

	g.GET("/attendance/analytics", func(c *gin.Context) {
		id, ok := self(c, model.RoleStudent)
		if !ok {
			return
		}
		stats, err := h.Attendance.StudentAnalytics(c.Request.Context(), id)
		reply(c, http.StatusOK, stats, err)
	})

	g.GET("/quizzes/available", func(c *gin.Context) {
		id, ok := self(c, model.RoleStudent)
		if !ok {
			return
		}
		quizzes, err := h.Quizzes.AvailableQuizzesForStudent(c.Request.Context(), id)
		reply(c, http.StatusOK, quizzes, err)
	})

	g.GET("/quiz/:id/questions", func(c *gin.Context) {
		qs, err := h.Quizzes.QuizQuestions(c.Request.Context(), c.Param("id"))
		reply(c, http.StatusOK, qs, err)
	})

	g.POST("/quiz/:id/attempt", func(c *gin.Context) {
		id, ok := self(c, model.RoleStudent)
		if !ok {
			return
		}
		var req struct {
			Answers map[string]string `json:"answers"`
		}
		if !bind(c, &req) {
			return
		}
		att, err := h.Quizzes.SubmitQuizAttempt(c.Request.Context(), id, c.Param("id"), req.Answers)
		reply(c, http.StatusCreated, att, err)
	})

	g.GET("/quiz/attempts", func(c *gin.Context) {
		id, ok := self(c, model.RoleStudent)
		if !ok {
			return
		}
		atts, err := h.Quizzes.StudentAttempts(c.Request.Context(), id)
		reply(c, http.StatusOK, atts, err)
	})

	g.POST("/feedback", func(c *gin.Context) {
		id, ok := self(c, model.RoleStudent)
		if !ok {
			return
		}
		var spec feedback.Spec
		if !bind(c, &spec) {
			return
		}
		fb, err := h.Feedback.SubmitFeedback(c.Request.Context(), spec, id)
		reply(c, http.StatusCreated, fb, err)
	})
}

// photo accepts a multipart "photo" file or a JSON {"data": "<base64 data URL>"}
// body and hands it to store.
func photo(c *gin.Context, store func(profile.Photo) (any, error)) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("photo")
		if err != nil {
			fail(c, apperr.Validation("Photo file is required"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			fail(c, err)
			return
		}
		defer f.Close()
		v, err := store(profile.Photo{File: f, Filename: fh.Filename})
		reply(c, http.StatusOK, v, err)
		return
	}
	var body struct {
		Data string `json:"data" binding:"required"`
	}
	if !bind(c, &body) {
		return
	}
	v, err := store(profile.Photo{DataURL: body.Data})
	reply(c, http.StatusOK, v, err)
}
