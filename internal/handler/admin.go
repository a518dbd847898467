package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studentdesk/internal/profile"
)

func (h *Handler) adminRoutes(g *gin.RouterGroup) {
	g.POST("/students", func(c *gin.Context) {
		var spec profile.StudentSpec
		if !bind(c, &spec) {
			return
		}
		st, err := h.Profiles.CreateStudent(c.Request.Context(), spec)
		reply(c, http.StatusCreated, st, err)
	})
	g.GET("/students", func(c *gin.Context) {
		list, err := h.Profiles.ListStudents(c.Request.Context())
		reply(c, http.StatusOK, list, err)
	})
	g.PUT("/students/:id/batch", func(c *gin.Context) {
		var req struct {
			BatchID string `json:"batch_id"`
		}
		if !bind(c, &req) {
			return
		}
		st, err := h.Profiles.AssignBatch(c.Request.Context(), c.Param("id"), req.BatchID)
		reply(c, http.StatusOK, st, err)
	})
	g.GET("/students/:id/attendance/report", func(c *gin.Context) {
		rep, err := h.Attendance.StudentReport(c.Request.Context(), c.Param("id"), c.Query("from"), c.Query("to"))
		reply(c, http.StatusOK, rep, err)
	})

	g.POST("/trainers", func(c *gin.Context) {
		var spec profile.TrainerSpec
		if !bind(c, &spec) {
			return
		}
		tr, err := h.Profiles.CreateTrainer(c.Request.Context(), spec)
		reply(c, http.StatusCreated, tr, err)
	})
	g.GET("/trainers", func(c *gin.Context) {
		list, err := h.Profiles.ListTrainers(c.Request.Context())
		reply(c, http.StatusOK, list, err)
	})

	g.POST("/courses", func(c *gin.Context) {
		var spec profile.CourseSpec
		if !bind(c, &spec) {
			return
		}
		co, err := h.Profiles.CreateCourse(c.Request.Context(), spec)
		reply(c, http.StatusCreated, co, err)
	})
	g.GET("/courses", func(c *gin.Context) {
		list, err := h.Profiles.ListCourses(c.Request.Context())
		reply(c, http.StatusOK, list, err)
	})

	g.POST("/batches", func(c *gin.Context) {
		var spec profile.BatchSpec
		if !bind(c, &spec) {
			return
		}
		b, err := h.Profiles.CreateBatch(c.Request.Context(), spec)
		reply(c, http.StatusCreated, b, err)
	})
	g.GET("/batches", func(c *gin.Context) {
		list, err := h.Profiles.ListBatches(c.Request.Context(), "")
		reply(c, http.StatusOK, list, err)
	})

	g.DELETE("/quiz/:id", func(c *gin.Context) {
		noContent(c, h.Quizzes.DeleteQuiz(c.Request.Context(), c.Param("id")))
	})

	g.GET("/attendance/overall", func(c *gin.Context) {
		stats, err := h.Analytics.OverallAttendance(c.Request.Context())
		reply(c, http.StatusOK, stats, err)
	})
	g.GET("/attendance/today", func(c *gin.Context) {
		sum, err := h.Attendance.TodaySummary(c.Request.Context())
		reply(c, http.StatusOK, sum, err)
	})
	g.GET("/attendance/weekly", func(c *gin.Context) {
		sum, err := h.Attendance.WeeklySummary(c.Request.Context())
		reply(c, http.StatusOK, sum, err)
	})
	g.GET("/attendance/monthly", func(c *gin.Context) {
		sum, err := h.Attendance.MonthlySummary(c.Request.Context())
		reply(c, http.StatusOK, sum, err)
	})
}
