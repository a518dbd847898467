package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studentdesk/internal/apperr"
	"studentdesk/internal/auth"
	"studentdesk/internal/feedback"
	"studentdesk/internal/model"
)

type scopedFeedback struct {
	TrainerID string `json:"trainer_id"`
	CourseID  string `json:"course_id"`
	Rating    int    `json:"rating"`
	Comments  string `json:"comments"`
	Anonymous bool   `json:"anonymous"`
}

func (h *Handler) feedbackRoutes(g *gin.RouterGroup) {
	everyone := auth.RequireRoles(model.RoleAdmin, model.RoleTrainer, model.RoleStudent)
	staff := auth.RequireRoles(model.RoleAdmin, model.RoleTrainer)
	admin := auth.RequireRoles(model.RoleAdmin)

	g.POST("", everyone, func(c *gin.Context) {
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

	g.POST("/course", everyone, h.submitScoped(func(c *gin.Context, studentID string, req scopedFeedback) (model.FeedbackView, error) {
		return h.Feedback.SubmitCourseFeedback(c.Request.Context(), studentID, req.CourseID, req.Rating, req.Comments, req.Anonymous)
	}))
	g.POST("/trainer", everyone, h.submitScoped(func(c *gin.Context, studentID string, req scopedFeedback) (model.FeedbackView, error) {
		return h.Feedback.SubmitTrainerFeedback(c.Request.Context(), studentID, req.TrainerID, req.Rating, req.Comments, req.Anonymous)
	}))
	g.POST("/system", everyone, h.submitScoped(func(c *gin.Context, studentID string, req scopedFeedback) (model.FeedbackView, error) {
		return h.Feedback.SubmitSystemFeedback(c.Request.Context(), studentID, req.Rating, req.Comments, req.Anonymous)
	}))

	g.GET("/my-feedback", everyone, func(c *gin.Context) {
		id, ok := self(c, model.RoleStudent)
		if !ok {
			return
		}
		list, err := h.Feedback.ByStudent(c.Request.Context(), id)
		reply(c, http.StatusOK, list, err)
	})

	g.GET("/trainer/my-feedback", staff, func(c *gin.Context) {
		id, ok := self(c, model.RoleTrainer)
		if !ok {
			return
		}
		list, err := h.Feedback.ByTrainer(c.Request.Context(), id)
		reply(c, http.StatusOK, list, err)
	})

	g.GET("/trainer/:id", staff, func(c *gin.Context) {
		list, err := h.Feedback.ByTrainer(c.Request.Context(), c.Param("id"))
		reply(c, http.StatusOK, list, err)
	})

	g.GET("/all", admin, func(c *gin.Context) {
		list, err := h.Feedback.All(c.Request.Context())
		reply(c, http.StatusOK, list, err)
	})

	g.GET("/course/:id", staff, func(c *gin.Context) {
		list, err := h.Feedback.ByCourse(c.Request.Context(), c.Param("id"))
		reply(c, http.StatusOK, list, err)
	})

	g.GET("/type/:type", staff, func(c *gin.Context) {
		list, err := h.Feedback.ByType(c.Request.Context(), model.FeedbackType(c.Param("type")))
		reply(c, http.StatusOK, list, err)
	})

	g.GET("/student/:id", staff, func(c *gin.Context) {
		list, err := h.Feedback.AttributedByStudent(c.Request.Context(), c.Param("id"))
		reply(c, http.StatusOK, list, err)
	})

	g.GET("/analytics/course/:id", staff, func(c *gin.Context) {
		stats, err := h.Analytics.CourseFeedback(c.Request.Context(), c.Param("id"))
		reply(c, http.StatusOK, stats, err)
	})
	g.GET("/analytics/trainer/:id", staff, func(c *gin.Context) {
		stats, err := h.Analytics.TrainerFeedback(c.Request.Context(), c.Param("id"))
		reply(c, http.StatusOK, stats, err)
	})
	g.GET("/analytics/overall", admin, func(c *gin.Context) {
		stats, err := h.Analytics.OverallFeedback(c.Request.Context())
		reply(c, http.StatusOK, stats, err)
	})
	g.GET("/analytics/type/:type", staff, func(c *gin.Context) {
		stats, err := h.Feedback.TypeAnalytics(c.Request.Context(), model.FeedbackType(c.Param("type")))
		reply(c, http.StatusOK, stats, err)
	})

	g.GET("/summary", staff, func(c *gin.Context) {
		sum, err := h.Feedback.Summary(c.Request.Context())
		reply(c, http.StatusOK, sum, err)
	})

	g.GET("/recent", staff, func(c *gin.Context) {
		limit, ok := intQuery(c, "limit", 10)
		if !ok {
			return
		}
		list, err := h.Feedback.Recent(c.Request.Context(), limit)
		reply(c, http.StatusOK, list, err)
	})

	g.GET("/rating/:rating", staff, func(c *gin.Context) {
		rating, err := strconv.Atoi(c.Param("rating"))
		if err != nil {
			fail(c, apperr.Validation("Rating must be between 1 and 5"))
			return
		}
		list, err := h.Feedback.ByRating(c.Request.Context(), rating)
		reply(c, http.StatusOK, list, err)
	})

	g.GET("/anonymous", staff, func(c *gin.Context) {
		list, err := h.Feedback.Anonymous(c.Request.Context())
		reply(c, http.StatusOK, list, err)
	})
	g.GET("/non-anonymous", staff, func(c *gin.Context) {
		list, err := h.Feedback.NonAnonymous(c.Request.Context())
		reply(c, http.StatusOK, list, err)
	})

	g.GET("/:id", staff, func(c *gin.Context) {
		fb, err := h.Feedback.Feedback(c.Request.Context(), c.Param("id"))
		reply(c, http.StatusOK, fb, err)
	})

	g.PUT("/:id", everyone, func(c *gin.Context) {
		var owner string
		if actor(c).Role == model.RoleStudent {
			id, ok := self(c, model.RoleStudent)
			if !ok {
				return
			}
			owner = id
		}
		var spec feedback.Spec
		if !bind(c, &spec) {
			return
		}
		fb, err := h.Feedback.UpdateFeedback(c.Request.Context(), c.Param("id"), spec, owner)
		reply(c, http.StatusOK, fb, err)
	})

	g.DELETE("/:id", admin, func(c *gin.Context) {
		noContent(c, h.Feedback.DeleteFeedback(c.Request.Context(), c.Param("id")))
	})
}

func (h *Handler) submitScoped(submit func(*gin.Context, string, scopedFeedback) (model.FeedbackView, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := self(c, model.RoleStudent)
		if !ok {
			return
		}
		var req scopedFeedback
		if !bind(c, &req) {
			return
		}
		fb, err := submit(c, id, req)
		reply(c, http.StatusCreated, fb, err)
	}
}
