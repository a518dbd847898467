// Package handler exposes the engines over HTTP with gin.
package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studentdesk/internal/apperr"
	"studentdesk/internal/attendance"
	"studentdesk/internal/auth"
	"studentdesk/internal/cache"
	"studentdesk/internal/feedback"
	"studentdesk/internal/live"
	"studentdesk/internal/model"
	"studentdesk/internal/profile"
	"studentdesk/internal/quiz"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Healthy(ctx context.Context) bool
}

// Deps are the collaborators the routes call into.
type Deps struct {
	Auth       *auth.Service
	Profiles   *profile.Service
	Attendance *attendance.Service
	Quizzes    *quiz.Service
	Feedback   *feedback.Service
	Analytics  *cache.Analytics
	Live       *live.Hub
	Keys       auth.Keys
	// Health maps a component name to its checker. A nil checker reports down.
	Health map[string]Checker
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	return &Handler{Deps: d}
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.healthz)

	api := r.Group("/api")
	h.authRoutes(api.Group("/auth"))

	bearer := auth.Bearer(h.Keys.SigningKey, h.Keys.Issuer)
	h.studentRoutes(api.Group("/student", bearer, auth.RequireRoles(model.RoleAdmin, model.RoleTrainer, model.RoleStudent)))
	h.feedbackRoutes(api.Group("/feedback", bearer))
	h.trainerRoutes(api.Group("/trainer", bearer, auth.RequireRoles(model.RoleAdmin, model.RoleTrainer)))
	h.adminRoutes(api.Group("/admin", bearer, auth.RequireRoles(model.RoleAdmin)))
}

func (h *Handler) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{}
	for name, check := range h.Health {
		ok := check != nil && check.Healthy(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	if status == http.StatusOK {
		body["status"] = "ok"
	} else {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

// fail writes err as {"error", "kind"} with the status matching its kind.
// Unclassified errors are logged and reported as a generic 500.
func fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error", "kind": "internal"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "kind": string(kind)})
}

// reply writes v as JSON, or the error.
func reply[T any](c *gin.Context, status int, v T, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(status, v)
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperr.Validation("Invalid request body: %v", err))
		return false
	}
	return true
}

func actor(c *gin.Context) auth.Actor {
	a, _ := auth.ActorFrom(c)
	return a
}

// self resolves the caller's profile id for the given role. Callers without
// such a profile, such as an admin on a student route, get NotFound.
func self(c *gin.Context, role model.Role) (string, bool) {
	a := actor(c)
	if a.Role != role || a.ActorID == "" {
		if role == model.RoleStudent {
			fail(c, apperr.NotFound("Student profile not found"))
		} else {
			fail(c, apperr.NotFound("Trainer profile not found"))
		}
		return "", false
	}
	return a.ActorID, true
}

// ownerScope is the trainer id ownership checks run against; admins get ""
// which lifts the check.
func ownerScope(c *gin.Context) string {
	a := actor(c)
	if a.Role == model.RoleAdmin {
		return ""
	}
	return a.ActorID
}

func intQuery(c *gin.Context, key string, fallback int) (int, bool) {
	v := c.Query(key)
	if v == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fail(c, apperr.Validation("Invalid %s %q", key, v))
		return 0, false
	}
	return n, true
}

func attendanceViews(recs []model.Attendance, err error) ([]model.AttendanceView, error) {
	if err != nil {
		return nil, err
	}
	out := make([]model.AttendanceView, len(recs))
	for i, r := range recs {
		out[i] = r.View()
	}
	return out, nil
}
