package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) authRoutes(g *gin.RouterGroup) {
	g.POST("/login", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if !bind(c, &req) {
			return
		}
		sess, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
		reply(c, http.StatusOK, sess, err)
	})

	g.POST("/refresh", func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if !bind(c, &req) {
			return
		}
		sess, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
		reply(c, http.StatusOK, sess, err)
	})
}
