package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// LoginRequest is the JSON payload for parent login.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,max=255" example:"parent@example.com"`
	Password string `json:"password" binding:"required,max=128" example:"correct horse battery staple"`
}

// Login godoc
// @ID          login
// @Summary     Parent login
// @Description Exchanges parent credentials for a Bearer token used on parent endpoints.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  auth.Token
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401   {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}
	tok, err := h.svc.Auth.Login(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, tok)
}
