// Auth HTTP handlers.
//
//   - POST /auth/signup
//   - POST /auth/login
//   - GET  /auth/me
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthsphere/go-health-backend/internal/domain"
	"github.com/healthsphere/go-health-backend/internal/repo"
	"github.com/healthsphere/go-health-backend/internal/services"
)

// CredentialsRequest is the JSON payload for signup and login.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"hunter22"`
}

// AuthResponse carries the account and its bearer token.
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Signup godoc
// @ID          signup
// @Summary     Create an account
// @Description Registers a new user and returns a bearer token.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CredentialsRequest  true  "Credentials"
// @Success     201  {object}  handlers.AuthResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid email or weak password"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already registered"
// @Router      /auth/signup [post]
func (h *Handlers) Signup(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	user, token, err := h.Auth.Signup(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidEmail), errors.Is(err, services.ErrWeakPassword):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusConflict, ErrCodeEmailTaken, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "signup failed")
		return
	}
	ok(c, http.StatusCreated, AuthResponse{User: user, Token: token})
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Verifies credentials and returns a bearer token.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CredentialsRequest  true  "Credentials"
// @Success     200  {object}  handlers.AuthResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Bad credentials"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	user, token, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrBadCredentials) {
		fail(c, http.StatusUnauthorized, ErrCodeBadCredentials, err.Error())
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "login failed")
		return
	}
	ok(c, http.StatusOK, AuthResponse{User: user, Token: token})
}

// Me godoc
// @ID          currentUser
// @Summary     Current user
// @Description Returns the account the bearer token was issued for.
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.User
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or invalid token"
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.Auth.CurrentUser(c.Request.Context(), userID(c))
	if errors.Is(err, repo.ErrNotFound) {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "account no longer exists")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "lookup failed")
		return
	}
	ok(c, http.StatusOK, user)
}
