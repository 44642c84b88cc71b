package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/campuskit/rollcall/internal/auth"
	"github.com/campuskit/rollcall/internal/middleware"
	"github.com/campuskit/rollcall/pkg/response"
)

// AuthHandler manages registration, login and the current-user endpoint.
type AuthHandler struct {
	auth *iauth.AuthService
}

func NewAuthHandler(auth *iauth.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=student teacher admin"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.Register(requestContext(c), iauth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Login(requestContext(c), iauth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims, _ := c.Get(middleware.CtxClaimsKey)
	authClaims, _ := claims.(*iauth.Claims)

	user, err := h.auth.CurrentUser(requestContext(c), authClaims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}
