package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"wisdom-empire/internal/config"
	"wisdom-empire/internal/models"
	"wisdom-empire/internal/users"
)

const tokenTTL = 7 * 24 * time.Hour

// AuthHandler logs admins in.
type AuthHandler struct {
	Users     *users.Store
	JwtSecret string
	Logger    *zap.Logger
	now       func() time.Time
}

func NewAuthHandler(cfg config.Config, store *users.Store, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Users: store, JwtSecret: cfg.JWTSecret, Logger: logger, now: time.Now}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) createJWT(user models.User) (string, error) {
	now := h.now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.JwtSecret))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "Invalid request.")
		return
	}

	user, err := h.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		failure(c, http.StatusUnauthorized, "Invalid email or password.")
		return
	}
	if err != nil {
		h.Logger.Error("database error on login", zap.Error(err))
		failure(c, http.StatusInternalServerError, "Server error.")
		return
	}

	tokenString, err := h.createJWT(*user)
	if err != nil {
		h.Logger.Error("failed to create JWT", zap.Error(err))
		failure(c, http.StatusInternalServerError, "Server error.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": tokenString})
}
