package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"blogapi/middleware"
	"blogapi/models"
	"blogapi/store"
)

// AuthHandler issues the identities the post endpoints consume: a signed
// token carrying the user's id and role.
type AuthHandler struct {
	users       store.UserStore
	secret      string
	tokenExpiry time.Duration
	production  bool
}

func NewAuthHandler(users store.UserStore, secret string, tokenExpiry time.Duration, production bool) *AuthHandler {
	return &AuthHandler{users: users, secret: secret, tokenExpiry: tokenExpiry, production: production}
}

type SignupRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondInternal(c, h.production, "Error creating user", err)
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashed),
		Role:         models.RoleUser,
	}

	if err := h.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			respondError(c, http.StatusConflict, "Email already in use")
			return
		}
		respondInternal(c, h.production, "Error creating user", err)
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		respondInternal(c, h.production, "Error generating token", err)
		return
	}

	respond(c, http.StatusCreated, "User created successfully", gin.H{
		"token":  token,
		"userId": user.ID.Hex(),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := h.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		respondInternal(c, h.production, "Error logging in", err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respondError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		respondInternal(c, h.production, "Error generating token", err)
		return
	}

	respond(c, http.StatusOK, "Login successful", gin.H{
		"token":  token,
		"userId": user.ID.Hex(),
	})
}

func (h *AuthHandler) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &middleware.Claims{
		UserID: user.ID.Hex(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}
