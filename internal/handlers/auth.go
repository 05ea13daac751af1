package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qubotech/Referral/internal/services"
	"github.com/qubotech/Referral/internal/store"
)

type AuthHandler struct {
	auth    *services.AuthService
	store   store.UserStore
	ledgers *services.LedgerManager
}

func NewAuthHandler(auth *services.AuthService, userStore store.UserStore, ledgers *services.LedgerManager) *AuthHandler {
	return &AuthHandler{auth: auth, store: userStore, ledgers: ledgers}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body"})
		return
	}

	token, user, err := h.auth.Register(c.Request.Context(), input)
	switch {
	case errors.Is(err, services.ErrUserExists):
		c.JSON(http.StatusBadRequest, gin.H{"msg": "User already exists"})
		return
	case errors.Is(err, services.ErrInvalidReferralCode):
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid referral code"})
		return
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrPasswordTooShort):
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	case errors.Is(err, store.ErrReadOnly):
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Registration is disabled on this deployment"})
		return
	case err != nil:
		log.Printf("register: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		return
	}

	// Warm the session ledger so the dashboard is ready immediately.
	h.ledgers.Get(c.Request.Context(), user)

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user.Sanitize()})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body"})
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), input.Email, input.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid Credentials"})
		return
	}
	if err != nil {
		log.Printf("login: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		return
	}

	h.ledgers.Get(c.Request.Context(), user)

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user.Sanitize()})
}

// Me returns the authenticated user. When a live ledger exists its
// copy of the user is fresher than the store on read-only backends.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString("user_id")

	if ledger, ok := h.ledgers.Lookup(userID); ok {
		c.JSON(http.StatusOK, ledger.User())
		return
	}

	user, err := h.store.FindByID(c.Request.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Token is not valid"})
		return
	}
	if err != nil {
		log.Printf("me: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		return
	}

	h.ledgers.Get(c.Request.Context(), user)
	c.JSON(http.StatusOK, user.Sanitize())
}
