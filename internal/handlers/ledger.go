package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qubotech/Referral/internal/models"
	"github.com/qubotech/Referral/internal/services"
	"github.com/qubotech/Referral/internal/store"
)

type LedgerHandler struct {
	store   store.UserStore
	ledgers *services.LedgerManager
}

func NewLedgerHandler(userStore store.UserStore, ledgers *services.LedgerManager) *LedgerHandler {
	return &LedgerHandler{store: userStore, ledgers: ledgers}
}

// ledgerFor resolves the request's session ledger, rebuilding it from
// the store after a server restart.
func (h *LedgerHandler) ledgerFor(c *gin.Context) (*services.Ledger, bool) {
	userID := c.GetString("user_id")

	if ledger, ok := h.ledgers.Lookup(userID); ok {
		return ledger, true
	}

	user, err := h.store.FindByID(c.Request.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Token is not valid"})
		return nil, false
	}
	if err != nil {
		log.Printf("ledger lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		return nil, false
	}

	return h.ledgers.Get(c.Request.Context(), user), true
}

// Dashboard bundles everything the SPA renders: wallet, ladder,
// roster, transaction log, bonus tier and the published plans.
func (h *LedgerHandler) Dashboard(c *gin.Context) {
	ledger, ok := h.ledgerFor(c)
	if !ok {
		return
	}

	snap := ledger.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"user":             ledger.User(),
		"tasks":            snap.Tasks,
		"currentTaskLevel": snap.CurrentTaskLevel,
		"teamMembers":      snap.TeamMembers,
		"transactions":     snap.Transactions,
		"bonusPerReferral": snap.BonusPerReferral,
		"plans":            models.DepositPlans(),
	})
}

func (h *LedgerHandler) ConfirmDeposit(c *gin.Context) {
	var input struct {
		Amount float64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body"})
		return
	}

	ledger, ok := h.ledgerFor(c)
	if !ok {
		return
	}

	if err := ledger.ConfirmDeposit(c.Request.Context(), input.Amount); err != nil {
		if errors.Is(err, services.ErrInvalidDepositPlan) {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Deposit amount must match a plan"})
			return
		}
		log.Printf("confirm deposit: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":             ledger.User(),
		"bonusPerReferral": ledger.BonusPerReferral(),
	})
}

// AddReferral records a referred user joining. Without a name the
// simulated-traffic name pool supplies one.
func (h *LedgerHandler) AddReferral(c *gin.Context) {
	var input struct {
		Name string `json:"name"`
	}
	// Body is optional for simulated joins.
	_ = c.ShouldBindJSON(&input)

	ledger, ok := h.ledgerFor(c)
	if !ok {
		return
	}

	member, attributed := ledger.AddReferral(c.Request.Context(), input.Name)
	if !attributed {
		c.JSON(http.StatusAccepted, gin.H{"msg": "No unlocked task, referral not attributed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"member": member})
}

func (h *LedgerHandler) CompleteGame(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid game index"})
		return
	}

	ledger, ok := h.ledgerFor(c)
	if !ok {
		return
	}

	switch err := ledger.CompleteGame(c.Request.Context(), index); {
	case errors.Is(err, services.ErrGameOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid game index"})
		return
	case errors.Is(err, services.ErrNoActiveTask):
		c.JSON(http.StatusBadRequest, gin.H{"msg": "No unlocked task"})
		return
	case errors.Is(err, services.ErrGamesLocked):
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Referral target not reached yet"})
		return
	case err != nil:
		log.Printf("complete game: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":            ledger.Tasks(),
		"currentTaskLevel": ledger.CurrentTaskLevel(),
	})
}

func (h *LedgerHandler) Withdraw(c *gin.Context) {
	var input struct {
		Amount      float64            `json:"amount"`
		BankDetails models.BankDetails `json:"bankDetails"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body"})
		return
	}

	ledger, ok := h.ledgerFor(c)
	if !ok {
		return
	}

	result := ledger.Withdraw(c.Request.Context(), input.Amount, input.BankDetails)
	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"wallet":  ledger.User().Wallet,
	})
}

func (h *LedgerHandler) UpdateProfile(c *gin.Context) {
	var update models.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body"})
		return
	}

	ledger, ok := h.ledgerFor(c)
	if !ok {
		return
	}

	profile := ledger.UpdateProfile(c.Request.Context(), update)
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *LedgerHandler) Logout(c *gin.Context) {
	h.ledgers.Drop(c.GetString("user_id"))
	c.JSON(http.StatusOK, gin.H{"msg": "Successfully logged out"})
}
