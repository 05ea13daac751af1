package services

import "github.com/qubotech/Referral/internal/models"

// Broadcaster receives ledger events for live delivery to the user's
// open clients.
type Broadcaster interface {
	DepositConfirmed(userID string, amount, bonusPerReferral float64)
	MemberJoined(userID string, member models.TeamMember)
	TransactionAdded(userID string, tx models.Transaction)
	TaskUnlocked(userID string, level int)
}

// NopBroadcaster drops every event. Used when no websocket hub is
// attached, and in tests.
type NopBroadcaster struct{}

func (NopBroadcaster) DepositConfirmed(string, float64, float64)   {}
func (NopBroadcaster) MemberJoined(string, models.TeamMember)      {}
func (NopBroadcaster) TransactionAdded(string, models.Transaction) {}
func (NopBroadcaster) TaskUnlocked(string, int)                    {}
