package models

import "time"

type TransactionType string

const (
	TransactionTypeDeposit       TransactionType = "Deposit"
	TransactionTypeReferralBonus TransactionType = "Referral Bonus"
	TransactionTypeWithdrawal    TransactionType = "Withdrawal"
)

type TransactionDirection string

const (
	DirectionCredit TransactionDirection = "credit"
	DirectionDebit  TransactionDirection = "debit"
)

// Transaction is an immutable ledger entry. The log is append-only and
// kept most-recent-first for display.
type Transaction struct {
	ID          string               `json:"id" bson:"id"`
	Type        TransactionType      `json:"type" bson:"type"`
	Amount      float64              `json:"amount" bson:"amount"`
	Direction   TransactionDirection `json:"direction" bson:"direction"`
	Description string               `json:"description" bson:"description"`
	Date        time.Time            `json:"date" bson:"date"`
}
