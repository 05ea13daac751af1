package models

import "fmt"

// DepositPlan is one of the fixed deposit tiers. The deposit amount
// fixes the bonus credited per referral for the rest of the session.
type DepositPlan struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Bonus    float64 `json:"bonus"`
	Featured bool    `json:"featured"`
}

func DepositPlans() []DepositPlan {
	return []DepositPlan{
		{Name: "Starter", Amount: 100, Bonus: 50},
		{Name: "Popular", Amount: 500, Bonus: 250, Featured: true},
		{Name: "Premium", Amount: 1000, Bonus: 500},
	}
}

// BonusForDeposit maps a deposit amount to its per-referral bonus.
// Only the published plan amounts are accepted; anything else is
// rejected rather than falling through to the richest tier.
func BonusForDeposit(amount float64) (float64, error) {
	for _, plan := range DepositPlans() {
		if plan.Amount == amount {
			return plan.Bonus, nil
		}
	}
	return 0, fmt.Errorf("no deposit plan for amount %.0f", amount)
}

// MinWithdrawal is the smallest amount a withdrawal request may carry.
const MinWithdrawal = 100

// BankDetails is the withdrawal destination. Only the trailing digits
// of the account ever appear in the transaction log.
type BankDetails struct {
	Account    string `json:"account"`
	IFSC       string `json:"ifsc"`
	HolderName string `json:"holderName"`
}

// WithdrawResult is returned to the presentation layer as a structured
// success flag rather than an error, so it can render inline.
type WithdrawResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
