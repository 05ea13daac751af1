package models

// LedgerSnapshot is the session-scoped ledger state persisted alongside
// the user record on backends that can write. Backends that cannot
// (the public-sheet scrape) leave this volatile, and the ladder is
// rebuilt from the user's persisted task level instead.
type LedgerSnapshot struct {
	Tasks            []ReferralTask `json:"tasks" bson:"tasks"`
	CurrentTaskLevel int            `json:"currentTaskLevel" bson:"currentTaskLevel"`
	TeamMembers      []TeamMember   `json:"teamMembers" bson:"teamMembers"`
	Transactions     []Transaction  `json:"transactions" bson:"transactions"`
	BonusPerReferral float64        `json:"bonusPerReferral" bson:"bonusPerReferral"`
}
