package models

import "time"

// GamesPerTask is the number of mini-games a user has to clear on each
// rung before the ladder advances.
const GamesPerTask = 3

// UnlimitedReferrals marks the final rung: no referral count unlocks
// anything further.
const UnlimitedReferrals = -1

// ReferralTask is one rung of the referral ladder. Rungs unlock
// strictly in sequence; Completed only counts referrals attributed
// while the rung was the active one.
type ReferralTask struct {
	Level          int                `json:"level" bson:"level"`
	Required       int                `json:"required" bson:"required"`
	Completed      int                `json:"completed" bson:"completed"`
	Unlocked       bool               `json:"unlocked" bson:"unlocked"`
	GamesCompleted bool               `json:"gamesCompleted" bson:"gamesCompleted"`
	GamesProgress  [GamesPerTask]bool `json:"gamesProgress" bson:"gamesProgress"`
}

// RequirementMet reports whether the rung has attributed enough
// referrals to open its games. The final rung has no target, so its
// games are always open.
func (t *ReferralTask) RequirementMet() bool {
	if t.Required == UnlimitedReferrals {
		return true
	}
	return t.Completed >= t.Required
}

// DefaultReferralTasks returns the seed ladder. Nothing is unlocked
// until the first deposit is confirmed.
func DefaultReferralTasks() []ReferralTask {
	return []ReferralTask{
		{Level: 1, Required: 1},
		{Level: 2, Required: 6},
		{Level: 3, Required: 12},
		{Level: 4, Required: 18},
		{Level: 5, Required: UnlimitedReferrals},
	}
}

type MemberStatus string

const (
	MemberStatusActive MemberStatus = "Active"
)

// TeamMember is one successful referral attributed to the user.
// The roster is append-only.
type TeamMember struct {
	ID       string       `json:"id" bson:"id"`
	Name     string       `json:"name" bson:"name"`
	JoinDate time.Time    `json:"joinDate" bson:"joinDate"`
	Status   MemberStatus `json:"status" bson:"status"`
}
