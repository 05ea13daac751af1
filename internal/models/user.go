package models

import "time"

type Wallet struct {
	Total        float64 `json:"total" bson:"total"`
	Deposited    float64 `json:"deposited" bson:"deposited"`
	Withdrawable float64 `json:"withdrawable" bson:"withdrawable"`
}

type Profile struct {
	Bio    string `json:"bio" bson:"bio"`
	City   string `json:"city" bson:"city"`
	Avatar string `json:"avatar" bson:"avatar"`
}

type User struct {
	ID       string `json:"id" bson:"_id"`
	Name     string `json:"name" bson:"name"`
	Email    string `json:"email" bson:"email"`
	Password string `json:"-" bson:"password"`

	ReferralCode string `json:"referralCode" bson:"referralCode"`
	// ReferredBy holds the referrer's referral code. Set once at
	// registration, immutable afterwards.
	ReferredBy *string `json:"referredBy" bson:"referredBy"`

	Wallet       Wallet  `json:"wallet" bson:"wallet"`
	HasDeposited bool    `json:"hasDeposited" bson:"hasDeposited"`
	TaskLevel    int     `json:"taskLevel" bson:"taskLevel"`
	Profile      Profile `json:"profile" bson:"profile"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// ProfileUpdate is a partial profile merge; nil fields keep their
// current value.
type ProfileUpdate struct {
	Bio    *string `json:"bio"`
	City   *string `json:"city"`
	Avatar *string `json:"avatar"`
}

// Sanitize returns a copy with the password hash stripped. The json
// tag already hides it from encoding; handlers that re-marshal or log
// users should not carry it at all.
func (u User) Sanitize() User {
	u.Password = ""
	return u
}
