package models

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const referralCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReferralCode returns a code like REF7K2X9Q. Uniqueness is
// enforced by the store, not here; callers retry on collision.
func GenerateReferralCode() (string, error) {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate referral code: %v", err)
	}
	for i, b := range bytes {
		bytes[i] = referralCodeCharset[int(b)%len(referralCodeCharset)]
	}
	return "REF" + string(bytes), nil
}

func GenerateUserID() string {
	return uuid.NewString()
}

func GenerateMemberID() string {
	return fmt.Sprintf("MEMBER%s%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateTransactionID() string {
	return fmt.Sprintf("TXN%s%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

// DefaultNamePool feeds the simulated referral traffic when no real
// referred user drives the event.
var DefaultNamePool = []string{
	"Rahul Sharma", "Priya Patel", "Amit Kumar",
	"Sneha Gupta", "Vikas Singh", "Anjali Reddy",
}
