package domain

import "time"

// User represents an account within the platform. CreditUnits is the
// spendable balance consumed by generations.
type User struct {
	ID          string
	Email       string
	Name        string
	Locale      string
	CreditUnits int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
