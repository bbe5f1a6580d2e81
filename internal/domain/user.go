package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a collector account. Each collector only sees their own clients
// and loans.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
