package domain

import (
	"time"

	"github.com/google/uuid"
)

// Client is a borrower. Names are unique per collector so the loan form can
// look clients up by name.
type Client struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Phone     *string
	CreatedAt time.Time
}
