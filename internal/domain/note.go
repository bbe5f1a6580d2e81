package domain

import (
	"time"

	"github.com/google/uuid"
)

type LoanNote struct {
	ID        uuid.UUID
	LoanID    uuid.UUID
	Body      string
	CreatedAt time.Time
}
