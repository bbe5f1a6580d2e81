package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidTerms       = errors.New("invalid loan terms")
	ErrInstallmentSettled = errors.New("installment already settled")
	ErrLoanTerminal       = errors.New("loan is in a terminal state")
	ErrNegativePrincipal  = errors.New("refinance would produce a non-positive principal")
	ErrNothingToReverse   = errors.New("installment has no payments to reverse")
	ErrScheduleLocked     = errors.New("schedule cannot change once installments are paid")
	ErrDuplicateClient    = errors.New("client name already in use")
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidRequest     = errors.New("invalid request")
)
