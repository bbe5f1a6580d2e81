package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidAmount      = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidTerms       = &AppError{http.StatusBadRequest, "INVALID_TERMS", "Loan terms are invalid"}
	ErrInstallmentSettled = &AppError{http.StatusUnprocessableEntity, "INSTALLMENT_SETTLED", "Installment is already settled"}
	ErrLoanTerminal       = &AppError{http.StatusUnprocessableEntity, "LOAN_TERMINAL", "Loan is refinanced or canceled"}
	ErrNegativePrincipal  = &AppError{http.StatusUnprocessableEntity, "NEGATIVE_PRINCIPAL", "Refinance would produce a non-positive principal"}
	ErrNothingToReverse   = &AppError{http.StatusUnprocessableEntity, "NOTHING_TO_REVERSE", "Installment has no payments to reverse"}
	ErrScheduleLocked     = &AppError{http.StatusUnprocessableEntity, "SCHEDULE_LOCKED", "Schedule cannot change after payments were recorded"}
	ErrDuplicateClient    = &AppError{http.StatusConflict, "DUPLICATE_CLIENT", "A client with that name already exists"}
	ErrUserExists         = &AppError{http.StatusConflict, "USER_ALREADY_EXISTS", "Username is taken"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
