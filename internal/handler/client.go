package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/arosales/prestafacil/internal/auth"
	"github.com/arosales/prestafacil/internal/domain"
	"github.com/arosales/prestafacil/internal/logging"
)

type clientService interface {
	ListClients(ctx context.Context, userID uuid.UUID) ([]domain.Client, error)
	GetClientForUser(ctx context.Context, clientID, userID uuid.UUID) (*domain.Client, error)
	ListClientLoans(ctx context.Context, clientID, userID uuid.UUID) ([]domain.Loan, error)
	UpdateClient(ctx context.Context, clientID, userID uuid.UUID, name string, phone *string) (*domain.Client, error)
	DeleteClient(ctx context.Context, clientID, userID uuid.UUID) error
}

type ClientHandler struct {
	clients clientService
}

func NewClientHandler(clients clientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

type clientDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toClientDTO(c *domain.Client) clientDTO {
	return clientDTO{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	clients, err := h.clients.ListClients(r.Context(), userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]clientDTO, 0, len(clients))
	for i := range clients {
		dtos = append(dtos, toClientDTO(&clients[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	clientID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	client, err := h.clients.GetClientForUser(r.Context(), clientID, userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	loans, err := h.clients.ListClientLoans(r.Context(), clientID, userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	loanDTOs := make([]loanDTO, 0, len(loans))
	for i := range loans {
		loanDTOs = append(loanDTOs, toLoanDTO(&loans[i]))
	}
	RespondSuccess(w, http.StatusOK, map[string]any{
		"client": toClientDTO(client),
		"loans":  loanDTOs,
	})
}

type updateClientRequest struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	clientID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req updateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Name == "" {
		RespondValidationError(w, []FieldError{{Field: "name", Message: "required"}})
		return
	}

	client, err := h.clients.UpdateClient(r.Context(), clientID, userID, req.Name, req.Phone)
	if err != nil {
		logging.FromContext(r.Context()).Warn("client update failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toClientDTO(client))
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	clientID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.clients.DeleteClient(r.Context(), clientID, userID); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{"deleted": true})
}
