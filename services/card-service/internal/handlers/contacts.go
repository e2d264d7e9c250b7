package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cardlinkhq/cardlink/libs/db"
	"github.com/cardlinkhq/cardlink/services/card-service/internal/outbox"
	"github.com/cardlinkhq/cardlink/services/card-service/internal/storage"
)

// ContactHandler manages the contacts an owner collects from card exchanges.
type ContactHandler struct {
	signer TokenSigner
	pool   *db.Pool
	users  *storage.UserRepository
	outbox *outbox.Repository
	logger *slog.Logger
}

func NewContactHandler(
	signer TokenSigner,
	pool *db.Pool,
	users *storage.UserRepository,
	outboxRepo *outbox.Repository,
	logger *slog.Logger,
) *ContactHandler {
	return &ContactHandler{
		signer: signer,
		pool:   pool,
		users:  users,
		outbox: outboxRepo,
		logger: logger,
	}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Note    string `json:"note"`
	Source  string `json:"source"`
}

type contactResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	Note      string `json:"note,omitempty"`
	Source    string `json:"source,omitempty"`
	CreatedAt string `json:"created_at"`
}

func (h *ContactHandler) Handle(w http.ResponseWriter, r *http.Request) {
	claims, err := bearerClaims(r, h.signer)
	if err != nil {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.create(w, r, claims.Sub)
	case http.MethodGet:
		h.list(w, r, claims.Sub)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ContactHandler) create(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}

	ctx := r.Context()
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		http.Error(w, "failed to start transaction", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	contact := storage.Contact{
		OwnerID: ownerID,
		Name:    req.Name,
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Company: strings.TrimSpace(req.Company),
		Note:    strings.TrimSpace(req.Note),
		Source:  req.Source,
	}
	id, err := h.users.CreateContactTx(ctx, tx, &contact)
	if err != nil {
		http.Error(w, "failed to save contact", http.StatusInternalServerError)
		return
	}

	savedPayload, err := json.Marshal(map[string]any{
		"contact_id": id,
		"owner_id":   ownerID,
		"name":       contact.Name,
		"source":     contact.Source,
		"saved_at":   time.Now().UTC(),
	})
	if err != nil {
		http.Error(w, "failed to marshal contact event", http.StatusInternalServerError)
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "contact",
		AggregateID:   id,
		EventType:     "card.contact.saved.v1",
		Payload:       savedPayload,
	}); err != nil {
		http.Error(w, "failed to enqueue contact event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit transaction", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, contactResponse{
		ID:        id,
		Name:      contact.Name,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Company:   contact.Company,
		Note:      contact.Note,
		Source:    contact.Source,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *ContactHandler) list(w http.ResponseWriter, r *http.Request, ownerID string) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			http.Error(w, "limit must be between 1 and 200", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	contacts, err := h.users.ListContactsByOwner(r.Context(), ownerID, limit)
	if err != nil {
		h.logger.Error("list contacts failed", "error", err, "owner_id", ownerID)
		http.Error(w, "failed to list contacts", http.StatusInternalServerError)
		return
	}

	out := make([]contactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, contactResponse{
			ID:        c.ID,
			Name:      c.Name,
			Email:     c.Email,
			Phone:     c.Phone,
			Company:   c.Company,
			Note:      c.Note,
			Source:    c.Source,
			CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"contacts": out})
}
