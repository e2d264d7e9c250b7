package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cardlinkhq/cardlink/libs/auth"
	"github.com/cardlinkhq/cardlink/services/card-service/internal/storage"
)

type CardHandler struct {
	signer TokenSigner
	users  *storage.UserRepository
	logger *slog.Logger
}

func NewCardHandler(signer TokenSigner, users *storage.UserRepository, logger *slog.Logger) *CardHandler {
	return &CardHandler{signer: signer, users: users, logger: logger}
}

type cardDocument struct {
	CardID      string            `json:"card_id,omitempty"`
	DisplayName string            `json:"display_name"`
	Title       string            `json:"title,omitempty"`
	Company     string            `json:"company,omitempty"`
	Email       string            `json:"email,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Website     string            `json:"website,omitempty"`
	Slug        string            `json:"slug"`
	Links       map[string]string `json:"links,omitempty"`
	UpdatedAt   string            `json:"updated_at,omitempty"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// Handle serves the owner's card: GET returns it, PUT creates or replaces it.
func (h *CardHandler) Handle(w http.ResponseWriter, r *http.Request) {
	claims, err := bearerClaims(r, h.signer)
	if err != nil {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		card, err := h.users.GetCardByUser(r.Context(), claims.Sub)
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "card not found", http.StatusNotFound)
				return
			}
			h.logger.Error("load card failed", "error", err, "user_id", claims.Sub)
			http.Error(w, "failed to load card", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, cardToDocument(card))

	case http.MethodPut:
		var doc cardDocument
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		doc.DisplayName = strings.TrimSpace(doc.DisplayName)
		doc.Slug = strings.ToLower(strings.TrimSpace(doc.Slug))
		if doc.DisplayName == "" {
			http.Error(w, "display_name required", http.StatusBadRequest)
			return
		}
		if !slugPattern.MatchString(doc.Slug) {
			http.Error(w, "slug must be 3-64 lowercase letters, digits, or hyphens", http.StatusUnprocessableEntity)
			return
		}

		card, err := h.users.UpsertCard(r.Context(), storage.Card{
			ID:          claims.CardID,
			UserID:      claims.Sub,
			DisplayName: doc.DisplayName,
			Title:       strings.TrimSpace(doc.Title),
			Company:     strings.TrimSpace(doc.Company),
			Email:       strings.TrimSpace(doc.Email),
			Phone:       strings.TrimSpace(doc.Phone),
			Website:     strings.TrimSpace(doc.Website),
			Slug:        doc.Slug,
			Links:       doc.Links,
		})
		if err != nil {
			if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
				http.Error(w, "slug already taken", http.StatusConflict)
				return
			}
			h.logger.Error("save card failed", "error", err, "user_id", claims.Sub)
			http.Error(w, "failed to save card", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, cardToDocument(card))

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// PublicBySlug returns the public card for a scanned QR code. No auth.
func (h *CardHandler) PublicBySlug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slug := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("slug")))
	if slug == "" {
		http.Error(w, "slug is required", http.StatusBadRequest)
		return
	}

	card, err := h.users.GetCardBySlug(r.Context(), slug)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "card not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load card", http.StatusInternalServerError)
		return
	}

	doc := cardToDocument(card)
	doc.CardID = ""
	writeJSON(w, http.StatusOK, doc)
}

func cardToDocument(card storage.Card) cardDocument {
	return cardDocument{
		CardID:      card.ID,
		DisplayName: card.DisplayName,
		Title:       card.Title,
		Company:     card.Company,
		Email:       card.Email,
		Phone:       card.Phone,
		Website:     card.Website,
		Slug:        card.Slug,
		Links:       card.Links,
		UpdatedAt:   card.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func bearerClaims(r *http.Request, signer TokenSigner) (*auth.Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, auth.ErrInvalidToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return signer.Verify(token)
}
