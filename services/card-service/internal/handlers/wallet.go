package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cardlinkhq/cardlink/libs/auth"
	"github.com/cardlinkhq/cardlink/services/card-service/internal/storage"
)

// WalletHandler issues signed wallet-pass tokens. The token carries the
// card identity so the pass service can render it without a DB lookup.
type WalletHandler struct {
	signer  TokenSigner
	users   *storage.UserRepository
	baseURL string
	passTTL time.Duration
	logger  *slog.Logger
}

func NewWalletHandler(signer TokenSigner, users *storage.UserRepository, baseURL string, passTTL time.Duration, logger *slog.Logger) *WalletHandler {
	if passTTL <= 0 {
		passTTL = 24 * time.Hour
	}
	return &WalletHandler{
		signer:  signer,
		users:   users,
		baseURL: baseURL,
		passTTL: passTTL,
		logger:  logger,
	}
}

type walletPassResponse struct {
	PassToken string `json:"pass_token"`
	SaveURL   string `json:"save_url"`
	ExpiresAt string `json:"expires_at"`
}

func (h *WalletHandler) IssuePass(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := bearerClaims(r, h.signer)
	if err != nil {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	card, err := h.users.GetCardByUser(r.Context(), claims.Sub)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "create a card before requesting a wallet pass", http.StatusConflict)
			return
		}
		h.logger.Error("load card for wallet pass failed", "error", err, "user_id", claims.Sub)
		http.Error(w, "failed to load card", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	expiresAt := now.Add(h.passTTL)
	token, err := h.signer.Sign(auth.Claims{
		Sub:    claims.Sub,
		CardID: card.ID,
		Role:   "wallet-pass",
		Iat:    now.Unix(),
		Exp:    expiresAt.Unix(),
	})
	if err != nil {
		h.logger.Error("sign wallet pass failed", "error", err, "user_id", claims.Sub)
		http.Error(w, "failed to issue wallet pass", http.StatusInternalServerError)
		return
	}

	saveURL := fmt.Sprintf("%s/wallet/save?slug=%s&token=%s",
		h.baseURL, url.QueryEscape(card.Slug), url.QueryEscape(token))

	writeJSON(w, http.StatusOK, walletPassResponse{
		PassToken: token,
		SaveURL:   saveURL,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}
