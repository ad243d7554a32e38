package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/meetsched/libs/auth"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/credentials"
)

// TokenStore persists provider tokens.
type TokenStore interface {
	Put(ctx context.Context, tok credentials.Token) error
	Delete(ctx context.Context, identity string) error
}

type CredentialsHandler struct {
	store  TokenStore
	logger *slog.Logger
}

func NewCredentialsHandler(store TokenStore, logger *slog.Logger) *CredentialsHandler {
	return &CredentialsHandler{store: store, logger: logger}
}

type putCredentialsRequest struct {
	Provider     string   `json:"provider"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Scopes       []string `json:"scopes"`
	ExpiresAt    string   `json:"expires_at"`
}

// Put stores calendar provider tokens for the caller.
func (h *CredentialsHandler) Put(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.store == nil {
		http.Error(w, "credential storage not configured", http.StatusServiceUnavailable)
		return
	}
	userID := auth.SubjectFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req putCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AccessToken = strings.TrimSpace(req.AccessToken)
	if req.AccessToken == "" {
		http.Error(w, "access_token required", http.StatusBadRequest)
		return
	}
	tok := credentials.Token{
		UserID:       userID,
		Provider:     strings.TrimSpace(req.Provider),
		AccessToken:  req.AccessToken,
		RefreshToken: strings.TrimSpace(req.RefreshToken),
		Scopes:       req.Scopes,
	}
	if raw := strings.TrimSpace(req.ExpiresAt); raw != "" {
		exp, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid expires_at", http.StatusBadRequest)
			return
		}
		tok.ExpiresAt = &exp
	}

	if err := h.store.Put(r.Context(), tok); err != nil {
		h.logger.ErrorContext(r.Context(), "store credentials failed", "user_id", userID, "err", err)
		http.Error(w, "failed to store credentials", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete disconnects the caller's calendar by removing the stored token.
func (h *CredentialsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.store == nil {
		http.Error(w, "credential storage not configured", http.StatusServiceUnavailable)
		return
	}
	userID := auth.SubjectFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.store.Delete(r.Context(), userID); err != nil {
		h.logger.ErrorContext(r.Context(), "delete credentials failed", "user_id", userID, "err", err)
		http.Error(w, "failed to delete credentials", http.StatusInternalServerError)
		return
	}
	h.logger.InfoContext(r.Context(), "calendar disconnected", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
