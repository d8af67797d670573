package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nmarceau/chime/internal/adapter/driven/gateway/ws"
	"github.com/nmarceau/chime/internal/core/domain"
	"github.com/nmarceau/chime/internal/core/port"
	"github.com/nmarceau/chime/internal/core/service"
	"github.com/rs/zerolog/log"
)

// TokenIssuer mints a bearer token for a known identity. Stands in for
// the external auth issuer so the handshake can be exercised end to end.
type TokenIssuer interface {
	Issue(id domain.UserID) (string, error)
}

type Handler struct {
	Verifier port.TokenVerifier
	Issuer   TokenIssuer
	Users    port.UserRepository
	Hub      *ws.Hub
	Presence *service.Presence
	Relay    *service.Relay
	Calls    *service.Calls
	Signals  *service.Signals
}

func NewHandler(
	verifier port.TokenVerifier,
	issuer TokenIssuer,
	users port.UserRepository,
	hub *ws.Hub,
	presence *service.Presence,
	relay *service.Relay,
	calls *service.Calls,
	signals *service.Signals,
) *Handler {
	return &Handler{
		Verifier: verifier,
		Issuer:   issuer,
		Users:    users,
		Hub:      hub,
		Presence: presence,
		Relay:    relay,
		Calls:    calls,
		Signals:  signals,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Post("/auth/token", h.IssueToken)
	r.Get("/ws", h.ServeWS)

	return r
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// IssueToken exchanges a username for a bearer token. Development stand-in
// for the real auth issuer.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "username required", http.StatusBadRequest)
		return
	}

	user, err := h.Users.FindByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "unknown user", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("Failed to look up user")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := h.Issuer.Issue(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to issue token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"user_id": user.ID.String(),
		"token":   token,
	})
}
