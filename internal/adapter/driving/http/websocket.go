package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/nmarceau/chime/internal/core/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict origins once the web client's deploy host is fixed
	CheckOrigin: func(r *http.Request) bool { return true },
}

var validate = validator.New()

// WSSession implements port.Session over a gorilla connection. Writes are
// serialized with a mutex because the hub and the dispatch loop both emit.
type WSSession struct {
	userID domain.UserID
	mu     sync.Mutex
	conn   *websocket.Conn
}

func (s *WSSession) UserID() domain.UserID {
	return s.userID
}

func (s *WSSession) Send(ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(ev)
}

func (s *WSSession) Close() error {
	return s.conn.Close()
}

// envelope is the inbound command frame.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	return strings.TrimPrefix(h, "Bearer ")
}

// ServeWS authenticates, upgrades and runs the per-connection read loop.
// A bad token rejects the request before any registration happens.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, err := h.Verifier.Verify(r.Context(), bearerToken(r))
	if err != nil {
		log.Warn().Err(err).Msg("Rejecting connection, token verification failed")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	session := &WSSession{
		userID: userID,
		conn:   conn,
	}

	l := log.With().Str("user_id", userID.String()).Logger()
	l.Info().Msg("New client connected")

	h.Hub.Register(session)
	if err := h.Presence.HandleConnect(r.Context(), userID); err != nil {
		l.Error().Err(err).Msg("Failed to run connect presence flow")
	}

	defer func() {
		l.Info().Msg("Client disconnected")
		h.Hub.Unregister(session)
		h.Presence.HandleDisconnect(context.Background(), userID)
		conn.Close()
	}()

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Error().Err(err).Msg("Unexpected close error")
			}
			break
		}
		h.dispatch(r.Context(), l, session, env)
	}
}

type typingDTO struct {
	RecipientID    string `json:"recipient_id" validate:"required"`
	ConversationID string `json:"conversation_id" validate:"required"`
}

type messageStatusDTO struct {
	MessageID      string `json:"message_id" validate:"required"`
	ConversationID string `json:"conversation_id" validate:"required"`
}

type callInitiateDTO struct {
	CalleeID string `json:"callee_id" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=voice video"`
}

type callRefDTO struct {
	CallID string `json:"call_id" validate:"required"`
}

type signalDTO struct {
	CallID    string          `json:"call_id" validate:"required"`
	To        string          `json:"to" validate:"required"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

func decode[T any](data json.RawMessage) (T, error) {
	var dto T
	if err := json.Unmarshal(data, &dto); err != nil {
		return dto, err
	}
	if err := validate.Struct(dto); err != nil {
		return dto, err
	}
	return dto, nil
}

func (h *Handler) dispatch(ctx context.Context, l zerolog.Logger, session *WSSession, env envelope) {
	from := session.UserID()

	switch env.Event {
	case "typing_start", "typing_stop":
		dto, err := decode[typingDTO](env.Data)
		if err != nil {
			l.Warn().Err(err).Str("command", env.Event).Msg("Invalid command payload")
			return
		}
		h.Relay.Typing(ctx, from, domain.UserID(dto.RecipientID), domain.ConversationID(dto.ConversationID), env.Event == "typing_start")

	case "message_delivered":
		dto, err := decode[messageStatusDTO](env.Data)
		if err != nil {
			l.Warn().Err(err).Str("command", env.Event).Msg("Invalid command payload")
			return
		}
		// Persistence failures drop the event; nothing to report back.
		_ = h.Relay.MarkDelivered(ctx, from, domain.MessageID(dto.MessageID), domain.ConversationID(dto.ConversationID))

	case "message_read":
		dto, err := decode[messageStatusDTO](env.Data)
		if err != nil {
			l.Warn().Err(err).Str("command", env.Event).Msg("Invalid command payload")
			return
		}
		_ = h.Relay.MarkRead(ctx, from, domain.MessageID(dto.MessageID), domain.ConversationID(dto.ConversationID))

	case "call_initiate":
		dto, err := decode[callInitiateDTO](env.Data)
		if err != nil {
			h.sendCallError(session, "BadRequest")
			return
		}
		media := domain.MediaVoice
		if dto.Type == "video" {
			media = domain.MediaVideo
		}
		if _, err := h.Calls.Initiate(ctx, from, domain.UserID(dto.CalleeID), media); err != nil {
			h.sendCallError(session, callErrorCode(err))
		}

	case "call_answer":
		h.callCommand(ctx, session, env, h.Calls.Answer)

	case "call_decline":
		h.callCommand(ctx, session, env, h.Calls.Decline)

	case "call_end":
		h.callCommand(ctx, session, env, h.Calls.End)

	case "webrtc_offer", "webrtc_answer", "webrtc_ice_candidate":
		dto, err := decode[signalDTO](env.Data)
		if err != nil {
			l.Warn().Err(err).Str("command", env.Event).Msg("Invalid signal payload")
			return
		}
		h.Signals.Forward(ctx, signalFromDTO(env.Event, from, dto))

	default:
		l.Warn().Str("command", env.Event).Msg("Unknown command")
	}
}

func (h *Handler) callCommand(ctx context.Context, session *WSSession, env envelope, fn func(context.Context, domain.CallID, domain.UserID) error) {
	dto, err := decode[callRefDTO](env.Data)
	if err != nil {
		h.sendCallError(session, "BadRequest")
		return
	}
	if err := fn(ctx, domain.CallID(dto.CallID), session.UserID()); err != nil {
		h.sendCallError(session, callErrorCode(err))
	}
}

func (h *Handler) sendCallError(session *WSSession, code string) {
	ev := domain.Event{
		Name: domain.EventCallError,
		Data: domain.CallErrorPayload{Error: code},
	}
	if err := session.Send(ev); err != nil {
		log.Error().Err(err).Str("user_id", session.UserID().String()).Msg("Failed to send call error")
	}
}

func callErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrPeerOffline):
		return "PeerOffline"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "NotAuthorized"
	case errors.Is(err, domain.ErrAlreadyInCall):
		return "AlreadyInCall"
	case errors.Is(err, domain.ErrNotFound):
		return "NotFound"
	default:
		return "Internal"
	}
}

func signalFromDTO(event string, from domain.UserID, dto signalDTO) domain.Signal {
	sig := domain.Signal{
		CallID: domain.CallID(dto.CallID),
		From:   from,
		To:     domain.UserID(dto.To),
	}
	switch event {
	case "webrtc_offer":
		sig.Kind = domain.SignalOffer
		sig.Payload = dto.Offer
	case "webrtc_answer":
		sig.Kind = domain.SignalAnswer
		sig.Payload = dto.Answer
	case "webrtc_ice_candidate":
		sig.Kind = domain.SignalCandidate
		sig.Payload = dto.Candidate
	}
	return sig
}
