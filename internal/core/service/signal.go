package service

import (
	"context"

	"github.com/nmarceau/chime/internal/core/domain"
	"github.com/nmarceau/chime/internal/core/port"
	"github.com/rs/zerolog/log"
)

// Signals relays SDP offers/answers and ICE candidates between the two
// call participants. Payloads are opaque and forwarded verbatim.
type Signals struct {
	calls   *Calls
	gateway port.Gateway
}

func NewSignals(calls *Calls, gateway port.Gateway) *Signals {
	return &Signals{calls: calls, gateway: gateway}
}

// Forward validates only that the call is live and involves the sender.
// Anything else is dropped silently; stale signals during teardown are
// expected and never surface an error to the sender.
func (s *Signals) Forward(ctx context.Context, sig domain.Signal) {
	call, ok := s.calls.Lookup(sig.CallID)
	if !ok || !call.Involves(sig.From) {
		log.Debug().
			Str("call_id", sig.CallID.String()).
			Str("from", sig.From.String()).
			Str("kind", string(sig.Kind)).
			Msg("Dropping signal for unknown or foreign call")
		return
	}

	var event string
	switch sig.Kind {
	case domain.SignalOffer:
		event = domain.EventWebRTCOffer
	case domain.SignalAnswer:
		event = domain.EventWebRTCAnswer
	case domain.SignalCandidate:
		event = domain.EventWebRTCICECandidate
	default:
		log.Debug().Str("kind", string(sig.Kind)).Msg("Dropping signal of unknown kind")
		return
	}

	ev := domain.Event{
		Name: event,
		Data: domain.SignalPayload{CallID: sig.CallID, From: sig.From, Data: sig.Payload},
	}
	if err := s.gateway.Emit(ctx, sig.To, ev); err != nil {
		log.Error().Err(err).Str("user_id", sig.To.String()).Msg("Failed to forward signal")
	}
}
