package domain

import "encoding/json"

type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
)

// Signal carries an opaque SDP or ICE payload between the two call
// participants. The coordinator never interprets the payload.
type Signal struct {
	Kind    SignalKind
	CallID  CallID
	From    UserID
	To      UserID
	Payload json.RawMessage
}
