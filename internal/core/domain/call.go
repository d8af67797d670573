package domain

import "time"

type MediaType string

const (
	MediaVoice MediaType = "voice"
	MediaVideo MediaType = "video"
)

func (m MediaType) Valid() bool {
	return m == MediaVoice || m == MediaVideo
}

type CallStatus string

const (
	CallRinging  CallStatus = "ringing"
	CallAnswered CallStatus = "answered"
	CallDeclined CallStatus = "declined"
	CallMissed   CallStatus = "missed"
	CallFailed   CallStatus = "failed"
	CallEnded    CallStatus = "ended"
)

func (s CallStatus) Terminal() bool {
	switch s {
	case CallDeclined, CallMissed, CallFailed, CallEnded:
		return true
	}
	return false
}

type EndReason string

const (
	ReasonDeclined   EndReason = "declined"
	ReasonMissed     EndReason = "missed"
	ReasonUserHangup EndReason = "user_hangup"
)

// ActiveCall is the in-memory record of a live call. It is the only
// source consulted for admission control; the durable CallRecord mirror
// exists for history.
type ActiveCall struct {
	ID         CallID
	Caller     UserID
	Callee     UserID
	Media      MediaType
	Status     CallStatus
	CreatedAt  time.Time
	AnsweredAt time.Time
	EndedAt    time.Time
}

func (c ActiveCall) Involves(id UserID) bool {
	return c.Caller == id || c.Callee == id
}

func (c ActiveCall) OtherParty(id UserID) UserID {
	if c.Caller == id {
		return c.Callee
	}
	return c.Caller
}

// Duration is answered-at to ended-at, zero for calls that never connected.
func (c ActiveCall) Duration() time.Duration {
	if c.AnsweredAt.IsZero() || c.EndedAt.IsZero() {
		return 0
	}
	return c.EndedAt.Sub(c.AnsweredAt)
}

// CallRecord is the durable mirror of an ActiveCall.
type CallRecord struct {
	ID           CallID     `json:"call_id"`
	Caller       UserID     `json:"caller_id"`
	Callee       UserID     `json:"callee_id"`
	Media        MediaType  `json:"media"`
	Status       CallStatus `json:"status"`
	EndReason    EndReason  `json:"end_reason,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	AnsweredAt   time.Time  `json:"answered_at,omitempty"`
	EndedAt      time.Time  `json:"ended_at,omitempty"`
	DurationSecs int        `json:"duration_secs"`
}

func NewCallRecord(c ActiveCall) CallRecord {
	return CallRecord{
		ID:        c.ID,
		Caller:    c.Caller,
		Callee:    c.Callee,
		Media:     c.Media,
		Status:    c.Status,
		StartedAt: c.CreatedAt,
	}
}
