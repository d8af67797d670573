package domain

// Event is the outbound envelope pushed to a session.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

const (
	EventOnlineContacts      = "online_contacts"
	EventUserStatusChanged   = "user_status_changed"
	EventUserTyping          = "user_typing"
	EventNewMessage          = "new_message"
	EventMessageSent         = "message_sent"
	EventMessageStatusUpdate = "message_status_update"
	EventMessagesRead        = "messages_read"
	EventMessageDeleted      = "message_deleted"
	EventMessageEdited       = "message_edited"
	EventIncomingCall        = "incoming_call"
	EventCallInitiated       = "call_initiated"
	EventCallAnswered        = "call_answered"
	EventCallEnded           = "call_ended"
	EventCallError           = "call_error"
	EventWebRTCOffer         = "webrtc_offer"
	EventWebRTCAnswer        = "webrtc_answer"
	EventWebRTCICECandidate  = "webrtc_ice_candidate"
)

type StatusChangedPayload struct {
	UserID   UserID     `json:"user_id"`
	Status   UserStatus `json:"status"`
	LastSeen int64      `json:"last_seen,omitempty"`
}

type TypingPayload struct {
	UserID         UserID         `json:"user_id"`
	ConversationID ConversationID `json:"conversation_id"`
	IsTyping       bool           `json:"is_typing"`
}

type MessageStatusPayload struct {
	MessageID      MessageID      `json:"message_id"`
	ConversationID ConversationID `json:"conversation_id"`
	Status         MessageStatus  `json:"status"`
	By             UserID         `json:"by"`
}

type CallOfferPayload struct {
	CallID CallID    `json:"call_id"`
	Caller UserID    `json:"caller_id"`
	Callee UserID    `json:"callee_id"`
	Media  MediaType `json:"media"`
}

type CallAnsweredPayload struct {
	CallID     CallID `json:"call_id"`
	AnsweredBy UserID `json:"answered_by"`
}

type CallEndedPayload struct {
	CallID       CallID    `json:"call_id"`
	Reason       EndReason `json:"reason"`
	EndedBy      UserID    `json:"ended_by,omitempty"`
	DurationSecs int       `json:"duration"`
}

type CallErrorPayload struct {
	Error string `json:"error"`
}

type SignalPayload struct {
	CallID CallID `json:"call_id"`
	From   UserID `json:"from"`
	Data   any    `json:"data"`
}
