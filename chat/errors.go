package chat

import "errors"

// Error taxonomy for the messaging core. Handlers map these to HTTP
// statuses; everything else is treated as a transient infrastructure fault.
var (
	// ErrIneligible means the pairing is not permitted by the relationship
	// rules. Permanent, surfaced to the sender, nothing is persisted.
	ErrIneligible = errors.New("chat: participants are not eligible to message each other")

	// ErrInvalidKind means the pairing kind is not one of the supported
	// variants. Programming error upstream.
	ErrInvalidKind = errors.New("chat: invalid pairing kind")

	// ErrEmptyMessage means both the body and the attachment were absent.
	ErrEmptyMessage = errors.New("chat: message body and attachment both empty")

	// ErrNotParticipant means the caller is not part of the conversation.
	ErrNotParticipant = errors.New("chat: user is not a participant of the conversation")

	// ErrConversationNotFound means no conversation exists with that ID.
	ErrConversationNotFound = errors.New("chat: conversation not found")
)
