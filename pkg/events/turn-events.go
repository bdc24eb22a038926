package events

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/compliance"
)

type EventType string

const (
	// EventTypeTurnSubmitted is published when a new turn enters the
	// pending state and its agent call is launched.
	EventTypeTurnSubmitted EventType = "turn-submitted"
	EventTypeTurnResolved  EventType = "turn-resolved"
	EventTypeTurnFailed    EventType = "turn-failed"
	// EventTypeTurnRetried is published when a failed turn is replaced by a
	// fresh pending one; the fresh turn also gets its own submitted event.
	EventTypeTurnRetried EventType = "turn-retried"
)

// EventMetadata identifies which turn of which session an event belongs to.
type EventMetadata struct {
	TurnID    uuid.UUID `json:"turn_id"`
	SessionID string    `json:"session_id,omitempty"`
}

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// raw payload, set when the event was deserialized from JSON
	payload []byte
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

var _ Event = &EventImpl{}

type EventTurnSubmitted struct {
	EventImpl

	UserText  string `json:"user_text"`
	ModeLabel string `json:"mode_label"`
}

func NewTurnSubmittedEvent(metadata EventMetadata, userText string, modeLabel string) *EventTurnSubmitted {
	return &EventTurnSubmitted{
		EventImpl: EventImpl{
			Type_:     EventTypeTurnSubmitted,
			Metadata_: metadata,
		},
		UserText:  userText,
		ModeLabel: modeLabel,
	}
}

var _ Event = &EventTurnSubmitted{}

type EventTurnResolved struct {
	EventImpl

	Response *compliance.Response `json:"response"`
}

func NewTurnResolvedEvent(metadata EventMetadata, response *compliance.Response) *EventTurnResolved {
	return &EventTurnResolved{
		EventImpl: EventImpl{
			Type_:     EventTypeTurnResolved,
			Metadata_: metadata,
		},
		Response: response,
	}
}

var _ Event = &EventTurnResolved{}

type EventTurnFailed struct {
	EventImpl

	ErrorMessage string `json:"error_message"`
}

func NewTurnFailedEvent(metadata EventMetadata, errorMessage string) *EventTurnFailed {
	return &EventTurnFailed{
		EventImpl: EventImpl{
			Type_:     EventTypeTurnFailed,
			Metadata_: metadata,
		},
		ErrorMessage: errorMessage,
	}
}

var _ Event = &EventTurnFailed{}

type EventTurnRetried struct {
	EventImpl

	PreviousTurnID uuid.UUID `json:"previous_turn_id"`
}

func NewTurnRetriedEvent(metadata EventMetadata, previousTurnID uuid.UUID) *EventTurnRetried {
	return &EventTurnRetried{
		EventImpl: EventImpl{
			Type_:     EventTypeTurnRetried,
			Metadata_: metadata,
		},
		PreviousTurnID: previousTurnID,
	}
}

var _ Event = &EventTurnRetried{}

// NewEventFromJson decodes a published message payload back into its typed
// event. Unknown event types come back as a plain *EventImpl.
func NewEventFromJson(b []byte) (Event, error) {
	var tag EventImpl
	if err := json.Unmarshal(b, &tag); err != nil {
		return nil, errors.Wrap(err, "failed to decode event envelope")
	}

	var ret Event
	switch tag.Type_ {
	case EventTypeTurnSubmitted:
		ev := &EventTurnSubmitted{}
		if err := json.Unmarshal(b, ev); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s event", tag.Type_)
		}
		ev.payload = b
		ret = ev
	case EventTypeTurnResolved:
		ev := &EventTurnResolved{}
		if err := json.Unmarshal(b, ev); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s event", tag.Type_)
		}
		ev.payload = b
		ret = ev
	case EventTypeTurnFailed:
		ev := &EventTurnFailed{}
		if err := json.Unmarshal(b, ev); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s event", tag.Type_)
		}
		ev.payload = b
		ret = ev
	case EventTypeTurnRetried:
		ev := &EventTurnRetried{}
		if err := json.Unmarshal(b, ev); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s event", tag.Type_)
		}
		ev.payload = b
		ret = ev
	default:
		tag.payload = b
		ret = &tag
	}

	return ret, nil
}
