package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/compliance"
)

type TurnStatus string

const (
	TurnStatusPending  TurnStatus = "pending"
	TurnStatusResolved TurnStatus = "resolved"
	TurnStatusFailed   TurnStatus = "failed"
)

// Turn is one user query and its answer slot. A turn id is never reused: a
// retried turn is removed and replaced by a fresh one.
type Turn struct {
	ID        uuid.UUID
	UserText  string
	ModeID    string
	ModeLabel string
	Status    TurnStatus
	CreatedAt time.Time

	// Response is set only when Status is TurnStatusResolved, and is
	// immutable once attached.
	Response *compliance.Response
	// ErrorMessage is set only when Status is TurnStatusFailed.
	ErrorMessage string
}

func newTurn(text string, modeID string, modeLabel string) *Turn {
	return &Turn{
		ID:        uuid.New(),
		UserText:  text,
		ModeID:    modeID,
		ModeLabel: modeLabel,
		Status:    TurnStatusPending,
		CreatedAt: time.Now(),
	}
}
