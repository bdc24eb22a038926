package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/agent"
	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/compliance"
	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/events"
	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/helpers"
)

const (
	// errNoUsableResponse is shown when the transport succeeded but the
	// normalizer could not find anything usable in the envelope.
	errNoUsableResponse = "The agent did not return a usable response."
	errAgentFailure     = "Failed to get response from agent."
	errNetwork          = "Network error. Please try again."
)

// Caller is the transport used to reach the remote agent. *agent.Client
// satisfies it; tests substitute a fake.
type Caller interface {
	Call(ctx context.Context, opts agent.CallOptions) (*agent.Payload, error)
}

// Controller owns the ordered turn sequence of one conversation session and
// drives each turn through pending -> resolved | failed. It enforces the
// single-flight policy: at most one agent call is outstanding at a time, and
// Submit is rejected while one is.
//
// All mutation (Submit, Retry, settlement) is serialized on one mutex; no
// other component writes turn state.
type Controller struct {
	mu      sync.Mutex
	turns   []*Turn
	pending *Turn

	caller    Caller
	modes     *ModeSet
	agentID   string
	sessionID string
	publisher *events.PublisherManager
}

type ControllerOption func(*Controller)

func WithAgentID(agentID string) ControllerOption {
	return func(c *Controller) {
		c.agentID = agentID
	}
}

func WithSessionID(sessionID string) ControllerOption {
	return func(c *Controller) {
		c.sessionID = sessionID
	}
}

func WithPublisherManager(pm *events.PublisherManager) ControllerOption {
	return func(c *Controller) {
		c.publisher = pm
	}
}

func NewController(caller Caller, modes *ModeSet, options ...ControllerOption) *Controller {
	ret := &Controller{
		caller: caller,
		modes:  modes,
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

func (c *Controller) Modes() *ModeSet {
	return c.modes
}

// Turns returns a snapshot of the turn sequence in submission order.
func (c *Controller) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	ret := make([]Turn, 0, len(c.turns))
	for _, t := range c.turns {
		ret = append(ret, *t)
	}
	return ret
}

func (c *Controller) GetTurn(id uuid.UUID) (Turn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.turns {
		if t.ID == id {
			return *t, true
		}
	}
	return Turn{}, false
}

// Busy reports whether a turn is currently pending.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Submit creates a pending turn for text under the given query mode and
// launches the agent call. It is a no-op returning false when text is blank
// or another turn is still pending; both are disallowed-but-harmless user
// actions, not errors.
func (c *Controller) Submit(ctx context.Context, text string, modeID string) (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitLocked(ctx, text, modeID)
}

func (c *Controller) submitLocked(ctx context.Context, text string, modeID string) (uuid.UUID, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return uuid.Nil, false
	}
	if c.pending != nil {
		log.Debug().Str("pending_turn_id", c.pending.ID.String()).Msg("submit rejected, another turn is in flight")
		return uuid.Nil, false
	}

	turn := newTurn(text, modeID, c.modes.Label(modeID))
	c.turns = append(c.turns, turn)
	c.pending = turn

	log.Debug().
		Str("turn_id", turn.ID.String()).
		Str("mode", modeID).
		Int("text_length", len(text)).
		Msg("turn submitted")

	c.publish(events.NewTurnSubmittedEvent(c.metadata(turn.ID), turn.UserText, turn.ModeLabel))

	// the mode prefix is transport-only; the turn stores the original text
	transmitted := c.modes.Prefix(modeID) + text
	go c.runAgentCall(ctx, turn.ID, transmitted)

	return turn.ID, true
}

func (c *Controller) runAgentCall(ctx context.Context, turnID uuid.UUID, transmitted string) {
	payload, err := c.caller.Call(ctx, agent.CallOptions{
		AgentID:   c.agentID,
		SessionID: c.sessionID,
		Message:   transmitted,
	})
	c.settle(turnID, helpers.NewResult(payload, err))
}

// settle applies the outcome of the agent call to the turn. It runs on the
// same mutex as Submit and Retry, so completions never interleave with user
// mutations.
func (c *Controller) settle(turnID uuid.UUID, res helpers.Result[*agent.Payload]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	turn := c.findLocked(turnID)
	if turn == nil || turn.Status != TurnStatusPending {
		return
	}
	if c.pending == turn {
		c.pending = nil
	}

	payload, err := res.Value()
	switch {
	case err != nil:
		msg := strings.TrimSpace(err.Error())
		if msg == "" {
			msg = errNetwork
		}
		log.Warn().Str("turn_id", turnID.String()).Err(err).Msg("agent call failed")
		c.failLocked(turn, msg)
	case payload != nil && !payload.Success:
		msg := payload.Error
		if msg == "" {
			msg = errAgentFailure
		}
		c.failLocked(turn, msg)
	default:
		response := compliance.Normalize(payload)
		if response == nil {
			c.failLocked(turn, errNoUsableResponse)
			return
		}
		turn.Status = TurnStatusResolved
		turn.Response = response
		log.Debug().Str("turn_id", turnID.String()).Msg("turn resolved")
		c.publish(events.NewTurnResolvedEvent(c.metadata(turn.ID), response))
	}
}

func (c *Controller) failLocked(turn *Turn, msg string) {
	turn.Status = TurnStatusFailed
	turn.ErrorMessage = msg
	c.publish(events.NewTurnFailedEvent(c.metadata(turn.ID), msg))
}

// Retry replaces a failed turn with a fresh pending one carrying the same
// user text. The new turn goes to the end of the sequence; the failed turn
// is removed and its id is never reused. Retrying anything but a failed
// turn, or retrying while another turn is pending, is a no-op.
func (c *Controller) Retry(ctx context.Context, id uuid.UUID, modeID string) (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	turn := c.findLocked(id)
	if turn == nil || turn.Status != TurnStatusFailed {
		return uuid.Nil, false
	}
	if c.pending != nil {
		return uuid.Nil, false
	}

	for i, t := range c.turns {
		if t.ID == id {
			c.turns = append(c.turns[:i], c.turns[i+1:]...)
			break
		}
	}

	newID, ok := c.submitLocked(ctx, turn.UserText, modeID)
	if !ok {
		// blank text can't happen here, submit validated it the first
		// time; put the failed turn back just in case
		c.turns = append(c.turns, turn)
		return uuid.Nil, false
	}

	log.Debug().
		Str("previous_turn_id", id.String()).
		Str("turn_id", newID.String()).
		Msg("turn retried")
	c.publish(events.NewTurnRetriedEvent(c.metadata(newID), id))

	return newID, true
}

func (c *Controller) findLocked(id uuid.UUID) *Turn {
	for _, t := range c.turns {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (c *Controller) metadata(turnID uuid.UUID) events.EventMetadata {
	return events.EventMetadata{
		TurnID:    turnID,
		SessionID: c.sessionID,
	}
}

func (c *Controller) publish(ev events.Event) {
	if c.publisher == nil {
		return
	}
	c.publisher.PublishBlind(ev)
}
