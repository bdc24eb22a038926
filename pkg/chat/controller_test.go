package chat

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/agent"
	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/events"
)

func testModeSet() *ModeSet {
	return NewModeSet([]Mode{
		{ID: "general", Label: "General Q&A"},
		{ID: "risk-assessment", Label: "Risk Assessment"},
	}, "general")
}

type fakeCaller struct {
	mu      sync.Mutex
	calls   []agent.CallOptions
	payload *agent.Payload
	err     error
	block   chan struct{}
}

func (f *fakeCaller) Call(_ context.Context, opts agent.CallOptions) (*agent.Payload, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	payload, err := f.payload, f.err
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return payload, err
}

func (f *fakeCaller) recordedCalls() []agent.CallOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	ret := make([]agent.CallOptions, len(f.calls))
	copy(ret, f.calls)
	return ret
}

func resultPayload(t *testing.T, result string) *agent.Payload {
	t.Helper()
	return &agent.Payload{
		Success: true,
		Response: &agent.PayloadResponse{
			Result: json.RawMessage(result),
		},
	}
}

func waitForStatus(t *testing.T, c *Controller, id uuid.UUID, status TurnStatus) Turn {
	t.Helper()
	var ret Turn
	require.Eventually(t, func() bool {
		turn, ok := c.GetTurn(id)
		if !ok {
			return false
		}
		ret = turn
		return turn.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return ret
}

func TestSubmitResolvesTurn(t *testing.T) {
	caller := &fakeCaller{payload: resultPayload(t, `"{\"summary\":\"ok\",\"citations\":[]}"`)}
	c := NewController(caller, testModeSet(), WithAgentID("agent-1"), WithSessionID("sess_test"))

	id, ok := c.Submit(context.Background(), "what about consent?", "general")
	require.True(t, ok)

	turn := waitForStatus(t, c, id, TurnStatusResolved)
	require.NotNil(t, turn.Response)
	assert.Equal(t, "ok", turn.Response.Summary)
	assert.Equal(t, "what about consent?", turn.UserText)
	assert.Equal(t, "General Q&A", turn.ModeLabel)
	assert.Empty(t, turn.ErrorMessage)

	calls := caller.recordedCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "agent-1", calls[0].AgentID)
	assert.Equal(t, "sess_test", calls[0].SessionID)
	assert.Equal(t, "what about consent?", calls[0].Message)
}

func TestSubmitAppliesModePrefixToTransportOnly(t *testing.T) {
	caller := &fakeCaller{payload: resultPayload(t, `"{\"summary\":\"ok\"}"`)}
	c := NewController(caller, testModeSet())

	id, ok := c.Submit(context.Background(), "  assess my risks  ", "risk-assessment")
	require.True(t, ok)

	turn := waitForStatus(t, c, id, TurnStatusResolved)
	assert.Equal(t, "assess my risks", turn.UserText)

	calls := caller.recordedCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "[Query Mode: Risk Assessment] assess my risks", calls[0].Message)
}

func TestSubmitRejectsBlankText(t *testing.T) {
	caller := &fakeCaller{payload: resultPayload(t, `"{}"`)}
	c := NewController(caller, testModeSet())

	for _, text := range []string{"", "   ", "\n\t "} {
		_, ok := c.Submit(context.Background(), text, "general")
		assert.False(t, ok)
	}
	assert.Empty(t, c.Turns())
	assert.Empty(t, caller.recordedCalls())
}

func TestSubmitSingleFlight(t *testing.T) {
	caller := &fakeCaller{
		payload: resultPayload(t, `"{\"summary\":\"ok\"}"`),
		block:   make(chan struct{}),
	}
	c := NewController(caller, testModeSet())

	id, ok := c.Submit(context.Background(), "first", "general")
	require.True(t, ok)

	_, ok = c.Submit(context.Background(), "second", "general")
	assert.False(t, ok)
	assert.Len(t, c.Turns(), 1)
	assert.True(t, c.Busy())

	close(caller.block)
	waitForStatus(t, c, id, TurnStatusResolved)
	assert.False(t, c.Busy())

	_, ok = c.Submit(context.Background(), "second", "general")
	assert.True(t, ok)
}

func TestTransportFailureFailsTurn(t *testing.T) {
	caller := &fakeCaller{err: errors.New("connection refused")}
	c := NewController(caller, testModeSet())

	id, ok := c.Submit(context.Background(), "hello", "general")
	require.True(t, ok)

	turn := waitForStatus(t, c, id, TurnStatusFailed)
	assert.Equal(t, "connection refused", turn.ErrorMessage)
	assert.Nil(t, turn.Response)
}

func TestAgentReportedErrorFailsTurn(t *testing.T) {
	caller := &fakeCaller{payload: &agent.Payload{Success: false, Error: "agent exploded"}}
	c := NewController(caller, testModeSet())

	id, _ := c.Submit(context.Background(), "hello", "general")
	turn := waitForStatus(t, c, id, TurnStatusFailed)
	assert.Equal(t, "agent exploded", turn.ErrorMessage)
}

func TestAgentReportedErrorWithoutMessageGetsGenericOne(t *testing.T) {
	caller := &fakeCaller{payload: &agent.Payload{Success: false}}
	c := NewController(caller, testModeSet())

	id, _ := c.Submit(context.Background(), "hello", "general")
	turn := waitForStatus(t, c, id, TurnStatusFailed)
	assert.Equal(t, errAgentFailure, turn.ErrorMessage)
}

func TestEmptyEnvelopeFailsTurn(t *testing.T) {
	caller := &fakeCaller{payload: &agent.Payload{Success: true}}
	c := NewController(caller, testModeSet())

	id, _ := c.Submit(context.Background(), "hello", "general")
	turn := waitForStatus(t, c, id, TurnStatusFailed)
	assert.Equal(t, errNoUsableResponse, turn.ErrorMessage)
}

func TestRetryReplacesFailedTurn(t *testing.T) {
	caller := &fakeCaller{err: errors.New("boom")}
	c := NewController(caller, testModeSet())

	id, _ := c.Submit(context.Background(), "X", "general")
	waitForStatus(t, c, id, TurnStatusFailed)

	// make the retry succeed
	caller.mu.Lock()
	caller.err = nil
	caller.payload = resultPayload(t, `"{\"summary\":\"recovered\"}"`)
	caller.mu.Unlock()

	newID, ok := c.Retry(context.Background(), id, "general")
	require.True(t, ok)
	assert.NotEqual(t, id, newID)

	_, found := c.GetTurn(id)
	assert.False(t, found)

	turn := waitForStatus(t, c, newID, TurnStatusResolved)
	assert.Equal(t, "X", turn.UserText)

	turns := c.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, newID, turns[0].ID)
}

func TestRetryGoesToEndOfSequence(t *testing.T) {
	caller := &fakeCaller{payload: resultPayload(t, `"{\"summary\":\"ok\"}"`)}
	c := NewController(caller, testModeSet())

	firstID, _ := c.Submit(context.Background(), "first", "general")
	waitForStatus(t, c, firstID, TurnStatusResolved)

	caller.mu.Lock()
	caller.err = errors.New("boom")
	caller.payload = nil
	caller.mu.Unlock()

	failedID, _ := c.Submit(context.Background(), "second", "general")
	waitForStatus(t, c, failedID, TurnStatusFailed)

	caller.mu.Lock()
	caller.err = nil
	caller.payload = resultPayload(t, `"{\"summary\":\"ok\"}"`)
	caller.mu.Unlock()

	thirdID, _ := c.Submit(context.Background(), "third", "general")
	waitForStatus(t, c, thirdID, TurnStatusResolved)

	retryID, ok := c.Retry(context.Background(), failedID, "general")
	require.True(t, ok)
	waitForStatus(t, c, retryID, TurnStatusResolved)

	turns := c.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, firstID, turns[0].ID)
	assert.Equal(t, thirdID, turns[1].ID)
	assert.Equal(t, retryID, turns[2].ID)
}

func TestRetryRejectsNonFailedTurns(t *testing.T) {
	caller := &fakeCaller{payload: resultPayload(t, `"{\"summary\":\"ok\"}"`)}
	c := NewController(caller, testModeSet())

	id, _ := c.Submit(context.Background(), "fine", "general")
	waitForStatus(t, c, id, TurnStatusResolved)

	_, ok := c.Retry(context.Background(), id, "general")
	assert.False(t, ok)

	_, ok = c.Retry(context.Background(), uuid.New(), "general")
	assert.False(t, ok)

	assert.Len(t, c.Turns(), 1)
}

type capturingPublisher struct {
	mu       sync.Mutex
	messages []*message.Message
}

func (p *capturingPublisher) Publish(_ string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, messages...)
	return nil
}

func (p *capturingPublisher) Close() error {
	return nil
}

func (p *capturingPublisher) capturedEvents(t *testing.T) []events.Event {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	ret := make([]events.Event, 0, len(p.messages))
	for _, msg := range p.messages {
		ev, err := events.NewEventFromJson(msg.Payload)
		require.NoError(t, err)
		ret = append(ret, ev)
	}
	return ret
}

func (p *capturingPublisher) sequenceNumbers(t *testing.T) []int {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	ret := make([]int, 0, len(p.messages))
	for _, msg := range p.messages {
		n, err := strconv.Atoi(msg.Metadata.Get("sequence_number"))
		require.NoError(t, err)
		ret = append(ret, n)
	}
	return ret
}

func TestTurnLifecyclePublishesOneEventPerTransition(t *testing.T) {
	caller := &fakeCaller{payload: resultPayload(t, `"{\"summary\":\"ok\"}"`)}
	pub := &capturingPublisher{}
	pm := events.NewPublisherManager()
	pm.SubscribePublisher("ui", pub)
	c := NewController(caller, testModeSet(), WithSessionID("sess_test"), WithPublisherManager(pm))

	resolvedID, ok := c.Submit(context.Background(), "one", "general")
	require.True(t, ok)
	waitForStatus(t, c, resolvedID, TurnStatusResolved)

	caller.mu.Lock()
	caller.payload = nil
	caller.err = errors.New("boom")
	caller.mu.Unlock()

	failedID, ok := c.Submit(context.Background(), "two", "general")
	require.True(t, ok)
	waitForStatus(t, c, failedID, TurnStatusFailed)

	caller.mu.Lock()
	caller.err = nil
	caller.payload = resultPayload(t, `"{\"summary\":\"recovered\"}"`)
	caller.mu.Unlock()

	retryID, ok := c.Retry(context.Background(), failedID, "general")
	require.True(t, ok)
	waitForStatus(t, c, retryID, TurnStatusResolved)

	evs := pub.capturedEvents(t)
	require.Len(t, evs, 7)

	wantTypes := []events.EventType{
		events.EventTypeTurnSubmitted,
		events.EventTypeTurnResolved,
		events.EventTypeTurnSubmitted,
		events.EventTypeTurnFailed,
		events.EventTypeTurnSubmitted,
		events.EventTypeTurnRetried,
		events.EventTypeTurnResolved,
	}
	for i, ev := range evs {
		assert.Equal(t, wantTypes[i], ev.Type(), "event %d", i)
		assert.Equal(t, "sess_test", ev.Metadata().SessionID)
	}

	assert.Equal(t, resolvedID, evs[0].Metadata().TurnID)
	assert.Equal(t, resolvedID, evs[1].Metadata().TurnID)
	assert.Equal(t, failedID, evs[2].Metadata().TurnID)
	assert.Equal(t, failedID, evs[3].Metadata().TurnID)
	assert.Equal(t, retryID, evs[4].Metadata().TurnID)
	assert.Equal(t, retryID, evs[5].Metadata().TurnID)
	assert.Equal(t, retryID, evs[6].Metadata().TurnID)

	failed, ok := evs[3].(*events.EventTurnFailed)
	require.True(t, ok)
	assert.Equal(t, "boom", failed.ErrorMessage)

	retried, ok := evs[5].(*events.EventTurnRetried)
	require.True(t, ok)
	assert.Equal(t, failedID, retried.PreviousTurnID)

	sequence := pub.sequenceNumbers(t)
	require.Len(t, sequence, 7)
	for i := 1; i < len(sequence); i++ {
		assert.Greater(t, sequence[i], sequence[i-1])
	}
}

func TestResolvedResponseIsNotMutatedByLaterTurns(t *testing.T) {
	caller := &fakeCaller{payload: resultPayload(t, `"{\"summary\":\"first\"}"`)}
	c := NewController(caller, testModeSet())

	firstID, _ := c.Submit(context.Background(), "one", "general")
	first := waitForStatus(t, c, firstID, TurnStatusResolved)

	caller.mu.Lock()
	caller.payload = resultPayload(t, `"{\"summary\":\"second\"}"`)
	caller.mu.Unlock()

	secondID, _ := c.Submit(context.Background(), "two", "general")
	waitForStatus(t, c, secondID, TurnStatusResolved)

	again, ok := c.GetTurn(firstID)
	require.True(t, ok)
	assert.Equal(t, first.Response, again.Response)
	assert.Equal(t, "first", again.Response.Summary)
}
