// Package stream converts a turn's reply messages into the chunked wire
// protocol consumed by clients expecting incremental text.
package stream

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pocketsage-ai/finance-copilot/internal/model"
)

// EventType tags wire events.
type EventType string

const (
	EventStart     EventType = "start"
	EventTextStart EventType = "text-start"
	EventTextDelta EventType = "text-delta"
	EventTextEnd   EventType = "text-end"
)

// DoneSentinel terminates every stream. It is a literal line, deliberately
// distinct from the JSON events.
const DoneSentinel = "[DONE]"

// Event is one wire record. Events are newline-delimited JSON on the wire.
type Event struct {
	Type  EventType `json:"type"`
	ID    string    `json:"id,omitempty"`
	Agent string    `json:"agent,omitempty"`
	Delta string    `json:"delta,omitempty"`
}

// Writer receives adapter output. The HTTP layer implements it over an
// NDJSON response body.
type Writer interface {
	WriteEvent(event Event) error
	WriteDone() error
}

const (
	defaultChunkMin = 50
	defaultChunkMax = 80
)

const apologyText = "Sorry - something went wrong while generating that reply. Please try again."

// Adapter emits the event sequence for a completed turn. Chunk boundaries
// fall on word boundaries inside the configured size band, and a pacing
// delay between deltas simulates typing cadence.
type Adapter struct {
	chunkMin int
	chunkMax int
	delay    time.Duration
}

// NewAdapter creates an adapter with the given pacing delay between deltas.
func NewAdapter(delay time.Duration) *Adapter {
	return &Adapter{
		chunkMin: defaultChunkMin,
		chunkMax: defaultChunkMax,
		delay:    delay,
	}
}

// Stream emits start, then per message a text-start/text-delta*/text-end
// triple in order, then the done sentinel. Events for message N complete
// before events for message N+1 begin.
//
// Context cancellation stops emission immediately: partial delivery to the
// client never implies partial persistence, because the caller checkpoints
// before streaming.
func (a *Adapter) Stream(ctx context.Context, messages []model.Message, w Writer) error {
	if err := w.WriteEvent(Event{Type: EventStart, ID: newEventID()}); err != nil {
		return err
	}

	for _, msg := range messages {
		if err := a.streamMessage(ctx, msg, w); err != nil {
			return err
		}
	}

	return w.WriteDone()
}

// StreamApology emits a well-formed apology triple followed by the
// sentinel, used when reply generation failed partway. The stream never
// terminates abruptly without the sentinel.
func (a *Adapter) StreamApology(ctx context.Context, w Writer) error {
	if err := w.WriteEvent(Event{Type: EventStart, ID: newEventID()}); err != nil {
		return err
	}
	msg := model.Message{
		ID:      newEventID(),
		Role:    model.RoleAssistant,
		Agent:   model.AgentOrchestrator,
		Content: apologyText,
	}
	if err := a.streamMessage(ctx, msg, w); err != nil {
		return err
	}
	return w.WriteDone()
}

func (a *Adapter) streamMessage(ctx context.Context, msg model.Message, w Writer) error {
	id := newEventID()
	if err := w.WriteEvent(Event{Type: EventTextStart, ID: id, Agent: msg.Agent}); err != nil {
		return err
	}

	for i, chunk := range chunkText(msg.Content, a.chunkMin, a.chunkMax) {
		if i > 0 && a.delay > 0 {
			timer := time.NewTimer(a.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.WriteEvent(Event{Type: EventTextDelta, ID: id, Delta: chunk}); err != nil {
			return err
		}
	}

	return w.WriteEvent(Event{Type: EventTextEnd, ID: id})
}

// chunkText splits text into word-boundary chunks targeting the min..max
// size band. Words are never split; a single word longer than max is emitted
// intact. A trailing chunk shorter than min is folded into the previous
// chunk, so only the final chunk may run past max, and by less than min.
// Concatenating the chunks reproduces the input exactly.
func chunkText(text string, min, max int) []string {
	if text == "" {
		return []string{""}
	}

	parts := strings.SplitAfter(text, " ")
	var chunks []string
	var cur strings.Builder
	for _, part := range parts {
		if cur.Len() > 0 && cur.Len()+len(part) > max {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(part)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}

	if n := len(chunks); n > 1 && len(chunks[n-1]) < min {
		chunks[n-2] += chunks[n-1]
		chunks = chunks[:n-1]
	}
	return chunks
}

func newEventID() string {
	return uuid.Must(uuid.NewV7()).String()
}
