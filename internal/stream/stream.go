// Package stream converts one finished conversation turn into an
// incremental event sequence for a client. The engine runs a turn to
// completion first; streaming is purely an output-side concern.
package stream

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/adviceline/concierge/internal/model"
)

// EventType enumerates the wire event kinds.
type EventType string

const (
	EventMessageStart      EventType = "messageStart"
	EventContentBlockStart EventType = "contentBlockStart"
	EventContentBlockDelta EventType = "contentBlockDelta"
	EventContentBlockStop  EventType = "contentBlockStop"
	EventMessageStop       EventType = "messageStop"
	EventToolUse           EventType = "toolUse"
	EventError             EventType = "error"
)

// Event is one streamed item. Fields are populated per type.
type Event struct {
	Type EventType `json:"type"`

	Role       string `json:"role,omitempty"`
	BlockIndex int    `json:"blockIndex,omitempty"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stopReason,omitempty"`

	Tool *ToolUse `json:"tool,omitempty"`

	// Error carries the internal failure detail; Text holds the
	// user-safe fallback for error events.
	Error string `json:"error,omitempty"`
}

// ToolUse announces a tool invocation to the client.
type ToolUse struct {
	ToolUseID string `json:"toolUseId"`
	Name      string `json:"name"`
	Display   string `json:"display"`
}

// toolDisplayNames maps tool names to what the client shows while the
// tool runs.
var toolDisplayNames = map[model.ToolName]string{
	model.ToolQueryNationalKB: "📚 Searching national knowledge base",
	model.ToolQueryLocalKB:    "📍 Searching local knowledge base",
	model.ToolFindServices:    "🏢 Finding local services",
	model.ToolGenerateLetter:  "📝 Generating letter",
	model.ToolLogCase:         "📋 Logging case for follow-up",
	model.ToolGetSlots:        "📅 Finding appointment slots",
	model.ToolBookAppointment: "✅ Booking appointment",
	model.ToolCreateNote:      "📝 Saving case notes",
	model.ToolGetNotes:        "📋 Retrieving notes",
	model.ToolCalcBenefits:    "💷 Estimating benefit entitlement",
	model.ToolAddDeadline:     "⏰ Tracking deadline",
}

// DisplayName returns the client label for a tool. Names outside the
// closed tool set are a typed error, never a label.
func DisplayName(name model.ToolName) (string, error) {
	if !model.KnownTool(name) {
		return "", &model.UnknownToolError{Name: name}
	}
	if d, ok := toolDisplayNames[name]; ok {
		return d, nil
	}
	return "🔧 " + string(name), nil
}

const defaultChunkSize = 20

const errorFallbackText = "\n\nI encountered an error processing your request. Please try again or contact us at 0800 144 8848."

// Adapter emits the events for successive turns of one session. It
// tracks a sent-count watermark over the transcript so a message
// streamed in an earlier turn is never re-emitted.
type Adapter struct {
	chunkSize int
	sent      int
}

// NewAdapter returns an adapter for a fresh session.
func NewAdapter() *Adapter {
	return &Adapter{chunkSize: defaultChunkSize}
}

// Resume returns an adapter for a session whose transcript already
// holds priorMessages entries, all previously streamed.
func Resume(priorMessages int) *Adapter {
	a := NewAdapter()
	if priorMessages > 0 {
		a.sent = priorMessages
	}
	return a
}

// Sink receives events in order. A sink error aborts the turn's stream.
type Sink func(Event) error

// StreamTurn emits the event sequence for the turn that just ran:
// tool-use events deduplicated by name, then one messageStart, a
// content block per new assistant message chunked at a fixed size, and
// a final messageStop. Messages below the watermark are skipped.
func (a *Adapter) StreamTurn(st *model.ConversationState, sink Sink) error {
	emitted := map[model.ToolName]bool{}
	blockIndex := 0
	for _, name := range st.ToolsUsed {
		if emitted[name] {
			continue
		}
		emitted[name] = true
		display, err := DisplayName(name)
		if err != nil {
			log.Warn().Err(err).Msg("tool event dropped")
			continue
		}
		blockIndex++
		ev := Event{
			Type:       EventToolUse,
			BlockIndex: blockIndex,
			Tool: &ToolUse{
				ToolUseID: fmt.Sprintf("tool-%s-%d", name, blockIndex),
				Name:      string(name),
				Display:   display,
			},
		}
		if err := sink(ev); err != nil {
			return err
		}
	}

	started := false
	for i, m := range st.Messages {
		if i < a.sent {
			continue
		}
		a.sent = i + 1
		if m.Role != model.RoleAssistant || m.Content == "" {
			continue
		}

		if !started {
			if err := sink(Event{Type: EventMessageStart, Role: string(model.RoleAssistant)}); err != nil {
				return err
			}
			started = true
		}
		if err := sink(Event{Type: EventContentBlockStart}); err != nil {
			return err
		}
		// Chunk on runes so a multibyte character never splits across
		// two deltas.
		content := []rune(m.Content)
		for off := 0; off < len(content); off += a.chunkSize {
			end := off + a.chunkSize
			if end > len(content) {
				end = len(content)
			}
			if err := sink(Event{Type: EventContentBlockDelta, Text: string(content[off:end])}); err != nil {
				return err
			}
		}
		if err := sink(Event{Type: EventContentBlockStop}); err != nil {
			return err
		}
	}

	return sink(Event{Type: EventMessageStop, StopReason: "end_turn"})
}

// StreamError emits the user-safe failure sequence: a fallback delta so
// the client always has text to show, then an error event. The
// transcript watermark is left untouched.
func (a *Adapter) StreamError(turnErr error, sink Sink) error {
	if err := sink(Event{Type: EventContentBlockDelta, Text: errorFallbackText}); err != nil {
		return err
	}
	return sink(Event{Type: EventError, Text: errorFallbackText, Error: turnErr.Error()})
}
