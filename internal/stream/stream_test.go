package stream

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adviceline/concierge/internal/model"
)

func collect(t *testing.T, a *Adapter, st *model.ConversationState) []Event {
	t.Helper()
	var out []Event
	require.NoError(t, a.StreamTurn(st, func(ev Event) error {
		out = append(out, ev)
		return nil
	}))
	return out
}

func types(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func joinDeltas(events []Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type == EventContentBlockDelta {
			b.WriteString(ev.Text)
		}
	}
	return b.String()
}

func TestStreamTurn_SingleMessageSequence(t *testing.T) {
	st := &model.ConversationState{}
	st.AppendUser("hello")
	st.AppendAssistant("This reply is long enough to need more than one delta chunk.")

	events := collect(t, NewAdapter(), st)

	require.GreaterOrEqual(t, len(events), 5)
	assert.Equal(t, EventMessageStart, events[0].Type)
	assert.Equal(t, "assistant", events[0].Role)
	assert.Equal(t, EventContentBlockStart, events[1].Type)
	assert.Equal(t, EventMessageStop, events[len(events)-1].Type)
	assert.Equal(t, "end_turn", events[len(events)-1].StopReason)
	assert.Equal(t, EventContentBlockStop, events[len(events)-2].Type)

	assert.Equal(t, "This reply is long enough to need more than one delta chunk.", joinDeltas(events))
	for _, ev := range events {
		if ev.Type == EventContentBlockDelta {
			assert.LessOrEqual(t, len([]rune(ev.Text)), defaultChunkSize)
		}
	}
}

func TestStreamTurn_MultipleNewMessagesShareOneMessageStart(t *testing.T) {
	st := &model.ConversationState{}
	st.AppendUser("I'm being evicted")
	st.AppendAssistant("Here is some guidance.")
	st.AppendAssistant("Here are available times.")

	events := collect(t, NewAdapter(), st)

	starts := 0
	blocks := 0
	for _, ev := range events {
		switch ev.Type {
		case EventMessageStart:
			starts++
		case EventContentBlockStart:
			blocks++
		}
	}
	assert.Equal(t, 1, starts)
	assert.Equal(t, 2, blocks)
}

func TestStreamTurn_WatermarkSkipsEarlierTurns(t *testing.T) {
	st := &model.ConversationState{}
	a := NewAdapter()

	st.AppendUser("first")
	st.AppendAssistant("first reply")
	first := collect(t, a, st)
	assert.Contains(t, joinDeltas(first), "first reply")

	st.AppendUser("second")
	st.AppendAssistant("second reply")
	second := collect(t, a, st)
	assert.Equal(t, "second reply", joinDeltas(second))
}

func TestResume_SkipsPersistedTranscript(t *testing.T) {
	st := &model.ConversationState{}
	st.AppendUser("first")
	st.AppendAssistant("first reply")

	a := Resume(len(st.Messages))
	st.AppendUser("second")
	st.AppendAssistant("second reply")

	assert.Equal(t, "second reply", joinDeltas(collect(t, a, st)))
}

func TestStreamTurn_ToolEventsDedupedByName(t *testing.T) {
	st := &model.ConversationState{}
	st.AppendUser("show my case file")
	st.AppendAssistant("done")
	st.RecordTool(model.ToolCreateNote)
	st.RecordTool(model.ToolLogCase)
	st.RecordTool(model.ToolCreateNote)

	events := collect(t, NewAdapter(), st)

	var tools []string
	for _, ev := range events {
		if ev.Type == EventToolUse {
			require.NotNil(t, ev.Tool)
			tools = append(tools, ev.Tool.Name)
		}
	}
	assert.Equal(t, []string{"create_note", "classify_and_route_case"}, tools)
	// Tool events precede message streaming.
	assert.Equal(t, EventToolUse, events[0].Type)
	assert.Equal(t, "📝 Saving case notes", events[0].Tool.Display)
}

func TestStreamTurn_NoAssistantMessageStillStops(t *testing.T) {
	st := &model.ConversationState{}
	st.AppendUser("hello")

	events := collect(t, NewAdapter(), st)
	assert.Equal(t, []EventType{EventMessageStop}, types(events))
}

func TestStreamTurn_SinkErrorAborts(t *testing.T) {
	st := &model.ConversationState{}
	st.AppendUser("hello")
	st.AppendAssistant("reply")

	boom := errors.New("client gone")
	err := NewAdapter().StreamTurn(st, func(Event) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestStreamError_EmitsFallbackThenError(t *testing.T) {
	var out []Event
	require.NoError(t, NewAdapter().StreamError(errors.New("db down"), func(ev Event) error {
		out = append(out, ev)
		return nil
	}))

	require.Len(t, out, 2)
	assert.Equal(t, EventContentBlockDelta, out[0].Type)
	assert.Contains(t, out[0].Text, "0800 144 8848")
	assert.Equal(t, EventError, out[1].Type)
	assert.Equal(t, "db down", out[1].Error)
}

func TestDisplayName_KnownTool(t *testing.T) {
	d, err := DisplayName(model.ToolCreateNote)
	require.NoError(t, err)
	assert.Equal(t, "📝 Saving case notes", d)
}

func TestDisplayName_UnknownToolIsTypedError(t *testing.T) {
	_, err := DisplayName(model.ToolName("mystery"))
	var unknown *model.UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, model.ToolName("mystery"), unknown.Name)
}

func TestStreamTurn_UnknownToolNameDropped(t *testing.T) {
	st := &model.ConversationState{}
	st.ToolsUsed = []model.ToolName{"mystery", model.ToolGetSlots}
	st.AppendAssistant("hello")

	var out []Event
	require.NoError(t, NewAdapter().StreamTurn(st, func(ev Event) error {
		out = append(out, ev)
		return nil
	}))

	var tools []string
	for _, ev := range out {
		if ev.Type == EventToolUse {
			tools = append(tools, ev.Tool.Name)
		}
	}
	assert.Equal(t, []string{string(model.ToolGetSlots)}, tools)
}
