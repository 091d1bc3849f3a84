package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adviceline/concierge/internal/alert"
	"github.com/adviceline/concierge/internal/kb"
	"github.com/adviceline/concierge/internal/memory"
	"github.com/adviceline/concierge/internal/model"
	"github.com/adviceline/concierge/internal/router"
	"github.com/adviceline/concierge/internal/store"
)

// monday anchors slot generation: offsets 1..5 give Tue 11 through Fri 14
// March, Saturday skipped.
var monday = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(context.Context, string, string) (string, error) {
	return f.reply, f.err
}

type fakeKB struct {
	national []model.KBResult
	local    []model.KBResult
	queries  []string
}

func (f *fakeKB) SearchNational(_ context.Context, query string, _ int) ([]model.KBResult, error) {
	f.queries = append(f.queries, query)
	return f.national, nil
}

func (f *fakeKB) SearchLocal(_ context.Context, query string, _ int) ([]model.KBResult, error) {
	f.queries = append(f.queries, query)
	return f.local, nil
}

var _ kb.Retriever = (*fakeKB)(nil)

type fakeMemory struct {
	facts      []memory.Fact
	remembered []string
}

func (f *fakeMemory) Remember(_ context.Context, _, content, _ string) error {
	f.remembered = append(f.remembered, content)
	return nil
}

func (f *fakeMemory) Recall(context.Context, string, string, int) ([]memory.Fact, error) {
	return f.facts, nil
}

type fakeAlerts struct {
	published []alert.CrisisAlert
}

func (f *fakeAlerts) PublishCrisis(_ context.Context, a alert.CrisisAlert) {
	f.published = append(f.published, a)
}

type memStore struct {
	notes    []*model.Note
	bookings []*model.Booking
	cases    []*model.CaseTicket
	letters  []*model.Letter
}

func (m *memStore) Notes() store.Notes         { return (*memNotes)(m) }
func (m *memStore) Bookings() store.Bookings   { return (*memBookings)(m) }
func (m *memStore) Cases() store.Cases         { return (*memCases)(m) }
func (m *memStore) Deadlines() store.Deadlines { return nil }
func (m *memStore) Letters() store.Letters     { return (*memLetters)(m) }
func (m *memStore) Benefits() store.Benefits   { return nil }

type memNotes memStore

func (m *memNotes) Create(_ context.Context, n *model.Note) (*model.Note, error) {
	m.notes = append(m.notes, n)
	return n, nil
}

func (m *memNotes) ListByUser(_ context.Context, userID string, _ int) ([]*model.Note, error) {
	var out []*model.Note
	for _, n := range m.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

type memBookings memStore

func (m *memBookings) Create(_ context.Context, b *model.Booking) (*model.Booking, error) {
	m.bookings = append(m.bookings, b)
	return b, nil
}

func (m *memBookings) SlotTaken(_ context.Context, slotID string) (bool, error) {
	for _, b := range m.bookings {
		if b.SlotID == slotID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memBookings) ListByUser(_ context.Context, userID string) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

type memCases memStore

func (m *memCases) Create(_ context.Context, c *model.CaseTicket) (*model.CaseTicket, error) {
	out := *c
	if out.CaseID == "" {
		out.CaseID = fmt.Sprintf("case-%d", len(m.cases)+1)
	}
	m.cases = append(m.cases, &out)
	return &out, nil
}

func (m *memCases) ListPending(context.Context, int) ([]*model.CaseTicket, error) {
	return m.cases, nil
}

func (m *memCases) ListByUser(context.Context, string) ([]*model.CaseTicket, error) {
	return m.cases, nil
}

type memLetters memStore

func (m *memLetters) Create(_ context.Context, l *model.Letter) (*model.Letter, error) {
	m.letters = append(m.letters, l)
	return l, nil
}

func (m *memLetters) ListByUser(context.Context, string) ([]*model.Letter, error) {
	return m.letters, nil
}

type harness struct {
	engine *Engine
	store  *memStore
	memory *fakeMemory
	alerts *fakeAlerts
	kb     *fakeKB
	state  *model.ConversationState
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:  &memStore{},
		memory: &fakeMemory{},
		alerts: &fakeAlerts{},
		kb:     &fakeKB{},
		state:  &model.ConversationState{UserID: "u1", SessionID: "s1"},
	}
	h.engine = New(Deps{
		Router: router.New(&fakeLLM{reply: "general"}, time.Second),
		Guide:  &fakeLLM{reply: "Here is some guidance about your situation."},
		KB:     h.kb,
		Memory: h.memory,
		Store:  h.store,
		Alerts: h.alerts,
	}, Options{Clock: func() time.Time { return monday }})
	return h
}

func (h *harness) turn(t *testing.T, msg string) string {
	t.Helper()
	require.NoError(t, h.engine.Run(context.Background(), h.state, msg))
	return h.state.LastAssistantMessage()
}

func TestRun_CrisisPublishesAlertAndOffersUrgentBooking(t *testing.T) {
	h := newHarness(t)
	reply := h.turn(t, "I can't cope anymore, I want to kill myself")

	require.Len(t, h.alerts.published, 1)
	assert.Equal(t, "u1", h.alerts.published[0].UserID)
	assert.Equal(t, model.IssueMentalHealth, h.alerts.published[0].Category)

	// The crisis case is logged before the alert goes out and its
	// reference travels in the payload.
	require.Len(t, h.store.cases, 1)
	assert.Equal(t, model.UrgencyCrisis, h.store.cases[0].UrgencyLevel)
	assert.Equal(t, h.store.cases[0].CaseID, h.alerts.published[0].CaseID)
	assert.NotEmpty(t, h.alerts.published[0].CaseID)
	assert.True(t, h.state.CaseLogged)

	payload, err := json.Marshal(h.alerts.published[0])
	require.NoError(t, err)
	var keys map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &keys))
	assert.Contains(t, keys, "caseId")

	assert.Equal(t, model.UrgencyCrisis, h.state.UrgencyLevel)
	transcript := allAssistant(h.state)
	assert.Contains(t, transcript, "Samaritans: **116 123**")
	assert.Contains(t, reply, "book a callback")
	// Urgent window: only Tuesday and Wednesday slots are offered.
	assert.Contains(t, reply, "Tuesday 11 March at 09:00")
	assert.NotContains(t, reply, "Thursday")
	assert.Contains(t, h.state.ToolsUsed, model.ToolGetSlots)
}

func TestRun_UrgentEvictionRoutesToBooking(t *testing.T) {
	h := newHarness(t)
	reply := h.turn(t, "I got a letter saying I am being evicted today and I have nowhere to go")

	assert.Equal(t, model.IssueEviction, h.state.IssueCategory)
	assert.Equal(t, model.UrgencyUrgent, h.state.UrgencyLevel)
	assert.Contains(t, allAssistant(h.state), "How I can help further")
	assert.Contains(t, reply, "Here are available times")
	assert.Contains(t, h.state.ToolsUsed, model.ToolQueryNationalKB)
}

func TestRun_StandardIssueTriagesCaseOnce(t *testing.T) {
	h := newHarness(t)
	h.turn(t, "My employer dismissed me without notice and I have not been paid for my last month of full time shifts")

	assert.Equal(t, model.IssueEmployment, h.state.IssueCategory)
	assert.True(t, h.state.CaseLogged)
	require.Len(t, h.store.cases, 1)
	assert.Equal(t, "PENDING", h.store.cases[0].Status)
	assert.Equal(t, 3, h.store.cases[0].Priority)
	require.Len(t, h.store.notes, 1)
	assert.Contains(t, h.store.notes[0].Content, "Case: employment (STANDARD)")
	assert.False(t, h.store.notes[0].ActionRequired)
	assert.Contains(t, allAssistant(h.state), "Your case has been logged")
	assert.NotEmpty(t, h.memory.remembered)

	// A second qualifying turn must not log a second case.
	h.turn(t, "My employer also refused to give me a written contract at work")
	assert.Len(t, h.store.cases, 1)
}

func TestRun_BookingOnlyFlow(t *testing.T) {
	h := newHarness(t)

	menu := h.turn(t, "Hi, I'd like to book a callback please")
	assert.Contains(t, menu, "Here are available times")
	assert.Contains(t, menu, "**1.** Tuesday 11 March at 09:00")
	require.Len(t, h.state.Details.BookingSlots, 6)

	confirm := h.turn(t, "1, my number is 07700900123")
	assert.Equal(t, model.IssueBookingConf, h.state.IssueCategory)
	assert.Contains(t, confirm, "Appointment Confirmed")
	assert.Contains(t, confirm, "07700 900123")
	assert.Contains(t, confirm, "Tuesday 11 March at 09:00")
	require.NotNil(t, h.state.Details.Booking)
	assert.True(t, strings.HasPrefix(h.state.Details.Booking.Reference, "CA-"))

	require.Len(t, h.store.bookings, 1)
	b := h.store.bookings[0]
	assert.Equal(t, "confirmed", b.Status)
	assert.Equal(t, "20250311_0900", b.SlotID)
	assert.Equal(t, "07700900123", b.ContactPhone)
	assert.True(t, strings.HasPrefix(b.BookingID, "BK-"))

	summary := h.turn(t, "that's all")
	assert.Contains(t, summary, "Case File Complete")
	assert.Contains(t, summary, "No additional details provided")
	assert.Contains(t, summary, h.state.Details.Booking.Reference)

	require.NotEmpty(t, h.store.notes)
	note := h.store.notes[len(h.store.notes)-1]
	assert.True(t, note.ActionRequired)
	assert.Contains(t, note.Content, "Booking: "+h.state.Details.Booking.Reference)
}

func TestRun_BookedSlotExcludedFromNextMenu(t *testing.T) {
	h := newHarness(t)
	h.store.bookings = append(h.store.bookings, &model.Booking{
		BookingID: "BK-AAAA", SlotID: "20250311_0900", UserID: "other", Status: "confirmed",
	})

	menu := h.turn(t, "Hi, I'd like to book a callback please")
	assert.NotContains(t, menu, "Tuesday 11 March at 09:00")
	assert.Contains(t, menu, "**1.** Tuesday 11 March at 09:30")
}

func TestRun_CaseDetailsCapturedBeforeClose(t *testing.T) {
	h := newHarness(t)
	h.turn(t, "Hi, I'd like to book a callback please")
	h.turn(t, "2, my number is 07700900123")

	detail := h.turn(t, "My landlord gave me a section 21 notice on 1 March")
	assert.Equal(t, model.IssueCaseDetails, h.state.IssueCategory)
	assert.Contains(t, detail, "Case Notes:")
	assert.Contains(t, detail, "section 21 notice")
	assert.Equal(t, "My landlord gave me a section 21 notice on 1 March", h.state.Details.CaseNotes)
}

func TestRun_LetterGeneration(t *testing.T) {
	h := newHarness(t)
	reply := h.turn(t, "Please write a letter to my landlord about the damp in my flat, my name is John Smith and I live at 12 Hill Road, SW19 2AB")

	assert.Equal(t, model.IssueLetter, h.state.IssueCategory)
	assert.Contains(t, reply, "John Smith")
	assert.Contains(t, reply, "damp and mould")
	assert.Contains(t, reply, "10 March 2025")
	assert.Contains(t, h.state.ToolsUsed, model.ToolGenerateLetter)

	require.Len(t, h.store.letters, 1)
	assert.Equal(t, "landlord_complaint", h.store.letters[0].Type)
}

func TestRun_MemoryRecall(t *testing.T) {
	h := newHarness(t)
	h.memory.facts = []memory.Fact{{UserID: "u1", Content: "On 1 March 2025 the caller contacted us about: rent arrears"}}

	reply := h.turn(t, "Do you remember what we talked about last time?")
	assert.Contains(t, reply, "Yes, I remember some details")
	assert.Contains(t, reply, "rent arrears")
}

func TestRun_MemoryRecallEmpty(t *testing.T) {
	h := newHarness(t)
	reply := h.turn(t, "Do you remember me?")
	assert.Contains(t, reply, "I don't have any stored memories")
}

func TestRun_FetchNotes(t *testing.T) {
	h := newHarness(t)
	h.store.notes = append(h.store.notes, &model.Note{
		UserID: "u1", Content: "Case: debt (STANDARD)", Category: model.IssueDebt,
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	})

	reply := h.turn(t, "Can you show me my notes?")
	assert.Contains(t, reply, "Your Case Notes")
	assert.Contains(t, reply, "Case: debt (STANDARD)")
	assert.Contains(t, h.state.ToolsUsed, model.ToolGetNotes)
}

func TestRun_FetchNotesEmpty(t *testing.T) {
	h := newHarness(t)
	reply := h.turn(t, "show notes")
	assert.Contains(t, reply, "No case notes found")
}

func TestRun_ShortIssueGetsClarifyingQuestion(t *testing.T) {
	h := newHarness(t)
	h.turn(t, "I'm in debt")

	assert.Equal(t, model.IssueDebt, h.state.IssueCategory)
	assert.Contains(t, allAssistant(h.state), "What type of debt are you dealing with?")
	assert.Contains(t, allAssistant(h.state), "essentials covered")
}

func TestRun_GuidanceUsesLocalKBForLocationQueries(t *testing.T) {
	h := newHarness(t)
	h.kb.local = []model.KBResult{{Content: "Croydon advice bureau details"}}
	h.turn(t, "I need help with my landlord, is there any support near Croydon I could visit this week?")

	assert.Contains(t, h.state.ToolsUsed, model.ToolQueryLocalKB)
}

func TestRun_NilCollaboratorsDegrade(t *testing.T) {
	e := New(Deps{Router: router.New(&fakeLLM{reply: "general"}, time.Second)},
		Options{Clock: func() time.Time { return monday }})
	st := &model.ConversationState{UserID: "u1", SessionID: "s1"}

	require.NoError(t, e.Run(context.Background(), st, "I am being evicted today from my flat"))
	assert.NotEmpty(t, st.LastAssistantMessage())
}

func TestTruncateClipsOnRuneBoundaries(t *testing.T) {
	clipped := truncate(strings.Repeat("£", 50), 10)
	assert.True(t, utf8.ValidString(clipped))
	assert.Equal(t, 10, len([]rune(clipped)))

	assert.Equal(t, "short", truncate("short", 10))
}

func allAssistant(st *model.ConversationState) string {
	var b strings.Builder
	for _, m := range st.Messages {
		if m.Role == model.RoleAssistant {
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}
