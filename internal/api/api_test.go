package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adviceline/concierge/internal/benefits"
	"github.com/adviceline/concierge/internal/deadlines"
	"github.com/adviceline/concierge/internal/model"
	"github.com/adviceline/concierge/internal/services"
	"github.com/adviceline/concierge/internal/store"
	"github.com/adviceline/concierge/internal/stream"
)

type fakeRunner struct {
	reply string
	tool  model.ToolName
	err   error
	calls int
}

func (f *fakeRunner) Run(_ context.Context, st *model.ConversationState, msg string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	st.AppendUser(msg)
	if f.tool != "" {
		st.RecordTool(f.tool)
	}
	st.AppendAssistant(f.reply)
	return nil
}

type fakeSessions struct {
	states  map[string]*model.ConversationState
	loadErr error
	saved   int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{states: map[string]*model.ConversationState{}}
}

func (f *fakeSessions) Load(_ context.Context, userID, sessionID string) (*model.ConversationState, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if st, ok := f.states[sessionID]; ok {
		return st, nil
	}
	return &model.ConversationState{UserID: userID, SessionID: sessionID}, nil
}

func (f *fakeSessions) Save(_ context.Context, st *model.ConversationState) error {
	f.saved++
	f.states[st.SessionID] = st
	return nil
}

type apiStore struct {
	notes []*model.Note
	cases []*model.CaseTicket
	dls   []*model.Deadline
}

func (s *apiStore) Notes() store.Notes         { return (*apiNotes)(s) }
func (s *apiStore) Bookings() store.Bookings   { return (*apiBookings)(s) }
func (s *apiStore) Cases() store.Cases         { return (*apiCases)(s) }
func (s *apiStore) Deadlines() store.Deadlines { return (*apiDeadlines)(s) }
func (s *apiStore) Letters() store.Letters     { return (*apiLetters)(s) }
func (s *apiStore) Benefits() store.Benefits   { return nil }

type apiNotes apiStore

func (s *apiNotes) Create(_ context.Context, n *model.Note) (*model.Note, error) {
	s.notes = append(s.notes, n)
	return n, nil
}

func (s *apiNotes) ListByUser(_ context.Context, userID string, _ int) ([]*model.Note, error) {
	var out []*model.Note
	for _, n := range s.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

type apiBookings apiStore

func (s *apiBookings) Create(_ context.Context, b *model.Booking) (*model.Booking, error) {
	return b, nil
}
func (s *apiBookings) SlotTaken(context.Context, string) (bool, error) { return false, nil }
func (s *apiBookings) ListByUser(context.Context, string) ([]*model.Booking, error) {
	return nil, nil
}

type apiCases apiStore

func (s *apiCases) Create(_ context.Context, c *model.CaseTicket) (*model.CaseTicket, error) {
	s.cases = append(s.cases, c)
	return c, nil
}

func (s *apiCases) ListPending(context.Context, int) ([]*model.CaseTicket, error) {
	return s.cases, nil
}

func (s *apiCases) ListByUser(context.Context, string) ([]*model.CaseTicket, error) {
	return s.cases, nil
}

type apiDeadlines apiStore

func (s *apiDeadlines) Create(_ context.Context, d *model.Deadline) (*model.Deadline, error) {
	s.dls = append(s.dls, d)
	return d, nil
}

func (s *apiDeadlines) ListUpcoming(context.Context, string, time.Time) ([]*model.Deadline, error) {
	return s.dls, nil
}

func (s *apiDeadlines) ListDueForReminder(context.Context, time.Time) ([]*model.Deadline, error) {
	return nil, nil
}

func (s *apiDeadlines) MarkReminderSent(context.Context, string) error { return nil }

type apiLetters apiStore

func (s *apiLetters) Create(_ context.Context, l *model.Letter) (*model.Letter, error) {
	return l, nil
}

func (s *apiLetters) ListByUser(context.Context, string) ([]*model.Letter, error) {
	return nil, nil
}

func testRouter(t *testing.T, runner *fakeRunner, st *apiStore) http.Handler {
	t.Helper()
	postcodes := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":200,"result":{"postcode":"SW1A 1AA","region":"London","admin_district":"Westminster","latitude":51.5,"longitude":-0.14}}`)
	}))
	t.Cleanup(postcodes.Close)

	return NewRouter(Deps{
		Engine:    runner,
		Sessions:  newFakeSessions(),
		Store:     st,
		Deadlines: deadlines.NewTracker(st.Deadlines(), 14),
		Benefits:  benefits.NewCalculator(nil),
		Locator:   services.NewLocator(postcodes.URL, time.Second),
	})
}

func decodeEvents(t *testing.T, body *bytes.Buffer) []stream.Event {
	t.Helper()
	var out []stream.Event
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		var ev stream.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		out = append(out, ev)
	}
	return out
}

func TestConverse_StreamsNDJSON(t *testing.T) {
	runner := &fakeRunner{reply: "You have rights as a tenant.", tool: model.ToolQueryNationalKB}
	h := testRouter(t, runner, &apiStore{})

	rec := httptest.NewRecorder()
	body := `{"prompt":"my landlord won't fix the heating","userId":"u1","sessionId":"s1"}`
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/converse", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	events := decodeEvents(t, rec.Body)
	require.NotEmpty(t, events)
	assert.Equal(t, stream.EventToolUse, events[0].Type)
	assert.Equal(t, stream.EventMessageStart, events[1].Type)
	assert.Equal(t, stream.EventMessageStop, events[len(events)-1].Type)

	var text strings.Builder
	for _, ev := range events {
		if ev.Type == stream.EventContentBlockDelta {
			text.WriteString(ev.Text)
		}
	}
	assert.Equal(t, "You have rights as a tenant.", text.String())
}

func TestConverse_ValidationRejectsBeforeRunning(t *testing.T) {
	runner := &fakeRunner{reply: "x"}
	h := testRouter(t, runner, &apiStore{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/converse",
		strings.NewReader(`{"prompt":"","userId":"u1","sessionId":"s1"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, runner.calls)
}

func TestConverse_RunnerFailureEmitsErrorEvents(t *testing.T) {
	runner := &fakeRunner{err: errors.New("llm down")}
	h := testRouter(t, runner, &apiStore{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/converse",
		strings.NewReader(`{"prompt":"help","userId":"u1","sessionId":"s1"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeEvents(t, rec.Body)
	require.Len(t, events, 2)
	assert.Equal(t, stream.EventContentBlockDelta, events[0].Type)
	assert.Contains(t, events[0].Text, "try again")
	assert.Equal(t, stream.EventError, events[1].Type)
}

func TestListNotes(t *testing.T) {
	st := &apiStore{notes: []*model.Note{
		{NoteID: "n1", UserID: "u1", Content: "Case: debt"},
		{NoteID: "n2", UserID: "other", Content: "hidden"},
	}}
	h := testRouter(t, &fakeRunner{}, st)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/u1/notes", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Case: debt")
	assert.NotContains(t, rec.Body.String(), "hidden")
}

func TestCreateNote(t *testing.T) {
	st := &apiStore{}
	h := testRouter(t, &fakeRunner{}, st)

	body := `{"content":"rang landlord, no reply","category":"housing","actionRequired":true}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users/u1/notes", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, st.notes, 1)
	assert.Equal(t, "u1", st.notes[0].UserID)
	assert.True(t, st.notes[0].ActionRequired)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users/u1/notes", strings.NewReader(`{"content":""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPendingCases(t *testing.T) {
	st := &apiStore{cases: []*model.CaseTicket{{CaseID: "c1", Status: "PENDING", Priority: 1}}}
	h := testRouter(t, &fakeRunner{}, st)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cases/pending", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"c1"`)
}

func TestCreateDeadline(t *testing.T) {
	st := &apiStore{}
	h := testRouter(t, &fakeRunner{}, st)

	due := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users/u1/deadlines",
		strings.NewReader(`{"title":"Appeal PIP decision","dueDate":"`+due+`","category":"benefits"}`)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, st.dls, 1)
	assert.Equal(t, "u1", st.dls[0].UserID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users/u1/deadlines",
		strings.NewReader(`{"title":"","dueDate":"`+due+`"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEstimateBenefits(t *testing.T) {
	h := testRouter(t, &fakeRunner{}, &apiStore{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/benefits/estimate",
		strings.NewReader(`{"userId":"u1","monthlyIncome":800,"monthlyRent":600,"hasChildren":true,"numChildren":1}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	var est model.BenefitEstimate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &est))
	assert.InDelta(t, 218.74, est.UniversalCredit, 0.01)
	assert.InDelta(t, 600, est.HousingSupport, 0.01)
}

func TestFindServices(t *testing.T) {
	h := testRouter(t, &fakeRunner{}, &apiStore{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/services?postcode=SW1A1AA", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "London")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/services", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	h := testRouter(t, &fakeRunner{}, &apiStore{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
