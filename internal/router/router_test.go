package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/adviceline/concierge/internal/model"
)

type fakeClassifier struct {
	reply string
	err   error
	calls int
}

func (f *fakeClassifier) Complete(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func stateWith(msgs ...model.Message) *model.ConversationState {
	return &model.ConversationState{UserID: "u1", SessionID: "s1", Messages: msgs}
}

func user(content string) model.Message {
	return model.Message{Role: model.RoleUser, Content: content}
}

func assistant(content string) model.Message {
	return model.Message{Role: model.RoleAssistant, Content: content}
}

func TestRouteThatsAllCapturesCaseNotes(t *testing.T) {
	r := New(nil, time.Second)
	d := r.Route(context.Background(), stateWith(user("I have two children. That's all")))
	assert.Equal(t, model.IssueCaseDetails, d.Category)
	assert.Equal(t, model.UrgencyStandard, d.Urgency)
	assert.Equal(t, "I have two children.", d.CaseNotes)
}

func TestRouteCaseFilePromptReply(t *testing.T) {
	r := New(nil, time.Second)
	st := stateWith(
		user("I want to book a callback"),
		assistant("Building Your Case File: do you have any deadlines?"),
		user("my hearing is next month"),
	)
	d := r.Route(context.Background(), st)
	assert.Equal(t, model.IssueCaseDetails, d.Category)
}

func TestRouteLetterRequests(t *testing.T) {
	r := New(nil, time.Second)

	d := r.Route(context.Background(), stateWith(user("can you write a letter to my landlord")))
	assert.Equal(t, model.IssueLetter, d.Category)

	// Follow-up only counts when a letter was actually offered.
	st := stateWith(
		user("my landlord won't fix the damp"),
		assistant("I can draft a letter to your landlord if you like."),
		user("yes please"),
	)
	d = r.Route(context.Background(), st)
	assert.Equal(t, model.IssueLetter, d.Category)

	st = stateWith(
		user("hello"),
		assistant("How can I help?"),
		user("yes please"),
	)
	d = r.Route(context.Background(), st)
	assert.NotEqual(t, model.IssueLetter, d.Category)
}

func TestRouteBookingConfirmation(t *testing.T) {
	r := New(nil, time.Second)

	d := r.Route(context.Background(), stateWith(user("Slot 2 please, my number is 07700 900123")))
	assert.Equal(t, model.IssueBookingConf, d.Category)
	assert.Equal(t, 2, d.SelectedSlotNum)
	assert.Equal(t, "07700900123", d.Phone)

	// Slot number alone is not a confirmation.
	d = r.Route(context.Background(), stateWith(user("I'll take slot 3")))
	assert.NotEqual(t, model.IssueBookingConf, d.Category)

	// Phone alone is not a confirmation either.
	d = r.Route(context.Background(), stateWith(user("call me on 07700900123 about my debt")))
	assert.NotEqual(t, model.IssueBookingConf, d.Category)
}

func TestRouteNotesBeforeMemory(t *testing.T) {
	r := New(nil, time.Second)

	// "my notes" mentions neither booking nor letters; it also contains
	// no memory keyword, but a combined query must prefer notes.
	d := r.Route(context.Background(), stateWith(user("show notes from my previous visit")))
	assert.Equal(t, model.IssueFetchNotes, d.Category)

	d = r.Route(context.Background(), stateWith(user("do you remember what we discussed last time")))
	assert.Equal(t, model.IssueMemoryRecall, d.Category)
	assert.Equal(t, model.UrgencyGeneral, d.Urgency)
}

func TestRouteCrisisOverrides(t *testing.T) {
	r := New(nil, time.Second)

	d := r.Route(context.Background(), stateWith(user("I feel suicidal and I'm in debt")))
	assert.Equal(t, model.IssueMentalHealth, d.Category)
	assert.Equal(t, model.UrgencyCrisis, d.Urgency)

	d = r.Route(context.Background(), stateWith(user("my partner hit me again")))
	assert.Equal(t, model.IssueDomesticAbuse, d.Category)
	assert.Equal(t, model.UrgencyCrisis, d.Urgency)

	d = r.Route(context.Background(), stateWith(user("I am homeless tonight")))
	assert.Equal(t, model.IssueCrisis, d.Category)
	assert.Equal(t, model.UrgencyCrisis, d.Urgency)
}

func TestRouteCategoryCascade(t *testing.T) {
	r := New(nil, time.Second)

	cases := []struct {
		query    string
		category model.IssueCategory
		urgency  model.UrgencyLevel
	}{
		{"my landlord is evicting me tomorrow", model.IssueEviction, model.UrgencyUrgent},
		{"I got an eviction notice", model.IssueEviction, model.UrgencyStandard},
		{"my universal credit was stopped", model.IssueBenefits, model.UrgencyStandard},
		{"I can't pay my debt", model.IssueDebt, model.UrgencyStandard},
		{"problem with my tenant agreement", model.IssueHousing, model.UrgencyStandard},
		{"my employer cut my hours", model.IssueEmployment, model.UrgencyStandard},
		{"what support services are near me", model.IssueLocalServices, model.UrgencyGeneral},
	}
	for _, tc := range cases {
		d := r.Route(context.Background(), stateWith(user(tc.query)))
		assert.Equal(t, tc.category, d.Category, tc.query)
		assert.Equal(t, tc.urgency, d.Urgency, tc.query)
	}
}

func TestRouteEvictionBeatsHousingKeywords(t *testing.T) {
	r := New(nil, time.Second)
	d := r.Route(context.Background(), stateWith(user("my landlord is trying to evict me")))
	assert.Equal(t, model.IssueEviction, d.Category)
}

func TestRouteFallbackUsesClassifier(t *testing.T) {
	fc := &fakeClassifier{reply: "consumer"}
	r := New(fc, time.Second)

	d := r.Route(context.Background(), stateWith(user("the washing machine I bought is broken")))
	assert.Equal(t, model.IssueConsumer, d.Category)
	assert.Equal(t, model.UrgencyStandard, d.Urgency)
	assert.Equal(t, 1, fc.calls)
}

func TestRouteFallbackDegradesToGeneral(t *testing.T) {
	for _, fc := range []*fakeClassifier{
		{err: errors.New("model offline")},
		{reply: "not-a-category"},
	} {
		r := New(fc, time.Second)
		d := r.Route(context.Background(), stateWith(user("hello there")))
		assert.Equal(t, model.IssueGeneral, d.Category)
		assert.Equal(t, model.UrgencyGeneral, d.Urgency)
	}
}

func TestRouteClassifierSkippedWhenKeywordsMatch(t *testing.T) {
	fc := &fakeClassifier{reply: "consumer"}
	r := New(fc, time.Second)
	d := r.Route(context.Background(), stateWith(user("I'm in debt")))
	assert.Equal(t, model.IssueDebt, d.Category)
	assert.Zero(t, fc.calls)
}
