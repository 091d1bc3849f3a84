// Package router classifies the latest user turn into an issue category
// and urgency tier. Classification is an ordered rule cascade: the first
// matching rule wins, and the model-backed classifier only runs when no
// rule produced anything more specific than "general".
package router

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adviceline/concierge/internal/llm"
	"github.com/adviceline/concierge/internal/model"
)

// Decision is the routing outcome for one turn.
type Decision struct {
	Category model.IssueCategory
	Urgency  model.UrgencyLevel

	// Booking confirmation extraction. Set only when Category is
	// booking_confirmation.
	SelectedSlotNum int
	Phone           string

	// CaseNotes carries the trailing case details when the user closes
	// with "that's all".
	CaseNotes string
}

var (
	slotRe  = regexp.MustCompile(`\b([1-6])\b`)
	phoneRe = regexp.MustCompile(`(07\d{9}|07\d{3}\s?\d{6}|\d{11})`)
)

var (
	letterFollowupKeywords = []string{
		"create the letter", "generate the letter", "write the letter", "draft the letter",
		"yes, write", "yes please", "create it", "generate it", "write it",
	}
	memoryKeywords = []string{"remember", "previous", "last time", "before", "earlier", "history", "past conversation"}
	notesKeywords  = []string{"case notes", "my notes", "view notes", "show notes", "fetch notes", "get notes"}
	crisisKeywords = []string{
		"suicidal", "suicide", "kill myself", "end my life", "self-harm",
		"domestic violence", "being abused", "partner hit", "homeless tonight",
		"no food", "starving", "bailiffs today", "bailiffs tomorrow",
	}
)

// Router classifies turns. The classifier is optional; with a nil
// provider the keyword cascade alone decides.
type Router struct {
	classifier llm.Provider
	timeout    time.Duration
}

func New(classifier llm.Provider, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Router{classifier: classifier, timeout: timeout}
}

// rule is one ordered cascade step. Rules run top to bottom; the first
// one to return ok=true decides the turn.
type rule struct {
	name  string
	match func(in input) (Decision, bool)
}

type input struct {
	query      string // latest user message, verbatim
	queryLower string
	lastAI     string // latest assistant message, lowercased
}

var rules = []rule{
	{name: "closing case details", match: matchThatsAll},
	{name: "case file follow-up", match: matchCaseFilePrompt},
	{name: "letter request", match: matchLetterRequest},
	{name: "booking confirmation", match: matchBookingConfirmation},
	{name: "notes query", match: matchNotesQuery},
	{name: "memory query", match: matchMemoryQuery},
	{name: "crisis keywords", match: matchCrisis},
	{name: "category keywords", match: matchCategoryKeywords},
}

// Route classifies the latest user turn against the transcript.
func (r *Router) Route(ctx context.Context, st *model.ConversationState) Decision {
	in := input{
		query:  st.LastUserMessage(),
		lastAI: strings.ToLower(st.LastAssistantMessage()),
	}
	in.queryLower = strings.ToLower(in.query)

	for _, rl := range rules {
		if d, ok := rl.match(in); ok {
			log.Info().Str("rule", rl.name).Str("category", string(d.Category)).Str("urgency", string(d.Urgency)).Msg("intent routed")
			return d
		}
	}

	d := Decision{Category: model.IssueGeneral, Urgency: model.UrgencyGeneral}
	if refined, ok := r.classify(ctx, in.query); ok {
		d.Category = refined
		d.Urgency = model.UrgencyStandard
	}
	log.Info().Str("rule", "fallback").Str("category", string(d.Category)).Msg("intent routed")
	return d
}

// matchThatsAll closes case-detail collection. The trailing text minus
// the closer itself becomes the case notes.
func matchThatsAll(in input) (Decision, bool) {
	if !strings.Contains(in.queryLower, "that's all") && !strings.Contains(in.queryLower, "thats all") {
		return Decision{}, false
	}
	notes := in.query
	for _, closer := range []string{"that's all", "That's all", "thats all", "Thats all"} {
		notes = strings.ReplaceAll(notes, closer, "")
	}
	return Decision{
		Category:  model.IssueCaseDetails,
		Urgency:   model.UrgencyStandard,
		CaseNotes: strings.TrimSpace(notes),
	}, true
}

// matchCaseFilePrompt treats any reply to a case-file prompt as case
// details, whatever the reply says.
func matchCaseFilePrompt(in input) (Decision, bool) {
	if !strings.Contains(in.lastAI, "case file") {
		return Decision{}, false
	}
	return Decision{Category: model.IssueCaseDetails, Urgency: model.UrgencyStandard}, true
}

func matchLetterRequest(in input) (Decision, bool) {
	direct := strings.Contains(in.queryLower, "write a letter") ||
		strings.Contains(in.queryLower, "draft a letter") ||
		strings.Contains(in.queryLower, "create a letter") ||
		strings.Contains(in.queryLower, "generate a letter")

	followup := false
	for _, kw := range letterFollowupKeywords {
		if strings.Contains(in.queryLower, kw) {
			followup = true
			break
		}
	}
	offered := strings.Contains(in.lastAI, "letter") &&
		(strings.Contains(in.lastAI, "generate") || strings.Contains(in.lastAI, "draft") || strings.Contains(in.lastAI, "help you"))

	if direct || (followup && offered) {
		return Decision{Category: model.IssueLetter, Urgency: model.UrgencyStandard}, true
	}
	return Decision{}, false
}

// matchBookingConfirmation needs both a slot number and a phone number
// in the same message.
func matchBookingConfirmation(in input) (Decision, bool) {
	slot := slotRe.FindStringSubmatch(in.queryLower)
	phone := phoneRe.FindStringSubmatch(strings.ReplaceAll(in.query, " ", ""))
	if slot == nil || phone == nil {
		return Decision{}, false
	}
	n, err := strconv.Atoi(slot[1])
	if err != nil {
		return Decision{}, false
	}
	return Decision{
		Category:        model.IssueBookingConf,
		Urgency:         model.UrgencyStandard,
		SelectedSlotNum: n,
		Phone:           phone[1],
	}, true
}

func matchNotesQuery(in input) (Decision, bool) {
	for _, kw := range notesKeywords {
		if strings.Contains(in.queryLower, kw) {
			return Decision{Category: model.IssueFetchNotes, Urgency: model.UrgencyGeneral}, true
		}
	}
	return Decision{}, false
}

func matchMemoryQuery(in input) (Decision, bool) {
	for _, kw := range memoryKeywords {
		if strings.Contains(in.queryLower, kw) {
			return Decision{Category: model.IssueMemoryRecall, Urgency: model.UrgencyGeneral}, true
		}
	}
	return Decision{}, false
}

// matchCrisis resolves crisis keywords into the specific crisis
// category where the message allows it.
func matchCrisis(in input) (Decision, bool) {
	hit := false
	for _, kw := range crisisKeywords {
		if strings.Contains(in.queryLower, kw) {
			hit = true
			break
		}
	}
	if !hit {
		return Decision{}, false
	}
	switch {
	case strings.Contains(in.queryLower, "suicid") ||
		strings.Contains(in.queryLower, "self-harm") ||
		strings.Contains(in.queryLower, "kill myself"):
		return Decision{Category: model.IssueMentalHealth, Urgency: model.UrgencyCrisis}, true
	case strings.Contains(in.queryLower, "domestic") ||
		strings.Contains(in.queryLower, "abuse") ||
		strings.Contains(in.queryLower, "hit me"):
		return Decision{Category: model.IssueDomesticAbuse, Urgency: model.UrgencyCrisis}, true
	}
	return Decision{Category: model.IssueCrisis, Urgency: model.UrgencyCrisis}, true
}

func matchCategoryKeywords(in input) (Decision, bool) {
	q := in.queryLower
	switch {
	case strings.Contains(q, "evict") && (strings.Contains(q, "tomorrow") || strings.Contains(q, "today")):
		return Decision{Category: model.IssueEviction, Urgency: model.UrgencyUrgent}, true
	case strings.Contains(q, "evict"):
		return Decision{Category: model.IssueEviction, Urgency: model.UrgencyStandard}, true
	case strings.Contains(q, "benefit") || strings.Contains(q, "universal credit") || strings.Contains(q, "pip"):
		return Decision{Category: model.IssueBenefits, Urgency: model.UrgencyStandard}, true
	case strings.Contains(q, "debt"):
		return Decision{Category: model.IssueDebt, Urgency: model.UrgencyStandard}, true
	case strings.Contains(q, "landlord") || strings.Contains(q, "housing") || strings.Contains(q, "tenant"):
		return Decision{Category: model.IssueHousing, Urgency: model.UrgencyStandard}, true
	case strings.Contains(q, "job") || strings.Contains(q, "employer") || strings.Contains(q, "work"):
		return Decision{Category: model.IssueEmployment, Urgency: model.UrgencyStandard}, true
	case strings.Contains(q, "local") || strings.Contains(q, "support") || strings.Contains(q, "services"):
		return Decision{Category: model.IssueLocalServices, Urgency: model.UrgencyGeneral}, true
	}
	return Decision{}, false
}

const classifySystemPrompt = `You are a Citizens Advice assistant. Classify the user's message into exactly one category from this list: mental_health, domestic_abuse, eviction, benefits, employment, debt, housing, consumer, immigration, local_services, general. Respond with the category name only.`

// classify asks the model for a category when keywords found nothing.
// Any failure or unknown answer leaves the decision as general.
func (r *Router) classify(ctx context.Context, query string) (model.IssueCategory, bool) {
	if r.classifier == nil || query == "" {
		return "", false
	}
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.classifier.Complete(cctx, classifySystemPrompt, query)
	if err != nil {
		log.Warn().Err(err).Msg("classifier fallback failed")
		return "", false
	}
	cat := model.IssueCategory(strings.ToLower(strings.TrimSpace(raw)))
	switch cat {
	case model.IssueMentalHealth, model.IssueDomesticAbuse, model.IssueEviction,
		model.IssueBenefits, model.IssueEmployment, model.IssueDebt, model.IssueHousing,
		model.IssueConsumer, model.IssueImmigration, model.IssueLocalServices:
		return cat, true
	}
	return "", false
}
