// Package workflow drives the conversation state machine. Each user
// turn enters at issue identification and walks node to node until a
// terminal node ends the turn; every node appends to or extends the
// transcript and may invoke tools.
package workflow

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/adviceline/concierge/internal/alert"
	"github.com/adviceline/concierge/internal/kb"
	"github.com/adviceline/concierge/internal/llm"
	"github.com/adviceline/concierge/internal/memory"
	"github.com/adviceline/concierge/internal/model"
	"github.com/adviceline/concierge/internal/router"
	"github.com/adviceline/concierge/internal/store"
)

// node names double as NextAction values.
const (
	nodeEnd                = "end"
	nodeCrisisResponse     = "crisis_response"
	nodeGatherDetails      = "gather_details"
	nodeProvideGuidance    = "provide_guidance"
	nodeOfferTools         = "offer_tools"
	nodeTriage             = "triage"
	nodeBooking            = "booking"
	nodeBookingConfirm     = "booking_confirm"
	nodeCollectCaseDetails = "collect_case_details"
	nodeMemoryRecall       = "memory_recall"
	nodeFetchNotes         = "fetch_notes"
	nodeGenerateLetter     = "generate_letter"
)

// Deps are the collaborators a turn may touch. Any of them may be nil
// in tests; nodes degrade rather than fail the turn.
type Deps struct {
	Router *router.Router
	Guide  llm.Provider
	KB     kb.Retriever
	Memory memory.Store
	Store  store.Store
	Alerts alert.Publisher
}

// Options tune windows and timeouts. Clock is injectable so slot
// generation and letters are deterministic under test.
type Options struct {
	SlotWindowDays      int
	UrgentWindowDays    int
	CollaboratorTimeout time.Duration
	Clock               func() time.Time
}

// Engine executes conversation turns.
type Engine struct {
	deps Deps
	opts Options
}

func New(deps Deps, opts Options) *Engine {
	if opts.SlotWindowDays <= 0 {
		opts.SlotWindowDays = 5
	}
	if opts.UrgentWindowDays <= 0 {
		opts.UrgentWindowDays = 2
	}
	if opts.CollaboratorTimeout <= 0 {
		opts.CollaboratorTimeout = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Engine{deps: deps, opts: opts}
}

func (e *Engine) now() time.Time { return e.opts.Clock() }

// Run processes one user turn. The user message is appended to the
// transcript, routed, and the node chain executes until a terminal
// node. Collaborator failures degrade; Run itself only fails on
// programming errors.
func (e *Engine) Run(ctx context.Context, st *model.ConversationState, userMessage string) error {
	st.AppendUser(userMessage)
	st.ToolsUsed = nil
	st.LongTermMemory = ""

	d := e.deps.Router.Route(ctx, st)
	st.IssueCategory = d.Category
	st.UrgencyLevel = d.Urgency
	if d.SelectedSlotNum != 0 {
		st.Details.SelectedSlotNum = d.SelectedSlotNum
	}
	if d.Phone != "" {
		st.Details.Phone = d.Phone
	}
	if d.CaseNotes != "" {
		st.Details.CaseNotes = d.CaseNotes
	}

	node := e.routeAfterIdentify(st)
	for node != nodeEnd {
		log.Debug().Str("node", node).Str("sessionId", st.SessionID).Msg("workflow step")
		st.NextAction = node
		node = e.step(ctx, st, node)
	}
	st.NextAction = nodeEnd
	return nil
}

func (e *Engine) step(ctx context.Context, st *model.ConversationState, node string) string {
	switch node {
	case nodeCrisisResponse:
		return e.crisisResponse(ctx, st)
	case nodeGatherDetails:
		return e.gatherDetails(st)
	case nodeProvideGuidance:
		return e.provideGuidance(ctx, st)
	case nodeOfferTools:
		return e.offerTools(st)
	case nodeTriage:
		return e.triage(ctx, st)
	case nodeBooking:
		return e.booking(ctx, st)
	case nodeBookingConfirm:
		return e.bookingConfirm(ctx, st)
	case nodeCollectCaseDetails:
		return e.collectCaseDetails(ctx, st)
	case nodeMemoryRecall:
		return e.memoryRecall(ctx, st)
	case nodeFetchNotes:
		return e.fetchNotes(ctx, st)
	case nodeGenerateLetter:
		return e.generateLetter(ctx, st)
	}
	log.Error().Str("node", node).Msg("unknown workflow node, ending turn")
	return nodeEnd
}

// routeAfterIdentify picks the first node from the routing decision.
// Category outcomes take precedence over the urgency check.
func (e *Engine) routeAfterIdentify(st *model.ConversationState) string {
	switch st.IssueCategory {
	case model.IssueCaseDetails:
		return nodeCollectCaseDetails
	case model.IssueLetter:
		return nodeGenerateLetter
	case model.IssueBookingConf:
		return nodeBookingConfirm
	case model.IssueMemoryRecall:
		return nodeMemoryRecall
	case model.IssueFetchNotes:
		return nodeFetchNotes
	}
	if st.UrgencyLevel == model.UrgencyCrisis {
		return nodeCrisisResponse
	}
	if wantsBookingOnly(st) {
		return nodeBooking
	}
	return nodeGatherDetails
}

// collaboratorCtx bounds one collaborator call.
func (e *Engine) collaboratorCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.opts.CollaboratorTimeout)
}

// loadMemory populates the cached long-term memory blob once per turn.
func (e *Engine) loadMemory(ctx context.Context, st *model.ConversationState, query string) {
	if st.LongTermMemory != "" || e.deps.Memory == nil {
		return
	}
	mctx, cancel := e.collaboratorCtx(ctx)
	defer cancel()

	facts, err := e.deps.Memory.Recall(mctx, st.UserID, query, 5)
	if err != nil {
		log.Warn().Err(err).Str("userId", st.UserID).Msg("long-term memory recall failed")
		return
	}
	if len(facts) == 0 {
		return
	}
	var b []byte
	for i, f := range facts {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, "- "...)
		b = append(b, f.Content...)
	}
	st.LongTermMemory = string(b)
}

// storeMemory writes the conversation summary facts. Best effort.
func (e *Engine) storeMemory(ctx context.Context, st *model.ConversationState) {
	if e.deps.Memory == nil {
		return
	}
	mctx, cancel := e.collaboratorCtx(ctx)
	defer cancel()

	for _, f := range memory.Summarize(st, e.now()) {
		if err := e.deps.Memory.Remember(mctx, f.UserID, f.Content, f.Category); err != nil {
			log.Warn().Err(err).Str("userId", st.UserID).Msg("memory store failed")
		}
	}
}

// newBookingRef returns a CA- reference with six uppercase hex chars.
func newBookingRef() string {
	u := uuid.New()
	return "CA-" + upperHex(u[:3])
}

// newBookingID returns a BK- id with eight uppercase hex chars.
func newBookingID() string {
	u := uuid.New()
	return "BK-" + upperHex(u[:4])
}

func upperHex(b []byte) string {
	s := hex.EncodeToString(b)
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'f' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
