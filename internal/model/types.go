package model

import "time"

// Role tags a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged utterance in a conversation transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IssueCategory classifies the user's problem. The router sets it once per
// turn; downstream states must not rewrite it except on the crisis and
// booking override paths.
type IssueCategory string

const (
	IssueMentalHealth  IssueCategory = "mental_health"
	IssueDomesticAbuse IssueCategory = "domestic_abuse"
	IssueEviction      IssueCategory = "eviction"
	IssueBenefits      IssueCategory = "benefits"
	IssueEmployment    IssueCategory = "employment"
	IssueDebt          IssueCategory = "debt"
	IssueHousing       IssueCategory = "housing"
	IssueConsumer      IssueCategory = "consumer"
	IssueImmigration   IssueCategory = "immigration"
	IssueLocalServices IssueCategory = "local_services"
	IssueCrisis        IssueCategory = "crisis"
	IssueCaseDetails   IssueCategory = "case_details"
	IssueLetter        IssueCategory = "generate_letter"
	IssueBookingConf   IssueCategory = "booking_confirmation"
	IssueMemoryRecall  IssueCategory = "memory_recall"
	IssueFetchNotes    IssueCategory = "fetch_notes"
	IssueGeneral       IssueCategory = "general"
)

// UrgencyLevel is the coarse routing tier. It is independent of the 1-10
// numeric urgency score; the two must not be conflated.
type UrgencyLevel string

const (
	UrgencyCrisis   UrgencyLevel = "CRISIS"
	UrgencyUrgent   UrgencyLevel = "URGENT"
	UrgencyStandard UrgencyLevel = "STANDARD"
	UrgencyGeneral  UrgencyLevel = "GENERAL"
)

// ToolName identifies a side-effecting operation a workflow node may invoke.
// The set is closed: dispatch is over these constants and nothing else, so an
// unknown name is a typed error rather than a silent string fallback.
type ToolName string

const (
	ToolQueryNationalKB ToolName = "query_national_kb"
	ToolQueryLocalKB    ToolName = "query_local_kb"
	ToolFindServices    ToolName = "find_local_services"
	ToolGenerateLetter  ToolName = "generate_letter"
	ToolLogCase         ToolName = "classify_and_route_case"
	ToolGetSlots        ToolName = "get_booking_slots"
	ToolBookAppointment ToolName = "book_appointment"
	ToolCreateNote      ToolName = "create_note"
	ToolGetNotes        ToolName = "get_notes"
	ToolCalcBenefits    ToolName = "calculate_benefits"
	ToolAddDeadline     ToolName = "add_deadline"
)

// KnownTool reports whether name is a member of the closed tool set.
func KnownTool(name ToolName) bool {
	switch name {
	case ToolQueryNationalKB, ToolQueryLocalKB, ToolFindServices, ToolGenerateLetter,
		ToolLogCase, ToolGetSlots, ToolBookAppointment, ToolCreateNote, ToolGetNotes,
		ToolCalcBenefits, ToolAddDeadline:
		return true
	}
	return false
}

// Slot is a bookable half-hour callback window. SlotID is the natural key
// (YYYYMMDD_HHMM); DateTime always falls Mon-Fri between 09:00 and 16:30.
type Slot struct {
	SlotID   string    `json:"slotId"`
	DateTime time.Time `json:"datetime"`
	Display  string    `json:"display"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
}

// BookingConfirmation is the record a confirmed slot leaves on the
// conversation state. Once created it is never mutated; rescheduling would
// create a new reference.
type BookingConfirmation struct {
	Reference string `json:"reference"`
	Slot      Slot   `json:"slot"`
	Phone     string `json:"phone"`
}

// Details carries auxiliary fields accumulated mid-conversation. Fields are
// filled incrementally and never cleared within a session.
type Details struct {
	SelectedSlotNum int                  `json:"selectedSlotNum,omitempty"`
	Phone           string               `json:"phone,omitempty"`
	BookingSlots    []Slot               `json:"bookingSlots,omitempty"`
	CaseNotes       string               `json:"caseNotes,omitempty"`
	Booking         *BookingConfirmation `json:"booking,omitempty"`
}

// ConversationState is the mutable per-session state carried across turns.
// A single turn is processed by one sequential execution; concurrent sessions
// never share a ConversationState value.
type ConversationState struct {
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`

	IssueCategory IssueCategory `json:"issueCategory,omitempty"`
	UrgencyLevel  UrgencyLevel  `json:"urgencyLevel,omitempty"`
	Details       Details       `json:"details"`

	// NextAction is the routing directive computed by the current node and
	// consumed by the transition function immediately after.
	NextAction string `json:"nextAction,omitempty"`

	// CaseLogged flips false->true at most once per session; triage is a
	// no-op when it is already set.
	CaseLogged bool `json:"caseLogged"`

	// LongTermMemory caches the memory blob retrieved at most once per turn.
	LongTermMemory string `json:"longTermMemory,omitempty"`

	// ToolsUsed records tools invoked this turn, in invocation order.
	// Duplicates are kept here; the streaming adapter deduplicates.
	ToolsUsed []ToolName `json:"toolsUsed,omitempty"`
}

// AppendUser appends a new user turn to the transcript.
func (s *ConversationState) AppendUser(content string) {
	s.Messages = append(s.Messages, Message{Role: RoleUser, Content: content})
}

// AppendAssistant appends a new assistant turn to the transcript.
func (s *ConversationState) AppendAssistant(content string) {
	s.Messages = append(s.Messages, Message{Role: RoleAssistant, Content: content})
}

// AppendToLatest extends the content of the most recent message in place.
// Several nodes deliberately rewrite the prior entry rather than appending a
// new turn (tool menus, triage confirmations); this is the single supported
// way to do that.
func (s *ConversationState) AppendToLatest(extra string) {
	if len(s.Messages) == 0 {
		s.AppendAssistant(extra)
		return
	}
	s.Messages[len(s.Messages)-1].Content += extra
}

// LastUserMessage returns the content of the newest user turn, or "".
func (s *ConversationState) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// LastAssistantMessage returns the content of the newest assistant turn, or "".
func (s *ConversationState) LastAssistantMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// UserMessages returns every user utterance in transcript order.
func (s *ConversationState) UserMessages() []string {
	var out []string
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}

// RecordTool appends a tool invocation for this turn.
func (s *ConversationState) RecordTool(name ToolName) {
	s.ToolsUsed = append(s.ToolsUsed, name)
}

// Booking is the persisted record of a confirmed callback appointment.
// Records are immutable after creation.
type Booking struct {
	BookingID       string        `json:"bookingId"`
	SlotID          string        `json:"slotId"`
	UserID          string        `json:"userId"`
	ContactPhone    string        `json:"contactPhone"`
	IssueCategory   IssueCategory `json:"issueCategory"`
	UrgencyLevel    UrgencyLevel  `json:"urgencyLevel"`
	CaseSummary     string        `json:"caseSummary"`
	AppointmentTime time.Time     `json:"appointmentTime"`
	Status          string        `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// CaseTicket is a persisted case requiring potential human follow-up.
// Priority is derived from the tier: CRISIS=1 (highest) .. GENERAL=4.
type CaseTicket struct {
	CaseID                string        `json:"caseId"`
	UserID                string        `json:"userId"`
	SessionID             string        `json:"sessionId"`
	UrgencyLevel          UrgencyLevel  `json:"urgencyLevel"`
	Priority              int           `json:"priority"`
	IssueCategory         IssueCategory `json:"issueCategory"`
	Summary               string        `json:"summary"`
	Status                string        `json:"status"`
	CreatedAt             time.Time     `json:"createdAt"`
	ScheduledCallbackTime *time.Time    `json:"scheduledCallbackTime,omitempty"`
}

// Note is a persisted case note.
type Note struct {
	NoteID         string        `json:"noteId"`
	UserID         string        `json:"userId"`
	Content        string        `json:"content"`
	Category       IssueCategory `json:"category"`
	ActionRequired bool          `json:"actionRequired"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// Deadline is a tracked date the user must act by.
type Deadline struct {
	DeadlineID   string        `json:"deadlineId"`
	UserID       string        `json:"userId"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	DueDate      time.Time     `json:"dueDate"`
	Category     IssueCategory `json:"category"`
	Priority     string        `json:"priority"`
	Completed    bool          `json:"completed"`
	ReminderSent bool          `json:"reminderSent"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Letter is a persisted rendered letter.
type Letter struct {
	LetterID  string    `json:"letterId"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// BenefitEstimate is a persisted entitlement calculation.
type BenefitEstimate struct {
	EstimateID        string    `json:"estimateId"`
	UserID            string    `json:"userId"`
	UniversalCredit   float64   `json:"universalCredit"`
	HousingSupport    float64   `json:"housingSupport"`
	CouncilTaxSupport float64   `json:"councilTaxSupport"`
	PIP               float64   `json:"pip"`
	TotalMonthly      float64   `json:"totalMonthly"`
	CreatedAt         time.Time `json:"createdAt"`
}

// KBResult is a ranked snippet returned by knowledge-base retrieval.
type KBResult struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
}
