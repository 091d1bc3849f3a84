package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/adviceline/concierge/internal/alert"
	"github.com/adviceline/concierge/internal/model"
	"github.com/adviceline/concierge/internal/urgency"
)

const crisisMessage = `I'm very concerned about your safety and wellbeing. Please contact these services immediately:

🆘 **EMERGENCY**: If you're in immediate danger, call **999**

**Mental Health Crisis:**
- Samaritans: **116 123** (24/7, free)
- Crisis text line: Text **SHOUT** to **85258**

**Domestic Abuse:**
- National Domestic Abuse Helpline: **0808 2000 247** (24/7)

**Homelessness:**
- Shelter Emergency Helpline: **0808 800 4444**

I'm logging your case as urgent so one of our advisors can contact you as soon as possible. In the meantime, please reach out to these services for immediate support.`

// crisisResponse logs the crisis case, sends the emergency signposting,
// raises the alert with the case reference, and moves straight to an
// urgent booking offer.
func (e *Engine) crisisResponse(ctx context.Context, st *model.ConversationState) string {
	var caseID string
	if e.deps.Store != nil && !st.CaseLogged {
		summary := truncate(strings.Join(firstN(st.UserMessages(), 2), " "), 200)
		cctx, cancel := e.collaboratorCtx(ctx)
		st.RecordTool(model.ToolLogCase)
		ticket, err := e.deps.Store.Cases().Create(cctx, &model.CaseTicket{
			UserID:                st.UserID,
			SessionID:             st.SessionID,
			UrgencyLevel:          st.UrgencyLevel,
			Priority:              urgency.Priority(st.UrgencyLevel),
			IssueCategory:         st.IssueCategory,
			Summary:               summary,
			Status:                "PENDING",
			ScheduledCallbackTime: urgency.CallbackTime(st.UrgencyLevel, e.now()),
		})
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("crisis case log failed")
		} else {
			caseID = ticket.CaseID
			st.CaseLogged = true
		}
	}

	if e.deps.Alerts != nil {
		e.deps.Alerts.PublishCrisis(ctx, alert.CrisisAlert{
			CaseID:    caseID,
			UserID:    st.UserID,
			SessionID: st.SessionID,
			Category:  st.IssueCategory,
			Summary:   st.LastUserMessage(),
		})
	}
	st.AppendAssistant(crisisMessage)
	return nodeBooking
}

var actionKeywords = []string{
	"book", "appointment", "callback", "speak to", "write a letter",
	"generate", "create", "find", "nearest", "local", "help me with",
}

var essentialsKeywords = []string{"money", "debt", "bills", "afford", "struggling", "desperate"}

const essentialsCheck = "\n\nAlso, can I quickly check you've got the essentials covered—food, toiletries, and any medication?"

var clarifyingQuestions = map[model.IssueCategory]string{
	model.IssueEviction:   "Can you tell me more about your eviction situation? When did you receive the notice?",
	model.IssueBenefits:   "Which benefit are you asking about? Are you currently receiving any benefits?",
	model.IssueDebt:       "What type of debt are you dealing with? Do you know the total amount owed?" + essentialsCheck,
	model.IssueHousing:    "What's the specific issue with your housing?",
	model.IssueEmployment: "Can you describe the workplace issue? Have you raised this with your employer?",
}

// gatherDetails asks a clarifying question unless the user already gave
// enough context or asked for an action directly.
func (e *Engine) gatherDetails(st *model.ConversationState) string {
	msg := st.LastUserMessage()
	lower := strings.ToLower(msg)

	hasDetail := len(msg) > 50
	wantsAction := false
	for _, kw := range actionKeywords {
		if strings.Contains(lower, kw) {
			wantsAction = true
			break
		}
	}
	if hasDetail || wantsAction {
		return nodeProvideGuidance
	}

	question, ok := clarifyingQuestions[st.IssueCategory]
	if ok {
		needsEssentials := false
		for _, kw := range essentialsKeywords {
			if strings.Contains(lower, kw) {
				needsEssentials = true
				break
			}
		}
		if needsEssentials && !strings.Contains(question, "essentials") {
			question += essentialsCheck
		}
		st.AppendAssistant(question)
	}
	return nodeProvideGuidance
}

var locationKeywords = []string{"near", "local", "birmingham", "london", "manchester", "croydon", "postcode"}

const guidancePromptFmt = `You are a Citizens Advice assistant. The user has a %s issue.
%s
Provide clear, practical guidance:
1. Explain their rights under UK law
2. Outline the steps they should take
3. Mention any deadlines or time limits
4. Suggest what tools/services we can help with (local services, letter generation)
5. Reference any relevant context from previous sessions naturally

Keep it concise and actionable. Use plain English.`

const guidanceFallback = "I want to make sure you get accurate advice on this. Let me connect you with the right support below."

// provideGuidance retrieves knowledge base context and drafts guidance
// for the issue. Every collaborator here is best effort.
func (e *Engine) provideGuidance(ctx context.Context, st *model.ConversationState) string {
	query := st.LastUserMessage()
	var kbContext strings.Builder

	if e.deps.KB != nil {
		kctx, cancel := e.collaboratorCtx(ctx)
		st.RecordTool(model.ToolQueryNationalKB)
		national, err := e.deps.KB.SearchNational(kctx, string(st.IssueCategory)+" "+truncate(query, 100), 3)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("national kb query failed")
		} else if len(national) > 0 {
			kbContext.WriteString("\n\nKNOWLEDGE BASE RESULTS:\n")
			for _, r := range national {
				kbContext.WriteString(r.Content)
				kbContext.WriteString("\n")
			}
		}

		lower := strings.ToLower(query)
		for _, kw := range locationKeywords {
			if strings.Contains(lower, kw) {
				kctx, cancel := e.collaboratorCtx(ctx)
				st.RecordTool(model.ToolQueryLocalKB)
				local, err := e.deps.KB.SearchLocal(kctx, truncate(query, 200), 3)
				cancel()
				if err != nil {
					log.Warn().Err(err).Msg("local kb query failed")
				} else if len(local) > 0 {
					kbContext.WriteString("\nLOCAL INFORMATION:\n")
					for _, r := range local {
						kbContext.WriteString(r.Content)
						kbContext.WriteString("\n")
					}
				}
				break
			}
		}
	}

	e.loadMemory(ctx, st, query)
	memoryContext := ""
	if st.LongTermMemory != "" {
		memoryContext = "\n\nLONG-TERM MEMORY (use for personalization):\n" + st.LongTermMemory
	}

	response := guidanceFallback
	if e.deps.Guide != nil {
		gctx, cancel := e.collaboratorCtx(ctx)
		defer cancel()
		system := fmt.Sprintf(guidancePromptFmt, st.IssueCategory, memoryContext+kbContext.String())
		out, err := e.deps.Guide.Complete(gctx, system, transcript(st))
		if err != nil {
			log.Warn().Err(err).Msg("guidance generation failed")
		} else if out != "" {
			response = out
		}
	}
	st.AppendAssistant(response)
	return nodeOfferTools
}

var bookingIntentWords = []string{"book", "callback", "call me", "speak to", "advisor"}

var toolOffers = map[model.IssueCategory]string{
	model.IssueEviction:      "\n\n**How I can help further:**\n- 📍 Find emergency housing services near you\n- 📝 Generate a letter to your landlord\n- 📞 Book an urgent callback with an advisor",
	model.IssueBenefits:      "\n\n**How I can help further:**\n- 📍 Find local benefits advice services\n- 📝 Generate a benefit appeal letter\n- 📞 Book a callback with an advisor",
	model.IssueDebt:          "\n\n**How I can help further:**\n- 📍 Find debt advice services near you\n- 📝 Generate a debt negotiation letter\n- 📞 Book a callback with an advisor",
	model.IssueHousing:       "\n\n**How I can help further:**\n- 📍 Find local housing support\n- 📝 Generate a complaint letter to your landlord\n- 📞 Book a callback with an advisor",
	model.IssueEmployment:    "\n\n**How I can help further:**\n- 📝 Generate a formal grievance letter\n- 📞 Book a callback with an advisor",
	model.IssueLocalServices: "\n\n**How I can help further:**\n- 📍 Find support services near you\n- 📞 Book a callback with an advisor",
}

const defaultToolOffer = "\n\n**How I can help further:**\n- 📍 Find your nearest Citizens Advice\n- 📞 Book a callback with an advisor"

// offerTools extends the latest assistant message with the category
// menu, then routes to booking when the user asked for one or the case
// is time critical.
func (e *Engine) offerTools(st *model.ConversationState) string {
	offer, ok := toolOffers[st.IssueCategory]
	if !ok {
		offer = defaultToolOffer
	}
	st.AppendToLatest(offer)

	allUser := strings.ToLower(strings.Join(st.UserMessages(), " "))
	for _, w := range bookingIntentWords {
		if strings.Contains(allUser, w) {
			return nodeBooking
		}
	}
	if st.UrgencyLevel == model.UrgencyCrisis || st.UrgencyLevel == model.UrgencyUrgent {
		return nodeBooking
	}
	return nodeTriage
}

// triage logs the case once per session, files a note, and confirms the
// tier to the user.
func (e *Engine) triage(ctx context.Context, st *model.ConversationState) string {
	if st.CaseLogged {
		return nodeEnd
	}

	users := st.UserMessages()
	summary := strings.Join(firstN(users, 2), " ")
	summary = truncate(summary, 200)

	actionRequired := st.UrgencyLevel == model.UrgencyCrisis || st.UrgencyLevel == model.UrgencyUrgent

	if e.deps.Store != nil {
		nctx, cancel := e.collaboratorCtx(ctx)
		st.RecordTool(model.ToolCreateNote)
		_, err := e.deps.Store.Notes().Create(nctx, &model.Note{
			UserID:         st.UserID,
			Content:        fmt.Sprintf("Case: %s (%s)\n\nSummary: %s", st.IssueCategory, st.UrgencyLevel, summary),
			Category:       st.IssueCategory,
			ActionRequired: actionRequired,
		})
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("triage note failed")
		}

		cctx, cancel := e.collaboratorCtx(ctx)
		st.RecordTool(model.ToolLogCase)
		_, err = e.deps.Store.Cases().Create(cctx, &model.CaseTicket{
			UserID:                st.UserID,
			SessionID:             st.SessionID,
			UrgencyLevel:          st.UrgencyLevel,
			Priority:              urgency.Priority(st.UrgencyLevel),
			IssueCategory:         st.IssueCategory,
			Summary:               summary,
			Status:                "PENDING",
			ScheduledCallbackTime: urgency.CallbackTime(st.UrgencyLevel, e.now()),
		})
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("case log failed")
		}
	}
	st.CaseLogged = true

	var confirmation string
	switch st.UrgencyLevel {
	case model.UrgencyCrisis:
		confirmation = "\n\n✅ Your case has been logged as **CRISIS** priority. An advisor will contact you as soon as possible."
	case model.UrgencyUrgent:
		confirmation = "\n\n✅ Your case has been logged as **URGENT**. An advisor will contact you within 24-48 hours."
	default:
		confirmation = "\n\n✅ Your case has been logged. We'll be in touch if you need further support."
	}
	st.AppendToLatest(confirmation)

	e.storeMemory(ctx, st)
	return nodeEnd
}

// memoryRecall answers "do you remember" queries from stored facts.
func (e *Engine) memoryRecall(ctx context.Context, st *model.ConversationState) string {
	e.loadMemory(ctx, st, st.LastUserMessage())

	var response string
	if st.LongTermMemory != "" {
		response = fmt.Sprintf(`Yes, I remember some details from our previous conversations:

%s

How can I help you today? Would you like to continue with any of these topics, or is there something new I can assist with?`, st.LongTermMemory)
	} else {
		response = `I don't have any stored memories from previous conversations with you yet. This could be because:

- This is your first conversation with me
- Previous sessions haven't been saved to your profile yet

But don't worry - as we chat today, I'll remember key details for future sessions. How can I help you today?`
	}
	st.AppendAssistant(response)
	return nodeEnd
}

// fetchNotes lists the caller's saved case notes.
func (e *Engine) fetchNotes(ctx context.Context, st *model.ConversationState) string {
	var response string
	if e.deps.Store == nil {
		response = "I couldn't retrieve your case notes at the moment. Please try again later."
	} else {
		nctx, cancel := e.collaboratorCtx(ctx)
		defer cancel()
		st.RecordTool(model.ToolGetNotes)
		notes, err := e.deps.Store.Notes().ListByUser(nctx, st.UserID, 10)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("userId", st.UserID).Msg("fetch notes failed")
			response = "I couldn't retrieve your case notes at the moment. Please try again later."
		case len(notes) == 0:
			response = `📋 **No case notes found**

I don't have any saved case notes for you yet. Notes are created when:
- You book an appointment
- An advisor logs information about your case
- You provide case details during our conversation

How can I help you today?`
		default:
			var b strings.Builder
			b.WriteString("📋 **Your Case Notes**\n\n")
			for _, n := range notes {
				b.WriteString(fmt.Sprintf("**%s** (%s)\n%s\n\n", n.CreatedAt.Format("2 January 2006"), n.Category, n.Content))
			}
			b.WriteString("---\nIs there anything specific from these notes you'd like to discuss or update?")
			response = b.String()
		}
	}
	st.AppendAssistant(response)
	return nodeEnd
}

// wantsBookingOnly is true for a plain booking request with no
// substantive issue attached; issues are processed before booking.
func wantsBookingOnly(st *model.ConversationState) bool {
	allUser := strings.ToLower(strings.Join(st.UserMessages(), " "))

	bookingKeywords := []string{"book a call", "book an appointment", "book callback", "schedule a call", "arrange a callback"}
	hasBooking := false
	for _, kw := range bookingKeywords {
		if strings.Contains(allUser, kw) {
			hasBooking = true
			break
		}
	}
	if !hasBooking {
		return false
	}

	issueKeywords := []string{"evict", "debt", "benefit", "housing", "landlord", "employer", "redundan", "pip", "universal credit", "homeless", "money"}
	for _, kw := range issueKeywords {
		if strings.Contains(allUser, kw) {
			return false
		}
	}
	return true
}

// truncate clips s to n characters without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// transcript flattens the conversation for prompt context.
func transcript(st *model.ConversationState) string {
	var b strings.Builder
	for _, m := range st.Messages {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
