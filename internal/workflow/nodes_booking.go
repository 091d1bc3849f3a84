package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/adviceline/concierge/internal/model"
	"github.com/adviceline/concierge/internal/slots"
)

const noSlotsMessage = "No available slots found. Please call us directly at **0800 144 8848** (Monday-Friday, 9am-5pm)."

const displayCap = 6

// booking offers a numbered menu of free callback slots. When the caller
// picked a slot from a menu shown earlier in the session, the booking is
// confirmed inline and the turn continues into case-file collection.
func (e *Engine) booking(ctx context.Context, st *model.ConversationState) string {
	if st.Details.SelectedSlotNum > 0 && st.Details.Phone != "" && len(st.Details.BookingSlots) > 0 {
		stored := st.Details.BookingSlots
		idx := st.Details.SelectedSlotNum - 1
		if idx >= 0 && idx < len(stored) {
			chosen := stored[idx]
			reference := newBookingRef()
			e.persistBooking(ctx, st, chosen)
			st.Details.Booking = &model.BookingConfirmation{
				Reference: reference,
				Slot:      chosen,
				Phone:     st.Details.Phone,
			}

			confirmation := fmt.Sprintf(`✅ **Appointment Confirmed!**

📋 **Reference:** %s
📅 **Date & Time:** %s
📞 **We'll call:** %s

---

**To help our advisor prepare for your call, please share any details about your situation:**

- What's the main issue you need help with?
- Are there any deadlines or urgent dates?
- Do you have any documents or letters related to this?

*Your answers will be added to your case file so the advisor can help you more effectively.*

Just type your details below, or say "that's all" if you'd prefer to discuss everything on the call.`,
				reference, chosen.Display, displayPhone(st.Details.Phone))
			st.AppendAssistant(confirmation)
			return nodeCollectCaseDetails
		}
	}

	window := slots.WindowForUrgency(st.UrgencyLevel, e.opts.UrgentWindowDays, e.opts.SlotWindowDays)
	generated := slots.Generate(e.now(), window, slots.Options{})

	st.RecordTool(model.ToolGetSlots)
	var av slots.Availability
	if e.deps.Store != nil {
		av = e.deps.Store.Bookings()
	}
	sctx, cancel := e.collaboratorCtx(ctx)
	free := slots.Available(sctx, generated, av)
	cancel()

	free = slots.Cap(free, displayCap)
	if len(free) == 0 {
		st.AppendAssistant(noSlotsMessage)
		return nodeEnd
	}
	st.Details.BookingSlots = free

	var b strings.Builder
	b.WriteString("**📅 I can book a callback for you. Here are available times:**\n\n")
	for i, s := range free {
		b.WriteString(fmt.Sprintf("**%d.** %s\n", i+1, s.Display))
	}
	b.WriteString("\n**To book:** Just reply with the number (e.g., '1') and your phone number.\n")
	b.WriteString("\nExample: *'1, my number is 07700 900123'*")
	st.AppendAssistant(b.String())
	return nodeEnd
}

// bookingConfirm books the slot chosen from the menu and invites the
// caller to build their case file. The menu shown last turn is preferred;
// if the session lost it, the canonical window is regenerated so the
// numbering still lines up.
func (e *Engine) bookingConfirm(ctx context.Context, st *model.ConversationState) string {
	available := st.Details.BookingSlots
	if len(available) == 0 {
		available = slots.Cap(slots.Generate(e.now(), e.opts.SlotWindowDays, slots.Options{}), displayCap)
	}
	if len(available) == 0 {
		st.AppendAssistant(noSlotsMessage)
		return nodeEnd
	}

	idx := st.Details.SelectedSlotNum - 1
	if idx < 0 || idx >= len(available) {
		idx = 0
	}
	chosen := available[idx]

	reference := newBookingRef()
	e.persistBooking(ctx, st, chosen)
	st.Details.Booking = &model.BookingConfirmation{
		Reference: reference,
		Slot:      chosen,
		Phone:     st.Details.Phone,
	}

	msg := fmt.Sprintf(`✅ **Appointment Confirmed!**

📋 **Reference:** %s
📅 **Date & Time:** %s
📞 **We'll call:** %s

---

📁 **Building Your Case File**

An advisor will review your case file ahead of this call. Please share any relevant information to help them prepare:

- What's the main issue you need help with?
- Any key dates, deadlines, or reference numbers?
- Documents you have (bills, letters, notices)?

Just type your details below and I'll add them to your case file. When you're done, say **"that's all"** and I'll show you a summary.`,
		reference, chosen.Display, displayPhone(st.Details.Phone))
	st.AppendAssistant(msg)
	return nodeEnd
}

func (e *Engine) persistBooking(ctx context.Context, st *model.ConversationState, chosen model.Slot) {
	if e.deps.Store == nil {
		return
	}
	bctx, cancel := e.collaboratorCtx(ctx)
	defer cancel()
	st.RecordTool(model.ToolBookAppointment)
	_, err := e.deps.Store.Bookings().Create(bctx, &model.Booking{
		BookingID:       newBookingID(),
		SlotID:          chosen.SlotID,
		UserID:          st.UserID,
		ContactPhone:    st.Details.Phone,
		IssueCategory:   st.IssueCategory,
		UrgencyLevel:    st.UrgencyLevel,
		CaseSummary:     truncate(strings.Join(st.UserMessages(), " "), 200),
		AppointmentTime: chosen.DateTime,
		Status:          "confirmed",
	})
	if err != nil {
		log.Warn().Err(err).Str("slotId", chosen.SlotID).Msg("booking persist failed")
	}
}

var caseClosers = []string{"that's all", "thats all", "no more", "done"}

// collectCaseDetails appends the caller's extra context to the case file,
// files the note for the advisor, and shows the summary.
func (e *Engine) collectCaseDetails(ctx context.Context, st *model.ConversationState) string {
	booking := st.Details.Booking
	if booking == nil {
		// Session lost the confirmation; rebuild a display from the
		// canonical window so the summary still reads sensibly.
		regenerated := slots.Generate(e.now(), e.opts.SlotWindowDays, slots.Options{})
		slotDisplay := "your scheduled time"
		if n := st.Details.SelectedSlotNum; n >= 1 && n <= len(regenerated) {
			slotDisplay = regenerated[n-1].Display
		}
		phone := st.Details.Phone
		if phone == "" {
			phone = "on file"
		}
		booking = &model.BookingConfirmation{
			Reference: newBookingRef(),
			Slot:      model.Slot{Display: slotDisplay},
			Phone:     phone,
		}
		st.Details.Booking = booking
	}

	last := st.LastUserMessage()
	lower := strings.ToLower(last)

	closed := false
	for _, c := range caseClosers {
		if strings.Contains(lower, c) {
			closed = true
			break
		}
	}

	slotDisplay := booking.Slot.Display
	if slotDisplay == "" {
		slotDisplay = "Scheduled"
	}

	var response string
	caseNotes := st.Details.CaseNotes
	if closed {
		if caseNotes == "" {
			caseNotes = "No additional details provided"
		}
		response = fmt.Sprintf(`📁 **Case File Complete**

---

**📋 CASE FILE SUMMARY**

**Appointment:** %s
**Reference:** %s
**Callback Number:** %s

**Case Notes:** %s

---

✅ Your case file has been saved. The advisor will review this before your call.

**Need to reschedule?** Quote reference: %s

We look forward to speaking with you!`,
			slotDisplay, booking.Reference, displayPhone(booking.Phone), caseNotes, booking.Reference)
	} else {
		caseNotes = last
		st.Details.CaseNotes = caseNotes

		users := st.UserMessages()
		start := len(users) - 3
		if start < 0 {
			start = 0
		}
		conversationContext := truncate(strings.Join(users[start:], " | "), 500)

		response = fmt.Sprintf(`📁 **Case File Complete**

---

**📋 CASE FILE SUMMARY**

**Appointment:** %s
**Reference:** %s
**Callback Number:** %s

**Case Notes:**
%s

**Conversation Context:**
%s

---

✅ Your case file has been saved and will be reviewed by the advisor before your call.

**Need to reschedule?** Quote reference: %s

We look forward to speaking with you!`,
			slotDisplay, booking.Reference, displayPhone(booking.Phone), caseNotes, conversationContext, booking.Reference)
	}
	st.AppendAssistant(response)

	if e.deps.Store != nil {
		nctx, cancel := e.collaboratorCtx(ctx)
		st.RecordTool(model.ToolCreateNote)
		_, err := e.deps.Store.Notes().Create(nctx, &model.Note{
			UserID: st.UserID,
			Content: fmt.Sprintf("Booking: %s\nAppointment: %s\nPhone: %s\n\nCase Details:\n%s",
				booking.Reference, slotDisplay, displayPhone(booking.Phone), caseNotes),
			Category:       st.IssueCategory,
			ActionRequired: true,
		})
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("case file note failed")
		}
	}

	e.storeMemory(ctx, st)
	return nodeEnd
}

// displayPhone formats an 11-digit UK mobile as "07700 900123".
func displayPhone(phone string) string {
	if phone == "" {
		return "On file"
	}
	digits := strings.ReplaceAll(phone, " ", "")
	if len(digits) == 11 && strings.HasPrefix(digits, "07") {
		return digits[:5] + " " + digits[5:]
	}
	return phone
}
