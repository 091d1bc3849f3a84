package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/adviceline/concierge/internal/letters"
	"github.com/adviceline/concierge/internal/model"
)

var (
	nameRe     = regexp.MustCompile(`(?:my name is|name:)\s*([A-Z][a-z]+\s+[A-Z][a-z]+)`)
	addressRe  = regexp.MustCompile(`(?:I live at|live at|address:)\s*(.+?(?:[A-Z]{1,2}\d+\s*\d[A-Z]{2}))`)
	waitlistRe = regexp.MustCompile(`(?i)(\d+)\s*years?.*waiting list`)
	rentRiseRe = regexp.MustCompile(`(?i)rents?.*(?:increased|risen).*?(\d+%)`)
)

// generateLetter picks a template from the conversation, fills in what
// the caller has told us, and returns the rendered letter.
func (e *Engine) generateLetter(ctx context.Context, st *model.ConversationState) string {
	userText := strings.Join(st.UserMessages(), " ")
	allLower := strings.ToLower(userText)

	letterType := detectLetterType(allLower)
	fields := map[string]string{}

	if m := nameRe.FindStringSubmatch(userText); m != nil {
		fields["user_name"] = m[1]
	}
	if m := addressRe.FindStringSubmatch(userText); m != nil {
		fields["user_address"] = strings.TrimSpace(m[1])
	}

	switch letterType {
	case letters.TypeMPLetter:
		fillMPLetter(fields, userText, allLower)
	case letters.TypeLandlordComplaint:
		fillLandlordComplaint(fields, allLower)
	}

	rendered, err := letters.Generate(letterType, fields, e.now())
	if err != nil {
		log.Error().Err(err).Str("letterType", letterType).Msg("letter generation failed")
		st.AppendAssistant("I encountered an error generating the letter. Please try again.")
		return nodeEnd
	}
	st.RecordTool(model.ToolGenerateLetter)

	if e.deps.Store != nil {
		lctx, cancel := e.collaboratorCtx(ctx)
		_, err := e.deps.Store.Letters().Create(lctx, &model.Letter{
			UserID:  st.UserID,
			Type:    letterType,
			Content: rendered,
		})
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("letter persist failed")
		}
	}

	st.AppendAssistant(rendered)
	return nodeEnd
}

func detectLetterType(allLower string) string {
	switch {
	case strings.Contains(allLower, " mp ") || strings.Contains(allLower, "my mp") ||
		strings.Contains(allLower, "member of parliament"):
		return letters.TypeMPLetter
	case strings.Contains(allLower, "benefit") || strings.Contains(allLower, "pip") ||
		strings.Contains(allLower, "universal credit"):
		return letters.TypeBenefitAppeal
	case strings.Contains(allLower, "employer") && strings.Contains(allLower, "grievance"):
		return letters.TypeEmployerGrievance
	case strings.Contains(allLower, "debt") || strings.Contains(allLower, "creditor"):
		return letters.TypeDebtNegotiation
	case strings.Contains(allLower, "refund") || strings.Contains(allLower, "faulty"):
		return letters.TypeConsumerComplaint
	default:
		return letters.TypeLandlordComplaint
	}
}

func fillMPLetter(fields map[string]string, userText, allLower string) {
	if strings.Contains(allLower, "housing") {
		fields["subject"] = "Affordable Housing Crisis"
		fields["issue_category"] = "housing"
	} else {
		fields["subject"] = "Local Concern"
		fields["issue_category"] = "local issue"
	}

	var issues []string
	if m := waitlistRe.FindStringSubmatch(userText); m != nil {
		issues = append(issues, fmt.Sprintf("I have been on the council housing waiting list for %s years", m[1]))
	}
	if m := rentRiseRe.FindStringSubmatch(userText); m != nil {
		issues = append(issues, fmt.Sprintf("Private rents have increased by %s in my area", m[1]))
	}
	if len(issues) > 0 {
		fields["issue_description"] = strings.Join(issues, ". ")
	} else {
		fields["issue_description"] = "There is a shortage of affordable housing"
	}
	fields["impact_description"] = "This is causing hardship for local residents who cannot find affordable homes"

	if strings.Contains(allLower, "support") && strings.Contains(allLower, "social housing") {
		fields["requested_action"] = "Support more social housing development in our area"
	} else {
		fields["requested_action"] = "Raise this issue and advocate for solutions"
	}
	fields["background_info"] = "Many constituents are affected by this issue"
}

func fillLandlordComplaint(fields map[string]string, allLower string) {
	switch {
	case strings.Contains(allLower, "heating"):
		fields["issue_type"] = "heating system failure"
		fields["issue_description"] = "The heating system is not working"
		fields["specific_obligations"] = "maintaining the heating system in good working order"
	case strings.Contains(allLower, "damp") || strings.Contains(allLower, "mould"):
		fields["issue_type"] = "damp and mould"
		fields["issue_description"] = "There is damp and mould in the property"
		fields["specific_obligations"] = "keeping the property free from damp"
	default:
		fields["issue_type"] = "repair issue"
		fields["issue_description"] = "There are outstanding repairs needed"
		fields["specific_obligations"] = "maintaining the property in good repair"
	}
	fields["impact_description"] = "This is affecting my ability to live comfortably in the property"
	fields["requested_action"] = "arrange for repairs to be carried out"
}
