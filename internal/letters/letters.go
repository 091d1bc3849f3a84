// Package letters renders formal letters for common advice scenarios.
// Rendering is deterministic for a fixed clock: the same type and fields
// always produce the same text.
package letters

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/adviceline/concierge/internal/model"
)

// Letter types.
const (
	TypeBenefitAppeal     = "benefit_appeal"
	TypeLandlordComplaint = "landlord_complaint"
	TypeDebtNegotiation   = "debt_negotiation"
	TypeEmployerGrievance = "employer_grievance"
	TypeConsumerComplaint = "consumer_complaint"
	TypeMPLetter          = "mp_letter"
)

// Types lists the supported letter types in stable order.
func Types() []string {
	out := make([]string, 0, len(templates))
	for name := range templates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// MissingFieldError reports a template field with no value, naming the
// field so the caller can ask for it.
type MissingFieldError struct {
	LetterType string
	Field      string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("letter %s: missing field %q", e.LetterType, e.Field)
}

// Generate renders a letter of the given type. Caller-supplied fields
// override the bracketed placeholders; absent optional fields render as
// placeholders rather than failing, so a partially filled letter is
// still usable as a draft.
func Generate(letterType string, fields map[string]string, now time.Time) (string, error) {
	tpl, ok := templates[letterType]
	if !ok {
		return "", &model.InvalidChoiceError{Field: "letter_type", Value: letterType, Choices: Types()}
	}

	vars := make(map[string]string, len(defaults)+len(fields)+1)
	for k, v := range defaults {
		vars[k] = v
	}
	vars["date"] = now.Format("02 January 2006")
	for k, v := range fields {
		if v != "" {
			vars[k] = v
		}
	}

	var b strings.Builder
	if err := tpl.Execute(&b, vars); err != nil {
		if field, ok := missingKey(err); ok {
			return "", &MissingFieldError{LetterType: letterType, Field: field}
		}
		return "", fmt.Errorf("render letter %s: %w", letterType, err)
	}
	return strings.TrimLeft(b.String(), "\n"), nil
}

// missingKey extracts the map key from a missingkey=error failure.
func missingKey(err error) (string, bool) {
	msg := err.Error()
	const marker = `map has no entry for key "`
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}
	rest := msg[i+len(marker):]
	if j := strings.Index(rest, `"`); j >= 0 {
		return rest[:j], true
	}
	return "", false
}

func mustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Option("missingkey=error").Parse(text))
}

var templates = map[string]*template.Template{
	TypeBenefitAppeal: mustTemplate(TypeBenefitAppeal, `
{{.date}}

{{.user_name}}
{{.user_address}}

Department for Work and Pensions
Benefit Appeals Team

Dear Sir/Madam,

RE: Appeal Against {{.benefit_type}} Decision - Reference: {{.reference_number}}

I am writing to formally appeal the decision made on {{.decision_date}} regarding my {{.benefit_type}} claim.

GROUNDS FOR APPEAL:
{{.appeal_grounds}}

SUPPORTING INFORMATION:
{{.supporting_info}}

I believe this decision is incorrect because:
{{.reasons}}

I request that this decision be reconsidered. I am willing to provide any additional information or evidence required to support my appeal.

Please acknowledge receipt of this appeal and inform me of the next steps in the process.

Yours faithfully,

{{.user_name}}
{{.contact_phone}}
{{.contact_email}}
`),

	TypeLandlordComplaint: mustTemplate(TypeLandlordComplaint, `
{{.date}}

{{.user_name}}
{{.user_address}}

{{.landlord_name}}
{{.landlord_address}}

Dear {{.landlord_name}},

RE: Formal Complaint - {{.property_address}}

I am writing to formally complain about {{.issue_type}} at the above property.

ISSUE DETAILS:
{{.issue_description}}

DATE ISSUE FIRST REPORTED: {{.first_reported_date}}

IMPACT ON TENANT:
{{.impact_description}}

LEGAL OBLIGATIONS:
Under the Landlord and Tenant Act 1985, you are legally required to keep the property in good repair. This includes {{.specific_obligations}}.

ACTION REQUIRED:
I request that you {{.requested_action}} within 14 days of receiving this letter.

If this matter is not resolved within a reasonable timeframe, I will have no choice but to:
- Contact the local council's environmental health department
- Seek advice from Citizens Advice
- Consider legal action for breach of tenancy agreement

I look forward to your prompt response.

Yours sincerely,

{{.user_name}}
{{.contact_phone}}
{{.contact_email}}
`),

	TypeDebtNegotiation: mustTemplate(TypeDebtNegotiation, `
{{.date}}

{{.user_name}}
{{.user_address}}

{{.creditor_name}}
{{.creditor_address}}

Account Reference: {{.account_reference}}

Dear Sir/Madam,

RE: Request for Payment Arrangement

I am writing regarding the above account. I am currently experiencing financial difficulties due to {{.reason_for_hardship}}.

CURRENT FINANCIAL SITUATION:
Monthly Income: £{{.monthly_income}}
Essential Expenses: £{{.monthly_expenses}}
Available for Debt Repayment: £{{.available_amount}}

I am committed to repaying this debt and would like to propose a payment arrangement of £{{.proposed_payment}} per month.

This offer is based on my current financial circumstances and represents a fair and affordable payment plan. I have sought advice from Citizens Advice to ensure this is sustainable.

SUPPORTING EVIDENCE:
I can provide the following documentation to support this request:
{{.supporting_documents}}

I would appreciate your consideration of this proposal. Please confirm in writing if this arrangement is acceptable.

If you require any further information, please do not hesitate to contact me.

Yours faithfully,

{{.user_name}}
{{.contact_phone}}
{{.contact_email}}
`),

	TypeEmployerGrievance: mustTemplate(TypeEmployerGrievance, `
{{.date}}

{{.user_name}}
{{.user_address}}

{{.employer_name}}
{{.employer_address}}

Dear {{.manager_name}},

RE: Formal Grievance - {{.grievance_type}}

I am writing to raise a formal grievance under the company's grievance procedure.

NATURE OF GRIEVANCE:
{{.grievance_description}}

DATE(S) OF INCIDENT(S):
{{.incident_dates}}

PARTIES INVOLVED:
{{.parties_involved}}

IMPACT:
This situation has caused me {{.impact_description}}.

RESOLUTION SOUGHT:
I would like to see the following resolution:
{{.desired_resolution}}

I have attempted to resolve this matter informally by {{.informal_attempts}}, but the issue remains unresolved.

I request a formal grievance meeting to discuss this matter further. I would like to be accompanied by {{.companion_details}} as is my right under employment law.

Please acknowledge receipt of this grievance within 5 working days and arrange a meeting within a reasonable timeframe.

Yours sincerely,

{{.user_name}}
{{.contact_phone}}
{{.contact_email}}
`),

	TypeConsumerComplaint: mustTemplate(TypeConsumerComplaint, `
{{.date}}

{{.user_name}}
{{.user_address}}

{{.company_name}}
{{.company_address}}

Order/Reference Number: {{.order_reference}}

Dear Sir/Madam,

RE: Complaint Regarding {{.product_or_service}}

I am writing to complain about {{.product_or_service}} purchased from your company on {{.purchase_date}}.

ISSUE:
{{.issue_description}}

CONSUMER RIGHTS:
Under the Consumer Rights Act 2015, goods must be:
- Of satisfactory quality
- Fit for purpose
- As described

The {{.product_or_service}} I received does not meet these requirements because {{.specific_failure}}.

RESOLUTION REQUESTED:
I am requesting {{.requested_remedy}} within 14 days of receiving this letter.

EVIDENCE:
I have attached/enclosed:
{{.evidence_list}}

If this matter is not resolved satisfactorily, I will consider:
- Reporting to Trading Standards
- Pursuing a claim through the small claims court
- Leaving reviews on consumer platforms

I look forward to your prompt response.

Yours faithfully,

{{.user_name}}
{{.contact_phone}}
{{.contact_email}}
`),

	TypeMPLetter: mustTemplate(TypeMPLetter, `
{{.date}}

{{.user_name}}
{{.user_address}}

{{.mp_name}}
House of Commons
London
SW1A 0AA

Dear {{.mp_name}},

RE: {{.subject}}

I am writing to you as my Member of Parliament to raise concerns about {{.issue_category}} in our constituency.

THE ISSUE:
{{.issue_description}}

HOW THIS AFFECTS ME/OUR COMMUNITY:
{{.impact_description}}

WHAT I AM ASKING YOU TO DO:
{{.requested_action}}

BACKGROUND:
{{.background_info}}

I would be grateful if you could:
1. Look into this matter
2. Raise it with the relevant minister or department if appropriate
3. Let me know what action you are able to take

I am happy to provide any additional information or meet with you to discuss this further.

Thank you for your time and attention to this matter. I look forward to hearing from you.

Yours sincerely,

{{.user_name}}
{{.contact_phone}}
{{.contact_email}}
`),
}

var defaults = map[string]string{
	"user_name":     "Not provided",
	"user_address":  "Not provided",
	"contact_phone": "Not provided",
	"contact_email": "Not provided",

	"employer_name":         "[Employer Name]",
	"employer_address":      "[Employer Address]",
	"manager_name":          "HR Department",
	"grievance_type":        "[Grievance Type]",
	"grievance_description": "[Description to be added]",
	"incident_dates":        "[Dates to be added]",
	"parties_involved":      "[Parties involved]",
	"desired_resolution":    "[Desired resolution]",
	"informal_attempts":     "[Previous attempts]",
	"companion_details":     "a colleague or trade union representative",

	"benefit_type":     "[Benefit Type]",
	"reference_number": "[Reference Number]",
	"decision_date":    "[Decision Date]",
	"appeal_grounds":   "[Appeal Grounds]",
	"supporting_info":  "[Supporting Information]",
	"reasons":          "[Reasons]",

	"landlord_name":        "[Landlord Name]",
	"landlord_address":     "[Landlord Address]",
	"property_address":     "[Property Address]",
	"issue_type":           "[Issue Type]",
	"issue_description":    "[Issue Description]",
	"first_reported_date":  "[Date First Reported]",
	"specific_obligations": "[Specific Obligations]",

	"creditor_name":        "[Creditor Name]",
	"creditor_address":     "[Creditor Address]",
	"account_reference":    "[Account Reference]",
	"reason_for_hardship":  "[Reason for Hardship]",
	"monthly_income":       "[Amount]",
	"monthly_expenses":     "[Amount]",
	"available_amount":     "[Amount]",
	"proposed_payment":     "[Amount]",
	"supporting_documents": "[List of Documents]",

	"company_name":       "[Company Name]",
	"company_address":    "[Company Address]",
	"order_reference":    "[Order Reference]",
	"product_or_service": "[Product/Service]",
	"purchase_date":      "[Purchase Date]",
	"specific_failure":   "[Specific Failure]",
	"requested_remedy":   "[Requested Remedy]",
	"evidence_list":      "[Evidence List]",

	"mp_name":            "[Your MP's Name]",
	"subject":            "[Subject of Your Concern]",
	"issue_category":     "[Issue Category]",
	"impact_description": "[Impact description]",
	"requested_action":   "[Requested Action]",
	"background_info":    "[Any Background Information]",
}
