// Package services finds nearby advice bureaus and support
// organisations. Postcodes are resolved through postcodes.io; the
// bureau and support directories are static until the national office
// API is available.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/adviceline/concierge/internal/model"
)

const postcodeAPIBase = "https://api.postcodes.io"

// Bureau is a local advice office.
type Bureau struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// SupportService is a national support organisation.
type SupportService struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
	Description string `json:"description"`
}

// Location is the result of a postcode lookup.
type Location struct {
	Postcode      string  `json:"postcode"`
	Region        string  `json:"region"`
	AdminDistrict string  `json:"adminDistrict"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

// ServiceTypes accepted by Find.
const (
	ServiceCitizensAdvice = "citizens_advice"
	ServiceFoodBank       = "food_bank"
	ServiceDebtAdvice     = "debt_advice"
	ServiceLegalAid       = "legal_aid"
	ServiceHousing        = "housing"
	ServiceAll            = "all"
)

var serviceTypeChoices = []string{
	ServiceCitizensAdvice, ServiceFoodBank, ServiceDebtAdvice, ServiceLegalAid, ServiceHousing, ServiceAll,
}

// Result is the directory answer for one lookup.
type Result struct {
	Location Location         `json:"location"`
	Bureaus  []Bureau         `json:"bureaus,omitempty"`
	Support  []SupportService `json:"support,omitempty"`
}

// Locator resolves postcodes and looks up the directories.
type Locator struct {
	client *resty.Client
}

// NewLocator builds a Locator. baseURL overrides the postcodes.io
// endpoint for tests; empty means the public API.
func NewLocator(baseURL string, timeout time.Duration) *Locator {
	if baseURL == "" {
		baseURL = postcodeAPIBase
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Locator{client: resty.New().SetBaseURL(baseURL).SetTimeout(timeout)}
}

type postcodeResp struct {
	Status int `json:"status"`
	Result struct {
		Postcode      string  `json:"postcode"`
		Region        string  `json:"region"`
		AdminDistrict string  `json:"admin_district"`
		Latitude      float64 `json:"latitude"`
		Longitude     float64 `json:"longitude"`
	} `json:"result"`
}

// Lookup validates a postcode and returns its location.
func (l *Locator) Lookup(ctx context.Context, postcode string) (*Location, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(postcode), " ", ""))
	if cleaned == "" {
		return nil, fmt.Errorf("%w: postcode is required", model.ErrValidation)
	}

	var out postcodeResp
	resp, err := l.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/postcodes/" + cleaned)
	if err != nil {
		return nil, fmt.Errorf("postcode lookup: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, fmt.Errorf("%w: invalid postcode %s", model.ErrValidation, cleaned)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("postcode lookup status %d", resp.StatusCode())
	}

	return &Location{
		Postcode:      out.Result.Postcode,
		Region:        out.Result.Region,
		AdminDistrict: out.Result.AdminDistrict,
		Latitude:      out.Result.Latitude,
		Longitude:     out.Result.Longitude,
	}, nil
}

// Find resolves the postcode and assembles the requested directory
// entries.
func (l *Locator) Find(ctx context.Context, postcode, serviceType string) (*Result, error) {
	if serviceType == "" {
		serviceType = ServiceCitizensAdvice
	}
	if !validServiceType(serviceType) {
		return nil, &model.InvalidChoiceError{Field: "service_type", Value: serviceType, Choices: serviceTypeChoices}
	}

	loc, err := l.Lookup(ctx, postcode)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("postcode", loc.Postcode).Str("district", loc.AdminDistrict).Str("serviceType", serviceType).Msg("local services lookup")

	res := &Result{Location: *loc}
	if serviceType == ServiceCitizensAdvice || serviceType == ServiceAll {
		res.Bureaus = nearestBureaus(loc.Region, loc.AdminDistrict)
	}
	switch serviceType {
	case ServiceAll:
		for _, key := range []string{ServiceFoodBank, ServiceDebtAdvice, ServiceLegalAid, ServiceHousing} {
			res.Support = append(res.Support, supportDirectory[key])
		}
	case ServiceFoodBank, ServiceDebtAdvice, ServiceLegalAid, ServiceHousing:
		res.Support = append(res.Support, supportDirectory[serviceType])
	}
	return res, nil
}

func validServiceType(t string) bool {
	for _, c := range serviceTypeChoices {
		if t == c {
			return true
		}
	}
	return false
}

// nearestBureaus matches region and district against the directory.
// London returns the two nearest offices; unmatched areas fall back to
// the national line.
func nearestBureaus(region, district string) []Bureau {
	switch {
	case strings.Contains(region, "London") || strings.Contains(district, "London"):
		return bureauDirectory["London"][:2]
	case strings.Contains(district, "Manchester"):
		return bureauDirectory["Manchester"]
	case strings.Contains(district, "Birmingham"):
		return bureauDirectory["Birmingham"]
	case strings.Contains(region, "Scotland"):
		return bureauDirectory["Scotland"]
	case strings.Contains(region, "Wales"):
		return bureauDirectory["Wales"]
	}
	return []Bureau{{
		Name:    "Citizens Advice (National)",
		Phone:   "0800 144 8848",
		Address: "Contact us for your nearest bureau",
	}}
}

var bureauDirectory = map[string][]Bureau{
	"London": {
		{Name: "Citizens Advice Westminster", Phone: "020 7834 2505", Address: "70 Horseferry Road, London SW1P 2AF"},
		{Name: "Citizens Advice Camden", Phone: "020 7284 6500", Address: "2 Highgate Road, London NW5 1NR"},
		{Name: "Citizens Advice Southwark", Phone: "020 7732 2008", Address: "1 Addington Square, London SE5 7JZ"},
	},
	"Manchester": {
		{Name: "Citizens Advice Manchester", Phone: "0161 226 5000", Address: "St James House, Pendleton Way, Manchester M6 5FX"},
	},
	"Birmingham": {
		{Name: "Citizens Advice Birmingham", Phone: "0121 464 7930", Address: "1 Printing House Street, Birmingham B4 6DF"},
	},
	"Scotland": {
		{Name: "Citizens Advice Scotland", Phone: "0800 028 1456", Address: "Spectrum House, 2 Powderhall Road, Edinburgh EH7 4GB"},
	},
	"Wales": {
		{Name: "Citizens Advice Cymru", Phone: "03444 77 20 20", Address: "Ty Coch, Llanishen, Cardiff CF14 5GH"},
	},
}

var supportDirectory = map[string]SupportService{
	ServiceFoodBank: {
		Name:        "Trussell Trust Food Bank Finder",
		Phone:       "01722 580 180",
		Website:     "https://www.trusselltrust.org/get-help/find-a-foodbank/",
		Description: "Find your nearest food bank",
	},
	ServiceDebtAdvice: {
		Name:        "StepChange Debt Charity",
		Phone:       "0800 138 1111",
		Website:     "https://www.stepchange.org",
		Description: "Free debt advice and solutions",
	},
	ServiceLegalAid: {
		Name:        "Civil Legal Advice",
		Phone:       "0345 345 4345",
		Website:     "https://www.gov.uk/civil-legal-advice",
		Description: "Free legal advice if you're eligible",
	},
	ServiceHousing: {
		Name:        "Shelter Housing Advice",
		Phone:       "0808 800 4444",
		Website:     "https://www.shelter.org.uk",
		Description: "Emergency housing advice and support",
	},
}
