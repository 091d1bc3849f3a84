package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adviceline/concierge/internal/model"
)

func newPostcodeServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/postcodes/SW1A1AA":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": 200,
				"result": map[string]interface{}{
					"postcode":       "SW1A 1AA",
					"region":         "London",
					"admin_district": "Westminster",
					"latitude":       51.501,
					"longitude":      -0.141,
				},
			})
		case "/postcodes/M11AE":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": 200,
				"result": map[string]interface{}{
					"postcode":       "M1 1AE",
					"region":         "North West",
					"admin_district": "Manchester",
				},
			})
		case "/postcodes/ZZ99ZZ":
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": 404, "error": "Postcode not found"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupNormalizesPostcode(t *testing.T) {
	srv := newPostcodeServer(t)
	l := NewLocator(srv.URL, time.Second)

	loc, err := l.Lookup(context.Background(), "  sw1a 1aa ")
	require.NoError(t, err)
	assert.Equal(t, "SW1A 1AA", loc.Postcode)
	assert.Equal(t, "London", loc.Region)
	assert.Equal(t, "Westminster", loc.AdminDistrict)
}

func TestLookupInvalidPostcode(t *testing.T) {
	srv := newPostcodeServer(t)
	l := NewLocator(srv.URL, time.Second)

	_, err := l.Lookup(context.Background(), "ZZ99 ZZ")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = l.Lookup(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestFindLondonReturnsTwoBureaus(t *testing.T) {
	srv := newPostcodeServer(t)
	l := NewLocator(srv.URL, time.Second)

	res, err := l.Find(context.Background(), "SW1A 1AA", ServiceCitizensAdvice)
	require.NoError(t, err)
	require.Len(t, res.Bureaus, 2)
	assert.Equal(t, "Citizens Advice Westminster", res.Bureaus[0].Name)
	assert.Empty(t, res.Support)
}

func TestFindManchesterBureau(t *testing.T) {
	srv := newPostcodeServer(t)
	l := NewLocator(srv.URL, time.Second)

	res, err := l.Find(context.Background(), "M1 1AE", "")
	require.NoError(t, err)
	require.Len(t, res.Bureaus, 1)
	assert.Equal(t, "Citizens Advice Manchester", res.Bureaus[0].Name)
}

func TestFindAllIncludesSupportServices(t *testing.T) {
	srv := newPostcodeServer(t)
	l := NewLocator(srv.URL, time.Second)

	res, err := l.Find(context.Background(), "SW1A 1AA", ServiceAll)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Bureaus)
	require.Len(t, res.Support, 4)
}

func TestFindSingleSupportService(t *testing.T) {
	srv := newPostcodeServer(t)
	l := NewLocator(srv.URL, time.Second)

	res, err := l.Find(context.Background(), "SW1A 1AA", ServiceDebtAdvice)
	require.NoError(t, err)
	assert.Empty(t, res.Bureaus)
	require.Len(t, res.Support, 1)
	assert.Equal(t, "StepChange Debt Charity", res.Support[0].Name)
}

func TestFindUnknownServiceType(t *testing.T) {
	srv := newPostcodeServer(t)
	l := NewLocator(srv.URL, time.Second)

	_, err := l.Find(context.Background(), "SW1A 1AA", "car_repair")
	var choiceErr *model.InvalidChoiceError
	require.ErrorAs(t, err, &choiceErr)
	assert.Contains(t, choiceErr.Choices, ServiceHousing)
}

func TestNearestBureausFallback(t *testing.T) {
	got := nearestBureaus("South East", "Brighton and Hove")
	require.Len(t, got, 1)
	assert.Equal(t, "Citizens Advice (National)", got[0].Name)
}
