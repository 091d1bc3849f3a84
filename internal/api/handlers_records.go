package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/adviceline/concierge/internal/api/respond"
	"github.com/adviceline/concierge/internal/api/validate"
	"github.com/adviceline/concierge/internal/benefits"
	"github.com/adviceline/concierge/internal/deadlines"
	"github.com/adviceline/concierge/internal/model"
	"github.com/adviceline/concierge/internal/services"
	"github.com/adviceline/concierge/internal/store"
)

const defaultListLimit = 50

// RecordsHandler exposes the advisor-facing persistence reads and the
// auxiliary tools (deadlines, benefit estimates, local services).
type RecordsHandler struct {
	store     store.Store
	deadlines *deadlines.Tracker
	benefits  *benefits.Calculator
	locator   *services.Locator
}

func NewRecordsHandler(st store.Store, tr *deadlines.Tracker, calc *benefits.Calculator, loc *services.Locator) *RecordsHandler {
	return &RecordsHandler{store: st, deadlines: tr, benefits: calc, locator: loc}
}

func listLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return defaultListLimit
}

type createNoteRequest struct {
	Content        string              `json:"content"`
	Category       model.IssueCategory `json:"category"`
	ActionRequired bool                `json:"actionRequired"`
}

// CreateNote handles POST /api/users/{userId}/notes, letting advisors
// attach notes outside a conversation turn.
func (h *RecordsHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if err := validate.NonEmpty("content", req.Content); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	note, err := h.store.Notes().Create(r.Context(), &model.Note{
		UserID:         userID,
		Content:        req.Content,
		Category:       req.Category,
		ActionRequired: req.ActionRequired,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, note)
}

func (h *RecordsHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	notes, err := h.store.Notes().ListByUser(r.Context(), userID, listLimit(r))
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"notes": notes})
}

func (h *RecordsHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	bookings, err := h.store.Bookings().ListByUser(r.Context(), userID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}

func (h *RecordsHandler) ListUserCases(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	cases, err := h.store.Cases().ListByUser(r.Context(), userID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"cases": cases})
}

// ListPendingCases returns the advisor work queue, highest priority
// first.
func (h *RecordsHandler) ListPendingCases(w http.ResponseWriter, r *http.Request) {
	cases, err := h.store.Cases().ListPending(r.Context(), listLimit(r))
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"cases": cases})
}

func (h *RecordsHandler) ListLetters(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	letters, err := h.store.Letters().ListByUser(r.Context(), userID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"letters": letters})
}

type createDeadlineRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	DueDate     time.Time           `json:"dueDate"`
	Category    model.IssueCategory `json:"category"`
}

func (h *RecordsHandler) CreateDeadline(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var req createDeadlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if err := validate.Deadline(req.Title, req.DueDate, time.Now()); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	created, err := h.deadlines.Add(r.Context(), &model.Deadline{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Category:    req.Category,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, created)
}

func (h *RecordsHandler) ListDeadlines(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	upcoming, err := h.deadlines.Upcoming(r.Context(), userID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"deadlines": upcoming})
}

type estimateRequest struct {
	UserID string `json:"userId"`
	benefits.Circumstances
}

func (h *RecordsHandler) EstimateBenefits(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if err := validate.ID("userId", req.UserID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	estimate := h.benefits.Calculate(r.Context(), req.UserID, req.Circumstances)
	respond.WriteJSON(w, http.StatusOK, estimate)
}

// FindServices handles GET /api/services?postcode=SW1A1AA&type=debt.
func (h *RecordsHandler) FindServices(w http.ResponseWriter, r *http.Request) {
	postcode := r.URL.Query().Get("postcode")
	if err := validate.NonEmpty("postcode", postcode); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.locator.Find(r.Context(), postcode, r.URL.Query().Get("type"))
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, result)
}
