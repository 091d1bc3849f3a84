package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/adviceline/concierge/internal/api/respond"
	"github.com/adviceline/concierge/internal/api/validate"
	"github.com/adviceline/concierge/internal/model"
	"github.com/adviceline/concierge/internal/stream"
)

// TurnRunner executes one conversation turn against the state.
type TurnRunner interface {
	Run(ctx context.Context, st *model.ConversationState, userMessage string) error
}

// Sessions persists conversation state between turns.
type Sessions interface {
	Load(ctx context.Context, userID, sessionID string) (*model.ConversationState, error)
	Save(ctx context.Context, st *model.ConversationState) error
}

// ConverseRequest is a single turn submission.
type ConverseRequest struct {
	Prompt    string `json:"prompt"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// ConverseHandler streams turn output over NDJSON or a websocket.
type ConverseHandler struct {
	runner   TurnRunner
	sessions Sessions
	upgrader websocket.Upgrader
}

func NewConverseHandler(runner TurnRunner, sessions Sessions) *ConverseHandler {
	return &ConverseHandler{
		runner:   runner,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Converse handles POST /api/converse. The response is one stream event
// per line (NDJSON). Validation failures are plain JSON errors emitted
// before any collaborator is contacted.
func (h *ConverseHandler) Converse(w http.ResponseWriter, r *http.Request) {
	var req ConverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if err := validate.Converse(req.Prompt, req.UserID, req.SessionID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	st, err := h.sessions.Load(r.Context(), req.UserID, req.SessionID)
	if err != nil {
		log.Error().Err(err).Str("sessionId", req.SessionID).Msg("session load failed")
		respond.WriteInternalError(w, "session unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	enc := json.NewEncoder(w)
	sink := func(ev stream.Event) error {
		if err := enc.Encode(ev); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	adapter := stream.Resume(len(st.Messages))
	if err := h.runner.Run(r.Context(), st, req.Prompt); err != nil {
		log.Error().Err(err).Str("sessionId", req.SessionID).Msg("turn failed")
		_ = adapter.StreamError(err, sink)
		return
	}
	if err := h.sessions.Save(r.Context(), st); err != nil {
		log.Warn().Err(err).Str("sessionId", req.SessionID).Msg("session save failed")
	}
	if err := adapter.StreamTurn(st, sink); err != nil {
		log.Warn().Err(err).Str("sessionId", req.SessionID).Msg("stream aborted")
	}
}

// ConverseWS handles GET /api/converse/ws. Each received JSON request
// runs one turn; its events are written back as individual JSON
// messages. The watermark survives across turns on the same socket.
func (h *ConverseHandler) ConverseWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	var adapter *stream.Adapter
	for {
		var req ConverseRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("websocket read ended")
			}
			return
		}
		if err := validate.Converse(req.Prompt, req.UserID, req.SessionID); err != nil {
			if werr := conn.WriteJSON(stream.Event{Type: stream.EventError, Text: err.Error()}); werr != nil {
				return
			}
			continue
		}

		st, err := h.sessions.Load(r.Context(), req.UserID, req.SessionID)
		if err != nil {
			log.Error().Err(err).Str("sessionId", req.SessionID).Msg("session load failed")
			if werr := conn.WriteJSON(stream.Event{Type: stream.EventError, Text: "session unavailable"}); werr != nil {
				return
			}
			continue
		}
		if adapter == nil {
			adapter = stream.Resume(len(st.Messages))
		}

		sink := func(ev stream.Event) error { return conn.WriteJSON(ev) }
		if err := h.runner.Run(r.Context(), st, req.Prompt); err != nil {
			log.Error().Err(err).Str("sessionId", req.SessionID).Msg("turn failed")
			if werr := adapter.StreamError(err, sink); werr != nil {
				return
			}
			continue
		}
		if err := h.sessions.Save(r.Context(), st); err != nil {
			log.Warn().Err(err).Str("sessionId", req.SessionID).Msg("session save failed")
		}
		if err := adapter.StreamTurn(st, sink); err != nil {
			return
		}
	}
}
