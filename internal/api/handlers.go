package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-touchnode/internal/event"
	"github.com/nerrad567/gray-logic-touchnode/internal/journal"
	"github.com/nerrad567/gray-logic-touchnode/internal/node"
)

// Per-request bounds.
const (
	healthCheckTimeout = 2 * time.Second
	commandTimeout     = 2 * time.Second
)

// ComponentHealth reports one infrastructure dependency.
type ComponentHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components []ComponentHealth `json:"components,omitempty"`
}

// handleHealth runs every registered health check. Any failure makes the
// response 503 so a supervisor can act on the status code alone.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: s.version}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()

		c := ComponentHealth{Name: name, Status: "ok"}
		if err != nil {
			c.Status = "error"
			c.Error = err.Error()
			resp.Status = "degraded"
		}
		resp.Components = append(resp.Components, c)
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleStatus returns the node's status snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.node.Status())
}

// handleListEvents pages through the event journal, most recent first.
//
// Query parameters: kind, component, since (RFC 3339), limit, offset.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeUnavailable(w, "event journal is disabled")
		return
	}

	q := r.URL.Query()
	filter := journal.Filter{
		Kind:      event.Kind(q.Get("kind")),
		Component: q.Get("component"),
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}
	if since := q.Get("since"); since != "" {
		filter.Since, err = time.Parse(time.RFC3339, since)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing journal events", "error", err)
		writeInternalError(w, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePress touches a button on the panel.
func (s *Server) handlePress(w http.ResponseWriter, r *http.Request) {
	s.handleButton(w, r, "pressed", s.node.Press)
}

// handleRelease lifts a button on the panel.
func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	s.handleButton(w, r, "released", s.node.Release)
}

func (s *Server) handleButton(w http.ResponseWriter, r *http.Request, verb string, act func(int) error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		writeBadRequest(w, "button id must be a non-negative integer")
		return
	}

	if err := act(id); err != nil {
		if errors.Is(err, node.ErrUnknownButton) {
			writeNotFound(w, err.Error())
			return
		}
		s.logger.Warn("button action failed", "button", id, "action", verb, "error", err)
		writeUnavailable(w, err.Error())
		return
	}

	s.logger.Info("button "+verb+" via API", "button", id, "by", subject(r))
	writeJSON(w, http.StatusOK, map[string]any{"button": id, "state": verb})
}

// handleSubscribe queues a subscribe request for the actuator worker.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	s.handleSubscription(w, r, "subscribe", s.node.Subscribe)
}

// handleUnsubscribe queues an unsubscribe request for the actuator worker.
func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	s.handleSubscription(w, r, "unsubscribe", s.node.Unsubscribe)
}

// handleSubscription waits a bounded time for the actuator's mailbox slot.
// 202 means the request is queued, not that the broker has acknowledged it.
func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request, action string, queue func(context.Context) error) {
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	if err := queue(ctx); err != nil {
		s.logger.Warn("subscription request not queued", "action", action, "error", err)
		writeUnavailable(w, "actuator busy, try again")
		return
	}

	s.logger.Info("subscription change queued via API", "action", action, "by", subject(r))
	writeJSON(w, http.StatusAccepted, map[string]string{"action": action, "status": "queued"})
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
