package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/issuebot/chat"
	"github.com/teranos/issuebot/history"
	"github.com/teranos/issuebot/render"
	"github.com/teranos/issuebot/version"
)

// httpChannel marks history rows that came from the operator endpoint
const httpChannel = "http"

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// HandleHealth reports liveness and build info
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	info := version.Get()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"version":        info.Version,
		"commit":         info.CommitHash,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"history":        s.history != nil,
	})
}

type resolveRequest struct {
	Text string `json:"text"`
}

type resolveResponse struct {
	RequestID string           `json:"request_id"`
	Payloads  []render.Payload `json:"payloads"`
}

// HandleResolve runs the pipeline on a message text and returns the replies
// it would have posted, in completion order
func (s *Server) HandleResolve(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req resolveRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	var replies chat.Collector
	report := s.pipeline.WithReplier(&replies).Process(r.Context(), chat.Message{
		Text:         req.Text,
		Conversation: chat.Conversation{Channel: httpChannel},
	})

	payloads := replies.Payloads()
	if payloads == nil {
		payloads = []render.Payload{}
	}
	writeJSON(w, http.StatusOK, resolveResponse{RequestID: report.RequestID, Payloads: payloads})
}

type historyResponse struct {
	Recent []history.Entry `json:"recent"`
	Stats  *history.Stats  `json:"stats"`
}

// HandleHistory lists recent resolutions and stats for the last 24 hours
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled (storage.backend = \"none\")")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	recent, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Errorw("Failed to read history", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}
	stats, err := s.history.Stats(r.Context(), time.Now().Add(-24*time.Hour))
	if err != nil {
		s.logger.Errorw("Failed to read history stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}
	if recent == nil {
		recent = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Recent: recent, Stats: stats})
}
