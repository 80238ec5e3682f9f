package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/vainnor/pomobot/logfields"
	"github.com/vainnor/pomobot/types"
)

type handlers struct {
	svc       Service
	collector Collector
	logger    *slog.Logger
}

func (h *handlers) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

func (h *handlers) getCollectorStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collector.GetStats())
}

func (h *handlers) getTimeSpent(w http.ResponseWriter, r *http.Request) {
	id := types.ParticipantID(mux.Vars(r)["id"])

	spent, err := h.svc.TimeSpent(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !spent.Found {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "No data found"})
		return
	}
	writeJSON(w, http.StatusOK, spent)
}

func (h *handlers) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	totals, err := h.svc.Leaderboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := LeaderboardResponse{Items: make([]LeaderboardEntry, 0, len(totals))}
	for i, t := range totals {
		resp.Items = append(resp.Items, LeaderboardEntry{
			Rank:          i + 1,
			ParticipantID: t.ParticipantID,
			TotalSeconds:  t.TotalSeconds,
			TotalMinutes:  t.Minutes(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) putBinding(w http.ResponseWriter, r *http.Request) {
	var req BindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	channel := types.ChannelID(strings.TrimSpace(req.ChannelID))

	stopped, err := h.svc.Bind(channel)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BindResponse{ChannelID: channel, StoppedSession: stopped})
}

func (h *handlers) deleteBinding(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unbind(r.Context()); err != nil {
		h.logger.Warn("Unbind failed", logfields.Error(err))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) postSession(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	s, err := h.svc.Start(req.WorkMinutes, req.BreakMinutes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{Session: s.Info()})
}

func (h *handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Stop(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
