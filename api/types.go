package api

import (
	"github.com/vainnor/pomobot/session"
	"github.com/vainnor/pomobot/types"
)

type BindRequest struct {
	ChannelID string `json:"channel_id"`
}

type BindResponse struct {
	ChannelID      types.ChannelID `json:"channel_id"`
	StoppedSession bool            `json:"stopped_session"`
}

type StartRequest struct {
	WorkMinutes  int `json:"work_minutes"`
	BreakMinutes int `json:"break_minutes"`
}

type SessionResponse struct {
	Session session.Info `json:"session"`
}

type LeaderboardEntry struct {
	Rank          int                 `json:"rank"`
	ParticipantID types.ParticipantID `json:"participant_id"`
	TotalSeconds  float64             `json:"total_seconds"`
	TotalMinutes  float64             `json:"total_minutes"`
}

type LeaderboardResponse struct {
	Items []LeaderboardEntry `json:"items"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
