package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/vainnor/pomobot/logfields"
	"github.com/vainnor/pomobot/session"
	"github.com/vainnor/pomobot/tracker"
	"github.com/vainnor/pomobot/types"
)

// Service is the operator surface the slash commands drive.
type Service interface {
	Bind(channel types.ChannelID) (bool, error)
	Unbind(ctx context.Context) error
	Start(workMinutes, breakMinutes int) (*session.Session, error)
	Stop() error
	TimeSpent(ctx context.Context, participant types.ParticipantID) (tracker.TimeSpent, error)
	Leaderboard(ctx context.Context) ([]types.PresenceTotal, error)
}

const (
	cmdBind        = "bind"
	cmdStart       = "start"
	cmdStop        = "stop"
	cmdUnbind      = "unbind"
	cmdTime        = "time"
	cmdLeaderboard = "leaderboard"
	cmdHelp        = "pomohelp"
)

var minDuration = 1.0

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdBind,
			Description: "Bind the bot to a specific channel",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "channel",
				Description:  "Voice channel to track",
				Required:     true,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice},
			}},
		},
		{
			Name:        cmdStart,
			Description: "Start a Pomodoro session",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "work_time",
					Description: "Work time in minutes",
					Required:    true,
					MinValue:    &minDuration,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "break_time",
					Description: "Break time in minutes",
					Required:    true,
					MinValue:    &minDuration,
				},
			},
		},
		{Name: cmdStop, Description: "Stop the current Pomodoro session"},
		{Name: cmdUnbind, Description: "Unbind the bot from the current channel and reset the database"},
		{Name: cmdTime, Description: "Check the total time spent by the user in the bound channel"},
		{Name: cmdLeaderboard, Description: "Display the top 10 users by time spent in the bound channel"},
		{Name: cmdHelp, Description: "Display the list of available commands and their usage"},
	}
}

// operatorOnly lists the commands that mutate state.
var operatorOnly = map[string]bool{
	cmdBind:   true,
	cmdStart:  true,
	cmdStop:   true,
	cmdUnbind: true,
}

// request is a slash command invocation reduced to what the handlers need.
type request struct {
	Name         string
	UserID       string
	DisplayName  string
	Operator     bool
	Channel      string
	WorkMinutes  int64
	BreakMinutes int64
}

type reply struct {
	Content   string
	Ephemeral bool
}

// nameFunc resolves a participant id to a display name.
type nameFunc func(ctx context.Context, id types.ParticipantID) string

type commandHandler struct {
	svc    Service
	names  nameFunc
	logger *slog.Logger
}

func (h *commandHandler) handle(ctx context.Context, req request) reply {
	if operatorOnly[req.Name] && !req.Operator {
		return reply{Content: msgNoPermission, Ephemeral: true}
	}

	switch req.Name {
	case cmdBind:
		stopped, err := h.svc.Bind(types.ChannelID(req.Channel))
		if err != nil {
			return h.failure(req, err)
		}
		content := fmt.Sprintf("Bot bound to channel <#%s>.", req.Channel)
		if stopped {
			content += " The running Pomodoro session was stopped."
		}
		return reply{Content: content}
	case cmdStart:
		if _, err := h.svc.Start(int(req.WorkMinutes), int(req.BreakMinutes)); err != nil {
			return h.failure(req, err)
		}
		return reply{Content: "Pomodoro session task created."}
	case cmdStop:
		if err := h.svc.Stop(); err != nil {
			return h.failure(req, err)
		}
		return reply{Content: "Pomodoro session stopped."}
	case cmdUnbind:
		if err := h.svc.Unbind(ctx); err != nil {
			if errors.Is(err, types.ErrNoChannelBound) {
				return reply{Content: "No channel is currently bound."}
			}
			if errors.Is(err, types.ErrStoreUnavailable) {
				h.logger.Error("Unbind failed", logfields.Command(req.Name), logfields.Error(err))
				return reply{Content: "Error resetting the database."}
			}
			return h.failure(req, err)
		}
		return reply{Content: "Bot has been unbound from the channel and the database has been reset."}
	case cmdTime:
		spent, err := h.svc.TimeSpent(ctx, types.ParticipantID(req.UserID))
		if err != nil {
			return h.failure(req, err)
		}
		return reply{Content: formatTimeSpent(req.DisplayName, spent)}
	case cmdLeaderboard:
		totals, err := h.svc.Leaderboard(ctx)
		if err != nil {
			return h.failure(req, err)
		}
		return reply{Content: h.formatLeaderboard(ctx, totals)}
	case cmdHelp:
		return reply{Content: helpText}
	default:
		return reply{Content: "Unknown command.", Ephemeral: true}
	}
}

func (h *commandHandler) failure(req request, err error) reply {
	switch {
	case errors.Is(err, types.ErrNoChannelBound):
		return reply{Content: msgNoChannel}
	case errors.Is(err, types.ErrSessionAlreadyRunning):
		return reply{Content: "A Pomodoro session is already running. Please stop the current session before starting a new one."}
	case errors.Is(err, types.ErrNoSessionRunning):
		return reply{Content: "No Pomodoro session is currently running."}
	case errors.Is(err, types.ErrInvalidDuration):
		return reply{Content: "Work and break times must be positive whole minutes.", Ephemeral: true}
	case errors.Is(err, types.ErrChannelUnresolvable):
		return reply{Content: "Invalid channel. Use `/bind <channel>` to bind a valid voice channel."}
	}
	h.logger.Error("Command failed", logfields.Command(req.Name), logfields.Error(err))
	if errors.Is(err, types.ErrStoreUnavailable) {
		return reply{Content: "Error retrieving data."}
	}
	return reply{Content: "Something went wrong.", Ephemeral: true}
}

const (
	msgNoPermission = "You do not have permission to use this command."
	msgNoChannel    = "No channel is bound. Use `/bind <channel>` to bind a channel first."
)

const helpText = "**Bot Commands:**\n" +
	"`/bind <channel>` - Bind the bot to a voice channel.\n" +
	"`/start <work_time_in_minutes> <break_time_in_minutes>` - Start a Pomodoro session.\n" +
	"`/stop` - Stop the current Pomodoro session.\n" +
	"`/unbind` - Unbind the bot from the current channel and reset the database.\n" +
	"`/time` - Check the total time spent in the bound channel.\n" +
	"`/leaderboard` - Display the top 10 users by time spent in the bound channel.\n"

func formatTimeSpent(name string, spent tracker.TimeSpent) string {
	if !spent.Found {
		return fmt.Sprintf("%s has not spent any time in the bound channel.", name)
	}
	return fmt.Sprintf("%s has spent %.2f minutes in the bound channel.", name, spent.Minutes())
}

func (h *commandHandler) formatLeaderboard(ctx context.Context, totals []types.PresenceTotal) string {
	if len(totals) == 0 {
		return "No data available to display the leaderboard."
	}
	var b strings.Builder
	b.WriteString("🏆 **Top 10 Users by Time Spent in Channel** 🏆\n")
	for i, t := range totals {
		fmt.Fprintf(&b, "%d. %s - %.2f minutes\n", i+1, h.names(ctx, t.ParticipantID), t.Minutes())
	}
	return b.String()
}

// isOperator reports whether a member may run state-changing commands.
func isOperator(permissions int64, roleNames []string, modRole string) bool {
	if permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, name := range roleNames {
		if name == modRole {
			return true
		}
	}
	return false
}
