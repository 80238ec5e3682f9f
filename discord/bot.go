package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/vainnor/pomobot/logfields"
	"github.com/vainnor/pomobot/types"
)

const interactionTimeout = 10 * time.Second

// Bot owns the gateway connection and the slash command handlers.
type Bot struct {
	session *discordgo.Session
	guildID string
	modRole string
	logger  *slog.Logger

	ctx      context.Context
	handler  *commandHandler
	commands []*discordgo.ApplicationCommand
	remove   func()
}

type Option func(*Bot)

// WithGuild registers commands for one guild instead of globally.
func WithGuild(id string) Option {
	return func(b *Bot) { b.guildID = id }
}

func WithModRole(name string) Option {
	return func(b *Bot) { b.modRole = name }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) {
		if l != nil {
			b.logger = l
		}
	}
}

// New prepares a gateway session. Nothing connects until Open.
func New(token string, opts ...Option) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMembers
	s.StateEnabled = true

	b := &Bot{session: s, modRole: "mods", logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Directory resolves voice channel members from the gateway cache.
func (b *Bot) Directory() *Directory {
	return NewDirectory(b.session.State)
}

// Notifier posts announcements through the bot account.
func (b *Bot) Notifier() *Notifier {
	return NewNotifier(b.session)
}

// Open connects to the gateway and registers the slash commands.
func (b *Bot) Open(ctx context.Context, svc Service) error {
	b.ctx = ctx
	b.handler = &commandHandler{svc: svc, names: b.resolveName, logger: b.logger}
	b.remove = b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}

	appID := b.session.State.User.ID
	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, commandDefinitions(),
		discordgo.WithContext(ctx))
	if err != nil {
		_ = b.session.Close()
		return fmt.Errorf("register slash commands: %w", err)
	}
	b.commands = registered
	b.logger.Info("Discord bot connected",
		slog.String("user", b.session.State.User.Username),
		logfields.Count(len(registered)))
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	if b.remove != nil {
		b.remove()
	}
	return b.session.Close()
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, interactionTimeout)
	defer cancel()

	req := b.toRequest(i)
	b.logger.Debug("Slash command received",
		logfields.Command(req.Name),
		logfields.Participant(req.UserID))

	out := b.handler.handle(ctx, req)
	data := &discordgo.InteractionResponseData{Content: out.Content}
	if out.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx))
	if err != nil {
		b.logger.Error("Failed to respond to interaction",
			logfields.Command(req.Name), logfields.Error(err))
	}
}

func (b *Bot) toRequest(i *discordgo.InteractionCreate) request {
	data := i.ApplicationCommandData()
	req := request{Name: data.Name}

	switch {
	case i.Member != nil && i.Member.User != nil:
		req.UserID = i.Member.User.ID
		req.DisplayName = displayName(i.Member)
		req.Operator = isOperator(i.Member.Permissions, b.roleNames(i.GuildID, i.Member.Roles), b.modRole)
	case i.User != nil:
		req.UserID = i.User.ID
		req.DisplayName = i.User.Username
	}

	for _, opt := range data.Options {
		switch opt.Name {
		case "channel":
			req.Channel = fmt.Sprint(opt.Value)
		case "work_time":
			req.WorkMinutes = opt.IntValue()
		case "break_time":
			req.BreakMinutes = opt.IntValue()
		}
	}
	return req
}

func (b *Bot) roleNames(guildID string, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		role, err := b.session.State.Role(guildID, id)
		if err != nil {
			continue
		}
		names = append(names, role.Name)
	}
	return names
}

// resolveName prefers the cached guild member, then the REST user lookup,
// then a raw mention.
func (b *Bot) resolveName(ctx context.Context, id types.ParticipantID) string {
	if b.guildID != "" {
		if m, err := b.session.State.Member(b.guildID, string(id)); err == nil {
			return displayName(m)
		}
	}
	u, err := b.session.User(string(id), discordgo.WithContext(ctx))
	if err != nil {
		return types.Participant{ID: id}.Mention()
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
