// Package discord connects the session engine to a Discord guild: voice
// channel membership, channel announcements and slash commands.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/vainnor/pomobot/types"
)

// stateReader is the subset of *discordgo.State used to resolve members.
type stateReader interface {
	RLock()
	RUnlock()
	Channel(channelID string) (*discordgo.Channel, error)
	Guild(guildID string) (*discordgo.Guild, error)
	Member(guildID, userID string) (*discordgo.Member, error)
}

// Directory lists the members connected to a voice channel from the
// gateway state cache.
type Directory struct {
	state stateReader
}

func NewDirectory(state stateReader) *Directory {
	return &Directory{state: state}
}

// Observers returns the participants whose voice state points at channel.
func (d *Directory) Observers(_ context.Context, channel types.ChannelID) ([]types.Participant, error) {
	ch, err := d.state.Channel(string(channel))
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w: %w", channel, types.ErrChannelUnresolvable, err)
	}
	if ch.Type != discordgo.ChannelTypeGuildVoice && ch.Type != discordgo.ChannelTypeGuildStageVoice {
		return nil, fmt.Errorf("channel %s is not a voice channel: %w", channel, types.ErrChannelUnresolvable)
	}
	guild, err := d.state.Guild(ch.GuildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s: %w: %w", ch.GuildID, types.ErrChannelUnresolvable, err)
	}

	d.state.RLock()
	voice := make([]discordgo.VoiceState, 0, len(guild.VoiceStates))
	for _, vs := range guild.VoiceStates {
		if vs != nil && vs.ChannelID == ch.ID {
			voice = append(voice, *vs)
		}
	}
	d.state.RUnlock()

	out := make([]types.Participant, 0, len(voice))
	for _, vs := range voice {
		member := vs.Member
		if member == nil || member.User == nil {
			member, _ = d.state.Member(ch.GuildID, vs.UserID)
		}
		out = append(out, participant(vs.UserID, member))
	}
	return out, nil
}

func participant(userID string, m *discordgo.Member) types.Participant {
	p := types.Participant{ID: types.ParticipantID(userID), Name: userID}
	if m == nil {
		return p
	}
	p.Name = displayName(m)
	if m.User != nil {
		p.Automated = m.User.Bot
	}
	return p
}

func displayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}
