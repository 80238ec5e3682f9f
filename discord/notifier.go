package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/vainnor/pomobot/types"
)

type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts announcements as plain channel messages.
type Notifier struct {
	sender messageSender
}

func NewNotifier(sender messageSender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) Announce(ctx context.Context, channel types.ChannelID, text string) error {
	if _, err := n.sender.ChannelMessageSend(string(channel), text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send message to %s: %w", channel, err)
	}
	return nil
}
