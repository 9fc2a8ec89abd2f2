package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/text/language"
)

// messageSender is the slice of *discordgo.Session used here.
type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts reminders to a channel through the bot REST API.
// No gateway connection is opened.
type DiscordNotifier struct {
	session   messageSender
	channelID string
	locale    language.Tag
}

func NewDiscordNotifier(token, channelID string, locale language.Tag) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create Discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: channelID, locale: locale}, nil
}

func (n *DiscordNotifier) Name() string { return "discord" }

func (n *DiscordNotifier) Notify(ctx context.Context, r Reminder) error {
	content := fmt.Sprintf("**%s**\n%s", Subject(r), Body(r, n.locale))
	if _, err := n.session.ChannelMessageSend(n.channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send Discord message: %w", err)
	}
	return nil
}
