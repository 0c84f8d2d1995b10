package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/youthcamp/registration-api/internal/registration"
)

// messageSender is the part of *discordgo.Session the notifier uses.
type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts new registrations to the organisers' channel.
type DiscordNotifier struct {
	session   messageSender
	channelID string
}

// NewDiscordNotifier builds a notifier from a bot token. Only the REST API is
// used, so the gateway connection is never opened.
func NewDiscordNotifier(botToken, channelID string) (*DiscordNotifier, error) {
	if botToken == "" || channelID == "" {
		return nil, fmt.Errorf("discord bot token and channel ID are required")
	}
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: channelID}, nil
}

func (n *DiscordNotifier) Name() string { return "discord" }

func (n *DiscordNotifier) NotifyRegistration(ctx context.Context, r registration.Receipt) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, discordMessage(r), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}
	return nil
}

func discordMessage(r registration.Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 **New Registration #%d**\n**Name:** %s\n**Type:** %s\n**Email:** %s\n**Youth group:** %s\n**Accommodation:** %s",
		r.ID,
		r.FullName(),
		r.Type,
		r.Email,
		r.YouthGroup,
		r.Accommodation,
	)
	if len(r.Activities) > 0 {
		names := make([]string, 0, len(r.Activities))
		for _, a := range r.Activities {
			names = append(names, a.Day+": "+a.Name)
		}
		fmt.Fprintf(&b, "\n**Activities:** %s", strings.Join(names, ", "))
	}
	if len(r.Allergies) > 0 {
		fmt.Fprintf(&b, "\n**Allergies:** %s", strings.Join(r.Allergies, ", "))
	}
	if r.Note != "" {
		fmt.Fprintf(&b, "\n**Note:** %s", r.Note)
	}
	return b.String()
}
