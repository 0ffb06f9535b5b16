package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/reputation-tracker/internal/reputation"
	"go.uber.org/zap"
)

// Discord rejects longer messages.
const maxMessageLength = 2000

type Notifier interface {
	NotifyNewEmblems(ctx context.Context, username string, emblems []reputation.NewEmblem) error
}

type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier tells moderators about emblems awaiting validation.
type DiscordNotifier struct {
	session   messageSender
	channelID string
	log       *zap.Logger
}

// NewDiscordNotifier returns nil when session or channelID is missing; a nil
// *DiscordNotifier sends nothing.
func NewDiscordNotifier(session *discordgo.Session, channelID string, log *zap.Logger) *DiscordNotifier {
	if session == nil || channelID == "" {
		return nil
	}
	return newDiscordNotifier(session, channelID, log)
}

func newDiscordNotifier(session messageSender, channelID string, log *zap.Logger) *DiscordNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &DiscordNotifier{session: session, channelID: channelID, log: log}
}

func (n *DiscordNotifier) NotifyNewEmblems(ctx context.Context, username string, emblems []reputation.NewEmblem) error {
	if n == nil || len(emblems) == 0 {
		return nil
	}

	message := newEmblemsMessage(username, emblems)
	_, err := n.session.ChannelMessageSend(n.channelID, message, discordgo.WithContext(ctx))
	if err != nil {
		n.log.Error("failed to send discord message", zap.String("channel_id", n.channelID), zap.Error(err))
		return err
	}
	return nil
}

func newEmblemsMessage(username string, emblems []reputation.NewEmblem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏴‍☠️ **%d new emblem(s) awaiting validation**\n**Imported by:** %s\n", len(emblems), username)
	for i, e := range emblems {
		line := fmt.Sprintf("• `%s` %s (#%d)\n", e.FactionKey, e.Name, e.ID)
		if b.Len()+len(line) > maxMessageLength-32 {
			fmt.Fprintf(&b, "…and %d more", len(emblems)-i)
			break
		}
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}
