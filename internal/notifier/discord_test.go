package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/reputation-tracker/internal/reputation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	channel  string
	messages []string
	err      error
}

func (f *fakeSender) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel = channelID
	f.messages = append(f.messages, content)
	return &discordgo.Message{Content: content}, f.err
}

func TestNotifyNewEmblems(t *testing.T) {
	sender := &fakeSender{}
	n := newDiscordNotifier(sender, "chan-1", nil)

	err := n.NotifyNewEmblems(context.Background(), "anne", []reputation.NewEmblem{
		{ID: 7, FactionKey: "AthenasFortune", Key: "e1", Name: "Legend"},
	})
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	assert.Equal(t, "chan-1", sender.channel)
	assert.Contains(t, sender.messages[0], "anne")
	assert.Contains(t, sender.messages[0], "Legend (#7)")
}

func TestNotifyNewEmblems_NothingToSay(t *testing.T) {
	sender := &fakeSender{}
	n := newDiscordNotifier(sender, "chan-1", nil)
	require.NoError(t, n.NotifyNewEmblems(context.Background(), "anne", nil))
	assert.Empty(t, sender.messages)
}

func TestNotifyNewEmblems_NilNotifier(t *testing.T) {
	var n *DiscordNotifier
	assert.NoError(t, n.NotifyNewEmblems(context.Background(), "anne", []reputation.NewEmblem{{ID: 1}}))
	assert.Nil(t, NewDiscordNotifier(nil, "chan", nil))
}

func TestNotifyNewEmblems_Error(t *testing.T) {
	sender := &fakeSender{err: errors.New("rate limited")}
	n := newDiscordNotifier(sender, "chan-1", nil)
	err := n.NotifyNewEmblems(context.Background(), "anne", []reputation.NewEmblem{{ID: 1, Name: "x"}})
	assert.Error(t, err)
}

func TestNewEmblemsMessage_Truncated(t *testing.T) {
	emblems := make([]reputation.NewEmblem, 200)
	for i := range emblems {
		emblems[i] = reputation.NewEmblem{ID: uint(i), FactionKey: "HuntersCall", Name: fmt.Sprintf("Emblem number %d", i)}
	}
	msg := newEmblemsMessage("anne", emblems)
	assert.LessOrEqual(t, len(msg), maxMessageLength)
	assert.True(t, strings.Contains(msg, "more"))
}
