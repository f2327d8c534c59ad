package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/ppiankov/modwatch/internal/dialog"
)

// Enforcer carries out review actions. Message removal is executed; every
// action is announced in the moderator channel.
type Enforcer struct {
	client Client
	log    *slog.Logger
}

// NewEnforcer creates an enforcer
func NewEnforcer(client Client, logger *slog.Logger) *Enforcer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enforcer{client: client, log: logger}
}

// Apply executes actions and posts their notices to channelID
func (e *Enforcer) Apply(channelID string, actions []dialog.Action) {
	for _, a := range actions {
		if a.Kind == dialog.ActionDeleteMessage {
			e.delete(a.Message)
		}
		if channelID == "" {
			continue
		}
		if err := e.client.Send(channelID, &discordgo.MessageSend{Content: a.Kind.Notice()}); err != nil {
			e.log.Warn("post action notice", "action", a.Kind, "channel", channelID, "error", err)
		}
	}
}

func (e *Enforcer) delete(m dialog.MessageRef) {
	if m.ChannelID == "" || m.MessageID == "" {
		return
	}
	if err := e.client.Delete(m.ChannelID, m.MessageID); err != nil {
		if notFound(err) {
			e.log.Info("message already gone", "channel", m.ChannelID, "message", m.MessageID)
			return
		}
		e.log.Warn("delete message", "channel", m.ChannelID, "message", m.MessageID, "error", err)
		return
	}
	e.log.Info("message removed", "channel", m.ChannelID, "message", m.MessageID, "author", m.AuthorID)
}
