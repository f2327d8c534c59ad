package discord

import (
	"context"

	"github.com/ppiankov/modwatch/internal/dialog"
	"github.com/ppiankov/modwatch/internal/report"
)

// Resolver finds reported messages through the bot's view of Discord
type Resolver struct {
	client Client
}

// NewResolver creates a resolver
func NewResolver(client Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve looks up a message by its link components. The guild must be
// one the bot is in.
func (r *Resolver) Resolve(ctx context.Context, guildID, channelID, messageID string) (dialog.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return dialog.MessageRef{}, err
	}
	if _, err := r.client.Guild(guildID); err != nil {
		return dialog.MessageRef{}, lookupError(err, report.ErrUnknownGuild)
	}
	if _, err := r.client.Channel(channelID); err != nil {
		return dialog.MessageRef{}, lookupError(err, report.ErrUnknownChannel)
	}
	m, err := r.client.Message(channelID, messageID)
	if err != nil {
		return dialog.MessageRef{}, lookupError(err, report.ErrUnknownMessage)
	}

	ref := dialog.MessageRef{
		GuildID:   guildID,
		ChannelID: channelID,
		MessageID: messageID,
		Content:   m.Content,
	}
	if m.Author != nil {
		ref.AuthorID = m.Author.ID
		ref.Author = m.Author.Username
	}
	return ref, nil
}
