// Package discord adapts the moderation workflows to a Discord bot session.
package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/ppiankov/modwatch/internal/model"
)

// MaxMessageLength is Discord's content limit per message
const MaxMessageLength = 2000

// Client is the slice of the Discord REST surface the bot uses
type Client interface {
	Send(channelID string, msg *discordgo.MessageSend) error
	Delete(channelID, messageID string) error
	Message(channelID, messageID string) (*discordgo.Message, error)
	Channel(channelID string) (*discordgo.Channel, error)
	Guild(guildID string) (*discordgo.Guild, error)
	DirectChannel(userID string) (string, error)
	Respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) error
}

// SessionClient implements Client on a discordgo session, preferring the
// state cache for lookups.
type SessionClient struct {
	s *discordgo.Session
}

// NewSessionClient wraps s
func NewSessionClient(s *discordgo.Session) *SessionClient {
	return &SessionClient{s: s}
}

// Send posts msg to channelID
func (c *SessionClient) Send(channelID string, msg *discordgo.MessageSend) error {
	_, err := c.s.ChannelMessageSendComplex(channelID, msg)
	return err
}

// Delete removes a message
func (c *SessionClient) Delete(channelID, messageID string) error {
	return c.s.ChannelMessageDelete(channelID, messageID)
}

// Message fetches a message
func (c *SessionClient) Message(channelID, messageID string) (*discordgo.Message, error) {
	if m, err := c.s.State.Message(channelID, messageID); err == nil {
		return m, nil
	}
	return c.s.ChannelMessage(channelID, messageID)
}

// Channel fetches a channel
func (c *SessionClient) Channel(channelID string) (*discordgo.Channel, error) {
	if ch, err := c.s.State.Channel(channelID); err == nil {
		return ch, nil
	}
	return c.s.Channel(channelID)
}

// Guild returns a guild the bot is a member of
func (c *SessionClient) Guild(guildID string) (*discordgo.Guild, error) {
	return c.s.State.Guild(guildID)
}

// DirectChannel opens (or reuses) the DM channel with userID
func (c *SessionClient) DirectChannel(userID string) (string, error) {
	ch, err := c.s.UserChannelCreate(userID)
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

// Respond answers an interaction
func (c *SessionClient) Respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return c.s.InteractionRespond(i, resp)
}

// notFound reports whether err means the object does not exist or is not
// visible to the bot.
func notFound(err error) bool {
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return true
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusForbidden:
			return true
		}
	}
	return false
}

// lookupError maps a lookup failure to sentinel when the object is
// missing, otherwise to an upstream failure.
func lookupError(err, sentinel error) error {
	if notFound(err) {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return fmt.Errorf("discord lookup: %w: %w", model.ErrUpstreamUnavailable, err)
}
