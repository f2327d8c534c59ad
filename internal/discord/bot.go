package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ppiankov/modwatch/internal/dialog"
	"github.com/ppiankov/modwatch/internal/model"
	"github.com/ppiankov/modwatch/internal/moderation"
	"github.com/ppiankov/modwatch/internal/screen"
)

// SweepInterval is how often idle workflows are expired
const SweepInterval = time.Minute

// ForeignMenuMessage answers a click on a menu that belongs to someone else
const ForeignMenuMessage = "This menu belongs to another user's workflow."

// Assessor screens posts from the monitored channel
type Assessor interface {
	Assess(ctx context.Context, text string) (screen.Assessment, error)
}

// NewSession creates a bot session with the intents the bot relies on
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("discord token is required (set discord.token or MODWATCH_DISCORD_TOKEN)")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return session, nil
}

// Bot routes Discord events: direct messages to report intake, the
// monitored channel to the screener and the moderator channel to review.
type Bot struct {
	session  *discordgo.Session
	client   Client
	coord    *moderation.Coordinator
	assessor Assessor
	enforcer *Enforcer
	cfg      model.DiscordConfig
	log      *slog.Logger

	mu      sync.RWMutex
	selfID  string
	monitor map[string]string // channel ID -> guild ID
	mod     map[string]string // guild ID -> channel ID
}

// NewBot creates a bot. session may be nil when events are fed directly;
// assessor may be nil to disable screening.
func NewBot(session *discordgo.Session, client Client, coord *moderation.Coordinator, assessor Assessor, cfg model.DiscordConfig, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		session:  session,
		client:   client,
		coord:    coord,
		assessor: assessor,
		enforcer: NewEnforcer(client, logger),
		cfg:      cfg,
		log:      logger,
		monitor:  make(map[string]string),
		mod:      make(map[string]string),
	}
}

// Run connects and serves events until ctx is done
func (b *Bot) Run(ctx context.Context) error {
	if b.session == nil {
		return fmt.Errorf("bot has no session")
	}

	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.SetSelf(r.User.ID)
		b.log.Info("logged in", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	b.session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		b.RegisterGuild(g.Guild)
	})
	b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.HandleMessage(ctx, m.Message)
	})
	b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.HandleInteraction(ctx, i.Interaction)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			b.log.Warn("close discord session", "error", err)
		}
	}()

	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			b.log.Info("shutting down")
			return nil
		case now := <-ticker.C:
			b.dispatch(b.coord.Sweep(now))
		}
	}
}

// SetSelf records the bot's own user id so its messages are ignored
func (b *Bot) SetSelf(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selfID = id
}

// RegisterGuild maps the configured channels (by id or name) in g
func (b *Bot) RegisterGuild(g *discordgo.Guild) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range g.Channels {
		if ch.ID == b.cfg.ModChannel || ch.Name == b.cfg.ModChannel {
			b.mod[g.ID] = ch.ID
		}
		if ch.ID == b.cfg.MonitorChannel || ch.Name == b.cfg.MonitorChannel {
			b.monitor[ch.ID] = g.ID
		}
	}
	b.log.Debug("guild registered", "guild", g.ID, "mod_channel", b.mod[g.ID])
}

// HandleMessage routes one created message
func (b *Bot) HandleMessage(ctx context.Context, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	b.mu.RLock()
	self := m.Author.ID == b.selfID
	b.mu.RUnlock()
	if self {
		return
	}

	switch {
	case m.GuildID == "":
		res := b.coord.HandleDirect(ctx, m.Author.ID, m.Author.Username, dialog.Typed(m.Content))
		b.afterDirect(m.ChannelID, m.Author.ID, res)
	case b.isMonitor(m.ChannelID):
		b.screenPost(ctx, m)
	case b.isMod(m.ChannelID):
		res := b.coord.HandleModerator(ctx, m.Author.ID, m.ChannelID, dialog.Typed(m.Content))
		b.afterModerator(m.ChannelID, m.Author.ID, res)
	}
}

// HandleInteraction routes a select menu choice to its workflow
func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	data := i.MessageComponentData()
	flow, step, owner, ok := ParseCustomID(data.CustomID)
	if !ok || len(data.Values) == 0 {
		return
	}
	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}
	if owner != "" && owner != user.ID {
		if err := b.client.Respond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: ForeignMenuMessage,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}); err != nil {
			b.log.Warn("reject interaction", "error", err)
		}
		return
	}
	choice := data.Values[0]

	// Freeze the menu with the answer shown
	content := ""
	if i.Message != nil {
		content = i.Message.Content
	}
	if err := b.client.Respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content + "\n> " + choice,
			Components: []discordgo.MessageComponent{},
		},
	}); err != nil {
		b.log.Warn("acknowledge interaction", "error", err)
	}

	ev := dialog.Selected(step, choice)
	switch flow {
	case FlowReport:
		b.afterDirect(i.ChannelID, user.ID, b.coord.HandleDirect(ctx, user.ID, user.Username, ev))
	case FlowReview:
		b.afterModerator(i.ChannelID, user.ID, b.coord.HandleModerator(ctx, user.ID, i.ChannelID, ev))
	}
}

func (b *Bot) afterDirect(channelID, userID string, res moderation.Result) {
	b.reply(channelID, FlowReport, userID, res.Reply)
	for _, a := range res.Reply.Actions {
		// Blocking is client side; the reporter is told in the reply
		b.log.Info("reporter action", "action", a.Kind, "target", a.Target)
	}
	b.dispatch(res.Notices)
}

func (b *Bot) afterModerator(channelID, moderatorID string, res moderation.Result) {
	b.reply(channelID, FlowReview, moderatorID, res.Reply)
	b.enforcer.Apply(channelID, res.Reply.Actions)
	b.dispatch(res.Notices)
}

func (b *Bot) screenPost(ctx context.Context, m *discordgo.Message) {
	if b.assessor == nil {
		return
	}
	modChannel := b.modChannel(m.GuildID)
	if modChannel == "" {
		b.log.Warn("no moderator channel for guild", "guild", m.GuildID)
		return
	}

	a, err := b.assessor.Assess(ctx, m.Content)
	if err != nil {
		b.log.Warn("assess post", "message", m.ID, "error", err)
		return
	}

	b.send(modChannel, screen.Header(m.Author.Username, m.Content))
	for _, line := range a.Lines() {
		b.send(modChannel, line)
	}
	if a.Remove() {
		b.enforcer.Apply(modChannel, []dialog.Action{{
			Kind:   dialog.ActionDeleteMessage,
			Target: m.Author.ID,
			Message: dialog.MessageRef{
				GuildID:   m.GuildID,
				ChannelID: m.ChannelID,
				MessageID: m.ID,
				AuthorID:  m.Author.ID,
				Author:    m.Author.Username,
				Content:   m.Content,
			},
		}})
	}
}

func (b *Bot) reply(channelID, flow, owner string, resp dialog.Response) {
	for _, msg := range Render(flow, owner, resp) {
		if err := b.client.Send(channelID, msg); err != nil {
			b.log.Warn("send reply", "channel", channelID, "error", err)
			return
		}
	}
}

func (b *Bot) send(channelID, text string) {
	for _, chunk := range Split(text) {
		if err := b.client.Send(channelID, &discordgo.MessageSend{Content: chunk}); err != nil {
			b.log.Warn("send message", "channel", channelID, "error", err)
			return
		}
	}
}

// dispatch delivers coordinator notices
func (b *Bot) dispatch(notices []moderation.Notice) {
	for _, n := range notices {
		target := n.ChannelID
		switch {
		case n.UserID != "":
			id, err := b.client.DirectChannel(n.UserID)
			if err != nil {
				b.log.Warn("open direct channel", "user", n.UserID, "error", err)
				continue
			}
			target = id
		case target == "":
			target = b.modChannel(n.GuildID)
		}
		if target == "" {
			b.log.Warn("notice has no destination", "text", n.Text)
			continue
		}
		b.send(target, n.Text)
	}
}

func (b *Bot) modChannel(guildID string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if id, ok := b.mod[guildID]; ok {
		return id
	}
	return b.cfg.ModChannel
}

func (b *Bot) isMonitor(channelID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.monitor[channelID]
	return ok || channelID == b.cfg.MonitorChannel
}

func (b *Bot) isMod(channelID string) bool {
	if channelID == b.cfg.ModChannel {
		return true
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, id := range b.mod {
		if id == channelID {
			return true
		}
	}
	return false
}
