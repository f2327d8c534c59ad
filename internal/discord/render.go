package discord

import (
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/ppiankov/modwatch/internal/dialog"
)

// Select menu custom id prefixes
const (
	FlowReport = "report"
	FlowReview = "review"
)

const maxOptionText = 100 // Discord limit for select labels and descriptions

// CustomID encodes the flow and step a select menu answers, and the user
// allowed to answer it when owner is set.
func CustomID(flow string, step dialog.Step, owner string) string {
	id := flow + ":" + string(step)
	if owner != "" {
		id += ":" + owner
	}
	return id
}

// ParseCustomID splits a select menu custom id
func ParseCustomID(id string) (flow string, step dialog.Step, owner string, ok bool) {
	flow, rest, found := strings.Cut(id, ":")
	if !found || rest == "" {
		return "", "", "", false
	}
	stepID, owner, _ := strings.Cut(rest, ":")
	if stepID == "" {
		return "", "", "", false
	}
	switch flow {
	case FlowReport, FlowReview:
		return flow, dialog.Step(stepID), owner, true
	}
	return "", "", "", false
}

// Render converts workflow turns into Discord messages. Prompts become a
// single string select menu under the turn text, answerable by owner only.
func Render(flow, owner string, resp dialog.Response) []*discordgo.MessageSend {
	var out []*discordgo.MessageSend
	for _, turn := range resp.Turns {
		chunks := Split(turn.Text)
		for i, chunk := range chunks {
			msg := &discordgo.MessageSend{Content: chunk}
			if turn.Prompt != nil && i == len(chunks)-1 {
				msg.Components = []discordgo.MessageComponent{selectMenu(flow, owner, turn.Prompt)}
			}
			out = append(out, msg)
		}
	}
	return out
}

func selectMenu(flow, owner string, p *dialog.Prompt) discordgo.ActionsRow {
	options := make([]discordgo.SelectMenuOption, 0, len(p.Options))
	for _, o := range p.Options {
		options = append(options, discordgo.SelectMenuOption{
			Label:       truncate(o.Label, maxOptionText),
			Value:       o.Label,
			Description: truncate(o.Description, maxOptionText),
		})
	}
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			CustomID:    CustomID(flow, p.Step, owner),
			Placeholder: "Select an option",
			Options:     options,
		},
	}}
}

// Split breaks text into chunks that fit one message, preferring line
// boundaries. Empty text yields a single empty chunk.
func Split(text string) []string {
	if utf8.RuneCountInString(text) <= MaxMessageLength {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		for utf8.RuneCountInString(line) > MaxMessageLength {
			flush()
			runes := []rune(line)
			chunks = append(chunks, string(runes[:MaxMessageLength]))
			line = string(runes[MaxMessageLength:])
		}
		n := utf8.RuneCountInString(line)
		if curLen+n > MaxMessageLength {
			flush()
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return chunks
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
