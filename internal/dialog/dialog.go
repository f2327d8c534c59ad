// Package dialog holds the transport-neutral conversation surface shared by
// the report and review workflows: outgoing turns, incoming events, and the
// remediation actions a workflow asks the transport to carry out.
package dialog

import "strings"

// Step identifies a prompt inside a workflow. Transports echo it back with
// a selection so answers are routed by step, never by prompt text.
type Step string

// Option is one selectable answer
type Option struct {
	Label       string
	Description string
}

// Prompt is a question with a closed set of answers
type Prompt struct {
	Step    Step
	Text    string
	Options []Option
}

// Has reports whether label is one of the offered options
func (p *Prompt) Has(label string) bool {
	for _, o := range p.Options {
		if o.Label == label {
			return true
		}
	}
	return false
}

// Turn is one outgoing message: plain text, or a prompt when Prompt is set
type Turn struct {
	Text   string
	Prompt *Prompt
}

// Say builds a plain text turn
func Say(text string) Turn {
	return Turn{Text: text}
}

// Ask builds a prompt turn whose message text is the prompt itself
func Ask(p Prompt) Turn {
	return Turn{Text: p.Text, Prompt: &p}
}

// AskWith builds a prompt turn preceded by another message text
func AskWith(text string, p Prompt) Turn {
	return Turn{Text: text, Prompt: &p}
}

// Event is one incoming user input: free text, or a selection made on the
// prompt identified by Step.
type Event struct {
	Text      string
	Step      Step
	Selection string
}

// Typed builds a free-text event
func Typed(text string) Event {
	return Event{Text: text}
}

// Selected builds a selection event
func Selected(step Step, label string) Event {
	return Event{Step: step, Selection: label}
}

// IsSelection reports whether the event came from a select menu
func (e Event) IsSelection() bool {
	return e.Step != ""
}

// Keyword returns the trimmed free text of the event
func (e Event) Keyword() string {
	return strings.TrimSpace(e.Text)
}

// Answer resolves the event against the pending prompt. A selection must
// target the pending step; typed text is accepted when it names an option.
func (e Event) Answer(pending *Prompt) (string, bool) {
	if pending == nil {
		return "", false
	}
	if e.IsSelection() {
		if e.Step != pending.Step || !pending.Has(e.Selection) {
			return "", false
		}
		return e.Selection, true
	}
	text := e.Keyword()
	for _, o := range pending.Options {
		if strings.EqualFold(o.Label, text) {
			return o.Label, true
		}
	}
	return "", false
}

// ActionKind names a remediation the transport or ledger carries out
type ActionKind string

const (
	ActionBlockUser        ActionKind = "block-user"
	ActionWarnReporter     ActionKind = "warn-reporter"
	ActionDeleteMessage    ActionKind = "delete-message"
	ActionReportAuthority  ActionKind = "report-authorities"
	ActionBanAccount       ActionKind = "ban-account"
	ActionWarnAccount      ActionKind = "warn-account"
	ActionSuspendReporting ActionKind = "suspend-reporting"
)

// Notice is the moderator-facing line posted for an action
func (k ActionKind) Notice() string {
	switch k {
	case ActionBlockUser:
		return "*Block reported user*"
	case ActionWarnReporter:
		return "*Warn offending user*"
	case ActionDeleteMessage:
		return "*Remove offending post*"
	case ActionReportAuthority:
		return "*Report to law enforcement*"
	case ActionBanAccount:
		return "*Ban account*"
	case ActionWarnAccount:
		return "*Warn account*"
	case ActionSuspendReporting:
		return "*Temp ban on reporting*"
	default:
		return "*" + string(k) + "*"
	}
}

// Action is a remediation request produced by a workflow
type Action struct {
	Kind ActionKind
	// Target is the user the action applies to
	Target string
	// Message references the post for message-level actions
	Message MessageRef
}

// MessageRef is an opaque handle on a chat message
type MessageRef struct {
	GuildID   string
	ChannelID string
	MessageID string
	AuthorID  string
	Author    string
	Content   string
}

// Response is what a workflow emits for one event
type Response struct {
	Turns   []Turn
	Actions []Action
}

// Add appends turns
func (r *Response) Add(turns ...Turn) {
	r.Turns = append(r.Turns, turns...)
}

// Do appends an action
func (r *Response) Do(a Action) {
	r.Actions = append(r.Actions, a)
}

// Texts flattens the turns to their message texts
func (r Response) Texts() []string {
	out := make([]string, 0, len(r.Turns))
	for _, t := range r.Turns {
		out = append(out, t.Text)
	}
	return out
}

// YesNo is the option set of every yes/no prompt
func YesNo() []Option {
	return []Option{{Label: "Yes"}, {Label: "No"}}
}
