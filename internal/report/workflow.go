package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/modwatch/internal/dialog"
	"github.com/ppiankov/modwatch/internal/model"
)

// Link resolution failures. All of them wrap model.ErrUnrecognizedInput.
var (
	ErrUnreadableLink = fmt.Errorf("unreadable message link: %w", model.ErrUnrecognizedInput)
	ErrUnknownGuild   = fmt.Errorf("guild not joined: %w", model.ErrUnrecognizedInput)
	ErrUnknownChannel = fmt.Errorf("channel not found: %w", model.ErrUnrecognizedInput)
	ErrUnknownMessage = fmt.Errorf("message not found: %w", model.ErrUnrecognizedInput)
)

// linkPattern extracts guild, channel and message ids from a message link
var linkPattern = regexp.MustCompile(`/(\d+)/(\d+)/(\d+)`)

// Resolver looks up the message a link points at
type Resolver interface {
	Resolve(ctx context.Context, guildID, channelID, messageID string) (dialog.MessageRef, error)
}

// Workflow drives one reporter through intake. It is not safe for
// concurrent use; the coordinator serializes events per reporter.
type Workflow struct {
	report       *Report
	resolver     Resolver
	pending      *dialog.Prompt
	reporterName string
	lastActive   time.Time
	now          func() time.Time
}

// NewWorkflow starts an intake for a reporter
func NewWorkflow(reporterID, reporterName string, resolver Resolver) *Workflow {
	w := &Workflow{
		report:       New(reporterID),
		resolver:     resolver,
		reporterName: reporterName,
		now:          time.Now,
	}
	w.lastActive = w.now()
	return w
}

// WithClock replaces the clock (used by tests)
func (w *Workflow) WithClock(now func() time.Time) *Workflow {
	w.now = now
	w.lastActive = now()
	return w
}

// Report returns the report being filled
func (w *Workflow) Report() *Report { return w.report }

// Pending returns the prompt awaiting an answer, if any
func (w *Workflow) Pending() *dialog.Prompt { return w.pending }

// LastActive returns when the workflow last handled an event
func (w *Workflow) LastActive() time.Time { return w.lastActive }

// Cancel moves a non-terminal report to the canceled state
func (w *Workflow) Cancel() bool {
	if w.report.state == StateComplete || w.report.state == StateCanceled {
		return false
	}
	w.report.state = StateCanceled
	w.pending = nil
	return true
}

// Finish confirms a complete report as if the reporter typed the finish
// keyword.
func (w *Workflow) Finish() bool {
	if w.report.state != StateComplete {
		return false
	}
	w.report.finished = true
	return true
}

// Handle applies one event and returns the turns to send back
func (w *Workflow) Handle(ctx context.Context, ev dialog.Event) dialog.Response {
	w.lastActive = w.now()

	var resp dialog.Response
	keyword := ""
	if !ev.IsSelection() {
		keyword = ev.Keyword()
	}

	if keyword == CancelKeyword && w.Cancel() {
		resp.Add(dialog.Say(CanceledMessage))
		return resp
	}

	switch w.report.state {
	case StateStart:
		w.report.Set(FieldReportingUser, w.reporterName)
		w.report.state = StateAwaitingLink
		resp.Add(dialog.Say(IntroMessage))

	case StateAwaitingLink:
		w.handleLink(ctx, ev, &resp)

	case StateMessageIdentified:
		w.handleAnswer(ev, &resp)

	case StateComplete:
		if keyword == FinishKeyword && w.Finish() {
			resp.Add(dialog.Say(FinishedMessage))
			break
		}
		resp.Add(dialog.Say(FinishHintMessage))
	}

	return resp
}

func (w *Workflow) handleLink(ctx context.Context, ev dialog.Event, resp *dialog.Response) {
	if ev.IsSelection() {
		resp.Add(dialog.Say(linkFailureMessage(ErrUnreadableLink)))
		return
	}

	link := ev.Keyword()
	w.report.Set(FieldReportedPostURL, link)

	m := linkPattern.FindStringSubmatch(link)
	if m == nil {
		resp.Add(dialog.Say(linkFailureMessage(ErrUnreadableLink)))
		return
	}

	msg, err := w.resolver.Resolve(ctx, m[1], m[2], m[3])
	if err != nil {
		resp.Add(dialog.Say(linkFailureMessage(err)))
		return
	}

	w.report.message = msg
	w.report.state = StateMessageIdentified
	w.report.Set(FieldReportedUser, msg.Author)
	w.report.Set(FieldReportedPost, msg.Content)

	p := w.ask(StepAbuseType)
	resp.Add(dialog.AskWith(fmt.Sprintf("Found the following message: ```%s: %s```", msg.Author, msg.Content), p))
}

func linkFailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnreadableLink):
		return "I'm sorry, I couldn't read that link. Please try again or say `cancel` to cancel."
	case errors.Is(err, ErrUnknownGuild):
		return "I cannot accept reports of messages from guilds that I'm not in. Please have the guild owner add me to the guild and try again."
	case errors.Is(err, ErrUnknownChannel):
		return "It seems this channel was deleted or never existed. Please try again or say `cancel` to cancel."
	case errors.Is(err, ErrUnknownMessage):
		return "It seems this message was deleted or never existed. Please try again or say `cancel` to cancel."
	default:
		return "I couldn't look up that message right now. Please try again or say `cancel` to cancel."
	}
}

func (w *Workflow) handleAnswer(ev dialog.Event, resp *dialog.Response) {
	if w.pending == nil {
		resp.Add(dialog.Say(SelectReasonMessage))
		return
	}

	// Free-text micro-state: the next typed message is the answer
	if w.pending.Step == StepEvidenceText {
		text := ev.Keyword()
		if ev.IsSelection() || text == "" {
			resp.Add(dialog.Say(SubmitEvidenceMessage))
			return
		}
		w.answer(StepEvidenceText, text, resp)
		return
	}

	label, ok := ev.Answer(w.pending)
	if !ok {
		resp.Add(dialog.Say(SelectReasonMessage), dialog.Ask(*w.pending))
		return
	}
	w.answer(w.pending.Step, label, resp)
}

// answer records label for step and emits the next branch
func (w *Workflow) answer(step dialog.Step, label string, resp *dialog.Response) {
	if p, ok := prompts[step]; ok {
		w.report.Set(p.Text, label)
	}
	w.pending = nil

	switch step {
	case StepAbuseType:
		category := categories[label]
		w.report.category = category
		w.report.severity += Weight(category)
		switch category {
		case model.MisinfoManipulated:
			resp.Add(dialog.Ask(w.ask(StepManipulated)))
		case model.MisinfoFake:
			resp.Add(dialog.Ask(w.ask(StepCounterEvidence)))
		case model.MisinfoImposter:
			resp.Add(dialog.Ask(w.ask(StepImposter)))
		case model.MisinfoOutOfContext:
			resp.Add(dialog.Ask(w.ask(StepOriginalContext)))
		}

	case StepManipulated:
		resp.Add(dialog.Ask(w.ask(StepCounterEvidence)))

	case StepImposter:
		resp.Add(dialog.Ask(w.ask(StepRealOrg)))

	case StepCounterEvidence, StepOriginalContext, StepRealOrg:
		if label == LabelYes {
			w.ask(StepEvidenceText)
			resp.Add(dialog.Say(SubmitEvidenceMessage))
			return
		}
		resp.Add(dialog.Ask(w.ask(StepIntent)))

	case StepEvidenceText:
		resp.Add(dialog.Ask(w.ask(StepIntent)))

	case StepIntent:
		resp.Add(dialog.Say(ThankYouMessage), dialog.Ask(w.ask(StepBlock)))

	case StepBlock:
		w.report.complete(w.now())
		author := w.report.message.Author
		if label == LabelYes {
			resp.Do(dialog.Action{Kind: dialog.ActionBlockUser, Target: w.report.message.AuthorID, Message: w.report.message})
			resp.Add(dialog.Say(fmt.Sprintf("User: %s has been blocked. %s", author, FinishHintMessage)))
			return
		}
		resp.Add(dialog.Say(fmt.Sprintf("You will continue to see content from %s. %s", author, FinishHintMessage)))
	}
}

// ask makes step the pending prompt and returns it
func (w *Workflow) ask(step dialog.Step) dialog.Prompt {
	p, _ := PromptFor(step)
	w.pending = &p
	return p
}

// IsStart reports whether text opens a new report
func IsStart(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), StartKeyword)
}
