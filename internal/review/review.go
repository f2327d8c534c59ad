// Package review implements the moderator adjudication of a queued report.
package review

import (
	"fmt"
	"time"

	"github.com/ppiankov/modwatch/internal/dialog"
	"github.com/ppiankov/modwatch/internal/report"
)

// State is the review state of a session
type State int

const (
	StateStarted State = iota
	StateComplete
)

func (s State) String() string {
	if s == StateComplete {
		return "complete"
	}
	return "started"
}

// Moderator commands
const (
	ListReportsKeyword  = "list-reports"
	ReviewUrgentKeyword = "review-urgent-report"
	ReviewReportKeyword = "review-report"
	FinishKeyword       = "finish-report"
)

// Decision tree steps
const (
	StepFactualLink    dialog.Step = "factual-link"
	StepViolation      dialog.Step = "violation"
	StepAdversarial    dialog.Step = "adversarial"
	StepDanger         dialog.Step = "danger"
	StepRepeatOffender dialog.Step = "repeat-offender"
)

// Prompt texts
const (
	FactualLinkPrompt    = "Does the report contain a factual link?"
	ViolationPrompt      = "Is the reported post in violation of our misinformation policy?"
	AdversarialPrompt    = "Is the report an adversarial user report?"
	DangerPrompt         = "Does this post pose an immediate threat via potential to cause harm?"
	RepeatOffenderPrompt = "Does the account being reported have a history of 3 or more violations?"
)

// Replies
const (
	ClosingMessage = "Report remediation workflow finished. Type '" + FinishKeyword + "' to finish the report."
	AnswerMessage  = "Please answer with one of the options below."
)

var prompts = map[dialog.Step]string{
	StepFactualLink:    FactualLinkPrompt,
	StepViolation:      ViolationPrompt,
	StepAdversarial:    AdversarialPrompt,
	StepDanger:         DangerPrompt,
	StepRepeatOffender: RepeatOffenderPrompt,
}

func prompt(step dialog.Step) dialog.Prompt {
	return dialog.Prompt{Step: step, Text: prompts[step], Options: dialog.YesNo()}
}

// Session is one moderator's exclusive review of one report. It is not
// safe for concurrent use.
type Session struct {
	moderatorID string
	channelID   string
	report      *report.Report
	state       State
	pending     *dialog.Prompt
	answers     map[dialog.Step]string
	lastActive  time.Time
	now         func() time.Time
}

// NewSession creates a session owning r
func NewSession(moderatorID, channelID string, r *report.Report) *Session {
	s := &Session{
		moderatorID: moderatorID,
		channelID:   channelID,
		report:      r,
		answers:     make(map[dialog.Step]string),
		now:         time.Now,
	}
	s.lastActive = s.now()
	return s
}

// WithClock replaces the clock (used by tests)
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	s.lastActive = now()
	return s
}

// ModeratorID returns the reviewing moderator
func (s *Session) ModeratorID() string { return s.moderatorID }

// ChannelID returns the channel the review runs in
func (s *Session) ChannelID() string { return s.channelID }

// Report returns the report under review
func (s *Session) Report() *report.Report { return s.report }

// State returns the review state
func (s *Session) State() State { return s.state }

// Complete reports whether a terminal answer was given
func (s *Session) Complete() bool { return s.state == StateComplete }

// Pending returns the prompt awaiting an answer, if any
func (s *Session) Pending() *dialog.Prompt { return s.pending }

// LastActive returns when the session last handled an event
func (s *Session) LastActive() time.Time { return s.lastActive }

// Answer returns the recorded answer for step
func (s *Session) Answer(step dialog.Step) (string, bool) {
	a, ok := s.answers[step]
	return a, ok
}

// Start emits the transcript, the account history, and the first prompt
func (s *Session) Start(priorStrikes int) dialog.Response {
	s.lastActive = s.now()

	var resp dialog.Response
	resp.Add(dialog.Say("This is the full report transcript:\n\n" + s.report.Transcript()))
	if priorStrikes > 0 {
		resp.Add(dialog.Say(fmt.Sprintf("The reported account has %d prior violation(s) on record.", priorStrikes)))
	}
	resp.Add(dialog.Ask(s.ask(StepFactualLink)))
	return resp
}

// Handle applies one moderator answer
func (s *Session) Handle(ev dialog.Event) dialog.Response {
	s.lastActive = s.now()

	var resp dialog.Response
	if s.state == StateComplete {
		resp.Add(dialog.Say(ClosingMessage))
		return resp
	}

	label, ok := ev.Answer(s.pending)
	if !ok {
		if s.pending != nil {
			resp.Add(dialog.Say(AnswerMessage), dialog.Ask(*s.pending))
		}
		return resp
	}

	step := s.pending.Step
	s.answers[step] = label
	s.pending = nil
	yes := label == report.LabelYes
	msg := s.report.Message()

	switch step {
	case StepFactualLink:
		if !yes && !s.reportedFakePerson() {
			resp.Do(dialog.Action{Kind: dialog.ActionWarnReporter, Target: s.report.ReporterID()})
		}
		resp.Add(dialog.Ask(s.ask(StepViolation)))

	case StepViolation:
		if yes {
			resp.Do(dialog.Action{Kind: dialog.ActionDeleteMessage, Target: msg.AuthorID, Message: msg})
			resp.Add(dialog.Ask(s.ask(StepDanger)))
			return resp
		}
		resp.Add(dialog.Ask(s.ask(StepAdversarial)))

	case StepAdversarial:
		if yes {
			resp.Do(dialog.Action{Kind: dialog.ActionSuspendReporting, Target: s.report.ReporterID()})
		}
		s.finish(&resp)

	case StepDanger:
		if yes {
			resp.Do(dialog.Action{Kind: dialog.ActionReportAuthority, Target: msg.AuthorID, Message: msg})
			resp.Do(dialog.Action{Kind: dialog.ActionBanAccount, Target: msg.AuthorID})
			s.finish(&resp)
			return resp
		}
		resp.Add(dialog.Ask(s.ask(StepRepeatOffender)))

	case StepRepeatOffender:
		if yes {
			resp.Do(dialog.Action{Kind: dialog.ActionBanAccount, Target: msg.AuthorID})
		} else {
			resp.Do(dialog.Action{Kind: dialog.ActionWarnAccount, Target: msg.AuthorID})
		}
		s.finish(&resp)
	}

	return resp
}

// reportedFakePerson is true when the reporter said the poster does not exist
func (s *Session) reportedFakePerson() bool {
	answer, _ := s.report.Field(report.ImposterPrompt)
	return answer == report.LabelFakePerson
}

func (s *Session) finish(resp *dialog.Response) {
	s.state = StateComplete
	resp.Add(dialog.Say(ClosingMessage))
}

func (s *Session) ask(step dialog.Step) dialog.Prompt {
	p := prompt(step)
	s.pending = &p
	return p
}
