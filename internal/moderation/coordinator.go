// Package moderation coordinates report intake, the review queue and
// moderator sessions across concurrent chat events.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/modwatch/internal/dialog"
	"github.com/ppiankov/modwatch/internal/model"
	"github.com/ppiankov/modwatch/internal/queue"
	"github.com/ppiankov/modwatch/internal/report"
	"github.com/ppiankov/modwatch/internal/review"
)

// Coordinator replies
const (
	NewReportNotice       = "Received new report."
	SuspendedMessage      = "Your reporting privilege is temporarily suspended."
	OneReviewMessage      = "A moderator can only review one report at a time."
	EmptyQueueMessage     = "There are no reports awaiting review."
	NoActiveReview        = "You don't have any active reports being reviewed"
	ReviewUnfinished      = "Finish the remediation workflow before closing the report."
	ReportTimedOut        = "Your report timed out and was canceled."
	ReportAutoSubmitted   = "Your report was submitted for review."
	reviewFinishedFormat  = "Report %s is finished with review"
	reviewAbandonedFormat = "Review of report %s timed out after actions were taken; it was closed and not requeued."
)

// Notice is a message for someone other than the event sender. UserID
// targets a direct message and ChannelID a channel. With neither set the
// notice goes to the moderator channel of GuildID.
type Notice struct {
	UserID    string
	ChannelID string
	GuildID   string
	Text      string
}

// Result is the outcome of one inbound event
type Result struct {
	Reply   dialog.Response
	Notices []Notice
}

// Options tune the coordinator
type Options struct {
	ReportTimeout time.Duration // zero disables
	ReviewTimeout time.Duration // zero disables
	Suspension    time.Duration
	Logger        *slog.Logger
	Now           func() time.Time
}

// OptionsFromConfig maps the moderation config section
func OptionsFromConfig(cfg model.ModerationConfig, logger *slog.Logger) Options {
	return Options{
		ReportTimeout: cfg.ReportTimeout,
		ReviewTimeout: cfg.ReviewTimeout,
		Suspension:    cfg.Suspension,
		Logger:        logger,
	}
}

type intake struct {
	mu     sync.Mutex
	wf     *report.Workflow
	closed bool
}

type session struct {
	mu     sync.Mutex
	s      *review.Session
	struck bool
	acted  bool // actions were emitted; the report must not be reviewed again
	closed bool
}

// Coordinator owns the reporter→workflow and moderator→session maps and
// the review queue. The maps are guarded by one mutex; each workflow and
// session has its own, so slow oracles or transport calls for one user
// never block another.
type Coordinator struct {
	mu       sync.Mutex
	intakes  map[string]*intake
	sessions map[string]*session

	queue    *queue.Queue
	ledger   Ledger
	resolver report.Resolver
	opts     Options
	log      *slog.Logger
}

// NewCoordinator creates a coordinator
func NewCoordinator(resolver report.Resolver, ledger Ledger, opts Options) *Coordinator {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		intakes:  make(map[string]*intake),
		sessions: make(map[string]*session),
		queue:    queue.New(),
		ledger:   ledger,
		resolver: resolver,
		opts:     opts,
		log:      opts.Logger,
	}
}

// Queue exposes the review queue
func (c *Coordinator) Queue() *queue.Queue { return c.queue }

// HasReport reports whether userID has an intake in progress
func (c *Coordinator) HasReport(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.intakes[userID]
	return ok
}

// HasReview reports whether moderatorID has an active session
func (c *Coordinator) HasReview(moderatorID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[moderatorID]
	return ok
}

// HandleDirect routes a direct message from a (potential) reporter
func (c *Coordinator) HandleDirect(ctx context.Context, userID, userName string, ev dialog.Event) Result {
	var res Result

	if !ev.IsSelection() && ev.Keyword() == report.HelpKeyword {
		res.Reply.Add(dialog.Say(report.HelpText))
		return res
	}

	for {
		in, started, ok := c.intake(ctx, userID, userName, ev, &res)
		if !ok {
			return res
		}

		in.mu.Lock()
		if in.closed {
			// Ended between lookup and lock; a start keyword opens a fresh one
			in.mu.Unlock()
			continue
		}
		if started {
			c.log.Info("report started", "user", userID, "report", in.wf.Report().ID())
		}

		res.Reply = in.wf.Handle(ctx, ev)
		r := in.wf.Report()
		if r.Ended() {
			in.closed = true
			c.dropIntake(userID, in)
			if r.Complete() {
				c.submit(r, &res)
			} else {
				c.log.Info("report canceled", "user", userID, "report", r.ID())
			}
		}
		in.mu.Unlock()
		return res
	}
}

// intake finds or creates the workflow for userID. ok is false when the
// event does not belong to any report flow.
func (c *Coordinator) intake(ctx context.Context, userID, userName string, ev dialog.Event, res *Result) (*intake, bool, bool) {
	c.mu.Lock()
	in, exists := c.intakes[userID]
	c.mu.Unlock()
	if exists {
		return in, false, true
	}

	if ev.IsSelection() || !report.IsStart(ev.Text) {
		return nil, false, false
	}

	suspended, err := c.ledger.Suspended(ctx, userID)
	if err != nil {
		c.log.Warn("suspension lookup failed", "user", userID, "error", err)
	}
	if suspended {
		res.Reply.Add(dialog.Say(SuspendedMessage))
		return nil, false, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if in, exists := c.intakes[userID]; exists {
		return in, false, true
	}
	wf := report.NewWorkflow(userID, userName, c.resolver).WithClock(c.opts.Now)
	in = &intake{wf: wf}
	c.intakes[userID] = in
	return in, true, true
}

func (c *Coordinator) dropIntake(userID string, in *intake) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.intakes[userID] == in {
		delete(c.intakes, userID)
	}
}

func (c *Coordinator) submit(r *report.Report, res *Result) {
	if err := c.queue.Push(r); err != nil {
		c.log.Error("queue report", "report", r.ID(), "error", err)
		return
	}
	c.log.Info("report submitted", "report", r.ID(), "severity", r.Severity(), "queued", c.queue.Len())
	res.Notices = append(res.Notices, Notice{GuildID: r.Message().GuildID, Text: NewReportNotice})
}

// HandleModerator routes a message or selection from the moderator channel
func (c *Coordinator) HandleModerator(ctx context.Context, moderatorID, channelID string, ev dialog.Event) Result {
	var res Result

	if !ev.IsSelection() {
		fields := strings.Fields(ev.Keyword())
		if len(fields) > 0 {
			switch fields[0] {
			case review.ListReportsKeyword:
				res.Reply.Add(dialog.Say(c.queue.Format()))
				return res
			case review.ReviewUrgentKeyword:
				return c.startReview(ctx, moderatorID, channelID, "")
			case review.ReviewReportKeyword:
				if len(fields) < 2 {
					res.Reply.Add(dialog.Say("Usage: review-report <report id>"))
					return res
				}
				return c.startReview(ctx, moderatorID, channelID, fields[1])
			case review.FinishKeyword:
				return c.finishReview(moderatorID)
			}
		}
	}

	c.mu.Lock()
	ss, ok := c.sessions[moderatorID]
	c.mu.Unlock()
	if !ok {
		return res
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		return res
	}
	res.Reply = ss.s.Handle(ev)
	c.remediate(ctx, ss, res.Reply.Actions)
	return res
}

// Claim failures
var (
	errQueueEmpty    = errors.New("review queue is empty")
	errUnknownReport = errors.New("no queued report with that id")
)

// claim takes a report off the queue for moderatorID: the most urgent one
// when id is empty. A moderator with an active session is rejected before
// the queue is touched. The returned session is locked.
func (c *Coordinator) claim(moderatorID, channelID, id string) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.sessions[moderatorID]; busy {
		return nil, model.ErrReviewActive
	}

	var (
		r  *report.Report
		ok bool
	)
	if id == "" {
		r, ok = c.queue.PopHighest()
		if !ok {
			return nil, errQueueEmpty
		}
	} else {
		r, ok = c.queue.Remove(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", errUnknownReport, id)
		}
	}

	ss := &session{s: review.NewSession(moderatorID, channelID, r).WithClock(c.opts.Now)}
	ss.mu.Lock()
	c.sessions[moderatorID] = ss
	return ss, nil
}

func (c *Coordinator) startReview(ctx context.Context, moderatorID, channelID, id string) Result {
	var res Result

	ss, err := c.claim(moderatorID, channelID, id)
	switch {
	case errors.Is(err, model.ErrReviewActive):
		res.Reply.Add(dialog.Say(OneReviewMessage))
		return res
	case errors.Is(err, errQueueEmpty):
		res.Reply.Add(dialog.Say(EmptyQueueMessage))
		return res
	case errors.Is(err, errUnknownReport):
		res.Reply.Add(dialog.Say(fmt.Sprintf("No queued report with ID %s.", id)))
		return res
	case err != nil:
		c.log.Error("claim report", "moderator", moderatorID, "error", err)
		return res
	}
	defer ss.mu.Unlock()

	r := ss.s.Report()
	strikes, err := c.ledger.Strikes(ctx, r.Message().AuthorID)
	if err != nil {
		c.log.Warn("strike lookup failed", "user", r.Message().AuthorID, "error", err)
	}

	c.log.Info("review started", "moderator", moderatorID, "report", r.ID())
	res.Reply = ss.s.Start(strikes)
	return res
}

func (c *Coordinator) finishReview(moderatorID string) Result {
	var res Result

	c.mu.Lock()
	ss, ok := c.sessions[moderatorID]
	c.mu.Unlock()
	if !ok {
		res.Reply.Add(dialog.Say(NoActiveReview))
		return res
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		res.Reply.Add(dialog.Say(NoActiveReview))
		return res
	}
	if !ss.s.Complete() {
		res.Reply.Add(dialog.Say(ReviewUnfinished))
		if p := ss.s.Pending(); p != nil {
			res.Reply.Add(dialog.Ask(*p))
		}
		return res
	}

	ss.closed = true
	c.dropSession(moderatorID, ss)
	id := ss.s.Report().ID()
	c.log.Info("review finished", "moderator", moderatorID, "report", id)
	res.Reply.Add(dialog.Say(fmt.Sprintf(reviewFinishedFormat, id)))
	return res
}

func (c *Coordinator) dropSession(moderatorID string, ss *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessions[moderatorID] == ss {
		delete(c.sessions, moderatorID)
	}
}

// remediate books review actions in the ledger. One review adds at most
// one strike to the reported account.
func (c *Coordinator) remediate(ctx context.Context, ss *session, actions []dialog.Action) {
	if len(actions) > 0 {
		ss.acted = true
	}
	for _, a := range actions {
		switch a.Kind {
		case dialog.ActionDeleteMessage, dialog.ActionBanAccount, dialog.ActionWarnAccount:
			if ss.struck || a.Target == "" {
				continue
			}
			ss.struck = true
			n, err := c.ledger.AddStrike(ctx, a.Target)
			if err != nil {
				c.log.Warn("record strike failed", "user", a.Target, "error", err)
				continue
			}
			c.log.Info("strike recorded", "user", a.Target, "strikes", n)

		case dialog.ActionSuspendReporting:
			if err := c.ledger.Suspend(ctx, a.Target, c.opts.Suspension); err != nil {
				c.log.Warn("suspend reporter failed", "user", a.Target, "error", err)
				continue
			}
			c.log.Info("reporter suspended", "user", a.Target, "for", c.opts.Suspension)
		}
	}
}

// Sweep expires idle workflows and sessions. Stale in-progress reports are
// canceled and stale complete ones submitted. A stale unfinished review
// returns its report to the queue unless it already emitted actions, in
// which case it is closed like a finished one.
// Busy entries are skipped until the next sweep.
func (c *Coordinator) Sweep(now time.Time) []Notice {
	var notices []Notice

	if c.opts.ReportTimeout > 0 {
		c.mu.Lock()
		intakes := make(map[string]*intake, len(c.intakes))
		for k, v := range c.intakes {
			intakes[k] = v
		}
		c.mu.Unlock()

		for userID, in := range intakes {
			if !in.mu.TryLock() {
				continue
			}
			if !in.closed && now.Sub(in.wf.LastActive()) > c.opts.ReportTimeout {
				in.closed = true
				c.dropIntake(userID, in)
				if in.wf.Finish() {
					var res Result
					c.submit(in.wf.Report(), &res)
					notices = append(notices, res.Notices...)
					notices = append(notices, Notice{UserID: userID, Text: ReportAutoSubmitted})
				} else {
					in.wf.Cancel()
					c.log.Info("report timed out", "user", userID, "report", in.wf.Report().ID())
					notices = append(notices, Notice{UserID: userID, Text: ReportTimedOut})
				}
			}
			in.mu.Unlock()
		}
	}

	if c.opts.ReviewTimeout > 0 {
		c.mu.Lock()
		sessions := make(map[string]*session, len(c.sessions))
		for k, v := range c.sessions {
			sessions[k] = v
		}
		c.mu.Unlock()

		for moderatorID, ss := range sessions {
			if !ss.mu.TryLock() {
				continue
			}
			if !ss.closed && now.Sub(ss.s.LastActive()) > c.opts.ReviewTimeout {
				ss.closed = true
				c.dropSession(moderatorID, ss)
				r := ss.s.Report()
				switch {
				case ss.s.Complete():
					notices = append(notices, Notice{ChannelID: ss.s.ChannelID(), Text: fmt.Sprintf("Review of report %s closed after inactivity.", r.ID())})
				case ss.acted:
					c.log.Info("review timed out after remediation", "moderator", moderatorID, "report", r.ID())
					notices = append(notices, Notice{ChannelID: ss.s.ChannelID(), Text: fmt.Sprintf(reviewAbandonedFormat, r.ID())})
				default:
					if err := c.queue.Push(r); err != nil {
						c.log.Error("requeue report", "report", r.ID(), "error", err)
					}
					c.log.Info("review timed out", "moderator", moderatorID, "report", r.ID())
					notices = append(notices, Notice{ChannelID: ss.s.ChannelID(), Text: fmt.Sprintf("Review of report %s timed out; it is back in the queue.", r.ID())})
				}
			}
			ss.mu.Unlock()
		}
	}

	return notices
}
