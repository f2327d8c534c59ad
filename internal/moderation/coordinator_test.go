package moderation

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/modwatch/internal/dialog"
	"github.com/ppiankov/modwatch/internal/report"
	"github.com/ppiankov/modwatch/internal/review"
)

const testLink = "https://discord.com/channels/111/222/333"

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, guildID, channelID, messageID string) (dialog.MessageRef, error) {
	return dialog.MessageRef{
		GuildID:   guildID,
		ChannelID: channelID,
		MessageID: messageID,
		AuthorID:  "42",
		Author:    "flatearther",
		Content:   "The earth is flat",
	}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCoordinator(t *testing.T) (*Coordinator, *MemoryLedger, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)}
	ledger := NewMemoryLedger()
	c := NewCoordinator(fakeResolver{}, ledger, Options{
		ReportTimeout: 30 * time.Minute,
		ReviewTimeout: time.Hour,
		Suspension:    24 * time.Hour,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:           clk.Now,
	})
	return c, ledger, clk
}

// completeReport drives a fake-content report to the complete state
func completeReport(t *testing.T, c *Coordinator, userID string) {
	t.Helper()
	ctx := context.Background()
	for _, ev := range []dialog.Event{
		dialog.Typed("report"),
		dialog.Typed(testLink),
		dialog.Selected(report.StepAbuseType, report.LabelFake),
		dialog.Selected(report.StepCounterEvidence, report.LabelNo),
		dialog.Selected(report.StepIntent, report.LabelNo),
		dialog.Selected(report.StepBlock, report.LabelNo),
	} {
		c.HandleDirect(ctx, userID, "reporter-"+userID, ev)
	}
	if !c.HasReport(userID) {
		t.Fatalf("expected report in progress for %s", userID)
	}
}

func submitReport(t *testing.T, c *Coordinator, userID string) Result {
	t.Helper()
	completeReport(t, c, userID)
	return c.HandleDirect(context.Background(), userID, "reporter-"+userID, dialog.Typed("done"))
}

func hasText(resp dialog.Response, sub string) bool {
	for _, text := range resp.Texts() {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}

func TestHandleDirect_Help(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	res := c.HandleDirect(context.Background(), "7", "reporter", dialog.Typed("help"))
	if !hasText(res.Reply, "`report` command") {
		t.Errorf("expected help text, got %v", res.Reply.Texts())
	}
	if c.HasReport("7") {
		t.Error("help should not start a report")
	}
}

func TestHandleDirect_IgnoresChatterWithoutReport(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	res := c.HandleDirect(context.Background(), "7", "reporter", dialog.Typed("hello there"))
	if len(res.Reply.Turns) != 0 {
		t.Errorf("expected no reply, got %v", res.Reply.Texts())
	}
}

func TestHandleDirect_SubmitOnDone(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	completeReport(t, c, "7")
	if c.Queue().Len() != 0 {
		t.Fatal("report should not be queued before done")
	}

	res := c.HandleDirect(context.Background(), "7", "reporter", dialog.Typed("done"))
	if !hasText(res.Reply, report.FinishedMessage) {
		t.Errorf("expected finished message, got %v", res.Reply.Texts())
	}
	if c.HasReport("7") {
		t.Error("finished report should be removed")
	}
	if c.Queue().Len() != 1 {
		t.Fatalf("expected 1 queued report, got %d", c.Queue().Len())
	}
	if len(res.Notices) != 1 || res.Notices[0].Text != NewReportNotice {
		t.Errorf("expected moderator notice, got %+v", res.Notices)
	}
}

func TestHandleDirect_CancelDropsReport(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	c.HandleDirect(ctx, "7", "reporter", dialog.Typed("report"))
	res := c.HandleDirect(ctx, "7", "reporter", dialog.Typed("cancel"))
	if !hasText(res.Reply, report.CanceledMessage) {
		t.Errorf("expected cancel message, got %v", res.Reply.Texts())
	}
	if c.HasReport("7") || c.Queue().Len() != 0 {
		t.Error("canceled report should be dropped, not queued")
	}
}

func TestHandleDirect_SuspendedReporter(t *testing.T) {
	c, ledger, _ := newTestCoordinator(t)
	if err := ledger.Suspend(context.Background(), "7", time.Hour); err != nil {
		t.Fatal(err)
	}

	res := c.HandleDirect(context.Background(), "7", "reporter", dialog.Typed("report"))
	if !hasText(res.Reply, SuspendedMessage) {
		t.Errorf("expected suspension reply, got %v", res.Reply.Texts())
	}
	if c.HasReport("7") {
		t.Error("suspended user should not start a report")
	}
}

func TestHandleModerator_ListAndEmpty(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	res := c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("list-reports"))
	if !hasText(res.Reply, EmptyQueueMessage) {
		t.Errorf("expected empty queue, got %v", res.Reply.Texts())
	}
	res = c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("review-urgent-report"))
	if !hasText(res.Reply, EmptyQueueMessage) {
		t.Errorf("expected empty queue, got %v", res.Reply.Texts())
	}
	if c.HasReview("mod") {
		t.Error("no session expected on empty queue")
	}

	submitReport(t, c, "7")
	res = c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("list-reports"))
	if !hasText(res.Reply, "(#1) -- ID: ") {
		t.Errorf("expected queue listing, got %v", res.Reply.Texts())
	}
}

func TestHandleModerator_OneReviewAtATime(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	submitReport(t, c, "7")
	submitReport(t, c, "8")

	res := c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("review-urgent-report"))
	if !hasText(res.Reply, "full report transcript") {
		t.Fatalf("expected transcript, got %v", res.Reply.Texts())
	}
	if c.Queue().Len() != 1 {
		t.Fatalf("expected 1 report left, got %d", c.Queue().Len())
	}

	res = c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("review-urgent-report"))
	if !hasText(res.Reply, OneReviewMessage) {
		t.Errorf("expected rejection, got %v", res.Reply.Texts())
	}
	if c.Queue().Len() != 1 {
		t.Errorf("rejected review must leave the queue untouched, got %d", c.Queue().Len())
	}

	// A second moderator can claim the remaining report
	res = c.HandleModerator(ctx, "mod-2", "mod-chan", dialog.Typed("review-urgent-report"))
	if !hasText(res.Reply, "full report transcript") || c.Queue().Len() != 0 {
		t.Errorf("expected second moderator to claim the last report, got %v", res.Reply.Texts())
	}
}

func TestHandleModerator_ReviewByID(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	submitReport(t, c, "7")
	id := c.Queue().List()[0].ID

	res := c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("review-report nope"))
	if !hasText(res.Reply, "No queued report with ID nope.") {
		t.Errorf("expected unknown id reply, got %v", res.Reply.Texts())
	}

	c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("review-report "+id))
	if !c.HasReview("mod") || c.Queue().Len() != 0 {
		t.Error("expected report claimed by id")
	}
}

func TestHandleModerator_RemediationAndFinish(t *testing.T) {
	c, ledger, _ := newTestCoordinator(t)
	ctx := context.Background()
	submitReport(t, c, "7")

	res := c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("finish-report"))
	if !hasText(res.Reply, NoActiveReview) {
		t.Errorf("expected no active review, got %v", res.Reply.Texts())
	}

	c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("review-urgent-report"))
	res = c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("finish-report"))
	if !hasText(res.Reply, ReviewUnfinished) || !c.HasReview("mod") {
		t.Errorf("expected unfinished reply, got %v", res.Reply.Texts())
	}

	var actions []dialog.Action
	for _, ev := range []dialog.Event{
		dialog.Selected(review.StepFactualLink, report.LabelYes),
		dialog.Selected(review.StepViolation, report.LabelYes),
		dialog.Selected(review.StepDanger, report.LabelNo),
		dialog.Selected(review.StepRepeatOffender, report.LabelNo),
	} {
		res = c.HandleModerator(ctx, "mod", "mod-chan", ev)
		actions = append(actions, res.Reply.Actions...)
	}
	if len(actions) != 2 || actions[0].Kind != dialog.ActionDeleteMessage || actions[1].Kind != dialog.ActionWarnAccount {
		t.Errorf("unexpected actions: %+v", actions)
	}
	if n, _ := ledger.Strikes(ctx, "42"); n != 1 {
		t.Errorf("expected one strike per review, got %d", n)
	}

	res = c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("finish-report"))
	if !hasText(res.Reply, "is finished with review") {
		t.Errorf("expected finished reply, got %v", res.Reply.Texts())
	}
	if c.HasReview("mod") {
		t.Error("session should be closed")
	}

	// Next review of the same author shows the strike
	submitReport(t, c, "8")
	res = c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("review-urgent-report"))
	if !hasText(res.Reply, "1 prior violation") {
		t.Errorf("expected strike history, got %v", res.Reply.Texts())
	}
}

func TestHandleModerator_AdversarialSuspendsReporter(t *testing.T) {
	c, ledger, _ := newTestCoordinator(t)
	ctx := context.Background()
	submitReport(t, c, "7")

	c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("review-urgent-report"))
	c.HandleModerator(ctx, "mod", "mod-chan", dialog.Selected(review.StepFactualLink, report.LabelNo))
	c.HandleModerator(ctx, "mod", "mod-chan", dialog.Selected(review.StepViolation, report.LabelNo))
	c.HandleModerator(ctx, "mod", "mod-chan", dialog.Selected(review.StepAdversarial, report.LabelYes))

	if ok, _ := ledger.Suspended(ctx, "7"); !ok {
		t.Fatal("expected reporter to be suspended")
	}
	res := c.HandleDirect(ctx, "7", "reporter", dialog.Typed("report"))
	if !hasText(res.Reply, SuspendedMessage) {
		t.Errorf("expected suspension reply, got %v", res.Reply.Texts())
	}
}

func TestSweep_Reports(t *testing.T) {
	c, _, clk := newTestCoordinator(t)
	ctx := context.Background()

	c.HandleDirect(ctx, "stale", "reporter", dialog.Typed("report"))
	completeReport(t, c, "complete")

	clk.Advance(31 * time.Minute)
	c.HandleDirect(ctx, "fresh", "reporter", dialog.Typed("report"))

	notices := c.Sweep(clk.Now())

	if c.HasReport("stale") || c.HasReport("complete") {
		t.Error("stale reports should be swept")
	}
	if !c.HasReport("fresh") {
		t.Error("fresh report should survive the sweep")
	}
	if c.Queue().Len() != 1 {
		t.Errorf("expected the complete report to be submitted, got %d queued", c.Queue().Len())
	}

	got := map[string]string{}
	for _, n := range notices {
		if n.UserID != "" {
			got[n.UserID] = n.Text
		}
	}
	if got["stale"] != ReportTimedOut || got["complete"] != ReportAutoSubmitted {
		t.Errorf("unexpected notices: %+v", notices)
	}
}

func TestSweep_ReviewReturnsToQueue(t *testing.T) {
	c, _, clk := newTestCoordinator(t)
	ctx := context.Background()
	submitReport(t, c, "7")

	c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("review-urgent-report"))
	if c.Queue().Len() != 0 {
		t.Fatal("expected report claimed")
	}

	clk.Advance(2 * time.Hour)
	notices := c.Sweep(clk.Now())

	if c.HasReview("mod") {
		t.Error("stale review should be closed")
	}
	if c.Queue().Len() != 1 {
		t.Errorf("expected report back in the queue, got %d", c.Queue().Len())
	}
	if len(notices) != 1 || notices[0].ChannelID != "mod-chan" {
		t.Errorf("unexpected notices: %+v", notices)
	}
}

func TestSweep_ReviewWithActionsIsNotRequeued(t *testing.T) {
	c, ledger, clk := newTestCoordinator(t)
	ctx := context.Background()
	submitReport(t, c, "7")

	c.HandleModerator(ctx, "mod", "mod-chan", dialog.Typed("review-urgent-report"))
	var deletes int
	for _, ev := range []dialog.Event{
		dialog.Selected(review.StepFactualLink, report.LabelYes),
		dialog.Selected(review.StepViolation, report.LabelYes),
	} {
		res := c.HandleModerator(ctx, "mod", "mod-chan", ev)
		for _, a := range res.Reply.Actions {
			if a.Kind == dialog.ActionDeleteMessage {
				deletes++
			}
		}
	}
	if deletes != 1 {
		t.Fatalf("expected one delete action, got %d", deletes)
	}

	clk.Advance(2 * time.Hour)
	notices := c.Sweep(clk.Now())

	if c.HasReview("mod") {
		t.Error("stale review should be closed")
	}
	if c.Queue().Len() != 0 {
		t.Errorf("report with applied actions should not be requeued, got %d queued", c.Queue().Len())
	}
	if len(notices) != 1 || !strings.Contains(notices[0].Text, "not requeued") {
		t.Errorf("unexpected notices: %+v", notices)
	}

	res := c.HandleModerator(ctx, "mod-2", "mod-chan", dialog.Typed("review-urgent-report"))
	if !hasText(res.Reply, EmptyQueueMessage) {
		t.Errorf("expected empty queue, got %v", res.Reply.Texts())
	}
	if n, _ := ledger.Strikes(ctx, "42"); n != 1 {
		t.Errorf("expected a single strike for one post, got %d", n)
	}
}

func TestSweep_DisabledByZeroTimeout(t *testing.T) {
	c := NewCoordinator(fakeResolver{}, nil, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	c.HandleDirect(context.Background(), "7", "reporter", dialog.Typed("report"))

	if notices := c.Sweep(time.Now().Add(24 * time.Hour)); len(notices) != 0 {
		t.Errorf("expected no sweep, got %+v", notices)
	}
	if !c.HasReport("7") {
		t.Error("report should survive with timeouts disabled")
	}
}

func TestHandleDirect_ConcurrentReporters(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for _, ev := range []dialog.Event{
				dialog.Typed("report"),
				dialog.Typed(testLink),
				dialog.Selected(report.StepAbuseType, report.LabelFake),
				dialog.Selected(report.StepCounterEvidence, report.LabelNo),
				dialog.Selected(report.StepIntent, report.LabelNo),
				dialog.Selected(report.StepBlock, report.LabelYes),
				dialog.Typed("done"),
			} {
				c.HandleDirect(context.Background(), id, "reporter-"+id, ev)
			}
		}(id)
	}
	wg.Wait()

	if c.Queue().Len() != 6 {
		t.Errorf("expected 6 queued reports, got %d", c.Queue().Len())
	}
}
