// Package screen assesses posts in the monitored channel by comparing an
// LLM verdict with the crowd-sourced fact-check verdict.
package screen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/modwatch/internal/consensus"
	"github.com/ppiankov/modwatch/internal/model"
)

// Moderator-channel lines
const (
	UnclearNotice  = "It is unclear whether this post is misinformation, please evaluate as necessary."
	evidenceHeader = "Here are similar fact-checked statements from Google FactCheck API that support this decision: "
)

// Detector is the LLM side of the assessment
type Detector interface {
	Detect(ctx context.Context, statement string) (model.Verdict, string)
	ClassifyType(ctx context.Context, statement string) (model.MisinfoType, bool)
}

// Checker is the evidence side of the assessment
type Checker interface {
	Check(ctx context.Context, claim string) consensus.Result
}

// Assessment is the combined view of one post
type Assessment struct {
	LLMVerdict model.Verdict
	LLMReason  string
	LLMType    model.MisinfoType // Set only when the LLM says misinformation
	Evidence   consensus.Result
}

// Agreed reports whether both sides reached the same decisive verdict.
// Two Unclear verdicts do not count as agreement: the moderators get the
// evaluate notice rather than "likely Unclear".
func (a Assessment) Agreed() bool {
	return a.LLMVerdict == a.Evidence.Verdict && a.LLMVerdict != model.VerdictUnclear
}

// Remove reports whether the post should be taken down
func (a Assessment) Remove() bool {
	return a.Agreed() && a.LLMVerdict == model.VerdictMisinformation
}

// Summary renders the verdicts and the supporting evidence
func (a Assessment) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "**LLM conclusion**: %s\n**LLM reason**: %s\n", a.LLMVerdict, a.LLMReason)
	if a.LLMType != "" {
		fmt.Fprintf(&b, "**LLM Misinformation Type**: %s\n", a.LLMType)
	}
	fmt.Fprintf(&b, "**Crowd Source Fact Check conclusion**: %s\n%s\n", a.Evidence.Verdict, evidenceHeader)
	for _, line := range a.Evidence.Lines() {
		fmt.Fprintf(&b, "• %s\n", line)
	}
	return b.String()
}

// Conclusion is the closing line: agreement or a request to evaluate
func (a Assessment) Conclusion() string {
	if a.Agreed() {
		return fmt.Sprintf("This post is likely %s based on agreement between multiple sources.", a.LLMVerdict)
	}
	return UnclearNotice
}

// Lines returns the moderator-channel messages in posting order
func (a Assessment) Lines() []string {
	return []string{a.Summary(), a.Conclusion()}
}

// Header introduces a screened post in the moderator channel
func Header(author, content string) string {
	return fmt.Sprintf("New post by user `%s`\n\"%s\"\n\n", author, content)
}

// Screener runs both sides of an assessment concurrently
type Screener struct {
	detector Detector
	checker  Checker
	log      *slog.Logger
}

// NewScreener creates a screener
func NewScreener(detector Detector, checker Checker, logger *slog.Logger) *Screener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Screener{detector: detector, checker: checker, log: logger}
}

// Assess evaluates text. Both sides degrade to Unclear on failure, so the
// only error is context cancellation.
func (s *Screener) Assess(ctx context.Context, text string) (Assessment, error) {
	var a Assessment

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.LLMVerdict, a.LLMReason = s.detector.Detect(gctx, text)
		if a.LLMVerdict == model.VerdictMisinformation {
			if t, ok := s.detector.ClassifyType(gctx, text); ok {
				a.LLMType = t
			}
		}
		return nil
	})
	g.Go(func() error {
		a.Evidence = s.checker.Check(gctx, text)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}

	s.log.Debug("post assessed",
		"llm", a.LLMVerdict,
		"evidence", a.Evidence.Verdict,
		"records", len(a.Evidence.Evidence),
		"remove", a.Remove())
	return a, nil
}
