package llm

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/ppiankov/modwatch/internal/model"
)

// ResponseFailed is the rationale returned whenever detection fails
const ResponseFailed = "response failed"

// detectionPattern is the only accepted shape of a detection answer
var detectionPattern = regexp.MustCompile(`^(Misinformation|Not-misinformation|Unclear): (.*)`)

const detectionSystem = "You are a misinformation detection bot. Determine if each statement is misinformation or not. " +
	"Answer with exactly one of Misinformation, Not-misinformation or Unclear, then a colon and a short rationale. " +
	"Provide a URL to support this evidence if available. Do not make up facts."

// detectionExamples prime the answer format
var detectionExamples = []Message{
	{Role: RoleUser, Content: "Climate change is a hoax by the left wing media."},
	{Role: RoleAssistant, Content: "Misinformation: scientific research by reputable sources has shown that carbon emissions have changed modern climate conditions. Example url: https://www.factcheck.org/2022/08/unequivocal-evidence-that-humans-cause-climate-change-contrary-to-posts-of-old-video/"},
	{Role: RoleUser, Content: "The earth is round"},
	{Role: RoleAssistant, Content: "Not-misinformation: although the Earth is not perfectly round, numerous scientific measurements show it is approximately so. Example url: https://fullfact.org/online/earth-is-spherical-not-flat/"},
	{Role: RoleUser, Content: "My mother's name is Jasper"},
	{Role: RoleAssistant, Content: "Unclear: personal information cannot be confirmed or refuted by a detection bot."},
}

const typeSystem = "You classify misinformation. Reply with exactly one word: manipulated, fake, imposter or out-of-context."

// Detector asks a generative model for a verdict on a statement
type Detector struct {
	provider Provider
	log      *slog.Logger
}

// NewDetector creates a detector. A nil provider makes every answer Unclear.
func NewDetector(provider Provider, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{provider: provider, log: logger}
}

// Detect returns the model's verdict and rationale. Provider errors and
// answers that do not match the expected format give (Unclear, ResponseFailed).
func (d *Detector) Detect(ctx context.Context, statement string) (model.Verdict, string) {
	if d.provider == nil {
		return model.VerdictUnclear, ResponseFailed
	}

	messages := append([]Message{}, detectionExamples...)
	messages = append(messages, Message{Role: RoleUser, Content: statement})

	resp, err := d.provider.Complete(ctx, CompletionRequest{
		System:   detectionSystem,
		Messages: messages,
	})
	if err != nil {
		d.log.Warn("misinformation detection failed", "provider", d.provider.Name(), "error", err)
		return model.VerdictUnclear, ResponseFailed
	}

	match := detectionPattern.FindStringSubmatch(resp.Text)
	if match == nil {
		d.log.Warn("unparseable detection answer", "provider", d.provider.Name(), "answer", resp.Text)
		return model.VerdictUnclear, ResponseFailed
	}
	return model.Verdict(match[1]), match[2]
}

// ClassifyType asks which kind of misinformation statement is. The second
// result is false when the model is unavailable or names no known type.
func (d *Detector) ClassifyType(ctx context.Context, statement string) (model.MisinfoType, bool) {
	if d.provider == nil {
		return "", false
	}

	resp, err := d.provider.Complete(ctx, CompletionRequest{
		System:    typeSystem,
		Messages:  []Message{{Role: RoleUser, Content: statement}},
		MaxTokens: 10,
	})
	if err != nil {
		d.log.Warn("misinformation type classification failed", "provider", d.provider.Name(), "error", err)
		return "", false
	}

	return model.ParseMisinfoType(resp.Text)
}
