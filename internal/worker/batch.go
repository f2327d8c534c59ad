package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/modwatch/internal/consensus"
)

// Classifier classifies a single claim
type Classifier interface {
	Check(ctx context.Context, claim string) consensus.Result
}

// ClaimJob classifies one claim of a batch
type ClaimJob struct {
	Index      int
	Claim      string
	Classifier Classifier
}

// Execute executes the claim job
func (j *ClaimJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &ClaimResult{Index: j.Index, Claim: j.Claim, Error: err}
	}
	return &ClaimResult{
		Index:  j.Index,
		Claim:  j.Claim,
		Result: j.Classifier.Check(ctx, j.Claim),
	}
}

// ClaimResult is the outcome of a claim job. Degraded classifications are
// not errors; Error is only set when the job never ran.
type ClaimResult struct {
	Index  int
	Claim  string
	Result consensus.Result
	Error  error
}

// GetError returns the error from the claim result
func (r *ClaimResult) GetError() error {
	return r.Error
}

// BatchClassifier classifies many claims concurrently
type BatchClassifier struct {
	classifier  Classifier
	concurrency int
}

// NewBatchClassifier creates a new batch classifier
func NewBatchClassifier(classifier Classifier, concurrency int) *BatchClassifier {
	return &BatchClassifier{
		classifier:  classifier,
		concurrency: concurrency,
	}
}

// ProcessClaims classifies claims and returns results in input order
func (b *BatchClassifier) ProcessClaims(ctx context.Context, claims []string) []*ClaimResult {
	if len(claims) == 0 {
		return []*ClaimResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, claim := range claims {
			job := &ClaimJob{Index: i, Claim: claim, Classifier: b.classifier}
			if !pool.Submit(job) {
				return
			}
		}
	}()

	results := make([]*ClaimResult, len(claims))
	collect := func(r Result) {
		res := r.(*ClaimResult)
		results[res.Index] = res
	}
collecting:
	for {
		select {
		case r, ok := <-pool.Results():
			if !ok {
				break collecting
			}
			collect(r)
		case <-ctx.Done():
			pool.Shutdown()
			for r := range pool.Results() {
				collect(r)
			}
			break collecting
		}
	}

	// Jobs dropped by cancellation still get a slot
	for i, res := range results {
		if res == nil {
			results[i] = &ClaimResult{Index: i, Claim: claims[i], Error: context.Canceled}
			if err := ctx.Err(); err != nil {
				results[i].Error = err
			}
		}
	}

	return results
}

// ProcessFile reads claims from a file and classifies them concurrently
func (b *BatchClassifier) ProcessFile(ctx context.Context, filePath string) ([]*ClaimResult, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	return b.ProcessClaims(ctx, claims), nil
}

// ReadClaimsFromFile reads claims from a file (one per line)
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
