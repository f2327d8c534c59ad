package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/modwatch/internal/cache"
	"github.com/ppiankov/modwatch/internal/model"
	"github.com/ppiankov/modwatch/internal/worker"
)

var (
	concurrency  int
	outputJSON   string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Run the fact-check consensus over many claims in parallel",
	Long: `Batch classifies claims read from a file (one per line, '#' comments
and blank lines ignored) against crowd-sourced fact checks:
- Claims are processed in parallel with a configurable worker count
- Evidence requests share one rate limiter and cache
- A verdict and the supporting evidence are printed for each claim

Example:
  modwatch batch claims.txt
  modwatch batch claims.txt --concurrency 8 --json verdicts.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputJSON, "json", "", "write verdicts as JSON to this path")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

// batchEntry is one line of the --json output
type batchEntry struct {
	Claim    string                 `json:"claim"`
	Verdict  model.Verdict          `json:"verdict,omitempty"`
	Evidence []model.EvidenceRecord `json:"evidence,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}
	logger := newLogger(verbose)

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Source:       %s\n", cfg.FactCheck.Source)
	fmt.Fprintf(os.Stderr, "  Strategy:     %s\n", cfg.FactCheck.Strategy)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	checker, err := buildChecker(cfg, cache.New(cfg.Cache), logger)
	if err != nil {
		return err
	}

	processor := worker.NewBatchClassifier(checker, cfg.Concurrency.Workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	counts := map[model.Verdict]int{}
	failures := 0
	entries := make([]batchEntry, 0, len(results))

	for _, result := range results {
		if result.Error != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Claim, result.Error)
			entries = append(entries, batchEntry{Claim: result.Claim, Error: result.Error.Error()})
			continue
		}

		r := result.Result
		counts[r.Verdict]++
		entries = append(entries, batchEntry{Claim: result.Claim, Verdict: r.Verdict, Evidence: r.Evidence})

		fmt.Printf("%s: %s\n", r.Verdict, result.Claim)
		if verbose {
			for _, line := range r.Lines() {
				fmt.Printf("  • %s\n", line)
			}
		}
	}

	if outputJSON != "" {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal verdicts: %w", err)
		}
		if err := os.WriteFile(outputJSON, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", outputJSON, err)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:               %d claims\n", len(results))
	for _, v := range model.Verdicts() {
		fmt.Fprintf(os.Stderr, "  %-20s %d\n", string(v)+":", counts[v])
	}
	fmt.Fprintf(os.Stderr, "  Failures:            %d\n", failures)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
