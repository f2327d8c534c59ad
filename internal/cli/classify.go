package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/modwatch/internal/cache"
	"github.com/ppiankov/modwatch/internal/consensus"
	"github.com/ppiankov/modwatch/internal/model"
)

var (
	classifyTimeout time.Duration
	classifyJSON    bool
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify <statement>",
	Short: "Screen a single statement the way monitored posts are screened",
	Long: `Classify runs one statement through the LLM detector and the
crowd-sourced fact-check consensus, then prints the moderator summary.

Example:
  modwatch classify "The earth is flat"
  modwatch classify --json "Vaccines cause autism"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().DurationVar(&classifyTimeout, "timeout", 2*time.Minute, "overall timeout")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print the assessment as JSON")
	classifyCmd.Flags().String("source", "", "evidence source (google, claimbuster)")
	classifyCmd.Flags().String("strategy", "", "stance strategy (entailment, sentiment)")

	_ = viper.BindPFlag("factcheck.source", classifyCmd.Flags().Lookup("source"))
	_ = viper.BindPFlag("factcheck.strategy", classifyCmd.Flags().Lookup("strategy"))
}

// assessmentJSON is the --json shape of an assessment
type assessmentJSON struct {
	LLMVerdict model.Verdict     `json:"llm_verdict"`
	LLMReason  string            `json:"llm_reason"`
	LLMType    model.MisinfoType `json:"llm_type,omitempty"`
	Evidence   consensus.Result  `json:"evidence"`
	Agreed     bool              `json:"agreed"`
	Remove     bool              `json:"remove"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	statement := strings.Join(args, " ")
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger := newLogger(verbose)

	ctx, cancel := context.WithTimeout(context.Background(), classifyTimeout)
	defer cancel()

	screener, err := buildScreener(cfg, cache.New(cfg.Cache), logger)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Screening: %q\n", statement)
	}
	a, err := screener.Assess(ctx, statement)
	if err != nil {
		return fmt.Errorf("classify failed: %w", err)
	}
	if a.Evidence.Degraded != nil {
		fmt.Fprintf(os.Stderr, "⚠ evidence degraded: %v\n", a.Evidence.Degraded)
	}

	if classifyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(assessmentJSON{
			LLMVerdict: a.LLMVerdict,
			LLMReason:  a.LLMReason,
			LLMType:    a.LLMType,
			Evidence:   a.Evidence,
			Agreed:     a.Agreed(),
			Remove:     a.Remove(),
		})
	}

	for _, line := range a.Lines() {
		fmt.Println(line)
	}
	return nil
}
