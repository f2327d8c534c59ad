package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/modwatch/internal/cache"
	"github.com/ppiankov/modwatch/internal/discord"
	"github.com/ppiankov/modwatch/internal/moderation"
)

var noScreen bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and serve reports, reviews and screening",
	Long: `Run connects the bot to Discord and serves three surfaces:

- Direct messages: the guided report dialog ('report', 'cancel', 'help')
- Moderator channel: 'list-reports', 'review-urgent-report',
  'review-report <id>', 'finish-report'
- Monitored channel: every post is screened and summarized for moderators

Example:
  modwatch run
  modwatch run --monitor-channel group-1 --mod-channel group-1-mod
  MODWATCH_LLM_PROVIDER=openai modwatch run`,
	Args: cobra.NoArgs,
	RunE: runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("monitor-channel", "", "channel id or name whose posts are screened")
	runCmd.Flags().String("mod-channel", "", "channel id or name where moderators work")
	runCmd.Flags().String("ledger", "", "remediation ledger (memory, redis)")
	runCmd.Flags().BoolVar(&noScreen, "no-screen", false, "disable screening of the monitored channel")

	_ = viper.BindPFlag("discord.monitor_channel", runCmd.Flags().Lookup("monitor-channel"))
	_ = viper.BindPFlag("discord.mod_channel", runCmd.Flags().Lookup("mod-channel"))
	_ = viper.BindPFlag("moderation.ledger", runCmd.Flags().Lookup("ledger"))
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger := newLogger(verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}
	client := discord.NewSessionClient(session)

	ledger, err := moderation.NewLedger(cfg.Moderation)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if closer, ok := ledger.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	coord := moderation.NewCoordinator(discord.NewResolver(client), ledger, moderation.OptionsFromConfig(cfg.Moderation, logger))

	var assessor discord.Assessor
	if !noScreen {
		screener, err := buildScreener(cfg, cache.New(cfg.Cache), logger)
		if err != nil {
			return fmt.Errorf("screening: %w (use --no-screen to run without it)", err)
		}
		assessor = screener
	}

	logger.Info("starting bot",
		"monitor_channel", cfg.Discord.MonitorChannel,
		"mod_channel", cfg.Discord.ModChannel,
		"ledger", cfg.Moderation.Ledger,
		"screening", assessor != nil)

	bot := discord.NewBot(session, client, coord, assessor, cfg.Discord, logger)
	return bot.Run(ctx)
}
