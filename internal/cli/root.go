package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rohmanhakim/domain-crawler/internal/config"
	"github.com/rohmanhakim/domain-crawler/internal/frontier"
	"github.com/rohmanhakim/domain-crawler/internal/scheduler"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "domain-crawler",
	Short: "A single-domain web crawler with a shared Redis frontier.",
	Long: `domain-crawler visits every reachable page on the registrable domain
of a seed URL and prints each visited page together with its same-domain
links. Any number of crawler processes may run concurrently against the
same Redis instance; the shared frontier guarantees that no URL is
visited twice across the whole fleet.

All configuration comes from a YAML file and the REDIS_HOST, REDIS_PORT,
MDC_QUEUE_KEY, MDC_VISITED_SET_KEY and MDC_BRPOP_TIMEOUT environment
overrides; the command takes no positional arguments.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			logger.Error().Err(err).Str("path", cfgFile).Msg("configuration failed")
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		crawlFrontier := frontier.NewRedisFrontier(
			frontier.NewRedisClient(cfg),
			cfg.QueueKey(),
			cfg.VisitedSetKey(),
		)
		defer crawlFrontier.Close()

		sched := scheduler.NewScheduler(cfg, crawlFrontier, logger)
		if _, err := sched.ExecuteCrawling(ctx); err != nil {
			logger.Error().Err(err).Msg("crawl failed to start")
			return err
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main() and only needs to happen
// once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"path to the YAML configuration file",
	)
}
