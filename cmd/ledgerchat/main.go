// Command ledgerchat is an accounting assistant: it answers fiscal questions grounded
// in reference URLs, uploaded documents and the active company profile.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ledgerchat/internal/assistant"
	"ledgerchat/internal/config"
	"ledgerchat/internal/knowledge"
	"ledgerchat/internal/llm"
	"ledgerchat/internal/logging"
	"ledgerchat/internal/usage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Built in PersistentPreRunE
	cfg     *config.Config
	logger  *zap.Logger
	store   *knowledge.Store
	service *assistant.Service
	tracker *usage.Tracker
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ledgerchat",
	Short: "ledgerchat - AI assistant for accounting and fiscal questions",
	Long: `ledgerchat answers accounting and fiscal questions grounded in reference URLs,
uploaded documents and the active company profile.

Run "ledgerchat serve" to start the HTTP API, or use ask, suggest and mindmap
for one-shot requests from the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		logger, err = logging.Initialize(cfg.Logging, verbose)
		if err != nil {
			return err
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		client, err := llm.NewClient(cmd.Context(), cfg.LLM, cfg.GetLLMTimeout())
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}

		tracker = usage.NewTracker()
		store = knowledge.NewStore(knowledge.OptionsFromConfig(cfg.Knowledge))
		service = assistant.New(
			llm.NewExecutor(tracker.Wrap(client), cfg.LLM.FallbackModel),
			assistant.PoliciesFromConfig(cfg.Retry),
			cfg.LLM.Model,
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if tracker != nil {
			if st := tracker.Stats(); st.Total.Calls > 0 {
				logging.Boot("provider calls=%d failures=%d tokens=%d", st.Total.Calls, st.Total.Failures, st.Total.Total)
			}
		}
		if logger != nil {
			_ = logging.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ledgerchat.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(mindmapCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
