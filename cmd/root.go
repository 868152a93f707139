package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/secmon/pkg/analysis"
	"github.com/user/secmon/pkg/config"
	"github.com/user/secmon/pkg/llm"
	"github.com/user/secmon/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "secmon",
	Short: "AI-assisted triage of Security Command Center findings",
	Long: `secmon receives Security Command Center finding notifications, keeps the
HIGH and CRITICAL ones and asks Gemini for a security assessment of each.`,
	SilenceUsage: true,
}

var (
	DebugMode  bool
	configPath string
	envFile    string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	defaultPath, _ := config.GetConfigPath()

	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a KEY=value environment file")
}

// loadConfig resolves configuration and installs the default logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Loader{Path: configPath, EnvFile: envFile}.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config: %w", err)
	}

	level := cfg.LogLevel
	if DebugMode {
		level = "debug"
	}
	logger := logging.Setup(os.Stderr, level, cfg.LogFormat)
	return cfg, logger, nil
}

// newGenerator validates the credential and connects to the model. The
// caller must Close the returned provider.
func newGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*llm.GeminiProvider, error) {
	if err := cfg.Validate(); err != nil {
		logger.Error("startup aborted", "error", err)
		return nil, fmt.Errorf("%w: set it in the environment, %s or run 'secmon config set-key'", err, envFile)
	}

	provider, err := llm.NewProvider(ctx, cfg.Provider(), cfg.APIKey(), cfg.SelectedModel)
	if err != nil {
		return nil, fmt.Errorf("error creating AI provider: %w", err)
	}
	logger.Debug("model client ready",
		"provider", cfg.Provider(),
		"model", provider.ModelName(),
		"project_id", cfg.ProjectID,
		"location", cfg.Location,
	)
	return provider, nil
}

func newRequester(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*analysis.Requester, func(), error) {
	provider, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := provider.Close(); err != nil {
			logger.Warn("failed to close model client", "error", err)
		}
	}
	return analysis.NewRequester(provider, logger), closeFn, nil
}
