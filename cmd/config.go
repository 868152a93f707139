package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/user/secmon/pkg/config"
	"github.com/user/secmon/pkg/llm"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration (project, model, keys)",
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the Gemini API key in the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		if key == "" {
			return fmt.Errorf("--key is required")
		}

		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		cfg.SetAPIKey(cfg.Provider(), key)
		if err := config.SaveConfig(configPath, cfg); err != nil {
			return fmt.Errorf("error saving config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API key saved for provider: %s\n", cfg.Provider())
		return nil
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model",
	Short: "Set the project, location and model",
	RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")
		project, _ := cmd.Flags().GetString("project")
		location, _ := cmd.Flags().GetString("location")

		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		if model != "" {
			cfg.SelectedModel = model
		}
		if project != "" {
			cfg.ProjectID = project
		}
		if location != "" {
			cfg.Location = location
		}

		if err := config.SaveConfig(configPath, cfg); err != nil {
			return fmt.Errorf("error saving config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active configuration updated: Project=%s, Location=%s, Model=%s\n",
			cfg.ProjectID, cfg.Location, cfg.SelectedModel)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		masked := *cfg
		masked.Providers = make(map[string]config.ProviderConfig, len(cfg.Providers))
		for name, p := range cfg.Providers {
			masked.Providers[name] = config.ProviderConfig{APIKey: maskKey(p.APIKey)}
		}

		out, err := yaml.Marshal(&masked)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List available Gemini models",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		provider, err := newGenerator(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer provider.Close()

		var lister llm.ModelLister = provider
		models, err := lister.ListModels(ctx)
		if err != nil {
			return fmt.Errorf("error fetching models: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nAvailable Models (%s):\n", cfg.Provider())
		for _, m := range models {
			mark := " "
			if m == cfg.SelectedModel {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %s\n", mark, m)
		}
		return nil
	},
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func init() {
	setKeyCmd.Flags().StringP("key", "k", "", "API Key")

	setModelCmd.Flags().StringP("model", "m", "", "Model name")
	setModelCmd.Flags().String("project", "", "Google Cloud project ID")
	setModelCmd.Flags().String("location", "", "Google Cloud location")

	configCmd.AddCommand(setKeyCmd)
	configCmd.AddCommand(setModelCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(listModelsCmd)
	rootCmd.AddCommand(configCmd)
}
