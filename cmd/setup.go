package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/secmon/pkg/config"
	"github.com/user/secmon/pkg/llm"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		out := cmd.OutOrStdout()
		ask := func(prompt string) string {
			fmt.Fprint(out, prompt)
			scanner.Scan()
			return strings.TrimSpace(scanner.Text())
		}

		fmt.Fprintln(out, "Welcome to secmon Setup Wizard")
		fmt.Fprintln(out, "------------------------------")

		// 1. Project
		fmt.Fprintln(out, "Step 1: Google Cloud project")
		project := ask("Project ID > ")
		location := ask("Location (e.g. us-central1) > ")

		// 2. API key
		fmt.Fprintln(out, "\nStep 2: Enter your Gemini API Key")
		apiKey := ask("> ")
		if apiKey == "" {
			return fmt.Errorf("API Key cannot be empty")
		}

		// 3. Fetch models
		fmt.Fprintln(out, "\nStep 3: Validating key and fetching available models...")
		ctx := context.Background()

		selectedModel := llm.DefaultModel
		provider, err := llm.NewProvider(ctx, "gemini", apiKey, "")
		if err != nil {
			return fmt.Errorf("error initializing provider: %w", err)
		}
		defer provider.Close()

		models, err := provider.ListModels(ctx)
		if err != nil || len(models) == 0 {
			fmt.Fprintf(out, "Warning: Could not fetch models from API: %v\n", err)
			if m := ask(fmt.Sprintf("Model name [%s] > ", llm.DefaultModel)); m != "" {
				selectedModel = m
			}
		} else {
			fmt.Fprintf(out, "Successfully retrieved %d models.\n", len(models))
			for i, m := range models {
				fmt.Fprintf(out, "%d. %s\n", i+1, m)
			}
			selIdx, err := strconv.Atoi(ask("Select Model (number) > "))
			if err != nil || selIdx < 1 || selIdx > len(models) {
				fmt.Fprintf(out, "Invalid selection. Using %s.\n", llm.DefaultModel)
			} else {
				selectedModel = models[selIdx-1]
			}
		}

		// 4. Save
		fmt.Fprintln(out, "\nStep 4: Saving Configuration...")
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		cfg.ProjectID = project
		cfg.Location = location
		cfg.SelectedModel = selectedModel
		cfg.SetAPIKey(cfg.Provider(), apiKey)

		if err := config.SaveConfig(configPath, cfg); err != nil {
			return fmt.Errorf("error saving config: %w", err)
		}

		fmt.Fprintln(out, "------------------------------")
		fmt.Fprintln(out, "Setup Complete!")
		fmt.Fprintf(out, "Project:  %s\n", project)
		fmt.Fprintf(out, "Location: %s\n", location)
		fmt.Fprintf(out, "Model:    %s\n", selectedModel)
		fmt.Fprintln(out, "You can now run 'secmon simulate'")
		return nil
	},
}

func init() {
	configCmd.AddCommand(setupCmd)
}
