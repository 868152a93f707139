package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/secmon/pkg/analysis"
	"github.com/user/secmon/pkg/simulator"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Send a sample finding to Gemini to verify the integration",
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

		f, _ := simulator.Lookup("public_bucket")
		prompt, err := analysis.BuildConnectivityPrompt(f)
		if err != nil {
			return err
		}

		text, genErr := provider.Generate(ctx, prompt)

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "\n===== GEMINI API TEST RESULTS =====")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Time: %s\n", time.Now().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Model: %s\n", provider.ModelName())

		switch {
		case genErr != nil:
			fmt.Fprintln(out, "Status: FAILED - API error")
			fmt.Fprintf(out, "Error: %v\n", genErr)
			return fmt.Errorf("gemini integration check failed: %w", genErr)
		case text == "":
			fmt.Fprintln(out, "Status: FAILED - Empty response")
			fmt.Fprintln(out, "\nNo response received from Gemini API.")
			return fmt.Errorf("gemini integration check failed: empty response")
		default:
			fmt.Fprintln(out, "Status: SUCCESS - API is working!")
			fmt.Fprintln(out, "\n===== SAMPLE SECURITY ASSESSMENT =====")
			fmt.Fprintln(out)
			fmt.Fprintln(out, text)
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
