package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/user/secmon/pkg/simulator"
)

var simulateFinding string

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Analyse a built-in sample finding locally",
	Long: `simulate sends one of the built-in sample findings straight to Gemini,
bypassing the severity filter, and writes the result to
<results_dir>/<finding_type>_analysis_<YYYYMMDD_HHMMSS>.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		findingType := simulateFinding
		if findingType == "" {
			simulator.PrintMenu(out)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprint(out, "\nEnter the number of the finding type to simulate (or 'q' to quit): ")
			if !scanner.Scan() {
				fmt.Fprintln(out, "\nSimulation cancelled.")
				return nil
			}

			choice, err := simulator.ParseChoice(scanner.Text())
			if errors.Is(err, simulator.ErrQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintln(out, err)
				return nil
			}
			findingType = choice
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		requester, closeFn, err := newRequester(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		_, res, err := simulator.New(requester, cfg.ResultsDir, logger).Run(ctx, findingType)
		if err != nil {
			return err
		}

		if res.OK() {
			fmt.Fprintln(out, "\n===== GEMINI AI SECURITY ASSESSMENT =====")
			fmt.Fprintln(out)
			fmt.Fprintln(out, res.AIAnalysis)
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().StringVarP(&simulateFinding, "finding", "f", "", "Sample finding type to analyse (skips the menu)")
	rootCmd.AddCommand(simulateCmd)
}
