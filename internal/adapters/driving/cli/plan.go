package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/intentflow/internal/core/domain"
)

var planOutput string

var planCmd = &cobra.Command{
	Use:   "plan <intent>...",
	Short: "Create an intent and print its generated flows",
	Long: `Decompose an intent, finalize it, generate flows and print them.

The words of the intent are joined with spaces, so quoting is optional:
  intentflow plan book a weekend in Lisbon under 800 euros

Requires a configured LLM.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "diml", "output format: diml or json")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	if planOutput != "diml" && planOutput != "json" {
		return fmt.Errorf("unknown output format %q", planOutput)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	intent, err := a.intents.CreateIntent(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	intent, err = a.intents.FinalizeIntent(ctx, intent.IntentID)
	if err != nil {
		return err
	}
	flows, err := a.intents.GenerateFlows(ctx, intent.IntentID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if planOutput == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Intent *domain.Intent `json:"intent"`
			Flows  []domain.Flow  `json:"flows"`
		}{intent, flows})
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "intent %s: %s (%d flows)\n", intent.IntentID, intent.MainGoal.Objective, len(flows))
	for i := range flows {
		text, err := a.intents.ExportDIML(ctx, flows[i].ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
	}
	return nil
}
