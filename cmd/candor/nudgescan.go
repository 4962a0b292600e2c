package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var nudgeScanCmd = &cobra.Command{
	Use:   "nudge-scan",
	Short: "Draft nudges for candidates stuck in their pipeline stage",
	Long:  "Scans a company's active candidates for ones stalled past the nudge window, drafts a nudge for each, and submits every draft to the confidence gate.",
	RunE:  runNudgeScan,
}

var nudgeScanCompany string

func init() {
	nudgeScanCmd.Flags().StringVar(&nudgeScanCompany, "company", "", "Company UUID (required)")

	if err := nudgeScanCmd.MarkFlagRequired("company"); err != nil {
		panic(fmt.Sprintf("failed to mark company flag as required: %v", err))
	}

	rootCmd.AddCommand(nudgeScanCmd)
}

func runNudgeScan(_ *cobra.Command, _ []string) error {
	companyID, err := uuid.Parse(nudgeScanCompany)
	if err != nil {
		return fmt.Errorf("invalid company ID %s: %w", nudgeScanCompany, err)
	}

	ctx := context.Background()
	c, err := build(ctx, true)
	if err != nil {
		return err
	}
	defer c.close()

	drafts, err := c.engine.NudgeSweep(ctx, companyID, c.cfg.NudgeAfterDays)
	if err != nil {
		return fmt.Errorf("nudge sweep failed: %w", err)
	}

	queued := 0
	for _, draft := range drafts {
		wasQueued, err := c.gate.Submit(ctx, draft)
		if err != nil {
			return fmt.Errorf("failed to submit draft %s: %w", draft.ID, err)
		}
		if wasQueued {
			queued++
		}
	}

	fmt.Printf("Drafted %d nudges, %d queued for auto-send\n", len(drafts), queued)

	return nil
}
