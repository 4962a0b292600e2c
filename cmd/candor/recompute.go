package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute a company's Candor Score",
	Long:  "Recomputes the Candor Score for a single company as of now, records a snapshot, and prints it as JSON.",
	RunE:  runRecompute,
}

var recomputeCompany string

func init() {
	recomputeCmd.Flags().StringVar(&recomputeCompany, "company", "", "Company UUID (required)")

	if err := recomputeCmd.MarkFlagRequired("company"); err != nil {
		panic(fmt.Sprintf("failed to mark company flag as required: %v", err))
	}

	rootCmd.AddCommand(recomputeCmd)
}

func runRecompute(_ *cobra.Command, _ []string) error {
	companyID, err := uuid.Parse(recomputeCompany)
	if err != nil {
		return fmt.Errorf("invalid company ID %s: %w", recomputeCompany, err)
	}

	ctx := context.Background()
	c, err := build(ctx, false)
	if err != nil {
		return err
	}
	defer c.close()

	snapshot, err := c.aggregator.Recompute(ctx, companyID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to recompute score: %w", err)
	}

	jsonOutput, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot to JSON: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(jsonOutput))

	return nil
}
