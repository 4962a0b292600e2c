package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match talent-bank candidates against an open role",
	Long:  "Scores every talent-bank candidate against an open role, stores the matches above the minimum score, and prints them as JSON.",
	RunE:  runMatch,
}

var (
	matchCompany string
	matchRole    string
)

func init() {
	matchCmd.Flags().StringVar(&matchCompany, "company", "", "Company UUID (required)")
	matchCmd.Flags().StringVar(&matchRole, "role", "", "Role UUID (required)")

	if err := matchCmd.MarkFlagRequired("company"); err != nil {
		panic(fmt.Sprintf("failed to mark company flag as required: %v", err))
	}
	if err := matchCmd.MarkFlagRequired("role"); err != nil {
		panic(fmt.Sprintf("failed to mark role flag as required: %v", err))
	}

	rootCmd.AddCommand(matchCmd)
}

func runMatch(_ *cobra.Command, _ []string) error {
	companyID, err := uuid.Parse(matchCompany)
	if err != nil {
		return fmt.Errorf("invalid company ID %s: %w", matchCompany, err)
	}
	roleID, err := uuid.Parse(matchRole)
	if err != nil {
		return fmt.Errorf("invalid role ID %s: %w", matchRole, err)
	}

	ctx := context.Background()
	c, err := build(ctx, false)
	if err != nil {
		return err
	}
	defer c.close()

	matches, err := c.matcher.MatchRole(ctx, companyID, roleID)
	if err != nil {
		return fmt.Errorf("failed to match role: %w", err)
	}

	jsonOutput, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal matches to JSON: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(jsonOutput))

	return nil
}
