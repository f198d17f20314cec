package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var setupIndexCmd = &cobra.Command{
	Use:   "setup-index",
	Short: "Create the full-text index and sync triggers",
	Long: `Creates citation_fts and its insert, delete and update triggers if they
are missing, and fills the index from existing citations when it is empty.
Safe to run repeatedly.`,
	Args: cobra.NoArgs,
	RunE: runSetupIndex,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and maintain the full-text index",
}

var indexInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show citation and index entry counts",
	Args:  cobra.NoArgs,
	RunE:  runIndexInfo,
}

var indexVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the index against the citation table",
	Args:  cobra.NoArgs,
	RunE:  runIndexVerify,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Regenerate every index entry from the citation table",
	Args:  cobra.NoArgs,
	RunE:  runIndexRebuild,
}

func init() {
	indexCmd.AddCommand(indexInfoCmd, indexVerifyCmd, indexRebuildCmd)
	rootCmd.AddCommand(setupIndexCmd, indexCmd)
}

func runSetupIndex(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer e.Close()

	report, err := e.store.SetupIndex(cmd.Context())
	if err != nil {
		return err
	}

	if report.Created {
		cmd.Println("Created citation_fts.")
	} else {
		cmd.Println("citation_fts already exists.")
	}
	cmd.Printf("Backfilled %d citation(s).\n", report.Backfilled)
	return nil
}

func runIndexInfo(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer e.Close()

	info, err := e.store.Info(cmd.Context())
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index info: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func runIndexVerify(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.store.Verify(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Index is consistent.")
	return nil
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.store.Rebuild(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Index rebuilt.")
	return nil
}
