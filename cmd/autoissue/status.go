package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/autoissue/autoissue/internal/history"
	"github.com/autoissue/autoissue/internal/session"
)

var statusSessionID string
var statusStateRoot string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the state of a session",
	Long: `Status loads a session's checkpoint file and prints how many issues
completed or failed, the cumulative cost spent, and the most recent
executions recorded in the supplementary history database, if one
exists at the same state root.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusSessionID, "session", "", "session id to report on (required)")
	statusCmd.Flags().StringVar(&statusStateRoot, "state-root", "", "directory holding session/history state (default <project.path>/.autoissue)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusSessionID == "" {
		return fmt.Errorf("--session is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stateRoot := statusStateRoot
	if stateRoot == "" {
		stateRoot = filepath.Join(cfg.Project.Path, ".autoissue")
	}

	store, err := session.Resume(stateRoot, statusSessionID)
	if err != nil {
		fmt.Printf("no session found for %q under %s\n", statusSessionID, stateRoot)
		return nil
	}
	state := store.State()

	fmt.Printf("session:     %s\n", state.SessionID)
	fmt.Printf("started:     %s\n", state.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("checkpoint:  %s\n", state.LastCheckpointAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("completed:   %d\n", len(state.CompletedIssueNumbers))
	fmt.Printf("failed:      %d\n", len(state.FailedIssueNumbers))
	fmt.Printf("total cost:  $%.2f\n", state.TotalCostUsd)

	if len(state.FailedIssueNumbers) > 0 {
		fmt.Printf("failed issues: %v\n", state.FailedIssueNumbers)
	}

	db, err := history.Open(history.DefaultPath(stateRoot))
	if err != nil {
		return nil
	}
	defer db.Close()

	executions, err := db.ForSession(statusSessionID)
	if err != nil || len(executions) == 0 {
		return nil
	}

	fmt.Println("\nrecent executions:")
	// ForSession returns executions newest first.
	if len(executions) > 10 {
		executions = executions[:10]
	}
	for _, e := range executions {
		reason := ""
		if e.ErrorKind != "" {
			reason = " (" + e.ErrorKind + ")"
		}
		fmt.Printf("  #%-5d %-10s %-8s $%.2f%s\n", e.IssueNumber, e.Domain, e.Outcome, e.CostUsd, reason)
	}

	return nil
}
