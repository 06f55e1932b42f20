package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/autoissue/autoissue/internal/classifier"
	"github.com/autoissue/autoissue/internal/issuesource"
	"github.com/autoissue/autoissue/pkg/models"
)

var classifyFromFile string

var classifyCmd = &cobra.Command{
	Use:   "classify <issue-number>",
	Short: "Classify a single issue without running the executor",
	Long: `Classify fetches one issue (live from GitHub, or from a JSON fixture
file with --from-file) and prints the domain it was assigned plus the
reasons behind that decision, the same classification the run command
uses to decide compatibility and worker assignment.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyFromFile, "from-file", "", "classify an issue read from this JSON fixture instead of fetching live")
}

func runClassify(cmd *cobra.Command, args []string) error {
	var issueRecord models.IssueRecord

	switch {
	case classifyFromFile != "":
		data, err := os.ReadFile(classifyFromFile)
		if err != nil {
			return fmt.Errorf("read fixture: %w", err)
		}
		if err := json.Unmarshal(data, &issueRecord); err != nil {
			return fmt.Errorf("parse fixture: %w", err)
		}
	case len(args) == 1:
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("issue number must be an integer, got %q", args[0])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		source, err := issuesource.NewGitHubSource(cfg.Project.Repo, os.Getenv("GITHUB_TOKEN"))
		if err != nil {
			return fmt.Errorf("build issue source: %w", err)
		}

		issues, err := source.FetchIssues(cmd.Context(), issuesource.Filter{IssueNumbers: []int{number}})
		if err != nil {
			return fmt.Errorf("fetch issue #%d: %w", number, err)
		}
		if len(issues) == 0 {
			return fmt.Errorf("issue #%d not found", number)
		}
		issueRecord = issues[0]
	default:
		return fmt.Errorf("provide an issue number or --from-file")
	}

	result := classifier.Classify(issueRecord)

	fmt.Printf("issue #%d: %s\n", issueRecord.Number, issueRecord.Title)
	fmt.Printf("domain:     %s\n", result.Domain)
	fmt.Printf("confidence: %.2f\n", result.Confidence)
	fmt.Println("reasons:")
	for _, reason := range result.Reasons {
		fmt.Printf("  - %s\n", reason)
	}

	return nil
}
