package issuesource

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"

	"github.com/autoissue/autoissue/pkg/models"
)

// GitHubSource fetches open issues from a single owner/name repository via
// the GitHub REST API.
type GitHubSource struct {
	client *github.Client
	owner  string
	name   string
}

// NewGitHubSource builds a GitHubSource for repo ("owner/name"),
// authenticating with token via OAuth2 static token source. token may be
// empty for public repos under GitHub's unauthenticated rate limit.
func NewGitHubSource(repo, token string) (*GitHubSource, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		return nil, fmt.Errorf("issuesource: repo %q is not in owner/name form", repo)
	}

	var client *github.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	} else {
		client = github.NewClient(nil)
	}

	return &GitHubSource{client: client, owner: owner, name: name}, nil
}

// FetchIssues implements Source. When filter.Label is set, it lists all
// open issues carrying that label. When filter.IssueNumbers is set, it
// fetches each issue individually (GitHub's issue-list API has no
// "numbers in" filter). Pull requests returned by the list API (GitHub
// models PRs as issues) are excluded.
func (s *GitHubSource) FetchIssues(ctx context.Context, filter Filter) ([]models.IssueRecord, error) {
	if len(filter.IssueNumbers) > 0 {
		return s.fetchByNumbers(ctx, filter.IssueNumbers)
	}
	return s.fetchByLabel(ctx, filter.Label)
}

func (s *GitHubSource) fetchByLabel(ctx context.Context, label string) ([]models.IssueRecord, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	if label != "" {
		opts.Labels = []string{label}
	}

	var records []models.IssueRecord
	for {
		issues, resp, err := s.client.Issues.ListByRepo(ctx, s.owner, s.name, opts)
		if err != nil {
			return nil, fmt.Errorf("issuesource: list issues for %s/%s: %w", s.owner, s.name, err)
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			records = append(records, toIssueRecord(issue))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return records, nil
}

func (s *GitHubSource) fetchByNumbers(ctx context.Context, numbers []int) ([]models.IssueRecord, error) {
	var records []models.IssueRecord
	for _, n := range numbers {
		issue, _, err := s.client.Issues.Get(ctx, s.owner, s.name, n)
		if err != nil {
			return nil, fmt.Errorf("issuesource: get issue #%d: %w", n, err)
		}
		if issue.IsPullRequest() {
			continue
		}
		if issue.GetState() != "open" {
			continue
		}
		records = append(records, toIssueRecord(issue))
	}
	return records, nil
}

func toIssueRecord(issue *github.Issue) models.IssueRecord {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}
	return models.IssueRecord{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      issue.GetBody(),
		Labels:    labels,
		State:     models.IssueState(issue.GetState()),
		CreatedAt: issue.GetCreatedAt().Time,
		UpdatedAt: issue.GetUpdatedAt().Time,
		URL:       issue.GetHTMLURL(),
	}
}
