package prhost

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
)

// GitHubHost opens pull requests against a single owner/name repository.
type GitHubHost struct {
	client *github.Client
	owner  string
	name   string
}

// NewGitHubHost builds a GitHubHost for repo ("owner/name"), authenticated
// with token.
func NewGitHubHost(repo, token string) (*GitHubHost, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		return nil, fmt.Errorf("prhost: repo %q is not in owner/name form", repo)
	}
	if token == "" {
		return nil, fmt.Errorf("prhost: a GitHub token is required to create pull requests")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(context.Background(), ts))

	return &GitHubHost{client: client, owner: owner, name: name}, nil
}

// CreatePullRequest implements Host.
func (h *GitHubHost) CreatePullRequest(ctx context.Context, req CreateRequest) (CreateResult, error) {
	newPR := &github.NewPullRequest{
		Title:               github.Ptr(req.Title),
		Head:                github.Ptr(req.HeadBranch),
		Base:                github.Ptr(req.BaseBranch),
		Body:                github.Ptr(req.Body),
		Draft:               github.Ptr(req.Draft),
		MaintainerCanModify: github.Ptr(true),
	}

	pr, _, err := h.client.PullRequests.Create(ctx, h.owner, h.name, newPR)
	if err != nil {
		return CreateResult{}, fmt.Errorf("prhost: create pull request for %s -> %s: %w", req.HeadBranch, req.BaseBranch, err)
	}

	return CreateResult{URL: pr.GetHTMLURL()}, nil
}
