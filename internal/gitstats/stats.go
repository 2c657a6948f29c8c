package gitstats

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/go-github/v81/github"
)

// Language is one entry of the repository language breakdown.
type Language struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// Stats is the aggregated repository statistics payload.
type Stats struct {
	Branches     []string       `json:"branches"`
	CommitCount  int            `json:"commit_count"`
	Contributors map[string]int `json:"contributors"`
	Languages    []Language     `json:"languages"`
}

// Empty returns the zero-valued stats shape used when collection fails.
func Empty() Stats {
	return Stats{
		Branches:     []string{},
		Contributors: map[string]int{},
		Languages:    []Language{},
	}
}

// ToMap converts the stats to the opaque shape the analysis core consumes.
func (s Stats) ToMap() map[string]any {
	languages := make([]any, len(s.Languages))
	for i, l := range s.Languages {
		languages[i] = map[string]any{"name": l.Name, "percentage": l.Percentage}
	}
	contributors := make(map[string]any, len(s.Contributors))
	for name, count := range s.Contributors {
		contributors[name] = count
	}
	return map[string]any{
		"branches":     s.Branches,
		"commit_count": s.CommitCount,
		"contributors": contributors,
		"languages":    languages,
	}
}

// mergeMessagePatterns flags squash-style merges that keep a single parent.
var mergeMessagePatterns = []string{"merge pull request", "merge branch", "merge remote"}

// RepoName extracts "owner/repo" from a GitHub URL, dropping any /tree/
// suffix.
func RepoName(repoURL string) (string, error) {
	name := repoURL
	if i := strings.Index(name, "github.com/"); i >= 0 {
		name = name[i+len("github.com/"):]
	}
	name = strings.Trim(name, "/")
	if i := strings.Index(name, "/tree/"); i >= 0 {
		name = name[:i]
	}
	if strings.Count(name, "/") != 1 {
		return "", fmt.Errorf("cannot extract owner/repo from %q", repoURL)
	}
	return name, nil
}

// Collect walks every branch, counting commits deduplicated by SHA with
// merge commits excluded, and aggregates contributor counts and language
// percentage shares. Any failure degrades to empty stats rather than
// aborting the analysis run.
func (c *Client) Collect(ctx context.Context, repoURL string) Stats {
	name, err := RepoName(repoURL)
	if err != nil {
		c.logger.Error("Invalid repository URL", "url", repoURL, "error", err)
		return Empty()
	}
	owner, repo, _ := strings.Cut(name, "/")

	stats := Empty()

	branches, err := c.listBranches(ctx, owner, repo)
	if err != nil {
		c.logger.Error("Failed to list branches", "repo", name, "error", err)
		return Empty()
	}

	seen := make(map[string]bool)
	for _, branch := range branches {
		stats.Branches = append(stats.Branches, branch.GetName())

		commits, err := c.listCommits(ctx, owner, repo, branch.GetName())
		if err != nil {
			c.logger.Error("Failed to list commits", "repo", name, "branch", branch.GetName(), "error", err)
			return Empty()
		}

		for _, commit := range commits {
			sha := commit.GetSHA()
			if seen[sha] {
				continue
			}
			seen[sha] = true

			if isMergeCommit(commit) {
				continue
			}
			stats.CommitCount++

			author := "Unknown"
			if login := commit.GetAuthor().GetLogin(); login != "" {
				author = login
			}
			stats.Contributors[author]++
		}
	}

	languages, _, err := c.gh.Repositories.ListLanguages(ctx, owner, repo)
	if err != nil {
		c.logger.Warn("Failed to list languages", "repo", name, "error", err)
	} else {
		stats.Languages = languageShares(languages)
	}

	c.logger.Info("Repository stats collected",
		"repo", name,
		"branches", len(stats.Branches),
		"commits", stats.CommitCount,
		"contributors", len(stats.Contributors))
	return stats
}

func (c *Client) listBranches(ctx context.Context, owner, repo string) ([]*github.Branch, error) {
	var all []*github.Branch
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		branches, resp, err := c.gh.Repositories.ListBranches(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, branches...)
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) listCommits(ctx context.Context, owner, repo, branch string) ([]*github.RepositoryCommit, error) {
	var all []*github.RepositoryCommit
	opts := &github.CommitsListOptions{SHA: branch, ListOptions: github.ListOptions{PerPage: 100}}
	for {
		commits, resp, err := c.gh.Repositories.ListCommits(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, commits...)
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

func isMergeCommit(commit *github.RepositoryCommit) bool {
	if len(commit.Parents) > 1 {
		return true
	}
	message := strings.ToLower(commit.GetCommit().GetMessage())
	for _, pattern := range mergeMessagePatterns {
		if strings.Contains(message, pattern) {
			return true
		}
	}
	return false
}

// languageShares converts byte counts into percentage shares rounded to
// two decimals.
func languageShares(byBytes map[string]int) []Language {
	var total int
	for _, size := range byBytes {
		total += size
	}
	if total == 0 {
		return []Language{}
	}

	shares := make([]Language, 0, len(byBytes))
	for name, size := range byBytes {
		pct := float64(size) / float64(total) * 100
		shares = append(shares, Language{Name: name, Percentage: math.Round(pct*100) / 100})
	}
	return shares
}
