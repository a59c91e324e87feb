package githubgw

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v69/github"
	"golang.org/x/oauth2"

	"github.com/reisbot/reisbot/pkg/failure"
	"github.com/reisbot/reisbot/pkg/logger"
)

// Repository is a read-only snapshot owned by the provider.
type Repository struct {
	Name        string
	Description string
	Private     bool
	Size        int
	Language    string
	UpdatedAt   time.Time
}

type FileKind string

const (
	KindFile FileKind = "file"
	KindDir  FileKind = "dir"
)

// RepoFile describes one entry of a repository listing. SHA is the
// content ref the provider requires for mutating calls; it goes stale
// the moment anyone else touches the file.
type RepoFile struct {
	Name string
	Path string
	Kind FileKind
	Size int
	SHA  string
}

type CommitSummary struct {
	SHA     string // 7-char prefix
	Message string
	Author  string
	Date    time.Time
}

// Gateway wraps the GitHub API behind the capability set the router and
// orchestrator need. It owns error classification: callers only ever see
// failure.Failure values, never raw transport errors.
type Gateway struct {
	client *github.Client
	owner  string
}

func New(token, username string) *Gateway {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	return &Gateway{client: github.NewClient(tc), owner: username}
}

// NewWithClient exists for tests pointing at a stub server.
func NewWithClient(client *github.Client, owner string) *Gateway {
	return &Gateway{client: client, owner: owner}
}

func (g *Gateway) Owner() string {
	return g.owner
}

// RepoURL computes the repository URL from the provider convention; no
// network round-trip needed.
func (g *Gateway) RepoURL(repo string) string {
	return fmt.Sprintf("https://github.com/%s/%s", g.owner, repo)
}

// ListRepositories returns the authenticated user's repositories. A
// provider error logs internally and yields an empty slice, never an
// error to the caller.
func (g *Gateway) ListRepositories(ctx context.Context) []Repository {
	repos, _, err := g.client.Repositories.ListByAuthenticatedUser(ctx, &github.RepositoryListByAuthenticatedUserOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		logger.ErrorCF("githubgw", "Failed to list repositories", map[string]interface{}{
			"owner": g.owner,
			"error": err.Error(),
		})
		return []Repository{}
	}

	out := make([]Repository, 0, len(repos))
	for _, r := range repos {
		desc := r.GetDescription()
		if desc == "" {
			desc = "No description"
		}
		lang := r.GetLanguage()
		if lang == "" {
			lang = "Unknown"
		}
		out = append(out, Repository{
			Name:        r.GetName(),
			Description: desc,
			Private:     r.GetPrivate(),
			Size:        r.GetSize(),
			Language:    lang,
			UpdatedAt:   r.GetUpdatedAt().Time,
		})
	}
	return out
}

// ListFiles lists one level of repo contents. Same failure policy as
// ListRepositories: empty slice on provider error.
func (g *Gateway) ListFiles(ctx context.Context, repo, path string) []RepoFile {
	file, dir, _, err := g.client.Repositories.GetContents(ctx, g.owner, repo, path, nil)
	if err != nil {
		logger.ErrorCF("githubgw", "Failed to list files", map[string]interface{}{
			"repo":  repo,
			"path":  path,
			"error": err.Error(),
		})
		return []RepoFile{}
	}

	var contents []*github.RepositoryContent
	if dir != nil {
		contents = dir
	} else if file != nil {
		contents = []*github.RepositoryContent{file}
	}

	out := make([]RepoFile, 0, len(contents))
	for _, c := range contents {
		kind := KindFile
		size := c.GetSize()
		if c.GetType() == "dir" {
			kind = KindDir
			size = 0
		}
		out = append(out, RepoFile{
			Name: c.GetName(),
			Path: c.GetPath(),
			Kind: kind,
			Size: size,
			SHA:  c.GetSHA(),
		})
	}
	return out
}

func (g *Gateway) ReadFile(ctx context.Context, repo, path string) ([]byte, error) {
	file, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, repo, path, nil)
	if err != nil {
		return nil, g.classify("read_file", repo+"/"+path, resp, err, failure.NotFound)
	}
	if file == nil {
		return nil, failure.New(failure.NotFound, "read_file", repo+"/"+path)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, failure.Wrap(failure.Transport, "read_file", repo+"/"+path, err)
	}
	return []byte(content), nil
}

// CreateFile creates path in repo. Existence is checked explicitly first
// so the happy path never relies on catching a provider rejection.
func (g *Gateway) CreateFile(ctx context.Context, repo, path string, content []byte, message string) error {
	if g.exists(ctx, repo, path) {
		return failure.New(failure.Conflict, "create_file", repo+"/"+path)
	}
	if message == "" {
		message = defaultCommitMessage("Create", path)
	}
	_, resp, err := g.client.Repositories.CreateFile(ctx, g.owner, repo, path, &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
	})
	if err != nil {
		return g.classify("create_file", repo+"/"+path, resp, err, failure.Conflict)
	}
	return nil
}

// UpdateFile re-resolves the content ref immediately before the mutating
// call. A ref captured earlier is never used: the provider rejects a
// mismatched ref and that surfaces as Conflict.
func (g *Gateway) UpdateFile(ctx context.Context, repo, path string, content []byte, message string) error {
	sha, err := g.resolveSHA(ctx, "update_file", repo, path)
	if err != nil {
		return err
	}
	if message == "" {
		message = defaultCommitMessage("Update", path)
	}
	_, resp, err := g.client.Repositories.UpdateFile(ctx, g.owner, repo, path, &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
		SHA:     github.Ptr(sha),
	})
	if err != nil {
		return g.classify("update_file", repo+"/"+path, resp, err, failure.Conflict)
	}
	return nil
}

func (g *Gateway) DeleteFile(ctx context.Context, repo, path string) error {
	sha, err := g.resolveSHA(ctx, "delete_file", repo, path)
	if err != nil {
		return err
	}
	_, resp, err := g.client.Repositories.DeleteFile(ctx, g.owner, repo, path, &github.RepositoryContentFileOptions{
		Message: github.Ptr(fmt.Sprintf("Delete %s", path)),
		SHA:     github.Ptr(sha),
	})
	if err != nil {
		return g.classify("delete_file", repo+"/"+path, resp, err, failure.Conflict)
	}
	return nil
}

// UpsertFile creates the file when absent, updates it otherwise. Returns
// true when the file was created.
func (g *Gateway) UpsertFile(ctx context.Context, repo, path string, content []byte, message string) (bool, error) {
	file, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, repo, path, nil)
	if err != nil || file == nil {
		if message == "" {
			message = defaultCommitMessage("Create", path)
		}
		_, resp, err := g.client.Repositories.CreateFile(ctx, g.owner, repo, path, &github.RepositoryContentFileOptions{
			Message: github.Ptr(message),
			Content: content,
		})
		if err != nil {
			return false, g.classify("upsert_file", repo+"/"+path, resp, err, failure.Conflict)
		}
		return true, nil
	}

	if message == "" {
		message = defaultCommitMessage("Update", path)
	}
	_, resp, err := g.client.Repositories.UpdateFile(ctx, g.owner, repo, path, &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
		SHA:     github.Ptr(file.GetSHA()),
	})
	if err != nil {
		return false, g.classify("upsert_file", repo+"/"+path, resp, err, failure.Conflict)
	}
	return false, nil
}

// CreateRepository creates an empty repository (no auto-init) and
// returns its URL. A taken name surfaces as AlreadyExists.
func (g *Gateway) CreateRepository(ctx context.Context, name, description string, private bool) (string, error) {
	repo, resp, err := g.client.Repositories.Create(ctx, "", &github.Repository{
		Name:        github.Ptr(name),
		Description: github.Ptr(description),
		Private:     github.Ptr(private),
		AutoInit:    github.Ptr(false),
	})
	if err != nil {
		return "", g.classify("create_repository", name, resp, err, failure.AlreadyExists)
	}
	url := repo.GetHTMLURL()
	if url == "" {
		url = g.RepoURL(name)
	}
	return url, nil
}

// ListCommits returns up to limit commits, newest first (provider order).
func (g *Gateway) ListCommits(ctx context.Context, repo string, limit int) []CommitSummary {
	if limit <= 0 {
		limit = 10
	}
	commits, _, err := g.client.Repositories.ListCommits(ctx, g.owner, repo, &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: limit},
	})
	if err != nil {
		logger.ErrorCF("githubgw", "Failed to list commits", map[string]interface{}{
			"repo":  repo,
			"error": err.Error(),
		})
		return []CommitSummary{}
	}

	if len(commits) > limit {
		commits = commits[:limit]
	}
	out := make([]CommitSummary, 0, len(commits))
	for _, c := range commits {
		sha := c.GetSHA()
		if len(sha) > 7 {
			sha = sha[:7]
		}
		summary := CommitSummary{SHA: sha}
		if commit := c.GetCommit(); commit != nil {
			summary.Message = commit.GetMessage()
			if author := commit.GetAuthor(); author != nil {
				summary.Author = author.GetName()
				summary.Date = author.GetDate().Time
			}
		}
		out = append(out, summary)
	}
	return out
}

func (g *Gateway) exists(ctx context.Context, repo, path string) bool {
	file, dir, _, err := g.client.Repositories.GetContents(ctx, g.owner, repo, path, nil)
	return err == nil && (file != nil || dir != nil)
}

// resolveSHA fetches the current content ref. Callers must use it right
// away; holding it across another request reintroduces the stale-ref race.
func (g *Gateway) resolveSHA(ctx context.Context, op, repo, path string) (string, error) {
	file, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, repo, path, nil)
	if err != nil {
		return "", g.classify(op, repo+"/"+path, resp, err, failure.NotFound)
	}
	if file == nil {
		return "", failure.New(failure.NotFound, op, repo+"/"+path)
	}
	return file.GetSHA(), nil
}

// classify maps a provider response to the failure taxonomy. on422 names
// the kind a 422 means for this operation: AlreadyExists for repository
// creation, Conflict for content-ref mismatches.
func (g *Gateway) classify(op, target string, resp *github.Response, err error, on422 failure.Kind) error {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	logger.ErrorCF("githubgw", "GitHub call failed", map[string]interface{}{
		"op":     op,
		"target": target,
		"status": status,
		"error":  err.Error(),
	})
	switch status {
	case 404:
		return failure.Wrap(failure.NotFound, op, target, err)
	case 409:
		return failure.Wrap(failure.Conflict, op, target, err)
	case 422:
		return failure.Wrap(on422, op, target, err)
	default:
		return &failure.Failure{Kind: failure.Transport, Op: op, Target: target, StatusCode: status, Err: err}
	}
}

func defaultCommitMessage(verb, path string) string {
	return fmt.Sprintf("%s %s - %s", verb, path, time.Now().Format("2006-01-02 15:04"))
}
