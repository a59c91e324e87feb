package orchestrator

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/reisbot/reisbot/pkg/failure"
	"github.com/reisbot/reisbot/pkg/logger"
	"github.com/reisbot/reisbot/pkg/rendergw"
)

// RepoGateway is the slice of the repository provider the pipeline needs.
type RepoGateway interface {
	CreateRepository(ctx context.Context, name, description string, private bool) (string, error)
	CreateFile(ctx context.Context, repo, path string, content []byte, message string) error
	RepoURL(repo string) string
}

// DeployGateway is the slice of the deploy provider the pipeline needs.
type DeployGateway interface {
	CreateService(ctx context.Context, name, repoURL, branch, environment string) (rendergw.Service, error)
	ListServices(ctx context.Context) []rendergw.Service
	TriggerDeploy(ctx context.Context, serviceID string) (string, error)
}

type Options struct {
	RepoName    string
	ArchivePath string // optional zip; default file set when empty
	// PreserveDirs keeps archive directory structure; otherwise entries
	// flatten to the repo root.
	PreserveDirs bool
}

// Pipeline runs create-repo → upload-files → create-service → deploy as
// one logical operation with checkpoint-and-continue semantics: every
// step's outcome lands in the report before the next step runs, and
// nothing is rolled back on a later failure. A repository or partial
// upload left behind is a reported side effect, not a hidden one.
type Pipeline struct {
	repos   RepoGateway
	deploys DeployGateway
	notify  func(string) // optional per-step progress messages
}

func New(repos RepoGateway, deploys DeployGateway) *Pipeline {
	return &Pipeline{repos: repos, deploys: deploys}
}

// SetNotifier installs a progress callback; each major step announces
// itself through it while the run is in flight.
func (p *Pipeline) SetNotifier(fn func(string)) {
	p.notify = fn
}

func (p *Pipeline) progress(msg string) {
	if p.notify != nil {
		p.notify(msg)
	}
}

// Run executes the pipeline and always returns a report covering exactly
// the steps attempted. Halting rules: a failed repository creation or a
// failed service creation stops the run; individual file failures never do.
func (p *Pipeline) Run(ctx context.Context, opts Options) *Report {
	report := &Report{RunID: uuid.NewString()}
	started := time.Now()

	logger.InfoCF("orchestrator", "Pipeline started", map[string]interface{}{
		"run_id": report.RunID,
		"repo":   opts.RepoName,
	})

	// Step 1: repository. Without it the rest makes no sense.
	p.progress(fmt.Sprintf("🔄 Creating repository %s...", opts.RepoName))
	url, err := p.repos.CreateRepository(ctx, opts.RepoName, fmt.Sprintf("Auto-created repo: %s", opts.RepoName), false)
	if err != nil {
		report.failed("create_repository", failure.UserMessage(err))
		return report
	}
	report.ok("create_repository", url)

	// Step 2: populate files. Batch never halts the pipeline; each file
	// outcome is recorded independently.
	p.progress("📁 Uploading files...")
	if opts.ArchivePath != "" {
		p.uploadArchive(ctx, report, opts)
	} else {
		p.uploadDefaultSet(ctx, report, opts.RepoName)
	}

	// Step 3: repo URL follows the provider convention, no round-trip.
	repoURL := p.repos.RepoURL(opts.RepoName)

	// Step 4: remote service. Deploy is impossible without it.
	p.progress(fmt.Sprintf("🚀 Creating service %s...", opts.RepoName))
	if _, err := p.deploys.CreateService(ctx, opts.RepoName, repoURL, "", ""); err != nil {
		report.failed("create_service", failure.UserMessage(err))
		return report
	}
	report.ok("create_service", repoURL)

	// Step 5: the creation response may not carry a usable id, so
	// resolve it by re-listing and matching the exact name. Zero or
	// multiple matches is treated as not-found, never a guess.
	serviceID, ok := p.resolveServiceID(ctx, opts.RepoName)
	if !ok {
		report.failed("resolve_service", fmt.Sprintf("⚠️ No unique service named %q; deploy must be triggered manually.", opts.RepoName))
		return report
	}

	p.progress("🔄 Triggering deploy...")
	deployID, err := p.deploys.TriggerDeploy(ctx, serviceID)
	if err != nil {
		report.failed("trigger_deploy", failure.UserMessage(err))
		return report
	}
	report.ok("trigger_deploy", "deploy "+deployID)

	logger.InfoCF("orchestrator", "Pipeline finished", map[string]interface{}{
		"run_id":   report.RunID,
		"steps":    len(report.Steps),
		"all_ok":   report.AllOK(),
		"duration": time.Since(started).String(),
	})
	return report
}

func (p *Pipeline) uploadDefaultSet(ctx context.Context, report *Report, repo string) {
	for _, f := range DefaultFiles(repo) {
		p.uploadOne(ctx, report, repo, f.Path, f.Content)
	}
}

func (p *Pipeline) uploadArchive(ctx context.Context, report *Report, opts Options) {
	zr, err := zip.OpenReader(opts.ArchivePath)
	if err != nil {
		report.failed("read_archive", fmt.Sprintf("❌ Could not open archive %s", opts.ArchivePath))
		return
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		target := entry.Name
		if !opts.PreserveDirs {
			target = path.Base(entry.Name)
		}

		content, err := readZipEntry(entry)
		if err != nil {
			report.failed("upload "+target, "❌ Unreadable archive entry")
			continue
		}
		p.uploadOne(ctx, report, opts.RepoName, target, content)
	}
}

func (p *Pipeline) uploadOne(ctx context.Context, report *Report, repo, filePath string, content []byte) {
	if err := p.repos.CreateFile(ctx, repo, filePath, content, "Add "+filePath); err != nil {
		report.failed("upload "+filePath, failure.UserMessage(err))
		return
	}
	report.ok("upload "+filePath, "")
}

func (p *Pipeline) resolveServiceID(ctx context.Context, name string) (string, bool) {
	var matches []string
	for _, svc := range p.deploys.ListServices(ctx) {
		if svc.Name == name {
			matches = append(matches, svc.ID)
		}
	}
	if len(matches) != 1 {
		logger.WarnCF("orchestrator", "Service lookup did not resolve to one id", map[string]interface{}{
			"name":    name,
			"matches": len(matches),
		})
		return "", false
	}
	return matches[0], true
}

func readZipEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
