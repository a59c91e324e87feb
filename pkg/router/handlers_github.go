package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reisbot/reisbot/pkg/bus"
	"github.com/reisbot/reisbot/pkg/orchestrator"
	"github.com/reisbot/reisbot/pkg/utils"
)

func (r *Router) openGitHubMenu(_ context.Context, ev bus.InboundEvent, _ []string) {
	if r.github == nil {
		r.sendDisabled(ev.ChatID, "github_menu", "GitHub service")
		return
	}
	r.sender.SendMenu(ev.ChatID, "🐙 GitHub Management", githubMenu())
}

// cmdGitHub handles "/github <repo> <file>": create the file if it is
// missing, update it otherwise.
func (r *Router) cmdGitHub(ctx context.Context, ev bus.InboundEvent, args []string) {
	if r.github == nil {
		r.sendDisabled(ev.ChatID, "github_upsert", "GitHub service")
		return
	}
	if len(args) != 2 {
		r.sender.SendText(ev.ChatID, "Usage: /github <repo> <file>")
		return
	}
	repo, path := args[0], args[1]

	created, err := r.github.UpsertFile(ctx, repo, path, generatedContent(path), "")
	if err != nil {
		r.sendFailure(ev.ChatID, err)
		return
	}
	verb := "Updated"
	if created {
		verb = "Created"
	}
	r.sender.SendText(ev.ChatID, fmt.Sprintf("✅ %s %s in %s", verb, path, repo))
}

func (r *Router) cmdAutoDeploy(ctx context.Context, ev bus.InboundEvent, args []string) {
	if r.github == nil || r.render == nil || r.orchestrate == nil {
		r.sendDisabled(ev.ChatID, "autodeploy", "deployment pipeline")
		return
	}
	if len(args) == 0 {
		r.sender.SendText(ev.ChatID, "Usage: /autodeploy <repo> [archive-path]")
		return
	}
	opts := orchestrator.Options{RepoName: args[0]}
	if len(args) > 1 {
		opts.ArchivePath = args[1]
	}

	r.sender.SendText(ev.ChatID, fmt.Sprintf("🚀 Starting auto-deploy for %s ...", opts.RepoName))
	notify := func(msg string) { r.sender.SendText(ev.ChatID, msg) }
	report := r.orchestrate(ctx, notify, opts)
	r.sender.SendText(ev.ChatID, report.Render())
}

func (r *Router) cbListRepos(ctx context.Context, ev bus.InboundEvent) {
	repos := r.github.ListRepositories(ctx)
	if len(repos) == 0 {
		r.sender.SendText(ev.ChatID, "No repositories found.")
		return
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📂 Repositories (%d):\n", len(repos)))
	for _, repo := range repos {
		visibility := "public"
		if repo.Private {
			visibility = "private"
		}
		lang := repo.Language
		if lang == "" {
			lang = "n/a"
		}
		fmt.Fprintf(&b, "• %s (%s, %s)\n", repo.Name, visibility, lang)
	}
	r.sender.SendText(ev.ChatID, b.String())
}

func (r *Router) cbListFiles(_ context.Context, ev bus.InboundEvent) {
	r.sender.SendText(ev.ChatID, "📄 Which repository?")
	r.register(ev.ChatID, func(ctx context.Context, next bus.InboundEvent) {
		repo := strings.TrimSpace(next.Content)
		files := r.github.ListFiles(ctx, repo, "")
		if len(files) == 0 {
			r.sender.SendText(next.ChatID, fmt.Sprintf("No files found in %s.", repo))
			return
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Files in %s:\n", repo)
		for _, f := range files {
			icon := "📄"
			if f.Kind == "dir" {
				icon = "📁"
			}
			fmt.Fprintf(&b, "%s %s\n", icon, f.Path)
		}
		r.sender.SendText(next.ChatID, b.String())
	})
}

// cbUploadFile is a two-step flow: first the target, then the content.
func (r *Router) cbUploadFile(_ context.Context, ev bus.InboundEvent) {
	r.sender.SendText(ev.ChatID, "⬆️ Send the target as: <repo> <path>")
	r.register(ev.ChatID, func(_ context.Context, next bus.InboundEvent) {
		parts := strings.Fields(next.Content)
		if len(parts) != 2 {
			r.sender.SendText(next.ChatID, "Expected exactly: <repo> <path>. Upload cancelled.")
			return
		}
		repo, path := parts[0], parts[1]
		r.sender.SendText(next.ChatID, fmt.Sprintf("Now send the content for %s.", path))
		r.register(next.ChatID, func(ctx context.Context, final bus.InboundEvent) {
			if err := r.github.CreateFile(ctx, repo, path, []byte(final.Content), ""); err != nil {
				r.sendFailure(final.ChatID, err)
				return
			}
			r.sender.SendText(final.ChatID, fmt.Sprintf("✅ Uploaded %s to %s", path, repo))
		})
	})
}

func (r *Router) cbUpdateFile(_ context.Context, ev bus.InboundEvent) {
	r.sender.SendText(ev.ChatID, "✏️ Send the target as: <repo> <path>")
	r.register(ev.ChatID, func(_ context.Context, next bus.InboundEvent) {
		parts := strings.Fields(next.Content)
		if len(parts) != 2 {
			r.sender.SendText(next.ChatID, "Expected exactly: <repo> <path>. Update cancelled.")
			return
		}
		repo, path := parts[0], parts[1]
		r.sender.SendText(next.ChatID, fmt.Sprintf("Now send the new content for %s.", path))
		r.register(next.ChatID, func(ctx context.Context, final bus.InboundEvent) {
			if err := r.github.UpdateFile(ctx, repo, path, []byte(final.Content), ""); err != nil {
				r.sendFailure(final.ChatID, err)
				return
			}
			r.sender.SendText(final.ChatID, fmt.Sprintf("✅ Updated %s in %s", path, repo))
		})
	})
}

func (r *Router) cbDeleteFile(_ context.Context, ev bus.InboundEvent) {
	r.sender.SendText(ev.ChatID, "🗑 Send the target as: <repo> <path>")
	r.register(ev.ChatID, func(ctx context.Context, next bus.InboundEvent) {
		parts := strings.Fields(next.Content)
		if len(parts) != 2 {
			r.sender.SendText(next.ChatID, "Expected exactly: <repo> <path>. Delete cancelled.")
			return
		}
		if err := r.github.DeleteFile(ctx, parts[0], parts[1]); err != nil {
			r.sendFailure(next.ChatID, err)
			return
		}
		r.sender.SendText(next.ChatID, fmt.Sprintf("✅ Deleted %s from %s", parts[1], parts[0]))
	})
}

func (r *Router) cbCommits(_ context.Context, ev bus.InboundEvent) {
	r.sender.SendText(ev.ChatID, "🕑 Which repository?")
	r.register(ev.ChatID, func(ctx context.Context, next bus.InboundEvent) {
		repo := strings.TrimSpace(next.Content)
		commits := r.github.ListCommits(ctx, repo, 10)
		if len(commits) == 0 {
			r.sender.SendText(next.ChatID, fmt.Sprintf("No commits found for %s.", repo))
			return
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Last %d commits in %s:\n", len(commits), repo)
		for _, c := range commits {
			fmt.Fprintf(&b, "• %s %s (%s)\n", c.SHA, utils.FirstLine(c.Message), c.Author)
		}
		r.sender.SendText(next.ChatID, b.String())
	})
}

func generatedContent(path string) []byte {
	now := time.Now().Format("2006-01-02 15:04:05")
	return []byte(fmt.Sprintf("# %s\n\nGenerated by ReisBot on %s.\n", path, now))
}
