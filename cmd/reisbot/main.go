package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/reisbot/reisbot/pkg/ai"
	"github.com/reisbot/reisbot/pkg/bus"
	"github.com/reisbot/reisbot/pkg/channels"
	"github.com/reisbot/reisbot/pkg/config"
	"github.com/reisbot/reisbot/pkg/githubgw"
	"github.com/reisbot/reisbot/pkg/logger"
	"github.com/reisbot/reisbot/pkg/orchestrator"
	"github.com/reisbot/reisbot/pkg/rendergw"
	"github.com/reisbot/reisbot/pkg/router"
	"github.com/reisbot/reisbot/pkg/scheduler"
)

func main() {
	configPath := os.Getenv("REISBOT_CONFIG")
	if configPath == "" {
		configPath = "config.json"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Logging.FileEnabled {
		err := logger.EnableFileLogging(cfg.Logging.FilePath, cfg.Logging.RotationEnabled,
			cfg.Logging.MaxSizeMB, cfg.Logging.MaxAgeDays)
		if err != nil {
			logger.WarnCF("main", "File logging unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if cfg.Telegram.Token == "" {
		logger.Fatal("Telegram token is required (REISBOT_TELEGRAM_TOKEN)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messageBus := bus.NewMessageBus()

	telegram, err := channels.NewTelegramChannel(cfg.Telegram, messageBus)
	if err != nil {
		logger.Fatal("Failed to create Telegram channel: " + err.Error())
	}

	opts := router.Options{}

	var github *githubgw.Gateway
	if cfg.GitHubEnabled() {
		github = githubgw.New(cfg.GitHub.Token, cfg.GitHub.Username)
		opts.GitHub = github
		logger.InfoC("main", "GitHub gateway enabled")
	} else {
		logger.WarnC("main", "GitHub gateway disabled (no token/username)")
	}

	var render *rendergw.Gateway
	if cfg.RenderEnabled() {
		render = rendergw.New(cfg.Render.APIKey, cfg.Render.OwnerID, cfg.Render.Branch, cfg.Render.Environment)
		opts.Render = render
		logger.InfoC("main", "Render gateway enabled")
	} else {
		logger.WarnC("main", "Render gateway disabled (no API key/owner)")
	}

	if cfg.AIEnabled() {
		opts.AI = ai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		logger.InfoC("main", "AI collaborator enabled")
	} else {
		logger.WarnC("main", "AI collaborator disabled (no API key)")
	}

	if github != nil && render != nil {
		opts.Orchestrate = func(ctx context.Context, notify func(string), runOpts orchestrator.Options) *orchestrator.Report {
			pipeline := orchestrator.New(github, render)
			pipeline.SetNotifier(notify)
			return pipeline.Run(ctx, runOpts)
		}
	}

	r := router.New(telegram, opts)

	go func() {
		for ev := range messageBus.Events() {
			go r.HandleEvent(ctx, ev)
		}
	}()

	if err := telegram.Start(ctx); err != nil {
		logger.Fatal("Failed to start Telegram channel: " + err.Error())
	}

	sched := startScheduler(cfg, r)

	logger.InfoC("main", "ReisBot is running. Press Ctrl+C to stop.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.InfoC("main", "Shutting down...")
	cancel()
	if sched != nil {
		sched.Stop()
	}
	telegram.Stop(context.Background())
	messageBus.Close()
}

// startScheduler wires the configured cron jobs. Without an operator
// chat there is nowhere to send reports, so scheduling is skipped.
func startScheduler(cfg *config.Config, r *router.Router) *scheduler.Scheduler {
	if !cfg.Scheduler.Enabled {
		return nil
	}
	if cfg.Scheduler.OperatorChatID == "" {
		logger.WarnC("main", "Scheduler enabled but no operator chat configured, skipping")
		return nil
	}

	sched := scheduler.New()
	for _, job := range cfg.Scheduler.Jobs {
		if job.Name != "status_report" {
			logger.WarnCF("main", "Unknown scheduler job", map[string]interface{}{"name": job.Name})
			continue
		}
		err := sched.AddJob(scheduler.Job{
			Name: job.Name,
			Expr: job.Cron,
			Run: func(context.Context) {
				r.ReportStatus(cfg.Scheduler.OperatorChatID)
			},
		})
		if err != nil {
			logger.ErrorCF("main", "Failed to register job", map[string]interface{}{
				"name":  job.Name,
				"error": err.Error(),
			})
		}
	}
	sched.Start()
	return sched
}
