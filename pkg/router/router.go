package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/reisbot/reisbot/pkg/bus"
	"github.com/reisbot/reisbot/pkg/failure"
	"github.com/reisbot/reisbot/pkg/githubgw"
	"github.com/reisbot/reisbot/pkg/logger"
	"github.com/reisbot/reisbot/pkg/orchestrator"
	"github.com/reisbot/reisbot/pkg/rendergw"
)

// Sender is the outbound half of a chat transport. The router never
// talks to Telegram directly; the channel implements this.
type Sender interface {
	SendText(chatID, text string)
	SendMenu(chatID, text string, menu bus.Menu)
	SendKeyboard(chatID, text string, rows [][]string)
	AckCallback(callbackID, text string)
}

// GitHubService is the slice of the repository gateway the router uses.
type GitHubService interface {
	ListRepositories(ctx context.Context) []githubgw.Repository
	ListFiles(ctx context.Context, repo, path string) []githubgw.RepoFile
	CreateFile(ctx context.Context, repo, path string, content []byte, message string) error
	UpdateFile(ctx context.Context, repo, path string, content []byte, message string) error
	DeleteFile(ctx context.Context, repo, path string) error
	UpsertFile(ctx context.Context, repo, path string, content []byte, message string) (bool, error)
	ListCommits(ctx context.Context, repo string, limit int) []githubgw.CommitSummary
	RepoURL(repo string) string
}

// RenderService is the slice of the deploy gateway the router uses.
type RenderService interface {
	ListServices(ctx context.Context) []rendergw.Service
	GetServiceDetails(ctx context.Context, serviceID string) (rendergw.Service, error)
	TriggerDeploy(ctx context.Context, serviceID string) (string, error)
	RestartService(ctx context.Context, serviceID string) (string, error)
	ListDeploys(ctx context.Context, serviceID string, limit int) ([]rendergw.Deploy, error)
	GetLogs(ctx context.Context, serviceID string, limit int) ([]string, error)
	UpdateEnvVars(ctx context.Context, serviceID string, vars map[string]string) error
}

// AIService is the chat collaborator.
type AIService interface {
	Enabled() bool
	Reply(ctx context.Context, prompt string) (string, error)
}

// OrchestrateFunc runs the full deployment pipeline. The notify
// callback receives progress messages as steps complete.
type OrchestrateFunc func(ctx context.Context, notify func(string), opts orchestrator.Options) *orchestrator.Report

type commandFunc func(ctx context.Context, ev bus.InboundEvent, args []string)
type callbackFunc func(ctx context.Context, ev bus.InboundEvent)

// Router resolves inbound chat events to handlers. Plain messages may
// consume a pending continuation or match the command table; inline
// callbacks go through a closed token dispatch table and never touch
// continuation state.
type Router struct {
	sender      Sender
	github      GitHubService
	render      RenderService
	ai          AIService
	orchestrate OrchestrateFunc

	conts     *continuationStore
	commands  map[string]commandFunc
	labels    map[string]commandFunc
	callbacks map[Token]callbackFunc
}

// Options carries the router's collaborators. Nil GitHub, Render or AI
// means that subsystem is unconfigured and its handlers reply with a
// disabled message instead of calling out.
type Options struct {
	GitHub      GitHubService
	Render      RenderService
	AI          AIService
	Orchestrate OrchestrateFunc
}

func New(sender Sender, opts Options) *Router {
	r := &Router{
		sender:      sender,
		github:      opts.GitHub,
		render:      opts.Render,
		ai:          opts.AI,
		orchestrate: opts.Orchestrate,
		conts:       newContinuationStore(),
	}

	r.commands = map[string]commandFunc{
		"/start":      r.cmdStart,
		"/help":       r.cmdHelp,
		"/status":     r.cmdStatus,
		"/ai":         r.cmdAI,
		"/github":     r.cmdGitHub,
		"/autodeploy": r.cmdAutoDeploy,
	}
	r.labels = map[string]commandFunc{
		LabelGitHubMenu: r.openGitHubMenu,
		LabelRenderMenu: r.openRenderMenu,
		LabelAIChat:     r.startAIChat,
		LabelBotStatus:  r.cmdStatus,
	}
	r.callbacks = map[Token]callbackFunc{
		TokenGHListRepos:     r.requireGitHub(r.cbListRepos),
		TokenGHListFiles:     r.requireGitHub(r.cbListFiles),
		TokenGHUploadFile:    r.requireGitHub(r.cbUploadFile),
		TokenGHUpdateFile:    r.requireGitHub(r.cbUpdateFile),
		TokenGHDeleteFile:    r.requireGitHub(r.cbDeleteFile),
		TokenGHCommits:       r.requireGitHub(r.cbCommits),
		TokenRDListServices:  r.requireRender(r.cbListServices),
		TokenRDServiceDetail: r.requireRender(r.cbServiceDetail),
		TokenRDDeploy:        r.requireRender(r.cbDeploy),
		TokenRDDeployHistory: r.requireRender(r.cbDeployHistory),
		TokenRDLogs:          r.requireRender(r.cbLogs),
		TokenRDRestart:       r.requireRender(r.cbRestart),
		TokenRDEnvVars:       r.requireRender(r.cbEnvVars),
		TokenCloseMenu:       r.cbCloseMenu,
	}
	return r
}

// requireGitHub guards callbacks against a menu message that outlived
// the configuration that produced it.
func (r *Router) requireGitHub(fn callbackFunc) callbackFunc {
	return func(ctx context.Context, ev bus.InboundEvent) {
		if r.github == nil {
			r.sendDisabled(ev.ChatID, "github_callback", "GitHub service")
			return
		}
		fn(ctx, ev)
	}
}

func (r *Router) requireRender(fn callbackFunc) callbackFunc {
	return func(ctx context.Context, ev bus.InboundEvent) {
		if r.render == nil {
			r.sendDisabled(ev.ChatID, "render_callback", "Render service")
			return
		}
		fn(ctx, ev)
	}
}

// HandleEvent is the single entry point for inbound events. The
// transport calls it once per update, from its own goroutine.
func (r *Router) HandleEvent(ctx context.Context, ev bus.InboundEvent) {
	switch ev.Kind {
	case bus.KindCallback:
		r.handleCallback(ctx, ev)
	default:
		r.handleMessage(ctx, ev)
	}
}

func (r *Router) handleMessage(ctx context.Context, ev bus.InboundEvent) {
	if handler, ok := r.conts.Consume(ev.ChatID); ok {
		handler(ctx, ev)
		return
	}

	text := strings.TrimSpace(ev.Content)
	if text == "" {
		return
	}
	fields := strings.Fields(text)

	if strings.HasPrefix(fields[0], "/") {
		if cmd, ok := r.commands[fields[0]]; ok {
			cmd(ctx, ev, fields[1:])
			return
		}
		r.sender.SendText(ev.ChatID, "Unknown command. Send /help for the command list.")
		return
	}

	if handler, ok := r.labels[text]; ok {
		handler(ctx, ev, nil)
		return
	}

	r.sender.SendText(ev.ChatID, "I didn't understand that. Send /help or use the menu below.")
}

// handleCallback dispatches an inline-menu token. Exactly one
// acknowledgment is sent per callback, matched or not; unmatched
// tokens are acked as a no-op and logged so stale menus stay visible
// in the logs.
func (r *Router) handleCallback(ctx context.Context, ev bus.InboundEvent) {
	defer r.sender.AckCallback(ev.CallbackID, "")

	handler, ok := r.callbacks[Token(ev.Token)]
	if !ok {
		logger.WarnCF("router", "Unknown callback token", map[string]interface{}{
			"token":   ev.Token,
			"chat_id": ev.ChatID,
		})
		return
	}
	handler(ctx, ev)
}

func (r *Router) register(chatID string, handler ContinuationFunc) {
	r.conts.Register(chatID, handler)
}

func (r *Router) sendDisabled(chatID, op, target string) {
	r.sender.SendText(chatID, failure.UserMessage(failure.New(failure.Disabled, op, target)))
}

func (r *Router) sendFailure(chatID string, err error) {
	r.sender.SendText(chatID, failure.UserMessage(err))
}

func (r *Router) cmdStart(_ context.Context, ev bus.InboundEvent, _ []string) {
	welcome := "🤖 Welcome to ReisBot!\n\n" +
		"I drive GitHub and Render from chat. Use the menu below or send /help for commands."
	r.sender.SendKeyboard(ev.ChatID, welcome, mainKeyboard())
}

func (r *Router) cmdHelp(_ context.Context, ev bus.InboundEvent, _ []string) {
	help := "Commands:\n" +
		"/github <repo> <file> - create or update a file with generated content\n" +
		"/autodeploy <repo> [archive-path] - create repo, upload files, create service, deploy\n" +
		"/ai <prompt> - ask the AI assistant\n" +
		"/status - subsystem status\n" +
		"/start - show the main menu\n\n" +
		"Menu buttons open the GitHub and Render management panels."
	r.sender.SendText(ev.ChatID, help)
}

func (r *Router) cmdStatus(_ context.Context, ev bus.InboundEvent, _ []string) {
	r.ReportStatus(ev.ChatID)
}

// ReportStatus sends the subsystem enablement summary to a chat. The
// scheduler calls this directly so a periodic report can never consume
// a pending continuation.
func (r *Router) ReportStatus(chatID string) {
	mark := func(on bool) string {
		if on {
			return "✅ enabled"
		}
		return "⚠️ disabled"
	}
	status := "Bot status:\n" +
		fmt.Sprintf("GitHub: %s\n", mark(r.github != nil)) +
		fmt.Sprintf("Render: %s\n", mark(r.render != nil)) +
		fmt.Sprintf("AI: %s", mark(r.ai != nil && r.ai.Enabled()))
	r.sender.SendText(chatID, status)
}

func (r *Router) cmdAI(ctx context.Context, ev bus.InboundEvent, args []string) {
	if len(args) == 0 {
		r.startAIChat(ctx, ev, nil)
		return
	}
	r.replyWithAI(ctx, ev.ChatID, strings.Join(args, " "))
}

func (r *Router) startAIChat(_ context.Context, ev bus.InboundEvent, _ []string) {
	if r.ai == nil || !r.ai.Enabled() {
		r.sendDisabled(ev.ChatID, "ai_chat", "AI service")
		return
	}
	r.sender.SendText(ev.ChatID, "💬 What would you like to ask?")
	r.register(ev.ChatID, func(ctx context.Context, next bus.InboundEvent) {
		r.replyWithAI(ctx, next.ChatID, strings.TrimSpace(next.Content))
	})
}

func (r *Router) replyWithAI(ctx context.Context, chatID, prompt string) {
	if r.ai == nil || !r.ai.Enabled() {
		r.sendDisabled(chatID, "ai_chat", "AI service")
		return
	}
	if prompt == "" {
		r.sender.SendText(chatID, "Send a non-empty prompt.")
		return
	}
	answer, err := r.ai.Reply(ctx, prompt)
	if err != nil {
		r.sendFailure(chatID, err)
		return
	}
	r.sender.SendText(chatID, answer)
}
