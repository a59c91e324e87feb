package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/reisbot/reisbot/pkg/bus"
)

func (r *Router) openRenderMenu(_ context.Context, ev bus.InboundEvent, _ []string) {
	if r.render == nil {
		r.sendDisabled(ev.ChatID, "render_menu", "Render service")
		return
	}
	r.sender.SendMenu(ev.ChatID, "☁️ Render Management", renderMenu())
}

func (r *Router) cbListServices(ctx context.Context, ev bus.InboundEvent) {
	services := r.render.ListServices(ctx)
	if len(services) == 0 {
		r.sender.SendText(ev.ChatID, "No services found.")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Services (%d):\n", len(services))
	for _, s := range services {
		fmt.Fprintf(&b, "• %s [%s] %s\n  id: %s\n", s.Name, s.Status, s.URL, s.ID)
	}
	r.sender.SendText(ev.ChatID, b.String())
}

func (r *Router) cbServiceDetail(_ context.Context, ev bus.InboundEvent) {
	r.askServiceID(ev.ChatID, "🔍", func(ctx context.Context, chatID, serviceID string) {
		svc, err := r.render.GetServiceDetails(ctx, serviceID)
		if err != nil {
			r.sendFailure(chatID, err)
			return
		}
		detail := fmt.Sprintf("Service %s\nStatus: %s\nURL: %s\nBranch: %s\nCreated: %s\nUpdated: %s",
			svc.Name, svc.Status, svc.URL, svc.Branch,
			svc.CreatedAt.Format("2006-01-02 15:04"), svc.UpdatedAt.Format("2006-01-02 15:04"))
		r.sender.SendText(chatID, detail)
	})
}

func (r *Router) cbDeploy(_ context.Context, ev bus.InboundEvent) {
	r.askServiceID(ev.ChatID, "🚀", func(ctx context.Context, chatID, serviceID string) {
		deployID, err := r.render.TriggerDeploy(ctx, serviceID)
		if err != nil {
			r.sendFailure(chatID, err)
			return
		}
		r.sender.SendText(chatID, fmt.Sprintf("✅ Deploy triggered: %s", deployID))
	})
}

func (r *Router) cbDeployHistory(_ context.Context, ev bus.InboundEvent) {
	r.askServiceID(ev.ChatID, "🕑", func(ctx context.Context, chatID, serviceID string) {
		deploys, err := r.render.ListDeploys(ctx, serviceID, 5)
		if err != nil {
			r.sendFailure(chatID, err)
			return
		}
		if len(deploys) == 0 {
			r.sender.SendText(chatID, "No deploys found.")
			return
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Last %d deploys:\n", len(deploys))
		for _, d := range deploys {
			finished := "in progress"
			if d.FinishedAt != nil {
				finished = d.FinishedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(&b, "• %s [%s] started %s, finished %s\n",
				d.ID, d.Status, d.CreatedAt.Format("2006-01-02 15:04"), finished)
		}
		r.sender.SendText(chatID, b.String())
	})
}

func (r *Router) cbLogs(_ context.Context, ev bus.InboundEvent) {
	r.askServiceID(ev.ChatID, "📜", func(ctx context.Context, chatID, serviceID string) {
		lines, err := r.render.GetLogs(ctx, serviceID, 20)
		if err != nil {
			r.sendFailure(chatID, err)
			return
		}
		if len(lines) == 0 {
			r.sender.SendText(chatID, "No log lines returned.")
			return
		}
		r.sender.SendText(chatID, "📜 Logs:\n"+strings.Join(lines, "\n"))
	})
}

// cbRestart triggers a fresh deploy. Render has no restart primitive,
// so any in-flight state of the running instance is lost.
func (r *Router) cbRestart(_ context.Context, ev bus.InboundEvent) {
	r.askServiceID(ev.ChatID, "🔄", func(ctx context.Context, chatID, serviceID string) {
		deployID, err := r.render.RestartService(ctx, serviceID)
		if err != nil {
			r.sendFailure(chatID, err)
			return
		}
		r.sender.SendText(chatID, fmt.Sprintf("✅ Restart requested (new deploy %s)", deployID))
	})
}

// cbEnvVars is a two-step flow: service id, then KEY=VALUE lines.
func (r *Router) cbEnvVars(_ context.Context, ev bus.InboundEvent) {
	r.askServiceID(ev.ChatID, "🔐", func(_ context.Context, chatID, serviceID string) {
		r.sender.SendText(chatID, "Send variables, one KEY=VALUE per line.")
		r.register(chatID, func(ctx context.Context, final bus.InboundEvent) {
			vars, bad := parseEnvLines(final.Content)
			if len(bad) > 0 {
				r.sender.SendText(final.ChatID, fmt.Sprintf("Invalid line(s): %s. Nothing was changed.", strings.Join(bad, ", ")))
				return
			}
			if len(vars) == 0 {
				r.sender.SendText(final.ChatID, "No variables given. Nothing was changed.")
				return
			}
			if err := r.render.UpdateEnvVars(ctx, serviceID, vars); err != nil {
				r.sendFailure(final.ChatID, err)
				return
			}
			r.sender.SendText(final.ChatID, fmt.Sprintf("✅ Updated %d environment variable(s)", len(vars)))
		})
	})
}

func (r *Router) cbCloseMenu(_ context.Context, ev bus.InboundEvent) {
	r.sender.SendText(ev.ChatID, "Menu closed.")
}

func (r *Router) askServiceID(chatID, icon string, then func(ctx context.Context, chatID, serviceID string)) {
	r.sender.SendText(chatID, icon+" Which service ID?")
	r.register(chatID, func(ctx context.Context, next bus.InboundEvent) {
		serviceID := strings.TrimSpace(next.Content)
		if serviceID == "" {
			r.sender.SendText(next.ChatID, "Empty service ID. Cancelled.")
			return
		}
		then(ctx, next.ChatID, serviceID)
	})
}

func parseEnvLines(text string) (map[string]string, []string) {
	vars := make(map[string]string)
	var bad []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			bad = append(bad, line)
			continue
		}
		vars[key] = strings.TrimSpace(value)
	}
	return vars, bad
}
