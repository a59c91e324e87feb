package router

import "github.com/reisbot/reisbot/pkg/bus"

// Main-menu button labels. The Telegram channel renders them as a
// reply keyboard, so these strings come back verbatim as message text.
const (
	LabelGitHubMenu = "GitHub Management"
	LabelRenderMenu = "Render Management"
	LabelAIChat     = "AI Chat"
	LabelBotStatus  = "Bot Status"
)

func mainKeyboard() [][]string {
	return [][]string{
		{LabelGitHubMenu, LabelRenderMenu},
		{LabelAIChat, LabelBotStatus},
	}
}

func githubMenu() bus.Menu {
	return bus.Menu{Rows: [][]bus.MenuButton{
		{{Label: "📂 List Repositories", Token: string(TokenGHListRepos)}, {Label: "📄 List Files", Token: string(TokenGHListFiles)}},
		{{Label: "⬆️ Upload File", Token: string(TokenGHUploadFile)}, {Label: "✏️ Update File", Token: string(TokenGHUpdateFile)}},
		{{Label: "🗑 Delete File", Token: string(TokenGHDeleteFile)}, {Label: "🕑 Commit History", Token: string(TokenGHCommits)}},
		{{Label: "❌ Close", Token: string(TokenCloseMenu)}},
	}}
}

func renderMenu() bus.Menu {
	return bus.Menu{Rows: [][]bus.MenuButton{
		{{Label: "📋 List Services", Token: string(TokenRDListServices)}, {Label: "🔍 Service Detail", Token: string(TokenRDServiceDetail)}},
		{{Label: "🚀 Deploy", Token: string(TokenRDDeploy)}, {Label: "🕑 Deploy History", Token: string(TokenRDDeployHistory)}},
		{{Label: "📜 Logs", Token: string(TokenRDLogs)}, {Label: "🔄 Restart", Token: string(TokenRDRestart)}},
		{{Label: "🔐 Env Vars", Token: string(TokenRDEnvVars)}},
		{{Label: "❌ Close", Token: string(TokenCloseMenu)}},
	}}
}
