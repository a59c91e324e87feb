package router

// Token identifies one inline-menu action. The set is closed: the
// dispatch table built in New covers every constant below, and any
// other value arriving from the transport is acknowledged as a no-op.
type Token string

const (
	TokenGHListRepos  Token = "gh:repos"
	TokenGHListFiles  Token = "gh:files"
	TokenGHUploadFile Token = "gh:upload"
	TokenGHUpdateFile Token = "gh:update"
	TokenGHDeleteFile Token = "gh:delete"
	TokenGHCommits    Token = "gh:commits"

	TokenRDListServices  Token = "rd:services"
	TokenRDServiceDetail Token = "rd:detail"
	TokenRDDeploy        Token = "rd:deploy"
	TokenRDDeployHistory Token = "rd:history"
	TokenRDLogs          Token = "rd:logs"
	TokenRDRestart       Token = "rd:restart"
	TokenRDEnvVars       Token = "rd:env"

	TokenCloseMenu Token = "menu:close"
)
