package orchestrator

import (
	"fmt"
	"time"
)

type StarterFile struct {
	Path    string
	Content []byte
}

// DefaultFiles is the starter set uploaded when /autodeploy is invoked
// without an archive: enough for the deploy platform to build and serve
// something immediately.
func DefaultFiles(repo string) []StarterFile {
	now := time.Now().Format("2006-01-02 15:04")
	return []StarterFile{
		{
			Path: "README.md",
			Content: []byte(fmt.Sprintf(
				"# %s\n\nCreated automatically on %s.\n", repo, now)),
		},
		{
			Path: "main.py",
			Content: []byte(fmt.Sprintf(
				"# %s - generated starter\n\nprint(\"Hello from %s!\")\n", repo, repo)),
		},
		{
			Path:    "requirements.txt",
			Content: []byte("requests\n"),
		},
	}
}
