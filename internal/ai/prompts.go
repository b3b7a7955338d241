package ai

import (
	_ "embed"
	"strings"
)

//go:embed prompts/system.md
var systemPromptRaw string

// SystemPrompt is the instruction sent with every prediction request.
var SystemPrompt = strings.TrimSpace(systemPromptRaw)

// UserPrompt renders the per-job message.
func UserPrompt(job string) string {
	return "Job:\n" + job
}
