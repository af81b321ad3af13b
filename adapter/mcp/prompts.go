package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers MCP prompts for common gritline workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("completion_check_in").
		Description("Walk through completing a task instance and answering its follow-up question.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Completion Check-in",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `I just finished working on a task. Please:

1. Ask me how long it took, how much I got done, and how relieved and
   drained I feel on a 0-100 scale
2. Record it with instance.complete
3. If the result contains a follow-up question, read it to me with its
   options and record my choice with trigger.respond, following any
   nested question until an answer is reached
4. Tell me how my grit, productivity and composite scores moved`,
						},
					},
				},
			}, nil
		})

	srv.Prompt("score_review").
		Description("Review overall and per-task scores and spot tasks that drain you.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Score Review",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `Review my scores. Please:

1. Read the gritline://scores/all resource
2. Run score.warm and fetch each task score with score.get
3. Compare grit against productivity per task

Point out tasks where I keep pushing through despite low relief, and tasks
where my estimates are consistently off.`,
						},
					},
				},
			}, nil
		})

	return nil
}
