package agentrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anthropics/anthropic-sdk-go"
)

// ClaudeAPIRunner is the default Runner: it drives Claude directly against
// the worktree's files through the Anthropic SDK's tool-use loop, the way
// the teacher's AgentLoop does, rather than shelling out to a CLI.
type ClaudeAPIRunner struct {
	newClient func(cfg ClientConfig) (*Client, error)
	clientCfg ClientConfig
}

// NewClaudeAPIRunner builds a runner that opens a fresh Client (and cost
// tracker) per invocation, configured from cfg.
func NewClaudeAPIRunner(cfg ClientConfig) *ClaudeAPIRunner {
	return &ClaudeAPIRunner{newClient: NewClient, clientCfg: cfg}
}

// Run drives one agent invocation to completion, enforcing req.MaxBudgetUsd
// and req.TimeoutMs and returning a Result rather than an error for any
// agent-side failure (timeout, budget overrun, API error) per the
// executor's worker-scoped error propagation policy.
func (r *ClaudeAPIRunner) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	sessionID := uuid.New().String()

	cfg := r.clientCfg
	cfg.Model = ResolveModel(req.Model)
	client, err := r.newClient(cfg)
	if err != nil {
		return Result{
			Success:     false,
			DurationMs:  time.Since(start).Milliseconds(),
			SessionID:   sessionID,
			ErrorKind:   "agent_error",
			ErrorDetail: fmt.Sprintf("build client: %v", err),
		}, nil
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if req.TimeoutMs > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	executor := newToolExecutor(req.Cwd)
	maxTurns := req.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 8
	}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
	}

	for turn := 0; turn < maxTurns; turn++ {
		if client.Tracker().CostUsd() >= req.MaxBudgetUsd {
			return Result{
				Success:     false,
				CostUsd:     client.Tracker().CostUsd(),
				DurationMs:  time.Since(start).Milliseconds(),
				SessionID:   sessionID,
				ErrorKind:   "agent_error",
				ErrorDetail: "per-task budget exceeded",
			}, nil
		}

		resp, err := client.sdk().Messages.New(runCtx, anthropic.MessageNewParams{
			Model:     client.Model(),
			MaxTokens: 8192,
			System:    []anthropic.TextBlockParam{{Text: req.SystemPrompt}},
			Messages:  messages,
			Tools:     toolDefinitions(),
		})
		if err != nil {
			kind := "agent_error"
			if runCtx.Err() != nil {
				kind = "timeout"
			}
			return Result{
				Success:     false,
				CostUsd:     client.Tracker().CostUsd(),
				DurationMs:  time.Since(start).Milliseconds(),
				SessionID:   sessionID,
				ErrorKind:   kind,
				ErrorDetail: err.Error(),
			}, nil
		}

		client.Tracker().Add(client.Model(), resp.Usage.InputTokens, resp.Usage.OutputTokens)

		var assistantBlocks []anthropic.ContentBlockParamUnion
		var toolResultBlocks []anthropic.ContentBlockParamUnion

		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(variant.Text))
			case anthropic.ToolUseBlock:
				assistantBlocks = append(assistantBlocks, anthropic.NewToolUseBlock(variant.ID, variant.Input, variant.Name))
				result := executor.execute(runCtx, variant.Name, variant.Input)
				toolResultBlocks = append(toolResultBlocks, anthropic.NewToolResultBlock(variant.ID, result.content, result.isError))
			}
		}

		if resp.StopReason == anthropic.StopReasonEndTurn {
			return Result{
				Success:    true,
				CostUsd:    client.Tracker().CostUsd(),
				DurationMs: time.Since(start).Milliseconds(),
				SessionID:  sessionID,
			}, nil
		}

		messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))
		if len(toolResultBlocks) > 0 {
			messages = append(messages, anthropic.NewUserMessage(toolResultBlocks...))
		}
	}

	return Result{
		Success:     false,
		CostUsd:     client.Tracker().CostUsd(),
		DurationMs:  time.Since(start).Milliseconds(),
		SessionID:   sessionID,
		ErrorKind:   "agent_error",
		ErrorDetail: fmt.Sprintf("max turns (%d) reached without completion", maxTurns),
	}, nil
}

var _ Runner = (*ClaudeAPIRunner)(nil)
