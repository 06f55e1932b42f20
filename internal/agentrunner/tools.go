package agentrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// toolDefinitions returns the tool schemas offered to the model, mirroring
// the file-editing and shell primitives a coding agent needs inside a
// worktree.
func toolDefinitions() []anthropic.ToolUnionParam {
	return []anthropic.ToolUnionParam{
		{OfTool: &anthropic.ToolParam{
			Name:        "Read",
			Description: anthropic.String("Read a file from the filesystem. Returns file contents with line numbers."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{
					"file_path": map[string]interface{}{"type": "string", "description": "Path to the file to read, relative to the working directory"},
				},
				Required: []string{"file_path"},
			},
		}},
		{OfTool: &anthropic.ToolParam{
			Name:        "Write",
			Description: anthropic.String("Write content to a file, creating parent directories as needed."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{
					"file_path": map[string]interface{}{"type": "string", "description": "Path to the file to write"},
					"content":   map[string]interface{}{"type": "string", "description": "Content to write"},
				},
				Required: []string{"file_path", "content"},
			},
		}},
		{OfTool: &anthropic.ToolParam{
			Name:        "Edit",
			Description: anthropic.String("Replace an exact, unique occurrence of old_string with new_string in a file."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{
					"file_path":  map[string]interface{}{"type": "string"},
					"old_string": map[string]interface{}{"type": "string"},
					"new_string": map[string]interface{}{"type": "string"},
				},
				Required: []string{"file_path", "old_string", "new_string"},
			},
		}},
		{OfTool: &anthropic.ToolParam{
			Name:        "Bash",
			Description: anthropic.String("Run a shell command in the working directory and return its combined output."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{
					"command": map[string]interface{}{"type": "string"},
				},
				Required: []string{"command"},
			},
		}},
		{OfTool: &anthropic.ToolParam{
			Name:        "Glob",
			Description: anthropic.String("List files matching a glob pattern under the working directory."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{
					"pattern": map[string]interface{}{"type": "string"},
				},
				Required: []string{"pattern"},
			},
		}},
	}
}

// toolResult is the outcome of one tool invocation, fed back to the model
// as a tool_result content block.
type toolResult struct {
	content string
	isError bool
}

// toolExecutor runs tool calls against a single worktree directory. All
// paths are resolved relative to workDir; the agent cannot escape it via
// "..": resolvePath clamps any resulting path back under workDir.
type toolExecutor struct {
	workDir string
}

func newToolExecutor(workDir string) *toolExecutor {
	return &toolExecutor{workDir: workDir}
}

func (e *toolExecutor) execute(ctx context.Context, name string, input json.RawMessage) toolResult {
	switch name {
	case "Read":
		return e.execRead(input)
	case "Write":
		return e.execWrite(input)
	case "Edit":
		return e.execEdit(input)
	case "Bash":
		return e.execBash(ctx, input)
	case "Glob":
		return e.execGlob(input)
	default:
		return toolResult{content: fmt.Sprintf("unknown tool: %s", name), isError: true}
	}
}

func (e *toolExecutor) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		if rel, err := filepath.Rel(e.workDir, path); err == nil && !strings.HasPrefix(rel, "..") {
			return path
		}
		return filepath.Join(e.workDir, filepath.Base(path))
	}
	joined := filepath.Join(e.workDir, path)
	if rel, err := filepath.Rel(e.workDir, joined); err != nil || strings.HasPrefix(rel, "..") {
		return e.workDir
	}
	return joined
}

func (e *toolExecutor) execRead(input json.RawMessage) toolResult {
	var params struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return toolResult{content: fmt.Sprintf("invalid parameters: %v", err), isError: true}
	}
	content, err := os.ReadFile(e.resolvePath(params.FilePath))
	if err != nil {
		return toolResult{content: fmt.Sprintf("read failed: %v", err), isError: true}
	}
	var b strings.Builder
	for i, line := range strings.Split(string(content), "\n") {
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, line)
	}
	return toolResult{content: b.String()}
}

func (e *toolExecutor) execWrite(input json.RawMessage) toolResult {
	var params struct {
		FilePath string `json:"file_path"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return toolResult{content: fmt.Sprintf("invalid parameters: %v", err), isError: true}
	}
	path := e.resolvePath(params.FilePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return toolResult{content: fmt.Sprintf("mkdir failed: %v", err), isError: true}
	}
	if err := os.WriteFile(path, []byte(params.Content), 0o644); err != nil {
		return toolResult{content: fmt.Sprintf("write failed: %v", err), isError: true}
	}
	return toolResult{content: fmt.Sprintf("wrote %d bytes to %s", len(params.Content), params.FilePath)}
}

func (e *toolExecutor) execEdit(input json.RawMessage) toolResult {
	var params struct {
		FilePath  string `json:"file_path"`
		OldString string `json:"old_string"`
		NewString string `json:"new_string"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return toolResult{content: fmt.Sprintf("invalid parameters: %v", err), isError: true}
	}
	path := e.resolvePath(params.FilePath)
	content, err := os.ReadFile(path)
	if err != nil {
		return toolResult{content: fmt.Sprintf("read failed: %v", err), isError: true}
	}
	count := strings.Count(string(content), params.OldString)
	if count == 0 {
		return toolResult{content: "old_string not found", isError: true}
	}
	if count > 1 {
		return toolResult{content: "old_string is not unique in file", isError: true}
	}
	updated := strings.Replace(string(content), params.OldString, params.NewString, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return toolResult{content: fmt.Sprintf("write failed: %v", err), isError: true}
	}
	return toolResult{content: "edit applied"}
}

func (e *toolExecutor) execBash(ctx context.Context, input json.RawMessage) toolResult {
	var params struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return toolResult{content: fmt.Sprintf("invalid parameters: %v", err), isError: true}
	}
	cmd := exec.CommandContext(ctx, "bash", "-c", params.Command)
	cmd.Dir = e.workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return toolResult{content: fmt.Sprintf("%s\nexit error: %v", out, err), isError: true}
	}
	return toolResult{content: string(out)}
}

func (e *toolExecutor) execGlob(input json.RawMessage) toolResult {
	var params struct {
		Pattern string `json:"pattern"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return toolResult{content: fmt.Sprintf("invalid parameters: %v", err), isError: true}
	}
	matches, err := filepath.Glob(filepath.Join(e.workDir, params.Pattern))
	if err != nil {
		return toolResult{content: fmt.Sprintf("glob failed: %v", err), isError: true}
	}
	return toolResult{content: strings.Join(matches, "\n")}
}
