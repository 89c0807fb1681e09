package nerv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/gabino75/nerv-sub005/settings"
)

// Claude CLI errors.
var (
	// ErrClaudeNotFound indicates the claude CLI binary was not found.
	ErrClaudeNotFound = errors.New("claude CLI not found")

	// ErrClaudeTimeout indicates the claude CLI execution timed out.
	ErrClaudeTimeout = errors.New("claude CLI timed out")

	// ErrClaudeFailed indicates the claude CLI exited with an error.
	ErrClaudeFailed = errors.New("claude CLI failed")

	// ErrBudgetExceeded indicates a run cost more than per_task_budget_usd.
	ErrBudgetExceeded = errors.New("per-task budget exceeded")
)

// lookPath is swapped by tests that have no claude binary installed.
var lookPath = exec.LookPath

// ClaudeCLI wraps the claude CLI binary for structured LLM invocation.
// Its defaults come from the settings resolver at construction time: the
// binary path from claude_binary, the model from default_model (so a task
// overlay redirects it), and the cost ceiling from per_task_budget_usd.
type ClaudeCLI struct {
	binaryPath string
	model      string
	budgetUSD  float64 // 0 means no ceiling
	timeout    time.Duration
	maxTurns   int
}

// ClaudeOption adjusts the wrapper's fixed defaults.
type ClaudeOption func(*ClaudeCLI)

// WithDefaultTimeout sets the default per-run timeout (default 5m).
func WithDefaultTimeout(d time.Duration) ClaudeOption {
	return func(c *ClaudeCLI) {
		c.timeout = d
	}
}

// WithDefaultMaxTurns sets the default conversation turn limit (default 10).
func WithDefaultMaxTurns(n int) ClaudeOption {
	return func(c *ClaudeCLI) {
		c.maxTurns = n
	}
}

// NewClaudeCLI creates a Claude CLI wrapper configured from the resolver.
// Returns ErrClaudeNotFound if the configured binary is not installed.
func NewClaudeCLI(res *settings.Resolver, opts ...ClaudeOption) (*ClaudeCLI, error) {
	binaryPath := res.GetString(settings.KeyClaudeBinary)
	if _, err := lookPath(binaryPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrClaudeNotFound, binaryPath)
	}

	modelArg := res.GetString(settings.KeyDefaultModel)
	if m, ok := settings.ModelName(modelArg); ok {
		modelArg = string(m)
	}

	c := &ClaudeCLI{
		binaryPath: binaryPath,
		model:      modelArg,
		budgetUSD:  res.GetNumber(settings.KeyPerTaskBudgetUSD),
		timeout:    5 * time.Minute,
		maxTurns:   10,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RunResult contains the output from a Claude CLI run.
type RunResult struct {
	Output    string        // Final output text
	TokensIn  int           // Input tokens consumed
	TokensOut int           // Output tokens generated
	Cost      float64       // Cost in USD
	SessionID string        // Session ID (for multi-turn conversations)
	Duration  time.Duration // Execution time
	ExitCode  int           // Process exit code
}

// runConfig holds configuration for a single run.
type runConfig struct {
	systemPrompt string
	workDir      string
	maxTurns     int
	timeout      time.Duration
	model        string
	sessionID    string
}

// RunOption configures a Run invocation.
type RunOption func(*runConfig)

// WithSystemPrompt sets the system prompt for Claude.
func WithSystemPrompt(prompt string) RunOption {
	return func(cfg *runConfig) {
		cfg.systemPrompt = prompt
	}
}

// WithWorkDir sets the working directory for Claude CLI.
func WithWorkDir(dir string) RunOption {
	return func(cfg *runConfig) {
		cfg.workDir = dir
	}
}

// WithMaxTurns limits the number of conversation turns.
func WithMaxTurns(n int) RunOption {
	return func(cfg *runConfig) {
		cfg.maxTurns = n
	}
}

// WithClaudeTimeout sets the timeout for this run.
func WithClaudeTimeout(d time.Duration) RunOption {
	return func(cfg *runConfig) {
		cfg.timeout = d
	}
}

// WithModel overrides the model for this run.
func WithModel(model string) RunOption {
	return func(cfg *runConfig) {
		cfg.model = model
	}
}

// WithSession resumes a previous session for multi-turn conversations.
func WithSession(sessionID string) RunOption {
	return func(cfg *runConfig) {
		cfg.sessionID = sessionID
	}
}

// Run executes Claude CLI with the given prompt and options. A run whose
// reported cost exceeds the per-task budget returns the result together with
// ErrBudgetExceeded so the caller can record the overage.
func (c *ClaudeCLI) Run(ctx context.Context, prompt string, opts ...RunOption) (*RunResult, error) {
	cfg := &runConfig{
		timeout:  c.timeout,
		maxTurns: c.maxTurns,
		model:    c.model,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	args := c.buildArgs(cfg, prompt)

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binaryPath, args...)
	if cfg.workDir != "" {
		cmd.Dir = cfg.workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %v", ErrClaudeTimeout, cfg.timeout)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", ErrClaudeFailed, msg)
		}
		return nil, fmt.Errorf("%w: %v", ErrClaudeFailed, err)
	}

	result, err := parseClaudeOutput(stdout.Bytes())
	if err != nil {
		// Fall back to raw output
		result = &RunResult{Output: strings.TrimSpace(stdout.String())}
	}

	result.Duration = duration
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if c.budgetUSD > 0 && result.Cost > c.budgetUSD {
		return result, fmt.Errorf("%w: $%.2f > $%.2f", ErrBudgetExceeded, result.Cost, c.budgetUSD)
	}

	return result, nil
}

// buildArgs constructs command line arguments for claude CLI.
func (c *ClaudeCLI) buildArgs(cfg *runConfig, prompt string) []string {
	args := []string{"--print", "--output-format", "json"}

	if cfg.model != "" {
		args = append(args, "--model", cfg.model)
	}
	if cfg.systemPrompt != "" {
		args = append(args, "--system-prompt", cfg.systemPrompt)
	}
	if cfg.maxTurns > 0 {
		args = append(args, "--max-turns", fmt.Sprintf("%d", cfg.maxTurns))
	}
	if cfg.sessionID != "" {
		args = append(args, "--resume", cfg.sessionID)
	}

	return append(args, "-p", prompt)
}

// claudeJSONOutput represents the JSON output from claude CLI.
type claudeJSONOutput struct {
	Result       string  `json:"result"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	SessionID    string  `json:"session_id"`
}

// parseClaudeOutput parses the JSON output from claude CLI. The JSON object
// may be surrounded by other text.
func parseClaudeOutput(data []byte) (*RunResult, error) {
	data = bytes.TrimSpace(data)

	var output claudeJSONOutput
	if err := json.Unmarshal(data, &output); err != nil {
		start := bytes.Index(data, []byte("{"))
		end := bytes.LastIndex(data, []byte("}"))
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no json found in output")
		}
		if err := json.Unmarshal(data[start:end+1], &output); err != nil {
			return nil, fmt.Errorf("parse json output: %w", err)
		}
	}

	return &RunResult{
		Output:    output.Result,
		TokensIn:  output.InputTokens,
		TokensOut: output.OutputTokens,
		Cost:      output.CostUSD,
		SessionID: output.SessionID,
	}, nil
}

// BinaryPath returns the path to the claude binary.
func (c *ClaudeCLI) BinaryPath() string {
	return c.binaryPath
}

// DefaultModel returns the model runs use unless overridden.
func (c *ClaudeCLI) DefaultModel() string {
	return c.model
}

// BudgetUSD returns the per-run cost ceiling, 0 when uncapped.
func (c *ClaudeCLI) BudgetUSD() float64 {
	return c.budgetUSD
}
