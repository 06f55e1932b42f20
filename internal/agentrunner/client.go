package agentrunner

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// modelAliases maps the config-level model names (opus/sonnet/haiku) to
// concrete Anthropic SDK model identifiers.
var modelAliases = map[string]anthropic.Model{
	"opus":   anthropic.ModelClaudeOpus4_5_20251101,
	"sonnet": anthropic.ModelClaudeSonnet4_5_20250929,
	"haiku":  anthropic.ModelClaudeHaiku4_5_20251001,
}

// bedrockInferenceProfiles maps direct-API model ids to their Bedrock
// cross-region inference profile equivalents.
var bedrockInferenceProfiles = map[anthropic.Model]string{
	anthropic.ModelClaudeOpus4_5_20251101:   "us.anthropic.claude-opus-4-5-20251101-v1:0",
	anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
	anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
}

// ResolveModel maps a config model alias (opus/sonnet/haiku) to a concrete
// SDK model id, falling back to treating the string as an explicit model id
// already (for Bedrock inference-profile strings set directly in config).
func ResolveModel(alias string) anthropic.Model {
	if m, ok := modelAliases[alias]; ok {
		return m
	}
	return anthropic.Model(alias)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Model         anthropic.Model
	APIKey        string
	UseAWSBedrock bool
	AWSRegion     string
	AWSProfile    string
}

// Client wraps the Anthropic SDK client with cost tracking.
type Client struct {
	inner   anthropic.Client
	model   anthropic.Model
	tracker *CostTracker
}

// NewClient builds a Client against the direct Anthropic API, or AWS
// Bedrock when cfg.UseAWSBedrock is set.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	inner := anthropic.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = modelAliases["sonnet"]
	}
	if cfg.UseAWSBedrock {
		if profile, ok := bedrockInferenceProfiles[model]; ok {
			model = anthropic.Model(profile)
		}
	}

	return &Client{inner: inner, model: model, tracker: NewCostTracker()}, nil
}

func (c *Client) sdk() *anthropic.Client { return &c.inner }

// Model returns the configured model identifier.
func (c *Client) Model() anthropic.Model { return c.model }

// Tracker returns the client's cost tracker.
func (c *Client) Tracker() *CostTracker { return c.tracker }

// CostTracker accumulates token usage and converts it to a USD estimate.
// Pricing is per-model, approximate, and intentionally conservative: it
// exists to enforce agent.maxBudgetUsd, not to reconcile billing.
type CostTracker struct {
	mu        sync.Mutex
	model     anthropic.Model
	inputTok  int64
	outputTok int64
	calls     int
}

// NewCostTracker creates an empty tracker.
func NewCostTracker() *CostTracker {
	return &CostTracker{}
}

// Add records token usage from one API call.
func (t *CostTracker) Add(model anthropic.Model, input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.model = model
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// CostUsd returns the running cost estimate in USD.
func (t *CostTracker) CostUsd() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	inRate, outRate := ratesFor(t.model)
	return float64(t.inputTok)/1_000_000*inRate + float64(t.outputTok)/1_000_000*outRate
}

// Calls returns the number of API calls tracked.
func (t *CostTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// ratesFor returns approximate per-million-token input/output USD rates.
func ratesFor(model anthropic.Model) (in, out float64) {
	switch model {
	case anthropic.ModelClaudeOpus4_5_20251101:
		return 15.0, 75.0
	case anthropic.ModelClaudeHaiku4_5_20251001:
		return 0.8, 4.0
	default: // sonnet and unrecognized/Bedrock ids default to sonnet pricing
		return 3.0, 15.0
	}
}
