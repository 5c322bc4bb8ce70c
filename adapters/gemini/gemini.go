// Package gemini is a Generator that asks a Gemini model to compare parts.
//
// The model is prompted for a JSON object
//
//	{"summary": "...", "recommendation": "...", "highlights": ["..."]}
//
// and the reply is decoded into a provider.Comparison. A reply that is not
// valid JSON is kept whole as the summary.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"google.golang.org/genai"

	"github.com/jonwraymond/partsource/provider"
)

// Models is the part of the genai client used by the adapter.
// *genai.Models satisfies it.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures a Generator.
type Config struct {
	// APIKey authenticates against the Gemini API. The generator is
	// unavailable while it is empty.
	APIKey string

	// Model is the model name.
	// Default: gemini-2.5-flash
	Model string

	// Temperature controls sampling.
	// Default: 0.2
	Temperature float32

	// BaseURL overrides the API endpoint.
	BaseURL string

	// HTTPClient is passed to the genai client.
	HTTPClient *http.Client
}

// Generator implements provider.Generator.
type Generator struct {
	config Config
	models Models
}

// New creates a Generator with its own genai client. With no API key the
// client is not created and the generator reports itself unavailable.
func New(ctx context.Context, config Config) (*Generator, error) {
	config = withDefaults(config)
	if config.APIKey == "" {
		return &Generator{config: config}, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: config.HTTPClient,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions.BaseURL = config.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Generator{config: config, models: client.Models}, nil
}

// NewWithModels creates a Generator over an existing Models implementation.
func NewWithModels(models Models, config Config) *Generator {
	return &Generator{config: withDefaults(config), models: models}
}

func withDefaults(config Config) Config {
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	return config
}

// IsAvailable reports whether a client is configured.
func (g *Generator) IsAvailable(context.Context) bool {
	return g.models != nil
}

// Generate implements provider.Generator.
func (g *Generator) Generate(ctx context.Context, req provider.ComparisonRequest) (provider.Comparison, error) {
	if g.models == nil {
		return provider.Comparison{}, provider.Errorf(provider.KindUnavailable, "gemini: no API key configured")
	}

	resp, err := g.models.GenerateContent(ctx, g.config.Model, genai.Text(Prompt(req)), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.config.Temperature),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return provider.Comparison{}, classify(err)
	}
	if resp == nil {
		return provider.Comparison{}, provider.Errorf(provider.KindTransient, "gemini: empty response")
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return provider.Comparison{}, provider.Errorf(provider.KindTransient, "gemini: empty response")
	}
	return parseReply(reply), nil
}

type reply struct {
	Summary        string   `json:"summary"`
	Recommendation string   `json:"recommendation"`
	Highlights     []string `json:"highlights"`
}

func parseReply(text string) provider.Comparison {
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var r reply
	if err := json.Unmarshal([]byte(text), &r); err != nil || r.Summary == "" {
		return provider.Comparison{Summary: text}
	}
	return provider.Comparison{
		Summary:        r.Summary,
		Recommendation: r.Recommendation,
		Highlights:     r.Highlights,
	}
}

// Prompt renders the comparison request sent to the model.
func Prompt(req provider.ComparisonRequest) string {
	var sb strings.Builder
	sb.WriteString("Compare these two computer parts for a buyer")
	if req.Focus != "" {
		fmt.Fprintf(&sb, " focused on %s", req.Focus)
	}
	sb.WriteString(".\nReply with a JSON object with the keys summary, recommendation and highlights (a list of short strings).\n")
	describe(&sb, "Part A", req.A)
	describe(&sb, "Part B", req.B)
	return sb.String()
}

func describe(sb *strings.Builder, label string, p provider.NormalizedResult) {
	fmt.Fprintf(sb, "\n%s: %s", label, p.Name)
	if p.Brand != "" {
		fmt.Fprintf(sb, " by %s", p.Brand)
	}
	if p.Price > 0 {
		fmt.Fprintf(sb, ", price %.2f %s", p.Price, p.Currency)
	}
	sb.WriteString("\n")

	keys := make([]string, 0, len(p.Specifications))
	for k := range p.Specifications {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, "- %s: %s\n", k, p.Specifications[k])
	}
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return provider.Wrap(provider.KindTransient, err)
		}
		return provider.Wrap(provider.KindPermanent, err)
	}
	return provider.Wrap(provider.KindTransient, err)
}

var _ provider.Generator = (*Generator)(nil)
