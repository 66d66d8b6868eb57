package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/folioworks/folio/pkg/models"
)

var (
	// ErrNoAPIKey means no Gemini credential is configured or it was
	// rejected.
	ErrNoAPIKey = errors.New("classify: no valid API key")
	// ErrRateLimit means Gemini throttled the request.
	ErrRateLimit = errors.New("classify: rate limited")
)

const classifyInstruction = `You are a financial data assistant. For each "SYMBOL: description" line below, classify the holding. Respond with ONLY a JSON object mapping each symbol to an object with these keys:
- "assetClass": one of "U.S. Equity", "Non-U.S. Equity", "Fixed Income", "Cash", "Other"
- "style": a 3x3 style box cell like "Large-Growth", "Mid-Core", "Small-Value", or "N/A"
- "sector": GICS-style sector name, or "Unclassified"
- "country": primary country of exposure
- "logoTicker": the best ticker to use for a logo lookup (the issuer's common stock ticker for bonds)
- "stateCode": two-letter state code for municipal bonds, else ""

Holdings:
`

// Gemini classifies holdings with Google's Gemini API.
type Gemini struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// GeminiOption configures the Gemini classifier.
type GeminiOption func(*Gemini)

// WithGeminiModel sets the model.
func WithGeminiModel(model string) GeminiOption {
	return func(g *Gemini) { g.model = model }
}

// WithGeminiBaseURL points the client at a different API root; used in
// tests.
func WithGeminiBaseURL(u string) GeminiOption {
	return func(g *Gemini) { g.baseURL = u }
}

// WithGeminiHTTPClient sets a custom HTTP client.
func WithGeminiHTTPClient(client *http.Client) GeminiOption {
	return func(g *Gemini) { g.client = client }
}

// NewGemini creates a Gemini classifier.
func NewGemini(apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	g := &Gemini{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		model:   "gemini-2.0-flash",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Classify sends one batched request and returns a mapping for every
// symbol Gemini answered for. Missing or malformed entries are simply
// absent; the caller backfills them.
func (g *Gemini) Classify(ctx context.Context, items []Item) (map[string]models.Classification, error) {
	var prompt strings.Builder
	prompt.WriteString(classifyInstruction)
	for _, it := range items {
		fmt.Fprintf(&prompt, "%s: %s\n", it.Symbol, it.Description)
	}

	body := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt.String()}},
		}},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("classify: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()

	if err := g.checkError(resp); err != nil {
		return nil, err
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("classify: decode response: %w", err)
	}
	return parseClassifications(&result)
}

func (g *Gemini) checkError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrNoAPIKey, string(body))
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimit, string(body))
	}
	return fmt.Errorf("classify: HTTP %d: %s", resp.StatusCode, string(body))
}

// parseClassifications pulls the candidate text, strips any markdown
// code fence, and decodes the symbol mapping.
func parseClassifications(raw *geminiResponse) (map[string]models.Classification, error) {
	if len(raw.Candidates) == 0 {
		return nil, fmt.Errorf("classify: empty response")
	}

	var text strings.Builder
	for _, part := range raw.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	payload := strings.TrimSpace(text.String())
	payload = strings.TrimPrefix(payload, "```json")
	payload = strings.TrimPrefix(payload, "```")
	payload = strings.TrimSuffix(payload, "```")

	var wire map[string]geminiClassification
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &wire); err != nil {
		return nil, fmt.Errorf("classify: parse mapping: %w", err)
	}

	out := make(map[string]models.Classification, len(wire))
	for sym, c := range wire {
		out[strings.ToUpper(strings.TrimSpace(sym))] = models.Classification{
			AssetClass: c.AssetClass,
			Style:      c.Style,
			Sector:     c.Sector,
			Country:    c.Country,
			LogoTicker: c.LogoTicker,
			StateCode:  c.StateCode,
		}
	}
	return out, nil
}

// ── Wire types ──

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiClassification struct {
	AssetClass string `json:"assetClass"`
	Style      string `json:"style"`
	Sector     string `json:"sector"`
	Country    string `json:"country"`
	LogoTicker string `json:"logoTicker"`
	StateCode  string `json:"stateCode"`
}
