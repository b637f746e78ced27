package aiassist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/gopricecmp/internal/pricing"
)

// Client is the minimal interface needed to call a chat model. It mirrors the
// CreateChatCompletion method so any OpenAI-compatible backend can be adapted
// and tests can substitute a stub.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// maxListings caps how many candidates one collaborator call may contribute.
const maxListings = 5

const systemMessage = "You are a product listing extractor. Respond with strict JSON only, no narration: " +
	"a JSON array of at most 5 objects with fields {\"productName\": string, \"price\": string, " +
	"\"currency\": string, \"link\": string, \"imageUrl\": string}. The price field is the numeric " +
	"amount only. Never use years such as 1926 or 2025 as prices; those are founding or model years. " +
	"Only include listings that match the search query. Return [] when nothing matches."

// Extractor asks an OpenAI-compatible model to pull listings out of a payload
// the deterministic tiers could not handle. Any malformed reply degrades to
// zero candidates; the collaborator can never fail a search.
type Extractor struct {
	Client Client
	Model  string
}

// Extract implements extract.AIAssist.
func (e *Extractor) Extract(ctx context.Context, payload, sourceURL, query string) ([]pricing.Candidate, error) {
	if e == nil || e.Client == nil || e.Model == "" {
		return nil, errors.New("ai extractor not configured")
	}

	resp, err := e.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(payload, sourceURL, query)},
		},
		Temperature: 0.1,
		N:           1,
	})
	if err != nil {
		return nil, fmt.Errorf("ai extraction call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices")
	}

	listings, ok := parseListings(resp.Choices[0].Message.Content)
	if !ok {
		log.Warn().Str("source", sourceURL).Msg("ai extraction reply unparsable, discarding")
		return nil, nil
	}

	out := make([]pricing.Candidate, 0, len(listings))
	for _, l := range listings {
		if len(out) >= maxListings {
			break
		}
		if strings.TrimSpace(l.ProductName) == "" {
			continue
		}
		c := pricing.Candidate{
			ProductName:  strings.TrimSpace(l.ProductName),
			RawPriceText: strings.TrimSpace(l.Price),
			Currency:     strings.TrimSpace(l.Currency),
			Link:         strings.TrimSpace(l.Link),
			ImageURL:     strings.TrimSpace(l.ImageURL),
		}
		if c.Link == "" {
			c.Link = sourceURL
		}
		c.SetInfo("extractedBy", "ai")
		out = append(out, c)
	}
	return out, nil
}

type listing struct {
	ProductName string `json:"productName"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	Link        string `json:"link"`
	ImageURL    string `json:"imageUrl"`
}

func buildUserPrompt(payload, sourceURL, query string) string {
	var sb strings.Builder
	sb.WriteString("Source URL: ")
	sb.WriteString(sourceURL)
	sb.WriteString("\nSearch query: ")
	sb.WriteString(query)
	sb.WriteString("\nPage content (truncated):\n")
	sb.WriteString(payload)
	return sb.String()
}

// parseListings unmarshals the model reply. Models occasionally wrap the JSON
// in prose or fencing, so the first bracketed array in the reply is located
// before decoding.
func parseListings(raw string) ([]listing, bool) {
	raw = strings.TrimSpace(raw)
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end <= start {
		return nil, false
	}
	var out []listing
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return nil, false
	}
	return out, true
}
