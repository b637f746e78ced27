package aiassist

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type stubClient struct {
	reply string
	err   error
	req   openai.ChatCompletionRequest
}

func (s *stubClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.req = req
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: s.reply}},
		},
	}, nil
}

func TestExtract_ParsesListings(t *testing.T) {
	stub := &stubClient{reply: `[{"productName":"Amazfit GTS 4","price":"149.00","currency":"USD","link":"https://shop.example.com/gts4","imageUrl":""}]`}
	e := &Extractor{Client: stub, Model: "test-model"}
	got, err := e.Extract(context.Background(), "<html>page</html>", "https://shop.example.com", "amazfit")
	if err != nil {
		t.Fatalf("extract error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.ProductName != "Amazfit GTS 4" || c.RawPriceText != "149.00" || c.Currency != "USD" {
		t.Fatalf("unexpected candidate: %+v", c)
	}
	if c.Info["extractedBy"] != "ai" {
		t.Fatalf("ai provenance not marked: %+v", c.Info)
	}
	if stub.req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("first message must be the system contract")
	}
}

func TestExtract_ToleratesProseWrapping(t *testing.T) {
	stub := &stubClient{reply: "Here are the listings:\n```json\n[{\"productName\":\"X\",\"price\":\"10\"}]\n```\nHope that helps."}
	e := &Extractor{Client: stub, Model: "m"}
	got, err := e.Extract(context.Background(), "p", "https://s.example.com", "q")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected fenced JSON to parse: err=%v got=%+v", err, got)
	}
}

func TestExtract_MalformedReplyYieldsNothing(t *testing.T) {
	stub := &stubClient{reply: "I could not find any products, sorry!"}
	e := &Extractor{Client: stub, Model: "m"}
	got, err := e.Extract(context.Background(), "p", "https://s.example.com", "q")
	if err != nil {
		t.Fatalf("malformed reply must not error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected zero candidates, got %+v", got)
	}
}

func TestExtract_CapsListings(t *testing.T) {
	items := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		items = append(items, `{"productName":"item","price":"10"}`)
	}
	stub := &stubClient{reply: "[" + strings.Join(items, ",") + "]"}
	e := &Extractor{Client: stub, Model: "m"}
	got, err := e.Extract(context.Background(), "p", "https://s.example.com", "q")
	if err != nil {
		t.Fatalf("extract error: %v", err)
	}
	if len(got) != maxListings {
		t.Fatalf("expected cap at %d, got %d", maxListings, len(got))
	}
}

func TestExtract_EmptyLinkDefaultsToSource(t *testing.T) {
	stub := &stubClient{reply: `[{"productName":"X","price":"10"}]`}
	e := &Extractor{Client: stub, Model: "m"}
	got, _ := e.Extract(context.Background(), "p", "https://s.example.com/page", "q")
	if len(got) != 1 || got[0].Link != "https://s.example.com/page" {
		t.Fatalf("empty link must default to source url: %+v", got)
	}
}

func TestExtract_NamelessListingsDropped(t *testing.T) {
	stub := &stubClient{reply: `[{"productName":"  ","price":"10"},{"productName":"Real","price":"20"}]`}
	e := &Extractor{Client: stub, Model: "m"}
	got, _ := e.Extract(context.Background(), "p", "https://s.example.com", "q")
	if len(got) != 1 || got[0].ProductName != "Real" {
		t.Fatalf("nameless listing must be dropped: %+v", got)
	}
}

func TestExtract_TransportErrorPropagates(t *testing.T) {
	stub := &stubClient{err: errors.New("connection refused")}
	e := &Extractor{Client: stub, Model: "m"}
	if _, err := e.Extract(context.Background(), "p", "https://s.example.com", "q"); err == nil {
		t.Fatalf("transport errors must surface to the caller")
	}
}

func TestExtract_UnconfiguredFails(t *testing.T) {
	var e *Extractor
	if _, err := e.Extract(context.Background(), "p", "u", "q"); err == nil {
		t.Fatalf("nil extractor must fail")
	}
}
