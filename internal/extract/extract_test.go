package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperifyio/gopricecmp/internal/pricing"
)

const productPage = `<!DOCTYPE html>
<html><head><title>Garmin Venu 3 - Shop</title>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Product","name":"Garmin Venu 3",
 "image":"https://shop.example.com/venu3.jpg",
 "offers":{"@type":"Offer","price":"449.99","priceCurrency":"USD"}}
</script>
</head><body>
<h1>Garmin Venu 3</h1>
<div>Price: $449.99</div>
<div>Also available: Garmin Venu 2 at $349.99 and Venu Sq for $199.99</div>
</body></html>`

func TestExtract_StructuredTierSuffices(t *testing.T) {
	e := &Extractor{MinCandidates: 1}
	got := e.Extract(context.Background(), []byte(productPage), "shop", "https://shop.example.com/venu3", "garmin venu")
	if len(got) == 0 {
		t.Fatalf("no candidates")
	}
	c := got[0]
	if c.ProductName != "Garmin Venu 3" || c.RawPriceText != "449.99" || c.Currency != "USD" {
		t.Fatalf("unexpected structured candidate: %+v", c)
	}
	if c.ImageURL != "https://shop.example.com/venu3.jpg" {
		t.Fatalf("image not carried: %q", c.ImageURL)
	}
}

func TestExtract_PatternTierRunsWhenStructuredThin(t *testing.T) {
	page := `<html><head><title>Watch deals</title></head><body>
<p>Amazfit GTS 4 now $149.00 only</p>
<p>Fine watches since 1848</p>
</body></html>`
	e := &Extractor{MinCandidates: 3}
	got := e.Extract(context.Background(), []byte(page), "shop", "https://shop.example.com", "watch")
	if len(got) == 0 {
		t.Fatalf("pattern tier produced nothing")
	}
	found := false
	for _, c := range got {
		if strings.Contains(c.RawPriceText, "149") {
			found = true
			if c.Info["context"] == "" {
				t.Fatalf("pattern match must carry context: %+v", c)
			}
		}
	}
	if !found {
		t.Fatalf("expected $149.00 match, got %+v", got)
	}
}

func TestExtract_MetaTagsFeedStructuredTier(t *testing.T) {
	page := `<html><head>
<meta property="og:title" content="Fitbit Charge 6">
<meta property="product:price:amount" content="159.95">
<meta property="og:image" content="https://shop.example.com/charge6.jpg">
</head><body></body></html>`
	e := &Extractor{MinCandidates: 1}
	got := e.Extract(context.Background(), []byte(page), "shop", "https://shop.example.com/c6", "fitbit")
	if len(got) == 0 {
		t.Fatalf("meta tags ignored")
	}
	if got[0].ProductName != "Fitbit Charge 6" || got[0].RawPriceText != "159.95" {
		t.Fatalf("unexpected meta candidate: %+v", got[0])
	}
}

type stubAI struct {
	cands  []pricing.Candidate
	err    error
	called bool
	gotLen int
}

func (s *stubAI) Extract(ctx context.Context, payload, sourceURL, query string) ([]pricing.Candidate, error) {
	s.called = true
	s.gotLen = len(payload)
	return s.cands, s.err
}

func TestExtract_AITierOnlyWhenShort(t *testing.T) {
	ai := &stubAI{cands: []pricing.Candidate{{ProductName: "AI find", RawPriceText: "99.00"}}}
	e := &Extractor{MinCandidates: 3, AI: ai}
	page := `<html><body><p>no prices here at all</p></body></html>`
	got := e.Extract(context.Background(), []byte(page), "shop", "https://shop.example.com", "watch")
	if !ai.called {
		t.Fatalf("AI tier must run when deterministic tiers come up short")
	}
	if len(got) != 1 || got[0].SourceID != "shop" {
		t.Fatalf("AI candidates must inherit source id: %+v", got)
	}
}

func TestExtract_AITierSkippedWhenEnough(t *testing.T) {
	ai := &stubAI{}
	e := &Extractor{MinCandidates: 1, AI: ai}
	e.Extract(context.Background(), []byte(productPage), "shop", "https://shop.example.com", "garmin")
	if ai.called {
		t.Fatalf("AI tier must not run when structured tier suffices")
	}
}

func TestExtract_AIPayloadTruncated(t *testing.T) {
	ai := &stubAI{}
	e := &Extractor{MinCandidates: 3, MaxAIChars: 500, AI: ai}
	big := "<html><body>" + strings.Repeat("filler text without numbers ", 200) + "</body></html>"
	e.Extract(context.Background(), []byte(big), "shop", "https://shop.example.com", "watch")
	if !ai.called {
		t.Fatalf("AI not called")
	}
	if ai.gotLen != 500 {
		t.Fatalf("payload not truncated: got %d chars", ai.gotLen)
	}
}

func TestTruncate_BacksOffToRuneBoundary(t *testing.T) {
	s := strings.Repeat("₹", 40)
	got := truncate(s, 100)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated payload is invalid UTF-8: %q", got)
	}
	// 100 lands one byte into a rupee sign; the cut must retreat to 99.
	if len(got) != 99 {
		t.Fatalf("len = %d, want 99", len(got))
	}
}

func TestContextAround_RuneBoundaries(t *testing.T) {
	text := strings.Repeat("€", 60) + "1299" + strings.Repeat("€", 60)
	start := strings.Index(text, "1299")
	got := contextAround(text, start, start+4)
	if !utf8.ValidString(got) {
		t.Fatalf("context window is invalid UTF-8: %q", got)
	}
	if !strings.Contains(got, "1299") {
		t.Fatalf("context window lost the match: %q", got)
	}
}

func TestExtract_AIErrorDegradesQuietly(t *testing.T) {
	ai := &stubAI{err: errors.New("model down")}
	e := &Extractor{MinCandidates: 3, AI: ai}
	got := e.Extract(context.Background(), []byte("<html><body>nothing</body></html>"), "shop", "https://shop.example.com", "watch")
	if len(got) != 0 {
		t.Fatalf("AI failure must degrade to zero extra candidates: %+v", got)
	}
}

func TestExtract_GarbageInputNoPanic(t *testing.T) {
	e := &Extractor{}
	_ = e.Extract(context.Background(), []byte("\x00\xff not html <<<"), "shop", "u", "q")
}

func TestExtractText_SnippetPatterns(t *testing.T) {
	e := &Extractor{}
	got := e.ExtractText("Apple Watch Series 9 from $399 at retailer", "Apple Watch Series 9", "customsearch", "https://r.example.com")
	if len(got) == 0 {
		t.Fatalf("no snippet match")
	}
	if got[0].Link != "https://r.example.com" || got[0].ProductName != "Apple Watch Series 9" {
		t.Fatalf("unexpected candidate: %+v", got[0])
	}
}
