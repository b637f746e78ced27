package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"golang.org/x/net/html"

	"github.com/hyperifyio/gopricecmp/internal/pricing"
)

// structuredListing is raw schema.org/metadata output before validation.
type structuredListing struct {
	Name     string
	Price    string
	Currency string
	Image    string
	Brand    string
}

// fromStructured parses embedded JSON-LD blocks and Open Graph / product meta
// tags. Structured markup is the highest-trust tier: site operators publish
// it for machines, so it is used as-is when present.
func fromStructured(body []byte, sourceID, link string) []pricing.Candidate {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil || root == nil {
		return nil
	}

	var listings []structuredListing
	meta := map[string]string{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "script":
				if attrVal(n, "type") == "application/ld+json" && n.FirstChild != nil {
					listings = append(listings, parseJSONLD(n.FirstChild.Data)...)
				}
			case "meta":
				key := attrVal(n, "property")
				if key == "" {
					key = attrVal(n, "itemprop")
				}
				if key != "" {
					if v := attrVal(n, "content"); v != "" {
						meta[strings.ToLower(key)] = v
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if l, ok := listingFromMeta(meta); ok {
		listings = append(listings, l)
	}

	out := make([]pricing.Candidate, 0, len(listings))
	for _, l := range listings {
		if l.Price == "" {
			continue
		}
		c := pricing.Candidate{
			ProductName:  l.Name,
			RawPriceText: l.Price,
			Currency:     l.Currency,
			SourceID:     sourceID,
			Link:         link,
			ImageURL:     l.Image,
		}
		c.SetInfo("brand", l.Brand)
		out = append(out, c)
	}
	return out
}

// parseJSONLD decodes one ld+json block and collects every Product/Offer
// shaped object inside it, however deeply nested. Broken JSON yields nothing.
func parseJSONLD(raw string) []structuredListing {
	var data any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &data); err != nil {
		return nil
	}
	var out []structuredListing
	collectProducts(data, &out)
	return out
}

func collectProducts(data any, out *[]structuredListing) {
	switch v := data.(type) {
	case map[string]any:
		if isType(v, "Product") {
			l := structuredListing{
				Name:  stringField(v, "name"),
				Image: firstImage(v["image"]),
				Brand: brandName(v["brand"]),
			}
			l.Price, l.Currency = offerPrice(v["offers"])
			if l.Price == "" {
				// Some publishers inline price on the product itself.
				l.Price = stringField(v, "price")
				l.Currency = stringField(v, "priceCurrency")
			}
			*out = append(*out, l)
			return
		}
		if isType(v, "Offer") || isType(v, "AggregateOffer") {
			price, currency := offerFields(v)
			if price != "" {
				*out = append(*out, structuredListing{
					Name:     stringField(v, "name"),
					Price:    price,
					Currency: currency,
				})
			}
			return
		}
		for _, val := range v {
			collectProducts(val, out)
		}
	case []any:
		for _, item := range v {
			collectProducts(item, out)
		}
	}
}

func isType(m map[string]any, want string) bool {
	switch t := m["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, entry := range t {
			if s, ok := entry.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

func offerPrice(offers any) (price, currency string) {
	switch v := offers.(type) {
	case map[string]any:
		return offerFields(v)
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				if p, c := offerFields(m); p != "" {
					return p, c
				}
			}
		}
	}
	return "", ""
}

func offerFields(m map[string]any) (price, currency string) {
	price = stringField(m, "price")
	if price == "" {
		price = stringField(m, "lowPrice")
	}
	return price, stringField(m, "priceCurrency")
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return trimFloat(v)
	}
	return ""
}

func firstImage(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case []any:
		if len(img) > 0 {
			if s, ok := img[0].(string); ok {
				return s
			}
		}
	case map[string]any:
		return stringField(img, "url")
	}
	return ""
}

func brandName(v any) string {
	switch b := v.(type) {
	case string:
		return b
	case map[string]any:
		return stringField(b, "name")
	}
	return ""
}

// listingFromMeta assembles a listing from Open Graph and product: meta tags
// when no JSON-LD was present or it lacked a price.
func listingFromMeta(meta map[string]string) (structuredListing, bool) {
	price := meta["product:price:amount"]
	if price == "" {
		price = meta["og:price:amount"]
	}
	if price == "" {
		price = meta["price"]
	}
	if price == "" {
		return structuredListing{}, false
	}
	currency := meta["product:price:currency"]
	if currency == "" {
		currency = meta["og:price:currency"]
	}
	return structuredListing{
		Name:     meta["og:title"],
		Price:    price,
		Currency: currency,
		Image:    meta["og:image"],
		Brand:    meta["og:brand"],
	}, true
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func trimFloat(v float64) string {
	// json renders floats minimally, so 399.0 becomes "399".
	b, _ := json.Marshal(v)
	return string(b)
}
