package app

import "github.com/hyperifyio/gopricecmp/internal/source"

// defaultSourceSpecs covers the built-in marketplaces when no config file
// declares sources. Selectors track each site's current search results
// markup and are expected to need maintenance.
func defaultSourceSpecs() []SourceSpec {
	return []SourceSpec{
		{
			ID: "amazon",
			Domains: map[string]string{
				"US": "www.amazon.com",
				"UK": "www.amazon.co.uk",
				"DE": "www.amazon.de",
				"FR": "www.amazon.fr",
				"IT": "www.amazon.it",
				"ES": "www.amazon.es",
				"JP": "www.amazon.co.jp",
				"IN": "www.amazon.in",
				"CA": "www.amazon.ca",
				"AU": "www.amazon.com.au",
			},
			DefaultDomain: "www.amazon.com",
			SearchPath:    "/s?k=%s",
			Selectors: source.Selectors{
				Item:    `div.s-result-item[data-component-type="s-search-result"]`,
				Link:    "h2 a",
				Title:   "h2 a span",
				Price:   "span.a-price > span.a-offscreen",
				Image:   "img.s-image",
				Rating:  "span.a-icon-alt",
				Reviews: "span.a-size-base.s-underline-text",
			},
		},
		{
			ID: "flipkart",
			Domains: map[string]string{
				"IN": "www.flipkart.com",
			},
			SearchPath: "/search?q=%s",
			Selectors: source.Selectors{
				Item:  "div._1AtVbE, div[data-id]",
				Link:  "a._1fQZEK, a.s1Q9rs, a.CGtC98",
				Title: "div._4rR01T, a.s1Q9rs, div.KzDlHZ",
				Price: "div._30jeq3, div.Nx9bqj",
				Image: "img._396cs4, img.DByuf4",
			},
		},
	}
}
