package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hyperifyio/gopricecmp/internal/extract"
	"github.com/hyperifyio/gopricecmp/internal/source"
)

// Quick manual probe of the custom search source without the full pipeline.
func main() {
	key := os.Getenv("CUSTOM_SEARCH_KEY")
	cx := os.Getenv("CUSTOM_SEARCH_CX")
	q := "apple watch series 9"
	if len(os.Args) > 1 {
		q = os.Args[1]
	}
	country := "US"
	if len(os.Args) > 2 {
		country = os.Args[2]
	}
	prov := &source.CustomSearch{
		APIKey:     key,
		EngineID:   cx,
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
		Extractor:  &extract.Extractor{},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()
	res, err := prov.Search(ctx, country, q)
	fmt.Println("err:", err)
	for i, c := range res {
		price := c.RawPriceText
		if c.Resolved {
			price = fmt.Sprintf("%.2f %s", c.Price, c.Currency)
		}
		fmt.Printf("%d. %s | %s | %s\n", i+1, c.ProductName, price, c.Link)
	}
}
