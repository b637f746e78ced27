package pricing

import "testing"

func TestSetPrice_RejectsNegative(t *testing.T) {
	var c Candidate
	c.SetPrice(-5)
	if c.Resolved {
		t.Fatalf("negative price must not resolve the candidate")
	}
	c.SetPrice(149.99)
	if !c.Resolved || c.Price != 149.99 {
		t.Fatalf("expected resolved 149.99, got resolved=%v price=%v", c.Resolved, c.Price)
	}
}

func TestSetInfo_SkipsEmptyAndInitializesLazily(t *testing.T) {
	var c Candidate
	c.SetInfo("rating", "")
	if c.Info != nil {
		t.Fatalf("empty value must not allocate the map")
	}
	c.SetInfo("rating", "4.5")
	if c.Info["rating"] != "4.5" {
		t.Fatalf("unexpected info: %#v", c.Info)
	}
}

func TestCurrencyForCountry(t *testing.T) {
	cases := []struct {
		country  string
		fallback string
		want     string
	}{
		{"us", "", "USD"},
		{"US", "", "USD"},
		{"uk", "", "GBP"},
		{"gb", "", "GBP"},
		{"de", "", "EUR"},
		{"jp", "", "JPY"},
		{"in", "", "INR"},
		{"br", "", "USD"},
		{"br", "EUR", "EUR"},
	}
	for _, tc := range cases {
		if got := CurrencyForCountry(tc.country, tc.fallback); got != tc.want {
			t.Fatalf("CurrencyForCountry(%q, %q) = %q, want %q", tc.country, tc.fallback, got, tc.want)
		}
	}
}

func TestCurrencyForSymbol(t *testing.T) {
	if got, ok := CurrencyForSymbol("₹"); !ok || got != "INR" {
		t.Fatalf("rupee symbol: got %q ok=%v", got, ok)
	}
	if got, ok := CurrencyForSymbol("EUR"); !ok || got != "EUR" {
		t.Fatalf("code passthrough: got %q ok=%v", got, ok)
	}
	if _, ok := CurrencyForSymbol("zorkmid"); ok {
		t.Fatalf("unknown symbol must not resolve")
	}
}
