package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

// openai-stub is a tiny OpenAI-compatible server for local end-to-end runs
// without a real model. It answers the listing-extractor contract with fixed
// plausible listings.
type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		sys := ""
		if len(req.Messages) > 0 {
			sys = strings.TrimSpace(req.Messages[0].Content)
		}
		if !strings.Contains(sys, "product listing extractor") {
			http.Error(w, "unexpected system", http.StatusBadRequest)
			return
		}
		listings := []map[string]string{
			{
				"productName": "Stub Smartwatch Pro",
				"price":       "149.00",
				"currency":    "USD",
				"link":        "https://shop.example.com/stub-smartwatch-pro",
				"imageUrl":    "https://shop.example.com/stub-smartwatch-pro.jpg",
			},
			{
				"productName": "Stub Smartwatch Lite",
				"price":       "89.99",
				"currency":    "USD",
				"link":        "https://shop.example.com/stub-smartwatch-lite",
				"imageUrl":    "",
			},
		}
		b, _ := json.Marshal(listings)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": string(b)}},
			},
		})
	})

	log.Printf("openai-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
