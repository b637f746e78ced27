// Package httpapi exposes the search pipeline over HTTP. The wire shape
// renders prices as strings, empty when unresolved, so clients never have to
// tell 0 apart from unknown.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gopricecmp/internal/app"
	"github.com/hyperifyio/gopricecmp/internal/pricing"
)

// Searcher is the one pipeline operation the API needs. *app.App satisfies
// it; tests substitute a stub.
type Searcher interface {
	Search(ctx context.Context, country, query string) ([]pricing.Candidate, error)
}

// Server wires the router, CORS and rate limiting around a Searcher.
type Server struct {
	Searcher Searcher
	// RateLimitRPS caps requests per second per remote IP. Zero means 5.
	RateLimitRPS float64
	// AllowedOrigins for CORS. Empty means all origins.
	AllowedOrigins []string
}

type searchRequest struct {
	Country string `json:"country"`
	Query   string `json:"query"`
}

type searchResult struct {
	Link           string            `json:"link"`
	Price          string            `json:"price"`
	Currency       string            `json:"currency"`
	ProductName    string            `json:"productName"`
	Source         string            `json:"source"`
	ImageURL       string            `json:"imageUrl,omitempty"`
	AdditionalInfo map[string]string `json:"additionalInfo,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler builds the full middleware stack around the routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)

	rps := s.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	lmt := tollbooth.NewLimiter(rps, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	lmt.SetIPLookups([]string{"X-Forwarded-For", "RemoteAddr", "X-Real-IP"})

	c := cors.New(cors.Options{
		AllowedOrigins: s.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	return c.Handler(tollbooth.LimitHandler(lmt, logRequests(r)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	cands, err := s.Searcher.Search(r.Context(), req.Country, req.Query)
	switch {
	case errors.Is(err, app.ErrNoApplicableSources):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	out := make([]searchResult, 0, len(cands))
	for _, c := range cands {
		out = append(out, resultFromCandidate(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func resultFromCandidate(c pricing.Candidate) searchResult {
	price := ""
	if c.Resolved {
		price = strconv.FormatFloat(c.Price, 'f', 2, 64)
	}
	return searchResult{
		Link:           c.Link,
		Price:          price,
		Currency:       c.Currency,
		ProductName:    c.ProductName,
		Source:         c.SourceID,
		ImageURL:       c.ImageURL,
		AdditionalInfo: c.Info,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response failed")
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
