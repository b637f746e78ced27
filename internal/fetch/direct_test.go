package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDirect_SetsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("<html>page</html>"))
	}))
	defer srv.Close()

	d := &Direct{HTTPClient: srv.Client()}
	body, err := d.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if string(body) != "<html>page</html>" {
		t.Fatalf("unexpected body: %q", body)
	}
	if gotUA != DefaultUserAgent {
		t.Fatalf("unexpected user agent: %q", gotUA)
	}
	if !strings.Contains(gotAccept, "text/html") {
		t.Fatalf("unexpected accept header: %q", gotAccept)
	}
}

func TestDirect_NonSuccessStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "captcha", http.StatusForbidden)
	}))
	defer srv.Close()

	d := &Direct{HTTPClient: srv.Client()}
	if _, err := d.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error on 403")
	}
}

func TestDirect_FollowsBoundedRedirects(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("landed"))
	})

	d := &Direct{HTTPClient: srv.Client()}
	body, err := d.Fetch(context.Background(), srv.URL+"/start")
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if string(body) != "landed" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestDirect_RejectsNonHTTPScheme(t *testing.T) {
	d := &Direct{}
	if _, err := d.Fetch(context.Background(), "ftp://example.com/file"); err == nil {
		t.Fatalf("expected scheme rejection")
	}
}
