package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestIsRemoteURL(t *testing.T) {
	cases := map[string]bool{
		"http://example.com/a.png":  true,
		"https://example.com/a.png": true,
		"/media/local/a.png":        false,
		"data:image/png;base64,xx":  false,
		"":                          false,
	}
	for in, want := range cases {
		if got := IsRemoteURL(in); got != want {
			t.Errorf("IsRemoteURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFetchDataURI(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	f := NewAssetFetcher(2*time.Second, nil)
	defer f.Close()

	uri, err := f.FetchDataURI(context.Background(), srv.URL+"/a.png")
	if err != nil {
		t.Fatalf("FetchDataURI failed: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Errorf("unexpected data uri: %s", uri)
	}

	// 同一 URL 只抓取一次
	again, err := f.FetchDataURI(context.Background(), srv.URL+"/a.png")
	if err != nil {
		t.Fatalf("cached fetch failed: %v", err)
	}
	if again != uri {
		t.Error("cached result differs from first fetch")
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestFetchDataURILocalPathPassthrough(t *testing.T) {
	f := NewAssetFetcher(time.Second, nil)
	defer f.Close()

	uri, err := f.FetchDataURI(context.Background(), "/media/local/bg.png")
	if err != nil {
		t.Fatalf("FetchDataURI failed: %v", err)
	}
	if uri != "/media/local/bg.png" {
		t.Errorf("local path altered: %s", uri)
	}
}

func TestFetchDataURIServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewAssetFetcher(2*time.Second, nil)
	defer f.Close()

	if _, err := f.FetchDataURI(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("expected an error for a 404 response")
	}
}
