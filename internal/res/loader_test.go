package res

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestParseDataURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantMime string
		wantData string
		wantType ResourceType
		wantErr  bool
	}{
		{"plain", "data:text/plain,Hello%20World", "text/plain", "Hello World", ResourceTypeOther, false},
		{"default mime", "data:,abc", "text/plain", "abc", ResourceTypeOther, false},
		{"base64 css", "data:text/css;base64,cCB7IH0=", "text/css", "p { }", ResourceTypeCSS, false},
		{"no comma", "data:text/plain", "", "", 0, true},
		{"bad base64", "data:text/plain;base64,@@@", "", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parseDataURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDataURL() error = %v", err)
			}
			if res.MimeType != tt.wantMime || res.GetString() != tt.wantData || res.Type != tt.wantType {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)",
					res.MimeType, res.GetString(), res.Type, tt.wantMime, tt.wantData, tt.wantType)
			}
		})
	}
}

func TestLoadLocalRelativeToBase(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "site.css"), []byte("p { margin: 0 }"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(filepath.Join(dir, "index.html"))
	res, err := l.LoadCSS("site.css")
	if err != nil {
		t.Fatalf("LoadCSS() error = %v", err)
	}
	if res.GetString() != "p { margin: 0 }" {
		t.Errorf("data = %q", res.GetString())
	}

	if _, err := l.LoadImage("site.css"); err == nil {
		t.Error("LoadImage on a stylesheet should fail")
	}
}

func TestLoadFromSearchPaths(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "logo.svg"), []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader("")
	if _, err := l.Load("missing/logo.svg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load without search path error = %v, want ErrNotFound", err)
	}

	l.AddSearchPath(dir)
	res, err := l.Load("missing/logo.svg")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Type != ResourceTypeImage || res.MimeType != "image/svg+xml" {
		t.Errorf("got type %v mime %q", res.Type, res.MimeType)
	}
}

func TestLoadRemote(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		switch r.URL.Path {
		case "/doc/style.css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
			w.Write([]byte("h1 { font-size: 20pt }"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLoader(srv.URL + "/doc/index.html")
	for range 2 {
		res, err := l.LoadCSS("style.css")
		if err != nil {
			t.Fatalf("LoadCSS() error = %v", err)
		}
		if res.MimeType != "text/css" {
			t.Errorf("mime = %q, want text/css", res.MimeType)
		}
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}

	if _, err := l.Load("nope.css"); err == nil {
		t.Error("expected error for 404")
	}
}
