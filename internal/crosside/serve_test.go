package crosside

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeRequestPath(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"plain file", "/game.html", "game.html", false},
		{"query stripped", "/game.js?v=2", "game.js", false},
		{"fragment stripped", "/game.html#top", "game.html", false},
		{"empty maps to index", "/", "index.html", false},
		{"bare empty maps to index", "", "index.html", false},
		{"nested path kept", "/assets/img/logo.png", "assets/img/logo.png", false},
		{"backslashes normalized", `\assets\logo.png`, "assets/logo.png", false},
		{"dot segments collapse", "/a/./b.html", "a/b.html", false},
		{"traversal rejected", "/../etc/passwd", "", true},
		{"embedded traversal rejected", "/a/../../etc/passwd", "", true},
		{"control characters rejected", "/a\x01b", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitizeRequestPath(tt.raw, "index.html")
			if (err != nil) != tt.wantErr {
				t.Fatalf("sanitizeRequestPath(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("sanitizeRequestPath(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMimeTypeFor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"game.html", "text/html; charset=utf-8"},
		{"game.wasm", "application/wasm"},
		{"game.js", "application/javascript"},
		{"game.data", "application/octet-stream"},
		{"style.css", "text/css"},
		{"icon.PNG", "image/png"},
		{"unknown.bin", "application/octet-stream"},
		{"noext", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := mimeTypeFor(tt.name); got != tt.want {
			t.Errorf("mimeTypeFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestIsPathSafe(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{"root itself", root, true},
		{"child", filepath.Join(root, "a.html"), true},
		{"nested child", filepath.Join(root, "assets", "a.png"), true},
		{"parent", filepath.Dir(root), false},
		{"sibling prefix", root + "2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPathSafe(root, tt.candidate); got != tt.want {
				t.Errorf("isPathSafe(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestStaticHandler(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>ok</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	handler := staticHandler{root: root, index: "index.html"}
	server := httptest.NewServer(handler)
	defer server.Close()

	t.Run("index served", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if got := resp.Header.Get("Content-Type"); got != "text/html; charset=utf-8" {
			t.Errorf("Content-Type = %q", got)
		}
		if got := resp.Header.Get("Cache-Control"); got != "no-cache" {
			t.Errorf("Cache-Control = %q", got)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "<html>ok</html>" {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("missing file 404", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/missing.js")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("post rejected", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/", "text/plain", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", resp.StatusCode)
		}
	})
}
