package crosside

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var mimeTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".js":   "application/javascript",
	".mjs":  "application/javascript",
	".css":  "text/css",
	".json": "application/json",
	".txt":  "text/plain",
	".xml":  "application/xml",
	".wasm": "application/wasm",
	".data": "application/octet-stream",
	".bin":  "application/octet-stream",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
}

func mimeTypeFor(name string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return "application/octet-stream"
}

var errForbiddenPath = errors.New("forbidden path")

// sanitizeRequestPath turns a raw request target into a relative file
// path: query and fragment are stripped, backslashes normalized, and
// traversal or control characters rejected. The empty path maps to the
// index file.
func sanitizeRequestPath(raw, indexFile string) (string, error) {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.ReplaceAll(raw, "\\", "/")
	for _, r := range raw {
		if r < 32 || r == 127 {
			return "", errForbiddenPath
		}
	}
	// Traversal must be caught before Clean resolves it away.
	for _, seg := range strings.Split(raw, "/") {
		if seg == ".." {
			return "", errForbiddenPath
		}
	}
	rel := strings.TrimPrefix(path.Clean("/"+raw), "/")
	if rel == "" || rel == "." {
		rel = indexFile
	}
	return rel, nil
}

// isPathSafe reports whether candidate stays inside root after
// resolving both to absolute form.
func isPathSafe(root, candidate string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(candidate)
	if err != nil {
		return false
	}
	if absPath == absRoot {
		return true
	}
	return strings.HasPrefix(absPath, absRoot+string(filepath.Separator))
}

type staticHandler struct {
	root  string
	index string
}

func (h staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rel, err := sanitizeRequestPath(r.URL.RequestURI(), h.index)
	if err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	target := filepath.Join(h.root, filepath.FromSlash(rel))
	if !isPathSafe(h.root, target) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		target = filepath.Join(target, h.index)
		info, err = os.Stat(target)
	}
	if err != nil || !info.Mode().IsRegular() {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	f, err := os.Open(target)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", mimeTypeFor(target))
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "close")
	http.ServeContent(w, r, "", info.ModTime(), f)
}

// serveStaticHTTP serves root on host:port until ctx is cancelled.
func serveStaticHTTP(ctx context.Context, root, host string, port int, indexFile string) error {
	if indexFile == "" {
		indexFile = "index.html"
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	srv := &http.Server{
		Addr:           addr,
		Handler:        staticHandler{root: root, index: indexFile},
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 64 << 10,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	logf("HTTP server listening on http://%s/", addr)
	logf("Serve root: %s", root)
	logf("Press Ctrl+C to stop.")
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		case <-done:
		}
	}()
	err = srv.Serve(ln)
	close(done)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// isHTTPPortAvailable probes host:port with a bind attempt.
func isHTTPPortAvailable(host string, port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
