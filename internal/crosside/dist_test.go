package crosside

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

func TestParseDistArgs(t *testing.T) {
	opts, err := parseDistArgs([]string{"game", "desktop", "web", "--format", "xz", "--upload", "--release", "itchio"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Name != "game" {
		t.Errorf("Name = %q", opts.Name)
	}
	if opts.Format != "xz" {
		t.Errorf("Format = %q", opts.Format)
	}
	if !opts.Upload {
		t.Error("Upload not set")
	}
	if opts.Release != "itchio" {
		t.Errorf("Release = %q", opts.Release)
	}
	if len(opts.Targets) != 2 {
		t.Errorf("Targets = %v", opts.Targets)
	}

	if _, err := parseDistArgs(nil); err == nil {
		t.Error("missing name must error")
	}
	if _, err := parseDistArgs([]string{"game", "--format", "rar"}); err == nil {
		t.Error("unknown format must error")
	}
}

func TestParseDistArgsDefaults(t *testing.T) {
	opts, err := parseDistArgs([]string{"game"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Format != "zst" {
		t.Errorf("Format = %q, want zst", opts.Format)
	}
	if len(opts.Targets) != 1 || opts.Targets[0] != targetDesktop {
		t.Errorf("Targets = %v, want [desktop]", opts.Targets)
	}
}

func populateDistTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"desktop/game":          "elf",
		"web/game.html":         "<html/>",
		"web/game.wasm":         "wasm",
		"desktop/scripts/x.txt": "x",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestWriteTarArchiveZstRoundTrip(t *testing.T) {
	root := populateDistTree(t)
	archive := filepath.Join(t.TempDir(), "game.tar.zst")
	if err := writeTarArchive(root, archive, "zst"); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(archive)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	var names []string
	tr := tar.NewReader(zr)
	contents := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if hdr.Uid != 0 || hdr.Gid != 0 {
			t.Errorf("%s owner = %d:%d, want 0:0", hdr.Name, hdr.Uid, hdr.Gid)
		}
		if hdr.Typeflag == tar.TypeReg {
			data, err := io.ReadAll(tr)
			if err != nil {
				t.Fatal(err)
			}
			contents[hdr.Name] = string(data)
		}
		names = append(names, hdr.Name)
	}
	sort.Strings(names)

	for _, want := range []string{"desktop/game", "web/game.html", "web/game.wasm", "desktop/scripts/x.txt"} {
		if _, ok := contents[want]; !ok {
			t.Errorf("archive missing %s (have %v)", want, names)
		}
	}
	if contents["web/game.html"] != "<html/>" {
		t.Errorf("game.html content = %q", contents["web/game.html"])
	}
}

func TestWriteZipArchiveRoundTrip(t *testing.T) {
	root := populateDistTree(t)
	archive := filepath.Join(t.TempDir(), "game.zip")
	if err := writeZipArchive(root, archive); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.OpenReader(archive)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	found := map[string]bool{}
	for _, entry := range zr.File {
		found[entry.Name] = true
	}
	for _, want := range []string{"desktop/game", "web/game.html", "web/game.wasm"} {
		if !found[want] {
			t.Errorf("zip missing %s", want)
		}
	}
}

func TestWriteChecksumSidecar(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "game.tar.zst")
	if err := os.WriteFile(archive, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	sidecar, err := writeChecksumSidecar(archive)
	if err != nil {
		t.Fatal(err)
	}
	if sidecar != archive+".b3" {
		t.Errorf("sidecar = %q, want %q", sidecar, archive+".b3")
	}
	data, err := os.ReadFile(sidecar)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(string(data))
	fields := strings.Fields(line)
	if len(fields) != 2 {
		t.Fatalf("sidecar line = %q, want two fields", line)
	}
	if len(fields[0]) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(fields[0]))
	}
	if fields[1] != "game.tar.zst" {
		t.Errorf("file field = %q", fields[1])
	}

	// Same input, same digest.
	again, err := writeChecksumSidecar(archive)
	if err != nil {
		t.Fatal(err)
	}
	repeat, err := os.ReadFile(again)
	if err != nil {
		t.Fatal(err)
	}
	if string(repeat) != string(data) {
		t.Error("checksum is not deterministic")
	}
}

func TestUploadContentType(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"game.tar.zst", "application/zstd"},
		{"game.tar.gz", "application/gzip"},
		{"game.tar.xz", "application/x-xz"},
		{"game.zip", "application/zip"},
		{"game.tar.zst.b3", "text/plain"},
		{"game.apk", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := uploadContentType(tt.key); got != tt.want {
			t.Errorf("uploadContentType(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
