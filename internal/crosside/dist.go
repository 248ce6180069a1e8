package crosside

import (
	"archive/tar"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
	"lukechampine.com/blake3"
)

type distOptions struct {
	Name        string
	Targets     []string
	Format      string
	OutputDir   string
	Release     string
	ProjectFile string
	Upload      bool
	DryRun      bool
}

var distFormats = map[string]string{
	"zst": ".tar.zst",
	"gz":  ".tar.gz",
	"xz":  ".tar.xz",
	"zip": ".zip",
}

func parseDistArgs(args []string) (distOptions, error) {
	opts := distOptions{Format: "zst"}
	next := func(i *int, flag string) (string, error) {
		*i++
		if *i >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[*i], nil
	}
	var positionals []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--format":
			value, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			if _, ok := distFormats[value]; !ok {
				return opts, fmt.Errorf("unknown dist format %q (zst, gz, xz, zip)", value)
			}
			opts.Format = value
		case "--out", "--output":
			value, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			opts.OutputDir = value
		case "--release":
			value, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			opts.Release = value
		case "--project-file":
			value, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			opts.ProjectFile = value
		case "--upload":
			opts.Upload = true
		case "--dry-run":
			opts.DryRun = true
		default:
			if strings.HasPrefix(arg, "--") {
				return opts, fmt.Errorf("unknown dist option %s", arg)
			}
			positionals = append(positionals, arg)
		}
	}
	if len(positionals) == 0 {
		return opts, fmt.Errorf("dist requires a project name")
	}
	opts.Name = positionals[0]
	opts.Targets = normalizeTargets(positionals[1:])
	if len(opts.Targets) == 0 {
		opts.Targets = []string{targetDesktop}
	}
	return opts, nil
}

// distArtifacts lists the built outputs a target contributes to the
// distribution staging tree. Paths that do not exist are skipped.
func distArtifacts(p *ProjectSpec, target string) []string {
	var candidates []string
	switch target {
	case targetDesktop:
		candidates = append(candidates,
			filepath.Join(p.Root, p.Name),
			filepath.Join(p.Root, p.Name+".exe"),
		)
		scripts := filepath.Join(p.Root, "scripts")
		if dirExists(scripts) {
			candidates = append(candidates, scripts)
		}
	case targetWeb:
		for _, ext := range []string{".html", ".js", ".wasm", ".data", ".worker.js"} {
			candidates = append(candidates, filepath.Join(p.Root, webFolder, p.Name+ext))
		}
	case targetAndroid:
		candidates = append(candidates,
			filepath.Join(p.Root, androidFolder, p.Name, p.Name+".signed.apk"),
		)
	}
	var found []string
	for _, c := range candidates {
		if pathExists(c) {
			found = append(found, c)
		}
	}
	return found
}

func stageDistTree(p *ProjectSpec, targets []string, stageRoot string) (int, error) {
	staged := 0
	for _, target := range targets {
		artifacts := distArtifacts(p, target)
		if len(artifacts) == 0 {
			warnf("No %s outputs found for %s, skipping target", target, p.Name)
			continue
		}
		destDir := filepath.Join(stageRoot, target)
		if err := ensureDir(destDir); err != nil {
			return staged, err
		}
		for _, src := range artifacts {
			dest := filepath.Join(destDir, filepath.Base(src))
			if dirExists(src) {
				if err := copyDir(src, dest); err != nil {
					return staged, err
				}
			} else if err := copyFile(src, dest); err != nil {
				return staged, err
			}
			staged++
		}
	}
	return staged, nil
}

// writeTarArchive streams root into a compressed tarball. The
// compression writer is chosen by format (zst, gz or xz).
func writeTarArchive(root, outPath, format string) error {
	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", outPath, err)
	}
	defer outFile.Close()

	var compressor io.WriteCloser
	switch format {
	case "zst":
		compressor, err = zstd.NewWriter(outFile)
	case "gz":
		compressor = pgzip.NewWriter(outFile)
	case "xz":
		compressor, err = xz.NewWriter(outFile)
	default:
		return fmt.Errorf("unsupported tar compression %q", format)
	}
	if err != nil {
		return fmt.Errorf("init %s writer: %w", format, err)
	}

	tw := tar.NewWriter(compressor)
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "root", "root"
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		tw.Close()
		compressor.Close()
		return fmt.Errorf("archive %s: %w", root, err)
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return compressor.Close()
}

func writeZipArchive(root, outPath string) error {
	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", outPath, err)
	}
	defer outFile.Close()

	zw := zip.NewWriter(outFile)
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("archive %s: %w", root, err)
	}
	return zw.Close()
}

// writeChecksumSidecar computes the archive's BLAKE3 digest and writes
// it next to the archive in "<hex>  <filename>" form.
func writeChecksumSidecar(archivePath string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hasher := blake3.New(32, nil)
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	digest := hex.EncodeToString(hasher.Sum(nil))
	sidecar := archivePath + ".b3"
	line := fmt.Sprintf("%s  %s\n", digest, filepath.Base(archivePath))
	if err := os.WriteFile(sidecar, []byte(line), 0o644); err != nil {
		return "", err
	}
	return sidecar, nil
}

func handleDistCommand(args []string) error {
	opts, err := parseDistArgs(args)
	if err != nil {
		return err
	}
	repoRoot := DetectRepoRoot()
	file := ResolveProjectFile(repoRoot, opts.Name, opts.ProjectFile)
	p, err := LoadProjectFile(file, opts.Release, opts.Release != "")
	if err != nil {
		return fmt.Errorf("%w: %s (%v)", errProjectNotFound, opts.Name, err)
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(repoRoot, "dist")
	}
	archiveName := p.BuildCacheKey() + distFormats[opts.Format]
	archivePath := filepath.Join(outputDir, archiveName)
	logf("Dist %s -> %s", p.Name, archivePath)
	if opts.DryRun {
		logf("Dry-run done. Targets: %s", joinComma(opts.Targets))
		return nil
	}

	stageRoot, err := os.MkdirTemp("", "crosside-dist-")
	if err != nil {
		return fmt.Errorf("create dist staging dir: %w", err)
	}
	defer os.RemoveAll(stageRoot)

	staged, err := stageDistTree(p, opts.Targets, stageRoot)
	if err != nil {
		return err
	}
	if staged == 0 {
		return fmt.Errorf("nothing to distribute for %s, build it first", p.Name)
	}
	if err := ensureDir(outputDir); err != nil {
		return err
	}
	if opts.Format == "zip" {
		err = writeZipArchive(stageRoot, archivePath)
	} else {
		err = writeTarArchive(stageRoot, archivePath, opts.Format)
	}
	if err != nil {
		return err
	}
	sidecar, err := writeChecksumSidecar(archivePath)
	if err != nil {
		return fmt.Errorf("checksum %s: %w", archivePath, err)
	}
	logf("Archive created: %s", archivePath)
	logf("Checksum: %s", sidecar)

	if opts.Upload {
		return uploadDistFiles(Exec.Context, archivePath, sidecar)
	}
	return nil
}
