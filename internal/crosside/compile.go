package crosside

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
)

// objectPath mirrors a source file into the object root. The source's
// path relative to baseDir becomes the mirror path; sources outside
// baseDir fall back to their parent directory's name.
func objectPath(objRoot, baseDir, src string) string {
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	parent := filepath.Dir(src)
	rel, err := filepath.Rel(baseDir, parent)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(parent)
	}
	if rel == "." {
		rel = ""
	}
	return filepath.Join(objRoot, rel, stem+".o")
}

// needsCompile reports whether src must be rebuilt into obj.
func needsCompile(src, obj string, full bool) bool {
	if full {
		return true
	}
	objInfo, err := os.Stat(obj)
	if err != nil {
		if !os.IsNotExist(err) {
			warnf("Failed to read object timestamp: %s", obj)
		}
		return true
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		warnf("Failed to read source timestamp: %s", src)
		return true
	}
	return objInfo.ModTime().Before(srcInfo.ModTime())
}

// compileJob is one translation unit in a compile pass.
type compileJob struct {
	Src string
	Obj string
	Cpp bool
}

// planCompile maps sources to objects and drops up-to-date ones.
// The returned objects list covers every source, fresh or stale, so
// the archive and link steps always see the full set.
func planCompile(sources []string, objRoot, baseDir string, full bool) (jobs []compileJob, objects []string) {
	for _, src := range sources {
		obj := objectPath(objRoot, baseDir, src)
		objects = append(objects, obj)
		if !needsCompile(src, obj, full) {
			logf("Skip %s", src)
			continue
		}
		jobs = append(jobs, compileJob{Src: src, Obj: obj, Cpp: isCppSource(src)})
	}
	return jobs, objects
}

// compilePass runs the planned jobs with the given C and C++ drivers.
// extra tokens (such as -fPIC) go after the per-lane flags.
func compilePass(ex *Executor, jobs []compileJob, cc, cxx string, ccFlags, cppFlags, extra []string) error {
	if len(jobs) == 0 {
		return nil
	}
	var bar *progressbar.ProgressBar
	if len(jobs) > 1 && stdoutIsTerminal() && !Verbose && !ex.DryRun {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetDescription("compiling"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	for _, job := range jobs {
		if err := ensureDir(filepath.Dir(job.Obj)); err != nil {
			return err
		}
		tool, flags := cc, ccFlags
		if job.Cpp {
			tool, flags = cxx, cppFlags
		}
		args := []string{"-c", job.Src, "-o", job.Obj}
		args = append(args, flags...)
		args = append(args, extra...)
		if err := ex.Run(tool, args, ""); err != nil {
			if bar != nil {
				bar.Clear()
			}
			return fmt.Errorf("compile %s: %w", job.Src, err)
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	return nil
}
