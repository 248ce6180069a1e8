package crosside

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Executor provides a consistent interface for executing external build
// tools. Every compiler, archiver, packager and device-bridge invocation in
// the pipeline goes through it, so tests and --dry-run can intercept the
// whole process surface in one place.
type Executor struct {
	Context     context.Context // The context to use for cancellation
	Interactive bool            // Interactive indicates whether the command may prompt the user
	DryRun      bool            // Log the command line but do not execute
	Quiet       bool            // Suppress command-line echo
}

// NewExecutor returns an executor bound to ctx.
func NewExecutor(ctx context.Context) *Executor {
	return &Executor{Context: ctx}
}

// shellQuote renders a single argv token the way a POSIX shell would need it,
// for display only. Commands are never run through a shell.
func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	safe := true
	for _, ch := range value {
		if ch == '-' || ch == '_' || ch == '.' || ch == '/' || ch == '=' || ch == ':' || ch == ',' || ch == '@' ||
			(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			continue
		}
		safe = false
		break
	}
	if safe {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// displayCommand renders the full command line for logging.
func displayCommand(name string, args []string) string {
	var sb strings.Builder
	sb.WriteString(shellQuote(name))
	for _, arg := range args {
		sb.WriteByte(' ')
		sb.WriteString(shellQuote(arg))
	}
	return sb.String()
}

// validateWorkDir rejects a cwd that does not exist before fork, so the
// failure is reported against the directory instead of a cryptic exec error.
func validateWorkDir(cwd string) error {
	if cwd == "" {
		return nil
	}
	info, err := os.Stat(cwd)
	if err != nil {
		return fmt.Errorf("working directory does not exist: %s", cwd)
	}
	if !info.IsDir() {
		return fmt.Errorf("working directory is not a directory: %s", cwd)
	}
	return nil
}

// Run executes name with args in cwd (empty = inherit), wiring stdio to the
// terminal. The child gets its own process group so a cancelled context can
// kill the whole tool tree.
func (e *Executor) Run(name string, args []string, cwd string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = cwd
	return e.RunCmd(cmd)
}

// RunCmd is Run for a caller-prepared exec.Cmd (custom env or stdio).
func (e *Executor) RunCmd(cmd *exec.Cmd) error {
	if !e.Quiet {
		if cmd.Dir != "" {
			logf("cwd: %s", cmd.Dir)
		}
		logf("%s", displayCommand(cmd.Path, cmd.Args[1:]))
	}
	if e.DryRun {
		return nil
	}

	if err := validateWorkDir(cmd.Dir); err != nil {
		return err
	}

	// --- Phase 0: wire up stdio ---
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	// --- Phase 1: rebuild under our context ---
	finalCmd := exec.CommandContext(e.Context, cmd.Path, cmd.Args[1:]...)
	finalCmd.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		finalCmd.Env = cmd.Env
	} else {
		finalCmd.Env = os.Environ()
	}
	finalCmd.Stdin = cmd.Stdin
	finalCmd.Stdout = cmd.Stdout
	finalCmd.Stderr = cmd.Stderr

	// --- Phase 2: isolate process group for context-based cleanup ---
	if !e.Interactive {
		finalCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	// --- Phase 3: start and watch for cancel ---
	if err := finalCmd.Start(); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	if !e.Interactive {
		pgid := finalCmd.Process.Pid

		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-e.Context.Done():
				unix.Kill(-pgid, unix.SIGKILL)
			case <-done:
			}
		}()
	}

	// --- Phase 4: wait and return ---
	if waitErr := finalCmd.Wait(); waitErr != nil {
		if e.Context.Err() != nil {
			time.Sleep(100 * time.Millisecond)
			return fmt.Errorf("command aborted: %v", e.Context.Err())
		}
		return waitErr
	}
	return nil
}

// RunDetached launches name with args as a daemon: new session, stdio on
// /dev/null, not reaped by us. Used for background web servers. Returns the
// launcher PID (the direct child, which survives as session leader).
func (e *Executor) RunDetached(name string, args []string, cwd string) (int, error) {
	if !e.Quiet {
		logf("detached: %s", displayCommand(name, args))
	}
	if e.DryRun {
		return 0, nil
	}
	if err := validateWorkDir(cwd); err != nil {
		return 0, err
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd := exec.Command(name, args...)
	cmd.Dir = cwd
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start detached command: %w", err)
	}
	pid := cmd.Process.Pid

	// Detach: the session leader keeps running after we exit.
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to release detached process: %w", err)
	}
	return pid, nil
}

// LookTool returns path unchanged when it contains a separator (explicit
// toolchain path), otherwise resolves it on PATH.
func LookTool(path string) (string, error) {
	if strings.ContainsRune(path, os.PathSeparator) {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return exec.LookPath(path)
}

// currentExecutablePath resolves the running binary, used when the tool
// re-execs itself for detached serving.
func currentExecutablePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("cannot resolve own executable: %w", err)
	}
	return exe, nil
}
