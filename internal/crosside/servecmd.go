package crosside

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type serveOptions struct {
	Path   string
	Host   string
	Port   int
	Index  string
	Open   bool
	Detach bool
}

func parseServeArgs(args []string) (serveOptions, error) {
	opts := serveOptions{
		Host:  "127.0.0.1",
		Port:  8080,
		Index: "index.html",
		Open:  true,
	}
	next := func(i *int, flag string) (string, error) {
		*i++
		if *i >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[*i], nil
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--port":
			value, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			port, err := strconv.Atoi(value)
			if err != nil || port < 1 || port > 65535 {
				return opts, fmt.Errorf("invalid port %q", value)
			}
			opts.Port = port
		case "--host":
			value, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			opts.Host = value
		case "--index":
			value, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			opts.Index = value
		case "--no-open":
			opts.Open = false
		case "--open":
			opts.Open = true
		case "--detach":
			opts.Detach = true
		default:
			if strings.HasPrefix(arg, "--") {
				return opts, fmt.Errorf("unknown serve option %s", arg)
			}
			if opts.Path != "" {
				return opts, fmt.Errorf("serve takes a single path")
			}
			opts.Path = arg
		}
	}
	if opts.Path == "" {
		opts.Path = "."
	}
	return opts, nil
}

func handleServeCommand(args []string) error {
	opts, err := parseServeArgs(args)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(opts.Path)
	if err != nil {
		return fmt.Errorf("resolve serve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("serve path: %w", err)
	}
	root := abs
	index := opts.Index
	if !info.IsDir() {
		root = filepath.Dir(abs)
		index = filepath.Base(abs)
	}

	port := opts.Port
	if !isHTTPPortAvailable(opts.Host, port) {
		free, err := resolveAvailableRunPort(port)
		if err != nil {
			return err
		}
		port = free
	}
	url := fmt.Sprintf("http://%s:%d/%s", opts.Host, port, index)
	logf("Serve URL: %s", url)

	if opts.Detach {
		self, err := currentExecutablePath()
		if err != nil {
			return err
		}
		argv := []string{
			"serve", abs,
			"--host", opts.Host,
			"--port", strconv.Itoa(port),
			"--index", index,
			"--no-open",
		}
		pid, err := Exec.RunDetached(self, argv, root)
		if err != nil {
			return err
		}
		logf("Detached web server started (pid %d)", pid)
		if opts.Open {
			tryOpenBrowser(Exec, url)
		}
		return nil
	}

	if opts.Open {
		tryOpenBrowser(Exec, url)
	}
	return serveStaticHTTP(Exec.Context, root, opts.Host, port, index)
}
