package crosside

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

type cmdInfo struct {
	name string
	desc string
}

var commands = []cmdInfo{
	{"build <module|app> <name> [targets]", "Compile a module or project for desktop, android or web"},
	{"clean <module|app|all> <name> [targets]", "Remove objects and artifacts"},
	{"list [all|modules|apps]", "Show workspace modules and projects"},
	{"module init <name>", "Scaffold a new module under modules/"},
	{"serve <path>", "Serve a directory or file over loopback HTTP"},
	{"dist <name>", "Archive a project's outputs for distribution"},
	{"version", "Show version information"},
	{"help", "Show this help"},
}

func printHelp() {
	fmt.Println("crosside - cross-platform native build orchestrator")
	fmt.Println()
	fmt.Println("Usage: crosside <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	maxLen := 0
	for _, c := range commands {
		if len(c.name) > maxLen {
			maxLen = len(c.name)
		}
	}
	for _, c := range commands {
		fmt.Printf("  %-*s  %s\n", maxLen, c.name, c.desc)
	}
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  crosside build module raylib desktop --mode debug")
	fmt.Println("  crosside build app game android --run")
	fmt.Println("  crosside build app game web --run --port 8080")
	fmt.Println("  crosside clean app game desktop --dry-run")
	fmt.Println("  crosside serve projects/game/Web --port 8000")
	fmt.Println("  crosside dist game --format zst --upload")
}

func printVersion() {
	fmt.Printf("crosside %s (%s) built %s\n", version, arch, buildDate)
}

// Main is the process entry point.
func Main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		colError.Println("\nInterrupted, stopping...")
		cancel()
		<-sigCh
		colError.Println("Forced exit.")
		os.Exit(130)
	}()

	Exec = NewExecutor(ctx)

	// Global flags can appear anywhere on the line.
	var rest []string
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--verbose":
			Verbose = true
		case "--debug":
			Debug = true
			Verbose = true
		default:
			rest = append(rest, arg)
		}
	}
	if len(rest) == 0 {
		printHelp()
		os.Exit(1)
	}
	cmd := rest[0]
	args := rest[1:]

	var err error
	switch cmd {
	case "build":
		err = handleBuildCommand(args)
	case "clean":
		err = handleCleanCommand(args)
	case "list":
		err = handleListCommand(args)
	case "module":
		err = handleModuleCommand(args)
	case "serve":
		err = handleServeCommand(args)
	case "dist":
		err = handleDistCommand(args)
	case "version", "--version", "-v":
		printVersion()
	case "help", "--help", "-h":
		printHelp()
	default:
		errorf("Unknown command: %s", cmd)
		printHelp()
		os.Exit(1)
	}

	if err != nil {
		if ctx.Err() != nil {
			os.Exit(130)
		}
		errorf("Error: %v", err)
		os.Exit(1)
	}
}
