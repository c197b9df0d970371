package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"easylabwork/internal/builder"
	"easylabwork/internal/config"

	"github.com/fatih/color"
)

const version = "0.2.0"

func main() {
	// Command line flags
	var (
		configPath     string
		jobs           int
		watch          bool
		verbose        bool
		failFast       bool
		renderMarkdown bool
		showVersion    bool
	)

	flag.StringVar(&configPath, "c", "", "path to a YAML config file")
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.IntVar(&jobs, "j", 0, "number of files processed in parallel (default: number of CPUs)")
	flag.IntVar(&jobs, "jobs", 0, "number of files processed in parallel (default: number of CPUs)")
	flag.BoolVar(&watch, "w", false, "keep watching the source directory")
	flag.BoolVar(&watch, "watch", false, "keep watching the source directory")
	flag.BoolVar(&verbose, "v", false, "extra console messages")
	flag.BoolVar(&verbose, "verbose", false, "extra console messages")
	flag.BoolVar(&failFast, "fail-fast", false, "stop at the first file that fails")
	flag.BoolVar(&renderMarkdown, "md", false, "also render cleaned Markdown files to HTML")
	flag.BoolVar(&showVersion, "version", false, "show version")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "\033[1;37mBuild student lab templates from instructor sources:\033[0m\n\n")
		fmt.Fprintf(os.Stderr, "  - lines tagged \033[32m@SOL@\033[0m are removed\n")
		fmt.Fprintf(os.Stderr, "  - \033[32m# @TEMPL@ \033[0m is stripped from the lines that carry it\n")
		fmt.Fprintf(os.Stderr, "  - blocks between \033[32m# @SOL\033[0m and \033[32m# SOL@\033[0m are removed\n")
		fmt.Fprintf(os.Stderr, "  - blocks between \033[32m# @TEMPL\033[0m and \033[32m# TEMPL@\033[0m are uncommented\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] source target\n\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("easylabwork %s\n", version)
		return
	}

	projectDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("Cannot get current working directory: %v", err)
	}

	cfg, err := config.LoadConfigFromFile(projectDir, configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Command line values override config file values
	switch flag.NArg() {
	case 2:
		cfg.SourceDir = flag.Arg(0)
		cfg.TargetDir = flag.Arg(1)
	case 0:
		// both roots must then come from the config file
	default:
		flag.Usage()
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "j", "jobs":
			cfg.Jobs = jobs
		case "w", "watch":
			cfg.Watch = watch
		case "v", "verbose":
			cfg.Verbose = verbose
		case "fail-fast":
			cfg.FailFast = failFast
		case "md":
			cfg.RenderMarkdown = renderMarkdown
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	if cfg.Verbose && cfg.File != "" {
		fmt.Printf("Using config %s\n", color.New(color.FgCyan).Sprint(cfg.File))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := builder.New(cfg)
	err = b.Build(ctx)
	printSummary(b.Summary(), cfg.Verbose)
	if err != nil {
		stop()
		log.Fatalf("Build failed: %v", err)
	}

	if cfg.Watch {
		if err := b.Watch(ctx); err != nil {
			stop()
			log.Fatalf("Watch failed: %v", err)
		}
	}
}

func printSummary(s builder.Summary, verbose bool) {
	if !verbose && s.Failed == 0 {
		return
	}
	fmt.Printf("%d cleaned, %d copied, %d skipped, %d failed\n", s.Cleaned, s.Copied, s.Skipped, s.Failed)
	if verbose {
		fmt.Printf("Removed %d solution lines and %d solution blocks (%d lines), uncommented %d template blocks\n",
			s.Stats.SolutionLines, s.Stats.SolutionBlocks, s.Stats.SolutionBlockLines, s.Stats.TemplateBlocks)
	}
}
