// Package main is the HAL advisor CLI entry point.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/cli"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/config"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/scheduler"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/server"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/storage"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/watcher"
	"github.com/akumar23/HAL-AI-AdvisorBot/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/hal/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if present; when neither exists the built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			local := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(local); err == nil {
				cfg, err := config.Load(local)
				if err != nil {
					return nil, "", err
				}
				return cfg, local, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			var cfg config.Config
			config.ApplyDefaults(&cfg)
			return &cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "ingest":
		runIngest()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("hal version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func mustConfig(path string, debugFlag bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debug := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	if resolved == "" {
		resolved = "(defaults)"
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := mustConfig(*configPath, *debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if n := ingestKnowledge(ctx, components, cfg, logger); n > 0 {
		logger.Info("knowledge ingested", zap.Int("documents", n))
	}

	var watchSvc *watcher.Watcher
	if cfg.Knowledge.Watch && len(cfg.Knowledge.Directories) > 0 {
		watchSvc = watcher.New(cfg.Knowledge.Directories, components.Indexer, watcher.WithLogger(logger))
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	sched := scheduler.New(logger)
	if err := sched.Add(scheduler.JobReapSessions, cfg.Session.ReapSchedule, scheduler.ReapSessions(components.Sessions)); err != nil {
		logger.Fatal("Failed to schedule session reaping", zap.Error(err))
	}
	if cfg.Knowledge.SnapshotSchedule != "" {
		job := scheduler.SnapshotVectors(components.VectorIndex, cfg.Storage.VectorIndexPath, logger)
		if err := sched.Add(scheduler.JobSnapshotVector, cfg.Knowledge.SnapshotSchedule, job); err != nil {
			logger.Fatal("Failed to schedule vector snapshots", zap.Error(err))
		}
	}
	sched.Start()

	deps := server.Deps{
		Advisor:  components.Advisor,
		Sessions: components.Sessions,
		Indexer:  components.Indexer,
		Storage:  components.Storage,
		Handoffs: components.Handoffs,
		Keywords: components.KeywordIndex,
		Vectors:  components.VectorIndex,
	}
	if watchSvc != nil {
		deps.Watched = watchSvc.Roots
	}
	srv := server.NewServer(deps, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
	if watchSvc != nil {
		watchSvc.Stop()
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler did not stop cleanly", zap.Error(err))
	}
	if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
		logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
	}
}

// buildQuery joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves flags that appear after the question to the front so that
// flag.Parse sees them; the flag package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = answer in-process)")
	sessionID := fs.String("session", "", "session id for follow-up questions")
	interactive := fs.Bool("i", false, "interactive conversation; reads questions from stdin")
	output := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging (in-process mode)")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: hal ask [flags] <question>   (or hal ask -i)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var asker server.Asker
	if *serverURL != "" {
		asker = newHTTPClient(*serverURL)
	} else {
		cfg, logger := mustConfig(*configPath, *debug)
		if !*debug && !cfg.Debug {
			logger = zap.NewNop()
		}
		defer logger.Sync()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ingestKnowledge(ctx, components, cfg, logger)
		asker = components.Advisor
	}

	format := cli.ParseFormat(*output)
	if *interactive {
		if *sessionID == "" {
			*sessionID = uuid.NewString()
		}
		if err := converse(ctx, asker, *sessionID, query, os.Stdin, os.Stdout, format); err != nil {
			fmt.Fprintf(os.Stderr, "Conversation ended: %v\n", err)
			os.Exit(1)
		}
		return
	}
	resp, err := asker.Ask(ctx, models.AskRequest{Query: query, SessionID: *sessionID})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// converse runs a read-answer loop on one session until EOF, "exit" or "quit".
// A non-empty first question is answered before reading from in.
func converse(ctx context.Context, asker server.Asker, sessionID, first string, in io.Reader, out io.Writer, format cli.OutputFormat) error {
	ask := func(q string) error {
		resp, err := asker.Ask(ctx, models.AskRequest{Query: q, SessionID: sessionID})
		if err != nil {
			return err
		}
		return cli.WriteAnswer(out, resp, format)
	}
	if format == cli.OutputText {
		fmt.Fprintf(out, "HAL advisor (session %s). Type \"exit\" to quit.\n", sessionID)
	}
	if first != "" {
		if err := ask(first); err != nil {
			return err
		}
	}
	scanner := bufio.NewScanner(in)
	for {
		if format == cli.OutputText {
			fmt.Fprint(out, "\n> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(q) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := ask(q); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	rebuild := fs.Bool("rebuild", false, "re-embed every stored document before ingesting")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	cfg, logger := mustConfig(*configPath, *debug)
	defer logger.Sync()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeKnowledge(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	if *rebuild {
		n, err := components.Indexer.Rebuild(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Rebuild failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Rebuilt %d documents\n", n)
	} else if err := ensureVectors(ctx, components, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Index check failed: %v\n", err)
		os.Exit(1)
	}

	total := 0
	failed := false
	if fs.NArg() == 0 {
		total = ingestKnowledge(ctx, components, cfg, logger)
	}
	for _, path := range fs.Args() {
		n, err := ingestPath(ctx, components, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
		total += n
	}
	if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
		fmt.Fprintf(os.Stderr, "Saving vector index failed: %v\n", err)
		failed = true
	}
	fmt.Printf("Indexed %d documents\n", total)
	if failed {
		os.Exit(1)
	}
}

func ingestPath(ctx context.Context, c *Components, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return c.Indexer.IndexDirectory(ctx, path)
	}
	return c.Indexer.IndexFile(ctx, path)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read storage directly)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var (
		st  *cli.Status
		err error
	)
	if *serverURL != "" {
		st, err = newHTTPClient(*serverURL).Status(context.Background())
	} else {
		st, err = directStatus(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, st, cli.ParseFormat(*output)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func directStatus(configPath string) (*cli.Status, error) {
	cfg, logger := mustConfig(configPath, false)
	defer logger.Sync()
	components, err := initializeKnowledge(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return collectStatus(context.Background(), components, cfg)
}

func collectStatus(ctx context.Context, c *Components, cfg *config.Config) (*cli.Status, error) {
	counts, err := c.Storage.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	open, err := c.Storage.ListHandoffs(ctx, models.HandoffOpen, 0)
	if err != nil {
		return nil, fmt.Errorf("list handoffs: %w", err)
	}
	st := &cli.Status{
		DocumentsByType: make(map[string]int64, len(counts)),
		OpenHandoffs:    len(open),
		VectorIndexSize: c.VectorIndex.Size(),
		Provider:        cfg.LLM.Provider,
		MainModel:       cfg.LLM.MainModel,
		DatabasePath:    cfg.Storage.DatabasePath,
	}
	for t, n := range counts {
		st.DocumentsByType[string(t)] = n
		st.Documents += n
	}
	if n, err := c.KeywordIndex.DocCount(); err == nil {
		st.KeywordIndexSize = n
	}
	if n, err := storage.DiskUsage(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath,
		cfg.Storage.VectorIndexPath, cfg.Storage.EmbeddingCachePath); err == nil {
		st.DiskUsageBytes = n
	}
	return st, nil
}

func printUsage() {
	fmt.Println(`hal - academic advising assistant

Usage:
  hal server [flags]            Start the HTTP API
  hal ask [flags] <question>    Ask a question (via the server, or in-process with --server "")
  hal ask -i                    Start an interactive conversation
  hal ingest [flags] [paths]    Index knowledge files or directories (default: configured sources)
  hal status [flags]            Show knowledge base and handoff status
  hal version                   Show version
  hal help                      Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml, then /usr/local/etc/hal/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to answer in-process.
  --session string   Session id so follow-ups like "that class" resolve
  -i                 Interactive mode; a new session id is generated unless --session is set
  --output string    Output format: text or json (default: text)

Ingest Flags:
  --rebuild          Re-embed every stored document first

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  hal server
  hal ask "What are the prerequisites for CS 146?"
  hal ask --session s1 "When is that class offered?"
  hal ask --server "" --output json "Who is my advisor? My last name starts with K"
  hal ingest ./knowledge/policies.md
  hal status --output json`)
}
