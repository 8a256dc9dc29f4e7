// Package main is the kotoba CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kotoba/internal/cli"
	"github.com/hyperjump/kotoba/internal/config"
	"github.com/hyperjump/kotoba/internal/extract"
	"github.com/hyperjump/kotoba/internal/metrics"
	"github.com/hyperjump/kotoba/internal/models"
	"github.com/hyperjump/kotoba/internal/server"
	"github.com/hyperjump/kotoba/internal/service"
	"github.com/hyperjump/kotoba/internal/watcher"
	"github.com/hyperjump/kotoba/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = config.DefaultPath

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if it exists, and a missing default file falls
// back to the built-in configuration. Returns the config and the path that was
// actually loaded ("" for built-in).
func loadConfig(path string) (*config.Config, string, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, "", err
	}
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg, err := config.Default()
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
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
	case "humanize":
		runHumanize()
	case "analyze":
		runAnalyze()
	case "watch":
		runWatch()
	case "techniques":
		runTechniques()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("kotoba version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds the logger. Exits on failure.
func setup(configPath string, debug bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watchInbox := fs.Bool("watch", false, "also humanize files dropped into the inbox")
	_ = fs.Parse(os.Args[2:])

	cfg, resolved, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolved),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	m := metrics.New(nil)
	svc := service.New(cfg, logger, service.WithMetrics(m), service.WithVersion(version))
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Listen first; health reports "initializing" until models are loaded.
	srv := server.NewServer(svc, &cfg.Server, m, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()
	go func() {
		if err := svc.Initialize(ctx); err != nil {
			logger.Fatal("Failed to initialize service", zap.Error(err))
		}
		logger.Info("models loaded")
		if *watchInbox {
			if _, err := startWatcher(ctx, cfg, svc, logger); err != nil {
				logger.Error("Failed to start watcher", zap.Error(err))
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// initService builds and initializes a service for one-shot commands.
func initService(cfg *config.Config, logger *zap.Logger) *service.Service {
	svc := service.New(cfg, logger, service.WithVersion(version))
	if err := svc.Initialize(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return svc
}

func printHumanizeUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kotoba humanize [flags] [file|-]\n\n")
	fmt.Fprintf(fs.Output(), "Reads the file (txt, md, rst, pdf, docx, xlsx) or stdin when no file or \"-\" is given.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kotoba humanize essay.md
  cat draft.txt | kotoba humanize --tier fast --intensity 0.4
  kotoba humanize --techniques human_patterns,sentence_restructuring report.docx
  kotoba humanize --batch --output json paragraphs.txt
  kotoba humanize --server http://localhost:3650 essay.md
`)
}

// argsReorder moves flags that appear after the positional argument to the
// front so flag.Parse sees them ("kotoba humanize essay.md --tier fast").
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 1 && a[0] == '-' {
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

// readInput returns the text of path, or stdin when path is "" or "-".
func readInput(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	return extract.NewExtractor().Extract(path)
}

// splitParagraphs splits text on blank lines, dropping empty paragraphs.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFormat(s string) (cli.OutputFormat, error) {
	switch s {
	case "text":
		return cli.OutputText, nil
	case "json":
		return cli.OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

// splitList parses a comma-separated flag value.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runHumanize() {
	fs := flag.NewFlagSet("humanize", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = run the pipeline in-process)")
	tier := fs.String("tier", "", "tier: fast, balanced or quality (default from config)")
	intensity := fs.Float64("intensity", -1, "intensity in [0,1] (default from config)")
	techniques := fs.String("techniques", "", "comma-separated technique override")
	preserve := fs.Bool("preserve-meaning", true, "revert sentences that drift in meaning")
	seed := fs.Int64("seed", -1, "random seed for reproducible output (-1 = random)")
	noCache := fs.Bool("no-cache", false, "bypass the result cache")
	batch := fs.Bool("batch", false, "humanize each blank-line separated paragraph as a batch item")
	outputFormat := fs.String("output", "text", "output format: text or json")
	verbose := fs.Bool("verbose", false, "print tier, techniques and similarity with the text")
	fs.Usage = func() { printHumanizeUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := parseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	text, err := readInput(fs.Arg(0), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		os.Exit(1)
	}

	req := &models.HumanizeRequest{
		Text:            text,
		Tier:            *tier,
		PreserveMeaning: preserve,
		Techniques:      splitList(*techniques),
	}
	if *intensity >= 0 {
		req.Intensity = intensity
	}
	if *seed >= 0 {
		s := uint64(*seed)
		req.Seed = &s
	}
	if *noCache {
		c := false
		req.Cache = &c
	}

	if *batch {
		breq := &models.BatchHumanizeRequest{
			Texts:     splitParagraphs(text),
			Tier:      req.Tier,
			Intensity: req.Intensity,
			Seed:      req.Seed,
		}
		var resp *models.BatchHumanizeResponse
		if *serverURL != "" {
			resp, err = postJSON[models.BatchHumanizeResponse](*serverURL+"/api/v1/humanize/batch", breq)
		} else {
			cfg, _, logger := setup(*configPath, false)
			defer logger.Sync()
			svc := initService(cfg, logger)
			defer svc.Close()
			resp, err = svc.HumanizeBatch(context.Background(), breq)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Humanize failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteBatch(os.Stdout, resp, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var resp *models.HumanizeResponse
	if *serverURL != "" {
		resp, err = postJSON[models.HumanizeResponse](*serverURL+"/api/v1/humanize", req)
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		svc := initService(cfg, logger)
		defer svc.Close()
		resp, err = svc.Humanize(context.Background(), req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Humanize failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteHumanizeResult(os.Stdout, resp, format, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// postJSON posts body to url and decodes a T from a 200 response. The API key
// is taken from KOTOBA_SERVER_API_KEY when set.
func postJSON[T any](url string, body any) (*T, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := os.Getenv(config.EnvPrefix + "SERVER_API_KEY"); key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := parseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	text, err := readInput(fs.Arg(0), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		os.Exit(1)
	}
	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	// Analysis is heuristic; no models are needed.
	svc := service.New(cfg, logger, service.WithVersion(version))
	resp, err := svc.Analyze(&models.AnalyzeRequest{Text: text})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analyze failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnalysis(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runTechniques() {
	fs := flag.NewFlagSet("techniques", flag.ExitOnError)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	svc := service.New(&config.Config{}, zap.NewNop())
	if err := cli.WriteTechniques(os.Stdout, svc.Techniques(), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// startWatcher wires the inbox watcher to the service and processes files
// already waiting in the inbox.
func startWatcher(ctx context.Context, cfg *config.Config, svc *service.Service, logger *zap.Logger) (*watcher.Watcher, error) {
	proc := watcher.NewProcessor(svc, extract.NewExtractor(), cfg.Watch.Outbox,
		watcher.WithTier(cfg.Watch.Tier),
		watcher.WithProcessorLogger(logger),
	)
	w := watcher.NewWatcher(cfg.Watch.Inbox, cfg.Watch.Extensions, proc.Handle(ctx),
		watcher.WithLogger(logger),
		watcher.WithIgnore(cfg.Watch.Outbox),
	)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	logger.Info("watching inbox",
		zap.String("inbox", cfg.Watch.Inbox),
		zap.String("outbox", cfg.Watch.Outbox),
	)
	w.SyncExisting()
	return w, nil
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	inbox := fs.String("inbox", "", "inbox directory (default from config)")
	outbox := fs.String("outbox", "", "outbox directory (default from config)")
	tier := fs.String("tier", "", "tier for every file (default from config)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()
	if *inbox != "" {
		cfg.Watch.Inbox, _ = filepath.Abs(*inbox)
	}
	if *outbox != "" {
		cfg.Watch.Outbox, _ = filepath.Abs(*outbox)
	}
	if *tier != "" {
		cfg.Watch.Tier = *tier
	}

	svc := initService(cfg, logger)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := startWatcher(ctx, cfg, svc, logger)
	if err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down...")
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", "config.yaml", "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if _, err := os.Stat(*path); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "%s already exists (use --force to overwrite)\n", *path)
		os.Exit(1)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if err := config.Save(*path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *path)
}

func printUsage() {
	fmt.Println(`kotoba - Text humanization service

Usage:
  kotoba server [flags]             Start the HTTP server
  kotoba humanize [flags] [file|-]  Humanize a document or stdin
  kotoba analyze [flags] [file|-]   Score text for machine-writing patterns
  kotoba watch [flags]              Humanize files dropped into the inbox
  kotoba techniques                 List humanization techniques
  kotoba init [flags]               Write a default config file
  kotoba version                    Show version
  kotoba help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotoba/config.yaml)
  --debug            Enable debug logging
  --watch            Also watch the inbox directory

Humanize Flags:
  --server string        Server URL; empty runs the pipeline in-process
  --tier string          fast, balanced or quality
  --intensity float      Transformation intensity in [0,1]
  --techniques string    Comma-separated technique override
  --seed int             Random seed for reproducible output
  --no-cache             Bypass the result cache
  --batch                Humanize each paragraph separately
  --output string        text or json (default: text)
  --verbose              Print tier, techniques and similarity

Watch Flags:
  --inbox string     Inbox directory
  --outbox string    Outbox directory
  --tier string      Tier used for every file

Examples:
  kotoba server --watch
  kotoba humanize --tier quality essay.md
  echo "It is important to note that..." | kotoba humanize --intensity 0.9
  kotoba analyze --output json report.pdf
  kotoba watch --inbox ./inbox --outbox ./outbox`)
}
