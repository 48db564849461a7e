// Package main is the Tanya CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/tanya/internal/cli"
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/inference"
	"github.com/hyperjump/tanya/internal/inference/provider"
	"github.com/hyperjump/tanya/internal/library"
	"github.com/hyperjump/tanya/internal/metrics"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/search"
	"github.com/hyperjump/tanya/internal/server"
	"github.com/hyperjump/tanya/internal/spell"
	"github.com/hyperjump/tanya/internal/watcher"
	"github.com/hyperjump/tanya/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/tanya/config.yaml"
	defaultServerURL  = "http://localhost:5000"
	clientTimeout     = 10 * time.Minute
)

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if it exists, and a missing default file yields the built-in defaults.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
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
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			cfg := &config.Config{}
			if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
				return nil, "", err
			}
			config.ApplyDefaults(cfg)
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
	// Provider tokens usually live in .env; a missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "query":
		runQuery()
	case "files":
		runFiles()
	case "upload":
		runUpload()
	case "version", "--version", "-v":
		fmt.Printf("tanya version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode, cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("library_root", cfg.Library.Root),
		zap.String("qa_provider", cfg.Inference.QA.Provider),
		zap.String("summarizer_provider", cfg.Inference.Summarizer.Provider),
		zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger, metrics.New())
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srvOpts := []server.Option{
		server.WithIndexer(components.Indexer),
		server.WithMetrics(components.Metrics),
	}
	if cfg.Watch.EnabledOrDefault() {
		watchSvc := watcher.NewWatcher(cfg.Library.Root, components.Indexer,
			watcher.WithLogger(logger),
			watcher.WithDebounce(cfg.Watch.Debounce))
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
		if _, err := watchSvc.SyncExistingFiles(ctx); err != nil {
			logger.Warn("initial sync incomplete", zap.Error(err))
		}
		srvOpts = append(srvOpts, server.WithWatch(watchSvc))
	} else if _, err := components.Indexer.IndexDirectory(ctx, cfg.Library.Root); err != nil {
		logger.Warn("initial indexing incomplete", zap.Error(err))
	}

	srv := server.NewServer(components.Pipeline, components.Library, cfg, logger, srvOpts...)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
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

// folderFlags registers -year and -semester on fs.
func folderFlags(fs *flag.FlagSet) func() models.Folder {
	year := fs.String("year", "", "year of the folder (Year_<year>)")
	semester := fs.String("semester", "", "semester of the folder (Semester_<semester>)")
	return func() models.Folder {
		return models.Folder{Year: models.Identifier(*year), Semester: models.Identifier(*semester)}
	}
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them.
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

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = run the pipeline in-process)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	folder := folderFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: tanya query -year Y -semester S [flags] <query>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := cli.JoinArgs(fs.Args())
	if query == "" || folder().IsZero() {
		fs.Usage()
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)

	ctx := context.Background()
	var (
		res *models.QueryResult
		err error
	)
	if *serverURL != "" {
		res, err = cli.NewClient(*serverURL, clientTimeout).Query(ctx, folder(), query)
	} else {
		res, err = queryInProcess(ctx, *configPath, folder(), query)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteQueryResult(os.Stdout, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func queryInProcess(ctx context.Context, configPath string, folder models.Folder, query string) (*models.QueryResult, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	// The spelling dictionary is built from the whole library.
	if _, err := components.Indexer.IndexDirectory(ctx, cfg.Library.Root); err != nil {
		logger.Warn("indexing incomplete", zap.Error(err))
	}
	if cfg.Search.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Search.QueryTimeout)
		defer cancel()
	}
	return components.Pipeline.Query(ctx, folder, query)
}

func runFiles() {
	fs := flag.NewFlagSet("files", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the library directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	folder := folderFlags(fs)
	_ = fs.Parse(os.Args[2:])

	if folder().IsZero() {
		fmt.Println("Usage: tanya files -year Y -semester S [flags]")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)

	var (
		files []string
		err   error
	)
	if *serverURL != "" {
		files, err = cli.NewClient(*serverURL, clientTimeout).Files(context.Background(), folder())
	} else {
		var lib *library.Library
		if lib, err = openLibrary(*configPath); err == nil {
			files, err = lib.ListPDFs(folder())
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Listing failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteFiles(os.Stdout, files, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = write into the library directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	folder := folderFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 || folder().IsZero() {
		fmt.Println("Usage: tanya upload -year Y -semester S [flags] <file.pdf>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	format := parseFormat(*outputFormat)

	ctx := context.Background()
	var (
		stored *models.StoredFile
		err    error
	)
	if *serverURL != "" {
		stored, err = cli.NewClient(*serverURL, clientTimeout).Upload(ctx, folder(), path)
	} else {
		stored, err = uploadDirect(ctx, *configPath, folder(), path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStoredFile(os.Stdout, stored, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func uploadDirect(ctx context.Context, configPath string, folder models.Folder, path string) (*models.StoredFile, error) {
	lib, err := openLibrary(configPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return lib.Save(ctx, folder, filepath.Base(path), f)
}

func openLibrary(configPath string) (*library.Library, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	root, err := filepath.Abs(cfg.Library.Root)
	if err != nil {
		return nil, err
	}
	return library.New(root), nil
}

// Components holds initialized services.
type Components struct {
	Library    *library.Library
	Dictionary *spell.BleveDictionary
	Pipeline   *search.Pipeline
	Indexer    *indexer.Indexer
	Metrics    *metrics.Metrics
	closers    []io.Closer
}

// Close releases model and index resources.
func (c *Components) Close() {
	for _, cl := range c.closers {
		_ = cl.Close()
	}
}

// passthrough leaves text unchanged when spelling correction is disabled.
type passthrough struct{}

func (passthrough) CorrectText(text string) string { return text }

func initializeComponents(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Components, error) {
	root, err := filepath.Abs(cfg.Library.Root)
	if err != nil {
		return nil, fmt.Errorf("library root: %w", err)
	}
	cfg.Library.Root = root
	c := &Components{Library: library.New(root, library.WithLogger(logger)), Metrics: m}

	lexicon := spell.DefaultLexicon()
	if cfg.Spell.LexiconPath != "" {
		extra, err := spell.LoadLexicon(cfg.Spell.LexiconPath)
		if err != nil {
			return nil, err
		}
		for w, n := range extra {
			lexicon[w] += n
		}
	}
	dict, err := spell.NewBleveDictionary(cfg.Spell.IndexPath,
		spell.WithLexicon(lexicon),
		spell.WithDictionaryLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize spelling dictionary: %w", err)
	}
	c.Dictionary = dict
	c.closers = append(c.closers, dict)

	var (
		speller search.Speller = passthrough{}
		checker *spell.SpellChecker
	)
	if cfg.Spell.EnabledOrDefault() {
		checker = spell.NewSpellChecker(dict,
			spell.WithMaxDistance(cfg.Spell.MaxDistance),
			spell.WithMinWordLength(cfg.Spell.MinWordLength),
			spell.WithCacheSize(cfg.Spell.CacheSize),
			spell.WithFullDistanceTerms(cfg.Spell.FullDistanceTerms),
			spell.WithLogger(logger))
		speller = checker
	}

	qa, qaCloser, err := provider.NewQuestionAnswerer(cfg.Inference.QA, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize question answering: %w", err)
	}
	c.closers = append(c.closers, qaCloser)
	summarizer, err := provider.NewSummarizer(cfg.Inference.Summarizer, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize summarizer: %w", err)
	}
	limiter := inference.NewLimiter(cfg.Inference.MaxConcurrent, cfg.Inference.Timeout)

	extractor := extract.NewPDFExtractor(extract.WithLogger(logger))
	c.Pipeline = search.NewPipeline(c.Library, extractor, speller,
		limiter.QuestionAnswerer(qa),
		limiter.Summarizer(summarizer),
		search.WithLogger(logger),
		search.WithMetrics(m),
		search.WithParallelism(cfg.Search.Parallelism),
		search.WithTextCacheSize(cfg.Search.TextCacheSize))

	idxOpts := []indexer.IndexerOption{
		indexer.WithLogger(logger),
		indexer.WithInvalidator(c.Pipeline),
	}
	if checker != nil {
		idxOpts = append(idxOpts, indexer.WithRefresher(checker))
	}
	c.Indexer = indexer.NewIndexer(extractor, dict, idxOpts...)
	return c, nil
}

func printUsage() {
	fmt.Println(`tanya - Question answering over course PDFs

Usage:
  tanya server [flags]                               Start the HTTP server
  tanya query -year Y -semester S [flags] <query>    Ask a question of a folder
  tanya files -year Y -semester S [flags]            List the PDFs of a folder
  tanya upload -year Y -semester S [flags] <file>    Upload a file into a folder
  tanya version                                      Show version
  tanya help                                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/tanya/config.yaml)
  --debug            Enable debug logging

Query / Files / Upload Flags:
  --year string      Year of the folder (Year_<year>)
  --semester string  Semester of the folder (Semester_<semester>)
  --server string    Server URL (default: http://localhost:5000). Use --server "" to work
                     on the library directly (query runs the pipeline in-process).
  --config string    Config file path (direct mode)
  --output string    Output format: text or json (default: text)

Environment:
  TANYA_HF_TOKEN, TANYA_OLLAMA_URL, TANYA_LIBRARY_ROOT, TANYA_PORT, TANYA_DEBUG
  (also read from a .env file in the working directory)

Examples:
  tanya server
  tanya upload -year 1 -semester 2 graphs.pdf
  tanya files -year 1 -semester 2
  tanya query -year 1 -semester 2 what is a graph
  tanya query --output json -year 1 -semester 2 "what is a graph"`)
}
