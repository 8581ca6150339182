// Package main is the chotto CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/chotto/internal/cli"
	"github.com/hyperjump/chotto/internal/config"
	"github.com/hyperjump/chotto/internal/models"
	"github.com/hyperjump/chotto/internal/seed"
	"github.com/hyperjump/chotto/internal/server"
	"github.com/hyperjump/chotto/internal/vector"
	"github.com/hyperjump/chotto/internal/watcher"
	"github.com/hyperjump/chotto/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/chotto/config.yaml"
	defaultServerURL  = "http://localhost:8090"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists; when neither exists the built-in defaults are
// used. Returns the config and the path that was loaded ("" for defaults).
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env is fine; OPENAI_API_KEY may come from the environment instead.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "index":
		runIndex()
	case "seed":
		runSeed()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("chotto version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds the logger shared by every subcommand.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
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
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	reload := func(path string) {
		if _, err := seed.Import(ctx, components.Storage, path); err != nil {
			logger.Warn("seed import failed", zap.String("path", path), zap.Error(err))
			return
		}
		if _, err := components.Indexer.Rebuild(ctx); err != nil {
			logger.Warn("index rebuild failed", zap.Error(err))
		}
	}

	if cfg.Seed.Path != "" {
		reload(cfg.Seed.Path)
	} else if n, err := components.VectorIndex.Count(ctx); err == nil && n == 0 {
		if _, err := components.Indexer.Rebuild(ctx); err != nil {
			logger.Warn("initial index build failed", zap.Error(err))
		}
	}

	if cfg.Seed.Watch && cfg.Seed.Path != "" {
		w, err := watcher.NewWatcher([]string{cfg.Seed.Path}, reload, watcher.WithLogger(logger))
		if err != nil {
			logger.Fatal("Failed to create seed watcher", zap.Error(err))
		}
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start seed watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(server.Deps{
		Engine:       components.Engine,
		Indexer:      components.Indexer,
		Stats:        components.Storage,
		VectorIndex:  components.VectorIndex,
		KeywordIndex: components.KeywordIndex,
	}, cfg, logger)
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
	if components.VectorIndex.Type() == string(vector.IndexTypeMemory) && cfg.Storage.VectorIndexPath != "" {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: chotto search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  chotto search data analysis
  chotto search --mode keyword --fuzzy pythn       # typo-tolerant skill name match
  chotto search --skill 8                          # every holder of skill 8
  chotto search --department 2 --output compact
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves flags that appear after the query to the front so
// flag.Parse sees them; the flag package stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
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

// searchRequest describes one search invocation, local or over HTTP.
type searchRequest struct {
	Mode         string // fuzzy or keyword
	Query        *models.SearchQuery
	SkillID      int64
	DepartmentID int64
}

// path returns the API path and query string for the request.
func (r *searchRequest) path() string {
	switch {
	case r.SkillID > 0:
		return fmt.Sprintf("/api/v1/search/skill/%d", r.SkillID)
	case r.DepartmentID > 0:
		return fmt.Sprintf("/api/v1/search/department/%d", r.DepartmentID)
	}
	v := url.Values{}
	v.Set("query", r.Query.Query)
	if r.Query.Limit > 0 {
		v.Set("limit", strconv.Itoa(r.Query.Limit))
	}
	if r.Query.Fuzzy {
		v.Set("fuzzy", "true")
	}
	return "/api/v1/search/" + r.Mode + "?" + v.Encode()
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = open the local data directly)")
	limit := fs.Int("limit", 0, "number of nearest skills to consider (0 = server default)")
	mode := fs.String("mode", "fuzzy", "search mode: fuzzy (semantic) or keyword")
	fuzzy := fs.Bool("fuzzy", false, "typo tolerance for keyword mode")
	skillID := fs.Int64("skill", 0, "list the holders of this skill id")
	departmentID := fs.Int64("department", 0, "list the members of this department id")
	outputFormat := fs.String("output", "text", "output format: text, compact or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *mode != "fuzzy" && *mode != "keyword" {
		fmt.Fprintf(os.Stderr, "Unknown search mode %q; use fuzzy or keyword\n", *mode)
		os.Exit(1)
	}
	req := &searchRequest{
		Mode:         *mode,
		Query:        &models.SearchQuery{Query: buildSearchQuery(fs.Args()), Limit: *limit, Fuzzy: *fuzzy},
		SkillID:      *skillID,
		DepartmentID: *departmentID,
	}
	if req.SkillID == 0 && req.DepartmentID == 0 && req.Query.Query == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		// The HTTP API avoids fighting the running server for the Bleve and SQLite locks.
		response, err = searchViaHTTP(*serverURL, req)
	} else {
		response, err = searchDirect(*configPath, req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchDirect(configPath string, req *searchRequest) (*models.SearchResponse, error) {
	cfg, _, logger := setup(configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	switch {
	case req.SkillID > 0:
		return components.Engine.SearchBySkill(ctx, req.SkillID)
	case req.DepartmentID > 0:
		return components.Engine.SearchByDepartment(ctx, req.DepartmentID)
	case req.Mode == "keyword":
		return components.Engine.SearchKeyword(ctx, req.Query), nil
	default:
		return components.Engine.Search(ctx, req.Query), nil
	}
}

func searchViaHTTP(serverURL string, req *searchRequest) (*models.SearchResponse, error) {
	var response models.SearchResponse
	if err := getJSON(serverURL+req.path(), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// getJSON issues a GET and decodes a 200 response body into out.
func getJSON(target string, out interface{}) error {
	resp, err := http.Get(target)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = open the local data directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	status := &server.Status{}
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/status", status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		srv := server.NewServer(server.Deps{
			Stats:        components.Storage,
			VectorIndex:  components.VectorIndex,
			KeywordIndex: components.KeywordIndex,
		}, cfg, logger)
		if status, err = srv.Status(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeStatusText(os.Stdout, status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func writeStatusText(w io.Writer, s *server.Status) {
	if d := s.Directory; d != nil {
		fmt.Fprintf(w, "users:              %d\n", d.Users)
		fmt.Fprintf(w, "departments:        %d\n", d.Departments)
		fmt.Fprintf(w, "skills:             %d\n", d.Skills)
		fmt.Fprintf(w, "assignments:        %d\n", d.Assignments)
		fmt.Fprintf(w, "profiles:           %d\n", d.Profiles)
	}
	fmt.Fprintf(w, "vector_backend:     %s\n", s.VectorBackend)
	fmt.Fprintf(w, "vector_count:       %d   # vectors in the semantic index\n", s.VectorCount)
	if len(s.SampleIDs) > 0 {
		fmt.Fprintf(w, "sample_ids:         %s\n", strings.Join(s.SampleIDs, ", "))
	}
	if s.KeywordDocs != nil {
		fmt.Fprintf(w, "keyword_docs:       %d\n", *s.KeywordDocs)
	}
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + indices on disk\n", *s.DiskUsageBytes)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	report, err := components.Indexer.Rebuild(ctx)
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d skill(s), %d assignment(s); %d failed, %d pruned in %s\n",
		report.Skills, report.Assignments, report.Failed, report.Pruned, report.Duration.Round(time.Millisecond))
}

func runSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	reindex := fs.Bool("reindex", true, "rebuild the vector and keyword indexes after import")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: chotto seed [flags] <directory.yaml|directory.xlsx>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	snap, err := seed.Import(ctx, components.Storage, path)
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d user(s), %d department(s), %d skill(s), %d assignment(s) from %s\n",
		len(snap.Users), len(snap.Departments), len(snap.Skills), len(snap.Assignments), path)
	if !*reindex {
		return
	}
	report, err := components.Indexer.Rebuild(ctx)
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d skill(s); %d failed\n", report.Skills, report.Failed)
}

func printUsage() {
	fmt.Println(`chotto - Employee skill directory with semantic search

Usage:
  chotto server [flags]           Start the HTTP server
  chotto search [flags] <query>   Search people by skill
  chotto index [flags]            Rebuild the vector and keyword indexes
  chotto seed [flags] <file>      Import a YAML or XLSX directory snapshot
  chotto status [flags]           Show directory and index status
  chotto version                  Show version
  chotto help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/chotto/config.yaml, or ./config.yaml)
  --debug            Enable debug logging

Search Flags:
  --server string    Server URL (default: http://localhost:8090). Use --server "" to open the data directly.
  --mode string      fuzzy (semantic, default) or keyword
  --fuzzy            Typo tolerance for keyword mode
  --limit int        Number of nearest skills to consider
  --skill int        List the holders of a skill id
  --department int   List the members of a department id
  --output string    text, compact or json (default: text)

Seed Flags:
  --reindex          Rebuild indexes after import (default: true)

Status Flags:
  --server string    Server URL (default: http://localhost:8090). Use --server "" for direct mode.
  --output string    text or json (default: text)

Examples:
  chotto seed directory.yaml
  chotto server
  chotto search "data analysis"
  chotto search --output json python
  chotto status --output json`)
}
