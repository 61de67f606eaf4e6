package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	build "shorts-doc-pipeline/05_build"
	"shorts-doc-pipeline/api"
	"shorts-doc-pipeline/config"
	"shorts-doc-pipeline/llm"
	"shorts-doc-pipeline/queue"
	"shorts-doc-pipeline/reference"
	"shorts-doc-pipeline/types"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	requestPath := flag.String("request", "", "build one request JSON file")
	batchDir := flag.String("batch", "", "build every *.json request in a directory")
	serve := flag.Bool("serve", false, "serve the HTTP API")
	worker := flag.Bool("worker", false, "consume build commands from RabbitMQ")
	flag.Parse()

	// Load .env (local dev only)
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = config.Default()
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise build service")
	}

	switch {
	case *serve:
		if err := api.NewServer(svc).Run(ctx, cfg.Server.Addr); err != nil {
			log.Fatal().Err(err).Msg("HTTP server stopped")
		}
	case *worker:
		if err := runWorker(ctx, cfg, svc); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("Worker stopped")
		}
	case *batchDir != "":
		if err := runBatch(ctx, cfg, svc, *batchDir); err != nil {
			log.Fatal().Err(err).Msg("Batch failed")
		}
	case *requestPath != "":
		if !runOne(ctx, cfg, svc, *requestPath) {
			os.Exit(1)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func setupLogging(lc config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if lc.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

func newService(cfg *config.Config) (build.Runner, error) {
	client, err := llm.New(cfg.LLM.BaseURL, cfg.APIKey(), cfg.LLM.Timeout())
	if err != nil {
		return build.Runner{}, fmt.Errorf("%s: %w", cfg.LLM.APIKeyEnv, err)
	}
	src, err := referenceSource(cfg.Reference)
	if err != nil {
		return build.Runner{}, err
	}
	return build.Runner{
		Builder: build.New(client, reference.NewCache(src)),
		Options: build.OptionsFromConfig(cfg),
	}, nil
}

func referenceSource(rc config.ReferenceConfig) (reference.Source, error) {
	switch rc.Source {
	case "", "embedded":
		return reference.EmbeddedSource{}, nil
	case "file":
		return reference.FileSource{Path: rc.Path}, nil
	case "gcs":
		return reference.GCSSource{Bucket: rc.Bucket, Object: rc.Object}, nil
	}
	return nil, fmt.Errorf("unknown reference source %q", rc.Source)
}

// runOne builds a single request and writes its artifacts under output/<run-id>
func runOne(ctx context.Context, cfg *config.Config, svc build.Service, path string) bool {
	req, err := readRequest(path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read request")
		return false
	}

	runID := uuid.NewString()[:8]
	runDir := filepath.Join(cfg.Paths.Output, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		log.Error().Err(err).Msg("Failed to create run dir")
		return false
	}

	log.Info().Str("run_id", runID).Msg("🎬 Build starting")
	log.Info().Str("dir", runDir).Msg("📁 Output dir")

	state := &types.BuildState{
		RunID:     runID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}

	res, err := svc.Build(ctx, req)
	state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	if err != nil {
		recordFailure(state, err)
		saveState(state, runDir)
		logBuild(cfg.Paths.Logs, state, runDir)
		log.Error().Str("kind", state.ErrorKind).Msgf("❌ Build failed: %s", state.Error)
		return false
	}

	state.Plan = res.Plan
	state.Document = res.Document
	saveJSON(filepath.Join(runDir, "plan.json"), res.Plan)
	saveJSON(filepath.Join(runDir, "document.json"), res.Document)
	saveState(state, runDir)
	logBuild(cfg.Paths.Logs, state, runDir)
	log.Info().Str("build_id", res.BuildID).Int("scenes", len(res.Plan.Scenes)).Msg("✅ Build complete")
	return true
}

func runBatch(ctx context.Context, cfg *config.Config, svc build.Service, dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no *.json requests in %s", dir)
	}
	sort.Strings(paths)

	reqs := make([]types.BuildRequest, 0, len(paths))
	for _, p := range paths {
		req, err := readRequest(p)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	batchDir := filepath.Join(cfg.Paths.Output, "batch-"+uuid.NewString()[:8])
	if err := os.MkdirAll(batchDir, 0755); err != nil {
		return fmt.Errorf("create batch dir: %w", err)
	}

	for _, item := range build.RunBatch(ctx, svc, reqs, cfg.Build.Concurrency) {
		name := strings.TrimSuffix(filepath.Base(paths[item.Index]), ".json")
		state := &types.BuildState{RunID: name, CompletedAt: time.Now().UTC().Format(time.RFC3339)}
		if item.Err != nil {
			recordFailure(state, item.Err)
		} else {
			state.Plan = item.Result.Plan
			state.Document = item.Result.Document
		}
		saveJSON(filepath.Join(batchDir, name+".state.json"), state)
		logBuild(cfg.Paths.Logs, state, batchDir)
	}
	log.Info().Str("dir", batchDir).Msg("📁 Batch written")
	return nil
}

func runWorker(ctx context.Context, cfg *config.Config, svc build.Service) error {
	url := os.Getenv(cfg.Queue.URLEnv)
	if url == "" {
		return fmt.Errorf("%s not set", cfg.Queue.URLEnv)
	}
	mq, err := queue.Dial(url, cfg.Queue.Prefetch)
	if err != nil {
		return err
	}
	defer mq.Close()

	deliveries, err := mq.Consume(cfg.Queue.CommandQueue)
	if err != nil {
		return err
	}
	log.Info().Str("queue", cfg.Queue.CommandQueue).Msg("🎧 Worker waiting for build commands")
	return queue.NewWorker(svc, mq, cfg.Queue.ResultQueue).Run(ctx, deliveries)
}

// logBuild writes a one-file summary of a finished build to the logs dir
func logBuild(logsDir string, state *types.BuildState, outputDir string) string {
	if logsDir == "" {
		return ""
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		log.Warn().Err(err).Str("dir", logsDir).Msg("could not create logs dir")
		return ""
	}

	entry := map[string]any{
		"run_id":       state.RunID,
		"completed_at": state.CompletedAt,
		"output_dir":   outputDir,
		"ok":           state.Error == "",
	}
	if state.Document != nil {
		entry["compositions"] = len(state.Document.Elements)
	}
	if state.Error != "" {
		entry["error"] = state.Error
		entry["error_kind"] = state.ErrorKind
	}

	logFile := filepath.Join(logsDir, fmt.Sprintf("build_%s_%s.json", state.RunID, time.Now().Format("20060102_150405")))
	saveJSON(logFile, entry)
	log.Debug().Str("file", logFile).Msg("build log saved")
	return logFile
}

func readRequest(path string) (types.BuildRequest, error) {
	var req types.BuildRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parse %s: %w", path, err)
	}
	return req, nil
}

func recordFailure(state *types.BuildState, err error) {
	state.Error = err.Error()
	state.ErrorKind = types.ErrorKind(err)
	var failure *types.ValidationFailure
	if errors.As(err, &failure) {
		state.Violations = failure.Violations
	}
}

func saveState(state *types.BuildState, dir string) {
	saveJSON(filepath.Join(dir, "build_state.json"), state)
}

func saveJSON(path string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not marshal JSON")
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not save file")
	}
}
