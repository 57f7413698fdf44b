package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-chat/internal/config"
	"document-chat/internal/contextbuilder"
	"document-chat/internal/embedding"
	"document-chat/internal/extract"
	"document-chat/internal/helper"
	"document-chat/internal/ingest"
	"document-chat/internal/llmservice"
	"document-chat/internal/models"
	"document-chat/internal/rag"
	"document-chat/internal/retriever"
	"document-chat/internal/status"
	"document-chat/internal/store"
	"document-chat/internal/store/chromemstore"
	"document-chat/internal/store/pg"
)

const configFilePath = "./configs/config.yaml"

// app is the explicit context object: every dependency is constructed
// once here and passed down, no lazily-initialized globals.
type app struct {
	cfg          *config.Config
	ingestSvc    *ingest.Service
	orchestrator *rag.Orchestrator
	tracker      *status.Tracker
	close        func()
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	_ = godotenv.Load()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	user := flag.String("user", "", "Owner id the operation is scoped to")
	filePaths := flag.String("file", "", "Comma-separated document files to ingest")
	url := flag.String("url", "", "URL to ingest")
	query := flag.String("query", "", "Question to answer from the user's documents")
	stream := flag.Bool("stream", false, "Stream the answer token by token")
	showStatus := flag.Bool("status", false, "Print the upload status summary")
	deleteSource := flag.String("delete-source", "", "Delete one ingested source document")
	count := flag.Bool("count", false, "Print the stored chunk count")
	debug := flag.Bool("debug", false, "Verbose logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if *user == "" {
		log.Fatal().Msg("Please provide an owner id with the -user flag")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	a, err := buildApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing")
	}
	defer a.close()

	ctx := context.Background()
	switch {
	case *filePaths != "":
		ingestFiles(ctx, a, *user, *filePaths)
	case *url != "":
		printBatch(a.ingestSvc.UploadURL(ctx, *user, *url))
	case *query != "":
		ask(ctx, a, *user, *query, *stream)
	case *showStatus:
		printSummary(ctx, a, *user)
	case *deleteSource != "":
		if err := a.ingestSvc.DeleteSource(ctx, *user, *deleteSource); err != nil {
			log.Fatal().Err(err).Msg("Error deleting source")
		}
		fmt.Printf("deleted %s\n", *deleteSource)
	case *count:
		n, err := a.ingestSvc.DocumentCount(ctx, *user)
		if err != nil {
			log.Fatal().Err(err).Msg("Error counting documents")
		}
		fmt.Printf("%d chunks stored\n", n)
	default:
		log.Fatal().Msg("Please provide one of -file, -url, -query, -status, -delete-source or -count")
	}
}

func buildApp(cfg *config.Config) (*app, error) {
	embedder, err := embedding.NewProvider(&cfg.EmbedLLM, pg.VectorDim)
	if err != nil {
		return nil, err
	}

	var vectorStore store.VectorStore
	var statusStore status.Store
	closer := func() {}

	switch cfg.Store.Backend {
	case "postgres":
		sqldb, err := pg.Connect(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("%w: connecting to database: %v", models.ErrInitialization, err)
		}
		pgStore := pg.New(sqldb, cfg.Database.Debug)
		if err := pg.Init(context.Background(), pgStore); err != nil {
			return nil, err
		}
		recordStore := status.NewPGStore(pgStore.DB())
		if err := recordStore.Init(context.Background()); err != nil {
			return nil, err
		}
		vectorStore = pgStore
		statusStore = recordStore
		closer = func() { pgStore.Close() }
	default:
		chromem, err := chromemstore.New(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		vectorStore = chromem
		statusStore = status.NewMemStore()
	}

	tracker := status.NewTracker(statusStore)
	generator := llmservice.NewClient(&cfg.ChatLLM)
	ret := retriever.New(vectorStore, embedder, cfg.RAG)
	builder := contextbuilder.New(cfg.RAG)

	return &app{
		cfg:          cfg,
		ingestSvc:    ingest.NewService(extract.NewFileExtractor(), embedder, vectorStore, tracker, cfg.RAG),
		orchestrator: rag.New(ret, builder, generator, cfg.RAG, cfg.ChatLLM.FallbackModel),
		tracker:      tracker,
		close:        closer,
	}, nil
}

func ingestFiles(ctx context.Context, a *app, user, paths string) {
	var files []ingest.UploadedFile
	for _, p := range strings.Split(paths, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			files = append(files, ingest.DiskFile{Path: p})
		}
	}
	printBatch(a.ingestSvc.UploadFiles(ctx, user, files))
}

func printBatch(res *ingest.BatchResult) {
	fmt.Println(res.Message)
	for _, f := range res.Files {
		if f.Err != nil {
			fmt.Printf("  %s: FAILED: %v\n", f.Filename, f.Err)
			continue
		}
		fmt.Printf("  %s: %d chunks, %d embeddings stored\n", f.Filename, f.Chunks, f.Embeddings)
	}
	if !res.Success {
		os.Exit(1)
	}
}

func ask(ctx context.Context, a *app, user, query string, stream bool) {
	req := models.GenerationRequest{Query: query, OwnerID: user}

	var res *models.GenerationResult
	if stream {
		fragments, terminal := a.orchestrator.QueryStream(ctx, req)
		for f := range fragments {
			fmt.Print(f)
		}
		fmt.Println()
		res = <-terminal
	} else {
		res = a.orchestrator.Query(ctx, req)
		fmt.Printf("%s\n", res.Response)
	}

	log.Info().
		Bool("success", res.Success).
		Str("model", res.ModelTier).
		Int("documents", res.Stats.DocCount).
		Float64("avg_score", res.Stats.AvgScore).
		Strs("sources", res.Stats.Sources).
		Msg("query finished")
	if res.Error != "" {
		log.Warn().Str("detail", res.Error).Msg("query degraded")
	}
}

func printSummary(ctx context.Context, a *app, user string) {
	summary, err := a.tracker.Summary(ctx, user)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading summary")
	}
	helper.PrettyPrint(summary)
}
