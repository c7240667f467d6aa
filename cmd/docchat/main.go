package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docchat/internal/chat"
	"docchat/internal/config"
	"docchat/internal/doccache"
	"docchat/internal/docstore"
	"docchat/internal/embedding"
	"docchat/internal/extract"
	"docchat/internal/helper"
	"docchat/internal/ingest"
	"docchat/internal/llm"
	"docchat/internal/models"
	"docchat/internal/retrieval"
	"docchat/internal/storage"
	"docchat/internal/vectordb"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment as-is")
	}

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to a PDF document to ingest")
	query := flag.String("query", "", "Question to answer against the indexed documents")
	health := flag.Bool("health", false, "Check embedding and vector index connectivity")
	reloadCache := flag.Bool("reload-cache", false, "Reload the document cache from the metadata store and print it")
	save := flag.Bool("save", false, "Also store the raw file in object storage and register its metadata record")
	docID := flag.String("doc-id", "", "Document ID (UUID v4); generated when empty")
	userID := flag.String("user", "", "User ID to stamp on ingested chunks")
	area := flag.String("area", "", "Comma-separated area list")
	category := flag.String("category", "", "Comma-separated category filter values")
	source := flag.String("source", "", "Comma-separated source filter values")
	tags := flag.String("tags", "", "Comma-separated tag values")
	alias := flag.String("alias", "", "Human-readable alias for the document record")
	description := flag.String("description", "", "Description for the document record")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	switch {
	case *filePath != "" && *query != "":
		log.Fatal().Msg("Provide either -file or -query, not both")
	case *filePath != "":
		ingestFile(ctx, cfg, ingestRequest{
			path:        *filePath,
			documentID:  *docID,
			save:        *save,
			alias:       *alias,
			description: *description,
			meta: models.UploadMetadata{
				UserID:   *userID,
				Area:     splitCSV(*area),
				Category: splitCSV(*category),
				Source:   splitCSV(*source),
				Tags:     splitCSV(*tags),
			},
		})
	case *query != "":
		askQuestion(ctx, cfg, models.ChatMessage{
			UserID:   *userID,
			Message:  *query,
			Area:     splitCSV(*area),
			Category: splitCSV(*category),
			Source:   splitCSV(*source),
			Tags:     splitCSV(*tags),
		})
	case *health:
		checkHealth(ctx, cfg)
	case *reloadCache:
		printCache(ctx, cfg)
	default:
		log.Fatal().Msg("Provide -file, -query, -health or -reload-cache")
	}
}

type ingestRequest struct {
	path        string
	documentID  string
	save        bool
	alias       string
	description string
	meta        models.UploadMetadata
}

func ingestFile(ctx context.Context, cfg *config.Config, req ingestRequest) {
	documentID := req.documentID
	if documentID == "" {
		var err error
		documentID, err = helper.GenerateUUID()
		if err != nil {
			log.Fatal().Err(err).Msg("Error generating document ID")
		}
	} else if !helper.IsUUIDv4(documentID) {
		log.Fatal().Str("documentId", documentID).Msg("Document ID must be a version 4 UUID")
	}

	pages, err := extract.Pages(req.path)
	if err != nil {
		log.Fatal().Err(err).Str("file", req.path).Msg("Error extracting document text")
	}

	embedder, err := embedding.NewGenerator(&cfg.EmbedLLM, cfg.RAG.EmbedRate)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	index, err := vectordb.NewClient(&cfg.Vector, cfg.RAG.UpsertRate)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector index")
	}

	pipeline := ingest.NewPipeline(embedder, index, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	result, err := pipeline.Process(ctx, pages, filepath.Base(req.path), documentID, req.meta)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}

	fmt.Printf("Ingested %s as %s (%d chunks over %d pages)\n",
		result.Filename, result.DocumentID, result.ChunksProcessed, result.TotalPages)

	if req.save {
		saveOriginal(ctx, cfg, req, documentID)
	}
}

// saveOriginal pushes the raw file into object storage and registers
// its metadata record so the cache can serve signed download URLs.
func saveOriginal(ctx context.Context, cfg *config.Config, req ingestRequest, documentID string) {
	store, err := storage.NewMinioStore(ctx, &cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to object storage")
	}

	f, err := os.Open(req.path)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening file for upload")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading file info")
	}

	storagePath := documentID + "/" + filepath.Base(req.path)
	if err := store.Save(ctx, storagePath, f, info.Size(), "application/pdf"); err != nil {
		log.Fatal().Err(err).Msg("Error saving file to object storage")
	}

	db := docstore.ConnectDB(&cfg.Database)
	defer db.Close()

	records := docstore.NewStore(db, store, cfg.Storage.URLTTL.Std())
	if err := records.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error initializing document table")
	}

	record, err := records.Register(ctx, &docstore.Document{
		ID:           documentID,
		StoragePath:  storagePath,
		OriginalName: filepath.Base(req.path),
		FileSize:     info.Size(),
		ContentType:  "application/pdf",
		Alias:        req.alias,
		Description:  req.description,
		Area:         strings.Join(req.meta.Area, ","),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error registering document record")
	}
	log.Info().Str("documentId", record.ID).Str("signedUrl", record.SignedURL).Msg("Document record registered")
}

func askQuestion(ctx context.Context, cfg *config.Config, msg models.ChatMessage) {
	embedder, err := embedding.NewGenerator(&cfg.EmbedLLM, cfg.RAG.EmbedRate)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	index, err := vectordb.NewClient(&cfg.Vector, cfg.RAG.UpsertRate)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector index")
	}

	model, err := llm.NewClient(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM client")
	}

	cache := loadCache(ctx, cfg)

	orchestrator := retrieval.NewOrchestrator(embedder, index, model)
	service := chat.NewService(orchestrator, model, cache, cfg.RAG.SystemPrompt, cfg.RAG.TopK)

	response := service.ProcessMessage(ctx, msg)

	fmt.Printf("Question: %s\n\n", msg.Message)
	fmt.Printf("Answer: %s\n\n", response.Response)
	if response.ResumeQuestion != "" {
		fmt.Printf("Resume: %s\n\n", response.ResumeQuestion)
	}
	if len(response.Sources) > 0 {
		log.Info().Int("sources", len(response.Sources)).Msg("Sources")
		helper.PrettyPrint(response.Sources)
	}
}

// loadCache fills the document cache from the metadata store. Without
// a configured database the cache stays empty and sources simply carry
// no download URLs.
func loadCache(ctx context.Context, cfg *config.Config) *doccache.Cache {
	if cfg.Database.DSN == "" {
		log.Debug().Msg("No database configured, document cache stays empty")
		return doccache.New(nil)
	}

	var signer storage.Signer
	if cfg.Storage.Endpoint != "" {
		store, err := storage.NewMinioStore(ctx, &cfg.Storage)
		if err != nil {
			log.Warn().Err(err).Msg("Object storage unavailable, signed URLs will go stale")
		} else {
			signer = store
		}
	}

	db := docstore.ConnectDB(&cfg.Database)
	records := docstore.NewStore(db, signer, cfg.Storage.URLTTL.Std())
	cache := doccache.New(records)
	if err := cache.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Document cache load failed, continuing with empty cache")
	}
	return cache
}

func checkHealth(ctx context.Context, cfg *config.Config) {
	embedder, err := embedding.NewGenerator(&cfg.EmbedLLM, cfg.RAG.EmbedRate)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	index, err := vectordb.NewClient(&cfg.Vector, cfg.RAG.UpsertRate)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector index")
	}

	model, err := llm.NewClient(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM client")
	}

	status := retrieval.NewOrchestrator(embedder, index, model).HealthCheck(ctx)
	helper.PrettyPrint(status)
	if !status.Overall {
		os.Exit(1)
	}
}

func printCache(ctx context.Context, cfg *config.Config) {
	cache := loadCache(ctx, cfg)
	log.Info().Int("documents", cache.Len()).Msg("Document cache reloaded")
	helper.PrettyPrint(cache.List())
}

// splitCSV turns a comma-separated flag value into its trimmed
// non-empty parts.
func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
