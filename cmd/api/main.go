package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	zlog "github.com/rs/zerolog/log"
	"github.com/seanblong/contextselect/internal/ai"
	"github.com/seanblong/contextselect/internal/analyzer"
	"github.com/seanblong/contextselect/internal/auth"
	"github.com/seanblong/contextselect/internal/cache"
	"github.com/seanblong/contextselect/internal/config"
	"github.com/seanblong/contextselect/internal/retrieval"
	"github.com/seanblong/contextselect/internal/selector"
	"github.com/seanblong/contextselect/internal/store"
	"github.com/seanblong/contextselect/pkg/models"
	"github.com/spf13/pflag"
)

// maxBodyBytes caps request bodies; questions are short.
const maxBodyBytes = 1 << 20

type questionRequest struct {
	Question string                   `json:"question"`
	Analysis *models.QuestionAnalysis `json:"analysis,omitempty"`
}

type selectResponse struct {
	models.SelectionResult
	Stats selector.Stats `json:"stats"`
}

type corpusRequest struct {
	DocumentID string `json:"documentId"`
}

type corpusResponse struct {
	DocumentID string `json:"documentId"`
	Chunks     int    `json:"chunks"`
}

func main() {
	fs := pflag.NewFlagSet("contextselect-api", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	zlog.Logger = logger
	zerolog.SetGlobalLevel(level)
	logger.Info().Str("provider", cfg.Provider).Str("log_level", cfg.LogLevel).Bool("auth_enabled", cfg.Auth.Enabled).Msg("starting contextselect api")

	clientConfig, err := cfg.AIClientConfig()
	if err != nil {
		log.Fatal(err)
	}

	auth.InitializeAuth(cfg.Auth.JwtSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, cfg.Auth.Enabled)

	ctx := context.Background()
	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	var client ai.Client
	if clientConfig.Provider != ai.ProviderStub {
		client, err = ai.NewClient(ctx, clientConfig)
		if err != nil {
			log.Fatalf("Failed to create AI client: %v", err)
		}
		logger.Info().Str("model", client.Model()).Msg("AI client initialized")
	} else {
		logger.Info().Msg("no AI provider configured, using rule-based question analysis")
	}

	var analysisCache analyzer.Cache
	if cfg.AnalysisCache != "" {
		ac, err := cache.Open(cfg.AnalysisCache)
		if err != nil {
			log.Fatalf("Failed to open analysis cache: %v", err)
		}
		defer func() {
			if err := ac.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close analysis cache")
			}
		}()
		analysisCache = ac
	}

	sel := selector.New(selector.WithTokenBudget(cfg.TokenBudget))
	svc := retrieval.NewService(analyzer.New(client, analysisCache), sel, st)

	if _, err := svc.LoadCorpus(ctx, ""); err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	mux.HandleFunc("/auth/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]bool{"enabled": auth.IsAuthEnabled()})
	})

	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeQuestion(w, r)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		writeJSON(w, svc.Analyze(ctx, req.Question))
	})

	mux.HandleFunc("/select", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		req, ok := decodeQuestion(w, r)
		if !ok {
			return
		}
		if req.Analysis != nil && (!req.Analysis.Category.Valid() || !req.Analysis.Complexity.Valid()) {
			http.Error(w, "invalid analysis category or complexity", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		res, stats := svc.Select(ctx, req.Question, req.Analysis)
		writeJSON(w, selectResponse{SelectionResult: res, Stats: stats})

		hlog.FromRequest(r).Info().Str("path", "/select").Int("chunks", len(res.Chunks)).Int("tokens", res.TotalTokens).Dur("dur", time.Since(start)).Msg("served")
	})

	mux.HandleFunc("/documents", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		docs, err := st.ListDocuments(ctx)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, docs)
	})

	mux.HandleFunc("/admin/corpus", auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req corpusRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		n, err := svc.LoadCorpus(ctx, strings.TrimSpace(req.DocumentID))
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if p := auth.GetPrincipalFromContext(r); p != nil {
			hlog.FromRequest(r).Info().Str("subject", p.Subject).Str("document", req.DocumentID).Msg("corpus reloaded")
		}
		doc, _ := svc.Corpus()
		writeJSON(w, corpusResponse{DocumentID: doc, Chunks: n})
	}))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	handler := corsHandler.Handler(
		hlog.NewHandler(logger)(
			hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
				logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
			})(mux),
		),
	)

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func decodeQuestion(w http.ResponseWriter, r *http.Request) (questionRequest, bool) {
	var req questionRequest
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "missing question", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", 500)
	}
}
