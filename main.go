package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trever9122/Inspection-app/condition"
	"github.com/trever9122/Inspection-app/config"
	"github.com/trever9122/Inspection-app/queue"
	"github.com/trever9122/Inspection-app/store"
	"github.com/trever9122/Inspection-app/vision"
)

const visionAttempts = 3

type server struct {
	cfg    config.Config
	st     *store.Store
	vocab  condition.Vocabulary
	source vision.Source
	q      *queue.Queue
	client *http.Client
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := ensureDirs(cfg.PhotosDir, cfg.WorkDir); err != nil {
		log.Fatalf("ensure dirs: %v", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer st.Close()

	client := &http.Client{Timeout: time.Duration(cfg.Vision.TimeoutSec) * time.Second}
	source, err := vision.NewSource(cfg, client)
	if err != nil {
		log.Fatalf("vision provider: %v", err)
	}

	vc := cfg.Vocabulary
	vocab := condition.NewVocabulary(vc.Negative, vc.Minor, vc.Ignored, vc.Positive)
	vocab.MinConfidence = vc.MinConfidence
	if cfg.Vision.MinConfidence > 0 {
		vocab.MinConfidence = cfg.Vision.MinConfidence
	}

	s := &server{
		cfg:    cfg,
		st:     st,
		vocab:  vocab,
		source: vision.WithRetries(source, visionAttempts),
		q:      queue.New(cfg.QueueSize, cfg.WorkerCount, time.Duration(cfg.JobTimeoutSec)*time.Second),
		client: client,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.q.Start(ctx)

	if cfg.EnableWatcher && cfg.InboxDir != "" {
		if err := os.MkdirAll(cfg.InboxDir, 0o755); err != nil {
			log.Fatalf("failed to ensure inbox: %v", err)
		}
		go s.watchInbox(ctx)
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTPPort,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		s.q.Stop(shutdownCtx)
	}()

	log.Printf("server listening on %s (provider=%s)", httpServer.Addr, s.source.Name())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

func ensureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSession)
	mux.HandleFunc("/photos/", s.handlePhotoFile)
	mux.HandleFunc("/ops/health", s.handleHealth)
	mux.HandleFunc("/ops/status", s.handleStatus)
	return mux
}
