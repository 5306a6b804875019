package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"concierge-backend/internal/audit"
	"concierge-backend/internal/config"
	"concierge-backend/internal/dedupe"
	"concierge-backend/internal/events"
	"concierge-backend/internal/httpapi"
	"concierge-backend/internal/mail"
	"concierge-backend/internal/optout"
	"concierge-backend/internal/pipeline"
	"concierge-backend/internal/queue"
	"concierge-backend/internal/search"
	"concierge-backend/internal/sigv4"
	"concierge-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// redis/go-redis/v9: one client, safe for concurrent use, shared by the
	// queue, detail store, opt-out list and delivery guard.
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	consumer, err := os.Hostname()
	if err != nil || consumer == "" {
		consumer = "concierge-" + uuid.NewString()[:8]
	}

	q := queue.NewStream(rdb, cfg.QueueStream, cfg.QueueGroup, consumer, cfg.VisibilityTimeout)
	if err := q.EnsureGroup(ctx); err != nil {
		log.Fatalf("startup: %v", err)
	}

	guard := dedupe.NewGuard(rdb)
	guard.Init(ctx)

	sampler := search.NewClient(cfg.OSEndpoint, cfg.OSIndex, cfg.Region, sigv4.Credentials{
		AccessKeyID:     cfg.OSAccessKey,
		SecretAccessKey: cfg.OSSecretKey,
	})
	fetcher := store.NewFetcher(rdb, cfg.StoreTable)
	sender := mail.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	publisher := events.NewPublisher(cfg.KafkaBroker)
	defer publisher.Close()
	discards := audit.NewStore(cfg.DiscardDir)
	suppression := optout.NewService(rdb)

	worker := pipeline.NewWorker(pipeline.Deps{
		Queue:    q,
		Sampler:  sampler,
		Fetcher:  fetcher,
		Sender:   sender,
		Guard:    guard,
		Events:   publisher,
		Discards: discards,
	}, cfg.NumResults)

	// robfig/cron/v3: periodic drain, standing in for the scheduler that
	// triggered the original worker.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.DrainSchedule, func() {
		n, err := worker.Drain(context.Background())
		if err != nil {
			log.Printf("drain: %v", err)
			return
		}
		if n > 0 {
			log.Printf("drain: processed %d message(s)", n)
		}
	}); err != nil {
		log.Fatalf("startup: bad DRAIN_SCHEDULE %q: %v", cfg.DrainSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := mux.NewRouter()
	httpapi.NewServer(q, worker, suppression, discards, cfg.AllowedCuisines).RegisterRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down...")
		cancel()
		_ = server.Shutdown(context.Background())
	}()

	log.Printf("concierge worker listening on %s (queue=%s group=%s)", cfg.HTTPAddr, cfg.QueueStream, cfg.QueueGroup)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
