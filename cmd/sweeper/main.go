package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/gamification/internal/config"
	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/notify"
	persistence "example.com/gamification/internal/persistence/postgres"
	"example.com/gamification/internal/sweep"
	httptransport "example.com/gamification/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)

	var sink domain.NotificationSink = notify.NewLogSink(nil)
	if cfg.NotificationSink == config.SinkKafka {
		writer := notify.NewTopicWriter(cfg.KafkaBrokers, cfg.NotificationTopic)
		defer writer.Close()
		sink = notify.NewKafkaSink(writer)
	}

	awarder := domain.NewAwarder(repo.Badges(), repo.Awards(), repo, sink,
		domain.WithConcurrency(cfg.AwardConcurrency))
	service := domain.NewService(repo, awarder)
	sweeper := sweep.New(repo, service, sweep.WithLookback(cfg.SweepLookback))

	opsSrv := httptransport.NewServer(httptransport.ServerConfig{
		Address:     cfg.MetricsAddress,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}, httptransport.NewOpsHandler(pool))
	go func() {
		if err := httptransport.Serve(ctx, opsSrv); err != nil {
			log.Printf("ops server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Println("sweeper received shutdown signal")
		cancel()
	}()

	if err := sweeper.Run(ctx, cfg.SweepSchedule); err != nil && err != context.Canceled {
		log.Fatalf("sweeper stopped: %v", err)
	}
}
