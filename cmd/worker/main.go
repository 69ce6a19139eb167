package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"

	"example.com/gamification/internal/config"
	"example.com/gamification/internal/consumer"
	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/notify"
	"example.com/gamification/internal/outbox"
	persistence "example.com/gamification/internal/persistence/postgres"
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

	var sink domain.NotificationSink
	switch cfg.NotificationSink {
	case config.SinkKafka:
		writer := notify.NewTopicWriter(cfg.KafkaBrokers, cfg.NotificationTopic)
		defer writer.Close()
		sink = notify.NewKafkaSink(writer)
		log.Printf("badge notifications -> kafka topic %s", cfg.NotificationTopic)
	default:
		sink = notify.NewLogSink(nil)
	}

	awarder := domain.NewAwarder(repo.Badges(), repo.Awards(), repo, sink,
		domain.WithConcurrency(cfg.AwardConcurrency))
	service := domain.NewService(repo, awarder)

	router := consumer.NewRouter().
		Route(consumer.EventActivityCreated, consumer.NewActivityHandler(service, nil)).
		Fallback(consumer.NewAuditHandler(pool))

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
	dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	opsSrv := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.MetricsAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, httptransport.NewOpsHandler(pool))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httptransport.Serve(ctx, opsSrv); err != nil {
			log.Printf("ops server error: %v", err)
		}
	}()

	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})

		proc := consumer.NewProcessor(reader, router, consumer.WithBackoff(250*time.Millisecond, 30*time.Second))

		wg.Add(1)
		go func(topic string, r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			log.Printf("consumer started (topic=%s, group=%s)", topic, cfg.ConsumerGroupID)
			if err := proc.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("consumer stopped with error (topic=%s): %v", topic, err)
			}
		}(topic, reader)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Println("worker shutdown requested")
	cancel()

	wg.Wait()
	dispatcher.Wait()
}
