package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/gamification/internal/config"
	"example.com/gamification/internal/domain"
	persistence "example.com/gamification/internal/persistence/postgres"
	"example.com/gamification/internal/seed"
)

func main() {
	path := flag.String("file", "db/seed/badges.yaml", "badge seed file")
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	inputs, err := seed.LoadFile(*path)
	if err != nil {
		log.Fatalf("failed to load %s: %v", *path, err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	catalog := domain.NewBadgeCatalog(persistence.NewRepository(pool).Badges())
	applied, err := seed.Apply(ctx, catalog, inputs, nil)
	if err != nil {
		log.Printf("badge seed finished with errors: %v", err)
	}
	log.Printf("seeded %d of %d badges from %s", applied, len(inputs), *path)
	if err != nil {
		pool.Close()
		log.Fatal("badge seed incomplete")
	}
}
