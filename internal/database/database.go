package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
)

// Service wraps the postgres pool behind the handful of operations the
// server needs.
type Service interface {
	// Health returns a status map served on the /health route.
	Health() map[string]string
	// Pool exposes the underlying connection pool for query execution.
	Pool() *pgxpool.Pool
	// Close terminates all pool connections.
	Close()
}

type service struct {
	pool *pgxpool.Pool
}

var (
	dbInstance *service

	databaseURL = os.Getenv("DATABASE_URL")
)

func New() Service {
	// Reuse connection
	if dbInstance != nil {
		return dbInstance
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v", err)
	}

	dbInstance = &service{pool: pool}
	return dbInstance
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	poolStats := s.pool.Stat()
	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["total_connections"] = fmt.Sprintf("%d", poolStats.TotalConns())
	stats["idle_connections"] = fmt.Sprintf("%d", poolStats.IdleConns())
	stats["acquired_connections"] = fmt.Sprintf("%d", poolStats.AcquiredConns())

	return stats
}

func (s *service) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *service) Close() {
	log.Println("Disconnecting from database")
	s.pool.Close()
}
