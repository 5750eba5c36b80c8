package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/alumnity/alumnity/internal/config"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/postgres"
)

func init() {
	time.Local = time.UTC
}

// Applies the SQL files under the migrations directory in lexical
// order. Files are expected to be idempotent (CREATE TABLE IF NOT
// EXISTS and friends), so reapplying the full set is safe.
func main() {
	dir := flag.String("dir", "migrations", "directory containing .sql migration files")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		panic(err)
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		log.Fatalf("failed to list migrations: %v", err)
	}
	sort.Strings(files)

	ctx := context.Background()
	for _, file := range files {
		contents, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", file, err)
		}
		if _, err := db.ExecContext(ctx, string(contents)); err != nil {
			log.Fatalf("failed to apply %s: %v", file, err)
		}
		log.Infow("applied migration", "file", file)
	}

	log.Infof("applied %d migration files", len(files))
}
