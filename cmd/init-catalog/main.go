package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"routing_gateway/internal/catalog"
	"routing_gateway/internal/config"
	"routing_gateway/internal/models"
	"routing_gateway/internal/storage"
)

// modelRepository is what both the postgres and sqlite model repositories offer
type modelRepository interface {
	List(ctx context.Context) ([]models.ModelDescriptor, error)
	Add(ctx context.Context, d models.ModelDescriptor) error
}

func main() {
	fmt.Println("Routing Gateway - Model Catalog Initialization")

	cfg, err := config.Load()
	if err != nil {
		fail("Failed to load configuration: %v", err)
	}
	if cfg.Catalog.FilePath == "" {
		fail("CATALOG_FILE must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := catalog.NewFileSource(cfg.Catalog.FilePath).Load(ctx)
	if err != nil {
		fail("Failed to read %s: %v", cfg.Catalog.FilePath, err)
	}
	if len(entries.Models) == 0 {
		fmt.Printf("No models found in %s, nothing to do\n", cfg.Catalog.FilePath)
		return
	}

	repo, closeFn, err := openRepository(ctx, cfg.Store)
	if err != nil {
		fail("%v", err)
	}
	defer closeFn()

	existing, err := repo.List(ctx)
	if err != nil {
		fail("Failed to list models: %v", err)
	}
	known := make(map[string]bool, len(existing))
	for _, d := range existing {
		known[d.Name()] = true
	}

	added := 0
	for _, d := range entries.Models {
		if known[d.Name()] {
			continue
		}
		if err := repo.Add(ctx, d); err != nil {
			fail("Failed to add %s: %v", d.Name(), err)
		}
		known[d.Name()] = true
		added++
		fmt.Printf("  + %s\n", d.Name())
	}

	fmt.Printf("Catalog seeded: %d added, %d already present\n", added, len(entries.Models)-added)
}

func openRepository(ctx context.Context, cfg config.StoreConfig) (modelRepository, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := storage.NewDB(storage.DBConfig{
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return storage.NewModelRepository(db), func() { db.Close() }, nil

	case config.BackendSQLite:
		gdb, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, err
		}
		return storage.NewSQLiteModelRepository(gdb), func() { sqlDB.Close() }, nil
	}
	return nil, nil, fmt.Errorf("STORE_BACKEND=%s has no models table to seed", cfg.Backend)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
	os.Exit(1)
}
