package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/seed"

	"go.uber.org/zap"
)

func main() {
	reset := flag.Bool("reset", false, "delete every existing product before inserting the catalog")
	flag.Parse()

	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	ctx := context.Background()

	entries, err := seed.Catalog()
	if err != nil {
		log.Fatal("Invalid seed catalog", zap.Error(err))
	}

	dbService, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbService.Close()

	if err := database.RunMigrations(dbService.DB(), log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	result, err := seed.Run(ctx, dbService.DB(), entries, seed.Options{Reset: *reset}, log)
	if err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}

	log.Info("Catalog seeded",
		zap.Int("inserted", result.Inserted),
		zap.Int64("deleted", result.Deleted),
	)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tPRODUCTS")
	for _, summary := range result.Distribution {
		fmt.Fprintf(w, "%s\t%d\n", summary.Category, summary.Count)
	}
	w.Flush()
}
