package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/config"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/storage/postgres"
)

var purgeDeadCmd = &cobra.Command{
	Use:   "purge-dead",
	Short: "Delete dead-lettered sync queue items after inspection",
	Run:   runPurgeDead,
}

func init() {
	rootCmd.AddCommand(purgeDeadCmd)
}

func runPurgeDead(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	repo := postgres.NewQueueRepo(db)
	n, err := repo.PurgeDead(ctx)
	if err != nil {
		slog.Error("Failed to purge dead letters", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Purged %d dead items\n", n)
}
