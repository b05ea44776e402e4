package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"goalfin/internal/config"
	"goalfin/internal/core"
	applog "goalfin/internal/log"
	"goalfin/internal/services"
	"goalfin/internal/storage"
)

const usage = `Usage: history-seeder <command> [args]

Commands:
  seed [userID] [days]    backfill historical snapshots (all users when
                          no userID is given; users that already have
                          snapshots are skipped)
  clear <userID>          delete all snapshots of one user
  reseed <userID> [days]  clear and seed again
`

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.LevelFromEnv(),
		Component: "history-seeder",
	})
	applog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	analytics := services.NewAnalyticsService(repo, nil, nil)
	ctx := context.Background()

	switch os.Args[1] {
	case "seed":
		userID := argAt(2, "")
		days := parseDays(argAt(3, ""), cfg.HistoryDays)
		if userID != "" {
			if err := seedOne(ctx, repo, analytics, userID, days, false); err != nil {
				logger.Error("Seeding failed", "user_id", userID, "error", err)
				os.Exit(1)
			}
			return
		}
		if err := seedAll(ctx, repo, analytics, days, logger); err != nil {
			os.Exit(1)
		}

	case "clear":
		userID := argAt(2, "")
		if userID == "" {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		removed, err := analytics.ClearHistory(ctx, userID)
		if err != nil {
			logger.Error("Clearing failed", "user_id", userID, "error", err)
			os.Exit(1)
		}
		logger.Info("History cleared", "user_id", userID, "removed", removed)

	case "reseed":
		userID := argAt(2, "")
		if userID == "" {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		days := parseDays(argAt(3, ""), cfg.HistoryDays)
		if _, err := analytics.ClearHistory(ctx, userID); err != nil {
			logger.Error("Clearing failed", "user_id", userID, "error", err)
			os.Exit(1)
		}
		if err := seedOne(ctx, repo, analytics, userID, days, false); err != nil {
			logger.Error("Seeding failed", "user_id", userID, "error", err)
			os.Exit(1)
		}

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

// seedOne backfills one user. With skipExisting set, users that already
// have any snapshot are left alone.
func seedOne(ctx context.Context, repo *storage.SQLiteRepository, analytics *services.AnalyticsService, userID string, days int, skipExisting bool) error {
	if skipExisting {
		existing, err := repo.FindSnapshots(ctx, core.SnapshotFilter{UserID: userID, Limit: 1})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			slog.Info("User already has snapshots, skipping", "user_id", userID)
			return nil
		}
	}

	created, err := analytics.SeedHistory(ctx, userID, days)
	if err != nil {
		return err
	}
	fmt.Printf("user %s: %d snapshots created\n", userID, len(created))
	return nil
}

func seedAll(ctx context.Context, repo *storage.SQLiteRepository, analytics *services.AnalyticsService, days int, logger *applog.Logger) error {
	userIDs, err := repo.UserIDs(ctx)
	if err != nil {
		logger.Error("Failed to list users", "error", err)
		return err
	}
	if len(userIDs) == 0 {
		logger.Info("No users to seed")
		return nil
	}

	failed := 0
	for _, userID := range userIDs {
		if err := seedOne(ctx, repo, analytics, userID, days, true); err != nil {
			logger.Error("Seeding failed", "user_id", userID, "error", err)
			failed++
		}
	}
	logger.Info("Seeding run finished", "users", len(userIDs), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d users failed", failed)
	}
	return nil
}

func argAt(i int, fallback string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return fallback
}

func parseDays(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > 730 {
		fmt.Fprintf(os.Stderr, "invalid day count %q, using %d\n", raw, fallback)
		return fallback
	}
	return days
}
