package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"preflight/internal/cache"
	"preflight/internal/config"
	"preflight/internal/logger"
	"preflight/internal/model"
	"preflight/internal/repository"
	"preflight/internal/seed"
	"preflight/internal/service"
)

var (
	dir     string
	timeout time.Duration
	verbose bool

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Manage the PreFlight question catalog",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		mode := cfg.LogMode
		if !verbose {
			mode = "production"
		}
		var err error
		log, err = logger.New(mode)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse and validate catalog files without writing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		questions, err := load()
		if err != nil {
			return err
		}
		for _, q := range questions {
			fmt.Fprintf(cmd.OutOrStdout(), "%3d  %-28s %s\n", q.Index, q.ID, q.Type)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d questions OK\n", len(questions))
		return nil
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replace the stored catalog with the questions under --dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		questions, err := load()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		defer client.Disconnect(context.Background())

		// The server caches the catalog; drop it when Redis is reachable.
		var catalogCache cache.CatalogCache
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, cached catalog will expire on its own", "error", err)
		} else {
			catalogCache = cache.NewCatalogCache(rdb, cfg.CatalogCacheTTL)
		}

		svc := service.NewCatalogService(repository.NewQuestionRepo(client.Database(cfg.MongoDB)), catalogCache, log)
		if err := svc.Replace(ctx, questions); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d questions into %s\n", len(questions), cfg.MongoDB)
		return nil
	},
}

func load() ([]model.QuestionDefinition, error) {
	questions, err := seed.LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no question files found under %s", dir)
	}
	normalized, err := service.NormalizeCatalog(questions)
	if err != nil {
		return nil, err
	}
	log.Debug("catalog parsed", "dir", dir, "questions", len(normalized))
	return normalized, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dir, "dir", "d", "specs/questions", "directory of question files (.md front matter, .yaml, .yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging")
	loadCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout for database writes")

	rootCmd.AddCommand(checkCmd, loadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
