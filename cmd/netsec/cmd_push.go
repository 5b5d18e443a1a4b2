package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"netsecml/pkg/data"
	"netsecml/pkg/source"
)

var pushFlags struct {
	file       string
	database   string
	collection string
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Load a feature CSV into the MongoDB collection ingestion reads from",
	RunE:  runPush,
}

func init() {
	f := pushCmd.Flags()
	f.StringVarP(&pushFlags.file, "file", "f", "", "Feature CSV (required)")
	f.StringVar(&pushFlags.database, "database", "", "Database (default from config)")
	f.StringVar(&pushFlags.collection, "collection", "", "Collection (default from config)")
	_ = pushCmd.MarkFlagRequired("file")
}

func runPush(cmd *cobra.Command, _ []string) error {
	settings, env, err := loadSettings()
	if err != nil {
		return err
	}
	if env.MongoURI == "" {
		return errors.New("MONGODB_URI is not set")
	}
	db, coll := pushFlags.database, pushFlags.collection
	if db == "" {
		db = settings.Ingestion.Database
	}
	if coll == "" {
		coll = settings.Ingestion.Collection
	}

	t, err := data.ReadCSV(pushFlags.file)
	if err != nil {
		return err
	}
	if t.Len() == 0 {
		return fmt.Errorf("%s: %w", pushFlags.file, source.ErrEmpty)
	}

	ctx := cmd.Context()
	m, err := source.NewMongoSource(ctx, env.MongoURI, db, coll)
	if err != nil {
		return err
	}
	defer m.Close(ctx)

	n, err := m.Push(ctx, t)
	if err != nil {
		return err
	}
	logger.Info("Inserted records", zap.Int("count", n), zap.String("database", db), zap.String("collection", coll))
	fmt.Fprintln(cmd.OutOrStdout(), n)
	return nil
}
