// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/virion-labs/onboardflow/pkg/persistence"
	"github.com/virion-labs/onboardflow/pkg/persistence/file"
	"github.com/virion-labs/onboardflow/pkg/persistence/postgresql"
)

// NewPersistence selects the store implementation from the database URL
// scheme: postgres URLs get the PostgreSQL store, anything else falls
// back to the JSON file store for local development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "file"
	}
}
