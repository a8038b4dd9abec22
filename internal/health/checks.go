package health

import (
	"context"
	"errors"

	"github.com/tastycandy/rlmtrans/pkg/provider/embeddings"
	"github.com/tastycandy/rlmtrans/pkg/provider/llm"
)

// LLMChecker builds a [Checker] that reports unhealthy when gateway cannot
// reach its backend.
func LLMChecker(name string, gateway llm.Gateway) Checker {
	return Checker{
		Name: name,
		Check: func(ctx context.Context) error {
			if !gateway.TestConnection(ctx) {
				return errors.New("llm gateway: connection test failed")
			}
			return nil
		},
	}
}

// EmbeddingsChecker builds a [Checker] that reports unhealthy when provider
// cannot embed a short probe string.
func EmbeddingsChecker(name string, provider embeddings.Provider) Checker {
	return Checker{
		Name: name,
		Check: func(ctx context.Context) error {
			_, err := provider.Embed(ctx, "healthcheck")
			return err
		},
	}
}

// Pinger is satisfied by a database connection pool's health-check method
// (e.g. *pgxpool.Pool.Ping), kept minimal so this package does not import
// pgx directly.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker builds a [Checker] over a project-memory store's connection
// pool.
func StoreChecker(name string, pool Pinger) Checker {
	return Checker{
		Name:  name,
		Check: pool.Ping,
	}
}
