package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/wolfman30/quickie-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/quickie-platform/internal/config"
	"github.com/wolfman30/quickie-platform/internal/gateway"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

// seedOrder inserts referenced tables first.
var seedOrder = []string{
	gateway.TableCategories,
	gateway.TableServices,
	gateway.TableBranches,
	gateway.TableProducts,
	gateway.TableGallery,
	gateway.TableTestimonials,
	gateway.TableBlogPosts,
}

// Document maps a table name to the rows to insert.
type Document map[string][]gateway.Row

type inserter interface {
	Insert(ctx context.Context, table string, record gateway.Row) (gateway.Row, error)
}

// Result counts what happened per table.
type Result struct {
	Inserted map[string]int
	Skipped  map[string]int
}

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if len(os.Args) < 2 {
		fmt.Println("Usage: seed <seed-file.json>")
		fmt.Println("Example: seed testdata/seed.json")
		os.Exit(1)
	}

	doc, err := loadDocument(os.Args[1])
	if err != nil {
		logger.Error("failed to read seed file", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	pool, err := bootstrap.BuildPool(ctx, cfg)
	if err != nil || pool == nil {
		logger.Error("seed requires a reachable DATABASE_URL", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	res, err := seed(ctx, gateway.NewPostgresStore(pool), doc, logger)
	if err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete", "inserted", res.Inserted, "skipped", res.Skipped)
}

func loadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for table := range doc {
		if !gateway.KnownTable(table) {
			return nil, fmt.Errorf("unknown table %q", table)
		}
	}
	return doc, nil
}

// seed inserts doc in dependency order. Rows that already exist are skipped so
// the command can be re-run.
func seed(ctx context.Context, rows inserter, doc Document, logger *logging.Logger) (*Result, error) {
	res := &Result{Inserted: map[string]int{}, Skipped: map[string]int{}}
	for _, table := range seedOrder {
		for _, row := range doc[table] {
			_, err := rows.Insert(ctx, table, row)
			switch {
			case err == nil:
				res.Inserted[table]++
			case gateway.IsCode(err, gateway.CodeUniqueViolation):
				res.Skipped[table]++
				logger.Debug("row already present", "table", table, "id", row["id"])
			default:
				return res, fmt.Errorf("insert into %s: %w", table, err)
			}
		}
	}
	return res, nil
}
