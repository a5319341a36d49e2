// Command scoutdb manages and queries a SQL-resident full-text search
// index: migrate creates the schema, index/delete/flush maintain it, and
// search runs ranked queries.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/scoutdb/scoutdb/internal/document"
	"github.com/scoutdb/scoutdb/internal/engine"
	"github.com/scoutdb/scoutdb/internal/index"
	"github.com/scoutdb/scoutdb/internal/search"
	"github.com/scoutdb/scoutdb/pkg/config"
	"github.com/scoutdb/scoutdb/pkg/logger"
	"github.com/scoutdb/scoutdb/pkg/metrics"
)

const usage = `usage: scoutdb [-config path] <command> [arguments]

commands:
  migrate                      create the index table and its indexes
  index   -file docs.json      index documents from a JSON file (- for stdin)
  delete  -type t -id n        delete one document from the index
  flush   -type t              delete all documents of a type
  search  -type t -query q     run a ranked search
`

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			slog.Info("metrics endpoint listening", "addr", addr)
			if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
				slog.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	eng, err := engine.Open(cfg, m)
	if err != nil {
		slog.Error("failed to open engine", "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	command := flag.Arg(0)
	args := flag.Args()[1:]
	ctx = logger.WithOperationID(ctx, fmt.Sprintf("%s-%d", command, os.Getpid()))
	if err := run(ctx, eng, cfg, command, args); err != nil {
		slog.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, eng *engine.Engine, cfg *config.Config, command string, args []string) error {
	switch command {
	case "migrate":
		return index.EnsureSchema(ctx, eng.Client(), cfg.Index.TablePrefix)
	case "index":
		return runIndex(ctx, eng, args)
	case "delete":
		return runDelete(ctx, eng, args)
	case "flush":
		return runFlush(ctx, eng, args)
	case "search":
		return runSearch(ctx, eng, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runIndex(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	file := fs.String("file", "-", "JSON document file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	input := os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return fmt.Errorf("opening document file: %w", err)
		}
		defer f.Close()
		input = f
	}

	var payload []jsonDocument
	if err := json.NewDecoder(input).Decode(&payload); err != nil {
		return fmt.Errorf("decoding documents: %w", err)
	}

	docs := make([]document.Document, len(payload))
	for i, d := range payload {
		docs[i] = d.toDocument()
	}
	if err := eng.Update(ctx, docs...); err != nil {
		return err
	}
	slog.Info("documents indexed", "count", len(docs))
	return nil
}

func runDelete(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	documentType := fs.String("type", "", "document type")
	id := fs.Int64("id", 0, "document id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *documentType == "" {
		return fmt.Errorf("delete requires -type")
	}
	return eng.Delete(ctx, document.Ref{Type: *documentType, ID: *id})
}

func runFlush(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("flush", flag.ExitOnError)
	documentType := fs.String("type", "", "document type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *documentType == "" {
		return fmt.Errorf("flush requires -type")
	}
	return eng.Flush(ctx, *documentType)
}

func runSearch(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	documentType := fs.String("type", "", "document type")
	query := fs.String("query", "", "search query")
	page := fs.Int("page", 0, "page number (enables pagination)")
	pageSize := fs.Int("page-size", 0, "page size")
	limit := fs.Int("limit", 0, "result limit without pagination")
	filterJSON := fs.String("filters", "", "exact-match filters as JSON object")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *documentType == "" || *query == "" {
		return fmt.Errorf("search requires -type and -query")
	}

	opts := search.Options{Page: *page, PageSize: *pageSize, Limit: *limit}
	if *filterJSON != "" {
		if err := json.Unmarshal([]byte(*filterJSON), &opts.Filters); err != nil {
			return fmt.Errorf("parsing filters: %w", err)
		}
	}

	result, err := eng.Search(ctx, *documentType, *query, opts)
	if err != nil {
		return err
	}

	out := struct {
		Identifiers []int64 `json:"ids"`
		TotalHits   int     `json:"hits"`
	}{Identifiers: result.Identifiers, TotalHits: result.TotalHits}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// jsonDocument is the CLI's wire format for searchable documents. Each
// field is either {"text": …} or {"exact": …}.
type jsonDocument struct {
	Type   string               `json:"type"`
	ID     int64                `json:"id"`
	Fields map[string]jsonField `json:"fields"`
}

type jsonField struct {
	Text  *string         `json:"text"`
	Exact json.RawMessage `json:"exact"`
}

func (d jsonDocument) toDocument() document.Document {
	fields := make(map[string]document.FieldValue, len(d.Fields))
	for name, field := range d.Fields {
		switch {
		case field.Text != nil:
			fields[name] = document.FreeText(*field.Text)
		case len(field.Exact) > 0:
			var value any
			if err := json.Unmarshal(field.Exact, &value); err == nil {
				fields[name] = document.ExactValue{Value: value}
			}
		}
	}
	return document.MapDocument{Type: d.Type, ID: d.ID, Fields: fields}
}
