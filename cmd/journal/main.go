// Command journal prints the most recent journaled orders as JSON lines.
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/larek-storefront/internal/journal"
	"github.com/xenking/larek-storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		limit       int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&limit, "limit", 20, "number of orders to print")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if limit <= 0 {
		slog.Error("limit must be positive", slog.Int("limit", limit))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, os.Stdout, databaseURL, limit); err != nil {
		slog.Error("journal failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, databaseURL string, limit int) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer pool.Close()

	entries, err := postgres.NewOrderJournal(pool).Recent(ctx, limit)
	if err != nil {
		return err
	}
	return writeEntries(out, entries)
}

func writeEntries(out io.Writer, entries []journal.Entry) error {
	w := bufio.NewWriter(out)
	var e jx.Encoder
	for _, entry := range entries {
		e.Reset()
		encodeEntry(&e, entry)
		e.Raw([]byte{'\n'})
		if _, err := w.Write(e.Bytes()); err != nil {
			return errors.Wrap(err, "write")
		}
	}
	return w.Flush()
}

func encodeEntry(e *jx.Encoder, entry journal.Entry) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(entry.ID)
	e.FieldStart("created_at")
	e.Str(entry.CreatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("payment")
	e.Str(string(entry.Payment))
	e.FieldStart("total")
	e.Num(jx.Num(entry.Total.String()))
	e.FieldStart("items")
	e.ArrStart()
	for _, id := range entry.Items {
		e.Str(id)
	}
	e.ArrEnd()
	e.ObjEnd()
}
