package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/larek-storefront/internal/domain/order"
	"github.com/xenking/larek-storefront/internal/journal"
)

var _ journal.Store = (*OrderJournal)(nil)

// OrderJournal implements journal.Store backed by PostgreSQL.
type OrderJournal struct {
	pool *pgxpool.Pool
}

// NewOrderJournal returns an OrderJournal that uses the given pool.
func NewOrderJournal(pool *pgxpool.Pool) *OrderJournal {
	return &OrderJournal{pool: pool}
}

const insertOrder = `
INSERT INTO orders (id, items, total, payment, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`

// Record stores e. Recording the same order id twice is a no-op.
func (j *OrderJournal) Record(ctx context.Context, e journal.Entry) error {
	if _, err := j.pool.Exec(ctx, insertOrder,
		e.ID, encodeItems(e.Items), e.Total, string(e.Payment), e.CreatedAt,
	); err != nil {
		return errors.Wrapf(err, "insert order %q", e.ID)
	}
	return nil
}

const selectRecent = `
SELECT id, items, total, payment, created_at
FROM orders
ORDER BY created_at DESC, id
LIMIT $1`

// Recent returns up to limit entries, newest first.
func (j *OrderJournal) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	rows, err := j.pool.Query(ctx, selectRecent, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (journal.Entry, error) {
		var (
			e       journal.Entry
			items   []byte
			payment string
		)
		if err := row.Scan(&e.ID, &items, &e.Total, &payment, &e.CreatedAt); err != nil {
			return e, err
		}
		e.Payment = order.Payment(payment)
		e.Items, err = decodeItems(items)
		return e, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	return entries, nil
}

func encodeItems(items []string) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ArrStart()
	for _, id := range items {
		e.Str(id)
	}
	e.ArrEnd()
	return append([]byte(nil), e.Bytes()...)
}

func decodeItems(data []byte) ([]string, error) {
	items := []string{}
	if err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		v, err := d.Str()
		items = append(items, v)
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "decode items")
	}
	return items, nil
}
