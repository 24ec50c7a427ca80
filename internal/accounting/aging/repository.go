package aging

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL backed open item source.
func NewRepository(db *pgxpool.Pool) Source {
	return &repository{db: db}
}

const (
	receivablesQuery = `SELECT i.id, i.number, i.customer_id, c.name, i.total::text, i.paid_amount::text, i.created_at, i.due_at
FROM ar_invoices i JOIN customers c ON c.id = i.customer_id
WHERE i.total > i.paid_amount`
	payablesQuery = `SELECT b.id, b.number, b.vendor_id, v.name, b.total::text, b.paid_amount::text, b.created_at, b.due_at
FROM ap_bills b JOIN vendors v ON v.id = b.vendor_id
WHERE b.total > b.paid_amount`
)

func (r *repository) OpenItems(ctx context.Context, kind Kind) ([]OpenItem, error) {
	query := receivablesQuery
	if kind == KindPayable {
		query = payablesQuery
	}
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OpenItem
	for rows.Next() {
		var (
			item        OpenItem
			total, paid string
		)
		if err := rows.Scan(&item.ID, &item.Number, &item.CounterpartyID, &item.CounterpartyName, &total, &paid, &item.CreatedAt, &item.DueAt); err != nil {
			return nil, err
		}
		if item.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("open item %s total: %w", item.Number, err)
		}
		if item.Paid, err = decimal.NewFromString(paid); err != nil {
			return nil, fmt.Errorf("open item %s paid: %w", item.Number, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
