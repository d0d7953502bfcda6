package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/product"
)

// StockLowScanJob sweeps product rows and reports those running low.
type StockLowScanJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewStockLowScanJob initialises the low stock sweep handler.
func NewStockLowScanJob(pool *pgxpool.Pool, logger *slog.Logger) *StockLowScanJob {
	return &StockLowScanJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the low stock sweep.
func (j *StockLowScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("stock low scan: handler not configured")
	}
	var payload StockLowScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	start := j.clock()

	q := `SELECT owner_id, id, name, quantity FROM products WHERE quantity < $1`
	args := []interface{}{product.LowStockThreshold}
	if payload.OwnerID > 0 {
		q += ` AND owner_id = $2`
		args = append(args, payload.OwnerID)
	}
	q += ` ORDER BY owner_id, quantity ASC`

	rows, err := j.Pool.Query(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("stock low scan: %w", err)
	}
	defer rows.Close()

	found := 0
	for rows.Next() {
		var (
			ownerID, id, quantity int64
			name                  string
		)
		if err := rows.Scan(&ownerID, &id, &name, &quantity); err != nil {
			return fmt.Errorf("stock low scan: scan row: %w", err)
		}
		found++
		j.Logger.Warn("low stock",
			slog.Int64("owner", ownerID),
			slog.Int64("product", id),
			slog.String("name", name),
			slog.Int64("quantity", quantity))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("stock low scan: %w", err)
	}

	j.Logger.Info("stock low scan finished",
		slog.Int("flagged", found),
		slog.Int64("owner", payload.OwnerID),
		slog.Duration("took", j.clock().Sub(start)))
	return nil
}
