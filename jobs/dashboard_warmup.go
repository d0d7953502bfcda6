package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/dashboard"
)

// DashboardWarmupJob pre-populates dashboard snapshot caches so the first
// request after an invalidation does not pay the aggregation cost.
type DashboardWarmupJob struct {
	Dashboard *dashboard.Service
	Pool      *pgxpool.Pool
	Logger    *slog.Logger
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(svc *dashboard.Service, pool *pgxpool.Pool, logger *slog.Logger) *DashboardWarmupJob {
	return &DashboardWarmupJob{Dashboard: svc, Pool: pool, Logger: logger}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	owners, err := j.owners(ctx, payload.OwnerID)
	if err != nil {
		return err
	}
	for _, ownerID := range owners {
		filters := dashboard.Filters{Year: payload.Year}
		if _, err := j.Dashboard.Build(ctx, ownerID, filters); err != nil {
			j.Logger.Warn("dashboard warmup", slog.Any("error", err), slog.Int64("owner", ownerID))
			continue
		}
	}
	j.Logger.Info("dashboard warmup finished", slog.Int("owners", len(owners)))
	return nil
}

func (j *DashboardWarmupJob) owners(ctx context.Context, ownerID int64) ([]int64, error) {
	if ownerID > 0 {
		return []int64{ownerID}, nil
	}
	rows, err := j.Pool.Query(ctx, `SELECT DISTINCT owner_id FROM products ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("dashboard warmup: list owners: %w", err)
	}
	defer rows.Close()

	owners := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("dashboard warmup: scan owner: %w", err)
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}
