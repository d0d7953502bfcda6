package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockLowScan sweeps product quantities for low stock.
	TaskStockLowScan = "stock:lowscan"
	// TaskDashboardWarmup pre-populates dashboard snapshot caches.
	TaskDashboardWarmup = "dashboard:warmup"
)

// StockLowScanPayload scopes a low stock sweep. OwnerID zero scans every
// owner, non-zero scans one owner right after their stock changed.
type StockLowScanPayload struct {
	OwnerID      int64     `json:"owner_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewStockLowScanTask constructs an Asynq task for a low stock sweep.
func NewStockLowScanTask(payload StockLowScanPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockLowScan, body, asynq.Queue(QueueDefault)), nil
}

// DashboardWarmupPayload targets one owner's dashboard cache.
type DashboardWarmupPayload struct {
	OwnerID int64 `json:"owner_id"`
	Year    int   `json:"year,omitempty"`
}

// NewDashboardWarmupTask constructs an Asynq task for cache warmup.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, body, asynq.Queue(QueueDefault)), nil
}
