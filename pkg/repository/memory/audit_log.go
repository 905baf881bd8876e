package memory

import (
	"context"
	"sync"
	"time"

	"github.com/example/shopfront/pkg/repository"
	"github.com/google/uuid"
)

type AuditLogMemory struct {
	mu   sync.Mutex
	logs []*repository.AuditLog
}

func NewAuditLogMemory() *AuditLogMemory {
	return &AuditLogMemory{}
}

func (r *AuditLogMemory) CreateAuditLog(ctx context.Context, log *repository.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := *log
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.CreatedAt = time.Now()
	r.logs = append(r.logs, &entry)
	return nil
}

// GetAuditLogs returns the newest entries for entityID first.
func (r *AuditLogMemory) GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*repository.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*repository.AuditLog
	for i := len(r.logs) - 1; i >= 0 && (limit <= 0 || int64(len(out)) < limit); i-- {
		if r.logs[i].EntityID == entityID {
			entry := *r.logs[i]
			out = append(out, &entry)
		}
	}
	return out, nil
}
