package runner

import (
	"context"
	"fmt"

	"github.com/ridoystarlord/redatlas/database"
	"github.com/ridoystarlord/redatlas/schema"
)

// HistoryFilter narrows History. Zero values mean no restriction.
type HistoryFilter struct {
	Limit  int
	Status string
	Mode   string
}

// History returns recorded runs, newest first.
func History(ctx context.Context, db *database.DB, f HistoryFilter) ([]schema.IngestRun, error) {
	if !db.Migrator().HasTable(&schema.IngestRun{}) {
		return nil, nil
	}
	q := db.WithContext(ctx).Model(&schema.IngestRun{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Mode != "" {
		q = q.Where("mode = ?", f.Mode)
	}
	q = q.Order("id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var runs []schema.IngestRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("query ingest history: %w", err)
	}
	return runs, nil
}

// Logs returns ingest activity lines, newest first.
func Logs(ctx context.Context, db *database.DB, limit int) ([]schema.IngestLog, error) {
	if !db.Migrator().HasTable(&schema.IngestLog{}) {
		return nil, nil
	}
	q := db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var logs []schema.IngestLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("query ingest logs: %w", err)
	}
	return logs, nil
}

// Report summarizes the store for the status command.
type Report struct {
	Tables  []database.TableCount
	LastRun *schema.IngestRun
	Failed  int64
}

// Status reports table sizes, the newest run of any status and how many
// runs have failed.
func Status(ctx context.Context, db *database.DB) (*Report, error) {
	counts, err := db.Counts(ctx)
	if err != nil {
		return nil, err
	}
	rep := &Report{Tables: counts}
	if !db.Migrator().HasTable(&schema.IngestRun{}) {
		return rep, nil
	}
	runs, err := History(ctx, db, HistoryFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 {
		rep.LastRun = &runs[0]
	}
	if err := db.WithContext(ctx).Model(&schema.IngestRun{}).
		Where("status = ?", schema.StatusFailed).Count(&rep.Failed).Error; err != nil {
		return nil, fmt.Errorf("counting failed runs: %w", err)
	}
	return rep, nil
}
