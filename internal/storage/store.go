package storage

import (
	"context"

	"bayesnet/internal/model"
)

// Store defines transaction-like persistence operations for inference runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns every stored run, newest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	DeleteRun(ctx context.Context, id string) error
}
