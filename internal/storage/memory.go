package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"bayesnet/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string][]byte)
	return nil
}

// SaveRun keeps the encoded form so callers never share result slices with
// the store.
func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.runs[run.ID] = payload
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	payload, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return model.RunRecord{}, false, nil
	}

	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, err
	}
	return run, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, payload := range s.runs {
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	sortNewestFirst(runs)
	return runs, nil
}

func (s *MemoryStore) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, id)
	return nil
}

func sortNewestFirst(runs []model.RunRecord) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC == runs[j].CreatedAtUTC {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
	})
}
