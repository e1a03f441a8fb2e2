package tcp

import (
	"context"
	"errors"
	"sync"

	"lecturehub/internal/progress"
	"lecturehub/internal/shared"
)

type memHot struct {
	mu      sync.Mutex
	records map[string]shared.Progress
	failGet bool
	closed  bool
}

func newMemHot() *memHot { return &memHot{records: map[string]shared.Progress{}} }

func (m *memHot) Mutate(ctx context.Context, userID, videoID string, fn MergeFunc, seed SeedFunc) (shared.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "/" + videoID
	var existing *shared.Progress
	if p, ok := m.records[key]; ok {
		existing = &p
	} else if seed != nil {
		s, err := seed(ctx)
		if err != nil {
			return shared.Progress{}, err
		}
		existing = s
	}
	merged := fn(existing)
	m.records[key] = merged
	return merged, nil
}

func (m *memHot) Get(_ context.Context, userID, videoID string) (*shared.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errors.New("redis down")
	}
	if p, ok := m.records[userID+"/"+videoID]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *memHot) Put(ctx context.Context, p shared.Progress) error {
	_, err := m.Mutate(ctx, p.UserID, p.VideoID, func(existing *shared.Progress) shared.Progress {
		if existing != nil {
			return *existing
		}
		return p
	}, nil)
	return err
}

func (m *memHot) ListUser(_ context.Context, userID string) ([]shared.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []shared.Progress
	for _, p := range m.records {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memHot) Invalidate(_ context.Context, userID, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, userID+"/"+videoID)
	return nil
}

func (m *memHot) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memDurable struct {
	mu       sync.Mutex
	records  map[string]shared.Progress
	batches  [][]shared.Progress
	upserts  int
	failNext bool
	closed   bool
}

func newMemDurable() *memDurable { return &memDurable{records: map[string]shared.Progress{}} }

func (m *memDurable) Upsert(_ context.Context, p shared.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	m.apply(p)
	return nil
}

func (m *memDurable) BatchUpsert(_ context.Context, batch []shared.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("postgres down")
	}
	m.batches = append(m.batches, append([]shared.Progress(nil), batch...))
	for _, p := range batch {
		m.apply(p)
	}
	return nil
}

// apply merges like upsertSQL; callers hold m.mu.
func (m *memDurable) apply(p shared.Progress) {
	key := p.UserID + "/" + p.VideoID
	var stored *shared.Progress
	if s, ok := m.records[key]; ok {
		stored = &s
	}
	m.records[key] = progress.Reconcile(stored, p)
}

func (m *memDurable) Get(_ context.Context, userID, videoID string) (*shared.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.records[userID+"/"+videoID]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *memDurable) ListUser(_ context.Context, userID string) ([]shared.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []shared.Progress
	for _, p := range m.records {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memDurable) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memDurable) stored(userID, videoID string) (shared.Progress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[userID+"/"+videoID]
	return p, ok
}

func (m *memDurable) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}
