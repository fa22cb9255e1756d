package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemorySnapshotRepo реализует SnapshotRepo в памяти.
// Используется, когда Redis не настроен, и в тестах.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemorySnapshotRepo struct {
	mu   sync.RWMutex
	data map[string]*TabSnapshot
}

// NewMemorySnapshotRepo создает новый репозиторий снимков в памяти.
func NewMemorySnapshotRepo() *MemorySnapshotRepo {
	return &MemorySnapshotRepo{
		data: make(map[string]*TabSnapshot),
	}
}

// Save сохраняет копию снимка.
func (r *MemorySnapshotRepo) Save(ctx context.Context, snap *TabSnapshot) error {
	if snap == nil || snap.Tab == "" {
		return fmt.Errorf("недействительный снимок: пустое имя вкладки")
	}

	// Проверяем контекст на отмену
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[snap.Tab] = cloneSnapshot(snap)
	return nil
}

// SaveBatch сохраняет снимки по очереди.
func (r *MemorySnapshotRepo) SaveBatch(ctx context.Context, snaps []*TabSnapshot) error {
	for _, snap := range snaps {
		if err := r.Save(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}

// Load возвращает копию снимка.
func (r *MemorySnapshotRepo) Load(ctx context.Context, tab string) (*TabSnapshot, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, ok := r.data[tab]
	if !ok {
		return nil, fmt.Errorf("%s: %w", tab, ErrSnapshotNotFound)
	}
	return cloneSnapshot(snap), nil
}

// Delete удаляет снимок; отсутствие снимка не ошибка.
func (r *MemorySnapshotRepo) Delete(ctx context.Context, tab string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.data, tab)
	return nil
}

// List возвращает отсортированные имена вкладок.
func (r *MemorySnapshotRepo) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tabs := make([]string, 0, len(r.data))
	for tab := range r.data {
		tabs = append(tabs, tab)
	}
	sort.Strings(tabs)
	return tabs, nil
}

// Close ничего не делает.
func (r *MemorySnapshotRepo) Close() error { return nil }
