package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/al-spectator/internal/storage"
)

// Restore поднимает вкладки из сохранённых снимков. Вызывается при старте,
// до подключения наблюдателей.
func (r *Relay) Restore(ctx context.Context) (int, error) {
	if r.repo == nil {
		return 0, nil
	}
	tabs, err := r.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list snapshots: %w", err)
	}

	restored := 0
	for _, name := range tabs {
		snap, err := r.repo.Load(ctx, name)
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			// Истёк TTL между List и Load
			continue
		}
		if err != nil {
			r.logger.Warn("⚠️ Снимок вкладки %s не загружен: %v", name, err)
			continue
		}
		if r.addTab(tabFromSnapshot(snap)) {
			restored++
		}
	}
	if restored > 0 {
		r.logger.Info("💾 Восстановлено вкладок из снимков: %d", restored)
	}
	return restored, nil
}

// Persist сохраняет изменённые с прошлого раза вкладки одним пакетом
func (r *Relay) Persist(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}

	r.mu.RLock()
	tabs := make([]*Tab, 0, len(r.tabs))
	for _, name := range r.order {
		tabs = append(tabs, r.tabs[name])
	}
	r.mu.RUnlock()

	var batch []*storage.TabSnapshot
	for _, t := range tabs {
		t.mu.Lock()
		if t.dirty {
			batch = append(batch, t.snapshotLocked())
			t.dirty = false
		}
		t.mu.Unlock()
	}
	if len(batch) == 0 {
		return nil
	}

	if err := r.repo.SaveBatch(ctx, batch); err != nil {
		// Вернём флаг, чтобы повторить на следующем проходе
		for _, snap := range batch {
			if t, terr := r.Tab(snap.Tab); terr == nil {
				t.mu.Lock()
				t.dirty = true
				t.mu.Unlock()
			}
		}
		if r.metrics != nil {
			r.metrics.SaveErrors.Inc()
		}
		return fmt.Errorf("save snapshots: %w", err)
	}
	r.logger.Debug("💾 Сохранено снимков: %d", len(batch))
	return nil
}

// RunPersister сохраняет вкладки с заданным интервалом, пока ctx не отменён;
// при остановке выполняет последнее сохранение
func (r *Relay) RunPersister(ctx context.Context, interval time.Duration) {
	if r.repo == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Persist(ctx); err != nil {
				r.logger.Warn("⚠️ %v", err)
			}
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := r.Persist(flushCtx); err != nil {
				r.logger.Error("❌ Последнее сохранение снимков: %v", err)
			}
			cancel()
			return
		}
	}
}
