package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/al-spectator/internal/protocol"
	"github.com/klauspost/compress/zstd"
)

// ErrSnapshotNotFound возвращается, когда для вкладки нет сохранённого снимка
var ErrSnapshotNotFound = errors.New("snapshot not found")

// TabSnapshot: текущее состояние вкладки: карта, монстры и персонажи.
// По нему вкладка восстанавливается после перезапуска.
type TabSnapshot struct {
	Tab       string                         `json:"tab"`
	Map       protocol.MapData               `json:"map"`
	Monsters  map[string]protocol.EntityData `json:"monsters"`
	Players   map[string]protocol.EntityData `json:"players"`
	UpdatedAt time.Time                      `json:"updated_at"`
}

// SnapshotRepo определяет интерфейс хранения снимков вкладок.
type SnapshotRepo interface {
	// Save сохраняет снимок вкладки, заменяя предыдущий.
	Save(ctx context.Context, snap *TabSnapshot) error

	// SaveBatch сохраняет несколько снимков за один проход.
	SaveBatch(ctx context.Context, snaps []*TabSnapshot) error

	// Load загружает снимок; ErrSnapshotNotFound, если его нет.
	Load(ctx context.Context, tab string) (*TabSnapshot, error)

	// Delete удаляет снимок вкладки.
	Delete(ctx context.Context, tab string) error

	// List возвращает имена вкладок с сохранёнными снимками.
	List(ctx context.Context) ([]string, error)

	Close() error
}

// Кодер и декодер zstd безопасны для параллельного EncodeAll/DecodeAll
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// encodeSnapshot сериализует снимок в JSON и сжимает zstd
func encodeSnapshot(snap *TabSnapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot %s: %w", snap.Tab, err)
	}
	return encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// decodeSnapshot распаковывает и разбирает снимок
func decodeSnapshot(data []byte) (*TabSnapshot, error) {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	var snap TabSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// cloneSnapshot делает независимую копию снимка
func cloneSnapshot(snap *TabSnapshot) *TabSnapshot {
	out := *snap
	out.Monsters = make(map[string]protocol.EntityData, len(snap.Monsters))
	for id, m := range snap.Monsters {
		out.Monsters[id] = m
	}
	out.Players = make(map[string]protocol.EntityData, len(snap.Players))
	for id, p := range snap.Players {
		out.Players[id] = p
	}
	return &out
}
