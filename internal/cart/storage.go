package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// カートを保存するキー
const StorageKey = "pc_builder_cart"

// 保存先にキーが無い
var ErrNoData = errors.New("no stored data")

// カートの永続化先（キー1つにJSON配列を丸ごと書く）
type Storage interface {
	// 無ければErrNoDataを返す
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// SessionKey はセッションごとの保存キー
func SessionKey(sessionID string) string {
	if sessionID == "" {
		return StorageKey
	}
	return StorageKey + ":" + sessionID
}

func encodeItems(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(items)
}

func decodeItems(data []byte) ([]LineItem, error) {
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	if !validItems(items) {
		return nil, errors.New("stored cart violates item invariants")
	}
	return items, nil
}

// テストや一時セッション用のメモリ保存先
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: map[string][]byte{}}
}

func (m *MemoryStorage) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNoData
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStorage) Save(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(data))
	copy(v, data)
	m.data[key] = v
	return nil
}
