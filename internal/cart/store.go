package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Store はカート1つ分の状態（明細・パネル表示・合計）を持つ。
// 明細が変わるたびに合計を再計算し、同じロックの中で保存先へ書き込む。
type Store struct {
	mu       sync.Mutex
	storage  Storage
	key      string
	items    []LineItem
	total    int64
	isOpen   bool
	autoOpen bool
	seq      uint64
	logger   *zap.Logger

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

type Option func(*Store)

// 保存キーを変える（既定はStorageKey）
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// 追加時にパネルを自動で開かない（表示側がEventItemAddedを見て開く場合）
func WithoutAutoOpen() Option {
	return func(s *Store) {
		s.autoOpen = false
	}
}

// Open は空のStoreを作り、保存済みの明細があれば復元する。
// 保存データが無い・壊れている場合は空のカートで始める（エラーにしない）。
// 保存先から読めなかったときはStoreを作らずエラーを返す。
func Open(ctx context.Context, storage Storage, opts ...Option) (*Store, error) {
	s := &Store{
		storage:   storage,
		key:       StorageKey,
		items:     []LineItem{},
		autoOpen:  true,
		logger:    zap.NewNop(),
		listeners: map[int]Listener{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.restore(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) restore(ctx context.Context) error {
	// 呼び出し元の切断で読み込みを止めない
	data, err := s.storage.Load(context.WithoutCancel(ctx), s.key)
	if errors.Is(err, ErrNoData) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load cart %q: %w", s.key, err)
	}

	items, err := decodeItems(data)
	if err != nil {
		s.logger.Warn("stored cart is malformed, starting empty", zap.String("key", s.key), zap.Error(err))
		return nil
	}

	s.items = items
	s.total = sumTotal(items)
	return nil
}

// AddItem は商品を追加する。同じIDがあれば数量+1（名前・価格は上書きしない）。
// 保存に失敗してもメモリ上の変更は残り、エラーだけ返す。
func (s *Store) AddItem(ctx context.Context, p Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}

	s.mu.Lock()
	s.items = addLine(s.items, p)
	s.total = sumTotal(s.items)
	opened := false
	if s.autoOpen && !s.isOpen {
		s.isOpen = true
		opened = true
	}
	err := s.persistLocked(ctx)
	added := Event{Type: EventItemAdded, Item: s.findLocked(p.ID), State: s.snapshotLocked(), Seq: s.nextSeqLocked()}
	var shown *Event
	if opened {
		shown = &Event{Type: EventVisibilityChanged, State: added.State, Seq: s.nextSeqLocked()}
	}
	s.mu.Unlock()

	s.emit(added)
	if shown != nil {
		s.emit(*shown)
	}
	return err
}

// RemoveItem はIDの明細を削除する。無ければ何もしない。
func (s *Store) RemoveItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	removed := s.findLocked(id)
	next, ok := removeLine(s.items, id)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	s.items = next
	s.total = sumTotal(s.items)
	err := s.persistLocked(ctx)
	ev := Event{Type: EventItemRemoved, Item: removed, State: s.snapshotLocked(), Seq: s.nextSeqLocked()}
	s.mu.Unlock()

	s.emit(ev)
	return err
}

// Clear は明細を全て消す。パネルの表示状態は変えない。
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.items = []LineItem{}
	s.total = 0
	err := s.persistLocked(ctx)
	ev := Event{Type: EventCleared, State: s.snapshotLocked(), Seq: s.nextSeqLocked()}
	s.mu.Unlock()

	s.emit(ev)
	return err
}

// SetOpen はパネルの表示フラグを設定する（保存はしない）
func (s *Store) SetOpen(open bool) {
	s.mu.Lock()
	if s.isOpen == open {
		s.mu.Unlock()
		return
	}
	s.isOpen = open
	ev := Event{Type: EventVisibilityChanged, State: s.snapshotLocked(), Seq: s.nextSeqLocked()}
	s.mu.Unlock()

	s.emit(ev)
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) Items() []LineItem {
	return s.Snapshot().Items
}

func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

// Subscribe は通知の購読を登録し、解除関数を返す
func (s *Store) Subscribe(l Listener) func() {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Store) emit(ev Event) {
	s.lmu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.lmu.Unlock()

	for _, l := range ls {
		l(ev)
	}
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := encodeItems(s.items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.storage.Save(context.WithoutCancel(ctx), s.key, data); err != nil {
		return fmt.Errorf("save cart %q: %w", s.key, err)
	}
	return nil
}

func (s *Store) nextSeqLocked() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) findLocked(id int64) *LineItem {
	for _, it := range s.items {
		if it.ID == id {
			found := it
			return &found
		}
	}
	return nil
}

func (s *Store) snapshotLocked() State {
	return State{
		Items:  cloneItems(s.items),
		IsOpen: s.isOpen,
		Total:  s.total,
	}
}
