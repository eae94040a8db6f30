package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxSessions = 10000
	DefaultIdleTimeout = 30 * time.Minute
)

// Registry はセッションIDごとのStoreを持つ。
// Storeの生成（保存データの復元）はここだけで行う。
// 保存は書き込み時に済んでいるので、しばらく使われていないStoreはメモリから外してよい。
type Registry struct {
	mu      sync.Mutex
	storage Storage
	logger  *zap.Logger
	opts    []Option
	stores  map[string]*entry
	loads   singleflight.Group

	maxSessions int
	idleTimeout time.Duration
	now         func() time.Time
}

type entry struct {
	store    *Store
	lastUsed time.Time
}

type RegistryOption func(*Registry)

// 各Storeに渡すOption
func WithStoreOptions(opts ...Option) RegistryOption {
	return func(r *Registry) {
		r.opts = append(r.opts, opts...)
	}
}

// メモリに置くセッション数の上限。超えたら一番長く使われていないものから外す
func WithMaxSessions(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxSessions = n
		}
	}
}

// Sweepで外すまでの放置時間
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idleTimeout = d
		}
	}
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// DI
func NewRegistry(storage Storage, logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		storage:     storage,
		logger:      logger,
		stores:      map[string]*entry{},
		maxSessions: DefaultMaxSessions,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get はセッションのStoreを返す（無ければ保存先から復元して作る）。
// 保存先から読めなかったときはエラーを返し、Storeは覚えない（次のGetで読み直す）。
func (r *Registry) Get(ctx context.Context, sessionID string) (*Store, error) {
	if s, ok := r.lookup(sessionID); ok {
		return s, nil
	}

	// 同じセッションの初回読み込みは1回にまとめる。読み込み中もrの他のセッションは止めない
	v, err, _ := r.loads.Do(sessionID, func() (interface{}, error) {
		if s, ok := r.lookup(sessionID); ok {
			return s, nil
		}
		s, err := r.open(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.stores[sessionID] = &entry{store: s, lastUsed: r.now()}
		r.evictOverflowLocked()
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (r *Registry) lookup(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.stores[sessionID]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.store, true
}

func (r *Registry) open(ctx context.Context, sessionID string) (*Store, error) {
	log := r.logger.With(zap.String("cart_session", sessionID))
	opts := make([]Option, 0, len(r.opts)+2)
	opts = append(opts, WithKey(SessionKey(sessionID)), WithLogger(log))
	opts = append(opts, r.opts...)

	s, err := Open(ctx, r.storage, opts...)
	if err != nil {
		return nil, err
	}
	s.Subscribe(func(ev Event) {
		log.Debug("cart event",
			zap.String("type", string(ev.Type)),
			zap.Uint64("seq", ev.Seq),
			zap.Int("items", len(ev.State.Items)),
			zap.Int64("total", ev.State.Total),
		)
	})
	return s, nil
}

func (r *Registry) evictOverflowLocked() {
	for len(r.stores) > r.maxSessions {
		var (
			oldestID string
			oldest   time.Time
			found    bool
		)
		for id, e := range r.stores {
			if !found || e.lastUsed.Before(oldest) {
				oldestID, oldest, found = id, e.lastUsed, true
			}
		}
		delete(r.stores, oldestID)
	}
}

// Sweep は放置時間を過ぎたStoreをメモリから外し、外した数を返す（保存データは残る）
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTimeout)
	n := 0
	for id, e := range r.stores {
		if e.lastUsed.Before(cutoff) {
			delete(r.stores, id)
			n++
		}
	}
	return n
}

// RunJanitor はctxが終わるまでevery間隔でSweepする
func (r *Registry) RunJanitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("idle carts released", zap.Int("count", n), zap.Int("remaining", r.Len()))
			}
		}
	}
}

// Forget はメモリ上のStoreを手放す（保存データは残る）
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	delete(r.stores, sessionID)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
