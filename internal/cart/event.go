package cart

type EventType string

const (
	EventItemAdded         EventType = "ITEM_ADDED"
	EventItemRemoved       EventType = "ITEM_REMOVED"
	EventCleared           EventType = "CLEARED"
	EventVisibilityChanged EventType = "VISIBILITY_CHANGED"
)

// 購読者に渡す通知。Itemは追加・削除のときだけ入る。
// SeqはStoreごとの通し番号で、状態を変えた順に1から増える。
type Event struct {
	Type  EventType
	Item  *LineItem
	State State
	Seq   uint64
}

// 購読関数はStoreのロック外で同期的に呼ばれる。
// 別goroutineからの変更が重なると届く順は前後することがあるので、
// 最新の状態が欲しい購読者はSeqが大きいものを採る。
type Listener func(Event)
