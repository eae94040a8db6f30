package cart

import "errors"

// 商品IDが無い・価格が負の商品は受け付けない
var ErrInvalidProduct = errors.New("invalid product")

// addItemに渡す商品（カタログから渡されたものをそのまま使う）
type Product struct {
	ID    int64
	Name  string
	Price int64
}

// カートの明細
type LineItem struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

// Subtotal は単価×数量
func (it LineItem) Subtotal() int64 {
	return it.UnitPrice * it.Quantity
}

// ある時点のカート状態（コピーなので呼び出し側で変更してもStoreには影響しない）
type State struct {
	Items  []LineItem `json:"items"`
	IsOpen bool       `json:"is_open"`
	Total  int64      `json:"total"`
}

// Count は明細ごとの数量の合計
func (s State) Count() int64 {
	var n int64
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

func validateProduct(p Product) error {
	if p.ID == 0 || p.Price < 0 {
		return ErrInvalidProduct
	}
	return nil
}

// 同一IDは数量+1、名前と価格は最初に入ったものを維持する
func addLine(items []LineItem, p Product) []LineItem {
	for i := range items {
		if items[i].ID == p.ID {
			next := cloneItems(items)
			next[i].Quantity++
			return next
		}
	}

	next := make([]LineItem, 0, len(items)+1)
	next = append(next, items...)
	return append(next, LineItem{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  1,
	})
}

// 無ければそのまま返す（removedはfalse）
func removeLine(items []LineItem, id int64) ([]LineItem, bool) {
	for i := range items {
		if items[i].ID != id {
			continue
		}
		next := make([]LineItem, 0, len(items)-1)
		next = append(next, items[:i]...)
		return append(next, items[i+1:]...), true
	}
	return items, false
}

func sumTotal(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// 保存データの検証（IDの重複・数量0以下などは壊れたデータ扱い）
func validItems(items []LineItem) bool {
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if it.ID == 0 || it.Quantity < 1 || it.UnitPrice < 0 {
			return false
		}
		if _, dup := seen[it.ID]; dup {
			return false
		}
		seen[it.ID] = struct{}{}
	}
	return true
}
