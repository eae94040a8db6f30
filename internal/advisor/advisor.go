// Package advisor はAIアシスタント（チャット・商品説明）との連携。
// 返答の質は実装次第で、呼び出し側は失敗を前提に扱う。
package advisor

import (
	"context"
	"errors"
	"strings"
)

var ErrUnavailable = errors.New("advisor unavailable")

// AIが提案した部品名。スロットごとに商品名、未提案は空
type Selection struct {
	CPU         string `json:"cpu"`
	Motherboard string `json:"motherboard"`
	RAM         string `json:"ram"`
	GPU         string `json:"gpu"`
	Storage     string `json:"storage"`
	PSU         string `json:"psu"`
	Case        string `json:"case"`
}

// "null"や空白だけの値を空にそろえる
func (s Selection) Normalize() Selection {
	clean := func(v string) string {
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, "null") {
			return ""
		}
		return v
	}
	return Selection{
		CPU:         clean(s.CPU),
		Motherboard: clean(s.Motherboard),
		RAM:         clean(s.RAM),
		GPU:         clean(s.GPU),
		Storage:     clean(s.Storage),
		PSU:         clean(s.PSU),
		Case:        clean(s.Case),
	}
}

func (s Selection) IsEmpty() bool {
	return s.Normalize() == Selection{}
}

type Reply struct {
	Text      string
	Selection *Selection
}

// Advisor はチャットと商品説明の生成を行う。
// catalogは選べる商品名の一覧（プロンプトに埋め込む実装だけが使う）
type Advisor interface {
	Chat(ctx context.Context, message string, catalog []string) (Reply, error)
	Describe(ctx context.Context, name string, category string) (string, error)
}

// 商品説明を頼むときの文面
func describePrompt(name, category string) string {
	return "Write an appealing technical description (3 lines max) to sell this product: " +
		name + " (Category: " + category + ")."
}
