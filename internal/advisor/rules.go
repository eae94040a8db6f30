package advisor

import (
	"context"
	"fmt"
	"strings"

	"pcbuilder/internal/compat"
)

// Rules はモデル無しで動く簡易コンサルタント。
// ボトルネックと電源容量の質問にだけ定型文で答える
type Rules struct{}

var _ Advisor = Rules{}

func NewRules() Rules {
	return Rules{}
}

const (
	rulesBasicBottleneck = "A Core i3 or Ryzen 3 will bottleneck a 60-series GPU or higher. The CPU is too basic for that graphics card."
	rulesMildBottleneck  = "Expect a mild bottleneck. For an 80 or 90-series GPU an i7 or Ryzen 7 is the better match."
	rulesNoBottleneck    = "Great combination. Those parts will not bottleneck each other."
	rulesAskParts        = "Tell me which CPU and GPU you want to pair and I will check for a bottleneck."
	rulesPSUGeneric      = "Always pick a certified PSU. 600W is fine for mid-range builds; look for 750W or more for high-end."
	rulesFallback        = "Good question. The key is keeping your CPU and graphics card balanced."
)

func (Rules) Chat(_ context.Context, message string, _ []string) (Reply, error) {
	return Reply{Text: consult(message)}, nil
}

// 説明は生成しない（空を返す）
func (Rules) Describe(context.Context, string, string) (string, error) {
	return "", nil
}

func consult(message string) string {
	t := strings.Join(strings.Fields(strings.ToLower(message)), "")

	tier := compat.GPUTier(message)
	cpu := compat.ClassifyCPU(message)

	switch {
	case containsAny(t, "bottleneck", "cuello", "botella"):
		switch {
		case cpu == compat.CPUBasic && tier >= 1:
			return rulesBasicBottleneck
		case cpu == compat.CPUMid && tier == 3:
			return rulesMildBottleneck
		case cpu == compat.CPUHigh || (cpu == compat.CPUMid && tier <= 2):
			return rulesNoBottleneck
		default:
			return rulesAskParts
		}
	case containsAny(t, "psu", "power", "watts", "fuente"):
		if w := compat.Wattage(message); w > 0 && w < 500 && tier >= 1 {
			return fmt.Sprintf("%dW is too little for a 60-series GPU or higher. Go for at least 600W 80 Plus.", w)
		}
		return rulesPSUGeneric
	}
	return rulesFallback
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
