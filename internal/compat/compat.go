// Package compat は構成の相性チェック（簡易ヒューリスティック）。
// 部品名の文字列だけを見ているので、結果は常に参考扱い。
package compat

import (
	"regexp"
	"strconv"
	"strings"
)

type Level string

const (
	LevelDanger  Level = "danger"
	LevelWarning Level = "warning"
	LevelSuccess Level = "success"
)

// 判定結果。BestEffortは常にtrue
type Verdict struct {
	Level      Level  `json:"level"`
	Message    string `json:"message"`
	BestEffort bool   `json:"best_effort"`
}

// 選択中の部品名（未選択は空文字）
type Parts struct {
	CPU  string
	Mobo string
	RAM  string
	GPU  string
	PSU  string
}

const (
	msgSocketMismatch = "Critical: an Intel CPU does not fit an AMD B550 motherboard socket."
	msgLowRAM         = "Performance warning: 8GB of RAM works, but 16GB is recommended for modern games and multitasking."
	msgLowPSU         = "Power warning: a PSU under 500W is too small for a 60-series GPU or higher. Aim for 600W 80 Plus."
	msgOK             = "Compatibility checked. Sockets match and the configuration looks safe."
)

// CPUとマザーボードが揃っていなければnil
func Check(p Parts) *Verdict {
	cpu := strings.ToLower(p.CPU)
	mobo := strings.ToLower(p.Mobo)
	if strings.TrimSpace(cpu) == "" || strings.TrimSpace(mobo) == "" {
		return nil
	}
	ram := strings.ToLower(p.RAM)

	switch {
	case strings.Contains(cpu, "intel") && strings.Contains(mobo, "b550"):
		return verdict(LevelDanger, msgSocketMismatch)
	case strings.Contains(ram, "8 gb") || strings.Contains(ram, "8gb"):
		return verdict(LevelWarning, msgLowRAM)
	}

	if w := Wattage(p.PSU); w > 0 && w < 500 && GPUTier(p.GPU) >= 1 {
		return verdict(LevelWarning, msgLowPSU)
	}
	return verdict(LevelSuccess, msgOK)
}

func verdict(l Level, msg string) *Verdict {
	return &Verdict{Level: l, Message: msg, BestEffort: true}
}

var (
	gpuHigh  = regexp.MustCompile(`(\d{1,2})[89]0(ti|xt|super)?`)
	gpuUpper = regexp.MustCompile(`(\d{1,2})70(ti|xt|super)?`)
	gpuMid   = regexp.MustCompile(`(\d{1,2})[56]0(ti|xt|super)?`)
	wattsW   = regexp.MustCompile(`(?i)(\d{3,4})\s*w\b`)
	watts    = regexp.MustCompile(`\d{3,4}`)
)

// GPUの型番からグレードを出す。80/90番台=3, 70番台=2, 50/60番台=1, 不明=0
func GPUTier(text string) int {
	t := compact(text)
	switch {
	case gpuHigh.MatchString(t):
		return 3
	case gpuUpper.MatchString(t):
		return 2
	case gpuMid.MatchString(t):
		return 1
	}
	return 0
}

type CPUClass int

const (
	CPUUnknown CPUClass = iota
	CPUBasic
	CPUMid
	CPUHigh
)

func ClassifyCPU(text string) CPUClass {
	t := compact(text)
	switch {
	case strings.Contains(t, "i3") || strings.Contains(t, "ryzen3"):
		return CPUBasic
	case strings.Contains(t, "i5") || strings.Contains(t, "ryzen5"):
		return CPUMid
	case strings.Contains(t, "i7") || strings.Contains(t, "i9") ||
		strings.Contains(t, "ryzen7") || strings.Contains(t, "ryzen9"):
		return CPUHigh
	}
	return CPUUnknown
}

// "650W"のような表記を優先し、無ければ最初の3〜4桁の数字をW数とみなす（RM1000xは1000）。無ければ0
func Wattage(text string) int {
	m := ""
	if sub := wattsW.FindStringSubmatch(text); sub != nil {
		m = sub[1]
	} else {
		m = watts.FindString(text)
	}
	if m == "" {
		return 0
	}
	w, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return w
}

// 小文字にして空白を全部抜く
func compact(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}
