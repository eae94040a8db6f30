package advisor

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	markedJSON = regexp.MustCompile(`(?s)JSON_START\s*(\{.*?\})\s*JSON_END`)
)

// モデルの返答文から構成のJSONを抜き出す。
// ```json ... ``` かJSON_START ... JSON_ENDで囲まれた部分だけを見る。
// 取り出したあとの本文（JSON部分を除いたもの）も返す
func extractSelection(text string) (string, *Selection) {
	for _, re := range []*regexp.Regexp{fencedJSON, markedJSON} {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		raw := text[loc[2]:loc[3]]

		var sel Selection
		if err := json.Unmarshal([]byte(raw), &sel); err != nil {
			continue
		}
		sel = sel.Normalize()

		rest := strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
		if sel.IsEmpty() {
			return rest, nil
		}
		return rest, &sel
	}
	return strings.TrimSpace(text), nil
}
