// Package normalize 提供食譜資料與使用者輸入共用的文字、數字正規化工具
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	hoursPattern      = regexp.MustCompile(`(\d+)\s*(?:horas|hora|hrs|hr|h)`)
	minutesPattern    = regexp.MustCompile(`(\d+)\s*(?:minutos|minuto|minutes|minute|mins|min|m)\b`)
	numberPattern     = regexp.MustCompile(`\d+`)
	listSeparator     = regexp.MustCompile(`(?i)[,;|]|\s+(?:e|and|y)\s+`)
	multiValueDivider = "|"
)

// Fold 轉小寫、去除前後空白並移除重音符號
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// CollapseSpaces 將連續空白合併為一個
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Words 將正規化後的文字切成單字
func Words(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ParseDurationMinutes 將 "1h 30min"、"45 minutos"、"2 horas" 等描述轉為分鐘
func ParseDurationMinutes(text string) (int, bool) {
	s := Fold(text)
	if s == "" {
		return 0, false
	}
	s = strings.NewReplacer(".", " ", ",", " ", "\u00a0", " ").Replace(s)

	// 小時與分鐘
	if loc := hoursPattern.FindStringSubmatchIndex(s); loc != nil {
		hours, _ := strconv.Atoi(s[loc[2]:loc[3]])
		// 分鐘可能出現在小時之前，例如 "20 min preparo, 1h forno"
		others := s[:loc[0]] + " " + s[loc[1]:]
		minutes := 0
		if m := minutesPattern.FindStringSubmatch(others); m != nil {
			minutes, _ = strconv.Atoi(m[1])
		} else if n := numberPattern.FindString(s[loc[1]:]); n != "" {
			minutes, _ = strconv.Atoi(n)
		}
		return hours*60 + minutes, true
	}

	if m := minutesPattern.FindStringSubmatch(s); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		return minutes, true
	}

	// 只有數字時視為分鐘
	if n := numberPattern.FindString(s); n != "" {
		minutes, _ := strconv.Atoi(n)
		return minutes, true
	}

	return 0, false
}

// ParseCalories 取出文字中的第一個整數作為卡路里
func ParseCalories(text string) (int, bool) {
	return FirstInt(text)
}

// FirstInt 取出文字中的第一個非負整數
func FirstInt(text string) (int, bool) {
	n := numberPattern.FindString(text)
	if n == "" {
		return 0, false
	}
	v, err := strconv.Atoi(n)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseRating 解析評分，小數點可為逗號，結果限制在 [0,5]
func ParseRating(text string) float64 {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	switch {
	case v < 0:
		return 0
	case v > 5:
		return 5
	}
	return v
}

// ParseServings 解析份數，無法解析時為 0
func ParseServings(text string) int {
	v, ok := FirstInt(text)
	if !ok {
		return 0
	}
	return v
}

// SplitMultiValue 拆解以 "|" 串接的多值欄位，保留原始順序
func SplitMultiValue(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	parts := strings.Split(field, multiValueDivider)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinMultiValue 以 "|" 串接多值欄位
func JoinMultiValue(values []string) string {
	return strings.Join(values, multiValueDivider)
}

// SplitList 以逗號、分號、直線與連接詞 "e"/"and" 切分使用者輸入
func SplitList(text string) []string {
	parts := listSeparator.Split(strings.TrimSpace(text), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Tokens 切分並正規化使用者輸入，丟棄長度小於等於 minLen 的詞並去除重複
func Tokens(text string, minLen int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range SplitList(text) {
		tok := CollapseSpaces(Fold(part))
		if len([]rune(tok)) <= minLen || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}
