package judgment

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	analysisFallbackLimit = 200
	defaultRemoteScore    = 5
	noAnalysis            = "The judge gave no feedback."
)

var (
	successKey    = regexp.MustCompile(`(?i)"success"\s*:`)
	successMarker = regexp.MustCompile(`(?i)\bsuccess\b`)
)

// parseVerdict разбирает ответ модели. Ответ без булева success не ошибка:
// решение выводится из текста по маркеру SUCCESS.
func parseVerdict(raw string) (Result, error) {
	cleaned := stripCodeFences(raw)
	if cleaned == "" {
		return Result{}, fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}

	fields, err := decodeObject(cleaned)
	if err != nil {
		return Result{}, err
	}

	res := Result{Score: defaultRemoteScore}
	res.Explanation = stringField(fields, "analysis")

	passed, ok := boolField(fields, "success")
	if ok {
		res.Passed = passed
	} else {
		res.Passed = hasSuccessMarker(raw)
		if res.Explanation == "" {
			res.Explanation = truncateRunes(cleaned, analysisFallbackLimit)
		}
	}
	if res.Explanation == "" {
		res.Explanation = noAnalysis
	}
	if score, ok := scoreField(fields); ok {
		res.Score = score
	}
	return res, nil
}

// stripCodeFences снимает обертку ```json ... ```, которую модели любят добавлять.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	rest := s[start+3:]
	if len(rest) >= 4 && strings.EqualFold(rest[:4], "json") {
		rest = rest[4:]
	}
	if end := strings.LastIndex(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func decodeObject(s string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err == nil && fields != nil {
		return fields, nil
	}
	// Модель могла окружить объект пояснениями
	open, closing := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if open >= 0 && closing > open {
		if err := json.Unmarshal([]byte(s[open:closing+1]), &fields); err == nil && fields != nil {
			return fields, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrMalformedReply, truncateRunes(s, 80))
}

func boolField(fields map[string]json.RawMessage, key string) (bool, bool) {
	raw, ok := fields[key]
	if !ok || strings.TrimSpace(string(raw)) == "null" {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return parsed, true
		}
	}
	return false, false
}

func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := fields[key]; ok && json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

func scoreField(fields map[string]json.RawMessage) (int, bool) {
	raw, ok := fields["score"]
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, false
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 0, false
		}
	}
	score := int(math.Round(f))
	return min(max(score, 1), 10), true
}

// hasSuccessMarker ищет слово SUCCESS без учета регистра, не считая сам ключ "success".
func hasSuccessMarker(raw string) bool {
	return successMarker.MatchString(successKey.ReplaceAllString(raw, ""))
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
