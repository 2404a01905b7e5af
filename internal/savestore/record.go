package savestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"story-engine/internal/traversal"
)

// Record - сохраненный снимок прогресса.
type Record struct {
	ChapterID       string
	NodeID          string
	CollectedTokens []string
	Scores          map[string]int
	Timestamp       time.Time
}

// FromState снимает запись с состояния обхода.
func FromState(state traversal.State, now time.Time) Record {
	scores := make(map[string]int, len(state.Scores))
	for k, v := range state.Scores {
		scores[k] = v
	}
	return Record{
		ChapterID:       state.ChapterID,
		NodeID:          state.NodeID,
		CollectedTokens: state.TokenList(),
		Scores:          scores,
		Timestamp:       now.UTC(),
	}
}

// State восстанавливает состояние обхода из записи.
func (r Record) State() traversal.State {
	st := traversal.State{
		ChapterID:       r.ChapterID,
		NodeID:          r.NodeID,
		CollectedTokens: make(map[string]bool, len(r.CollectedTokens)),
		Scores:          make(map[string]int, len(r.Scores)),
	}
	for _, t := range r.CollectedTokens {
		st.CollectedTokens[t] = true
	}
	for k, v := range r.Scores {
		st.Scores[k] = v
	}
	return st
}

type recordJSON struct {
	ChapterID       string          `json:"chapterId"`
	NodeID          string          `json:"nodeId"`
	CollectedTokens json.RawMessage `json:"collectedTokens"`
	Scores          map[string]int  `json:"scores"`
	Timestamp       time.Time       `json:"timestamp"`

	// Поля старого формата браузерной версии игры.
	CurrentChapter string          `json:"currentChapter,omitempty"`
	CurrentNode    string          `json:"currentNode,omitempty"`
	CollectedGems  json.RawMessage `json:"collectedGems,omitempty"`
	PlayerScore    map[string]int  `json:"playerScore,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	tokens := append([]string{}, r.CollectedTokens...)
	sort.Strings(tokens)
	scores := r.Scores
	if scores == nil {
		scores = map[string]int{}
	}
	return json.Marshal(struct {
		ChapterID       string         `json:"chapterId"`
		NodeID          string         `json:"nodeId"`
		CollectedTokens []string       `json:"collectedTokens"`
		Scores          map[string]int `json:"scores"`
		Timestamp       time.Time      `json:"timestamp"`
	}{r.ChapterID, r.NodeID, tokens, scores, r.Timestamp})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Record{
		ChapterID: firstSet(raw.ChapterID, raw.CurrentChapter),
		NodeID:    firstSet(raw.NodeID, raw.CurrentNode),
		Scores:    raw.Scores,
		Timestamp: raw.Timestamp,
	}
	if out.Scores == nil {
		out.Scores = raw.PlayerScore
	}
	if out.Scores == nil {
		out.Scores = map[string]int{}
	}

	tokensRaw := raw.CollectedTokens
	if len(tokensRaw) == 0 {
		tokensRaw = raw.CollectedGems
	}
	tokens, err := decodeTokens(tokensRaw)
	if err != nil {
		return err
	}
	out.CollectedTokens = tokens

	if out.ChapterID == "" || out.NodeID == "" {
		return fmt.Errorf("missing position")
	}
	*r = out
	return nil
}

// decodeTokens принимает список категорий или старую форму {"category": true}.
func decodeTokens(data json.RawMessage) ([]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []string{}, nil
	}
	switch data[0] {
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("collectedTokens: %w", err)
		}
		sort.Strings(list)
		return list, nil
	case '{':
		var flags map[string]bool
		if err := json.Unmarshal(data, &flags); err != nil {
			return nil, fmt.Errorf("collectedTokens: %w", err)
		}
		list := make([]string, 0, len(flags))
		for k, v := range flags {
			if v {
				list = append(list, k)
			}
		}
		sort.Strings(list)
		return list, nil
	}
	return nil, fmt.Errorf("collectedTokens: unexpected %q", data[:1])
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Encode сериализует запись в JSON-формат сохранения.
func Encode(rec Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return data, nil
}

// Decode разбирает сохранение. Любая ошибка оборачивается в ErrCorruptSave.
func Decode(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	return rec, nil
}
