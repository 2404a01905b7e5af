package traversal

import (
	"sort"

	"story-engine/internal/story"
)

// Phase - наблюдаемое состояние машины обхода.
type Phase string

const (
	PhaseNotStarted       Phase = "not_started"
	PhaseAwaitingAdvance  Phase = "awaiting_advance"
	PhaseAwaitingChoice   Phase = "awaiting_choice"
	PhaseAwaitingFreeText Phase = "awaiting_free_text"
	PhaseComplete         Phase = "complete"
)

// State - изменяемая часть прогресса игрока. Ее и сохраняет Session Store.
type State struct {
	ChapterID       string
	NodeID          string
	CollectedTokens map[string]bool
	Scores          map[string]int
}

// NewState возвращает состояние новой игры: стартовый узел, пустые жетоны и очки.
func NewState(start story.NodeRef) State {
	return State{
		ChapterID:       start.ChapterID,
		NodeID:          start.NodeID,
		CollectedTokens: map[string]bool{},
		Scores:          map[string]int{},
	}
}

func (s State) Ref() story.NodeRef {
	return story.NodeRef{ChapterID: s.ChapterID, NodeID: s.NodeID}
}

// Clone делает глубокую копию. nil-карты превращаются в пустые.
func (s State) Clone() State {
	out := State{
		ChapterID:       s.ChapterID,
		NodeID:          s.NodeID,
		CollectedTokens: make(map[string]bool, len(s.CollectedTokens)),
		Scores:          make(map[string]int, len(s.Scores)),
	}
	for k, v := range s.CollectedTokens {
		if v {
			out.CollectedTokens[k] = true
		}
	}
	for k, v := range s.Scores {
		out.Scores[k] = v
	}
	return out
}

// TokenList returns collected token categories in sorted order.
func (s State) TokenList() []string {
	out := make([]string, 0, len(s.CollectedTokens))
	for k, v := range s.CollectedTokens {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot - согласованная копия сессии для внешних слоев.
type Snapshot struct {
	State     State
	Phase     Phase
	Judging   bool
	Node      *story.Node      // узлы неизменяемы, делиться указателем безопасно
	Challenge *story.Challenge // активное испытание в PhaseAwaitingFreeText
	Epoch     uint64
}
