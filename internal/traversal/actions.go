package traversal

import (
	"story-engine/internal/story"
)

// ActionFunc - побочный эффект выбора. Выполняется внутри атомарного шага SelectChoice,
// ошибка откатывает все изменения действия.
type ActionFunc func(ac *ActionContext) error

const (
	ActionRestart = "restart"
	ActionFinish  = "finish"
)

var builtinActions = map[string]ActionFunc{
	ActionRestart: func(ac *ActionContext) error { return ac.Restart() },
	ActionFinish:  func(ac *ActionContext) error { ac.Finish(); return nil },
}

// ActionContext дает действию ограниченный доступ к сессии, уже захваченной под замок.
type ActionContext struct {
	s      *Session
	node   *story.Node
	choice story.Choice
}

func (a *ActionContext) Node() *story.Node    { return a.node }
func (a *ActionContext) Choice() story.Choice { return a.choice }
func (a *ActionContext) State() State         { return a.s.state.Clone() }

func (a *ActionContext) AddScore(category string, delta int) { a.s.addScoreLocked(category, delta) }

func (a *ActionContext) CollectToken(category string) bool { return a.s.collectLocked(category) }

// Jump переводит сессию на произвольный узел.
func (a *ActionContext) Jump(ref story.NodeRef) error { return a.s.loadLocked(ref) }

// Restart начинает историю заново с пустым прогрессом.
func (a *ActionContext) Restart() error {
	return a.s.resetLocked(NewState(a.s.graph.Start()))
}

// Finish завершает прохождение на текущем узле.
func (a *ActionContext) Finish() {
	a.s.armed = nil
	a.s.phase = PhaseComplete
}
