package traversal

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"story-engine/internal/judgment"
	"story-engine/internal/story"

	"go.uber.org/zap"
)

// Session владеет состоянием одного прохождения. Все изменения позиции, очков и жетонов
// выполняются одним шагом под замком. Судья вызывается без замка, а его результат
// применяется, только если за это время сессия не сменила узел (эпоха не изменилась).
type Session struct {
	mu        sync.Mutex
	graph     *story.Graph
	judge     Judge
	presenter Presenter
	logger    *zap.Logger
	actions   map[string]ActionFunc

	state   State
	phase   Phase
	node    *story.Node
	armed   *story.Challenge
	judging bool
	epoch   uint64
}

// NewSession создает сессию. До Start или Restore все операции возвращают ErrInvalidPhase.
// Без judge ответы проверяются только шаблонами испытаний.
func NewSession(graph *story.Graph, judge Judge, presenter Presenter, logger *zap.Logger) *Session {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	if judge == nil {
		judge = judgment.NewEngine(judgment.NewLocalClassifier(graph.Explanations(), logger), nil, judgment.Config{}, nil, logger)
	}
	s := &Session{
		graph:     graph,
		judge:     judge,
		presenter: presenter,
		logger:    logger.Named("Session"),
		actions:   map[string]ActionFunc{},
		phase:     PhaseNotStarted,
	}
	for name, fn := range builtinActions {
		s.actions[name] = fn
	}
	return s
}

// RegisterAction binds a choice action name. Later registrations win.
func (s *Session) RegisterAction(name string, fn ActionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[name] = fn
}

// Start сбрасывает прогресс и ставит игрока на стартовый узел истории.
func (s *Session) Start() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resetLocked(NewState(s.graph.Start())); err != nil {
		return s.snapshotLocked(), err
	}
	return s.snapshotLocked(), nil
}

// Restore целиком заменяет состояние, например при загрузке сохранения.
// Если узла из state нет, сессия не меняется.
func (s *Session) Restore(state State) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resetLocked(state.Clone()); err != nil {
		return s.snapshotLocked(), err
	}
	return s.snapshotLocked(), nil
}

// Advance продвигает историю из PhaseAwaitingAdvance согласно ветвлению текущего узла.
func (s *Session) Advance() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAwaitingAdvance {
		return s.snapshotLocked(), fmt.Errorf("%w: advance in %s", ErrInvalidPhase, s.phase)
	}
	node, err := s.graph.GetNode(s.state.ChapterID, s.state.NodeID)
	if err != nil {
		return s.snapshotLocked(), err
	}

	b := node.Branch()
	switch b.Kind {
	case story.BranchChallenge:
		s.armed = b.Challenge
		s.phase = PhaseAwaitingFreeText
		s.presenter.RenderChallenge(b.Challenge)
	case story.BranchChoice:
		s.phase = PhaseAwaitingChoice
		s.presenter.RenderChoices(b.Choices)
	case story.BranchLinear, story.BranchChapterJump:
		if err := s.loadLocked(b.Target); err != nil {
			return s.snapshotLocked(), err
		}
	case story.BranchTerminal:
		s.phase = PhaseComplete
		s.logger.Debug("Reached terminal node", zap.Stringer("node", node.Ref()))
	}
	return s.snapshotLocked(), nil
}

// SelectChoice применяет выбор: дельту очков и переход (или действие) одним шагом.
func (s *Session) SelectChoice(index int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAwaitingChoice {
		return s.snapshotLocked(), fmt.Errorf("%w: select choice in %s", ErrInvalidPhase, s.phase)
	}
	choices := s.node.Branch().Choices
	if index < 0 || index >= len(choices) {
		return s.snapshotLocked(), fmt.Errorf("%w: %d of %d", ErrInvalidChoice, index, len(choices))
	}
	choice := choices[index]

	if choice.Action != "" {
		return s.runActionLocked(choice)
	}

	// Цель ищем до изменения очков, чтобы битая ссылка ничего не испортила
	target, err := s.graph.GetNode(s.node.ChapterID, choice.Next)
	if err != nil {
		return s.snapshotLocked(), err
	}
	s.addScoreLocked(choice.ScoreCategory, choice.ScoreDelta)
	s.enterLocked(target)
	return s.snapshotLocked(), nil
}

func (s *Session) runActionLocked(choice story.Choice) (Snapshot, error) {
	fn, ok := s.actions[choice.Action]
	if !ok {
		return s.snapshotLocked(), fmt.Errorf("%w: %q", ErrUnknownAction, choice.Action)
	}

	saved := s.saveLocked()
	s.addScoreLocked(choice.ScoreCategory, choice.ScoreDelta)
	if err := fn(&ActionContext{s: s, node: s.node, choice: choice}); err != nil {
		s.rollbackLocked(saved)
		return s.snapshotLocked(), fmt.Errorf("action %q: %w", choice.Action, err)
	}
	// Действие не увело с узла: выбор снова доступен после Advance
	if s.phase == PhaseAwaitingChoice {
		s.phase = PhaseAwaitingAdvance
	}
	return s.snapshotLocked(), nil
}

// SubmitFreeText отдает ответ судье. Пока судья работает, повторная отправка запрещена.
// Проваленный ответ оставляет игрока на узле с неограниченным числом попыток.
// Судья получает ввод как есть, пробелы обрезаются только для проверки на пустоту.
func (s *Session) SubmitFreeText(ctx context.Context, input string) (judgment.Result, Snapshot, error) {
	s.mu.Lock()
	if err := s.checkSubmitLocked(strings.TrimSpace(input)); err != nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return judgment.Result{}, snap, err
	}
	s.judging = true
	epoch := s.epoch
	challenge := s.armed
	s.mu.Unlock()

	res := s.judge.Classify(ctx, challenge, input)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		s.logger.Debug("Discarding stale judgment", zap.Uint64("epoch", epoch), zap.Uint64("current", s.epoch))
		return judgment.Result{}, s.snapshotLocked(), ErrStaleJudgment
	}
	s.judging = false

	s.presenter.RenderResult(res)
	if res.Warning != "" {
		s.presenter.RenderAdvisory(res.Warning)
	}
	if !res.Passed {
		return res, s.snapshotLocked(), nil
	}

	b := s.node.Branch()
	if b.OnPass == nil {
		s.addScoreLocked(challenge.ScoreCategory, s.graph.SuccessBonus())
		s.armed = nil
		s.phase = PhaseComplete
		return res, s.snapshotLocked(), nil
	}
	target, err := s.graph.Resolve(*b.OnPass)
	if err != nil {
		return res, s.snapshotLocked(), err
	}
	s.addScoreLocked(challenge.ScoreCategory, s.graph.SuccessBonus())
	s.enterLocked(target)
	return res, s.snapshotLocked(), nil
}

func (s *Session) checkSubmitLocked(answer string) error {
	switch {
	case s.phase != PhaseAwaitingFreeText:
		return fmt.Errorf("%w: submit answer in %s", ErrInvalidPhase, s.phase)
	case answer == "":
		return ErrEmptyInput
	case s.judging:
		return ErrJudgmentInFlight
	}
	return nil
}

// ResolveFailure считает провал окончательным для узла и уводит на ветку провала.
func (s *Session) ResolveFailure() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAwaitingFreeText {
		return s.snapshotLocked(), fmt.Errorf("%w: resolve failure in %s", ErrInvalidPhase, s.phase)
	}
	if s.judging {
		return s.snapshotLocked(), ErrJudgmentInFlight
	}

	b := s.node.Branch()
	if b.OnFail == nil {
		s.armed = nil
		s.phase = PhaseComplete
		return s.snapshotLocked(), nil
	}
	if err := s.loadLocked(*b.OnFail); err != nil {
		return s.snapshotLocked(), err
	}
	return s.snapshotLocked(), nil
}

// CollectToken отмечает жетон собранным. Повторный сбор ничего не меняет и возвращает false.
func (s *Session) CollectToken(category string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectLocked(category)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) resetLocked(state State) error {
	node, err := s.graph.GetNode(state.ChapterID, state.NodeID)
	if err != nil {
		return err
	}
	s.state = state
	s.enterLocked(node)
	return nil
}

func (s *Session) loadLocked(ref story.NodeRef) error {
	node, err := s.graph.Resolve(ref)
	if err != nil {
		return err
	}
	s.enterLocked(node)
	return nil
}

// enterLocked - единственное место смены узла. Новая эпоха отменяет ожидающий ответ судьи.
func (s *Session) enterLocked(node *story.Node) {
	s.epoch++
	s.judging = false
	s.armed = nil
	s.node = node
	s.state.ChapterID = node.ChapterID
	s.state.NodeID = node.ID
	s.phase = PhaseAwaitingAdvance

	s.logger.Debug("Node entered", zap.Stringer("node", node.Ref()), zap.Uint64("epoch", s.epoch))
	s.presenter.Render(node)
	if node.CollectibleToken != "" {
		s.collectLocked(node.CollectibleToken)
	}
}

func (s *Session) collectLocked(category string) bool {
	if category == "" || s.state.CollectedTokens[category] {
		return false
	}
	if s.state.CollectedTokens == nil {
		s.state.CollectedTokens = map[string]bool{}
	}
	s.state.CollectedTokens[category] = true
	s.presenter.PlayToken(category)
	return true
}

func (s *Session) addScoreLocked(category string, delta int) {
	if category == "" || delta == 0 {
		return
	}
	if s.state.Scores == nil {
		s.state.Scores = map[string]int{}
	}
	s.state.Scores[category] += delta
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:     s.state.Clone(),
		Phase:     s.phase,
		Judging:   s.judging,
		Node:      s.node,
		Challenge: s.armed,
		Epoch:     s.epoch,
	}
}

type savepoint struct {
	state State
	phase Phase
	node  *story.Node
	armed *story.Challenge
}

func (s *Session) saveLocked() savepoint {
	return savepoint{state: s.state.Clone(), phase: s.phase, node: s.node, armed: s.armed}
}

func (s *Session) rollbackLocked(p savepoint) {
	s.state = p.state
	s.phase = p.phase
	s.node = p.node
	s.armed = p.armed
	s.epoch++
}
