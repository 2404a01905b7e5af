package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"story-engine/internal/judgment"
	"story-engine/internal/messaging"
	"story-engine/internal/savestore"
	"story-engine/internal/story"
	"story-engine/internal/traversal"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GameService управляет живыми сессиями игроков поверх одной загруженной истории.
type GameService interface {
	NewGame(ctx context.Context, playerID uuid.UUID) (uuid.UUID, traversal.Snapshot, error)
	GetSession(ctx context.Context, playerID, sessionID uuid.UUID) (traversal.Snapshot, error)
	Advance(ctx context.Context, playerID, sessionID uuid.UUID) (traversal.Snapshot, error)
	SelectChoice(ctx context.Context, playerID, sessionID uuid.UUID, index int) (traversal.Snapshot, error)
	SubmitAnswer(ctx context.Context, playerID, sessionID uuid.UUID, input string) (judgment.Result, traversal.Snapshot, error)
	ResolveFailure(ctx context.Context, playerID, sessionID uuid.UUID) (traversal.Snapshot, error)
	// Save возвращает токен сохранения.
	Save(ctx context.Context, playerID, sessionID uuid.UUID) (string, error)
	// Load восстанавливает сохранение по токену, пустой токен означает последнее сохранение игрока.
	Load(ctx context.Context, playerID, sessionID uuid.UUID, token string) (traversal.Snapshot, error)
	EndSession(ctx context.Context, playerID, sessionID uuid.UUID) error
	// EvictIdle закрывает сессии без активности дольше maxIdle и возвращает их число.
	EvictIdle(maxIdle time.Duration) int
	ActiveSessions() int
}

// PresenterFactory выдает presenter для новой сессии.
type PresenterFactory interface {
	PresenterFor(playerID, sessionID uuid.UUID) traversal.Presenter
}

type liveSession struct {
	id         uuid.UUID
	playerID   uuid.UUID
	traversal  *traversal.Session
	mu         sync.Mutex
	lastActive time.Time
}

func (l *liveSession) touch(now time.Time) {
	l.mu.Lock()
	l.lastActive = now
	l.mu.Unlock()
}

func (l *liveSession) idleSince() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastActive
}

type gameServiceImpl struct {
	graph      *story.Graph
	judge      traversal.Judge
	store      savestore.Store
	publisher  messaging.EventPublisher
	presenters PresenterFactory
	actions    map[string]traversal.ActionFunc
	metrics    *Metrics
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*liveSession
}

// Option настраивает GameService.
type Option func(*gameServiceImpl)

// WithAction регистрирует действие выбора во всех новых сессиях.
func WithAction(name string, fn traversal.ActionFunc) Option {
	return func(s *gameServiceImpl) { s.actions[name] = fn }
}

func WithPresenters(f PresenterFactory) Option {
	return func(s *gameServiceImpl) { s.presenters = f }
}

func WithMetrics(m *Metrics) Option {
	return func(s *gameServiceImpl) { s.metrics = m }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *gameServiceImpl) { s.now = now }
}

func NewGameService(graph *story.Graph, judge traversal.Judge, store savestore.Store, publisher messaging.EventPublisher, logger *zap.Logger, opts ...Option) GameService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	s := &gameServiceImpl{
		graph:     graph,
		judge:     judge,
		store:     store,
		publisher: publisher,
		actions:   map[string]traversal.ActionFunc{},
		logger:    logger.Named("GameService"),
		now:       time.Now,
		sessions:  map[uuid.UUID]*liveSession{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *gameServiceImpl) NewGame(ctx context.Context, playerID uuid.UUID) (uuid.UUID, traversal.Snapshot, error) {
	id := uuid.New()
	var presenter traversal.Presenter
	if s.presenters != nil {
		presenter = s.presenters.PresenterFor(playerID, id)
	}
	ts := traversal.NewSession(s.graph, s.judge, presenter, s.logger.With(zap.String("session_id", id.String())))
	for name, fn := range s.actions {
		ts.RegisterAction(name, fn)
	}

	snap, err := ts.Start()
	s.metrics.observe("new_game", err)
	if err != nil {
		return uuid.Nil, snap, fmt.Errorf("start story: %w", err)
	}

	live := &liveSession{id: id, playerID: playerID, traversal: ts, lastActive: s.now()}
	s.mu.Lock()
	s.sessions[id] = live
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.setActive(active)

	s.logger.Info("Game session started",
		zap.String("session_id", id.String()),
		zap.String("player_id", playerID.String()),
	)
	s.publishTransition(ctx, live, traversal.Snapshot{}, snap)
	return id, snap, nil
}

func (s *gameServiceImpl) GetSession(ctx context.Context, playerID, sessionID uuid.UUID) (traversal.Snapshot, error) {
	live, err := s.lookup(playerID, sessionID)
	if err != nil {
		return traversal.Snapshot{}, err
	}
	return live.traversal.Snapshot(), nil
}

func (s *gameServiceImpl) Advance(ctx context.Context, playerID, sessionID uuid.UUID) (traversal.Snapshot, error) {
	return s.step(ctx, "advance", playerID, sessionID, func(ts *traversal.Session) (traversal.Snapshot, error) {
		return ts.Advance()
	})
}

func (s *gameServiceImpl) SelectChoice(ctx context.Context, playerID, sessionID uuid.UUID, index int) (traversal.Snapshot, error) {
	return s.step(ctx, "select_choice", playerID, sessionID, func(ts *traversal.Session) (traversal.Snapshot, error) {
		return ts.SelectChoice(index)
	})
}

func (s *gameServiceImpl) ResolveFailure(ctx context.Context, playerID, sessionID uuid.UUID) (traversal.Snapshot, error) {
	return s.step(ctx, "resolve_failure", playerID, sessionID, func(ts *traversal.Session) (traversal.Snapshot, error) {
		return ts.ResolveFailure()
	})
}

func (s *gameServiceImpl) SubmitAnswer(ctx context.Context, playerID, sessionID uuid.UUID, input string) (judgment.Result, traversal.Snapshot, error) {
	var res judgment.Result
	snap, err := s.step(ctx, "submit_answer", playerID, sessionID, func(ts *traversal.Session) (traversal.Snapshot, error) {
		var err error
		var after traversal.Snapshot
		res, after, err = ts.SubmitFreeText(ctx, input)
		return after, err
	})
	if err != nil {
		return res, snap, err
	}

	if live, lerr := s.lookup(playerID, sessionID); lerr == nil {
		passed := res.Passed
		s.publish(ctx, live, messaging.StoryEvent{
			Type:       messaging.EventJudgmentCompleted,
			Passed:     &passed,
			Provenance: string(res.Provenance),
		}, snap)
	}
	return res, snap, nil
}

func (s *gameServiceImpl) Save(ctx context.Context, playerID, sessionID uuid.UUID) (string, error) {
	live, err := s.lookup(playerID, sessionID)
	if err != nil {
		return "", err
	}
	live.touch(s.now())
	snap := live.traversal.Snapshot()
	if snap.Phase == traversal.PhaseNotStarted {
		return "", fmt.Errorf("%w: nothing to save", traversal.ErrInvalidPhase)
	}

	token, err := s.store.Save(ctx, playerID.String(), savestore.FromState(snap.State, s.now()))
	s.metrics.observe("save", err)
	if err != nil {
		return "", fmt.Errorf("save game: %w", err)
	}
	s.logger.Info("Game saved", zap.String("session_id", sessionID.String()), zap.String("token", token))
	s.publish(ctx, live, messaging.StoryEvent{Type: messaging.EventGameSaved, SaveToken: token}, snap)
	return token, nil
}

func (s *gameServiceImpl) Load(ctx context.Context, playerID, sessionID uuid.UUID, token string) (traversal.Snapshot, error) {
	live, err := s.lookup(playerID, sessionID)
	if err != nil {
		return traversal.Snapshot{}, err
	}
	live.touch(s.now())
	owner := playerID.String()

	if token == "" {
		if token, err = s.store.Latest(ctx, owner); err != nil {
			s.metrics.observe("load", err)
			return live.traversal.Snapshot(), fmt.Errorf("latest save: %w", err)
		}
	}
	rec, err := s.store.Load(ctx, owner, token)
	if err != nil {
		s.metrics.observe("load", err)
		return live.traversal.Snapshot(), fmt.Errorf("load save %s: %w", token, err)
	}

	snap, err := live.traversal.Restore(rec.State())
	s.metrics.observe("load", err)
	if err != nil {
		if errors.Is(err, story.ErrNodeNotFound) {
			s.logger.Error("Save points at a node missing from the story",
				zap.String("token", token),
				zap.String("chapter_id", rec.ChapterID),
				zap.String("node_id", rec.NodeID),
			)
		}
		return snap, err
	}
	s.publish(ctx, live, messaging.StoryEvent{Type: messaging.EventGameLoaded, SaveToken: token}, snap)
	return snap, nil
}

func (s *gameServiceImpl) EndSession(ctx context.Context, playerID, sessionID uuid.UUID) error {
	if _, err := s.lookup(playerID, sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.setActive(active)
	s.logger.Info("Game session ended", zap.String("session_id", sessionID.String()))
	return nil
}

func (s *gameServiceImpl) EvictIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	evicted := 0
	for id, live := range s.sessions {
		if live.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	active := len(s.sessions)
	s.mu.Unlock()

	s.metrics.setActive(active)
	s.metrics.addEvicted(evicted)
	if evicted > 0 {
		s.logger.Info("Evicted idle sessions", zap.Int("evicted", evicted), zap.Int("active", active))
	}
	return evicted
}

func (s *gameServiceImpl) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *gameServiceImpl) lookup(playerID, sessionID uuid.UUID) (*liveSession, error) {
	s.mu.RLock()
	live, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if live.playerID != playerID {
		s.logger.Warn("Session access by another player",
			zap.String("session_id", sessionID.String()),
			zap.String("player_id", playerID.String()),
		)
		return nil, ErrForbidden
	}
	return live, nil
}

// step выполняет операцию обхода и публикует события по разнице снимков.
func (s *gameServiceImpl) step(ctx context.Context, op string, playerID, sessionID uuid.UUID, fn func(*traversal.Session) (traversal.Snapshot, error)) (traversal.Snapshot, error) {
	live, err := s.lookup(playerID, sessionID)
	if err != nil {
		return traversal.Snapshot{}, err
	}
	live.touch(s.now())

	before := live.traversal.Snapshot()
	after, err := fn(live.traversal)
	s.metrics.observe(op, err)
	if err != nil {
		if errors.Is(err, story.ErrNodeNotFound) {
			s.logger.Error("Story data defect", zap.String("operation", op), zap.Error(err))
		}
		return after, err
	}
	s.publishTransition(ctx, live, before, after)
	return after, nil
}

func (s *gameServiceImpl) publishTransition(ctx context.Context, live *liveSession, before, after traversal.Snapshot) {
	if after.Epoch != before.Epoch && after.Phase != traversal.PhaseComplete {
		s.publish(ctx, live, messaging.StoryEvent{Type: messaging.EventNodeEntered}, after)
	}
	for _, token := range after.State.TokenList() {
		if !before.State.CollectedTokens[token] {
			s.publish(ctx, live, messaging.StoryEvent{Type: messaging.EventTokenCollected, Token: token}, after)
		}
	}
	if after.Phase == traversal.PhaseComplete && before.Phase != traversal.PhaseComplete {
		s.publish(ctx, live, messaging.StoryEvent{Type: messaging.EventChapterComplete}, after)
	}
}

// publish дополняет событие данными сессии. Ошибка брокера не прерывает игру.
func (s *gameServiceImpl) publish(ctx context.Context, live *liveSession, event messaging.StoryEvent, snap traversal.Snapshot) {
	event.SessionID = live.id.String()
	event.PlayerID = live.playerID.String()
	event.ChapterID = snap.State.ChapterID
	event.NodeID = snap.State.NodeID
	event.Scores = snap.State.Scores
	event.OccurredAt = s.now().UTC()

	if err := s.publisher.PublishStoryEvent(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("Story event dropped",
			zap.String("type", string(event.Type)),
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
	}
}
