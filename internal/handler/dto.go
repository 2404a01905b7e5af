package handler

import (
	"story-engine/internal/judgment"
	"story-engine/internal/presenter"
	"story-engine/internal/traversal"
)

// APIError - стандартный ответ об ошибке.
type APIError struct {
	Message string `json:"message"`
}

type SelectChoiceRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

type SubmitAnswerRequest struct {
	Input string `json:"input" validate:"required,max=2000"`
}

type LoadRequest struct {
	// Пустой токен загружает последнее сохранение.
	Token string `json:"token"`
}

type SaveResponse struct {
	Token string `json:"token"`
}

// SessionResponse - состояние сессии для клиента.
type SessionResponse struct {
	SessionID       string                   `json:"sessionId"`
	Phase           traversal.Phase          `json:"phase"`
	Judging         bool                     `json:"judging"`
	ChapterID       string                   `json:"chapterId"`
	NodeID          string                   `json:"nodeId"`
	Node            *presenter.NodeView      `json:"node,omitempty"`
	Choices         []presenter.ChoiceView   `json:"choices,omitempty"`
	Challenge       *presenter.ChallengeView `json:"challenge,omitempty"`
	CollectedTokens []string                 `json:"collectedTokens"`
	Scores          map[string]int           `json:"scores"`
}

// AnswerResponse - итог оценки ответа вместе с новым состоянием.
type AnswerResponse struct {
	Result  judgment.Result `json:"result"`
	Session SessionResponse `json:"session"`
}

func newSessionResponse(sessionID string, snap traversal.Snapshot) SessionResponse {
	resp := SessionResponse{
		SessionID:       sessionID,
		Phase:           snap.Phase,
		Judging:         snap.Judging,
		ChapterID:       snap.State.ChapterID,
		NodeID:          snap.State.NodeID,
		Node:            presenter.NewNodeView(snap.Node),
		Challenge:       presenter.NewChallengeView(snap.Challenge),
		CollectedTokens: snap.State.TokenList(),
		Scores:          snap.State.Scores,
	}
	if snap.Phase == traversal.PhaseAwaitingChoice && snap.Node != nil {
		resp.Choices = presenter.NewChoiceViews(snap.Node.Branch().Choices)
	}
	if resp.Scores == nil {
		resp.Scores = map[string]int{}
	}
	return resp
}
