package traversal

import (
	"context"

	"story-engine/internal/judgment"
	"story-engine/internal/story"
)

// Presenter получает события сессии. Методы вызываются под замком сессии,
// поэтому реализация не должна обращаться обратно к Session и не должна блокироваться надолго.
type Presenter interface {
	Render(node *story.Node)
	RenderChoices(choices []story.Choice)
	RenderChallenge(challenge *story.Challenge)
	RenderResult(result judgment.Result)
	PlayToken(category string)
	RenderAdvisory(message string)
}

// NopPresenter отбрасывает все события.
type NopPresenter struct{}

func (NopPresenter) Render(*story.Node)               {}
func (NopPresenter) RenderChoices([]story.Choice)     {}
func (NopPresenter) RenderChallenge(*story.Challenge) {}
func (NopPresenter) RenderResult(judgment.Result)     {}
func (NopPresenter) PlayToken(string)                 {}
func (NopPresenter) RenderAdvisory(string)            {}

// Judge оценивает свободный ответ. *judgment.Engine подходит.
type Judge interface {
	Classify(ctx context.Context, challenge *story.Challenge, input string) judgment.Result
}

// JudgeFunc adapts a function to Judge.
type JudgeFunc func(ctx context.Context, challenge *story.Challenge, input string) judgment.Result

func (f JudgeFunc) Classify(ctx context.Context, challenge *story.Challenge, input string) judgment.Result {
	return f(ctx, challenge, input)
}
