package judgment

import (
	"story-engine/internal/story"

	"go.uber.org/zap"
)

// LocalClassifier проверяет ответ упорядоченными шаблонами испытания.
// Детерминирован: одинаковые правила и ввод всегда дают одинаковый Result.
type LocalClassifier struct {
	explanations story.Explanations
	logger       *zap.Logger
}

func NewLocalClassifier(explanations story.Explanations, logger *zap.Logger) *LocalClassifier {
	return &LocalClassifier{explanations: explanations, logger: logger.Named("LocalJudge")}
}

// Classify: негативные шаблоны проверяются первыми, затем позитивные, иначе ответ неясен.
// Негативный шаблон, не уложившийся во время, считается совпавшим: ответ не засчитывается.
// Позитивный по таймауту считается несовпавшим.
func (l *LocalClassifier) Classify(c *story.Challenge, input string) Result {
	var rules *story.PatternSet
	if c != nil {
		rules = c.Validation
	}

	res := Result{Provenance: ProvenanceLocal}
	switch {
	case l.negative(rules, input):
		res.Explanation = l.explanations.Negative
	case l.positive(rules, input):
		res.Passed = true
		res.Explanation = l.explanations.Positive
	default:
		res.Explanation = l.explanations.Ambiguous
	}
	return res
}

func (l *LocalClassifier) negative(rules *story.PatternSet, input string) bool {
	ok, err := rules.MatchNegative(input)
	if err != nil {
		l.logger.Warn("Negative pattern timed out, rejecting answer", zap.Int("inputLen", len(input)), zap.Error(err))
		return true
	}
	return ok
}

func (l *LocalClassifier) positive(rules *story.PatternSet, input string) bool {
	ok, err := rules.MatchPositive(input)
	if err != nil {
		l.logger.Warn("Positive pattern timed out, treating as no match", zap.Int("inputLen", len(input)), zap.Error(err))
		return false
	}
	return ok
}
