package judgment

import (
	"strings"
	"testing"

	"story-engine/internal/story"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLocalClassifier(t *testing.T) {
	c := testChallenge(t)
	local := NewLocalClassifier(story.DefaultExplanations, zap.NewNop())

	tests := []struct {
		name        string
		input       string
		passed      bool
		explanation string
	}{
		{"positive", "I would help them and share my food", true, story.DefaultExplanations.Positive},
		{"positive cjk", "我會送他便當", true, story.DefaultExplanations.Positive},
		{"lunch box and cheering", "我會送便當給同學並跟他加油", true, story.DefaultExplanations.Positive},
		{"negative wins over positive", "I would laugh and then help", false, story.DefaultExplanations.Negative},
		{"negative cjk", "不理他", false, story.DefaultExplanations.Negative},
		{"ambiguous", "hmm", false, story.DefaultExplanations.Ambiguous},
		{"ambiguous cjk", "隨便", false, story.DefaultExplanations.Ambiguous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := local.Classify(c, tt.input)
			assert.Equal(t, tt.passed, res.Passed)
			assert.Equal(t, tt.explanation, res.Explanation)
			assert.Equal(t, ProvenanceLocal, res.Provenance)
			assert.Zero(t, res.Score)
		})
	}
}

func TestLocalClassifier_Deterministic(t *testing.T) {
	c := testChallenge(t)
	local := NewLocalClassifier(story.DefaultExplanations, zap.NewNop())
	first := local.Classify(c, "share")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, local.Classify(c, "share"))
	}
}

func TestLocalClassifier_NilChallengeIsAmbiguous(t *testing.T) {
	local := NewLocalClassifier(story.Explanations{Ambiguous: "?"}, zap.NewNop())
	res := local.Classify(nil, "help")
	assert.False(t, res.Passed)
	assert.Equal(t, "?", res.Explanation)
}

func TestLocalClassifier_NegativeTimeoutRejects(t *testing.T) {
	g, err := story.Parse([]byte(`
chapters:
  prologue:
    nodes:
      p1:
        judgmentChallenge:
          prompt: Say something.
          validation:
            negativePatterns: ["(a|aa)*b"]
            positivePatterns: ["help"]
`))
	require.NoError(t, err)
	n, err := g.GetNode("prologue", "p1")
	require.NoError(t, err)

	core, logs := observer.New(zapcore.WarnLevel)
	local := NewLocalClassifier(story.DefaultExplanations, zap.New(core))

	res := local.Classify(n.Challenge, strings.Repeat("a", 50)+"X b help")
	assert.False(t, res.Passed)
	assert.Equal(t, story.DefaultExplanations.Negative, res.Explanation)
	assert.Equal(t, ProvenanceLocal, res.Provenance)

	entries := logs.FilterMessage("Negative pattern timed out, rejecting answer").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "(a|aa)*b")
}
