package judgment

import (
	"testing"

	"story-engine/internal/story"

	"github.com/stretchr/testify/require"
)

const challengeDoc = `
chapters:
  prologue:
    nodes:
      p1:
        judgmentChallenge:
          prompt: A classmate dropped their lunch. What do you do?
          hint: Offer to share.
          context: Canteen at noon.
          scoreCategory: good_deed
          validation:
            negativePatterns: ["(?i)(ignore|laugh)", "不理"]
            positivePatterns: ["(?i)(help|share)", "(幫|送).*(便當|飯)"]
        next: p2
      p2:
        text: done
`

func testChallenge(t *testing.T) *story.Challenge {
	t.Helper()
	g, err := story.Parse([]byte(challengeDoc))
	require.NoError(t, err)
	n, err := g.GetNode("prologue", "p1")
	require.NoError(t, err)
	return n.Challenge
}
