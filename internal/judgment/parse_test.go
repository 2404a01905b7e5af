package judgment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		passed      bool
		explanation string
		score       int
	}{
		{
			name:        "plain json",
			raw:         `{"success": true, "analysis": "Kind and concrete.", "score": 9}`,
			passed:      true,
			explanation: "Kind and concrete.",
			score:       9,
		},
		{
			name:        "fenced json",
			raw:         "```json\n{\"success\": false, \"analysis\": \"Too vague.\", \"score\": 3}\n```",
			explanation: "Too vague.",
			score:       3,
		},
		{
			name:        "single line fence",
			raw:         "```json{\"success\": true, \"analysis\": \"ok\"}```",
			passed:      true,
			explanation: "ok",
			score:       defaultRemoteScore,
		},
		{
			name:        "prose around object",
			raw:         "Here is my verdict: {\"success\": true, \"analysis\": \"Good.\", \"score\": \"7\"} Thanks.",
			passed:      true,
			explanation: "Good.",
			score:       7,
		},
		{
			name:        "string boolean",
			raw:         `{"success": "false", "analysis": "Rude."}`,
			explanation: "Rude.",
			score:       defaultRemoteScore,
		},
		{
			name:        "score clamped",
			raw:         `{"success": true, "analysis": "Great", "score": 42}`,
			passed:      true,
			explanation: "Great",
			score:       10,
		},
		{
			name:        "missing boolean with marker",
			raw:         `{"verdict": "SUCCESS", "analysis": "Warm reply."}`,
			passed:      true,
			explanation: "Warm reply.",
			score:       defaultRemoteScore,
		},
		{
			name:        "missing boolean without marker",
			raw:         `{"verdict": "unsuccessful attempt"}`,
			explanation: `{"verdict": "unsuccessful attempt"}`,
			score:       defaultRemoteScore,
		},
		{
			name:        "non boolean success key is not a marker",
			raw:         `{"success": null, "note": "FAILURE"}`,
			explanation: `{"success": null, "note": "FAILURE"}`,
			score:       defaultRemoteScore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parseVerdict(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.passed, res.Passed)
			assert.Equal(t, tt.explanation, res.Explanation)
			assert.Equal(t, tt.score, res.Score)
		})
	}
}

func TestParseVerdict_Malformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "SUCCESS but not json", "```\n```", "[1,2,3]"} {
		_, err := parseVerdict(raw)
		assert.ErrorIs(t, err, ErrMalformedReply, raw)
	}
}

func TestParseVerdict_AnalysisFallbackIsTruncated(t *testing.T) {
	long := `{"result": "success", "notes": "` + strings.Repeat("好", 300) + `"}`
	res, err := parseVerdict(long)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, analysisFallbackLimit, len([]rune(res.Explanation)))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```JSON {\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("  {\"a\":1}  "))
}

func TestBuildPrompt_KeepsInputVerbatim(t *testing.T) {
	c := testChallenge(t)
	input := "I'd \"help\" them\nand share 便當"
	prompt := BuildPrompt(c, input)

	assert.Contains(t, prompt, c.Prompt)
	assert.Contains(t, prompt, c.Context)
	assert.Contains(t, prompt, c.Hint)
	assert.Contains(t, prompt, "<<<\n"+input+"\n>>>")
	assert.Contains(t, prompt, `"success"`)
}
