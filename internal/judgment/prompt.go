package judgment

import (
	"strings"

	"story-engine/internal/story"
)

const systemPrompt = "You are a strict but fair judge in an educational story game about kindness. " +
	"You evaluate whether a player's free-text answer shows good intent and fits the scene. " +
	"Reply with a single JSON object and nothing else."

// BuildPrompt рендерит запрос судье: контекст сцены, задание, дословный ответ и критерии.
func BuildPrompt(c *story.Challenge, input string) string {
	var b strings.Builder

	if c.Context != "" {
		b.WriteString("Scene:\n")
		b.WriteString(c.Context)
		b.WriteString("\n\n")
	}
	b.WriteString("Task given to the player:\n")
	b.WriteString(c.Prompt)
	b.WriteString("\n\n")
	if c.Hint != "" {
		b.WriteString("Hint shown to the player:\n")
		b.WriteString(c.Hint)
		b.WriteString("\n\n")
	}

	b.WriteString("Player answer (verbatim, between the markers):\n<<<\n")
	b.WriteString(input)
	b.WriteString("\n>>>\n\n")

	b.WriteString(`Criteria:
1. The answer responds to the task and the scene.
2. It shows a concrete kind action, kind words or a sincere good thought.
3. It is not negative, indifferent, sarcastic or rude.
4. A very short or vague answer fails.

Reply with JSON only, no markdown:
{"success": true or false, "analysis": "short feedback for the player, at most 70 characters", "score": integer from 1 to 10}
If you cannot produce JSON, write SUCCESS or FAILURE on the first line.`)

	return b.String()
}
