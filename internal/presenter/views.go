package presenter

import (
	"story-engine/internal/story"
)

// NodeView - то, что клиент получает об узле. Ветвление и паттерны наружу не отдаются.
type NodeView struct {
	ChapterID  string            `json:"chapterId"`
	NodeID     string            `json:"nodeId"`
	Speaker    string            `json:"speaker,omitempty"`
	Text       string            `json:"text,omitempty"`
	Background string            `json:"background,omitempty"`
	Audio      string            `json:"audio,omitempty"`
	Music      string            `json:"music,omitempty"`
	Characters map[string]string `json:"characters,omitempty"`
}

type ChoiceView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Type  string `json:"type,omitempty"`
}

type ChallengeView struct {
	Prompt string `json:"prompt"`
	Hint   string `json:"hint,omitempty"`
}

func NewNodeView(n *story.Node) *NodeView {
	if n == nil {
		return nil
	}
	return &NodeView{
		ChapterID:  n.ChapterID,
		NodeID:     n.ID,
		Speaker:    n.Speaker,
		Text:       n.Text,
		Background: n.Background,
		Audio:      n.Audio,
		Music:      n.Music,
		Characters: n.Characters,
	}
}

func NewChoiceViews(choices []story.Choice) []ChoiceView {
	out := make([]ChoiceView, len(choices))
	for i, c := range choices {
		out[i] = ChoiceView{Index: i, Text: c.Text, Type: c.Type}
	}
	return out
}

func NewChallengeView(c *story.Challenge) *ChallengeView {
	if c == nil {
		return nil
	}
	return &ChallengeView{Prompt: c.Prompt, Hint: c.Hint}
}
