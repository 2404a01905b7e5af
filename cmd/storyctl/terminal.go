package main

import (
	"fmt"
	"io"

	"story-engine/internal/judgment"
	"story-engine/internal/story"
)

// terminalPresenter печатает события сессии как текст.
type terminalPresenter struct {
	out io.Writer
}

func (p *terminalPresenter) Render(node *story.Node) {
	if node.Text == "" {
		return
	}
	if node.Speaker != "" {
		fmt.Fprintf(p.out, "\n%s: %s\n", node.Speaker, node.Text)
		return
	}
	fmt.Fprintf(p.out, "\n%s\n", node.Text)
}

func (p *terminalPresenter) RenderChoices(choices []story.Choice) {
	for i, c := range choices {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, c.Text)
	}
}

func (p *terminalPresenter) RenderChallenge(c *story.Challenge) {
	fmt.Fprintf(p.out, "\n? %s\n", c.Prompt)
	if c.Hint != "" {
		fmt.Fprintf(p.out, "  (hint: %s)\n", c.Hint)
	}
}

func (p *terminalPresenter) RenderResult(r judgment.Result) {
	verdict := "NOT YET"
	if r.Passed {
		verdict = "PASSED"
	}
	fmt.Fprintf(p.out, "[%s, %s] %s\n", verdict, r.Provenance, r.Explanation)
}

func (p *terminalPresenter) PlayToken(category string) {
	fmt.Fprintf(p.out, "* token collected: %s\n", category)
}

func (p *terminalPresenter) RenderAdvisory(message string) {
	fmt.Fprintf(p.out, "! %s\n", message)
}
