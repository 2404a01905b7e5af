package story

import (
	"fmt"
	"sort"
)

const (
	// DefaultStartChapter и DefaultStartNode - точка входа новой игры.
	DefaultStartChapter = "prologue"
	DefaultStartNode    = "p1"
	// DefaultSuccessBonus начисляется в категорию испытания за успешный ответ.
	DefaultSuccessBonus = 3
)

// Explanations - тексты локального судьи для трех исходов.
type Explanations struct {
	Negative  string `yaml:"negative,omitempty" json:"negative,omitempty"`
	Positive  string `yaml:"positive,omitempty" json:"positive,omitempty"`
	Ambiguous string `yaml:"ambiguous,omitempty" json:"ambiguous,omitempty"`
}

// DefaultExplanations используются, если документ не задал свои.
var DefaultExplanations = Explanations{
	Negative:  "The answer reads as negative, indifferent or impolite. Kindness and warmth are what this moment needs, so rethink the reply and try again.",
	Positive:  "Judgment passed. The answer shows a clear intention to act with good will.",
	Ambiguous: "The answer is too short or unclear. Describe what you would do or say in more detail, the hint can help.",
}

func (e Explanations) withDefaults() Explanations {
	if e.Negative == "" {
		e.Negative = DefaultExplanations.Negative
	}
	if e.Positive == "" {
		e.Positive = DefaultExplanations.Positive
	}
	if e.Ambiguous == "" {
		e.Ambiguous = DefaultExplanations.Ambiguous
	}
	return e
}

// JudgmentSettings - параметры оценки ответов на уровне документа.
type JudgmentSettings struct {
	SuccessBonus *int         `yaml:"successBonus,omitempty" json:"successBonus,omitempty" validate:"omitempty,gte=0"`
	Explanations Explanations `yaml:"explanations,omitempty" json:"explanations,omitempty"`
}

// Document - авторский файл истории в том виде, как он лежит на диске.
type Document struct {
	Title    string              `yaml:"title" json:"title"`
	Start    NodeRef             `yaml:"start,omitempty" json:"start,omitempty"`
	Judgment JudgmentSettings    `yaml:"judgment,omitempty" json:"judgment,omitempty"`
	Chapters map[string]*Chapter `yaml:"chapters" json:"chapters" validate:"required,min=1,dive,required"`
}

// Graph is the immutable, validated story. Safe for concurrent use.
type Graph struct {
	title        string
	start        NodeRef
	successBonus int
	explanations Explanations
	chapters     map[string]*Chapter
	chapterIDs   []string
	nodeCount    int
}

// NewGraph нормализует документ, вычисляет ветвления и проверяет целостность.
// Возвращает *ValidationError, если документ нельзя использовать.
func NewGraph(doc *Document) (*Graph, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidStory)
	}

	g := &Graph{
		title:        doc.Title,
		start:        doc.Start,
		successBonus: DefaultSuccessBonus,
		explanations: doc.Judgment.Explanations.withDefaults(),
		chapters:     doc.Chapters,
	}
	if g.start.ChapterID == "" {
		g.start.ChapterID = DefaultStartChapter
	}
	if g.start.NodeID == "" {
		g.start.NodeID = DefaultStartNode
	}
	if doc.Judgment.SuccessBonus != nil {
		g.successBonus = *doc.Judgment.SuccessBonus
	}

	for chapterID, ch := range g.chapters {
		if ch == nil {
			continue
		}
		ch.ID = chapterID
		if ch.Title == "" {
			ch.Title = chapterID
		}
		for nodeID, n := range ch.Nodes {
			if n == nil {
				continue
			}
			n.ID = nodeID
			n.ChapterID = chapterID
			n.branch = decideBranch(n)
			g.nodeCount++
		}
		g.chapterIDs = append(g.chapterIDs, chapterID)
	}
	sort.Strings(g.chapterIDs)

	if err := validate(doc, g); err != nil {
		return nil, err
	}
	return g, nil
}

// GetNode returns the node or ErrNodeNotFound when the chapter or node is absent.
func (g *Graph) GetNode(chapterID, nodeID string) (*Node, error) {
	ch, ok := g.chapters[chapterID]
	if !ok || ch == nil {
		return nil, fmt.Errorf("%w: chapter %q", ErrNodeNotFound, chapterID)
	}
	n, ok := ch.Nodes[nodeID]
	if !ok || n == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNodeNotFound, chapterID, nodeID)
	}
	return n, nil
}

// Resolve is GetNode for a NodeRef.
func (g *Graph) Resolve(ref NodeRef) (*Node, error) { return g.GetNode(ref.ChapterID, ref.NodeID) }

func (g *Graph) Chapter(chapterID string) (*Chapter, bool) {
	ch, ok := g.chapters[chapterID]
	return ch, ok && ch != nil
}

// ChapterIDs возвращает идентификаторы глав в стабильном порядке.
func (g *Graph) ChapterIDs() []string {
	out := make([]string, len(g.chapterIDs))
	copy(out, g.chapterIDs)
	return out
}

func (g *Graph) Title() string              { return g.title }
func (g *Graph) Start() NodeRef             { return g.start }
func (g *Graph) SuccessBonus() int          { return g.successBonus }
func (g *Graph) Explanations() Explanations { return g.explanations }
func (g *Graph) NodeCount() int             { return g.nodeCount }

// Unreachable lists nodes no branch leads to from the start node. Actions may still
// jump there, so callers report these as warnings only.
func (g *Graph) Unreachable() []NodeRef {
	seen := map[NodeRef]bool{}
	queue := []NodeRef{g.start}
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if seen[ref] {
			continue
		}
		n, err := g.Resolve(ref)
		if err != nil {
			continue
		}
		seen[ref] = true
		queue = append(queue, successors(n)...)
	}

	var out []NodeRef
	for _, chapterID := range g.chapterIDs {
		ch := g.chapters[chapterID]
		ids := make([]string, 0, len(ch.Nodes))
		for id := range ch.Nodes {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			ref := NodeRef{ChapterID: chapterID, NodeID: id}
			if !seen[ref] {
				out = append(out, ref)
			}
		}
	}
	return out
}

func successors(n *Node) []NodeRef {
	b := n.Branch()
	switch b.Kind {
	case BranchLinear, BranchChapterJump:
		return []NodeRef{b.Target}
	case BranchChoice:
		out := make([]NodeRef, 0, len(b.Choices))
		for _, c := range b.Choices {
			if c.Next != "" {
				out = append(out, NodeRef{ChapterID: n.ChapterID, NodeID: c.Next})
			}
		}
		return out
	case BranchChallenge:
		var out []NodeRef
		if b.OnPass != nil {
			out = append(out, *b.OnPass)
		}
		if b.OnFail != nil {
			out = append(out, *b.OnFail)
		}
		return out
	default:
		return nil
	}
}
