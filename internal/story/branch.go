package story

// BranchKind перечисляет варианты продолжения узла.
type BranchKind int

const (
	BranchTerminal BranchKind = iota
	BranchLinear
	BranchChapterJump
	BranchChoice
	BranchChallenge
)

func (k BranchKind) String() string {
	switch k {
	case BranchTerminal:
		return "terminal"
	case BranchLinear:
		return "linear"
	case BranchChapterJump:
		return "chapter_jump"
	case BranchChoice:
		return "choice"
	case BranchChallenge:
		return "challenge"
	default:
		return "unknown"
	}
}

// Branch is the tagged variant a node resolves to. Only the fields of Kind are set:
// Target for Linear and ChapterJump, Choices for Choice, Challenge/OnPass/OnFail for Challenge.
type Branch struct {
	Kind      BranchKind
	Target    NodeRef
	Choices   []Choice
	Challenge *Challenge
	OnPass    *NodeRef // nil: после успеха глава заканчивается
	OnFail    *NodeRef // nil: провал некуда уводить
}

// decideBranch выбирает вариант один раз при загрузке. Испытание важнее выбора,
// конфликтные комбинации отлавливает Validate.
func decideBranch(n *Node) Branch {
	local := func(id string) *NodeRef {
		if id == "" {
			return nil
		}
		return &NodeRef{ChapterID: n.ChapterID, NodeID: id}
	}

	switch {
	case n.Challenge != nil:
		b := Branch{Kind: BranchChallenge, Challenge: n.Challenge}
		b.OnPass = local(firstNonEmpty(n.OnSuccessNodeID, n.Next))
		b.OnFail = local(firstNonEmpty(n.OnFailureNodeID, n.Next))
		return b
	case len(n.Choices) > 0:
		return Branch{Kind: BranchChoice, Choices: n.Choices}
	case n.NextChapterID != "":
		return Branch{Kind: BranchChapterJump, Target: NodeRef{ChapterID: n.NextChapterID, NodeID: n.NextNodeID}}
	case n.Next != "":
		return Branch{Kind: BranchLinear, Target: NodeRef{ChapterID: n.ChapterID, NodeID: n.Next}}
	default:
		return Branch{Kind: BranchTerminal}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
