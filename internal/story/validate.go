package story

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// В сообщениях показываем имена полей так, как их пишет автор в YAML
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validate проверяет документ целиком и копит все проблемы в один ValidationError.
func validate(doc *Document, g *Graph) error {
	verr := &ValidationError{}

	collectStructErrors(verr, "", "", structValidator.Struct(doc))

	if _, err := g.Resolve(g.start); err != nil {
		verr.add("", "", err, "start node %s does not exist", g.start)
	}

	for _, chapterID := range g.chapterIDs {
		ch := g.chapters[chapterID]
		if ch == nil {
			continue
		}
		nodeIDs := make([]string, 0, len(ch.Nodes))
		for id := range ch.Nodes {
			nodeIDs = append(nodeIDs, id)
		}
		sort.Strings(nodeIDs)

		for _, nodeID := range nodeIDs {
			n := ch.Nodes[nodeID]
			if n == nil {
				verr.add(chapterID, nodeID, nil, "node body is empty")
				continue
			}
			collectStructErrors(verr, chapterID, nodeID, structValidator.Struct(n))
			validateNode(verr, g, n)
		}
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

func validateNode(verr *ValidationError, g *Graph, n *Node) {
	add := func(err error, format string, args ...any) {
		verr.add(n.ChapterID, n.ID, err, format, args...)
	}
	ref := func(field, nodeID string) {
		if nodeID == "" {
			return
		}
		if _, err := g.GetNode(n.ChapterID, nodeID); err != nil {
			add(err, "%s points to missing node %q", field, nodeID)
		}
	}

	hasChoices := len(n.Choices) > 0
	hasChallenge := n.Challenge != nil
	hasJump := n.NextChapterID != "" || n.NextNodeID != ""

	if hasChoices && hasChallenge {
		add(nil, "choices and judgmentChallenge are mutually exclusive")
	}
	if hasJump && (hasChoices || hasChallenge) {
		add(nil, "a chapter jump cannot be combined with choices or a challenge")
	}
	if hasJump && n.Next != "" {
		add(nil, "next and nextChapterId/nextNodeId are mutually exclusive")
	}
	if hasJump && (n.NextChapterID == "" || n.NextNodeID == "") {
		add(nil, "nextChapterId and nextNodeId must be set together")
	}
	if !hasChallenge && (n.OnSuccessNodeID != "" || n.OnFailureNodeID != "") {
		add(nil, "onSuccessNodeId/onFailureNodeId require a judgmentChallenge")
	}

	ref("next", n.Next)
	ref("onSuccessNodeId", n.OnSuccessNodeID)
	ref("onFailureNodeId", n.OnFailureNodeID)
	if n.NextChapterID != "" && n.NextNodeID != "" {
		if _, err := g.GetNode(n.NextChapterID, n.NextNodeID); err != nil {
			add(err, "chapter jump points to missing node %s/%s", n.NextChapterID, n.NextNodeID)
		}
	}

	for i, c := range n.Choices {
		if c.Next == "" && c.Action == "" {
			add(nil, "choice #%d has neither next nor action", i)
		}
		ref(fmt.Sprintf("choice #%d", i), c.Next)
	}

	if hasChallenge {
		validateChallenge(n.Challenge, add)
	}
}

func validateChallenge(c *Challenge, add func(err error, format string, args ...any)) {
	if c.Validation.Empty() {
		add(ErrMalformedChallenge, "judgmentChallenge has no validation patterns")
		return
	}
	for _, broken := range c.Validation.compile() {
		add(ErrMalformedChallenge, "%s", broken)
	}
}

func collectStructErrors(verr *ValidationError, chapterID, nodeID string, err error) {
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.add(chapterID, nodeID, err, "%v", err)
		return
	}
	for _, fe := range fieldErrs {
		verr.add(chapterID, nodeID, nil, "%s", formatFieldError(fe))
	}
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	// Корневое имя типа читателю ничего не говорит
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_unless":
		return fmt.Sprintf("%s is required when %s is set", field, strings.Fields(fe.Param())[0])
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
