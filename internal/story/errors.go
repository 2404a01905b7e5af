package story

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNodeNotFound - запрошенной главы или узла нет в графе.
	ErrNodeNotFound = errors.New("story node not found")
	// ErrMalformedChallenge - у испытания нет правил проверки или они не компилируются.
	ErrMalformedChallenge = errors.New("malformed challenge data")
	// ErrInvalidStory - документ истории не прошел проверку целостности.
	ErrInvalidStory = errors.New("invalid story document")
	// ErrPatternTimeout - шаблон не уложился в отведенное на матч время.
	ErrPatternTimeout = errors.New("pattern match timed out")
)

// Problem описывает одну найденную в документе проблему.
type Problem struct {
	ChapterID string
	NodeID    string
	Message   string
	Err       error
}

func (p Problem) String() string {
	var b strings.Builder
	if p.ChapterID != "" {
		b.WriteString(p.ChapterID)
		if p.NodeID != "" {
			b.WriteString("/")
			b.WriteString(p.NodeID)
		}
		b.WriteString(": ")
	}
	b.WriteString(p.Message)
	return b.String()
}

// ValidationError собирает все проблемы документа, чтобы автор увидел их разом.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		lines = append(lines, p.String())
	}
	return fmt.Sprintf("%s: %d problem(s): %s", ErrInvalidStory, len(e.Problems), strings.Join(lines, "; "))
}

// Unwrap позволяет errors.Is находить ErrInvalidStory и причины отдельных проблем.
func (e *ValidationError) Unwrap() []error {
	errs := []error{ErrInvalidStory}
	for _, p := range e.Problems {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errs
}

func (e *ValidationError) add(chapterID, nodeID string, err error, format string, args ...any) {
	e.Problems = append(e.Problems, Problem{
		ChapterID: chapterID,
		NodeID:    nodeID,
		Message:   fmt.Sprintf(format, args...),
		Err:       err,
	})
}
