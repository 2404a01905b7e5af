package judgment

import "errors"

// Provenance говорит, кто вынес решение.
type Provenance string

const (
	ProvenanceRemote Provenance = "remote"
	ProvenanceLocal  Provenance = "local"
)

// Result - итог оценки свободного ответа.
type Result struct {
	Passed      bool       `json:"passed"`
	Explanation string     `json:"explanation"`
	Provenance  Provenance `json:"provenance"`
	// Score 1-10, только от удаленного судьи.
	Score int `json:"score,omitempty"`
	// Warning - неблокирующее предупреждение для игрока, когда удаленный судья недоступен.
	Warning string `json:"warning,omitempty"`
}

var (
	// ErrRemoteUnavailable оборачивает любые сбои удаленной классификации.
	// Наружу из Engine не выходит, Engine переключается на локальные правила.
	ErrRemoteUnavailable = errors.New("remote classification unavailable")
	// ErrMalformedReply - ответ модели нельзя разобрать как JSON-объект.
	ErrMalformedReply = errors.New("malformed classifier reply")
)

const (
	WarningRemoteFailed = "The AI judge could not be reached, so your answer was checked with the built-in rules."
	WarningRemotePaused = "The AI judge is temporarily paused after repeated failures, so your answer was checked with the built-in rules."
)
