package story

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// patternTimeout ограничивает один матч, чтобы кривой шаблон не подвесил судью.
const patternTimeout = 250 * time.Millisecond

// PatternSet - упорядоченные правила локальной проверки ответа.
// Шаблоны пишутся в синтаксисе .NET/ECMAScript, флаги задаются инлайн, например (?i).
type PatternSet struct {
	NegativePatterns []string `yaml:"negativePatterns,omitempty" json:"negativePatterns,omitempty"`
	PositivePatterns []string `yaml:"positivePatterns,omitempty" json:"positivePatterns,omitempty"`

	negative []*regexp2.Regexp
	positive []*regexp2.Regexp
}

// Empty is true when no rule is authored.
func (p *PatternSet) Empty() bool {
	return p == nil || len(p.NegativePatterns)+len(p.PositivePatterns) == 0
}

// compile собирает регулярки. Возвращает описание каждого сломанного шаблона.
func (p *PatternSet) compile() []string {
	var broken []string
	build := func(kind string, src []string) []*regexp2.Regexp {
		out := make([]*regexp2.Regexp, 0, len(src))
		for i, pattern := range src {
			re, err := regexp2.Compile(pattern, regexp2.None)
			if err != nil {
				broken = append(broken, fmt.Sprintf("%s pattern #%d %q: %v", kind, i, pattern, err))
				continue
			}
			re.MatchTimeout = patternTimeout
			out = append(out, re)
		}
		return out
	}
	p.negative = build("negative", p.NegativePatterns)
	p.positive = build("positive", p.PositivePatterns)
	return broken
}

// MatchNegative reports whether any negative rule matches, scanning in authored order.
// A rule that runs out of time stops the scan with an error wrapping ErrPatternTimeout.
func (p *PatternSet) MatchNegative(input string) (bool, error) {
	if p == nil {
		return false, nil
	}
	return firstMatch("negative", p.negative, input)
}

// MatchPositive reports whether any positive rule matches, scanning in authored order.
func (p *PatternSet) MatchPositive(input string) (bool, error) {
	if p == nil {
		return false, nil
	}
	return firstMatch("positive", p.positive, input)
}

func firstMatch(kind string, rules []*regexp2.Regexp, input string) (bool, error) {
	for i, re := range rules {
		ok, err := re.MatchString(input)
		if err != nil {
			// regexp2 возвращает ошибку только по MatchTimeout
			return false, fmt.Errorf("%w: %s pattern #%d %q: %v", ErrPatternTimeout, kind, i, re.String(), err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
