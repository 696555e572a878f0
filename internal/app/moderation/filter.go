// Package moderation decides whether committed text contains offensive terms.
//
// Matching is whole-word: a term never matches as a substring of a longer
// token. Each token is checked as typed and after leetspeak substitution, runs
// of single-character tokens are collapsed to catch spaced-out terms, and an
// optional fuzzy mode compares each stemmed token with the configured terms
// by Sorensen-Dice similarity.
package moderation

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/kljensen/snowball"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const DefaultThreshold = 0.8

var leet = map[rune]rune{
	'0': 'o', '1': 'i', '3': 'e', '4': 'a', '5': 's', '7': 't',
	'@': 'a', '$': 's', '!': 'i',
}

type Config struct {
	Words     []string
	Fuzzy     bool
	Threshold float64
}

// Filter is immutable after construction and safe for concurrent use.
type Filter struct {
	words     []string
	single    map[string]struct{}
	phrases   []string
	collapsed map[string]struct{}
	maxRunes  int

	fuzzy     bool
	threshold float64
	metric    *metrics.SorensenDice
}

func NewFilter(cfg Config) *Filter {
	f := &Filter{
		single:    make(map[string]struct{}),
		collapsed: make(map[string]struct{}),
		fuzzy:     cfg.Fuzzy,
		threshold: cfg.Threshold,
		metric:    metrics.NewSorensenDice(),
	}
	if f.threshold <= 0 || f.threshold > 1 {
		f.threshold = DefaultThreshold
	}

	seen := make(map[string]struct{})
	for _, raw := range cfg.Words {
		var tokens []string
		for _, tok := range strings.Fields(normalize(raw)) {
			if w := stripNonWord(tok); w != "" {
				tokens = append(tokens, w)
			}
		}
		if len(tokens) == 0 {
			continue
		}
		term := strings.Join(tokens, " ")
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		f.words = append(f.words, term)

		if len(tokens) == 1 {
			f.single[term] = struct{}{}
		} else {
			f.phrases = append(f.phrases, term)
		}
		joined := strings.Join(tokens, "")
		f.collapsed[joined] = struct{}{}
		if n := utf8.RuneCountInString(joined); n > f.maxRunes {
			f.maxRunes = n
		}
	}
	sort.Strings(f.words)

	log.Info().Str("module", "app.moderation").
		Int("terms", len(f.words)).
		Bool("fuzzy", f.fuzzy).
		Msg("filter ready")
	return f
}

// Words returns the normalized term list, sorted.
func (f *Filter) Words() []string {
	out := make([]string, len(f.words))
	copy(out, f.words)
	return out
}

func (f *Filter) IsOffensive(text string) bool {
	if len(f.words) == 0 {
		return false
	}
	fields := strings.Fields(normalize(text))
	if len(fields) == 0 {
		return false
	}

	// Symbols such as @ and $ stand for letters inside a word but are plain
	// punctuation at its edges, so leet is applied both before and after
	// stripping.
	plain := make([]string, 0, len(fields))
	leeted := make([]string, 0, len(fields))
	stripped := make([]string, 0, len(fields))
	for _, tok := range fields {
		p := stripNonWord(tok)
		l := stripNonWord(deleet(tok))
		sl := deleet(p)
		if f.matchToken(p) || f.matchToken(l) || f.matchToken(sl) {
			return true
		}
		plain = append(plain, p)
		leeted = append(leeted, l)
		stripped = append(stripped, sl)
	}

	for _, seq := range [][]string{plain, leeted, stripped} {
		if f.matchPhrase(seq) || f.matchSpaced(seq) {
			return true
		}
	}
	return false
}

func (f *Filter) matchToken(tok string) bool {
	if tok == "" {
		return false
	}
	if _, ok := f.single[tok]; ok {
		return true
	}
	if !f.fuzzy {
		return false
	}
	// the stemmed token is compared with each term as configured
	s := stem(tok)
	if _, ok := f.single[s]; ok {
		return true
	}
	for term := range f.single {
		if strutil.Similarity(s, term, f.metric) > f.threshold {
			return true
		}
	}
	return false
}

func (f *Filter) matchPhrase(seq []string) bool {
	if len(f.phrases) == 0 {
		return false
	}
	joined := " " + strings.Join(nonEmpty(seq), " ") + " "
	for _, phrase := range f.phrases {
		if strings.Contains(joined, " "+phrase+" ") {
			return true
		}
	}
	return false
}

// matchSpaced checks the whole message with whitespace removed, then every
// run of single-character tokens collapsed into one word.
func (f *Filter) matchSpaced(seq []string) bool {
	if _, ok := f.collapsed[strings.Join(seq, "")]; ok {
		return true
	}
	var run []string
	flush := func() bool {
		defer func() { run = run[:0] }()
		for i := range run {
			var b strings.Builder
			for j := i; j < len(run); j++ {
				b.WriteString(run[j])
				if j-i+1 > f.maxRunes {
					break
				}
				if j == i {
					continue
				}
				if _, ok := f.collapsed[b.String()]; ok {
					return true
				}
			}
		}
		return false
	}
	for _, tok := range seq {
		if utf8.RuneCountInString(tok) == 1 {
			run = append(run, tok)
			continue
		}
		if len(run) > 1 && flush() {
			return true
		}
		run = run[:0]
	}
	return len(run) > 1 && flush()
}

func normalize(s string) string {
	return cases.Lower(language.Und).String(norm.NFKC.String(s))
}

func stripNonWord(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return -1
	}, s)
}

func deleet(s string) string {
	return strings.Map(func(r rune) rune {
		if sub, ok := leet[r]; ok {
			return sub
		}
		return r
	}, s)
}

func stem(word string) string {
	s, err := snowball.Stem(word, "english", false)
	if err != nil || s == "" {
		return word
	}
	return s
}

func nonEmpty(seq []string) []string {
	out := seq[:0:0]
	for _, s := range seq {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
