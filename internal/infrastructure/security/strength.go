package security

import (
	"context"
	"unicode/utf8"

	"github.com/nbutton23/zxcvbn-go"
	"github.com/nbutton23/zxcvbn-go/match"

	"github.com/baechuer/storefront-auth/internal/domain"
)

const (
	PasswordMinLen  = 8
	PasswordMaxLen  = 128
	DefaultMinScore = 3
)

// StrengthResult is the outcome of a zxcvbn estimate.
type StrengthResult struct {
	Score       int
	Warning     string
	Suggestions []string
	CrackTime   string
}

// StrengthGate rejects statistically weak passwords before anything is
// hashed or stored.
type StrengthGate struct {
	minScore int
	pool     *Pool
}

func NewStrengthGate(minScore int, pool *Pool) *StrengthGate {
	if minScore <= 0 || minScore > 4 {
		minScore = DefaultMinScore
	}
	return &StrengthGate{minScore: minScore, pool: pool}
}

// Evaluate scores password against the contextual inputs.
func (g *StrengthGate) Evaluate(password string, inputs []string) StrengthResult {
	res := zxcvbn.PasswordStrength(password, inputs)

	out := StrengthResult{
		Score:     res.Score,
		CrackTime: res.CrackTimeDisplay,
	}
	if res.Score < g.minScore {
		out.Warning, out.Suggestions = feedback(res.MatchSequence)
	}
	return out
}

// Check applies the length bounds and the score threshold.
func (g *StrengthGate) Check(ctx context.Context, password string, inputs ...string) error {
	if password == "" {
		return domain.ErrWeakPassword("password is required")
	}
	n := utf8.RuneCountInString(password)
	if n < PasswordMinLen {
		return domain.ErrWeakPassword("password must be at least 8 characters")
	}
	if n > PasswordMaxLen {
		return domain.ErrWeakPassword("password must be less than 128 characters")
	}

	var res StrengthResult
	if err := g.pool.Do(ctx, func() {
		res = g.Evaluate(password, inputs)
	}); err != nil {
		return domain.ErrInternal(err)
	}

	if res.Score < g.minScore {
		return domain.ErrPasswordTooWeak(domain.StrengthFeedback{
			Score:       res.Score,
			Warning:     res.Warning,
			Suggestions: res.Suggestions,
			CrackTime:   res.CrackTime,
		})
	}
	return nil
}

// feedback turns the weakest patterns zxcvbn found into remediation text.
func feedback(seq []match.Match) (string, []string) {
	var (
		warning     string
		suggestions []string
		seen        = map[string]bool{}
	)
	suggest := func(s string) {
		if !seen[s] {
			seen[s] = true
			suggestions = append(suggestions, s)
		}
	}

	for _, m := range seq {
		switch m.Pattern {
		case "dictionary":
			if m.DictionaryName == "user_inputs" {
				if warning == "" {
					warning = "Passwords based on your name or email are easy to guess."
				}
				suggest("Avoid words taken from your name or email address.")
				continue
			}
			if warning == "" {
				warning = "This is similar to a commonly used password."
			}
			suggest("Add another word or two. Uncommon words are better.")
		case "spatial":
			if warning == "" {
				warning = "Straight rows or patterns of keys are easy to guess."
			}
			suggest("Use a longer keyboard pattern with more turns.")
		case "repeat":
			if warning == "" {
				warning = `Repeats like "aaa" are easy to guess.`
			}
			suggest("Avoid repeated words and characters.")
		case "sequence":
			if warning == "" {
				warning = "Sequences like abc or 6543 are easy to guess."
			}
			suggest("Avoid sequences.")
		case "date":
			if warning == "" {
				warning = "Dates are often easy to guess."
			}
			suggest("Avoid dates and years that are associated with you.")
		}
	}

	suggest("Use a few words, avoid common phrases.")
	return warning, suggestions
}
