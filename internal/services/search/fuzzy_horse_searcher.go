package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/toozej/go-thoroughbred/internal/types"
)

// DefaultLimit caps results when the caller passes a non-positive limit.
const DefaultLimit = 10

// ErrEmptyQuery is returned for blank search queries.
var ErrEmptyQuery = errors.New("search query cannot be empty")

// HorseLister is the slice of the store the searcher reads.
type HorseLister interface {
	ListHorses(ctx context.Context) ([]types.HorseSummary, error)
}

// FuzzyHorseSearcher matches names of stored horses.
type FuzzyHorseSearcher struct {
	horses HorseLister
	logger *logrus.Logger
}

// NewFuzzyHorseSearcher creates a new fuzzy horse searcher
func NewFuzzyHorseSearcher(horses HorseLister, logger *logrus.Logger) *FuzzyHorseSearcher {
	return &FuzzyHorseSearcher{
		horses: horses,
		logger: logger,
	}
}

var _ types.HorseSearcher = (*FuzzyHorseSearcher)(nil)

// names adapts folded horse names to fuzzy.Source.
type names []string

func (n names) String(i int) string { return n[i] }
func (n names) Len() int            { return len(n) }

// Search returns stored horses whose names match query, best first.
func (f *FuzzyHorseSearcher) Search(ctx context.Context, query string, limit int) ([]types.HorseMatch, error) {
	folded := Fold(query)
	if folded == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	horses, err := f.horses.ListHorses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list horses: %w", err)
	}

	source := make(names, len(horses))
	for i, h := range horses {
		source[i] = Fold(h.Name)
	}

	found := fuzzy.FindFrom(folded, source)
	matches := make([]types.HorseMatch, 0, len(found))
	for _, m := range found {
		matches = append(matches, types.HorseMatch{
			Horse:      horses[m.Index],
			Confidence: matchConfidence(folded, m.Str, m.Score),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].Horse.ExternalID < matches[j].Horse.ExternalID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	f.logger.WithFields(logrus.Fields{
		"component":  "search",
		"operation":  "fuzzy_search",
		"query":      query,
		"candidates": len(horses),
		"matches":    len(matches),
	}).Debug("Completed horse search")

	return matches, nil
}

// matchConfidence scores a hit between 0.1 and 1.0. Exact and substring
// matches rank above scattered character matches.
func matchConfidence(query, name string, score int) float64 {
	if query == name {
		return 1.0
	}

	if strings.Contains(name, query) {
		ratio := float64(len(query)) / float64(len(name))
		return 0.8 + ratio*0.2
	}

	maxExpected := float64(len(query) * 2)
	confidence := float64(score) / maxExpected * 0.7
	if confidence > 0.7 {
		confidence = 0.7
	}
	if confidence < 0.1 {
		confidence = 0.1
	}
	return confidence
}

var foldDotless = strings.NewReplacer("ı", "i")

// Fold lower-cases s under Turkish rules and strips diacritics so that
// "sahin" finds "ŞAHİN" and "irmak" finds "IRMAK".
func Fold(s string) string {
	lowered := cases.Lower(language.Turkish).String(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, lowered)
	if err != nil {
		stripped = lowered
	}
	return strings.Join(strings.Fields(foldDotless.Replace(stripped)), " ")
}
