package search

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/sirupsen/logrus"

	"github.com/toozej/go-thoroughbred/internal/types"
)

type fakeLister struct {
	horses []types.HorseSummary
	err    error
}

func (f *fakeLister) ListHorses(ctx context.Context) ([]types.HorseSummary, error) {
	return f.horses, f.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func stable() *fakeLister {
	return &fakeLister{horses: []types.HorseSummary{
		{ExternalID: "100", Name: "KARAYEL"},
		{ExternalID: "200", Name: "KARAYEL YILDIZI"},
		{ExternalID: "300", Name: "ŞAHİN"},
		{ExternalID: "400", Name: "IRMAK"},
		{ExternalID: "500", Name: "RÜZGAR GÜLÜ"},
	}}
}

func TestNewFuzzyHorseSearcher(t *testing.T) {
	lister := stable()
	logger := quietLogger()
	searcher := NewFuzzyHorseSearcher(lister, logger)

	if searcher.horses != lister {
		t.Error("NewFuzzyHorseSearcher() did not set the lister correctly")
	}
	if searcher.logger != logger {
		t.Error("NewFuzzyHorseSearcher() did not set logger correctly")
	}
}

func TestFuzzyHorseSearcher_Search(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantFirst string
		minConf   float64
		maxConf   float64
	}{
		{name: "exact match", query: "KARAYEL", wantFirst: "100", minConf: 1.0, maxConf: 1.0},
		{name: "case insensitive", query: "karayel", wantFirst: "100", minConf: 1.0, maxConf: 1.0},
		{name: "substring", query: "yildizi", wantFirst: "200", minConf: 0.8, maxConf: 1.0},
		{name: "dotted capital", query: "sahin", wantFirst: "300", minConf: 1.0, maxConf: 1.0},
		{name: "dotless capital", query: "irmak", wantFirst: "400", minConf: 1.0, maxConf: 1.0},
		{name: "diacritics", query: "ruzgar", wantFirst: "500", minConf: 0.8, maxConf: 1.0},
		{name: "scattered characters", query: "rzgl", wantFirst: "500", minConf: 0.1, maxConf: 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := NewFuzzyHorseSearcher(stable(), quietLogger())

			matches, err := searcher.Search(context.Background(), tt.query, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(matches) == 0 {
				t.Fatal("expected at least one match")
			}
			first := matches[0]
			if first.Horse.ExternalID != tt.wantFirst {
				t.Errorf("expected %s first, got %+v", tt.wantFirst, first)
			}
			if first.Confidence < tt.minConf || first.Confidence > tt.maxConf {
				t.Errorf("confidence %v outside [%v, %v]", first.Confidence, tt.minConf, tt.maxConf)
			}
		})
	}
}

func TestFuzzyHorseSearcher_Ordering(t *testing.T) {
	searcher := NewFuzzyHorseSearcher(stable(), quietLogger())

	matches, err := searcher.Search(context.Background(), "karayel", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) < 2 {
		t.Fatalf("expected two matches, got %d", len(matches))
	}
	if matches[0].Horse.ExternalID != "100" || matches[1].Horse.ExternalID != "200" {
		t.Errorf("expected exact match before substring match, got %+v", matches)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Confidence > matches[i-1].Confidence {
			t.Errorf("matches not sorted by confidence: %+v", matches)
		}
	}
}

func TestFuzzyHorseSearcher_Limit(t *testing.T) {
	searcher := NewFuzzyHorseSearcher(stable(), quietLogger())

	matches, err := searcher.Search(context.Background(), "a", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("expected limit of 2, got %d", len(matches))
	}
}

func TestFuzzyHorseSearcher_Errors(t *testing.T) {
	ctx := context.Background()

	searcher := NewFuzzyHorseSearcher(stable(), quietLogger())
	if _, err := searcher.Search(ctx, "   ", 5); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}

	boom := errors.New("database unavailable")
	failing := NewFuzzyHorseSearcher(&fakeLister{err: boom}, quietLogger())
	if _, err := failing.Search(ctx, "karayel", 5); !errors.Is(err, boom) {
		t.Errorf("expected the lister error to be wrapped, got %v", err)
	}

	empty := NewFuzzyHorseSearcher(&fakeLister{}, quietLogger())
	matches, err := empty.Search(ctx, "karayel", 5)
	if err != nil || len(matches) != 0 {
		t.Errorf("expected no matches from an empty store, got %v, %v", matches, err)
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"KARAYEL", "karayel"},
		{"ŞAHİN", "sahin"},
		{"IRMAK", "irmak"},
		{"  RÜZGAR   GÜLÜ ", "ruzgar gulu"},
		{"ÇAĞLAYAN", "caglayan"},
		{"SADLER'S WELLS", "sadler's wells"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Fold(tt.input); got != tt.want {
				t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestProperty_Search(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234) // Use a fixed seed for reproducibility
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("Fold is idempotent", prop.ForAll(
		func(s string) bool {
			return Fold(Fold(s)) == Fold(s)
		},
		gen.AlphaString(),
	))

	properties.Property("a stored name finds its horse first with full confidence", prop.ForAll(
		func(name string) bool {
			lister := stable()
			lister.horses = append([]types.HorseSummary{{ExternalID: "001", Name: name}}, lister.horses...)
			searcher := NewFuzzyHorseSearcher(lister, quietLogger())

			matches, err := searcher.Search(context.Background(), name, 0)
			if err != nil || len(matches) == 0 {
				return false
			}
			return matches[0].Horse.ExternalID == "001" && matches[0].Confidence == 1.0
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t)
}
