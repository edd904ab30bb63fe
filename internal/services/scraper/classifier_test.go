package scraper

import (
	"net/url"
	"strconv"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/toozej/go-thoroughbred/internal/types"
)

func istanbul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(DefaultLocation)
	if err != nil {
		t.Fatalf("failed to load %s: %v", DefaultLocation, err)
	}
	return loc
}

func testClassifier(t *testing.T) RowClassifier {
	t.Helper()
	loc := istanbul(t)
	base, _ := url.Parse("https://www.tjk.org/TR/YarisSever/Query/Page/AtKosuBilgileri?QueryParameter_AtId=1")
	return RowClassifier{
		Now:      func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, loc) },
		Location: loc,
		BaseURL:  base,
	}
}

// row builds a 20 cell row laid out like fullHeaders.
func row(values map[int]Cell) []Cell {
	cells := make([]Cell, len(fullHeaders))
	for idx, cell := range values {
		cells[idx] = cell
	}
	return cells
}

func text(s string) Cell { return Cell{Text: s} }

func TestClassify_Scenarios(t *testing.T) {
	schema := ResolveSchema(fullHeaders)
	classifier := testClassifier(t)

	t.Run("past race", func(t *testing.T) {
		got := classifier.Classify(schema, row(map[int]Cell{
			0:  text("01.03.2020"),
			1:  text("İstanbul"),
			2:  text("1400"),
			3:  text("Ç:Normal"),
			4:  text("3"),
			5:  text("1.24.50"),
			6:  text("57"),
			8:  {Text: "A. ÇELİK", Href: "/J?QueryParameter_JokeyId=123"},
			12: text("5 - MAIDEN"),
			13: text("Şartlı 3"),
			14: {Text: "S. KAYA", Href: "/A?QueryParameter_AntrenorId=77"},
			16: text("45"),
			17: text("12.500,00 t"),
			18: {Text: "Video", Href: "/video/5.mp4"},
		}))

		if got.Kind != RowRace || got.Race == nil {
			t.Fatalf("expected race, got %s (%s)", got.Kind, got.Reason)
		}
		race := got.Race
		if race.Position != "3" || race.ElapsedTime != "1.24.50" {
			t.Errorf("unexpected position/elapsed: %q %q", race.Position, race.ElapsedTime)
		}
		if race.Surface != types.SurfaceTurf || race.SurfaceRaw != "Ç:Normal" {
			t.Errorf("unexpected surface: %q %q", race.Surface, race.SurfaceRaw)
		}
		if deref(race.DistanceMeters) != 1400 || deref(race.RaceNumber) != 5 || deref(race.HandicapPoints) != 45 {
			t.Errorf("unexpected numbers: %v %v %v",
				deref(race.DistanceMeters), deref(race.RaceNumber), deref(race.HandicapPoints))
		}
		if race.Jockey != (types.Person{Name: "A. ÇELİK", ID: "123"}) {
			t.Errorf("unexpected jockey: %+v", race.Jockey)
		}
		if race.Trainer != (types.Person{Name: "S. KAYA", ID: "77"}) {
			t.Errorf("unexpected trainer: %+v", race.Trainer)
		}
		if race.RaceName != "MAIDEN" || race.RaceType != "Şartlı 3" {
			t.Errorf("unexpected race name/type: %q %q", race.RaceName, race.RaceType)
		}
		if race.Prize == nil || *race.Prize != 12500 {
			t.Errorf("unexpected prize: %v", race.Prize)
		}
		if race.VideoURL != "https://www.tjk.org/video/5.mp4" {
			t.Errorf("unexpected video URL: %q", race.VideoURL)
		}
		if race.PhotoURL != "" {
			t.Errorf("expected no photo URL, got %q", race.PhotoURL)
		}
		if got.Anomaly != "" {
			t.Errorf("expected no anomaly, got %q", got.Anomaly)
		}
	})

	t.Run("future entry without jockey is registered", func(t *testing.T) {
		got := classifier.Classify(schema, row(map[int]Cell{
			0:  text("15.06.2025"),
			1:  text("Ankara"),
			2:  text("1600"),
			3:  text("Kum:Normal"),
			12: text("7 - ŞARTLI 2"),
			13: text("Şartlı 2"),
		}))

		if got.Kind != RowRegistration || got.Registration == nil {
			t.Fatalf("expected registration, got %s (%s)", got.Kind, got.Reason)
		}
		reg := got.Registration
		if reg.Kind != types.KindRegistered || reg.Jockey != nil {
			t.Errorf("expected registered entry without jockey, got %s %+v", reg.Kind, reg.Jockey)
		}
		if reg.Surface != types.SurfaceDirt || reg.RaceType != "Şartlı 2" || reg.City != "Ankara" {
			t.Errorf("unexpected registration: %+v", reg)
		}
	})

	t.Run("future entry with jockey is declared", func(t *testing.T) {
		got := classifier.Classify(schema, row(map[int]Cell{
			0: text("20.06.2025"),
			3: text("Sentetik"),
			4: text("-"),
			8: {Text: "H. KARATAŞ", Href: "/J?QueryParameter_JokeyId=456"},
		}))

		if got.Kind != RowRegistration || got.Registration == nil {
			t.Fatalf("expected registration, got %s (%s)", got.Kind, got.Reason)
		}
		reg := got.Registration
		if reg.Kind != types.KindDeclared || reg.Jockey == nil || reg.Jockey.ID != "456" {
			t.Errorf("expected declared entry with jockey 456, got %s %+v", reg.Kind, reg.Jockey)
		}
		if reg.Surface != types.SurfaceSynthetic {
			t.Errorf("expected synthetic surface, got %q", reg.Surface)
		}
	})

	t.Run("cancelled entry is dropped", func(t *testing.T) {
		got := classifier.Classify(schema, row(map[int]Cell{
			0: text("10.06.2024"),
			5: text("Kayıt Koşmaz"),
			8: text("A. ÇELİK"),
		}))

		if got.Kind != RowCancelled || got.Race != nil || got.Registration != nil {
			t.Errorf("expected cancelled row without records, got %+v", got)
		}
	})

	t.Run("future row with position is a race", func(t *testing.T) {
		got := classifier.Classify(schema, row(map[int]Cell{
			0: text("16.06.2024"),
			4: text("1"),
		}))
		if got.Kind != RowRace {
			t.Errorf("expected race, got %s", got.Kind)
		}
	})

	t.Run("same day row without position is declared", func(t *testing.T) {
		got := classifier.Classify(schema, row(map[int]Cell{
			0: text("15.06.2024"),
			8: text("A. ÇELİK"),
		}))
		if got.Kind != RowRegistration || got.Registration == nil || got.Race != nil {
			t.Fatalf("expected registration, got %s", got.Kind)
		}
		if got.Registration.Kind != types.KindDeclared {
			t.Errorf("expected declared entry, got %s", got.Registration.Kind)
		}
	})

	t.Run("same day row with position is a race", func(t *testing.T) {
		got := classifier.Classify(schema, row(map[int]Cell{
			0: text("15.06.2024"),
			4: text("2"),
		}))
		if got.Kind != RowRace || got.Race == nil || got.Race.Position != "2" {
			t.Errorf("expected race with position 2, got %s %+v", got.Kind, got.Race)
		}
	})

	t.Run("previous day row without position is a race", func(t *testing.T) {
		got := classifier.Classify(schema, row(map[int]Cell{
			0: text("14.06.2024"),
		}))
		if got.Kind != RowRace {
			t.Errorf("expected race, got %s", got.Kind)
		}
	})
}

func TestClassify_Skipped(t *testing.T) {
	schema := ResolveSchema(fullHeaders)
	classifier := testClassifier(t)

	tests := []struct {
		name   string
		cells  []Cell
		reason string
	}{
		{name: "too few cells", cells: []Cell{text("Kayıt bulunamadı")}, reason: "too few cells"},
		{name: "header row", cells: row(map[int]Cell{0: text("Tarih"), 1: text("Şehir")}), reason: "label row"},
		{name: "total row", cells: row(map[int]Cell{0: text("TOPLAM")}), reason: "label row"},
		{name: "english total", cells: row(map[int]Cell{0: text("Total")}), reason: "label row"},
		{name: "invalid date", cells: row(map[int]Cell{0: text("1.3.2020")}), reason: "invalid date"},
		{name: "empty date", cells: row(map[int]Cell{4: text("3")}), reason: "invalid date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifier.Classify(schema, tt.cells)
			if got.Kind != RowSkipped {
				t.Fatalf("expected skipped row, got %s", got.Kind)
			}
			if got.Reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, got.Reason)
			}
		})
	}
}

func TestClassify_TimeFormattedPosition(t *testing.T) {
	classifier := testClassifier(t)

	t.Run("preceding column is used", func(t *testing.T) {
		schema := ResolveSchema([]string{"Tarih", "Şehir", "Msf", "Pist", "S", "Derece"})
		got := classifier.Classify(schema, []Cell{
			text("01.03.2020"), text("Bursa"), text("1400"), text("2"), text("1.24.50"), text("57"),
		})

		if got.Kind != RowRace || got.Race.Position != "2" {
			t.Fatalf("expected race with position 2, got %s %+v", got.Kind, got.Race)
		}
		if got.Anomaly == "" {
			t.Error("expected an anomaly to be reported")
		}
	})

	t.Run("date column is never used", func(t *testing.T) {
		schema := ResolveSchema([]string{"Tarih", "S", "Derece"})
		got := classifier.Classify(schema, []Cell{
			text("01.03.2020"), text("1:24.50"), text("57"),
		})

		if got.Kind != RowRace || got.Race.Position != "" {
			t.Fatalf("expected race without position, got %s %+v", got.Kind, got.Race)
		}
		if got.Anomaly == "" {
			t.Error("expected an anomaly to be reported")
		}
	})

	t.Run("surface text in the preceding column is not a position", func(t *testing.T) {
		schema := ResolveSchema([]string{"Tarih", "Şehir", "Msf", "Pist", "S", "Derece"})
		got := classifier.Classify(schema, []Cell{
			text("20.06.2024"), text("Bursa"), text("1400"), text("Ç:Normal"), text("1.24.50"), text(""),
		})

		if got.Kind != RowRegistration || got.Registration == nil {
			t.Fatalf("expected registration, got %s %+v", got.Kind, got.Race)
		}
		if got.Anomaly == "" {
			t.Error("expected an anomaly to be reported")
		}
	})

	t.Run("non-finish code in the preceding column is kept", func(t *testing.T) {
		schema := ResolveSchema([]string{"Tarih", "Şehir", "Msf", "Pist", "S", "Derece"})
		got := classifier.Classify(schema, []Cell{
			text("01.03.2020"), text("Bursa"), text("1400"), text("DQ"), text("1.24.50"), text("57"),
		})

		if got.Kind != RowRace || got.Race.Position != "DQ" {
			t.Fatalf("expected race with position DQ, got %s %+v", got.Kind, got.Race)
		}
	})

	t.Run("time formatted future row stays a registration", func(t *testing.T) {
		schema := ResolveSchema([]string{"Tarih", "Şehir", "S", "Derece"})
		got := classifier.Classify(schema, []Cell{
			text("01.07.2024"), text("-"), text("2.01"), text(""),
		})

		if got.Kind != RowRegistration {
			t.Fatalf("expected registration, got %s", got.Kind)
		}
	})
}

func TestRowKindString(t *testing.T) {
	tests := map[RowKind]string{
		RowSkipped:      "skipped",
		RowCancelled:    "cancelled",
		RowRace:         "race",
		RowRegistration: "registration",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestProperty_Classification(t *testing.T) {
	loc := istanbul(t)
	schema := ResolveSchema(fullHeaders)
	classifier := testClassifier(t)
	today := time.Date(2024, 6, 15, 0, 0, 0, 0, loc)

	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234) // Use a fixed seed for reproducibility
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("same-day and future rows without a position are registrations", prop.ForAll(
		func(days int, placeholder string, jockey string) bool {
			date := today.AddDate(0, 0, days).Format(DateLayout)
			got := classifier.Classify(schema, row(map[int]Cell{
				0: text(date),
				4: text(placeholder),
				8: text(jockey),
			}))
			if got.Kind != RowRegistration || got.Registration == nil || got.Race != nil {
				return false
			}
			wantKind := types.KindRegistered
			if jockey != "" {
				wantKind = types.KindDeclared
			}
			return got.Registration.Kind == wantKind
		},
		gen.IntRange(0, 3650),
		gen.OneConstOf("", "-", "--", "—"),
		gen.OneConstOf("", "A. ÇELİK", "H. KARATAŞ"),
	))

	properties.Property("rows with a position are races", prop.ForAll(
		func(days int, position int) bool {
			date := today.AddDate(0, 0, days).Format(DateLayout)
			got := classifier.Classify(schema, row(map[int]Cell{
				0: text(date),
				4: text(strconv.Itoa(position)),
			}))
			return got.Kind == RowRace && got.Race != nil && got.Registration == nil
		},
		gen.IntRange(-3650, 3650),
		gen.IntRange(1, 24),
	))

	properties.Property("past rows are races", prop.ForAll(
		func(days int) bool {
			date := today.AddDate(0, 0, -days).Format(DateLayout)
			got := classifier.Classify(schema, row(map[int]Cell{0: text(date)}))
			return got.Kind == RowRace
		},
		gen.IntRange(1, 3650),
	))

	properties.Property("cancellation markers drop the row", prop.ForAll(
		func(days int, idx int, marker string) bool {
			date := today.AddDate(0, 0, days).Format(DateLayout)
			got := classifier.Classify(schema, row(map[int]Cell{
				0:   text(date),
				4:   text("1"),
				idx: text(marker),
			}))
			return got.Kind == RowCancelled && got.Race == nil && got.Registration == nil
		},
		gen.IntRange(-3650, 3650),
		gen.IntRange(1, len(fullHeaders)-1),
		gen.OneConstOf("Kayıt Koşmaz", "KAYIT KOŞMAZ", "Deklare  Koşmaz", "deklare koşmaz (veteriner)"),
	))

	properties.TestingRun(t)
}
