package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/toozej/go-thoroughbred/internal/types"
)

// RowKind is the outcome of classifying one table row.
type RowKind int

const (
	RowSkipped RowKind = iota
	RowCancelled
	RowRace
	RowRegistration
)

func (k RowKind) String() string {
	switch k {
	case RowCancelled:
		return "cancelled"
	case RowRace:
		return "race"
	case RowRegistration:
		return "registration"
	default:
		return "skipped"
	}
}

// Classification is the result of RowClassifier.Classify. Exactly one of
// Race and Registration is set for the race and registration kinds.
type Classification struct {
	Kind         RowKind
	Reason       string
	Anomaly      string
	Race         *types.RaceRecord
	Registration *types.RegistrationRecord
}

var (
	timeLikePattern = regexp.MustCompile(`^\d+(?:[.:]\d+)+$`)
	finishPattern   = regexp.MustCompile(`^\d{1,2}$`)

	// labels that mark header and total rows inside the race table
	rowLabels = map[string]bool{
		"tarih": true, "date": true, "toplam": true, "total": true, "genel toplam": true,
	}

	placeholders = map[string]bool{
		"": true, "-": true, "--": true, "—": true,
	}

	cancellationMarkers = []string{"kayıt koşmaz", "deklare koşmaz"}

	// results recorded for starters that did not finish
	nonFinishCodes = map[string]bool{
		"d": true, "dq": true, "dnf": true, "diskalifiye": true, "düştü": true, "koşmadı": true,
	}
)

// DefaultLocation is the time zone of the racing authority.
const DefaultLocation = "Europe/Istanbul"

// RowClassifier turns race table rows into records.
type RowClassifier struct {
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
	// Location decides calendar days; defaults to time.Local.
	Location *time.Location
	// BaseURL resolves relative video and photo links when set.
	BaseURL *url.URL
}

func (c RowClassifier) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c RowClassifier) today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now().In(c.location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.location())
}

// Classify decides what a single row represents and extracts its record.
// A row that cannot be read is skipped, never reported as an error.
func (c RowClassifier) Classify(schema ColumnSchema, cells []Cell) Classification {
	if len(cells) < 3 {
		return Classification{Kind: RowSkipped, Reason: "too few cells"}
	}
	if rowLabels[normalize(cells[0].Text)] {
		return Classification{Kind: RowSkipped, Reason: "label row"}
	}

	date, err := ParseDate(cellText(cells, schema.Index(FieldDate)), c.location())
	if err != nil {
		return Classification{Kind: RowSkipped, Reason: "invalid date"}
	}
	// same-day rows without a result are still pending entries
	future := !date.Before(c.today())

	position, anomaly := c.position(schema, cells)

	if isCancelled(cells) {
		return Classification{Kind: RowCancelled, Reason: "cancellation marker", Anomaly: anomaly}
	}

	if future && position == "" {
		return Classification{
			Kind:         RowRegistration,
			Anomaly:      anomaly,
			Registration: c.registration(schema, cells, date),
		}
	}

	return Classification{
		Kind:    RowRace,
		Anomaly: anomaly,
		Race:    c.race(schema, cells, date, position),
	}
}

// position reads the finishing position. Time formatted text means the schema
// picked the elapsed time column, so the preceding column is tried once.
func (c RowClassifier) position(schema ColumnSchema, cells []Cell) (string, string) {
	idx := schema.Index(FieldPosition)
	text := cellText(cells, idx)
	if !timeLikePattern.MatchString(text) {
		if placeholders[text] {
			return "", ""
		}
		return text, ""
	}

	anomaly := fmt.Sprintf("position column %d holds time formatted text %q", idx, text)
	prev := cellText(cells, idx-1)
	if idx-1 == schema.Index(FieldDate) || !looksLikeFinish(prev) {
		return "", anomaly
	}
	return prev, anomaly
}

// looksLikeFinish reports whether text is a finishing place or a non-finish code.
func looksLikeFinish(text string) bool {
	return finishPattern.MatchString(text) || nonFinishCodes[normalize(text)]
}

func isCancelled(cells []Cell) bool {
	parts := make([]string, 0, len(cells))
	for _, cell := range cells {
		parts = append(parts, cell.Text)
	}
	text := strings.Join(strings.Fields(normalize(strings.Join(parts, " "))), " ")
	for _, marker := range cancellationMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func (c RowClassifier) race(schema ColumnSchema, cells []Cell, date time.Time, position string) *types.RaceRecord {
	surface, surfaceRaw := ParseSurface(cellText(cells, schema.Index(FieldSurface)))
	number, name := SplitRaceNumberName(cellText(cells, schema.Index(FieldRace)))

	return &types.RaceRecord{
		Date:           date,
		City:           cellText(cells, schema.Index(FieldCity)),
		DistanceMeters: ParseDistance(cellText(cells, schema.Index(FieldDistance))),
		Surface:        surface,
		SurfaceRaw:     surfaceRaw,
		Position:       position,
		ElapsedTime:    cellText(cells, schema.Index(FieldElapsed)),
		Weight:         cellText(cells, schema.Index(FieldWeight)),
		Jockey:         jockey(schema, cells),
		RaceNumber:     number,
		RaceName:       name,
		RaceType:       ResolveRaceType(cells, schema, name),
		Trainer: types.Person{
			Name: cellText(cells, schema.Index(FieldTrainer)),
			ID:   ExtractQueryID(cellHref(cells, schema.Index(FieldTrainer)), "AntrenorId", "AntronorId"),
		},
		HandicapPoints: ParseInt(cellText(cells, schema.Index(FieldHandicap))),
		Prize:          ParseCurrency(cellText(cells, schema.Index(FieldPrize))),
		VideoURL:       c.link(cellHref(cells, schema.Index(FieldVideo))),
		PhotoURL:       c.link(cellHref(cells, schema.Index(FieldPhoto))),
	}
}

func (c RowClassifier) registration(schema ColumnSchema, cells []Cell, date time.Time) *types.RegistrationRecord {
	surface, surfaceRaw := ParseSurface(cellText(cells, schema.Index(FieldSurface)))
	_, name := SplitRaceNumberName(cellText(cells, schema.Index(FieldRace)))

	reg := &types.RegistrationRecord{
		Date:           date,
		City:           cellText(cells, schema.Index(FieldCity)),
		DistanceMeters: ParseDistance(cellText(cells, schema.Index(FieldDistance))),
		Surface:        surface,
		SurfaceRaw:     surfaceRaw,
		RaceType:       ResolveRaceType(cells, schema, name),
		Kind:           types.KindRegistered,
	}

	if j := jockey(schema, cells); !placeholders[j.Name] {
		reg.Jockey = &j
		reg.Kind = types.KindDeclared
	}
	return reg
}

func jockey(schema ColumnSchema, cells []Cell) types.Person {
	idx := schema.Index(FieldJockey)
	return types.Person{
		Name: cellText(cells, idx),
		ID:   ExtractQueryID(cellHref(cells, idx), "JokeyId"),
	}
}

// link resolves href against the page URL.
func (c RowClassifier) link(href string) string {
	if href == "" || c.BaseURL == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return c.BaseURL.ResolveReference(ref).String()
}
