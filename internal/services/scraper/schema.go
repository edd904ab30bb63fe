package scraper

import (
	"fmt"
	"strings"
)

// Field is a logical column of the race table.
type Field int

const (
	FieldDate Field = iota
	FieldCity
	FieldDistance
	FieldSurface
	FieldPosition
	FieldElapsed
	FieldWeight
	FieldJockey
	FieldRace
	FieldRaceType
	FieldTrainer
	FieldHandicap
	FieldPrize
	FieldVideo
	FieldPhoto
	fieldCount
)

var fieldNames = [fieldCount]string{
	"date", "city", "distance", "surface", "position", "elapsed_time", "weight",
	"jockey", "race", "race_type", "trainer", "handicap", "prize", "video", "photo",
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// ColumnSource records how a column index was obtained.
type ColumnSource int

const (
	SourceDefault ColumnSource = iota
	SourceHeader
	SourceAdjacent
)

func (s ColumnSource) String() string {
	switch s {
	case SourceHeader:
		return "header"
	case SourceAdjacent:
		return "adjacent"
	default:
		return "default"
	}
}

// Column is the resolved physical index of one logical field.
type Column struct {
	Index  int
	Source ColumnSource
}

// Valid reports whether the column was derived from the page rather than a
// hard-coded default.
func (c Column) Valid() bool {
	return c.Source != SourceDefault
}

// ColumnSchema maps every logical field to a column index. It is built once
// per page and never mutated afterwards.
type ColumnSchema struct {
	Columns   [fieldCount]Column
	Anomalies []string
}

// Column returns the resolved column of f.
func (s ColumnSchema) Column(f Field) Column {
	return s.Columns[f]
}

// Index returns the resolved column index of f.
func (s ColumnSchema) Index(f Field) int {
	return s.Columns[f].Index
}

// owner returns the field whose header resolved to idx, or fieldCount.
func (s ColumnSchema) owner(idx int) Field {
	for f := Field(0); f < fieldCount; f++ {
		if s.Columns[f].Source == SourceHeader && s.Columns[f].Index == idx {
			return f
		}
	}
	return fieldCount
}

const defaultPositionIndex = 4

type headerRule struct {
	field    Field
	exact    []string
	contains []string
	exclude  []string
	fallback int
}

// headerRules are evaluated in order. Elapsed time is claimed before position
// and race type before race so the broader patterns cannot steal a header.
var headerRules = []headerRule{
	{field: FieldDate, contains: []string{"tarih", "date"}, fallback: 0},
	{field: FieldCity, contains: []string{"şehir", "sehir", "hipodrom", "city"}, fallback: 1},
	{field: FieldDistance, contains: []string{"mesafe", "msf", "distance"}, fallback: 2},
	{field: FieldSurface, contains: []string{"pist", "surface", "track"}, fallback: 3},
	{field: FieldElapsed, contains: []string{"derece", "time"}, fallback: 5},
	{field: FieldPosition, exact: []string{"s"}, contains: []string{"sıra", "finish"}, fallback: defaultPositionIndex},
	{field: FieldWeight, contains: []string{"sıklet", "siklet", "kilo", "weight"}, fallback: 6},
	{field: FieldJockey, contains: []string{"jokey", "jockey"}, fallback: 8},
	{field: FieldRaceType, contains: []string{"cins", "tür", "type"}, exclude: []string{"yaş", "yas", "age"}, fallback: 13},
	{field: FieldRace, contains: []string{"k.no", "k. no", "koşu", "kosu", "race"}, fallback: 12},
	{field: FieldTrainer, contains: []string{"antrenör", "antrenor", "trainer"}, fallback: 14},
	{field: FieldHandicap, exact: []string{"hp"}, contains: []string{"handikap p", "rating"}, fallback: 16},
	{field: FieldPrize, contains: []string{"ikramiye", "prize"}, fallback: 17},
	{field: FieldVideo, contains: []string{"video"}, fallback: 18},
	{field: FieldPhoto, contains: []string{"foto", "photo"}, fallback: 19},
}

func (r headerRule) matches(header string) bool {
	tr, def := normalizeVariants(header)
	if tr == "" {
		return false
	}
	for _, ex := range r.exclude {
		if strings.Contains(tr, ex) || strings.Contains(def, ex) {
			return false
		}
	}
	for _, e := range r.exact {
		if tr == e || def == e {
			return true
		}
	}
	for _, c := range r.contains {
		if strings.Contains(tr, c) || strings.Contains(def, c) {
			return true
		}
	}
	return false
}

// ResolveSchema maps header texts to logical fields. It never fails: fields
// without a matching header fall back to fixed default indices.
func ResolveSchema(headers []string) ColumnSchema {
	var schema ColumnSchema
	claimed := make([]bool, len(headers))
	matched := [fieldCount]bool{}

	for _, rule := range headerRules {
		schema.Columns[rule.field] = Column{Index: rule.fallback, Source: SourceDefault}
		for i, h := range headers {
			if claimed[i] || !rule.matches(h) {
				continue
			}
			schema.Columns[rule.field] = Column{Index: i, Source: SourceHeader}
			claimed[i] = true
			matched[rule.field] = true
			break
		}
	}

	elapsed := schema.Columns[FieldElapsed]
	if !matched[FieldPosition] && elapsed.Valid() && elapsed.Index > 0 {
		schema.Columns[FieldPosition] = Column{Index: elapsed.Index - 1, Source: SourceAdjacent}
	}

	if schema.Columns[FieldPosition].Index == elapsed.Index {
		schema.Anomalies = append(schema.Anomalies,
			fmt.Sprintf("position and elapsed time both resolved to column %d", elapsed.Index))
		schema.Columns[FieldPosition] = adjacentPosition(elapsed.Index)
	}

	return schema
}

// adjacentPosition re-derives the position column from the elapsed time column.
func adjacentPosition(elapsed int) Column {
	if elapsed > 0 {
		return Column{Index: elapsed - 1, Source: SourceAdjacent}
	}
	return Column{Index: defaultPositionIndex, Source: SourceDefault}
}
