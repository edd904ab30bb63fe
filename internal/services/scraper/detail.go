package scraper

import (
	"github.com/toozej/go-thoroughbred/internal/types"
)

const minRaceHeaderCells = 5

// ParseReport describes what happened to the rows of one page.
type ParseReport struct {
	Schema       ColumnSchema
	RaceTable    bool
	Cancelled    int
	Skipped      []SkippedRow
	RowAnomalies []string
}

// SkippedRow is a race table row that was not a record.
type SkippedRow struct {
	Reason string
	Cells  []string
}

// DetailParser assembles a HorseDetailData from parsed page content. It is
// pure: the same content, clock and location always yield the same result.
type DetailParser struct {
	Classifier RowClassifier
	Pedigree   []PedigreeStrategy
}

// NewDetailParser creates a DetailParser with the default pedigree strategies.
func NewDetailParser(classifier RowClassifier) *DetailParser {
	return &DetailParser{
		Classifier: classifier,
		Pedigree:   DefaultPedigreeStrategies(),
	}
}

// ParseHorseDetail extracts the races, registrations, statistics, pedigree
// and profile of one horse. Rows that cannot be read are counted in the
// report and otherwise ignored.
func (d *DetailParser) ParseHorseDetail(content *PageContent) (*types.HorseDetailData, *ParseReport) {
	detail := &types.HorseDetailData{
		Races:         []types.RaceRecord{},
		Registrations: []types.RegistrationRecord{},
	}
	report := &ParseReport{}
	if content == nil {
		report.Schema = ResolveSchema(nil)
		return detail, report
	}

	table, headerRow, ok := findRaceTable(content.Tables)
	if ok {
		report.RaceTable = true
		report.Schema = ResolveSchema(table.Rows[headerRow].Texts())

		for _, row := range table.Rows[headerRow+1:] {
			c := d.Classifier.Classify(report.Schema, row.Cells)
			if c.Anomaly != "" {
				report.RowAnomalies = append(report.RowAnomalies, c.Anomaly)
			}
			switch c.Kind {
			case RowRace:
				detail.Races = append(detail.Races, *c.Race)
			case RowRegistration:
				detail.Registrations = append(detail.Registrations, *c.Registration)
			case RowCancelled:
				report.Cancelled++
			default:
				report.Skipped = append(report.Skipped, SkippedRow{Reason: c.Reason, Cells: row.Texts()})
			}
		}
	} else {
		report.Schema = ResolveSchema(nil)
	}

	detail.Statistics = ParseStatistics(content.Tables)
	detail.Pedigree = ResolvePedigree(content, d.Pedigree)
	applyProfile(detail, content)

	return detail, report
}

// findRaceTable returns the first table with a header row naming the date
// column, together with the index of that row.
func findRaceTable(tables []Table) (Table, int, bool) {
	for _, table := range tables {
		if i, ok := raceHeaderRow(table); ok {
			return table, i, true
		}
	}
	return Table{}, 0, false
}

func raceHeaderRow(table Table) (int, bool) {
	for i, row := range table.Rows {
		if len(row.Cells) < minRaceHeaderCells {
			continue
		}
		schema := ResolveSchema(row.Texts())
		if schema.Column(FieldDate).Valid() && (schema.Column(FieldDistance).Valid() || schema.Column(FieldSurface).Valid()) {
			return i, true
		}
	}
	return 0, false
}

func isRaceTable(table Table) bool {
	_, ok := raceHeaderRow(table)
	return ok
}

// applyProfile copies the labelled profile values into detail.
func applyProfile(detail *types.HorseDetailData, content *PageContent) {
	for _, kv := range content.Pairs {
		switch normalize(kv.Key) {
		case "at", "at adı", "isim", "name":
			setString(&detail.Name, kv.Value)
		case "sahip", "sahibi", "owner":
			setString(&detail.Owner, kv.Value)
		case "yetiştirici", "breeder":
			setString(&detail.Breeder, kv.Value)
		case "handikap", "handikap puanı", "hp", "rating":
			if detail.HandicapPoints == nil {
				detail.HandicapPoints = ParseInt(kv.Value)
			}
		case "ikramiye", "prize money":
			setAmount(&detail.PrizeMoney, kv.Value)
		case "at sahibi primi", "sahip primi", "owner premium":
			setAmount(&detail.OwnerPremium, kv.Value)
		case "yetiştirici primi", "breeder premium":
			setAmount(&detail.BreederPremium, kv.Value)
		case "toplam kazanç", "kazanç", "total earnings":
			setAmount(&detail.TotalEarnings, kv.Value)
		}
	}

	if detail.Name == "" {
		detail.Name = content.Title
	}
	if detail.TotalEarnings == nil && detail.Statistics.All != nil {
		detail.TotalEarnings = detail.Statistics.All.Earnings
	}
}

func setString(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

func setAmount(dst **float64, value string) {
	if *dst == nil {
		*dst = ParseCurrency(value)
	}
}
