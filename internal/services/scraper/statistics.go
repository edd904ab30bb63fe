package scraper

import (
	"github.com/toozej/go-thoroughbred/internal/types"
)

const minStatisticsCells = 7

type statisticsCategory int

const (
	categoryNone statisticsCategory = iota
	categoryAll
	categoryTurf
	categoryDirt
	categorySynthetic
)

func categoryOf(label string) statisticsCategory {
	switch normalize(label) {
	case "toplam", "genel", "genel toplam":
		return categoryAll
	case "çim":
		return categoryTurf
	case "kum":
		return categoryDirt
	case "sentetik":
		return categorySynthetic
	default:
		return categoryNone
	}
}

// ParseStatistics collects the per-surface totals from every table on the
// page. The first row of each category wins; missing categories stay nil.
func ParseStatistics(tables []Table) types.Statistics {
	var stats types.Statistics
	for _, table := range tables {
		for _, row := range table.Rows {
			if len(row.Cells) < minStatisticsCells {
				continue
			}
			var slot **types.SurfaceStatistics
			switch categoryOf(row.Cells[0].Text) {
			case categoryAll:
				slot = &stats.All
			case categoryTurf:
				slot = &stats.Turf
			case categoryDirt:
				slot = &stats.Dirt
			case categorySynthetic:
				slot = &stats.Synthetic
			default:
				continue
			}
			if *slot == nil {
				*slot = parseStatisticsRow(row.Cells)
			}
		}
	}
	return stats
}

func parseStatisticsRow(cells []Cell) *types.SurfaceStatistics {
	count := func(i int) int {
		n, _ := parseDigits(cells[i].Text)
		return n
	}
	return &types.SurfaceStatistics{
		Races:    count(1),
		Wins:     count(2),
		Seconds:  count(3),
		Thirds:   count(4),
		Fourths:  count(5),
		Fifths:   count(6),
		Earnings: ParseCurrency(cells[len(cells)-1].Text),
	}
}

func isStatisticsTable(table Table) bool {
	for _, row := range table.Rows {
		if len(row.Cells) >= minStatisticsCells && categoryOf(row.Cells[0].Text) != categoryNone {
			return true
		}
	}
	return false
}
