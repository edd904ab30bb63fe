package scraper

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/toozej/go-thoroughbred/internal/types"
)

// PedigreeStrategy recovers whatever ancestors it can from the page.
type PedigreeStrategy func(content *PageContent) types.Pedigree

// DefaultPedigreeStrategies returns the strategies in precedence order.
func DefaultPedigreeStrategies() []PedigreeStrategy {
	return []PedigreeStrategy{
		KeyValuePedigree,
		TablePedigree,
		FreeTextPedigree,
	}
}

var (
	countryPattern = regexp.MustCompile(`\((\p{Lu}{2,3})\)`)

	freeTextSire = regexp.MustCompile(`(?m)\b(?:Baba|Sire)\s*:?\s*(\p{Lu}.*?)(?:\s+(?:Baba|Anne|Sire|Dam|Annenin|Sahip|Yetiştirici|Antrenör|Doğum|Renk)\s*:|$)`)
	freeTextDam  = regexp.MustCompile(`(?m)\b(?:Anne|Dam)\s*:?\s*(\p{Lu}.*?)(?:\s+(?:Baba|Anne|Sire|Dam|Annenin|Sahip|Yetiştirici|Antrenör|Doğum|Renk)\s*:|$)`)
)

// ResolvePedigree merges the strategies left to right. A field set by an
// earlier strategy is never overwritten and resolution stops as soon as both
// parents are known.
func ResolvePedigree(content *PageContent, strategies []PedigreeStrategy) types.Pedigree {
	var result types.Pedigree
	if content == nil {
		return result
	}
	for _, strategy := range strategies {
		if result.HasParents() {
			break
		}
		mergePedigree(&result, strategy(content))
	}
	return result
}

func mergePedigree(dst *types.Pedigree, src types.Pedigree) {
	fill := func(d *types.Ancestor, s types.Ancestor) {
		if d.IsZero() && !s.IsZero() {
			*d = s
		}
	}
	fill(&dst.Sire, src.Sire)
	fill(&dst.Dam, src.Dam)
	fill(&dst.SireSire, src.SireSire)
	fill(&dst.SireDam, src.SireDam)
	fill(&dst.DamSire, src.DamSire)
	fill(&dst.DamDam, src.DamDam)
}

// ParseAncestor reads "NAME (CC) 12 d e" style text into a name and country.
// Text that does not start with a capital letter yields a zero Ancestor.
func ParseAncestor(text string) types.Ancestor {
	text = collapse(text)
	name := text
	if i := strings.IndexAny(name, "(0123456789"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)

	runes := []rune(name)
	if len(runes) == 0 || !unicode.IsUpper(runes[0]) {
		return types.Ancestor{}
	}

	ancestor := types.Ancestor{Name: name}
	if m := countryPattern.FindStringSubmatch(text); m != nil {
		ancestor.Country = m[1]
	}
	return ancestor
}

// KeyValuePedigree reads the labelled key/value pairs of the profile block.
func KeyValuePedigree(content *PageContent) types.Pedigree {
	var p types.Pedigree
	for _, kv := range content.Pairs {
		switch normalize(kv.Key) {
		case "baba", "sire":
			if p.Sire.IsZero() {
				p.Sire = ParseAncestor(kv.Value)
			}
		case "anne", "dam":
			if p.Dam.IsZero() {
				dam, _, _ := strings.Cut(kv.Value, "/")
				p.Dam = ParseAncestor(dam)
			}
		case "annenin babası", "dam sire", "damsire":
			if p.DamSire.IsZero() {
				p.DamSire = ParseAncestor(kv.Value)
			}
		}
	}
	return p
}

// TablePedigree reads the first non-race, non-statistics table that carries
// parenthesised country codes. The first data row lists the sire, the dam
// and up to four grandparents.
func TablePedigree(content *PageContent) types.Pedigree {
	for _, table := range content.Tables {
		if isRaceTable(table) || isStatisticsTable(table) || !hasCountryCode(table) {
			continue
		}
		for _, row := range table.Rows {
			if row.Header || len(row.Cells) < 2 {
				continue
			}
			ancestors := make([]types.Ancestor, 6)
			for i := 0; i < len(row.Cells) && i < len(ancestors); i++ {
				ancestors[i] = ParseAncestor(row.Cells[i].Text)
			}
			return types.Pedigree{
				Sire:     ancestors[0],
				Dam:      ancestors[1],
				SireSire: ancestors[2],
				SireDam:  ancestors[3],
				DamSire:  ancestors[4],
				DamDam:   ancestors[5],
			}
		}
	}
	return types.Pedigree{}
}

func hasCountryCode(table Table) bool {
	for _, row := range table.Rows {
		for _, cell := range row.Cells {
			if countryPattern.MatchString(cell.Text) {
				return true
			}
		}
	}
	return false
}

// FreeTextPedigree searches the visible page text for labelled parent names.
func FreeTextPedigree(content *PageContent) types.Pedigree {
	var p types.Pedigree
	if m := freeTextSire.FindStringSubmatch(content.Text); m != nil {
		p.Sire = ParseAncestor(m[1])
	}
	if m := freeTextDam.FindStringSubmatch(content.Text); m != nil {
		dam, _, _ := strings.Cut(m[1], "/")
		p.Dam = ParseAncestor(dam)
	}
	return p
}
