package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/toozej/go-thoroughbred/internal/types"
)

// DateLayout is the day-first date format used throughout the source page.
const DateLayout = "02.01.2006"

var (
	datePattern       = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	raceNumberName    = regexp.MustCompile(`^(\d+)\s*[-–]\s*(.*)$`)
	raceNumberOnly    = regexp.MustCompile(`^(\d+)$`)
	agePlusPattern    = regexp.MustCompile(`^\d+\s*\+`)
	ageUpwardsPattern = regexp.MustCompile(`^\d+\s*ve\s+yukar`)
)

// raceTypeVocabulary holds the lower-cased terms that mark a cell as a race type.
var raceTypeVocabulary = []string{
	"şartlı", "satış", "handikap", "maiden", "kv",
	"conditional", "claiming", "handicap",
}

// Cell is one table cell as seen by the extractors.
type Cell struct {
	Text string
	Href string
}

// normalize returns the NFC, Turkish lower-cased, trimmed form of s.
func normalize(s string) string {
	return cases.Lower(language.Turkish).String(norm.NFC.String(strings.TrimSpace(s)))
}

// normalizeVariants returns s lower-cased under both Turkish and default
// casing rules so that ASCII headers like "TIME" still match "time".
func normalizeVariants(s string) (string, string) {
	trimmed := norm.NFC.String(strings.TrimSpace(s))
	return cases.Lower(language.Turkish).String(trimmed), strings.ToLower(trimmed)
}

// ParseDate parses a DD.MM.YYYY date in loc.
func ParseDate(text string, loc *time.Location) (time.Time, error) {
	text = strings.TrimSpace(text)
	if !datePattern.MatchString(text) {
		return time.Time{}, fmt.Errorf("date %q is not in DD.MM.YYYY form", text)
	}
	if loc == nil {
		loc = time.Local
	}
	date, err := time.ParseInLocation(DateLayout, text, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", text, err)
	}
	return date, nil
}

// parseDigits keeps only the decimal digits of text. Thousand separators and
// unit suffixes are therefore tolerated.
func parseDigits(text string) (int, bool) {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseDistance returns the distance in meters, or nil when the cell holds no digits.
func ParseDistance(text string) *int {
	return ParseInt(text)
}

// ParseInt returns the integer formed by the digits of text, or nil.
func ParseInt(text string) *int {
	n, ok := parseDigits(text)
	if !ok {
		return nil
	}
	return &n
}

// ParseSurface maps the leading character of the surface cell to a category.
// The raw text is always returned so unknown surfaces are not lost.
func ParseSurface(raw string) (types.Surface, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.SurfaceUnknown, ""
	}
	first := []rune(raw)[0]
	switch {
	case strings.ContainsRune("ÇçCcTt", first):
		return types.SurfaceTurf, raw
	case strings.ContainsRune("KkDd", first):
		return types.SurfaceDirt, raw
	case strings.ContainsRune("Ss", first):
		return types.SurfaceSynthetic, raw
	default:
		return types.SurfaceUnknown, raw
	}
}

// ParseCurrency parses a Turkish formatted amount such as "1.234.567,89 t".
// It returns nil when the text carries no amount; zero is only returned for
// an explicit zero.
func ParseCurrency(text string) *float64 {
	var b strings.Builder
	hasDigit := false
	for _, r := range strings.TrimSpace(text) {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	if !hasDigit {
		return nil
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}

// FormatCurrency renders v with dot thousand separators and a two digit comma
// decimal part. ParseCurrency(FormatCurrency(v)) yields v rounded to cents.
func FormatCurrency(v float64) string {
	fixed := decimal.NewFromFloat(v).StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	return sign + grouped.String() + "," + fracPart
}

// ExtractQueryID returns the value of the first query parameter in href whose
// name ends with one of names, ignoring case. An empty href yields "".
func ExtractQueryID(href string, names ...string) string {
	if href == "" {
		return ""
	}
	for _, name := range names {
		re, err := regexp.Compile(`(?i)[?&][a-z_]*` + regexp.QuoteMeta(name) + `=([^&#]*)`)
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(href); m != nil && m[1] != "" {
			return m[1]
		}
	}
	return ""
}

// SplitRaceNumberName splits a "<n> - <name>" cell. A bare number yields no
// name and any other text yields no number.
func SplitRaceNumberName(text string) (*int, string) {
	text = strings.TrimSpace(text)
	if m := raceNumberName.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return &n, strings.TrimSpace(m[2])
		}
	}
	if m := raceNumberOnly.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return &n, ""
		}
	}
	return nil, text
}

// looksLikeAgeBracket reports whether text describes an age group such as
// "2 Yaşlı", "3+" or "4 ve Yukarı" rather than a race type.
func looksLikeAgeBracket(text string) bool {
	tr, def := normalizeVariants(text)
	if tr == "" {
		return false
	}
	for _, marker := range []string{"yaş", "yas", "age"} {
		if strings.Contains(tr, marker) || strings.Contains(def, marker) {
			return true
		}
	}
	return agePlusPattern.MatchString(tr) || ageUpwardsPattern.MatchString(tr)
}

// isRaceType reports whether text carries race type vocabulary or is a fully
// upper-case phrase.
func isRaceType(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || looksLikeAgeBracket(text) {
		return false
	}
	tr, def := normalizeVariants(text)
	for _, term := range raceTypeVocabulary {
		if strings.Contains(tr, term) || strings.Contains(def, term) {
			return true
		}
	}
	return isUpperPhrase(text)
}

func isUpperPhrase(text string) bool {
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		if !unicode.IsUpper(r) {
			return false
		}
		letters++
	}
	return letters >= 2
}

// ResolveRaceType reads the race type column. When that column holds an age
// bracket or is empty, the neighbouring columns not owned by another
// recognised field and finally the race name are searched for race type
// vocabulary. Layouts without a race type column leave the cell empty, so the
// search also runs there.
func ResolveRaceType(cells []Cell, schema ColumnSchema, raceName string) string {
	idx := schema.Index(FieldRaceType)
	primary := cellText(cells, idx)
	if primary != "" && !looksLikeAgeBracket(primary) {
		return primary
	}

	for _, offset := range []int{1, -1, 2} {
		if schema.owner(idx+offset) != fieldCount {
			continue
		}
		if candidate := cellText(cells, idx+offset); isRaceType(candidate) {
			return candidate
		}
	}
	if isRaceType(raceName) {
		return strings.TrimSpace(raceName)
	}
	return ""
}

// cellText returns the trimmed text at idx, or "" when idx is out of range.
func cellText(cells []Cell, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx].Text)
}

func cellHref(cells []Cell, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx].Href)
}
