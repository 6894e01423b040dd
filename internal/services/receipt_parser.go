package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/foxxcyber/pantry-assist/internal/models"
)

// ReceiptParser parses OCR text from grocery receipts into pantry lines
type ReceiptParser struct {
	linePatterns    []*regexp.Regexp
	excludePatterns []*regexp.Regexp
	datePatterns    []*regexp.Regexp
	sizePattern     *regexp.Regexp
	spacePattern    *regexp.Regexp
}

// unitAliases maps receipt spellings to unit abbreviations of the unit table
var unitAliases = map[string]string{
	"szt":   "szt",
	"sztuk": "szt",
	"ea":    "szt",
	"pc":    "szt",
	"pcs":   "szt",
	"kg":    "kg",
	"g":     "g",
	"dag":   "dag",
	"l":     "l",
	"ml":    "ml",
	"op":    "opak",
	"opak":  "opak",
}

// NewReceiptParser creates a new receipt parser
func NewReceiptParser() *ReceiptParser {
	return &ReceiptParser{
		linePatterns: []*regexp.Regexp{
			// NAME QTY [UNIT] x UNIT_PRICE TOTAL[TAX]
			// e.g. BANANY LUZ 0,856 x5,99 5,13C or JAJA L 10SZT 1 szt. x11,99 11,99B
			regexp.MustCompile(`(?i)^(.+?)\s+(\d+(?:[.,]\d+)?)\s*(szt\.?|kg|g|l|ml|op\.?)?\s*[x×*]\s*(\d+[.,]\d{2})\s+(-?\d+[.,]\d{2})\s*[A-G]?$`),
			// NAME TOTAL[TAX], e.g. CHLEB ZYTNI 4,99A or MILK WHOLE $3.02 F
			regexp.MustCompile(`(?i)^(.+?)\s+\$?(-?\d+[.,]\d{2})\s*[A-GNT]?$`),
		},
		excludePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*(suma|razem|ptu|sprzeda[żz]|paragon|nip|got[óo]wka|karta|reszta|rabat|opust|do\s+zap[łl]aty|kasa|kasjer|nr\s+sys|total|subtotal|tax|change|cash|visa|mastercard|discount)(?:[\s:.#]|$)`),
			regexp.MustCompile(`^\s*[-=*_]+\s*$`),
		},
		datePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`),
			regexp.MustCompile(`(\d{2})[./-](\d{2})[./-](\d{4})`),
		},
		sizePattern:  regexp.MustCompile(`(?i)(?:^|\s)(\d+(?:[.,]\d+)?)\s?(kg|g|ml|l|szt)\b`),
		spacePattern: regexp.MustCompile(`\s+`),
	}
}

// Parse parses OCR text and extracts receipt data
func (p *ReceiptParser) Parse(ocrText string) *models.ParsedReceipt {
	lines := strings.Split(ocrText, "\n")
	result := &models.ParsedReceipt{
		Items: []models.ParsedItem{},
	}

	result.Date = p.extractDate(lines)

	lineNumber := 0
	for _, raw := range lines {
		line := p.cleanLine(raw)
		if line == "" || p.shouldExclude(line) {
			continue
		}

		item := p.parseLine(line)
		if item == nil {
			if result.StoreName == nil && lineNumber == 0 && hasLetter(line) && !p.hasDate(line) {
				name := line
				result.StoreName = &name
			}
			continue
		}

		lineNumber++
		item.LineNumber = lineNumber
		result.Items = append(result.Items, *item)
	}

	return result
}

// parseLine attempts to parse a line as a purchased item
func (p *ReceiptParser) parseLine(line string) *models.ParsedItem {
	if m := p.linePatterns[0].FindStringSubmatch(line); m != nil {
		total, ok := parseAmount(m[5])
		if !ok || total <= 0 {
			return nil
		}
		multiplier, ok := parseAmount(m[2])
		if !ok || multiplier <= 0 {
			return nil
		}

		var unit string
		if m[3] != "" {
			unit = normalizeUnitHint(m[3])
		} else if multiplier != float64(int(multiplier)) {
			// Fractional counts on receipts are weighed goods
			unit = "kg"
		}
		return p.buildItem(line, m[1], multiplier, unit, total)
	}

	if m := p.linePatterns[1].FindStringSubmatch(line); m != nil {
		total, ok := parseAmount(m[2])
		if !ok || total <= 0 || total > 9999 {
			return nil
		}
		return p.buildItem(line, m[1], 1, "", total)
	}

	return nil
}

// buildItem applies a pack size printed in the name, e.g. "MLEKO 1L"
func (p *ReceiptParser) buildItem(line, name string, multiplier float64, unit string, total float64) *models.ParsedItem {
	quantity := multiplier

	if sizes := p.sizePattern.FindAllStringSubmatch(name, -1); len(sizes) > 0 && (unit == "" || unit == "szt") {
		last := sizes[len(sizes)-1]
		if size, ok := parseAmount(last[1]); ok && size > 0 {
			quantity = multiplier * size
			unit = normalizeUnitHint(last[2])
			name = p.sizePattern.ReplaceAllString(name, " ")
		}
	}

	name = p.cleanItemName(name)
	if name == "" || !hasLetter(name) {
		return nil
	}

	item := &models.ParsedItem{
		RawText:  line,
		Name:     name,
		Quantity: &quantity,
		Price:    &total,
	}
	if unit != "" {
		item.UnitHint = &unit
	}
	return item
}

// shouldExclude checks if a line should be excluded
func (p *ReceiptParser) shouldExclude(line string) bool {
	for _, pattern := range p.excludePatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// cleanLine cleans up a line for parsing
func (p *ReceiptParser) cleanLine(line string) string {
	line = strings.ReplaceAll(line, "|", "")
	line = strings.ReplaceAll(line, "\\", "")
	line = p.spacePattern.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}

// cleanItemName cleans up an item name
func (p *ReceiptParser) cleanItemName(name string) string {
	name = p.spacePattern.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, ".,;:-_")
	for _, prefix := range []string{"@", "#", "*"} {
		name = strings.TrimPrefix(name, prefix)
	}
	return strings.TrimSpace(name)
}

func (p *ReceiptParser) hasDate(line string) bool {
	for _, pattern := range p.datePatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// extractDate finds the first valid ISO or day-first date
func (p *ReceiptParser) extractDate(lines []string) *time.Time {
	for _, line := range lines {
		for i, pattern := range p.datePatterns {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}

			var year, month, day int
			if i == 0 {
				year, _ = strconv.Atoi(m[1])
				month, _ = strconv.Atoi(m[2])
				day, _ = strconv.Atoi(m[3])
			} else {
				day, _ = strconv.Atoi(m[1])
				month, _ = strconv.Atoi(m[2])
				year, _ = strconv.Atoi(m[3])
			}

			date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			// Reject values time.Date normalized, like 31.02
			if date.Day() == day && int(date.Month()) == month {
				return &date
			}
		}
	}
	return nil
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func normalizeUnitHint(s string) string {
	key := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
	if alias, ok := unitAliases[key]; ok {
		return alias
	}
	return key
}

func hasLetter(s string) bool {
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 127 {
			return true
		}
	}
	return false
}
