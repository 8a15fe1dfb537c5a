// Package mrz locates, validates, and parses the machine-readable zone of a
// scanned identity document.
//
// Location is a multi-hypothesis search: fixed candidate bands in the lower
// half of the scan, each enhanced and read under several geometric variants,
// scored by a cheap filler-count heuristic. Parsing tolerates the noise a
// specialized OCR pass leaves behind (pipe-for-I substitution, zero-for-O in
// the country code) instead of demanding a checksum-clean ICAO block.
package mrz

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Filler is the MRZ padding character.
const Filler = '<'

// minFillers is how many filler characters a text needs before it is even
// considered MRZ material.
const minFillers = 4

// countryBonus is the score bonus for texts containing the issuing country
// code followed by digits.
const countryBonus = 5

var (
	idRun      = regexp.MustCompile(`\d{6,12}`)
	anyLongRun = regexp.MustCompile(`\d{6,}`)
	sixDigits  = regexp.MustCompile(`\b(\d{6})\b`)
)

// Patterns holds the country-dependent expressions used for scoring,
// validity, and ID extraction. Build one with NewPatterns and share it; the
// zero value behaves like NewPatterns("COL").
type Patterns struct {
	country  string
	codeID   *regexp.Regexp // country code + 6-12 digit run, capturing the run
	codeNear *regexp.Regexp // country code immediately followed by a digit
}

// NewPatterns compiles expressions for the given three-letter country code.
// The letter O is matched against the digit 0 as well, the usual OCR
// confusion on low-quality scans.
func NewPatterns(country string) Patterns {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		country = "COL"
	}
	fuzzy := fuzzyCode(country)
	return Patterns{
		country:  country,
		codeID:   regexp.MustCompile(fuzzy + `(\d{6,12})`),
		codeNear: regexp.MustCompile(fuzzy + `\d`),
	}
}

// fuzzyCode turns a country code into a pattern tolerating the O/0 swap.
func fuzzyCode(country string) string {
	var b strings.Builder
	for _, r := range country {
		switch r {
		case 'O', '0':
			b.WriteString(`[O0]`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

func (p Patterns) ensure() Patterns {
	if p.codeID == nil {
		return NewPatterns("")
	}
	return p
}

// Normalize upper-cases MRZ text and corrects the pipe-for-I substitution
// Tesseract produces on OCR-B strokes.
func Normalize(text string) string {
	return strings.ToUpper(strings.ReplaceAll(text, "|", "I"))
}

// Score rates a candidate text: one point per filler character, plus a fixed
// bonus when the issuing country code followed by digits appears.
func (p Patterns) Score(text string) int {
	p = p.ensure()
	t := Normalize(text)
	s := strings.Count(t, string(Filler))
	if p.codeNear.MatchString(t) {
		s += countryBonus
	}
	return s
}

// Valid reports whether text is usable MRZ: at least four filler characters
// and either a country-code-prefixed digit run or any run of six or more
// digits. Anything else is OCR debris.
func (p Patterns) Valid(text string) bool {
	p = p.ensure()
	if text == "" {
		return false
	}
	t := Normalize(text)
	if strings.Count(t, string(Filler)) < minFillers {
		return false
	}
	return p.codeID.MatchString(t) || anyLongRun.MatchString(t)
}

// FromPlainText reconstructs an MRZ block out of the general OCR text when
// the specialized pass failed. Lines carrying at least four fillers are
// scored like band candidates; the best line wins, and a qualifying adjacent
// line is joined to it, since real MRZ blocks are one or two consecutive lines.
// Returns "" when no line qualifies.
func (p Patterns) FromPlainText(ocrText string) string {
	p = p.ensure()
	if ocrText == "" {
		return ""
	}

	t := Normalize(ocrText)
	var lines []string
	for _, ln := range strings.Split(t, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}

	bestIdx := -1
	bestScore := 0
	for i, ln := range lines {
		if strings.Count(ln, string(Filler)) < minFillers {
			continue
		}
		if score := p.Score(ln); bestIdx < 0 || score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}
	if bestIdx < 0 {
		return ""
	}

	qualifies := func(i int) bool {
		return i >= 0 && i < len(lines) && strings.Count(lines[i], string(Filler)) >= minFillers
	}
	switch {
	case qualifies(bestIdx + 1):
		return lines[bestIdx] + "\n" + lines[bestIdx+1]
	case qualifies(bestIdx - 1):
		return lines[bestIdx-1] + "\n" + lines[bestIdx]
	default:
		return lines[bestIdx]
	}
}

// ParseIDNumber extracts the document number: a country-code-prefixed digit
// run wins; otherwise the longest 6-12 digit run anywhere in the text.
// Returns "" when no run is found.
func (p Patterns) ParseIDNumber(text string) string {
	p = p.ensure()
	if text == "" {
		return ""
	}
	t := Normalize(text)

	if m := p.codeID.FindStringSubmatch(t); m != nil {
		return m[1]
	}

	best := ""
	for _, run := range idRun.FindAllString(t, -1) {
		if len(run) > len(best) {
			best = run
		}
	}
	return best
}

// CanonicalizeID strips everything but digits from an ID number, removing
// the thousands separators and stray punctuation OCR picks up.
func CanonicalizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseNames extracts (surnames, givenNames) from the line containing the
// double-filler name separator. Fillers become spaces, non-letters are
// dropped, and the result is title-cased with Spanish connectives kept
// lower. Either value may be "" when the segment is empty after cleaning.
func (p Patterns) ParseNames(text string) (surnames, givenNames string) {
	p = p.ensure()
	if text == "" {
		return "", ""
	}

	var lines []string
	for _, ln := range strings.Split(Normalize(text), "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) == 0 {
		return "", ""
	}

	nameLine := lines[len(lines)-1]
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], "<<") {
			nameLine = lines[i]
			break
		}
	}

	parts := strings.SplitN(nameLine, "<<", 2)
	if len(parts) < 2 {
		return "", ""
	}

	return p.cleanName(parts[0]), p.cleanName(parts[1])
}

func (p Patterns) cleanName(segment string) string {
	s := strings.ReplaceAll(segment, string(Filler), " ")
	// Drop stranded country-code tokens (including the zero-for-O variant).
	for _, tok := range []string{p.country, strings.ReplaceAll(p.country, "O", "0")} {
		s = strings.ReplaceAll(s, " "+tok+" ", " ")
	}
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return titleCase(strings.Join(strings.Fields(b.String()), " "))
}

// connectives are the particles kept lower-case in Spanish personal names.
var connectives = map[string]bool{
	"de": true, "del": true, "la": true, "las": true, "los": true,
	"y": true, "e": true, "da": true, "do": true, "dos": true,
}

func titleCase(s string) string {
	caser := cases.Title(language.Spanish)
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if connectives[w] {
			continue
		}
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// ParseBirthDate scans text for six-digit YYMMDD substrings, validates month
// and day, and resolves the century with a pivot rule: a two-digit year at
// or above pivot belongs to the 1900s, below it to the 2000s. The first
// substring that validates is returned as an ISO date; "" means none did.
func ParseBirthDate(text string, pivot int) string {
	if text == "" {
		return ""
	}
	t := Normalize(text)
	for _, m := range sixDigits.FindAllStringSubmatch(t, -1) {
		if iso := yymmddToISO(m[1], pivot); iso != "" {
			return iso
		}
	}
	return ""
}

func yymmddToISO(s string, pivot int) string {
	yy, _ := strconv.Atoi(s[0:2])
	mm, _ := strconv.Atoi(s[2:4])
	dd, _ := strconv.Atoi(s[4:6])
	if mm < 1 || mm > 12 || dd < 1 || dd > 31 {
		return ""
	}
	year := 2000 + yy
	if yy >= pivot {
		year = 1900 + yy
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, mm, dd)
}

// Fields are the identity attributes recoverable from a valid MRZ. Empty
// strings mean the zone did not yield that field.
type Fields struct {
	IDNumber   string
	Surnames   string
	GivenNames string
	BirthDate  string
}

// ParseFields extracts every recoverable field from valid MRZ text.
func (p Patterns) ParseFields(text string, birthPivot int) Fields {
	surnames, given := p.ParseNames(text)
	return Fields{
		IDNumber:   p.ParseIDNumber(text),
		Surnames:   surnames,
		GivenNames: given,
		BirthDate:  ParseBirthDate(text, birthPivot),
	}
}
