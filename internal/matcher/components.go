package matcher

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// SimDual is the canonical name for a physical nano-SIM plus eSIM.
	SimDual = "nano-SIM+Esim"
	// SimESIM is the canonical name for eSIM-only models.
	SimESIM = "Esim"
)

// Components are the parts of a phone listing name that identify a variant.
// Empty fields were not found in the name.
type Components struct {
	Model   string // "17 Pro Max"
	Storage string // "256GB"
	Color   string // "Blue"
	SimType string // SimDual or SimESIM
}

var (
	dualSimPattern = regexp.MustCompile(`(?i)\s*sim\s*\+\s*esim\s*`)
	esimPattern    = regexp.MustCompile(`(?i)\s*esim\s*`)
	storagePattern = regexp.MustCompile(`(?i)\d+(?:tb|gb)`)

	modelSuffixes = []*regexp.Regexp{
		regexp.MustCompile(`^(?i)pro\s+max`),
		regexp.MustCompile(`^(?i)pro`),
		regexp.MustCompile(`^(?i)air`),
		regexp.MustCompile(`^(?i)plus`),
	}
)

// ExtractComponents splits a listing name such as
// "iPhone 17 Pro Max 512GB Blue eSIM" into its components.
//
// "iphone" is ignored. Without an explicit "esim" the SIM type is SimDual.
// The model is a number optionally followed by Pro Max, Pro, Air or Plus;
// whatever remains after removing SIM, storage and model is the colour.
// White 17 Pro and 17 Pro Max models are sold as Silver.
func ExtractComponents(name string) Components {
	text := strings.ToLower(strings.TrimSpace(name))
	text = strings.TrimSpace(replaceWord(text, "iphone"))

	c := Components{SimType: SimDual}
	switch {
	case strings.Contains(text, "sim+esim") || strings.Contains(text, "sim + esim"):
		text = dualSimPattern.ReplaceAllString(text, " ")
	case strings.Contains(text, "esim"):
		c.SimType = SimESIM
		text = esimPattern.ReplaceAllString(text, " ")
	}
	text = collapse(text)

	if m := findStorage(text); m != "" {
		c.Storage = strings.ToUpper(m)
		re := regexp.MustCompile(`(?i)\s*` + regexp.QuoteMeta(m) + `\s*`)
		text = collapse(re.ReplaceAllString(text, " "))
	}

	if m := findModel(text); m != "" {
		c.Model = title(m)
		text = collapse(replaceWord(text, m))
	}

	if text != "" {
		c.Color = title(text)
	}

	if strings.EqualFold(c.Color, "white") {
		switch strings.ToLower(c.Model) {
		case "17 pro", "17 pro max":
			c.Color = "Silver"
		}
	}
	return c
}

// ComponentsMatch reports whether a and b describe the same variant.
// Every component must be equal ignoring case; a component missing from
// one side must be missing from the other too.
func ComponentsMatch(a, b Components) bool {
	return strings.EqualFold(a.Model, b.Model) &&
		strings.EqualFold(a.Storage, b.Storage) &&
		strings.EqualFold(a.Color, b.Color) &&
		strings.EqualFold(a.SimType, b.SimType)
}

// ModelMatches reports whether a search result named foundName can stand
// for the watched product globalName. When the watched name carries a model
// ("17 Pro Max"), the result must mention it, so a "17 Pro" offer never
// triggers a "17 Pro Max" watch.
func ModelMatches(globalName, foundName string) bool {
	want := strings.ToLower(ExtractComponents(globalName).Model)
	if want == "" {
		return true
	}
	if strings.Contains(strings.ToLower(foundName), want) {
		return true
	}
	found := strings.ToLower(ExtractComponents(foundName).Model)
	return found != "" && strings.Contains(found, want)
}

// title upper-cases the first letter of every word. Casers keep state, so
// each call gets its own.
func title(s string) string {
	return cases.Title(language.Und).String(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// boundary reports whether position i of runes sits between a word and a
// non-word character, treating both ends as non-word.
func boundary(runes []rune, i int) bool {
	before := i > 0 && isWord(runes[i-1])
	after := i < len(runes) && isWord(runes[i])
	return before != after
}

// replaceWord replaces every occurrence of needle that starts and ends on
// a word boundary with a space. Letters outside ASCII count as word
// characters.
func replaceWord(text, needle string) string {
	if needle == "" {
		return text
	}
	runes := []rune(text)
	nr := []rune(needle)

	var b strings.Builder
	for i := 0; i < len(runes); {
		if i+len(nr) <= len(runes) &&
			strings.EqualFold(string(runes[i:i+len(nr)]), needle) &&
			boundary(runes, i) && boundary(runes, i+len(nr)) {
			b.WriteByte(' ')
			i += len(nr)
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	return b.String()
}

// findStorage returns the first "<digits>gb" or "<digits>tb" followed by a
// word boundary.
func findStorage(text string) string {
	for _, loc := range storagePattern.FindAllStringIndex(text, -1) {
		rest := []rune(text[loc[1]:])
		if len(rest) == 0 || !isWord(rest[0]) {
			return text[loc[0]:loc[1]]
		}
	}
	return ""
}

// findModel returns the first model mention: a number starting on a word
// boundary, whitespace, then optionally Pro Max, Pro, Air or Plus, ending
// on a word boundary. The match may end with the whitespace when no suffix
// applies and a word follows.
func findModel(text string) string {
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if !unicode.IsDigit(runes[i]) || (i > 0 && isWord(runes[i-1])) {
			continue
		}

		j := i
		for j < len(runes) && unicode.IsDigit(runes[j]) {
			j++
		}
		k := j
		for k < len(runes) && unicode.IsSpace(runes[k]) {
			k++
		}
		if k == j {
			continue
		}

		rest := string(runes[k:])
		for _, re := range modelSuffixes {
			if loc := re.FindStringIndex(rest); loc != nil {
				end := k + len([]rune(rest[:loc[1]]))
				if boundary(runes, end) {
					return string(runes[i:end])
				}
			}
		}
		if boundary(runes, k) {
			return string(runes[i:k])
		}
	}
	return ""
}
