package analysis

import (
	"cmp"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lysyi3m/media-monitor/app/config"
	"github.com/lysyi3m/media-monitor/app/database"
)

const (
	maxContextRunes = 300
	minNameTokens   = 2
	maxNameTokens   = 5
)

var quoteSpanRegex = regexp.MustCompile(`"([^"]+)"|[“„]([^”“"]+)[”“"]`)

type span struct {
	start, end int
}

// distance is zero for touching or overlapping spans
func (s span) distance(o span) int {
	switch {
	case o.start >= s.end:
		return o.start - s.end
	case s.start >= o.end:
		return s.start - o.end
	default:
		return 0
	}
}

type nameCandidate struct {
	span
	name    string
	surname bool // a single name right after a cue, resolved against full names
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

// QuoteExtractor finds attributed quotations using configurable rule tables
type QuoteExtractor struct {
	cues      *regexp.Regexp
	names     *regexp.Regexp
	surnames  *regexp.Regexp
	stopwords map[string]bool
	particles map[string]bool
	roles     map[string]bool
	window    int
	minLength int
}

func NewQuoteExtractor(rules config.Attribution) *QuoteExtractor {
	cueWords := append(append([]string{}, rules.Verbs...), rules.Leads...)
	// longest first so multi-word cues win over their prefixes
	sort.Slice(cueWords, func(i, j int) bool { return len(cueWords[i]) > len(cueWords[j]) })

	e := &QuoteExtractor{
		cues:      regexp.MustCompile(`(?i)\b(?:` + alternation(cueWords) + `)\b`),
		names:     regexp.MustCompile(namePattern(rules.Particles)),
		surnames:  regexp.MustCompile(`^\s+(` + surnamePattern(rules.Particles) + `)`),
		stopwords: toSet(rules.Stopwords, false),
		particles: toSet(rules.Particles, true),
		roles:     toSet(rules.RoleWords, true),
		window:    rules.Window,
		minLength: rules.MinQuoteLength,
	}
	if len(cueWords) == 0 {
		e.cues = nil
	}

	return e
}

// Run returns one quote per attributed span. Spans without a cue or a name
// nearby are discarded.
func (e *QuoteExtractor) Run(text string) []database.Quote {
	if e.cues == nil || text == "" {
		return nil
	}

	matches := quoteSpanRegex.FindAllStringSubmatchIndex(text, -1)
	seen := make(map[string]bool)

	var quotes []database.Quote
	for i, m := range matches {
		inner := m[2:4]
		if inner[0] < 0 {
			inner = m[4:6]
		}
		quoteText := strings.TrimRight(strings.Join(strings.Fields(text[inner[0]:inner[1]]), " "), ", ")
		if utf8.RuneCountInString(quoteText) < e.minLength {
			continue
		}

		lower := 0
		if i > 0 {
			lower = matches[i-1][1]
		}
		upper := len(text)
		if i+1 < len(matches) {
			upper = matches[i+1][0]
		}

		before := span{max(backRunes(text, m[0], e.window), lower), m[0]}
		after := span{m[1], min(forwardRunes(text, m[1], e.window), upper)}

		candidate, ok := e.attribute(text, span{m[0], m[1]}, before, after)
		if !ok {
			continue
		}
		name := candidate.name
		if candidate.surname {
			name = e.resolveSurname(text, candidate)
		}

		key := NormalizeName(name) + "|" + quoteText
		if seen[key] {
			continue
		}
		seen[key] = true

		quotes = append(quotes, database.Quote{
			Name:         name,
			Text:         quoteText,
			Context:      sentenceContext(text, span{m[0], m[1]}, after),
			Organization: e.organization(text[candidate.end:after.end]),
		})
	}

	return quotes
}

// attribute picks the name candidate closest to an attribution cue. Ties go
// to the candidate nearest the quote.
func (e *QuoteExtractor) attribute(text string, quote span, windows ...span) (nameCandidate, bool) {
	var cues []span
	var candidates []nameCandidate

	for _, w := range windows {
		if w.end <= w.start {
			continue
		}
		segment := text[w.start:w.end]
		for _, loc := range e.cues.FindAllStringIndex(segment, -1) {
			cues = append(cues, span{w.start + loc[0], w.start + loc[1]})
		}
		for _, loc := range e.names.FindAllStringIndex(segment, -1) {
			if c, ok := e.candidate(text, span{w.start + loc[0], w.start + loc[1]}); ok {
				candidates = append(candidates, c)
			}
		}
	}

	full := len(candidates)
	for _, cue := range cues {
		end := cue.end
		for _, w := range windows {
			if cue.start >= w.start && cue.end <= w.end {
				end = w.end
			}
		}
		loc := e.surnames.FindStringSubmatchIndex(text[cue.end:end])
		if loc == nil {
			continue
		}
		c, ok := e.surname(text, span{cue.end + loc[2], cue.end + loc[3]})
		if !ok || overlapsAny(c.span, candidates[:full]) {
			continue
		}
		candidates = append(candidates, c)
	}

	if len(cues) == 0 || len(candidates) == 0 {
		return nameCandidate{}, false
	}

	best, bestDistance, bestToQuote := -1, 0, 0
	for i, c := range candidates {
		d := -1
		for _, cue := range cues {
			if cd := c.distance(cue); d < 0 || cd < d {
				d = cd
			}
		}
		toQuote := c.distance(quote)
		if best < 0 || d < bestDistance || (d == bestDistance && toQuote < bestToQuote) {
			best, bestDistance, bestToQuote = i, d, toQuote
		}
	}

	return candidates[best], true
}

// surname accepts a lone name, optionally with particles, as in "zegt De Vries"
func (e *QuoteExtractor) surname(text string, s span) (nameCandidate, bool) {
	if s.start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:s.start]); unicode.IsLetter(r) {
			return nameCandidate{}, false
		}
	}

	tokens := strings.Fields(text[s.start:s.end])
	last := tokens[len(tokens)-1]
	if e.particles[strings.ToLower(last)] || e.stopwords[last] {
		return nameCandidate{}, false
	}

	return nameCandidate{span: s, name: strings.Join(tokens, " "), surname: true}, true
}

// resolveSurname returns the full name in text ending in the candidate's
// surname, preferring the closest one before it. The surname itself is
// returned when no full name matches.
func (e *QuoteExtractor) resolveSurname(text string, c nameCandidate) string {
	suffix := " " + NormalizeName(c.name)

	resolved, resolvedBefore := "", false
	for _, loc := range e.names.FindAllStringIndex(text, -1) {
		full, ok := e.candidate(text, span{loc[0], loc[1]})
		if !ok || full.overlaps(c.span) || !strings.HasSuffix(NormalizeName(full.name), suffix) {
			continue
		}
		before := full.end <= c.start
		switch {
		case before:
			resolved, resolvedBefore = full.name, true
		case resolved == "" && !resolvedBefore:
			resolved = full.name
		}
	}

	return cmp.Or(resolved, c.name)
}

func overlapsAny(s span, candidates []nameCandidate) bool {
	for _, c := range candidates {
		if c.overlaps(s) {
			return true
		}
	}
	return false
}

// candidate trims leading stopwords off a raw name match
func (e *QuoteExtractor) candidate(text string, s span) (nameCandidate, bool) {
	if s.start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:s.start]); unicode.IsLetter(r) {
			return nameCandidate{}, false
		}
	}

	raw := text[s.start:s.end]
	tokens := strings.Fields(raw)
	offset := 0
	for len(tokens) > 0 && e.stopwords[tokens[0]] {
		offset = strings.Index(raw[offset:], tokens[0]) + offset + len(tokens[0])
		tokens = tokens[1:]
	}

	capitalized := 0
	for _, token := range tokens {
		if r, _ := utf8.DecodeRuneInString(token); unicode.IsUpper(r) {
			capitalized++
		}
	}
	if capitalized < minNameTokens || capitalized > maxNameTokens {
		return nameCandidate{}, false
	}

	start := s.start + offset + strings.Index(raw[offset:], tokens[0])
	return nameCandidate{span: span{start, s.end}, name: strings.Join(tokens, " ")}, true
}

// organization reads "<Name>, <role> <Capitalized Words>" after a name
func (e *QuoteExtractor) organization(rest string) string {
	if !strings.HasPrefix(strings.TrimLeft(rest, " "), ",") {
		return ""
	}
	rest = strings.TrimLeft(rest, " ")[1:]
	if end := strings.IndexAny(rest, ".;:\"“”\n"); end >= 0 {
		rest = rest[:end]
	}
	if end := strings.Index(rest, ","); end >= 0 {
		rest = rest[:end]
	}

	tokens := strings.Fields(rest)
	for i := 0; i < len(tokens); i++ {
		if !e.roles[strings.ToLower(tokens[i])] {
			continue
		}
		j := i + 1
		for j < len(tokens) && e.particles[tokens[j]] {
			j++
		}
		var org []string
		for ; j < len(tokens); j++ {
			if r, _ := utf8.DecodeRuneInString(tokens[j]); !unicode.IsUpper(r) {
				break
			}
			org = append(org, tokens[j])
		}
		if len(org) > 0 {
			return strings.Join(org, " ")
		}
	}

	return ""
}

func sentenceContext(text string, quote, after span) string {
	start := 0
	if i := strings.LastIndexAny(text[:quote.start], ".!?\n"); i >= 0 {
		start = i + 1
	}
	end := after.end
	if i := strings.IndexAny(text[quote.end:after.end], ".!?\n"); i >= 0 {
		end = quote.end + i + 1
	}

	context := strings.Join(strings.Fields(text[start:end]), " ")
	if utf8.RuneCountInString(context) > maxContextRunes {
		context = strings.TrimSpace(string([]rune(context)[:maxContextRunes]))
	}
	return context
}

func namePattern(particles []string) string {
	token := `\p{Lu}[\p{L}'’\-]*`
	if len(particles) == 0 {
		return token + `(?:\s+` + token + `){1,4}`
	}
	return token + `(?:\s+(?:(?:` + alternation(particles) + `)\s+)*` + token + `){1,4}`
}

func surnamePattern(particles []string) string {
	token := `\p{Lu}[\p{L}'’\-]*`
	if len(particles) == 0 {
		return token
	}
	return `(?:(?i:` + alternation(particles) + `)\s+)*` + token
}

func alternation(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, word := range words {
		if word = strings.TrimSpace(word); word != "" {
			quoted = append(quoted, regexp.QuoteMeta(word))
		}
	}
	return strings.Join(quoted, "|")
}

func toSet(words []string, fold bool) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, word := range words {
		if fold {
			word = strings.ToLower(word)
		}
		set[word] = true
	}
	return set
}

func backRunes(text string, pos, n int) int {
	for ; n > 0 && pos > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:pos])
		pos -= size
	}
	return pos
}

func forwardRunes(text string, pos, n int) int {
	for ; n > 0 && pos < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	return pos
}
