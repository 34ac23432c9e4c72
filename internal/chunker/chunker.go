// Package chunker splits extracted document text into size-bounded units that keep
// list structure intact: numbered clauses, lettered sub-items and bullets.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultTargetTokens = 300
	DefaultOverlap      = 30
)

var (
	spaceRun = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	blankRun = regexp.MustCompile(`\n{3,}`)

	// markers glued to the preceding sentence, e.g. "...as follows: 1. Scope ... 2. Term"
	gluedNumbered = regexp.MustCompile(`([.:;!?])[ ]+(\d{1,3}[.)][ ])`)
	gluedLettered = regexp.MustCompile(`([.:;!?])[ ]+(\(?[a-z][.)][ ])`)
	gluedDash     = regexp.MustCompile(`([.:;!?])[ ]+([-*][ ])`)
	gluedBullet   = regexp.MustCompile(`[ ]*([•●▪◦‣])[ ]*`)

	numberedMarker = regexp.MustCompile(`^\d{1,3}[.)][ ]`)
	letteredMarker = regexp.MustCompile(`^\(?[a-zA-Z][.)][ ]`)
	bulletMarker   = regexp.MustCompile(`^[-*•●▪◦‣][ ]`)
)

type itemKind int

const (
	notItem itemKind = iota
	numbered
	lettered
	bullet
)

// unit is one conceptual chunk before size enforcement and overlap.
type unit struct {
	heading string
	body    string
}

func (u unit) String() string {
	if u.heading == "" {
		return u.body
	}
	if u.body == "" {
		return u.heading
	}
	return u.heading + "\n" + u.body
}

// EstimateTokens approximates the token count as length / 4.
func EstimateTokens(s string) int {
	return utf8.RuneCountInString(s) / 4
}

// Chunk splits text into an ordered, deterministic sequence of chunks of at most
// targetTokens (estimated), each but the first prefixed with the trailing overlap
// words of its predecessor. Empty or whitespace-only text yields nil.
func Chunk(text string, targetTokens, overlap int) []string {
	units := split(text, targetTokens)
	if len(units) == 0 {
		return nil
	}

	out := make([]string, 0, len(units))
	for i, u := range units {
		s := u.String()
		if i > 0 && overlap > 0 {
			prev := units[i-1].body
			if prev == "" {
				prev = units[i-1].String()
			}
			if tail := trailingWords(prev, overlap); tail != "" {
				s = tail + "\n" + s
			}
		}
		out = append(out, s)
	}
	return out
}

// Units returns the chunks without overlap.
func Units(text string, targetTokens int) []string {
	units := split(text, targetTokens)
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.String())
	}
	return out
}

func split(text string, targetTokens int) []unit {
	if targetTokens <= 0 {
		targetTokens = DefaultTargetTokens
	}
	text = normalize(text)
	if text == "" {
		return nil
	}
	text = insertBoundaries(text)

	var out []unit
	for _, u := range parse(text) {
		out = append(out, resize(u, targetTokens)...)
	}
	return out
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = spaceRun.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(blankRun.ReplaceAllString(text, "\n\n"))
}

func insertBoundaries(text string) string {
	text = gluedBullet.ReplaceAllString(text, "\n$1 ")
	text = gluedNumbered.ReplaceAllString(text, "$1\n$2")
	text = gluedLettered.ReplaceAllString(text, "$1\n$2")
	text = gluedDash.ReplaceAllString(text, "$1\n$2")

	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "\n")
}

func kindOf(line string) itemKind {
	switch {
	case numberedMarker.MatchString(line):
		return numbered
	case bulletMarker.MatchString(line):
		return bullet
	case letteredMarker.MatchString(line):
		return lettered
	default:
		return notItem
	}
}

func isHeading(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 8 {
		return false
	}
	if strings.HasPrefix(line, "#") {
		return true
	}
	if strings.Contains(line, ". ") {
		return false
	}
	if strings.HasSuffix(line, ":") {
		return true
	}
	first, _ := utf8.DecodeRuneInString(line)
	last, _ := utf8.DecodeLastRuneInString(line)
	if strings.ContainsRune(".!?,;", last) {
		return false
	}
	return unicode.IsUpper(first)
}

type parser struct {
	out         []unit
	heading     string
	headingUsed bool
	body        []string
	item        []string
	itemKind    itemKind
	afterBlank  bool
}

func (p *parser) emit(body string) {
	p.out = append(p.out, unit{heading: p.heading, body: body})
	p.headingUsed = true
}

func (p *parser) flushBody() {
	if len(p.body) > 0 {
		p.emit(strings.Join(p.body, "\n"))
		p.body = nil
	}
}

func (p *parser) flushItem() {
	if len(p.item) > 0 {
		p.emit(strings.Join(p.item, "\n"))
		p.item = nil
		p.itemKind = notItem
	}
}

func (p *parser) setHeading(h string) {
	if p.heading != "" && !p.headingUsed {
		p.out = append(p.out, unit{heading: p.heading})
	}
	p.heading = strings.TrimSpace(strings.TrimLeft(h, "#"))
	p.headingUsed = false
}

func parse(text string) []unit {
	p := &parser{}
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			p.flushBody()
			p.afterBlank = true
			continue
		}

		switch kind := kindOf(line); {
		case kind == numbered || kind == bullet:
			p.flushBody()
			p.flushItem()
			p.item, p.itemKind = []string{line}, kind
		case kind == lettered:
			p.flushBody()
			if p.itemKind == numbered {
				// sub-item of the current clause
				p.item = append(p.item, line)
			} else {
				p.flushItem()
				p.item, p.itemKind = []string{line}, kind
			}
		case isHeading(line):
			p.flushBody()
			p.flushItem()
			p.setHeading(line)
		default:
			first, _ := utf8.DecodeRuneInString(line)
			if len(p.item) > 0 && !p.afterBlank && unicode.IsLower(first) {
				p.item = append(p.item, line)
			} else {
				p.flushItem()
				p.body = append(p.body, line)
			}
		}
		p.afterBlank = false
	}
	p.flushBody()
	p.flushItem()
	if p.heading != "" && !p.headingUsed {
		p.out = append(p.out, unit{heading: p.heading})
	}
	return p.out
}

// resize re-splits a unit whose estimate exceeds target on sentence boundaries,
// restating the heading on every piece.
func resize(u unit, target int) []unit {
	if EstimateTokens(u.String()) <= target {
		return []unit{u}
	}

	budget := target * 4
	if u.heading != "" {
		budget -= utf8.RuneCountInString(u.heading) + 1
	}
	if budget < 16 {
		budget = 16
	}

	// a heading with no body is itself the content
	if u.body == "" {
		var out []unit
		for _, piece := range hardSplit(u.heading, max(target*4, 16)) {
			out = append(out, unit{body: piece})
		}
		return out
	}

	var (
		out []unit
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, unit{heading: u.heading, body: cur.String()})
			cur.Reset()
		}
	}

	for _, s := range sentences(u.body) {
		for _, piece := range hardSplit(s.text, budget) {
			curLen := utf8.RuneCountInString(cur.String())
			if curLen > 0 && curLen+1+utf8.RuneCountInString(piece) > budget {
				flush()
			}
			if cur.Len() > 0 {
				cur.WriteString(s.sep)
			}
			cur.WriteString(piece)
		}
	}
	flush()
	return out
}

type sentence struct {
	text string
	sep  string // separator to use before this sentence when packing
}

func sentences(text string) []sentence {
	var (
		out   []sentence
		start int
		sep   = " "
	)
	rs := []rune(text)
	push := func(end int, nextSep string) {
		if s := strings.TrimSpace(string(rs[start:end])); s != "" {
			out = append(out, sentence{text: s, sep: sep})
		}
		start = end
		sep = nextSep
	}
	for i, r := range rs {
		switch {
		case r == '\n':
			push(i, "\n")
		case (r == '.' || r == '!' || r == '?') && i+1 < len(rs) && rs[i+1] == ' ':
			push(i+1, " ")
		}
	}
	push(len(rs), " ")
	return out
}

// hardSplit breaks a single over-long sentence on word boundaries.
func hardSplit(s string, budget int) []string {
	if utf8.RuneCountInString(s) <= budget {
		return []string{s}
	}
	var (
		out []string
		cur []string
		n   int
	)
	for _, w := range strings.Fields(s) {
		wl := utf8.RuneCountInString(w)
		if n > 0 && n+1+wl > budget {
			out = append(out, strings.Join(cur, " "))
			cur, n = nil, 0
		}
		if n > 0 {
			n++
		}
		cur = append(cur, w)
		n += wl
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}

func trailingWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
