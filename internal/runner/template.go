package runner

import (
	"fmt"
	"regexp"
	"strings"
)

// caseVar is the placeholder every path template must carry; its match
// becomes the case id.
const caseVar = "CASE"

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// Template is one compiled path template. A template is a
// slash-separated relative path with {VAR} placeholders, e.g.
// "batch_*/{CASE}.json". It compiles into a glob for discovery and a
// regexp for extracting the case id from each match.
type Template struct {
	source string
	glob   string
	re     *regexp.Regexp
}

// CompileTemplate compiles a path template once per run. The template
// must contain a {CASE} placeholder.
func CompileTemplate(tmpl string) (*Template, error) {
	if !strings.Contains(tmpl, "{"+caseVar+"}") {
		return nil, fmt.Errorf("path template %q has no {%s} placeholder", tmpl, caseVar)
	}

	var sb strings.Builder
	sb.WriteString("^")
	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(tmpl, -1) {
		writeLiteral(&sb, tmpl[last:m[0]])
		fmt.Fprintf(&sb, "(?P<%s>[^/]+)", tmpl[m[2]:m[3]])
		last = m[1]
	}
	writeLiteral(&sb, tmpl[last:])
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("path template %q: %w", tmpl, err)
	}
	return &Template{
		source: tmpl,
		glob:   placeholderRe.ReplaceAllString(tmpl, "*"),
		re:     re,
	}, nil
}

// writeLiteral appends a template literal to the regexp, honoring plain
// glob stars inside the literal part.
func writeLiteral(sb *strings.Builder, s string) {
	for _, r := range s {
		if r == '*' {
			sb.WriteString(`[^/]*`)
			continue
		}
		sb.WriteString(regexp.QuoteMeta(string(r)))
	}
}

// Glob returns the doublestar pattern used for discovery.
func (t *Template) Glob() string { return t.glob }

// Match extracts the case id from a slash-separated path relative to
// the dataset root.
func (t *Template) Match(rel string) (string, bool) {
	m := t.re.FindStringSubmatch(rel)
	if m == nil {
		return "", false
	}
	idx := t.re.SubexpIndex(caseVar)
	if idx < 0 || m[idx] == "" {
		return "", false
	}
	return m[idx], true
}

func (t *Template) String() string { return t.source }
