package pptxtpl

import (
	"regexp"
	"strings"
)

// PowerPoint splits user-typed text across <a:r> runs at arbitrary points,
// which fragments template delimiters like {{ and {% into separate <a:t>
// elements. The preprocessing pipeline repairs the fragments at the string
// level so the expression engine sees whole tags.

// jinjaTagPattern matches a complete template tag of any of the three
// delimiter kinds: {{ ... }}, {% ... %} or {# ... #}.
var jinjaTagPattern = regexp.MustCompile(`(?s)(\{\{.*?\}\}|\{%.*?%\}|\{#.*?#\})`)

// runBoundaryPattern matches the markup between the end of one text element
// and the start of the next. The opening tag must be exactly a:t; other
// element names sharing the prefix, such as a:tc or a:tint, do not end a
// run boundary.
var runBoundaryPattern = regexp.MustCompile(`(?s)</a:t>.*?<a:t(?:\s[^>]*)?>`)

// textElementPattern captures a text element's opening tag and its content.
var textElementPattern = regexp.MustCompile(`(?s)(<a:t(?:\s[^>]*)?>)(.*?)</a:t>`)

// delimiterFixes rejoins delimiter halves separated by intervening markup.
// Only markup fragments may sit between the halves; literal text means
// no split occurred. Expression braces are fixed first, then block and
// comment delimiters.
var delimiterFixes = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\{(<[^>]*>)*\{`), "{{"},
	{regexp.MustCompile(`\}(<[^>]*>)*\}`), "}}"},
	{regexp.MustCompile(`\{(<[^>]*>)*%`), "{%"},
	{regexp.MustCompile(`%(<[^>]*>)*\}`), "%}"},
	{regexp.MustCompile(`\{(<[^>]*>)*#`), "{#"},
	{regexp.MustCompile(`#(<[^>]*>)*\}`), "#}"},
}

// entityFixes restores characters the document format escaped inside tag
// bodies, including the typographic quotes PowerPoint substitutes while
// typing. Applied in order; &amp; is handled after &lt;/&gt; so a literal
// &amp;lt; does not turn into <.
var entityFixes = []struct {
	from string
	to   string
}{
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&amp;", "&"},
	{"&apos;", "'"},
	{"&quot;", `"`},
	{"“", `"`},
	{"”", `"`},
	{"‘", "'"},
	{"’", "'"},
}

// cleanDelimiters rejoins template delimiters that were split across run
// boundaries, e.g. `{</a:t></a:r><a:r><a:t>{` becomes `{{`.
func cleanDelimiters(xml string) string {
	for _, fix := range delimiterFixes {
		xml = fix.pattern.ReplaceAllString(xml, fix.replacement)
	}
	return xml
}

// stripInternalTags removes run boundaries that survive inside a rejoined
// tag, collapsing the whole expression into a single text element. Markup
// outside tag spans is left alone.
func stripInternalTags(xml string) string {
	return jinjaTagPattern.ReplaceAllStringFunc(xml, func(tag string) string {
		return runBoundaryPattern.ReplaceAllString(tag, "")
	})
}

// ensureSpacePreservation adds xml:space="preserve" to text elements whose
// content carries a template tag. Without the attribute PowerPoint trims
// leading and trailing whitespace, which breaks expressions that depend on
// their spacing.
func ensureSpacePreservation(xml string) string {
	return textElementPattern.ReplaceAllStringFunc(xml, func(element string) string {
		gt := strings.IndexByte(element, '>')
		opening := element[:gt+1]
		content := element[gt+1 : len(element)-len("</a:t>")]
		if !jinjaTagPattern.MatchString(content) || strings.Contains(opening, `xml:space="preserve"`) {
			return element
		}
		if opening == "<a:t>" {
			return `<a:t xml:space="preserve">` + content + "</a:t>"
		}
		return strings.Replace(opening, "<a:t ", `<a:t xml:space="preserve" `, 1) + content + "</a:t>"
	})
}

// cleanEntitiesInTags unescapes entities inside template tags only, so an
// expression like `x &lt; 10` evaluates as `x < 10`. Content outside tag
// spans keeps its escaping for valid serialization.
func cleanEntitiesInTags(xml string) string {
	return jinjaTagPattern.ReplaceAllStringFunc(xml, func(tag string) string {
		for _, fix := range entityFixes {
			tag = strings.ReplaceAll(tag, fix.from, fix.to)
		}
		return tag
	})
}

// Preprocess runs the full reconstitution pipeline on a slide's XML:
// rejoin split delimiters, collapse run boundaries inside tags, mark text
// elements for whitespace preservation, elevate scope-prefixed tags to
// their enclosing elements, and unescape entities inside tags.
func Preprocess(xml string) string {
	xml = cleanDelimiters(xml)
	xml = stripInternalTags(xml)
	xml = ensureSpacePreservation(xml)
	xml = elevateSpecialTags(xml)
	xml = cleanEntitiesInTags(xml)
	return xml
}

// scopePrefixPatterns match tags carrying any scope prefix, including the
// slide-level family, for in-place prefix stripping during variable
// discovery. Group 1 keeps the delimiter kind, group 2 the directive body.
var scopePrefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)\{([%{])\s*pp\s+(.*?)\s*([%}])\}`),
	regexp.MustCompile(`(?s)\{([%{])\s*sp\s+(.*?)\s*([%}])\}`),
	regexp.MustCompile(`(?s)\{([%{])\s*tr\s+(.*?)\s*([%}])\}`),
	regexp.MustCompile(`(?s)\{([%{])\s*tc\s+(.*?)\s*([%}])\}`),
	regexp.MustCompile(`(?s)\{([%{])\s*slide\s+(.*?)\s*([%}])\}`),
}

// stripScopePrefixes rewrites every prefixed tag as its bare directive
// without relocating it. `{%pp if ok %}` becomes `{% if ok %}` in place.
func stripScopePrefixes(xml string) string {
	for _, pattern := range scopePrefixPatterns {
		xml = pattern.ReplaceAllString(xml, "{${1} ${2} ${3}}")
	}
	return xml
}

// discoveryPreprocess prepares slide XML for variable discovery. Prefixed
// tags are stripped in place rather than elevated; the bare directives are
// enough to find the names they reference, and the structural rewrite is
// not needed when nothing will be rendered.
func discoveryPreprocess(xml string) string {
	xml = cleanDelimiters(xml)
	xml = stripInternalTags(xml)
	xml = ensureSpacePreservation(xml)
	return stripScopePrefixes(xml)
}
