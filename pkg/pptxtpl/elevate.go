package pptxtpl

import (
	"regexp"
	"strings"
)

// A scope prefix ties a tag to the structural element it acts on. A tag
// such as {%pp if show %} operates on its whole paragraph: elevation
// replaces the enclosing <a:p>...</a:p> with the bare directive
// {% if show %}, so a false condition drops the paragraph rather than
// just the text run that carried the tag.
type scopePrefix struct {
	element string
	tag     *regexp.Regexp
	open    *regexp.Regexp
	close   string
}

// specialPrefixes in elevation order: paragraph, shape, table row, table
// cell. The prefixes never interact, so each is processed independently.
var specialPrefixes = []scopePrefix{
	{
		element: "a:p",
		tag:     regexp.MustCompile(`(?s)\{[%{]\s*pp\s+(.*?)\s*[%}]\}`),
		open:    regexp.MustCompile(`<a:p[\s>]`),
		close:   "</a:p>",
	},
	{
		element: "p:sp",
		tag:     regexp.MustCompile(`(?s)\{[%{]\s*sp\s+(.*?)\s*[%}]\}`),
		open:    regexp.MustCompile(`<p:sp[\s>]`),
		close:   "</p:sp>",
	},
	{
		element: "a:tr",
		tag:     regexp.MustCompile(`(?s)\{[%{]\s*tr\s+(.*?)\s*[%}]\}`),
		open:    regexp.MustCompile(`<a:tr[\s>]`),
		close:   "</a:tr>",
	},
	{
		element: "a:tc",
		tag:     regexp.MustCompile(`(?s)\{[%{]\s*tc\s+(.*?)\s*[%}]\}`),
		open:    regexp.MustCompile(`<a:tc[\s>]`),
		close:   "</a:tc>",
	},
}

// elevateSpecialTags rewrites every prefixed tag at the level of its
// enclosing element. When no enclosing element can be located the prefix
// is stripped in place instead; the directive text is preserved either way.
func elevateSpecialTags(xml string) string {
	for _, sp := range specialPrefixes {
		xml = elevatePrefix(xml, sp)
	}
	return xml
}

func elevatePrefix(xml string, sp scopePrefix) string {
	for {
		loc := sp.tag.FindStringSubmatchIndex(xml)
		if loc == nil {
			break
		}
		tagStart, tagEnd := loc[0], loc[1]
		inner := xml[loc[2]:loc[3]]

		// Keep the delimiter kind: statements stay statements,
		// expressions stay expressions.
		var bare string
		if xml[tagStart+1] == '%' {
			bare = "{% " + inner + " %}"
		} else {
			bare = "{{ " + inner + " }}"
		}

		openStart, ok := findEnclosingOpen(xml, tagStart, sp)
		if !ok {
			xml = xml[:tagStart] + bare + xml[tagEnd:]
			continue
		}
		closeEnd, ok := findEnclosingClose(xml, tagEnd, sp)
		if !ok {
			xml = xml[:tagStart] + bare + xml[tagEnd:]
			continue
		}

		xml = xml[:openStart] + bare + xml[closeEnd:]
	}
	return xml
}

// findEnclosingOpen scans backwards from pos for the opening tag of the
// innermost enclosing element. Every close tag encountered on the way back
// belongs to a sibling, so its matching open tag must be skipped; the scan
// tracks that as a depth counter rather than building a tree.
func findEnclosingOpen(xml string, pos int, sp scopePrefix) (int, bool) {
	depth := 0
	searchPos := pos
	for searchPos > 0 {
		openPos := lastMatchStart(sp.open, xml[:searchPos])
		closePos := strings.LastIndex(xml[:searchPos], sp.close)

		if openPos < 0 {
			return 0, false
		}
		if closePos > openPos {
			depth++
			searchPos = closePos
		} else {
			if depth == 0 {
				return openPos, true
			}
			depth--
			searchPos = openPos
		}
	}
	return 0, false
}

// findEnclosingClose scans forward from pos and returns the position just
// past the innermost enclosing element's close tag. Open tags encountered
// first belong to nested elements and increase the depth.
func findEnclosingClose(xml string, pos int, sp scopePrefix) (int, bool) {
	depth := 0
	searchPos := pos
	for searchPos < len(xml) {
		rel := strings.Index(xml[searchPos:], sp.close)
		if rel < 0 {
			return 0, false
		}
		closePos := searchPos + rel

		openPos := len(xml) + 1
		if loc := sp.open.FindStringIndex(xml[searchPos:]); loc != nil {
			openPos = searchPos + loc[0]
		}

		if openPos < closePos {
			depth++
			searchPos = openPos + 1
		} else {
			if depth == 0 {
				return closePos + len(sp.close), true
			}
			depth--
			searchPos = closePos + len(sp.close)
		}
	}
	return 0, false
}

func lastMatchStart(pattern *regexp.Regexp, s string) int {
	locs := pattern.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return -1
	}
	return locs[len(locs)-1][0]
}
