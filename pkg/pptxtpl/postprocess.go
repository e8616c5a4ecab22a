package pptxtpl

import (
	"fmt"
	"regexp"
	"strings"
)

// lineBreakSplice closes the current run, inserts a line break and opens a
// new run, all inside the enclosing paragraph.
const lineBreakSplice = "</a:t></a:r><a:br/><a:r><a:t>"

// postProcess converts rendered escape sequences to markup: each newline
// inside an <a:t> element becomes an <a:br/> run break, so multi-line
// values such as Listing render as real line breaks instead of a literal
// \n in the slide text.
func postProcess(xml string) string {
	return textElementPattern.ReplaceAllStringFunc(xml, func(element string) string {
		gt := strings.IndexByte(element, '>')
		opening := element[:gt+1]
		content := element[gt+1 : len(element)-len("</a:t>")]
		if !strings.Contains(content, "\n") {
			return element
		}
		return opening + strings.ReplaceAll(content, "\n", lineBreakSplice) + "</a:t>"
	})
}

// leftoverDelimiterPattern matches any template delimiter that survived
// rendering.
var leftoverDelimiterPattern = regexp.MustCompile(`\{\{|\}\}|\{%|%\}|\{#|#\}`)

// checkLeftoverDelimiters reports the first unconsumed template delimiter
// in rendered output. A leftover usually means a tag was fragmented beyond
// what preprocessing could repair.
func checkLeftoverDelimiters(xml string) error {
	if m := leftoverDelimiterPattern.FindString(xml); m != "" {
		return fmt.Errorf("unconsumed template delimiter %q in rendered output", m)
	}
	return nil
}
