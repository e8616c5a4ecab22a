package pptx

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// parseXML parses part content into a queryable node tree.
func parseXML(content string) (*xmlquery.Node, error) {
	doc, err := xmlquery.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse xml: %w", err)
	}
	return doc, nil
}

// Query evaluates an XPath expression against an XML string and returns the
// matching nodes. The expression is compiled first so an invalid expression
// is reported as such rather than as an empty result.
func Query(content, expr string) ([]*xmlquery.Node, error) {
	if _, err := xpath.Compile(expr); err != nil {
		return nil, fmt.Errorf("invalid xpath expression %q: %w", expr, err)
	}

	doc, err := parseXML(content)
	if err != nil {
		return nil, err
	}

	nodes, err := xmlquery.QueryAll(doc, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath query %q failed: %w", expr, err)
	}
	return nodes, nil
}

// CheckWellFormed verifies that content tokenizes as well-formed XML.
// Custom entity expansion is disabled so documents cannot smuggle
// external entities through the check.
func CheckWellFormed(content string) error {
	decoder := xml.NewDecoder(strings.NewReader(content))
	decoder.Entity = map[string]string{}

	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("malformed xml: %w", err)
		}
	}
}

// attrValue returns the value of a possibly prefixed attribute such as
// "r:id". xmlquery stores the prefix as the attribute's Space.
func attrValue(n *xmlquery.Node, name string) string {
	local, space := name, ""
	if i := strings.Index(name, ":"); i > 0 {
		space, local = name[:i], name[i+1:]
	}
	for _, a := range n.Attr {
		if a.Name.Local == local && (space == "" || a.Name.Space == space) {
			return a.Value
		}
	}
	return ""
}

// EscapeText escapes a string for use as XML character data. Quote
// characters are left alone; they are only significant inside attribute
// values, which this package writes itself.
func EscapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
