package pptx

import (
	"strings"

	"github.com/antchfx/xmlquery"
)

// Slide is a handle to one slide of an open package. The subtree is held
// as the raw part content; callers that rewrite it are expected to keep it
// well-formed.
type Slide struct {
	pkg      *Package
	partName string
	id       int
	rID      string
	xml      string
	rels     *Relationships
}

// PartName returns the slide's part name, e.g. ppt/slides/slide1.xml.
func (s *Slide) PartName() string {
	return s.partName
}

// ID returns the slide's p:sldId value.
func (s *Slide) ID() int {
	return s.id
}

// RelationshipID returns the slide's r:id in the presentation part.
func (s *Slide) RelationshipID() string {
	return s.rID
}

// XML returns the slide part's current content.
func (s *Slide) XML() string {
	return s.xml
}

// SetXML replaces the slide part's content.
func (s *Slide) SetXML(content string) {
	s.xml = content
}

// Relationships returns a copy of the slide's relationship entries in
// declaration order.
func (s *Slide) Relationships() []Relationship {
	out := make([]Relationship, len(s.rels.Relationship))
	copy(out, s.rels.Relationship)
	return out
}

// AddRelationship appends a relationship and returns the allocated rId.
func (s *Slide) AddRelationship(target, relType string, external bool) string {
	return s.rels.Add(target, relType, external)
}

// LayoutTarget returns the slide's layout relationship target, relative to
// the slide part.
func (s *Slide) LayoutTarget() (string, bool) {
	rel, ok := s.rels.FirstByType(RelTypeSlideLayout)
	if !ok {
		return "", false
	}
	return rel.Target, true
}

// Index returns the slide's current position in the presentation, or -1 if
// the slide has been removed.
func (s *Slide) Index() int {
	if s.pkg == nil {
		return -1
	}
	return s.pkg.indexOf(s)
}

// Text extracts the visible text of the slide: runs concatenated, line
// breaks as newlines, paragraphs joined with newlines, text bodies joined
// with a single space.
func (s *Slide) Text() (string, error) {
	doc, err := parseXML(s.xml)
	if err != nil {
		return "", err
	}

	bodies, err := xmlquery.QueryAll(doc, "//*[local-name()='txBody']")
	if err != nil {
		return "", err
	}

	var shapes []string
	for _, body := range bodies {
		var paras []string
		for child := body.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == xmlquery.ElementNode && child.Data == "p" {
				paras = append(paras, paragraphText(child))
			}
		}
		shapes = append(shapes, strings.Join(paras, "\n"))
	}
	return strings.Join(shapes, " "), nil
}

func paragraphText(p *xmlquery.Node) string {
	var b strings.Builder
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			switch c.Data {
			case "t":
				b.WriteString(c.InnerText())
			case "br":
				b.WriteString("\n")
			default:
				walk(c)
			}
		}
	}
	walk(p)
	return b.String()
}
