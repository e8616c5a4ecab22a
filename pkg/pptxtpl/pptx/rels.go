package pptx

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
)

// Relationship type URIs used by PresentationML packages.
const (
	RelTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelTypeSlide          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	RelTypeSlideLayout    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	RelTypeSlideMaster    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	RelTypeNotesSlide     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	RelTypeTheme          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
	RelTypeImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	RelTypeHyperlink      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	RelTypePresProps      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/presProps"
	RelTypeViewProps      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/viewProps"
	RelTypeTableStyles    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/tableStyles"
)

const relsNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// Relationship represents one entry in a part's .rels file.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// External reports whether the relationship targets a resource outside the
// package, such as a hyperlink.
func (r Relationship) External() bool {
	return r.TargetMode == "External"
}

// Relationships represents the collection of relationships owned by a part.
type Relationships struct {
	XMLName      xml.Name       `xml:"Relationships"`
	Namespace    string         `xml:"xmlns,attr"`
	Relationship []Relationship `xml:"Relationship"`
}

var ridPattern = regexp.MustCompile(`^rId(\d+)$`)

// newRelationships returns an empty relationship set with the standard
// package namespace.
func newRelationships() *Relationships {
	return &Relationships{Namespace: relsNamespace}
}

// parseRelationships parses the content of a .rels part.
func parseRelationships(content []byte) (*Relationships, error) {
	rels := &Relationships{}
	if err := xml.Unmarshal(content, rels); err != nil {
		return nil, fmt.Errorf("failed to parse relationships: %w", err)
	}
	if rels.Namespace == "" {
		rels.Namespace = relsNamespace
	}
	return rels, nil
}

// Marshal serializes the relationship set with the standard XML header.
func (rs *Relationships) Marshal() ([]byte, error) {
	body, err := xml.Marshal(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relationships: %w", err)
	}
	return append([]byte(xmlHeader), body...), nil
}

// ByID returns the relationship with the given id.
func (rs *Relationships) ByID(id string) (Relationship, bool) {
	for _, r := range rs.Relationship {
		if r.ID == id {
			return r, true
		}
	}
	return Relationship{}, false
}

// FirstByType returns the first relationship of the given type URI.
func (rs *Relationships) FirstByType(relType string) (Relationship, bool) {
	for _, r := range rs.Relationship {
		if r.Type == relType {
			return r, true
		}
	}
	return Relationship{}, false
}

// Add appends a relationship with a freshly allocated id and returns the id.
func (rs *Relationships) Add(target, relType string, external bool) string {
	rel := Relationship{
		ID:     rs.nextID(),
		Type:   relType,
		Target: target,
	}
	if external {
		rel.TargetMode = "External"
	}
	rs.Relationship = append(rs.Relationship, rel)
	return rel.ID
}

// Remove deletes the relationship with the given id, if present.
func (rs *Relationships) Remove(id string) {
	for i, r := range rs.Relationship {
		if r.ID == id {
			rs.Relationship = append(rs.Relationship[:i], rs.Relationship[i+1:]...)
			return
		}
	}
}

// nextID allocates one past the highest numeric rId currently in the set.
func (rs *Relationships) nextID() string {
	max := 0
	for _, r := range rs.Relationship {
		if m := ridPattern.FindStringSubmatch(r.ID); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	}
	return fmt.Sprintf("rId%d", max+1)
}
