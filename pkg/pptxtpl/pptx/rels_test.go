package pptx

import (
	"strings"
	"testing"
)

func TestParseRelationships(t *testing.T) {
	content := []byte(xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="` + RelTypeSlideLayout + `" Target="../slideLayouts/slideLayout1.xml"/><Relationship Id="rId2" Type="` + RelTypeHyperlink + `" Target="https://example.com/" TargetMode="External"/></Relationships>`)

	rels, err := parseRelationships(content)
	if err != nil {
		t.Fatalf("parseRelationships() error = %v", err)
	}
	if len(rels.Relationship) != 2 {
		t.Fatalf("parsed %d relationships, want 2", len(rels.Relationship))
	}

	layout := rels.Relationship[0]
	if layout.ID != "rId1" || layout.Target != "../slideLayouts/slideLayout1.xml" {
		t.Errorf("first relationship = %+v, want rId1 -> the layout", layout)
	}
	if layout.External() {
		t.Error("layout relationship reported as external")
	}
	if !rels.Relationship[1].External() {
		t.Error("hyperlink relationship not reported as external")
	}
}

func TestParseRelationshipsFillsNamespace(t *testing.T) {
	rels, err := parseRelationships([]byte(`<Relationships><Relationship Id="rId1" Type="t" Target="x"/></Relationships>`))
	if err != nil {
		t.Fatalf("parseRelationships() error = %v", err)
	}
	if rels.Namespace != relsNamespace {
		t.Errorf("Namespace = %q, want %q", rels.Namespace, relsNamespace)
	}
}

func TestParseRelationshipsInvalid(t *testing.T) {
	if _, err := parseRelationships([]byte(`<Relationships><Relationship`)); err == nil {
		t.Fatal("parseRelationships() on truncated content, want error")
	}
}

func TestRelationshipsMarshal(t *testing.T) {
	rels := newRelationships()
	rels.Add("../slideLayouts/slideLayout1.xml", RelTypeSlideLayout, false)
	rels.Add("https://example.com/", RelTypeHyperlink, true)

	out, err := rels.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(out)

	if !strings.HasPrefix(s, xmlHeader) {
		t.Errorf("Marshal() output missing the xml header:\n%s", s)
	}
	for _, want := range []string{
		`xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`,
		`Id="rId1"`,
		`Target="../slideLayouts/slideLayout1.xml"`,
		`TargetMode="External"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Marshal() output missing %s:\n%s", want, s)
		}
	}
	if got := strings.Count(s, "TargetMode"); got != 1 {
		t.Errorf("TargetMode written %d times, want 1; internal relationships should omit it", got)
	}
}

func TestRelationshipsByID(t *testing.T) {
	rels := newRelationships()
	rels.Add("slides/slide1.xml", RelTypeSlide, false)
	rels.Add("slides/slide2.xml", RelTypeSlide, false)

	rel, ok := rels.ByID("rId2")
	if !ok {
		t.Fatal("ByID(rId2) not found")
	}
	if rel.Target != "slides/slide2.xml" {
		t.Errorf("ByID(rId2).Target = %q, want %q", rel.Target, "slides/slide2.xml")
	}

	if _, ok := rels.ByID("rId9"); ok {
		t.Error("ByID(rId9) found a relationship that was never added")
	}
}

func TestRelationshipsFirstByType(t *testing.T) {
	rels := newRelationships()
	rels.Add("../slideLayouts/slideLayout1.xml", RelTypeSlideLayout, false)
	rels.Add("../media/image1.png", RelTypeImage, false)
	rels.Add("../media/image2.png", RelTypeImage, false)

	rel, ok := rels.FirstByType(RelTypeImage)
	if !ok {
		t.Fatal("FirstByType(image) not found")
	}
	if rel.Target != "../media/image1.png" {
		t.Errorf("FirstByType(image).Target = %q, want the first image", rel.Target)
	}

	if _, ok := rels.FirstByType(RelTypeNotesSlide); ok {
		t.Error("FirstByType(notesSlide) found a relationship in a set with none")
	}
}

func TestRelationshipsIDAllocation(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"empty set", nil, "rId1"},
		{"sequential", []string{"rId1", "rId2"}, "rId3"},
		{"out of order with gap", []string{"rId1", "rId7", "rId3"}, "rId8"},
		{"non-numeric ids ignored", []string{"layoutRel", "rId2"}, "rId3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rels := newRelationships()
			for _, id := range tt.existing {
				rels.Relationship = append(rels.Relationship, Relationship{ID: id, Type: RelTypeSlide, Target: "x"})
			}
			if got := rels.Add("slides/slideN.xml", RelTypeSlide, false); got != tt.want {
				t.Errorf("Add() allocated %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRelationshipsRemove(t *testing.T) {
	rels := newRelationships()
	rels.Add("slides/slide1.xml", RelTypeSlide, false)
	rels.Add("slides/slide2.xml", RelTypeSlide, false)
	rels.Add("slides/slide3.xml", RelTypeSlide, false)

	rels.Remove("rId2")
	if len(rels.Relationship) != 2 {
		t.Fatalf("after Remove, %d relationships, want 2", len(rels.Relationship))
	}
	if _, ok := rels.ByID("rId2"); ok {
		t.Error("rId2 still present after Remove")
	}
	if _, ok := rels.ByID("rId3"); !ok {
		t.Error("Remove renumbered the surviving entries")
	}

	rels.Remove("rId99")
	if len(rels.Relationship) != 2 {
		t.Errorf("removing an absent id changed the set to %d entries", len(rels.Relationship))
	}

	// the freed id is not reused; allocation continues past the maximum
	if got := rels.Add("slides/slide4.xml", RelTypeSlide, false); got != "rId4" {
		t.Errorf("Add() after Remove allocated %q, want rId4", got)
	}
}
