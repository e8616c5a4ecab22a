package pptxtpl

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mtucker502/pptxtpl/pkg/pptxtpl/pptx"
)

func TestCloneSlideAllocatesNewPart(t *testing.T) {
	pkg := newDeck(t, "Body {{ x }}")
	src := pkg.Slides()[0]

	dup, err := cloneSlide(pkg, src)
	if err != nil {
		t.Fatalf("clone failed: %v", err)
	}

	if pkg.SlideCount() != 2 {
		t.Fatalf("slide count = %d, want 2", pkg.SlideCount())
	}
	if dup.PartName() == src.PartName() {
		t.Errorf("duplicate reuses part name %s", src.PartName())
	}
	if got := dup.PartName(); got != "ppt/slides/slide2.xml" {
		t.Errorf("duplicate part name = %q, want %q", got, "ppt/slides/slide2.xml")
	}
	if pkg.Slides()[1] != dup {
		t.Error("duplicate not appended at the end of the sequence")
	}
	if diff := cmp.Diff(src.XML(), dup.XML()); diff != "" {
		t.Errorf("duplicate content mismatch (-src +dup):\n%s", diff)
	}

	srcLayout, _ := src.LayoutTarget()
	dupLayout, ok := dup.LayoutTarget()
	if !ok || dupLayout != srcLayout {
		t.Errorf("duplicate layout = %q, want %q", dupLayout, srcLayout)
	}
}

func TestCloneSlideContentIsIndependent(t *testing.T) {
	pkg := newDeck(t, "original")
	src := pkg.Slides()[0]
	before := src.XML()

	dup, err := cloneSlide(pkg, src)
	if err != nil {
		t.Fatalf("clone failed: %v", err)
	}
	dup.SetXML("<p:sld/>")

	if src.XML() != before {
		t.Error("mutating the duplicate changed the source slide")
	}
}

func TestCloneSlideCopiesExtraRelationships(t *testing.T) {
	pkg := newDeck(t, "link target")
	src := pkg.Slides()[0]
	rID := src.AddRelationship("https://example.com/", pptx.RelTypeHyperlink, true)
	src.SetXML(strings.Replace(src.XML(), "</p:spTree>",
		`<p:sp><p:nvSpPr><p:cNvPr id="5" name="Link"><a:hlinkClick r:id="`+rID+`"/></p:cNvPr><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/></p:sp></p:spTree>`, 1))

	dup, err := cloneSlide(pkg, src)
	if err != nil {
		t.Fatalf("clone failed: %v", err)
	}

	if diff := cmp.Diff(src.Relationships(), dup.Relationships()); diff != "" {
		t.Errorf("relationships mismatch (-src +dup):\n%s", diff)
	}
	rels := dup.Relationships()
	if len(rels) < 2 {
		t.Fatal("duplicate is missing the hyperlink relationship")
	}
	hlink := rels[1]
	if !hlink.External() {
		t.Error("hyperlink relationship lost its external target mode")
	}
	if !strings.Contains(dup.XML(), `r:id="`+rID+`"`) {
		t.Errorf("duplicate no longer references %s", rID)
	}
}

func TestRemapRelationshipIDs(t *testing.T) {
	tests := []struct {
		name     string
		xml      string
		remap    map[string]string
		expected string
	}{
		{
			name:     "empty map is a no-op",
			xml:      `<a:blip r:embed="rId3"/>`,
			remap:    map[string]string{},
			expected: `<a:blip r:embed="rId3"/>`,
		},
		{
			name:     "single rename",
			xml:      `<a:blip r:embed="rId3"/>`,
			remap:    map[string]string{"rId3": "rId7"},
			expected: `<a:blip r:embed="rId7"/>`,
		},
		{
			name:     "swapped ids do not chain",
			xml:      `<a:blip r:embed="rId1"/><a:hlinkClick r:id="rId2"/>`,
			remap:    map[string]string{"rId1": "rId2", "rId2": "rId1"},
			expected: `<a:blip r:embed="rId2"/><a:hlinkClick r:id="rId1"/>`,
		},
		{
			name:     "unmapped ids survive",
			xml:      `<a:blip r:embed="rId1"/><a:blip r:embed="rId9"/>`,
			remap:    map[string]string{"rId1": "rId5"},
			expected: `<a:blip r:embed="rId5"/><a:blip r:embed="rId9"/>`,
		},
		{
			name:     "longer id is not a prefix match",
			xml:      `<a:blip r:embed="rId10"/>`,
			remap:    map[string]string{"rId1": "rId5"},
			expected: `<a:blip r:embed="rId10"/>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := remapRelationshipIDs(tt.xml, tt.remap)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("remap mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

var guidPattern = regexp.MustCompile(`\{[0-9A-F]{8}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{12}\}`)

func TestRefreshCreationIDs(t *testing.T) {
	const in = `<p:ext uri="{BB962C8B-B14F-4D97-AF65-F5344CB8AC3E}">` +
		`<p14:creationId xmlns:p14="http://schemas.microsoft.com/office/powerpoint/2010/main" val="{11111111-2222-3333-4444-555555555555}"/>` +
		`</p:ext>` +
		`<p14:creationId val="{66666666-7777-8888-9999-000000000000}"/>`

	out := refreshCreationIDs(in)

	if strings.Contains(out, "{11111111-2222-3333-4444-555555555555}") {
		t.Error("first creation id was not replaced")
	}
	if strings.Contains(out, "{66666666-7777-8888-9999-000000000000}") {
		t.Error("second creation id was not replaced")
	}
	// The ext uri is not a creationId value and must survive.
	if !strings.Contains(out, `uri="{BB962C8B-B14F-4D97-AF65-F5344CB8AC3E}"`) {
		t.Error("ext uri GUID was rewritten")
	}

	ids := guidPattern.FindAllString(strings.TrimPrefix(out, `<p:ext uri="{BB962C8B-B14F-4D97-AF65-F5344CB8AC3E}">`), -1)
	if len(ids) != 2 {
		t.Fatalf("found %d GUIDs after the ext uri, want 2", len(ids))
	}
	if ids[0] == ids[1] {
		t.Error("both creation ids refreshed to the same GUID")
	}
	if !strings.Contains(out, `xmlns:p14="http://schemas.microsoft.com/office/powerpoint/2010/main"`) {
		t.Error("creationId attributes before val were not preserved")
	}
}

func TestRefreshCreationIDsWithoutAny(t *testing.T) {
	const in = `<p:sp><p:spPr/></p:sp>`
	if got := refreshCreationIDs(in); got != in {
		t.Errorf("got %q, want input unchanged", got)
	}
}
