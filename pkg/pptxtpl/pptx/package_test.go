package pptx

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestNewPackage(t *testing.T) {
	pkg := New()

	if got := pkg.SlideCount(); got != 0 {
		t.Errorf("SlideCount() = %d, want 0", got)
	}
	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"ppt/presentation.xml",
		"ppt/_rels/presentation.xml.rels",
		"ppt/slideMasters/slideMaster1.xml",
		"ppt/slideLayouts/slideLayout1.xml",
		"ppt/theme/theme1.xml",
	} {
		if _, ok := pkg.Part(name); !ok {
			t.Errorf("new package missing part %s", name)
		}
	}
}

func TestAddSlide(t *testing.T) {
	pkg := New()
	s := pkg.AddSlide()

	if got := s.PartName(); got != "ppt/slides/slide1.xml" {
		t.Errorf("PartName() = %q, want %q", got, "ppt/slides/slide1.xml")
	}
	if got := s.ID(); got != 256 {
		t.Errorf("ID() = %d, want 256", got)
	}
	if got := s.Index(); got != 0 {
		t.Errorf("Index() = %d, want 0", got)
	}
	if got := pkg.SlideCount(); got != 1 {
		t.Errorf("SlideCount() = %d, want 1", got)
	}

	layout, ok := s.LayoutTarget()
	if !ok || layout != "../slideLayouts/slideLayout1.xml" {
		t.Errorf("LayoutTarget() = %q, %v, want the default layout", layout, ok)
	}
	if _, ok := pkg.Part("ppt/slides/slide1.xml"); !ok {
		t.Error("slide part not registered in the package")
	}

	rel, ok := pkg.presRels.ByID(s.RelationshipID())
	if !ok {
		t.Fatalf("presentation has no relationship %s", s.RelationshipID())
	}
	if rel.Target != "slides/slide1.xml" {
		t.Errorf("relationship target = %q, want %q", rel.Target, "slides/slide1.xml")
	}
	if rel.Type != RelTypeSlide {
		t.Errorf("relationship type = %q, want the slide type", rel.Type)
	}
}

func TestAddSlideSequence(t *testing.T) {
	pkg := New()
	first := pkg.AddSlide()
	second := pkg.AddSlide()

	if got := second.PartName(); got != "ppt/slides/slide2.xml" {
		t.Errorf("PartName() = %q, want %q", got, "ppt/slides/slide2.xml")
	}
	if got := second.ID(); got != first.ID()+1 {
		t.Errorf("ID() = %d, want %d", got, first.ID()+1)
	}
	if first.RelationshipID() == second.RelationshipID() {
		t.Errorf("both slides share relationship id %s", first.RelationshipID())
	}
}

func TestSlidePartNamesNeverReused(t *testing.T) {
	pkg := New()
	first := pkg.AddSlide()
	pkg.AddSlide()

	if err := pkg.RemoveSlide(first); err != nil {
		t.Fatalf("RemoveSlide() error = %v", err)
	}

	third := pkg.AddSlide()
	if got := third.PartName(); got != "ppt/slides/slide3.xml" {
		t.Errorf("PartName() = %q, want %q", got, "ppt/slides/slide3.xml")
	}
}

func TestSlidesReturnsCopy(t *testing.T) {
	pkg := New()
	pkg.AddSlide()
	pkg.AddSlide()

	slides := pkg.Slides()
	slides[0] = nil
	if pkg.Slides()[0] == nil {
		t.Error("mutating the returned slice changed the package")
	}
}

func TestSetPart(t *testing.T) {
	pkg := New()
	before := len(pkg.PartNames())

	pkg.SetPart("ppt/media/image1.png", []byte{0x89, 'P', 'N', 'G'})
	content, ok := pkg.Part("ppt/media/image1.png")
	if !ok {
		t.Fatal("added part not found")
	}
	if !bytes.Equal(content, []byte{0x89, 'P', 'N', 'G'}) {
		t.Errorf("Part() = %v, want the added bytes", content)
	}

	pkg.SetPart("ppt/media/image1.png", []byte("updated"))
	if content, _ = pkg.Part("ppt/media/image1.png"); string(content) != "updated" {
		t.Errorf("Part() after update = %q, want %q", content, "updated")
	}

	names := pkg.PartNames()
	if len(names) != before+1 {
		t.Errorf("package has %d parts, want %d", len(names), before+1)
	}
	if names[len(names)-1] != "ppt/media/image1.png" {
		t.Errorf("last part = %q, new parts should append", names[len(names)-1])
	}
}

func TestPartMissing(t *testing.T) {
	if _, ok := New().Part("ppt/media/missing.png"); ok {
		t.Error("Part() found a part that was never added")
	}
}

func TestNewSlideFrom(t *testing.T) {
	pkg := New()
	src := pkg.AddSlide()

	dup, err := pkg.NewSlideFrom(src)
	if err != nil {
		t.Fatalf("NewSlideFrom() error = %v", err)
	}

	if got := dup.PartName(); got != "ppt/slides/slide2.xml" {
		t.Errorf("PartName() = %q, want %q", got, "ppt/slides/slide2.xml")
	}
	srcLayout, _ := src.LayoutTarget()
	dupLayout, ok := dup.LayoutTarget()
	if !ok || dupLayout != srcLayout {
		t.Errorf("duplicate layout = %q, want %q", dupLayout, srcLayout)
	}
	if got := dup.Index(); got != pkg.SlideCount()-1 {
		t.Errorf("Index() = %d, duplicates should append", got)
	}
	if dup.XML() != blankSlideXML {
		t.Error("duplicate should start from the blank shell")
	}
}

func TestNewSlideFromWithoutLayout(t *testing.T) {
	pkg := New()
	src := pkg.AddSlide()
	src.rels = newRelationships()

	if _, err := pkg.NewSlideFrom(src); err == nil {
		t.Fatal("NewSlideFrom() with no layout relationship, want error")
	}
}

func TestMoveSlideBefore(t *testing.T) {
	pkg := New()
	a := pkg.AddSlide()
	b := pkg.AddSlide()
	c := pkg.AddSlide()

	if err := pkg.MoveSlideBefore(c, a); err != nil {
		t.Fatalf("MoveSlideBefore() error = %v", err)
	}
	if got, want := slideOrder(pkg), []string{c.PartName(), a.PartName(), b.PartName()}; !reflect.DeepEqual(got, want) {
		t.Errorf("slide order = %v, want %v", got, want)
	}

	if err := pkg.MoveSlideBefore(b, b); err != nil {
		t.Fatalf("MoveSlideBefore() onto itself error = %v", err)
	}
	if got, want := slideOrder(pkg), []string{c.PartName(), a.PartName(), b.PartName()}; !reflect.DeepEqual(got, want) {
		t.Errorf("moving a slide before itself changed the order to %v", got)
	}

	if err := pkg.MoveSlideBefore(c, b); err != nil {
		t.Fatalf("MoveSlideBefore() error = %v", err)
	}
	if got, want := slideOrder(pkg), []string{a.PartName(), c.PartName(), b.PartName()}; !reflect.DeepEqual(got, want) {
		t.Errorf("slide order = %v, want %v", got, want)
	}
}

func TestMoveSlideBeforeDetached(t *testing.T) {
	pkg := New()
	a := pkg.AddSlide()
	b := pkg.AddSlide()

	if err := pkg.RemoveSlide(a); err != nil {
		t.Fatalf("RemoveSlide() error = %v", err)
	}
	if err := pkg.MoveSlideBefore(a, b); err == nil {
		t.Fatal("MoveSlideBefore() with a removed slide, want error")
	}
}

func TestRemoveSlide(t *testing.T) {
	pkg := New()
	s := pkg.AddSlide()
	keep := pkg.AddSlide()
	rID := s.RelationshipID()

	if err := pkg.RemoveSlide(s); err != nil {
		t.Fatalf("RemoveSlide() error = %v", err)
	}

	if got := pkg.SlideCount(); got != 1 {
		t.Errorf("SlideCount() = %d, want 1", got)
	}
	if got := s.Index(); got != -1 {
		t.Errorf("Index() of removed slide = %d, want -1", got)
	}
	if got := keep.Index(); got != 0 {
		t.Errorf("Index() of surviving slide = %d, want 0", got)
	}
	if _, ok := pkg.Part("ppt/slides/slide1.xml"); ok {
		t.Error("slide part still present after removal")
	}
	if _, ok := pkg.presRels.ByID(rID); ok {
		t.Error("presentation relationship still present after removal")
	}
	for _, o := range pkg.contentTypes.Overrides {
		if o.PartName == "/ppt/slides/slide1.xml" {
			t.Error("content-type override still present after removal")
		}
	}

	if err := pkg.RemoveSlide(s); err == nil {
		t.Error("removing the same slide twice, want error")
	}
}

func TestContentTypesOverrides(t *testing.T) {
	ct := &ContentTypes{}

	ct.EnsureOverride("/ppt/slides/slide1.xml", slideContentType)
	ct.EnsureOverride("/ppt/slides/slide1.xml", slideContentType)
	if len(ct.Overrides) != 1 {
		t.Fatalf("overrides = %d, want 1; EnsureOverride should be idempotent", len(ct.Overrides))
	}

	ct.RemoveOverride("/ppt/slides/slide1.xml")
	if len(ct.Overrides) != 0 {
		t.Errorf("overrides = %d after removal, want 0", len(ct.Overrides))
	}
	ct.RemoveOverride("/ppt/slides/slide1.xml")
}

func TestPackageRoundTrip(t *testing.T) {
	pkg := New()
	first := pkg.AddSlide()
	if err := first.AddTextBox(Inches(1), Inches(1), Inches(8), Inches(1), "Opening"); err != nil {
		t.Fatalf("AddTextBox() error = %v", err)
	}
	second := pkg.AddSlide()
	if err := second.AddTextBox(Inches(1), Inches(1), Inches(8), Inches(1), "Closing"); err != nil {
		t.Fatalf("AddTextBox() error = %v", err)
	}
	if err := pkg.MoveSlideBefore(second, first); err != nil {
		t.Fatalf("MoveSlideBefore() error = %v", err)
	}

	data, err := pkg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	reopened, err := OpenReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	if got := reopened.SlideCount(); got != 2 {
		t.Fatalf("SlideCount() after reopen = %d, want 2", got)
	}

	var texts []string
	for _, s := range reopened.Slides() {
		text, err := s.Text()
		if err != nil {
			t.Fatalf("Text() error = %v", err)
		}
		texts = append(texts, text)
	}
	if want := []string{"Closing", "Opening"}; !reflect.DeepEqual(texts, want) {
		t.Errorf("slide texts = %v, want %v", texts, want)
	}

	lead := reopened.Slides()[0]
	if got := lead.ID(); got != second.ID() {
		t.Errorf("leading slide id = %d, want %d", got, second.ID())
	}
	if got := lead.PartName(); got != second.PartName() {
		t.Errorf("leading slide part = %q, want %q", got, second.PartName())
	}
	if _, ok := lead.LayoutTarget(); !ok {
		t.Error("reopened slide lost its layout relationship")
	}
}

func TestPackageSave(t *testing.T) {
	pkg := New()
	s := pkg.AddSlide()
	if err := s.AddTextBox(Inches(1), Inches(1), Inches(4), Inches(1), "Saved"); err != nil {
		t.Fatalf("AddTextBox() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "deck.pptx")
	if err := pkg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	text, err := reopened.Slides()[0].Text()
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if text != "Saved" {
		t.Errorf("Text() = %q, want %q", text, "Saved")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent.pptx")); err == nil {
		t.Fatal("Open() on a missing file, want error")
	}
}

func TestOpenReaderNotZip(t *testing.T) {
	data := []byte("not a zip archive")
	if _, err := OpenReader(bytes.NewReader(data), int64(len(data))); err == nil {
		t.Fatal("OpenReader() on junk bytes, want error")
	}
}

func TestOpenReaderRejectsNonPresentation(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create error = %v", err)
	}
	if _, err := fw.Write([]byte("<w:document/>")); err != nil {
		t.Fatalf("zip write error = %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close error = %v", err)
	}

	_, err = OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err == nil {
		t.Fatal("OpenReader() on a non-presentation archive, want error")
	}
	if !strings.Contains(err.Error(), "not a valid PPTX file") {
		t.Errorf("error = %q, want a PPTX validity message", err)
	}
}

func TestSpliceSlideList(t *testing.T) {
	const entries = `<p:sldId id="256" r:id="rId6"/>`
	tests := []struct {
		name    string
		pres    string
		want    string
		wantErr bool
	}{
		{
			name: "empty element",
			pres: `<p:presentation><p:sldIdLst></p:sldIdLst><p:sldSz/></p:presentation>`,
			want: `<p:presentation><p:sldIdLst><p:sldId id="256" r:id="rId6"/></p:sldIdLst><p:sldSz/></p:presentation>`,
		},
		{
			name: "self-closing element",
			pres: `<p:presentation><p:sldIdLst/><p:sldSz/></p:presentation>`,
			want: `<p:presentation><p:sldIdLst><p:sldId id="256" r:id="rId6"/></p:sldIdLst><p:sldSz/></p:presentation>`,
		},
		{
			name: "populated element is replaced",
			pres: `<p:presentation><p:sldIdLst><p:sldId id="900" r:id="rId9"/></p:sldIdLst></p:presentation>`,
			want: `<p:presentation><p:sldIdLst><p:sldId id="256" r:id="rId6"/></p:sldIdLst></p:presentation>`,
		},
		{
			name: "missing element inserted after the master list",
			pres: `<p:presentation><p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst><p:sldSz/></p:presentation>`,
			want: `<p:presentation><p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst><p:sldIdLst><p:sldId id="256" r:id="rId6"/></p:sldIdLst><p:sldSz/></p:presentation>`,
		},
		{
			name:    "no insertion point",
			pres:    `<p:presentation><p:sldSz/></p:presentation>`,
			wantErr: true,
		},
		{
			name:    "missing close tag",
			pres:    `<p:presentation><p:sldIdLst><p:sldId/>`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := spliceSlideList(tt.pres, entries)
			if (err != nil) != tt.wantErr {
				t.Fatalf("spliceSlideList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("spliceSlideList() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestRelsPartFor(t *testing.T) {
	tests := []struct {
		name string
		part string
		want string
	}{
		{"slide part", "ppt/slides/slide1.xml", "ppt/slides/_rels/slide1.xml.rels"},
		{"presentation part", "ppt/presentation.xml", "ppt/_rels/presentation.xml.rels"},
		{"root level part", "presentation.xml", "_rels/presentation.xml.rels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relsPartFor(tt.part); got != tt.want {
				t.Errorf("relsPartFor(%q) = %q, want %q", tt.part, got, tt.want)
			}
		})
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name    string
		baseDir string
		target  string
		want    string
	}{
		{"relative", "ppt", "slides/slide1.xml", "ppt/slides/slide1.xml"},
		{"parent traversal", "ppt/slides", "../slideLayouts/slideLayout1.xml", "ppt/slideLayouts/slideLayout1.xml"},
		{"absolute", "ppt", "/ppt/media/image1.png", "ppt/media/image1.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveTarget(tt.baseDir, tt.target); got != tt.want {
				t.Errorf("resolveTarget(%q, %q) = %q, want %q", tt.baseDir, tt.target, got, tt.want)
			}
		})
	}
}

func slideOrder(p *Package) []string {
	var names []string
	for _, s := range p.Slides() {
		names = append(names, s.PartName())
	}
	return names
}
