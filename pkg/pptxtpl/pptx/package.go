package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

const (
	// PresentationPart is the main part every valid package must contain.
	PresentationPart = "ppt/presentation.xml"

	contentTypesPart     = "[Content_Types].xml"
	presentationRelsPart = "ppt/_rels/presentation.xml.rels"

	slideContentType = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
)

// Part is one named entry of the package, in zip order.
type Part struct {
	Name    string
	Content []byte
}

// ContentTypes represents the [Content_Types].xml manifest.
type ContentTypes struct {
	XMLName   xml.Name              `xml:"Types"`
	Namespace string                `xml:"xmlns,attr"`
	Defaults  []ContentTypeDefault  `xml:"Default"`
	Overrides []ContentTypeOverride `xml:"Override"`
}

// ContentTypeDefault maps a file extension to a content type.
type ContentTypeDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// ContentTypeOverride maps a single part to a content type.
type ContentTypeOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// EnsureOverride registers a part's content type if not already present.
func (ct *ContentTypes) EnsureOverride(partName, contentType string) {
	for _, o := range ct.Overrides {
		if o.PartName == partName {
			return
		}
	}
	ct.Overrides = append(ct.Overrides, ContentTypeOverride{PartName: partName, ContentType: contentType})
}

// RemoveOverride drops a part's content type registration.
func (ct *ContentTypes) RemoveOverride(partName string) {
	for i, o := range ct.Overrides {
		if o.PartName == partName {
			ct.Overrides = append(ct.Overrides[:i], ct.Overrides[i+1:]...)
			return
		}
	}
}

// Package is an open .pptx container: the ordered zip parts plus parsed
// views of the manifest, the presentation relationships and the slide
// sequence. All mutation happens in memory; Save writes a new archive.
type Package struct {
	parts        []*Part
	index        map[string]*Part
	presentation string
	presRels     *Relationships
	contentTypes *ContentTypes
	slides       []*Slide
}

// Open reads a .pptx package from disk.
func Open(filename string) (*Package, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return OpenReader(bytes.NewReader(content), int64(len(content)))
}

// OpenReader reads a .pptx package from an in-memory or seekable source.
func OpenReader(r io.ReaderAt, size int64) (*Package, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read zip file: %w", err)
	}

	p := &Package{index: make(map[string]*Part)}
	for _, file := range zipReader.File {
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open part %s: %w", file.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", file.Name, err)
		}
		p.addPart(file.Name, content)
	}

	if err := p.parse(); err != nil {
		return nil, err
	}
	return p, nil
}

// New creates a blank presentation with one slide master, one blank layout
// and no slides.
func New() *Package {
	p := &Package{index: make(map[string]*Part)}
	for _, part := range skeletonParts {
		p.addPart(part.Name, part.Content)
	}
	if err := p.parse(); err != nil {
		// The skeleton is a compile-time constant; failing to parse it is
		// a programming error, not a runtime condition.
		panic(fmt.Sprintf("pptx: invalid skeleton: %v", err))
	}
	return p
}

// parse builds the structured views from the raw parts.
func (p *Package) parse() error {
	pres, ok := p.index[PresentationPart]
	if !ok {
		return fmt.Errorf("not a valid PPTX file: missing %s", PresentationPart)
	}
	p.presentation = string(pres.Content)

	ctPart, ok := p.index[contentTypesPart]
	if !ok {
		return fmt.Errorf("not a valid PPTX file: missing %s", contentTypesPart)
	}
	p.contentTypes = &ContentTypes{}
	if err := xml.Unmarshal(ctPart.Content, p.contentTypes); err != nil {
		return fmt.Errorf("failed to parse %s: %w", contentTypesPart, err)
	}
	if p.contentTypes.Namespace == "" {
		p.contentTypes.Namespace = "http://schemas.openxmlformats.org/package/2006/content-types"
	}

	relsPart, ok := p.index[presentationRelsPart]
	if !ok {
		return fmt.Errorf("not a valid PPTX file: missing %s", presentationRelsPart)
	}
	rels, err := parseRelationships(relsPart.Content)
	if err != nil {
		return err
	}
	p.presRels = rels

	return p.parseSlides()
}

// parseSlides reads the ordered slide sequence out of p:sldIdLst.
func (p *Package) parseSlides() error {
	doc, err := parseXML(p.presentation)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", PresentationPart, err)
	}

	nodes, err := xmlquery.QueryAll(doc, "//*[local-name()='sldIdLst']/*[local-name()='sldId']")
	if err != nil {
		return fmt.Errorf("failed to query slide list: %w", err)
	}

	p.slides = nil
	for _, node := range nodes {
		rID := attrValue(node, "r:id")
		rel, ok := p.presRels.ByID(rID)
		if !ok {
			return fmt.Errorf("slide relationship %s not found", rID)
		}

		partName := resolveTarget("ppt", rel.Target)
		part, ok := p.index[partName]
		if !ok {
			return fmt.Errorf("slide part %s not found", partName)
		}

		id, err := strconv.Atoi(attrValue(node, "id"))
		if err != nil {
			return fmt.Errorf("invalid slide id %q: %w", attrValue(node, "id"), err)
		}

		slideRels := newRelationships()
		if relsP, ok := p.index[relsPartFor(partName)]; ok {
			slideRels, err = parseRelationships(relsP.Content)
			if err != nil {
				return fmt.Errorf("failed to parse relationships of %s: %w", partName, err)
			}
		}

		p.slides = append(p.slides, &Slide{
			pkg:      p,
			partName: partName,
			id:       id,
			rID:      rID,
			xml:      string(part.Content),
			rels:     slideRels,
		})
	}
	return nil
}

// Slides returns the slide sequence in presentation order.
func (p *Package) Slides() []*Slide {
	out := make([]*Slide, len(p.slides))
	copy(out, p.slides)
	return out
}

// SlideCount returns the number of slides in the presentation.
func (p *Package) SlideCount() int {
	return len(p.slides)
}

// Part returns the raw content of a named part.
func (p *Package) Part(name string) ([]byte, bool) {
	part, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return part.Content, true
}

// SetPart replaces a part's content, adding the part if it does not exist.
func (p *Package) SetPart(name string, content []byte) {
	if part, ok := p.index[name]; ok {
		part.Content = content
		return
	}
	p.addPart(name, content)
}

// PartNames lists all part names in package order.
func (p *Package) PartNames() []string {
	names := make([]string, 0, len(p.parts))
	for _, part := range p.parts {
		names = append(names, part.Name)
	}
	return names
}

func (p *Package) addPart(name string, content []byte) {
	part := &Part{Name: name, Content: content}
	p.parts = append(p.parts, part)
	p.index[name] = part
}

func (p *Package) removePart(name string) {
	if _, ok := p.index[name]; !ok {
		return
	}
	delete(p.index, name)
	for i, part := range p.parts {
		if part.Name == name {
			p.parts = append(p.parts[:i], p.parts[i+1:]...)
			return
		}
	}
}

// Save writes the package to a file.
func (p *Package) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := p.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write serializes the package as a zip archive.
func (p *Package) Write(w io.Writer) error {
	if err := p.sync(); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	for _, part := range p.parts {
		fw, err := zw.Create(part.Name)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", part.Name, err)
		}
		if _, err := fw.Write(part.Content); err != nil {
			return fmt.Errorf("failed to write %s: %w", part.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zip writer: %w", err)
	}
	return nil
}

// Bytes serializes the package into memory.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sync flushes the structured views back into the raw parts.
func (p *Package) sync() error {
	for _, s := range p.slides {
		p.SetPart(s.partName, []byte(s.xml))
		if len(s.rels.Relationship) > 0 || p.hasPart(relsPartFor(s.partName)) {
			content, err := s.rels.Marshal()
			if err != nil {
				return err
			}
			p.SetPart(relsPartFor(s.partName), content)
		}
	}

	relsContent, err := p.presRels.Marshal()
	if err != nil {
		return err
	}
	p.SetPart(presentationRelsPart, relsContent)

	ctBody, err := xml.Marshal(p.contentTypes)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", contentTypesPart, err)
	}
	p.SetPart(contentTypesPart, append([]byte(xmlHeader), ctBody...))

	pres, err := spliceSlideList(p.presentation, p.slideListEntries())
	if err != nil {
		return err
	}
	p.presentation = pres
	p.SetPart(PresentationPart, []byte(pres))
	return nil
}

func (p *Package) hasPart(name string) bool {
	_, ok := p.index[name]
	return ok
}

func (p *Package) slideListEntries() string {
	var b strings.Builder
	for _, s := range p.slides {
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="%s"/>`, s.id, s.rID)
	}
	return b.String()
}

// spliceSlideList replaces the p:sldIdLst element of presentation.xml with
// one rebuilt from the given entries. The element vocabulary is fixed, so
// string surgery is sufficient and keeps the rest of the part untouched.
func spliceSlideList(pres, entries string) (string, error) {
	rebuilt := "<p:sldIdLst>" + entries + "</p:sldIdLst>"

	idx := strings.Index(pres, "<p:sldIdLst")
	if idx == -1 {
		anchor := "</p:sldMasterIdLst>"
		j := strings.Index(pres, anchor)
		if j == -1 {
			return "", fmt.Errorf("presentation.xml has no sldIdLst insertion point")
		}
		at := j + len(anchor)
		return pres[:at] + rebuilt + pres[at:], nil
	}

	gt := strings.Index(pres[idx:], ">")
	if gt == -1 {
		return "", fmt.Errorf("presentation.xml has an unterminated sldIdLst tag")
	}
	gt += idx

	end := gt + 1
	if pres[gt-1] != '/' {
		const closeTag = "</p:sldIdLst>"
		c := strings.Index(pres[gt:], closeTag)
		if c == -1 {
			return "", fmt.Errorf("presentation.xml is missing the sldIdLst close tag")
		}
		end = gt + c + len(closeTag)
	}
	return pres[:idx] + rebuilt + pres[end:], nil
}

var slidePartPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func (p *Package) nextSlidePartName() string {
	max := 0
	for _, part := range p.parts {
		if m := slidePartPattern.FindStringSubmatch(part.Name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	}
	return fmt.Sprintf("ppt/slides/slide%d.xml", max+1)
}

func (p *Package) nextSlideID() int {
	max := 255
	for _, s := range p.slides {
		if s.id > max {
			max = s.id
		}
	}
	return max + 1
}

// relsPartFor maps a part name to its relationships part name,
// e.g. ppt/slides/slide1.xml -> ppt/slides/_rels/slide1.xml.rels.
func relsPartFor(partName string) string {
	dir := ""
	base := partName
	if idx := strings.LastIndex(partName, "/"); idx != -1 {
		dir = partName[:idx]
		base = partName[idx+1:]
	}
	if dir == "" {
		return fmt.Sprintf("_rels/%s.rels", base)
	}
	return fmt.Sprintf("%s/_rels/%s.rels", dir, base)
}

// resolveTarget resolves a relationship target against the directory of the
// relationship's source part.
func resolveTarget(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(baseDir, target)
}
