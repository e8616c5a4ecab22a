package pptx

import (
	"fmt"
	"strings"
)

// AddSlide appends a blank slide wired to the default layout.
func (p *Package) AddSlide() *Slide {
	return p.newSlide(blankSlideXML, defaultLayoutTarget)
}

// NewSlideFrom creates an empty slide shell wired to the same layout as the
// source slide and appends it to the slide sequence. The caller fills in
// content and any further relationships.
func (p *Package) NewSlideFrom(src *Slide) (*Slide, error) {
	layout, ok := src.LayoutTarget()
	if !ok {
		return nil, fmt.Errorf("slide %s has no layout relationship", src.partName)
	}
	return p.newSlide(blankSlideXML, layout), nil
}

func (p *Package) newSlide(content, layoutTarget string) *Slide {
	partName := p.nextSlidePartName()

	rels := newRelationships()
	rels.Add(layoutTarget, RelTypeSlideLayout, false)

	rID := p.presRels.Add(strings.TrimPrefix(partName, "ppt/"), RelTypeSlide, false)

	s := &Slide{
		pkg:      p,
		partName: partName,
		id:       p.nextSlideID(),
		rID:      rID,
		xml:      content,
		rels:     rels,
	}

	p.addPart(partName, []byte(content))
	p.contentTypes.EnsureOverride("/"+partName, slideContentType)
	p.slides = append(p.slides, s)
	return s
}

// MoveSlideBefore repositions slide s immediately before anchor.
func (p *Package) MoveSlideBefore(s, anchor *Slide) error {
	si := p.indexOf(s)
	ai := p.indexOf(anchor)
	if si == -1 || ai == -1 {
		return fmt.Errorf("slide not in presentation")
	}
	if s == anchor {
		return nil
	}

	p.slides = append(p.slides[:si], p.slides[si+1:]...)
	ai = p.indexOf(anchor)

	moved := make([]*Slide, 0, len(p.slides)+1)
	moved = append(moved, p.slides[:ai]...)
	moved = append(moved, s)
	moved = append(moved, p.slides[ai:]...)
	p.slides = moved
	return nil
}

// RemoveSlide deletes a slide: its sequence entry, its presentation
// relationship, its part, its relationships part and its content-type
// override. The handle becomes detached.
func (p *Package) RemoveSlide(s *Slide) error {
	i := p.indexOf(s)
	if i == -1 {
		return fmt.Errorf("slide not in presentation")
	}

	p.slides = append(p.slides[:i], p.slides[i+1:]...)
	p.presRels.Remove(s.rID)
	p.removePart(s.partName)
	p.removePart(relsPartFor(s.partName))
	p.contentTypes.RemoveOverride("/" + s.partName)
	s.pkg = nil
	return nil
}

func (p *Package) indexOf(s *Slide) int {
	for i, cur := range p.slides {
		if cur == s {
			return i
		}
	}
	return -1
}
