package pptxtpl

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mtucker502/pptxtpl/pkg/pptxtpl/pptx"
)

// ridRefPattern matches a quoted relationship id reference inside slide
// XML, e.g. r:embed="rId3".
var ridRefPattern = regexp.MustCompile(`"(rId\d+)"`)

// creationIDPattern matches the GUID value of a p14:creationId element.
var creationIDPattern = regexp.MustCompile(`(<p14:creationId[^>]*\bval=")\{[0-9A-Fa-f-]+\}(")`)

// cloneSlide produces an independent duplicate of src, appended at the end
// of the slide sequence. The duplicate carries a full copy of the source
// XML, re-established relationships for everything but the layout (which
// the new slide already owns), and every relationship id reference in the
// copied XML remapped to the duplicate's own ids.
func cloneSlide(pkg *pptx.Package, src *pptx.Slide) (*pptx.Slide, error) {
	dup, err := pkg.NewSlideFrom(src)
	if err != nil {
		return nil, err
	}

	remap := make(map[string]string)

	var srcLayoutID, dupLayoutID string
	for _, rel := range dup.Relationships() {
		if rel.Type == pptx.RelTypeSlideLayout {
			dupLayoutID = rel.ID
		}
	}
	for _, rel := range src.Relationships() {
		if rel.Type == pptx.RelTypeSlideLayout {
			srcLayoutID = rel.ID
			continue
		}
		newID := dup.AddRelationship(rel.Target, rel.Type, rel.External())
		if newID != rel.ID {
			remap[rel.ID] = newID
		}
	}
	if srcLayoutID != "" && dupLayoutID != "" && srcLayoutID != dupLayoutID {
		remap[srcLayoutID] = dupLayoutID
	}

	xml := remapRelationshipIDs(src.XML(), remap)
	dup.SetXML(refreshCreationIDs(xml))
	return dup, nil
}

// remapRelationshipIDs rewrites quoted id references in a single pass so
// chained renames such as rId2->rId3 and rId3->rId4 cannot contaminate
// each other.
func remapRelationshipIDs(xml string, remap map[string]string) string {
	if len(remap) == 0 {
		return xml
	}
	return ridRefPattern.ReplaceAllStringFunc(xml, func(ref string) string {
		id := ref[1 : len(ref)-1]
		if newID, ok := remap[id]; ok {
			return `"` + newID + `"`
		}
		return ref
	})
}

// refreshCreationIDs assigns a fresh GUID to every p14:creationId in the
// copied XML. PowerPoint uses these to identify shapes across edit
// sessions; duplicated ids confuse its merge handling.
func refreshCreationIDs(xml string) string {
	return creationIDPattern.ReplaceAllStringFunc(xml, func(m string) string {
		sub := creationIDPattern.FindStringSubmatch(m)
		return sub[1] + "{" + strings.ToUpper(uuid.NewString()) + "}" + sub[2]
	})
}
