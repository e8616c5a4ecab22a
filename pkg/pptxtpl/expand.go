package pptxtpl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mtucker502/pptxtpl/pkg/pptxtpl/pptx"
)

// Slide-level directives decide which slides exist before any slide is
// rendered. {%slide if expr %} drops or keeps the whole slide, and
// {%slide for names in expr %} replaces the slide with one duplicate per
// item. The markers may sit in any text on the slide.
var (
	slideIfPattern     = regexp.MustCompile(`(?s)\{%\s*slide\s+if\s+(.*?)\s*%\}`)
	slideEndifPattern  = regexp.MustCompile(`\{%\s*slide\s+endif\s*%\}`)
	slideForPattern    = regexp.MustCompile(`(?s)\{%\s*slide\s+for\s+([\w\s,]+?)\s+in\s+(.*?)\s*%\}`)
	slideEndforPattern = regexp.MustCompile(`\{%\s*slide\s+endfor\s*%\}`)

	loopNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// slideDirectives is one work-list entry: a slide handle with the
// directives found on it. Handles stay valid while the slide sequence
// mutates, so entries can be processed in any stable order.
type slideDirectives struct {
	slide    *pptx.Slide
	number   int
	condExpr string
	hasCond  bool
	loopVars []string
	loopExpr string
	hasLoop  bool
}

// expandStructure resolves slide-level conditionals and loops against ctx,
// mutating the slide sequence in place. It returns the private context
// overrides for each loop duplicate, keyed by slide handle. Slides behind
// a false conditional are removed without their loop expression ever being
// evaluated.
func expandStructure(pkg *pptx.Package, ev *evaluator, ctx Context) (map[*pptx.Slide]Context, error) {
	work, err := collectSlideDirectives(pkg)
	if err != nil {
		return nil, err
	}

	overrides := make(map[*pptx.Slide]Context)
	for _, d := range work {
		if d.hasCond {
			truthy, err := ev.evalTruth(d.condExpr, ctx)
			if err != nil {
				return nil, withSlide(err, d.number)
			}
			if !truthy {
				if err := pkg.RemoveSlide(d.slide); err != nil {
					return nil, err
				}
				continue
			}
			d.slide.SetXML(stripConditionalMarkers(d.slide.XML()))
		}

		if d.hasLoop {
			items, err := ev.evalItems(d.loopExpr, ctx)
			if err != nil {
				return nil, withSlide(err, d.number)
			}
			// Clones must not carry the loop markers, or every
			// duplicate would expand again.
			d.slide.SetXML(stripLoopMarkers(d.slide.XML()))

			for i, item := range items {
				dup, err := cloneSlide(pkg, d.slide)
				if err != nil {
					return nil, err
				}
				if err := pkg.MoveSlideBefore(dup, d.slide); err != nil {
					return nil, err
				}
				private, err := loopContext(d.loopVars, item, i, len(items))
				if err != nil {
					return nil, NewEvaluationError(d.number, d.loopExpr, err)
				}
				overrides[dup] = private
			}
			if err := pkg.RemoveSlide(d.slide); err != nil {
				return nil, err
			}
		}
	}
	return overrides, nil
}

// collectSlideDirectives walks the slide sequence once and records every
// slide carrying structural directives, before any mutation happens.
func collectSlideDirectives(pkg *pptx.Package) ([]slideDirectives, error) {
	var work []slideDirectives
	for i, s := range pkg.Slides() {
		xml := s.XML()
		d := slideDirectives{slide: s, number: i + 1}

		if m := slideIfPattern.FindStringSubmatch(xml); m != nil {
			d.hasCond = true
			d.condExpr = m[1]
		}
		if m := slideForPattern.FindStringSubmatch(xml); m != nil {
			names, err := parseLoopNames(m[1])
			if err != nil {
				return nil, NewDirectiveError(d.number, strings.TrimSpace(m[0]), err.Error(), nil)
			}
			d.hasLoop = true
			d.loopVars = names
			d.loopExpr = m[2]
		}
		if d.hasCond || d.hasLoop {
			work = append(work, d)
		}
	}
	return work, nil
}

func parseLoopNames(list string) ([]string, error) {
	parts := strings.Split(list, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if !loopNamePattern.MatchString(name) {
			return nil, fmt.Errorf("invalid loop variable name %q", name)
		}
		names = append(names, name)
	}
	return names, nil
}

func stripConditionalMarkers(xml string) string {
	xml = slideIfPattern.ReplaceAllString(xml, "")
	return slideEndifPattern.ReplaceAllString(xml, "")
}

func stripLoopMarkers(xml string) string {
	xml = slideForPattern.ReplaceAllString(xml, "")
	return slideEndforPattern.ReplaceAllString(xml, "")
}

// loopContext builds the private bindings for one loop duplicate: the loop
// names destructured from the item plus the loop state record the template
// language exposes inside for blocks.
func loopContext(names []string, item interface{}, index, total int) (Context, error) {
	private := make(Context, len(names)+1)
	if len(names) == 1 {
		private[names[0]] = escapeContextValue(item)
	} else {
		parts, err := destructure(item, len(names))
		if err != nil {
			return nil, err
		}
		for i, name := range names {
			private[name] = escapeContextValue(parts[i])
		}
	}
	private["loop"] = map[string]interface{}{
		"index":  index + 1,
		"index0": index,
		"first":  index == 0,
		"last":   index == total-1,
		"length": total,
	}
	return private, nil
}
