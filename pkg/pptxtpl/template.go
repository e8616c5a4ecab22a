package pptxtpl

import (
	"errors"
	"io"
	"sort"

	"github.com/mtucker502/pptxtpl/pkg/pptxtpl/pptx"
)

// Context holds the template variables for a render. Values may be plain
// Go values, RichText/Listing/InlineImage helpers, or nested maps and
// slices for the expression language to traverse.
type Context map[string]interface{}

// Template is a loaded presentation whose slides carry template tags.
// Load it, render it once with a context, then save:
//
//	tpl, err := pptxtpl.Open("deck.pptx")
//	if err != nil { ... }
//	if err := tpl.Render(pptxtpl.Context{"name": "World"}); err != nil { ... }
//	if err := tpl.Save("out.pptx"); err != nil { ... }
//
// Rendering mutates the underlying presentation in place, so a Template is
// single-use. Open the source again for another render.
type Template struct {
	pkg    *pptx.Package
	eval   *evaluator
	config *Config
}

// Open loads a presentation template from disk.
func Open(path string) (*Template, error) {
	pkg, err := pptx.Open(path)
	if err != nil {
		return nil, NewDocumentError("open", path, err)
	}
	return FromPackage(pkg), nil
}

// OpenReader loads a presentation template from an in-memory source.
func OpenReader(r io.ReaderAt, size int64) (*Template, error) {
	pkg, err := pptx.OpenReader(r, size)
	if err != nil {
		return nil, NewDocumentError("open", "", err)
	}
	return FromPackage(pkg), nil
}

// FromPackage wraps an already-open presentation, typically one built with
// the authoring API.
func FromPackage(pkg *pptx.Package) *Template {
	return &Template{
		pkg:    pkg,
		eval:   newEvaluator(),
		config: GetGlobalConfig(),
	}
}

// Package exposes the underlying presentation for slide access and
// authoring.
func (t *Template) Package() *pptx.Package {
	return t.pkg
}

// Render runs the whole pipeline: preprocess every slide, expand
// slide-level conditionals and loops, then evaluate each surviving slide
// against the merged context. The first failing slide aborts the render;
// partially-expanded state is never written out.
func (t *Template) Render(ctx Context) error {
	if ctx == nil {
		ctx = Context{}
	}
	renderCtx := escapeContext(ctx)
	log := GetLogger()

	for i, s := range t.pkg.Slides() {
		pre := Preprocess(s.XML())
		if jinjaTagPattern.MatchString(pre) {
			log.DebugSlide(i+1, "preprocess", pre)
			s.SetXML(pre)
		}
	}

	overrides, err := expandStructure(t.pkg, t.eval, renderCtx)
	if err != nil {
		return err
	}

	for i, s := range t.pkg.Slides() {
		source := s.XML()
		if !jinjaTagPattern.MatchString(source) {
			continue
		}

		slideCtx := renderCtx
		if private, ok := overrides[s]; ok {
			slideCtx = mergeContext(renderCtx, private)
		}

		out, err := t.eval.render(source, slideCtx)
		if err != nil {
			return withSlide(err, i+1)
		}
		out = postProcess(out)

		if t.config.StrictMode {
			if err := checkLeftoverDelimiters(out); err != nil {
				return NewRenderError(i+1, err)
			}
		}
		if err := pptx.CheckWellFormed(out); err != nil {
			return NewRenderError(i+1, err)
		}
		s.SetXML(out)
	}

	Debug("rendered presentation with %d slides", t.pkg.SlideCount())
	return nil
}

// ExpandStructure resolves slide-level conditionals and loops against ctx
// without evaluating the expressions on the surviving slides. It returns
// the private context overrides keyed by surviving slide index. Render
// runs expansion itself; this entry point exists for callers that want to
// inspect or post-process the expanded deck before rendering.
func (t *Template) ExpandStructure(ctx Context) (map[int]Context, error) {
	if ctx == nil {
		ctx = Context{}
	}
	for _, s := range t.pkg.Slides() {
		pre := Preprocess(s.XML())
		if jinjaTagPattern.MatchString(pre) {
			s.SetXML(pre)
		}
	}
	overrides, err := expandStructure(t.pkg, t.eval, escapeContext(ctx))
	if err != nil {
		return nil, err
	}
	byIndex := make(map[int]Context, len(overrides))
	for s, private := range overrides {
		if idx := s.Index(); idx >= 0 {
			byIndex[idx] = private
		}
	}
	return byIndex, nil
}

// UndeclaredVariables reports every variable name the template reads,
// sorted, so callers can check a context for completeness before
// rendering. The analysis is lexical and best-effort: slides whose
// directives do not parse contribute nothing, and names bound by a
// slide-level loop are only recognised as bound while its markers are
// still present.
func (t *Template) UndeclaredVariables() []string {
	names := make(map[string]struct{})
	for _, s := range t.pkg.Slides() {
		source := discoveryPreprocess(s.XML())
		for name := range freeVariables(source) {
			names[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Save writes the presentation to disk.
func (t *Template) Save(path string) error {
	if err := t.pkg.Save(path); err != nil {
		return NewDocumentError("save", path, err)
	}
	return nil
}

// Write streams the presentation to w.
func (t *Template) Write(w io.Writer) error {
	if err := t.pkg.Write(w); err != nil {
		return NewDocumentError("write", "", err)
	}
	return nil
}

// Bytes returns the serialized presentation.
func (t *Template) Bytes() ([]byte, error) {
	data, err := t.pkg.Bytes()
	if err != nil {
		return nil, NewDocumentError("write", "", err)
	}
	return data, nil
}

// escapeContext converts context values for evaluation. Plain strings are
// escaped so rendered output stays well-formed markup; RichText, Listing
// and InlineImage render themselves as pre-escaped fragments; everything
// else passes through for the expression language to format.
func escapeContext(ctx Context) Context {
	out := make(Context, len(ctx))
	for key, value := range ctx {
		out[key] = escapeContextValue(value)
	}
	return out
}

func escapeContextValue(value interface{}) interface{} {
	switch v := value.(type) {
	case *RichText:
		return v.String()
	case *Listing:
		return v.String()
	case *InlineImage:
		return v.String()
	case string:
		return pptx.EscapeText(v)
	default:
		return value
	}
}

func mergeContext(base, private Context) Context {
	merged := make(Context, len(base)+len(private))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range private {
		merged[key] = value
	}
	return merged
}

// withSlide stamps the slide number onto an error built without one.
func withSlide(err error, slide int) error {
	var directiveErr *DirectiveError
	if errors.As(err, &directiveErr) && directiveErr.Slide == 0 {
		directiveErr.Slide = slide
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) && evalErr.Slide == 0 {
		evalErr.Slide = slide
	}
	var renderErr *RenderError
	if errors.As(err, &renderErr) && renderErr.Slide == 0 {
		renderErr.Slide = slide
	}
	return err
}
