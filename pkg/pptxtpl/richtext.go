package pptxtpl

import (
	"fmt"
	"strings"

	"github.com/mtucker502/pptxtpl/pkg/pptxtpl/pptx"
)

// RichText builds styled text that substitutes into a template as markup
// rather than escaped text, so each added segment keeps its own
// formatting:
//
//	rt := pptxtpl.NewRichText("Total: ", pptxtpl.WithBold(true))
//	rt.Add("42", pptxtpl.WithColor("FF0000"))
//	tpl.Render(pptxtpl.Context{"total": rt})
type RichText struct {
	runs []string
}

// runStyle holds the formatting of one run. Unset options are omitted from
// the run properties entirely, so the run inherits the placeholder's
// formatting.
type runStyle struct {
	bold      *bool
	italic    *bool
	underline *bool
	color     string
	size      float64
	font      string
}

// RichTextOption configures one run of a RichText value.
type RichTextOption func(*runStyle)

// WithBold sets or clears bold explicitly. Omitting the option inherits.
func WithBold(bold bool) RichTextOption {
	return func(s *runStyle) { s.bold = &bold }
}

// WithItalic sets or clears italic explicitly.
func WithItalic(italic bool) RichTextOption {
	return func(s *runStyle) { s.italic = &italic }
}

// WithUnderline sets or clears single underline explicitly.
func WithUnderline(underline bool) RichTextOption {
	return func(s *runStyle) { s.underline = &underline }
}

// WithColor sets the run color from a hex string like "FF0000"; a leading
// '#' is accepted and dropped.
func WithColor(color string) RichTextOption {
	return func(s *runStyle) { s.color = strings.TrimPrefix(color, "#") }
}

// WithSize sets the font size in points.
func WithSize(points float64) RichTextOption {
	return func(s *runStyle) { s.size = points }
}

// WithFont sets the latin and complex-script typeface.
func WithFont(font string) RichTextOption {
	return func(s *runStyle) { s.font = font }
}

// NewRichText returns a RichText, optionally seeded with a first styled
// run. Empty text produces an empty value that renders as nothing until
// runs are added.
func NewRichText(text string, opts ...RichTextOption) *RichText {
	rt := &RichText{}
	if text != "" {
		rt.Add(text, opts...)
	}
	return rt
}

// Add appends a styled run and returns the receiver for chaining.
func (rt *RichText) Add(text string, opts ...RichTextOption) *RichText {
	var style runStyle
	for _, opt := range opts {
		opt(&style)
	}

	var attrs, children strings.Builder
	if style.bold != nil {
		fmt.Fprintf(&attrs, ` b="%d"`, onOff(*style.bold))
	}
	if style.italic != nil {
		fmt.Fprintf(&attrs, ` i="%d"`, onOff(*style.italic))
	}
	if style.underline != nil {
		if *style.underline {
			attrs.WriteString(` u="sng"`)
		} else {
			attrs.WriteString(` u="none"`)
		}
	}
	if style.size != 0 {
		// Size is stored in hundredths of a point.
		fmt.Fprintf(&attrs, ` sz="%d"`, int(style.size*100))
	}
	if style.color != "" {
		fmt.Fprintf(&children, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, style.color)
	}
	if style.font != "" {
		typeface := pptx.EscapeText(style.font)
		fmt.Fprintf(&children, `<a:latin typeface="%s"/><a:cs typeface="%s"/>`, typeface, typeface)
	}

	var rpr string
	if attrs.Len() > 0 || children.Len() > 0 {
		rpr = "<a:rPr" + attrs.String() + ">" + children.String() + "</a:rPr>"
	}

	rt.runs = append(rt.runs, "<a:r>"+rpr+"<a:t>"+pptx.EscapeText(text)+"</a:t></a:r>")
	return rt
}

func (rt *RichText) String() string {
	return strings.Join(rt.runs, "")
}

func onOff(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Listing wraps plain text whose newlines should survive into the slide as
// real line breaks. The text is escaped for markup; post-processing turns
// each newline into a run break.
type Listing struct {
	text string
}

func NewListing(text string) *Listing {
	return &Listing{text: text}
}

func (l *Listing) String() string {
	return pptx.EscapeText(l.text)
}
