package pptx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Emu is the English Metric Unit used for all PresentationML coordinates.
type Emu int64

const (
	EmuPerInch       Emu = 914400
	EmuPerCentimeter Emu = 360000
	EmuPerPoint      Emu = 12700
)

// Inches converts inches to EMU.
func Inches(v float64) Emu {
	return Emu(v * float64(EmuPerInch))
}

// Centimeters converts centimeters to EMU.
func Centimeters(v float64) Emu {
	return Emu(v * float64(EmuPerCentimeter))
}

// Pt converts typographic points to EMU.
func Pt(v float64) Emu {
	return Emu(v * float64(EmuPerPoint))
}

var shapeIDPattern = regexp.MustCompile(`<p:cNvPr id="(\d+)"`)

func (s *Slide) nextShapeID() int {
	max := 1
	for _, m := range shapeIDPattern.FindAllStringSubmatch(s.xml, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

func (s *Slide) insertShape(shapeXML string) error {
	const closeTag = "</p:spTree>"
	idx := strings.LastIndex(s.xml, closeTag)
	if idx == -1 {
		return fmt.Errorf("slide %s has no shape tree", s.partName)
	}
	s.xml = s.xml[:idx] + shapeXML + s.xml[idx:]
	return nil
}

// AddTextBox appends a text box shape to the slide. Newlines in text start
// new paragraphs; XML-significant characters are escaped.
func (s *Slide) AddTextBox(x, y, cx, cy Emu, text string) error {
	id := s.nextShapeID()

	var paras strings.Builder
	for _, line := range strings.Split(text, "\n") {
		paras.WriteString(`<a:p><a:r><a:rPr lang="en-US" dirty="0"/><a:t>`)
		paras.WriteString(EscapeText(line))
		paras.WriteString(`</a:t></a:r></a:p>`)
	}

	shape := fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr><p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr><p:txBody><a:bodyPr wrap="square"><a:spAutoFit/></a:bodyPr><a:lstStyle/>%s</p:txBody></p:sp>`,
		id, id-1, x, y, cx, cy, paras.String())
	return s.insertShape(shape)
}

// AddTable appends a table shape to the slide. cells is row-major; every
// row must have the same number of columns. Column widths and row heights
// divide the given extent evenly.
func (s *Slide) AddTable(x, y, cx, cy Emu, cells [][]string) error {
	if len(cells) == 0 || len(cells[0]) == 0 {
		return fmt.Errorf("table needs at least one row and one column")
	}
	cols := len(cells[0])
	for i, row := range cells {
		if len(row) != cols {
			return fmt.Errorf("table row %d has %d cells, want %d", i, len(row), cols)
		}
	}

	id := s.nextShapeID()
	colWidth := int64(cx) / int64(cols)
	rowHeight := int64(cy) / int64(len(cells))

	var grid strings.Builder
	for i := 0; i < cols; i++ {
		fmt.Fprintf(&grid, `<a:gridCol w="%d"/>`, colWidth)
	}

	var rows strings.Builder
	for _, row := range cells {
		fmt.Fprintf(&rows, `<a:tr h="%d">`, rowHeight)
		for _, cell := range row {
			rows.WriteString(`<a:tc><a:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US" dirty="0"/><a:t>`)
			rows.WriteString(EscapeText(cell))
			rows.WriteString(`</a:t></a:r></a:p></a:txBody><a:tcPr/></a:tc>`)
		}
		rows.WriteString(`</a:tr>`)
	}

	frame := fmt.Sprintf(`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Table %d"/><p:cNvGraphicFramePr><a:graphicFrameLocks noGrp="1"/></p:cNvGraphicFramePr><p:nvPr/></p:nvGraphicFramePr><p:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></p:xfrm><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl><a:tblPr firstRow="1" bandRow="1"><a:tableStyleId>{5C22544A-7EE6-4342-B048-85BDC9FD1C3A}</a:tableStyleId></a:tblPr><a:tblGrid>%s</a:tblGrid>%s</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`,
		id, id-1, x, y, cx, cy, grid.String(), rows.String())
	return s.insertShape(frame)
}
