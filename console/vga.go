package console

import (
	"image/color"

	"tinygo.org/x/tinyfont"
)

// Text mode geometry.
const (
	Cols = 80
	Rows = 25

	// CellWidth and CellHeight are the pixel size of one character cell
	// with the TomThumb font.
	CellWidth  = 4
	CellHeight = 6

	// Width and Height are the pixel size of the whole text screen.
	Width  = Cols * CellWidth
	Height = Rows * CellHeight

	// glyphBaseline is the distance from the top of a cell to the font
	// baseline.
	glyphBaseline = 5
)

// Color is one of the 16 VGA text mode colors.
type Color uint8

const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGrey
	DarkGrey
	LightBlue
	LightGreen
	LightCyan
	LightRed
	LightMagenta
	Yellow
	White
)

var palette = [16]color.RGBA{
	{0x00, 0x00, 0x00, 0xFF},
	{0x00, 0x00, 0xAA, 0xFF},
	{0x00, 0xAA, 0x00, 0xFF},
	{0x00, 0xAA, 0xAA, 0xFF},
	{0xAA, 0x00, 0x00, 0xFF},
	{0xAA, 0x00, 0xAA, 0xFF},
	{0xAA, 0x55, 0x00, 0xFF},
	{0xAA, 0xAA, 0xAA, 0xFF},
	{0x55, 0x55, 0x55, 0xFF},
	{0x55, 0x55, 0xFF, 0xFF},
	{0x55, 0xFF, 0x55, 0xFF},
	{0x55, 0xFF, 0xFF, 0xFF},
	{0xFF, 0x55, 0x55, 0xFF},
	{0xFF, 0x55, 0xFF, 0xFF},
	{0xFF, 0xFF, 0x55, 0xFF},
	{0xFF, 0xFF, 0xFF, 0xFF},
}

// RGBA returns the display color for c.
func (c Color) RGBA() color.RGBA { return palette[c&0x0F] }

// Cell is one character position of the text screen.
type Cell struct {
	Char byte
	FG   Color
	BG   Color
}

// Screen is an 80x25 VGA style text buffer. Writes only mark cells dirty;
// Draw renders the dirty cells onto a display.
type Screen struct {
	cells [Rows * Cols]Cell
	dirty [Rows * Cols]bool
	font  *tinyfont.Font
}

// NewScreen returns a cleared screen, light grey on black.
func NewScreen() *Screen {
	s := &Screen{font: &tinyfont.TomThumb}
	s.Clear(Black, LightGrey)
	return s
}

// Clear fills the screen with blanks in the given colors.
func (s *Screen) Clear(bg, fg Color) {
	for i := range s.cells {
		s.cells[i] = Cell{Char: ' ', FG: fg, BG: bg}
		s.dirty[i] = true
	}
}

// PutcAt places c at row, col. Out-of-range positions are ignored.
func (s *Screen) PutcAt(row, col int, bg, fg Color, c byte) {
	if row < 0 || row >= Rows || col < 0 || col >= Cols {
		return
	}
	cell := Cell{Char: c, FG: fg, BG: bg}
	i := row*Cols + col
	if s.cells[i] == cell {
		return
	}
	s.cells[i] = cell
	s.dirty[i] = true
}

// PutsAt writes str starting at row, col, clipped at the end of the row.
func (s *Screen) PutsAt(row, col int, bg, fg Color, str string) {
	for i := 0; i < len(str) && col+i < Cols; i++ {
		s.PutcAt(row, col+i, bg, fg, str[i])
	}
}

// At returns the cell at row, col.
func (s *Screen) At(row, col int) Cell {
	if row < 0 || row >= Rows || col < 0 || col >= Cols {
		return Cell{}
	}
	return s.cells[row*Cols+col]
}

// Text returns row as a string with trailing blanks removed.
func (s *Screen) Text(row int) string {
	if row < 0 || row >= Rows {
		return ""
	}
	line := make([]byte, Cols)
	for col := range line {
		line[col] = s.cells[row*Cols+col].Char
	}
	end := len(line)
	for end > 0 && (line[end-1] == ' ' || line[end-1] == 0) {
		end--
	}
	return string(line[:end])
}

// Draw renders every dirty cell onto d and returns the number of cells
// drawn.
func (s *Screen) Draw(d Displayer) int {
	n := 0
	for i := range s.cells {
		if !s.dirty[i] {
			continue
		}
		s.dirty[i] = false
		n++

		cell := s.cells[i]
		x := int16(i%Cols) * CellWidth
		y := int16(i/Cols) * CellHeight
		_ = d.FillRectangle(x, y, CellWidth, CellHeight, cell.BG.RGBA())
		if cell.Char > ' ' && cell.Char < 0x7F {
			tinyfont.DrawChar(d, s.font, x, y+glyphBaseline, rune(cell.Char), cell.FG.RGBA())
		}
	}
	return n
}
