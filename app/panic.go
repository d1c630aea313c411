package app

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyterm"

	"slate/console"
	"slate/hal"
	"slate/kernel"
)

// panicReport formats the halt diagnostic: the fatal message, the active
// process, its saved registers, the process table and the kernel stack.
// procs may be nil.
func panicReport(info kernel.PanicInfo, procs func(io.Writer)) []string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "slate panic: %s\n", info.Fatal)
	if info.PID >= 0 {
		fmt.Fprintf(&b, "pid: %d\n", info.PID)
	} else {
		b.WriteString("pid: none\n")
	}
	if info.Frame != nil {
		info.Frame.DumpTo(&b)
	}
	if procs != nil {
		procs(&b)
	}
	if len(info.Stack) > 0 {
		b.WriteString("stack:\n")
		b.Write(info.Stack)
	} else {
		b.WriteString("stack: unavailable\n")
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// panicHandler logs the halt diagnostic line by line and paints it on the
// display with a terminal, so the report stays visible after the halt.
func panicHandler(out hal.Logger, display console.Displayer, procs func(io.Writer)) func(kernel.PanicInfo) {
	return func(info kernel.PanicInfo) {
		lines := panicReport(info, procs)
		if out != nil {
			for _, line := range lines {
				out.WriteLineString(line)
			}
		}
		if display == nil {
			return
		}

		_ = display.FillRectangle(0, 0, console.Width, console.Height, console.Blue.RGBA())
		term := tinyterm.NewTerminal(display)
		term.Configure(&tinyterm.Config{
			Font:       &tinyfont.TomThumb,
			FontHeight: console.CellHeight,
			FontOffset: 5,
		})

		rows := console.Rows
		w := crlfWriter{w: term}
		for _, line := range lines {
			if rows == 0 {
				break
			}
			if len(line) > console.Cols {
				line = line[:console.Cols]
			}
			fmt.Fprintln(w, line)
			rows--
		}
		_ = display.Display()
	}
}

// crlfWriter turns line feeds into CR LF for the terminal.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.SplitAfter(p, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		if line[len(line)-1] == '\n' {
			line = append(line[:len(line)-1:len(line)-1], '\r', '\n')
		}
		if _, err := c.w.Write(line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
