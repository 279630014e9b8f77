package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/yousuf/stackmap/internal/stacktrace"
)

var (
	entryColor    = color.New(color.FgGreen, color.Bold)
	resolvedColor = color.New(color.FgCyan)
	internalColor = color.New(color.Faint)
	headerColor   = color.New(color.Bold)
	noteColor     = color.New(color.FgYellow)
)

// Options controls text rendering.
type Options struct {
	// Include frames classified as internal
	ShowInternal bool
	// Append the original trace line under each frame
	ShowOriginal bool
}

// Text writes a human-readable summary of res to w.
func Text(w io.Writer, res stacktrace.Result, opts Options) error {
	var b strings.Builder

	if len(res.Frames) == 0 {
		b.WriteString(noteColor.Sprint(res.Note))
		b.WriteString("\n")
		if res.Raw != "" {
			b.WriteString("\n")
			b.WriteString(res.Raw)
			b.WriteString("\n")
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(headerColor.Sprintf("format: %s", res.Dialect))
	b.WriteString("\n")

	hidden := 0
	for i, frame := range res.Frames {
		if frame.IsInternal && !opts.ShowInternal {
			hidden++
			continue
		}

		isEntry := res.EntryFrame != nil && *res.EntryFrame == i
		b.WriteString(FormatFrame(frame, isEntry))
		b.WriteString("\n")
		if opts.ShowOriginal {
			b.WriteString("      ")
			b.WriteString(internalColor.Sprint(frame.Original))
			b.WriteString("\n")
		}
	}

	if hidden > 0 {
		b.WriteString(internalColor.Sprintf("  (%d internal frame(s) hidden)", hidden))
		b.WriteString("\n")
	}

	if len(res.RelatedFiles) > 0 {
		b.WriteString(headerColor.Sprint("related files:"))
		b.WriteString("\n")
		for _, f := range res.RelatedFiles {
			b.WriteString("  ")
			b.WriteString(f)
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatFrame formats a single frame as "marker location function".
// The entry frame is marked with '>', internal frames with '-'.
func FormatFrame(frame stacktrace.Frame, isEntry bool) string {
	marker := " "
	switch {
	case isEntry:
		marker = ">"
	case frame.IsInternal:
		marker = "-"
	}

	loc := Location(frame)
	switch {
	case isEntry:
		loc = entryColor.Sprint(loc)
	case frame.IsInternal:
		loc = internalColor.Sprint(loc)
	case frame.ResolvedFile != "":
		loc = resolvedColor.Sprint(loc)
	}

	if frame.Function == "" {
		return fmt.Sprintf("%s %s", marker, loc)
	}
	return fmt.Sprintf("%s %s  %s", marker, loc, frame.Function)
}

// Location returns file:line[:column], preferring the resolved path.
func Location(frame stacktrace.Frame) string {
	file := frame.File
	if frame.ResolvedFile != "" {
		file = frame.ResolvedFile
	}

	switch {
	case frame.Line > 0 && frame.Column > 0:
		return fmt.Sprintf("%s:%d:%d", file, frame.Line, frame.Column)
	case frame.Line > 0:
		return fmt.Sprintf("%s:%d", file, frame.Line)
	default:
		return file
	}
}
