package stacktrace

// Frame represents a single call site parsed from a stack trace
type Frame struct {
	// The trimmed line the frame was parsed from
	Original string `json:"original"`
	// Source file path exactly as it appeared in the trace
	File string `json:"file"`
	// Workspace-relative path, empty when resolution failed
	ResolvedFile string `json:"resolvedFile,omitempty"`
	// Line number (1-indexed), 0 if not available
	Line int `json:"line,omitempty"`
	// Column number (1-indexed), 0 if not available
	Column int `json:"column,omitempty"`
	// Function name, empty when the dialect does not report it
	Function string `json:"function,omitempty"`
	// Whether the frame points into runtime, stdlib or dependency code
	IsInternal bool `json:"isInternal"`
}

// PartialFrame is what a dialect parser extracts from one line
type PartialFrame struct {
	File     string
	Line     int
	Column   int
	Function string
}

// Result is the structured outcome of analyzing one raw trace
type Result struct {
	Dialect      Dialect  `json:"format"`
	EntryFrame   *int     `json:"entryFrame"`
	RelatedFiles []string `json:"relatedFiles"`
	Frames       []Frame  `json:"frames"`

	// Only set when no frame could be parsed
	Note string `json:"note,omitempty"`
	Raw  string `json:"raw,omitempty"`
}

// Entry returns the entry frame, if any.
func (r Result) Entry() (Frame, bool) {
	if r.EntryFrame == nil || *r.EntryFrame < 0 || *r.EntryFrame >= len(r.Frames) {
		return Frame{}, false
	}
	return r.Frames[*r.EntryFrame], true
}
