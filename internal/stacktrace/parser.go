package stacktrace

import (
	"regexp"
	"strconv"
)

// Parser turns a single trimmed trace line into a partial frame.
// It reports false when the line does not follow the dialect's grammar.
type Parser func(line string) (PartialFrame, bool)

var (
	// at functionName (file:line:column)
	nodeNamedPattern = regexp.MustCompile(`^at\s+(.+?)\s+\((.+?):(\d+):(\d+)\)`)
	// at file:line:column
	nodeAnonymousPattern = regexp.MustCompile(`^at\s+(.+?):(\d+):(\d+)`)

	// File "path", line N, in function
	pythonPattern = regexp.MustCompile(`File "(.+?)", line (\d+)(?:, in (.+))?`)

	// path/file.go:123 +0x1d
	goPattern = regexp.MustCompile(`^\t?(.+?\.go):(\d+)\b`)

	// path/file.rb:123:in `method'  (optionally prefixed by "from ")
	rubyPattern = regexp.MustCompile("^(?:from\\s+)?(.+?):(\\d+):in\\s+[`'](.+?)'")

	// at package.Class.method(File.java:123)
	javaPattern = regexp.MustCompile(`^at\s+(.+?)\((.+?):(\d+)\)`)
)

var parsers = map[Dialect]Parser{
	NodeJS: parseNodeJS,
	Python: parsePython,
	Go:     parseGo,
	Ruby:   parseRuby,
	Java:   parseJava,
}

// ParserFor returns the line parser for a dialect. Unknown gets a parser
// that never matches.
func ParserFor(d Dialect) Parser {
	if p, ok := parsers[d]; ok {
		return p
	}
	return parseNothing
}

// ParseLine parses one trimmed line with the given dialect's grammar.
func ParseLine(d Dialect, line string) (PartialFrame, bool) {
	return ParserFor(d)(line)
}

func parseNothing(string) (PartialFrame, bool) {
	return PartialFrame{}, false
}

func parseNodeJS(line string) (PartialFrame, bool) {
	if m := nodeNamedPattern.FindStringSubmatch(line); m != nil {
		return positional(m[2], m[3], m[4], m[1])
	}
	if m := nodeAnonymousPattern.FindStringSubmatch(line); m != nil {
		return positional(m[1], m[2], m[3], "")
	}
	return PartialFrame{}, false
}

func parsePython(line string) (PartialFrame, bool) {
	m := pythonPattern.FindStringSubmatch(line)
	if m == nil {
		return PartialFrame{}, false
	}
	return positional(m[1], m[2], "", m[3])
}

func parseGo(line string) (PartialFrame, bool) {
	m := goPattern.FindStringSubmatch(line)
	if m == nil {
		return PartialFrame{}, false
	}
	return positional(m[1], m[2], "", "")
}

func parseRuby(line string) (PartialFrame, bool) {
	m := rubyPattern.FindStringSubmatch(line)
	if m == nil {
		return PartialFrame{}, false
	}
	return positional(m[1], m[2], "", m[3])
}

func parseJava(line string) (PartialFrame, bool) {
	m := javaPattern.FindStringSubmatch(line)
	if m == nil {
		return PartialFrame{}, false
	}
	return positional(m[2], m[3], "", m[1])
}

// positional builds a partial frame from captured groups. Line numbers must be
// positive; a column, when captured, must be positive too.
func positional(file, line, column, function string) (PartialFrame, bool) {
	lineNum, ok := positive(line)
	if !ok || file == "" {
		return PartialFrame{}, false
	}

	frame := PartialFrame{
		File:     file,
		Line:     lineNum,
		Function: function,
	}

	if column != "" {
		colNum, ok := positive(column)
		if !ok {
			return PartialFrame{}, false
		}
		frame.Column = colNum
	}

	return frame, true
}

func positive(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
