package stacktrace

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Dialect is the stack trace grammar family emitted by a language runtime.
type Dialect uint8

const (
	Unknown Dialect = iota
	NodeJS
	Python
	Go
	Ruby
	Java

	dialectCount
)

func (d Dialect) String() string {
	switch d {
	case NodeJS:
		return "nodejs"
	case Python:
		return "python"
	case Go:
		return "go"
	case Ruby:
		return "ruby"
	case Java:
		return "java"
	default:
		return "unknown"
	}
}

func (d Dialect) GoString() string {
	return fmt.Sprintf("Dialect(%s)", d.String())
}

// ParseDialect maps a dialect name back to its value.
func ParseDialect(name string) (Dialect, error) {
	for d := Unknown; d < dialectCount; d++ {
		if d.String() == name {
			return d, nil
		}
	}
	return Unknown, fmt.Errorf("unknown dialect %q", name)
}

func (d Dialect) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Dialect) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseDialect(name)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Structural signatures, checked against the whole trace in this order.
// The nodejs signature requires a line:column location so that JVM "at" lines,
// which never carry a column, fall through to the java signature.
var signatures = []struct {
	dialect Dialect
	pattern *regexp.Regexp
}{
	{NodeJS, regexp.MustCompile(`(?m)^[ \t]*at\s+.*:\d+:\d+\)?[ \t\r]*$`)},
	{Python, regexp.MustCompile(`File ".*", line \d+`)},
	{Go, regexp.MustCompile(`(?m)\.go:\d+(?:\s|$)`)},
	{Ruby, regexp.MustCompile(`\.rb:\d+:in\s`)},
	{Java, regexp.MustCompile(`\.(?:java|kt|scala):\d+\)`)},
}

// Detect classifies a raw trace into a single dialect. The first matching
// signature wins.
func Detect(raw string) Dialect {
	for _, sig := range signatures {
		if sig.pattern.MatchString(raw) {
			return sig.dialect
		}
	}
	return Unknown
}

// Dialects lists every dialect that has a parser.
func Dialects() []Dialect {
	return []Dialect{NodeJS, Python, Go, Ruby, Java}
}
