package stacktrace

import (
	"fmt"
	"regexp"
	"strings"
)

// defaultInternalPatterns match dependency trees and standard library install
// locations for the supported runtimes.
var defaultInternalPatterns = []string{
	// dependency trees
	`node_modules`,
	`site-packages`,
	`dist-packages`,
	`\.cargo/registry`,
	`/gems/`,
	`vendor/bundle`,

	// standard library locations
	`/usr/lib/`,
	`/usr/local/lib/`,
	`/lib/python[\d.]+/`,
	`/go/pkg/`,
	`/go/src/`,
}

// Classifier decides whether a frame's file belongs to code the user does
// not own.
type Classifier struct {
	patterns []*regexp.Regexp
}

// DefaultClassifier returns a classifier with the built-in patterns only.
func DefaultClassifier() *Classifier {
	c, err := NewClassifier()
	if err != nil {
		// built-in patterns are constant
		panic(err)
	}
	return c
}

// NewClassifier compiles the built-in patterns plus any extra regular
// expressions supplied by configuration.
func NewClassifier(extra ...string) (*Classifier, error) {
	c := &Classifier{
		patterns: make([]*regexp.Regexp, 0, len(defaultInternalPatterns)+len(extra)),
	}

	for _, expr := range defaultInternalPatterns {
		c.patterns = append(c.patterns, regexp.MustCompile(expr))
	}

	for _, expr := range extra {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid internal pattern %q: %w", expr, err)
		}
		c.patterns = append(c.patterns, re)
	}

	return c, nil
}

// IsInternal reports whether path denotes runtime, standard library or
// dependency code. Any single match is sufficient.
func (c *Classifier) IsInternal(path string) bool {
	if isSynthetic(path) {
		return true
	}
	for _, re := range c.patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// isSynthetic recognizes VM-internal and anonymous frame locations such as
// <anonymous>, <frozen importlib._bootstrap> and node:internal/modules.
func isSynthetic(path string) bool {
	switch {
	case path == "native", path == "internal":
		return true
	case strings.HasPrefix(path, "<"):
		return true
	case strings.HasPrefix(path, "node:"):
		return true
	}
	return false
}
