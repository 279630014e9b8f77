package stacktrace

import (
	"go.uber.org/zap"

	"github.com/yousuf/stackmap/internal/strutil"
)

// DefaultExcerptLimit bounds the raw input echoed back for unparseable traces.
const DefaultExcerptLimit = 1000

// UnparsedNote explains the diagnostic shape returned for unparseable input.
const UnparsedNote = "Could not parse any stack frames from the input. Supported formats: Node.js, Python, Go, Ruby, Java."

// Analyzer drives raw traces through detection, parsing, classification and
// workspace resolution. It is immutable and safe for concurrent use.
type Analyzer struct {
	classifier   *Classifier
	resolver     *Resolver
	excerptLimit int
	logger       *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClassifier replaces the default internal-frame classifier.
func WithClassifier(c *Classifier) Option {
	return func(a *Analyzer) {
		a.classifier = c
	}
}

// WithResolver replaces the default workspace resolver.
func WithResolver(r *Resolver) Option {
	return func(a *Analyzer) {
		a.resolver = r
	}
}

// WithExcerptLimit sets how many runes of raw input an unparseable result carries.
func WithExcerptLimit(n int) Option {
	return func(a *Analyzer) {
		a.excerptLimit = n
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// NewAnalyzer creates an analyzer with defaults overridden by opts.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		classifier:   DefaultClassifier(),
		resolver:     DefaultResolver(),
		excerptLimit: DefaultExcerptLimit,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.classifier == nil {
		a.classifier = DefaultClassifier()
	}
	if a.resolver == nil {
		a.resolver = DefaultResolver()
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// Assemble analyzes raw with a default analyzer.
func Assemble(raw, workspaceRoot string) Result {
	return NewAnalyzer().Analyze(raw, workspaceRoot)
}

// Analyze parses raw into frames, resolving application frames against
// workspaceRoot. It always returns a result; unparseable input yields the
// diagnostic shape with Note and Raw set.
func (a *Analyzer) Analyze(raw, workspaceRoot string) Result {
	dialect := Detect(raw)
	parse := ParserFor(dialect)

	frames := make([]Frame, 0)
	var entry *int

	for _, line := range strutil.NonBlankLines(raw) {
		parsed, ok := parse(line)
		if !ok || parsed.File == "" {
			continue
		}

		frame := Frame{
			Original:   line,
			File:       parsed.File,
			Line:       parsed.Line,
			Column:     parsed.Column,
			Function:   parsed.Function,
			IsInternal: a.classifier.IsInternal(parsed.File),
		}

		if !frame.IsInternal {
			if resolved, ok := a.resolver.Resolve(parsed.File, workspaceRoot); ok {
				frame.ResolvedFile = resolved
			} else {
				a.logger.Debug("unresolved application frame",
					zap.String("file", parsed.File),
					zap.Int("line", parsed.Line),
					zap.String("workspace", workspaceRoot))
			}
		}

		if entry == nil && !frame.IsInternal && frame.ResolvedFile != "" {
			idx := len(frames)
			entry = &idx
		}

		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		return Result{
			Dialect:      Unknown,
			RelatedFiles: []string{},
			Frames:       frames,
			Note:         UnparsedNote,
			Raw:          strutil.Excerpt(raw, a.excerptLimit),
		}
	}

	a.logger.Debug("analyzed stack trace",
		zap.Stringer("dialect", dialect),
		zap.Int("frames", len(frames)),
		zap.Bool("entry", entry != nil))

	return Result{
		Dialect:      dialect,
		EntryFrame:   entry,
		RelatedFiles: relatedFiles(frames),
		Frames:       frames,
	}
}

// relatedFiles returns the distinct resolved paths in order of first appearance.
func relatedFiles(frames []Frame) []string {
	seen := make(map[string]struct{})
	files := make([]string, 0)
	for _, f := range frames {
		if f.ResolvedFile == "" {
			continue
		}
		if _, ok := seen[f.ResolvedFile]; ok {
			continue
		}
		seen[f.ResolvedFile] = struct{}{}
		files = append(files, f.ResolvedFile)
	}
	return files
}
