// Package diagnostic turns shell errors into user-facing reports with a
// source excerpt and a caret under the offending span.
package diagnostic

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/position"
)

// Level represents the severity level of a diagnostic message.
type Level int

const (
	LevelError Level = iota
	LevelWarning
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Code    string
	Title   string
	Message string
	Notes   []string
	Span    position.Span
	Level   Level
}

// Builder helps construct diagnostics with a fluent API.
type Builder struct {
	diagnostic *Diagnostic
}

// New creates a new diagnostic builder.
func New() *Builder {
	return &Builder{diagnostic: &Diagnostic{}}
}

func (b *Builder) Error() *Builder {
	b.diagnostic.Level = LevelError

	return b
}

func (b *Builder) Warning() *Builder {
	b.diagnostic.Level = LevelWarning

	return b
}

func (b *Builder) Code(code string) *Builder {
	b.diagnostic.Code = code

	return b
}

func (b *Builder) Title(title string) *Builder {
	b.diagnostic.Title = title

	return b
}

func (b *Builder) Message(message string) *Builder {
	b.diagnostic.Message = message

	return b
}

func (b *Builder) Span(span position.Span) *Builder {
	b.diagnostic.Span = span

	return b
}

func (b *Builder) Note(note string) *Builder {
	b.diagnostic.Notes = append(b.diagnostic.Notes, note)

	return b
}

func (b *Builder) Build() *Diagnostic {
	return b.diagnostic
}

var titles = map[string]string{
	nserrors.CodeTypeConflict:    "Type conflict",
	nserrors.CodeTypeMismatch:    "Type error",
	nserrors.CodeParse:           "Parse error",
	nserrors.CodeCommandNotFound: "Command not found",
	nserrors.CodeUnknownVariable: "Unknown variable",
	nserrors.CodeRuntime:         "Runtime error",
	nserrors.CodeConfig:          "Config error",
	nserrors.CodeInvalidAlias:    "Invalid alias",
}

// FromError converts any error into a diagnostic. Standard errors keep their
// code and span.
func FromError(err error) *Diagnostic {
	var se *nserrors.StandardError
	if !stderrors.As(err, &se) {
		return New().Error().Code("ERROR").Title("Error").Message(err.Error()).Build()
	}

	title, ok := titles[se.Code]
	if !ok {
		title = strings.ToLower(string(se.Category))
	}
	b := New().Error().Code(se.Code).Title(title).Message(se.Message).Span(se.Span)
	if name, ok := nserrors.Variable(se); ok {
		b.Note(fmt.Sprintf("$%s is used where two different shapes are expected", name))
	}
	if se.Cause != nil {
		b.Note(se.Cause.Error())
	}
	return b.Build()
}

// Render formats d, quoting the source line under the span when src is given.
func Render(d *Diagnostic, src *position.SourceFile) string {
	var result strings.Builder

	if d.Span.IsValid() {
		result.WriteString(fmt.Sprintf("%s:%d:%d: ",
			displayName(d.Span.Start.Filename), d.Span.Start.Line, d.Span.Start.Column))
	}
	result.WriteString(fmt.Sprintf("%s[%s]: %s\n", d.Level, d.Code, d.Title))
	if d.Message != "" {
		result.WriteString(fmt.Sprintf("  %s\n", d.Message))
	}

	if src != nil && d.Span.IsValid() {
		if line := src.GetLine(d.Span.Start.Line); line != "" {
			result.WriteString(fmt.Sprintf("  | %s\n", line))
			result.WriteString(fmt.Sprintf("  | %s\n", caret(line, d.Span)))
		}
	}

	for _, note := range d.Notes {
		result.WriteString(fmt.Sprintf("  = note: %s\n", note))
	}

	return result.String()
}

func displayName(filename string) string {
	if filename == "" {
		return "<input>"
	}
	return filename
}

// caret underlines the part of line covered by span. Spans running past the
// end of the line are clipped to it.
func caret(line string, span position.Span) string {
	start := span.Start.Column - 1
	if start < 0 {
		start = 0
	}
	if start > len(line) {
		start = len(line)
	}

	width := span.Length()
	if span.End.Line != span.Start.Line || start+width > len(line) {
		width = len(line) - start
	}
	if width < 1 {
		width = 1
	}

	var b strings.Builder
	for i := 0; i < start; i++ {
		if line[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteString(strings.Repeat("^", width))
	return b.String()
}

// Collector gathers diagnostics from several inputs.
type Collector struct {
	diagnostics []Diagnostic
	sources     map[string]*position.SourceFile
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{sources: make(map[string]*position.SourceFile)}
}

// AddSource registers the text diagnostics for filename are quoted from.
func (c *Collector) AddSource(src *position.SourceFile) {
	c.sources[src.Filename] = src
}

// Add records a diagnostic.
func (c *Collector) Add(d *Diagnostic) {
	c.diagnostics = append(c.diagnostics, *d)
}

// AddError records err as a diagnostic.
func (c *Collector) AddError(err error) {
	c.Add(FromError(err))
}

// Diagnostics returns all diagnostics sorted by file and position.
func (c *Collector) Diagnostics() []Diagnostic {
	sort.SliceStable(c.diagnostics, func(i, j int) bool {
		a, b := c.diagnostics[i].Span.Start, c.diagnostics[j].Span.Start

		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return c.diagnostics
}

// ErrorCount returns the number of error-level diagnostics.
func (c *Collector) ErrorCount() int {
	n := 0
	for _, d := range c.diagnostics {
		if d.Level == LevelError {
			n++
		}
	}
	return n
}

// HasErrors returns true if there are any errors.
func (c *Collector) HasErrors() bool {
	return c.ErrorCount() > 0
}

// Format renders every diagnostic followed by a summary line.
func (c *Collector) Format() string {
	var result strings.Builder

	for i, d := range c.Diagnostics() {
		if i > 0 {
			result.WriteString("\n")
		}
		result.WriteString(Render(&d, c.sources[d.Span.Start.Filename]))
	}

	errorCount := c.ErrorCount()
	warningCount := len(c.diagnostics) - errorCount
	if errorCount == 0 && warningCount == 0 {
		result.WriteString("No issues found.\n")
		return result.String()
	}

	var parts []string
	if errorCount > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", errorCount))
	}
	if warningCount > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", warningCount))
	}
	result.WriteString(fmt.Sprintf("\nFound %s.\n", strings.Join(parts, ", ")))

	return result.String()
}
