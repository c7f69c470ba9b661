package ilerrors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SourceLoc is a position in IL source text, attached to instructions via
// ".loc" directives and surfaced in diagnostics. A zero value (File == "")
// means "no location available" — synthetic instructions carry no SourceLoc.
type SourceLoc struct {
	File string `json:"file,omitempty"`
	Line uint32 `json:"line,omitempty"`
	Col  uint32 `json:"col,omitempty"`
}

func (s SourceLoc) IsZero() bool { return s.File == "" && s.Line == 0 && s.Col == 0 }

func (s SourceLoc) String() string {
	if s.IsZero() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Report is the canonical structured diagnostic for every IL phase: parser,
// verifier, linker, runtime bridge, and VM trap/pause events. It is never
// thrown; it flows through Go error returns or a sink the embedder installs.
type Report struct {
	Schema   string         `json:"schema"` // always "il.diagnostic/v1"
	Code     string         `json:"code"`
	Phase    string         `json:"phase"`
	Message  string         `json:"message"`
	Loc      *SourceLoc     `json:"loc,omitempty"`
	Function string         `json:"function,omitempty"`
	Block    string         `json:"block,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// ReportError wraps a Report so it survives errors.As() unwrapping through
// ordinary Go error-handling paths (fmt.Errorf("%w", ...), etc.).
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown diagnostic"
	}
	loc := ""
	if e.Rep.Loc != nil && !e.Rep.Loc.IsZero() {
		loc = e.Rep.Loc.String() + ": "
	}
	return fmt.Sprintf("%s%s: %s", loc, e.Rep.Code, e.Rep.Message)
}

// AsReport extracts the Report carried by err, if any.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// Wrap turns a Report into an error.
func Wrap(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// New builds a Report, filling Schema and Phase (looked up from Registry)
// automatically.
func New(code, message string) *Report {
	return &Report{
		Schema:  "il.diagnostic/v1",
		Code:    code,
		Phase:   Phase(code),
		Message: message,
	}
}

// WithLoc returns r with Loc set, for chaining at call sites.
func (r *Report) WithLoc(loc SourceLoc) *Report {
	if loc.IsZero() {
		return r
	}
	r.Loc = &loc
	return r
}

// WithFunc returns r with Function/Block context set.
func (r *Report) WithFunc(fn, block string) *Report {
	r.Function = fn
	r.Block = block
	return r
}

// WithData attaches a structured-data key/value pair.
func (r *Report) WithData(key string, value any) *Report {
	if r.Data == nil {
		r.Data = make(map[string]any)
	}
	r.Data[key] = value
	return r
}

// ToJSON renders the report deterministically (sorted map keys via
// encoding/json's default map ordering).
func (r *Report) ToJSON(indent bool) (string, error) {
	var data []byte
	var err error
	if indent {
		data, err = json.MarshalIndent(r, "", "  ")
	} else {
		data, err = json.Marshal(r)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
