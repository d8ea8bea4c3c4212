package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/n8n-cli/n8nctl/engine/core"
)

const (
	// MaxDocumentBytes caps accepted workflow documents at 10 MiB.
	MaxDocumentBytes = 10 << 20
	// MaxNestingDepth caps JSON nesting regardless of parse mode.
	MaxNestingDepth = 100
)

// ParseOptions controls how lenient the workflow parser is. Strict JSON is
// always accepted; Relaxed additionally runs a repair pass that tolerates
// comments, trailing commas, and unquoted keys.
type ParseOptions struct {
	Relaxed bool
}

// Parse decodes a workflow document, enforcing the size and nesting caps
// regardless of mode. Failures carry a line/column location in the error
// details so the UI can point at the defect.
func Parse(data []byte, opts ParseOptions) (*Workflow, error) {
	if len(data) > MaxDocumentBytes {
		return nil, core.NewKindError(core.KindParseFailed, nil, "DOCUMENT_TOO_LARGE",
			fmt.Sprintf("workflow document exceeds %d bytes", MaxDocumentBytes), map[string]any{
				"size_bytes": len(data),
			})
	}
	if err := checkDepth(data); err != nil {
		return nil, err
	}
	var wf Workflow
	err := strictUnmarshal(data, &wf)
	if err != nil && opts.Relaxed {
		// The raw-byte depth scan stops at the first relaxed construct,
		// so the repaired form must be checked again before decoding.
		repaired := Repair(data)
		if depthErr := checkDepth(repaired); depthErr != nil {
			return nil, depthErr
		}
		err = strictUnmarshal(repaired, &wf)
	}
	if err != nil {
		line, col := locate(data, offsetOf(err))
		return nil, core.NewKindError(core.KindParseFailed, err, "PARSE_FAILED", "", map[string]any{
			"line":   line,
			"column": col,
		})
	}
	return &wf, nil
}

// Serialize renders a workflow back into its canonical indented JSON form.
func Serialize(w *Workflow) ([]byte, error) {
	out, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize workflow: %w", err)
	}
	return out, nil
}

func strictUnmarshal(data []byte, wf *Workflow) error {
	return json.Unmarshal(data, wf)
}

// checkDepth scans the raw token stream counting open containers.
func checkDepth(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			// Leave syntax reporting to the real decode pass.
			return nil
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
				if depth > MaxNestingDepth {
					return core.NewKindError(core.KindParseFailed, nil, "NESTING_TOO_DEEP",
						fmt.Sprintf("workflow document exceeds nesting depth %d", MaxNestingDepth), nil)
				}
			case '}', ']':
				depth--
			}
		}
	}
}

// Repair applies a best-effort cleanup turning relaxed JSON into strict JSON:
// line and block comments are stripped, trailing commas removed, and bare
// object keys quoted. String literals are preserved untouched.
func Repair(data []byte) []byte {
	stripped := stripComments(data)
	noTrailing := stripTrailingCommas(stripped)
	return quoteBareKeys(noTrailing)
}

func stripComments(data []byte) []byte {
	var out bytes.Buffer
	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out.WriteByte(c)
			if c == '\\' && i+1 < len(data) {
				i++
				out.WriteByte(data[i])
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			out.WriteByte(c)
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
			if i < len(data) {
				out.WriteByte('\n')
			}
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			i += 2
			for i+1 < len(data) && !(data[i] == '*' && data[i+1] == '/') {
				i++
			}
			i++
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}

func stripTrailingCommas(data []byte) []byte {
	var out bytes.Buffer
	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out.WriteByte(c)
			if c == '\\' && i+1 < len(data) {
				i++
				out.WriteByte(data[i])
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(data) && unicode.IsSpace(rune(data[j])) {
				j++
			}
			if j < len(data) && (data[j] == '}' || data[j] == ']') {
				continue
			}
		}
		out.WriteByte(c)
	}
	return out.Bytes()
}

func quoteBareKeys(data []byte) []byte {
	var out bytes.Buffer
	inString := false
	expectKey := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out.WriteByte(c)
			if c == '\\' && i+1 < len(data) {
				i++
				out.WriteByte(data[i])
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			expectKey = false
			out.WriteByte(c)
		case c == '{' || c == ',':
			expectKey = true
			out.WriteByte(c)
		case expectKey && (unicode.IsLetter(rune(c)) || c == '_' || c == '$'):
			start := i
			for i < len(data) && (unicode.IsLetter(rune(data[i])) || unicode.IsDigit(rune(data[i])) || data[i] == '_' || data[i] == '$') {
				i++
			}
			word := data[start:i]
			rest := bytes.TrimLeft(data[i:], " \t\r\n")
			if len(rest) > 0 && rest[0] == ':' {
				out.WriteByte('"')
				out.Write(word)
				out.WriteByte('"')
			} else {
				out.Write(word)
			}
			i--
			expectKey = false
		case unicode.IsSpace(rune(c)):
			out.WriteByte(c)
		default:
			expectKey = false
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}

func offsetOf(err error) int64 {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return syn.Offset
	}
	var typ *json.UnmarshalTypeError
	if errors.As(err, &typ) {
		return typ.Offset
	}
	return 0
}

func locate(data []byte, offset int64) (line, col int) {
	line, col = 1, 1
	if offset <= 0 || offset > int64(len(data)) {
		return line, col
	}
	prefix := string(data[:offset])
	line = strings.Count(prefix, "\n") + 1
	if idx := strings.LastIndexByte(prefix, '\n'); idx >= 0 {
		col = len(prefix) - idx
	} else {
		col = len(prefix) + 1
	}
	return line, col
}
