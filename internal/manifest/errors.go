package manifest

import "fmt"

// Load error codes (E001-E099).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E004" // File read error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeUnsupported = "E009" // Unsupported file extension
	ErrCodeParseFailed = "E010" // YAML or CUE syntax error
	ErrCodeSchema      = "E011" // CUE schema violation
)

// Validation error codes (E200-E299).
const (
	ErrNameRequired    = "E201" // name is required
	ErrNoUnits         = "E202" // at least one unit required
	ErrUnknownKind     = "E203" // unknown unit type
	ErrMissingSrc      = "E204" // src is required
	ErrInvalidInject   = "E205" // unknown inject target or position
	ErrInvalidMatch    = "E206" // malformed match condition
	ErrInvalidPage     = "E207" // malformed page description
	ErrDuplicateUnitID = "E208" // unit id used twice
)

// LoadError reports a manifest that could not be read or parsed.
type LoadError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func (e *LoadError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidationError reports one semantic problem in a parsed manifest.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}
