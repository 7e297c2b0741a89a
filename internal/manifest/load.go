package manifest

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE []byte

// Format is a manifest file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".cue":
		return FormatCUE, true
	}
	return "", false
}

// Load reads and parses the manifest at path. The format follows the
// extension: .yaml/.yml or .cue. Parsing rejects unknown fields in both
// formats; CUE files are also checked against the manifest schema. Semantic
// checks are left to Validate.
func Load(path string) (*Manifest, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, &LoadError{
			Code:    ErrCodeUnsupported,
			Message: fmt.Sprintf("unsupported manifest extension %q (want .yaml, .yml or .cue)", filepath.Ext(path)),
			File:    path,
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("failed to read manifest: %v", err)}
	}

	return Parse(data, format, path)
}

// Parse decodes a manifest. filename is only used in error positions.
func Parse(data []byte, format Format, filename string) (*Manifest, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data, filename)
	case FormatCUE:
		return parseCUE(data, filename)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported format %q", format)}
	}
}

func parseYAML(data []byte, filename string) (*Manifest, error) {
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Code: ErrCodeParseFailed, Message: "empty manifest", File: filename}
		}
		return nil, &LoadError{
			Code:    ErrCodeParseFailed,
			Message: fmt.Sprintf("failed to parse YAML: %v", err),
			File:    filename,
		}
	}
	return &m, nil
}

// parseCUE compiles the file, unifies it with #Manifest from the embedded
// schema and decodes the concrete result.
func parseCUE(data []byte, filename string) (*Manifest, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("manifest schema: %v", err)}
	}
	def := schema.LookupPath(cue.ParsePath("#Manifest"))

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(ErrCodeParseFailed, err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeSchema, err)
	}

	var m Manifest
	if err := unified.Decode(&m); err != nil {
		return nil, cueLoadError(ErrCodeSchema, err)
	}
	return &m, nil
}

// cueLoadError converts a CUE error, keeping the first error's position.
func cueLoadError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: cueerrors.Details(err, nil)}
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return le
	}
	le.Message = list[0].Error()
	if pos := list[0].Position(); pos.IsValid() {
		le.File = pos.Filename()
		le.Line = pos.Line()
		le.Column = pos.Column()
	}
	return le
}
