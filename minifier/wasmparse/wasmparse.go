// Package wasmparse reads a WebAssembly core module as a stream of typed
// section payloads. It decodes exactly the sections and type descriptors the
// symbol rewriter needs and refuses everything else (start, data-count and
// the component-model section families are unsupported).
package wasmparse

import "errors"

var (
	// ErrParse is the base error for malformed module bytes.
	ErrParse = errors.New("malformed wasm module")
	// ErrUnsupportedSection is returned for section ids outside the
	// supported core-module set.
	ErrUnsupportedSection = errors.New("unsupported wasm section")
	// ErrUnsupportedType is returned for type descriptors outside the
	// supported set.
	ErrUnsupportedType = errors.New("unsupported wasm type")
	// ErrIntegrity is returned when section-level accounting doesn't add up,
	// e.g. a code section that promises more entries than it holds.
	ErrIntegrity = errors.New("wasm module integrity error")
)

// Section ids of the WebAssembly binary format.
const (
	sectionIDCustom    byte = 0
	sectionIDType      byte = 1
	sectionIDImport    byte = 2
	sectionIDFunction  byte = 3
	sectionIDTable     byte = 4
	sectionIDMemory    byte = 5
	sectionIDGlobal    byte = 6
	sectionIDExport    byte = 7
	sectionIDStart     byte = 8
	sectionIDElement   byte = 9
	sectionIDCode      byte = 10
	sectionIDData      byte = 11
	sectionIDDataCount byte = 12
	sectionIDTag       byte = 13
)
