package wasmparse

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func module(sections ...[]byte) []byte {
	out := append([]byte{}, header...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func drain(t *testing.T, wasm []byte) []Payload {
	t.Helper()
	var payloads []Payload
	p := NewParser(wasm)
	for {
		payload, err := p.Next()
		if errors.Is(err, io.EOF) {
			return payloads
		}
		require.NoError(t, err)
		payloads = append(payloads, payload)
	}
}

func TestParserEmptyModule(t *testing.T) {
	t.Parallel()

	payloads := drain(t, module())
	require.Len(t, payloads, 2)
	assert.IsType(t, Version{}, payloads[0])
	assert.IsType(t, End{}, payloads[1])
}

func TestParserBadMagic(t *testing.T) {
	t.Parallel()

	_, err := NewParser([]byte{0x00, 0x61, 0x73, 0x00, 0x01, 0x00, 0x00, 0x00}).Next()
	assert.ErrorIs(t, err, ErrParse)
}

func TestParserBadVersion(t *testing.T) {
	t.Parallel()

	_, err := NewParser([]byte{0x00, 0x61, 0x73, 0x6d, 0x02, 0x00, 0x00, 0x00}).Next()
	assert.ErrorIs(t, err, ErrParse)
}

func TestParserTruncatedHeader(t *testing.T) {
	t.Parallel()

	_, err := NewParser([]byte{0x00, 0x61}).Next()
	assert.ErrorIs(t, err, ErrParse)
}

func TestParserImportSection(t *testing.T) {
	t.Parallel()

	// (import "env" "abort" (func 0)), (import "env" "memory" (memory 1 2))
	imports := []byte{
		0x02, 0x1c, // import section, 28 bytes
		0x02,                                   // two imports
		0x03, 'e', 'n', 'v',                    // module
		0x05, 'a', 'b', 'o', 'r', 't',          // name
		0x00, 0x00, // func, type 0
		0x03, 'e', 'n', 'v',
		0x06, 'm', 'e', 'm', 'o', 'r', 'y',
		0x02, 0x01, 0x01, 0x02, // memory, limits {1, 2}
	}
	payloads := drain(t, module(imports))
	require.Len(t, payloads, 3)
	section, ok := payloads[1].(ImportSection)
	require.True(t, ok)
	require.Len(t, section.Imports, 2)

	assert.Equal(t, "env", section.Imports[0].Module)
	assert.Equal(t, "abort", section.Imports[0].Name)
	assert.Equal(t, ExternalFunc, section.Imports[0].Type.Kind)
	assert.Equal(t, uint32(0), section.Imports[0].Type.FuncTypeIdx)

	assert.Equal(t, "memory", section.Imports[1].Name)
	require.Equal(t, ExternalMemory, section.Imports[1].Type.Kind)
	mem := section.Imports[1].Type.Memory
	assert.Equal(t, uint64(1), mem.Initial)
	require.NotNil(t, mem.Maximum)
	assert.Equal(t, uint64(2), *mem.Maximum)
	assert.False(t, mem.Shared)
	assert.False(t, mem.Memory64)
}

func TestParserExportSection(t *testing.T) {
	t.Parallel()

	exports := []byte{
		0x07, 0x0f, // export section, 15 bytes
		0x02,
		0x05, 'g', 'r', 'e', 'e', 't', 0x00, 0x02, // func 2
		0x03, 'm', 'e', 'm', 0x02, 0x00, // memory 0
	}
	payloads := drain(t, module(exports))
	section, ok := payloads[1].(ExportSection)
	require.True(t, ok)
	assert.Equal(t, []Export{
		{Name: "greet", Kind: ExternalFunc, Index: 2},
		{Name: "mem", Kind: ExternalMemory, Index: 0},
	}, section.Exports)
}

func TestParserCodeSectionStream(t *testing.T) {
	t.Parallel()

	code := []byte{
		0x0a, 0x07, // code section, 7 bytes
		0x02,                   // two entries
		0x02, 0x00, 0x0b,       // entry: no locals, end
		0x02, 0x00, 0x0b,
	}
	payloads := drain(t, module(code))
	require.Len(t, payloads, 5)
	start, ok := payloads[1].(CodeSectionStart)
	require.True(t, ok)
	assert.Equal(t, uint32(2), start.Count)
	for _, payload := range payloads[2:4] {
		entry, ok := payload.(CodeSectionEntry)
		require.True(t, ok)
		assert.Equal(t, []byte{0x00, 0x0b}, entry.Body)
	}
}

func TestParserTruncatedCodeSection(t *testing.T) {
	t.Parallel()

	code := []byte{
		0x0a, 0x07, // code section, 7 bytes
		0x03,             // three entries promised
		0x02, 0x00, 0x0b, // only two present
		0x02, 0x00, 0x0b,
	}
	p := NewParser(module(code))
	var err error
	for err == nil {
		_, err = p.Next()
	}
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestParserRefusedSections(t *testing.T) {
	t.Parallel()

	testdata := map[string][]byte{
		"start":     {0x08, 0x01, 0x00},
		"datacount": {0x0c, 0x01, 0x00},
		"unknown":   {0x2a, 0x01, 0x00},
	}
	for name, section := range testdata {
		section := section
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p := NewParser(module(section))
			var err error
			for err == nil {
				_, err = p.Next()
			}
			assert.ErrorIs(t, err, ErrUnsupportedSection)
		})
	}
}

func TestParserNonUTF8Name(t *testing.T) {
	t.Parallel()

	exports := []byte{
		0x07, 0x06, // export section
		0x01,
		0x02, 0xff, 0xfe, // invalid UTF-8 name
		0x00, 0x00,
	}
	p := NewParser(module(exports))
	var err error
	for err == nil {
		_, err = p.Next()
	}
	assert.ErrorIs(t, err, ErrParse)
}

func TestParserSectionSizeMismatch(t *testing.T) {
	t.Parallel()

	// function section claiming 3 bytes but its vector only spans 2
	section := []byte{0x03, 0x03, 0x01, 0x00}
	p := NewParser(append(module(section), 0x00))
	var err error
	for err == nil {
		_, err = p.Next()
	}
	assert.ErrorIs(t, err, ErrParse)
}

func TestParserConstExprDelimiting(t *testing.T) {
	t.Parallel()

	// A global whose init is i32.const 11: the immediate byte equals the end
	// opcode, which a naive terminator scan would trip over.
	global := []byte{
		0x06, 0x06, // global section
		0x01,
		0x7f, 0x00, // i32, immutable
		0x41, 0x0b, 0x0b, // i32.const 11, end
	}
	payloads := drain(t, module(global))
	section, ok := payloads[1].(GlobalSection)
	require.True(t, ok)
	require.Len(t, section.Globals, 1)
	assert.Equal(t, ConstExpr{0x41, 0x0b, 0x0b}, section.Globals[0].Init)
	assert.Equal(t, ValI32, section.Globals[0].Type.ContentType.Kind)
	assert.False(t, section.Globals[0].Type.Mutable)
}
