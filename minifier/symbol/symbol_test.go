package symbol

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distmin/distmin/minifier/wasmenc"
	"github.com/distmin/distmin/minifier/wasmparse"
)

// buildBindgenModule builds the module of the two-imports-same-module
// scenario: imports (env, memory, Memory), (env, abort, Func 0) and the
// export (greet, Func 2).
func buildBindgenModule(t *testing.T) []byte {
	t.Helper()

	module := wasmenc.NewModule()

	types := &wasmenc.TypeSection{}
	types.Function(nil, nil)
	module.Section(types)

	imports := &wasmenc.ImportSection{}
	imports.Memory("env", "memory", wasmenc.MemoryType{Minimum: 1})
	imports.Func("env", "abort", 0)
	module.Section(imports)

	funcs := &wasmenc.FunctionSection{}
	funcs.Function(0)
	module.Section(funcs)

	exports := &wasmenc.ExportSection{}
	exports.Export("greet", wasmenc.ExportFunc, 2)
	module.Section(exports)

	code := &wasmenc.CodeSection{}
	code.RawFunction([]byte{0x00, 0x0b}) // no locals, end
	module.Section(code)

	return module.Finish()
}

// collectPayloads drains a parser into a payload slice.
func collectPayloads(t *testing.T, wasm []byte) []wasmparse.Payload {
	t.Helper()

	var payloads []wasmparse.Payload
	parser := wasmparse.NewParser(wasm)
	for {
		payload, err := parser.Next()
		if errors.Is(err, io.EOF) {
			return payloads
		}
		require.NoError(t, err)
		payloads = append(payloads, payload)
	}
}

const glueJS = `let wasm;
imports.env = {};
imports.env.abort = () => { throw new Error(); };
export function greet() {
    return wasm.greet();
}
`

func TestMinifySymbolRenamesImportsAndExports(t *testing.T) {
	t.Parallel()

	newWasm, newJS, err := MinifySymbol(buildBindgenModule(t), glueJS)
	require.NoError(t, err)

	var imports []wasmparse.Import
	var exports []wasmparse.Export
	for _, payload := range collectPayloads(t, newWasm) {
		switch pl := payload.(type) {
		case wasmparse.ImportSection:
			imports = pl.Imports
		case wasmparse.ExportSection:
			exports = pl.Exports
		}
	}

	require.Len(t, imports, 2)
	assert.Equal(t, "a", imports[0].Module)
	assert.Equal(t, "a", imports[0].Name)
	assert.Equal(t, wasmparse.ExternalMemory, imports[0].Type.Kind)
	assert.Equal(t, "a", imports[1].Module)
	assert.Equal(t, "b", imports[1].Name)
	assert.Equal(t, wasmparse.ExternalFunc, imports[1].Type.Kind)
	assert.Equal(t, uint32(0), imports[1].Type.FuncTypeIdx)

	require.Len(t, exports, 1)
	assert.Equal(t, wasmparse.Export{Name: "a", Kind: wasmparse.ExternalFunc, Index: 2}, exports[0])

	assert.Contains(t, newJS, "imports.a = {};")
	assert.Contains(t, newJS, "imports.a.b = () => { throw new Error(); };")
	assert.Contains(t, newJS, "wasm.a()")
	assert.NotContains(t, newJS, "imports.env")
	assert.NotContains(t, newJS, "wasm.greet")
}

func TestMinifySymbolPreservesCodeAndSectionOrder(t *testing.T) {
	t.Parallel()

	module := wasmenc.NewModule()
	types := &wasmenc.TypeSection{}
	types.Function(nil, nil)
	module.Section(types)
	funcs := &wasmenc.FunctionSection{}
	funcs.Function(0)
	funcs.Function(0)
	funcs.Function(0)
	module.Section(funcs)
	code := &wasmenc.CodeSection{}
	bodies := [][]byte{
		{0x00, 0x0b},
		{0x00, 0x41, 0x2a, 0x1a, 0x0b}, // i32.const 42, drop
		{0x01, 0x01, 0x7f, 0x0b},       // one i32 local
	}
	for _, body := range bodies {
		code.RawFunction(body)
	}
	module.Section(code)

	newWasm, _, err := MinifySymbol(module.Finish(), "")
	require.NoError(t, err)

	var start *wasmparse.CodeSectionStart
	var got [][]byte
	for _, payload := range collectPayloads(t, newWasm) {
		switch pl := payload.(type) {
		case wasmparse.CodeSectionStart:
			require.Nil(t, start)
			pl := pl
			start = &pl
		case wasmparse.CodeSectionEntry:
			got = append(got, pl.Body)
		}
	}
	require.NotNil(t, start)
	assert.Equal(t, uint32(3), start.Count)
	assert.Equal(t, bodies, got)
}

func TestMinifySymbolTruncatedCodeSection(t *testing.T) {
	t.Parallel()

	// A code section promising three entries but holding only two.
	wasm := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // header
		0x0a, 0x07, // code section, 7 bytes
		0x03,             // count: 3
		0x02, 0x00, 0x0b, // entry 1
		0x02, 0x00, 0x0b, // entry 2
	}

	_, _, err := MinifySymbol(wasm, "")
	assert.ErrorIs(t, err, wasmparse.ErrIntegrity)
}

func TestMinifySymbolCustomSectionPassthrough(t *testing.T) {
	t.Parallel()

	module := wasmenc.NewModule()
	module.Section(wasmenc.CustomSection{Name: "name", Data: []byte{0x01, 0x02, 0x03}})

	newWasm, _, err := MinifySymbol(module.Finish(), "")
	require.NoError(t, err)

	payloads := collectPayloads(t, newWasm)
	require.Len(t, payloads, 3) // version, custom, end
	custom, ok := payloads[1].(wasmparse.CustomSection)
	require.True(t, ok)
	assert.Equal(t, "name", custom.Name)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, custom.Data)
}

func TestMinifySymbolRejectsStartSection(t *testing.T) {
	t.Parallel()

	wasm := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // header
		0x08, 0x01, 0x00, // start section, function 0
	}

	_, _, err := MinifySymbol(wasm, "")
	assert.ErrorIs(t, err, wasmparse.ErrUnsupportedSection)
}

func TestMinifySymbolDeterministic(t *testing.T) {
	t.Parallel()

	wasm := buildBindgenModule(t)
	first, firstJS, err := MinifySymbol(wasm, glueJS)
	require.NoError(t, err)
	second, secondJS, err := MinifySymbol(wasm, glueJS)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstJS, secondJS)
}

func TestMinifySymbolIdempotentOnOwnOutput(t *testing.T) {
	t.Parallel()

	firstWasm, firstJS, err := MinifySymbol(buildBindgenModule(t), glueJS)
	require.NoError(t, err)

	// The output names are already first in the generator sequences, so a
	// second run maps every name to itself and the JS patch is an identity.
	secondWasm, secondJS, err := MinifySymbol(firstWasm, firstJS)
	require.NoError(t, err)
	assert.Equal(t, firstWasm, secondWasm)
	assert.Equal(t, firstJS, secondJS)
}
