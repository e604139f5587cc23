package minifier

import (
	"bytes"
	"io"
	"testing"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distmin/distmin/lib/fsext"
	"github.com/distmin/distmin/minifier/wasmenc"
)

func init() {
	color.NoColor = true
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// buildTestModule returns a tiny wasm-bindgen-shaped module: one env import
// and one exported function.
func buildTestModule(t *testing.T) []byte {
	t.Helper()

	module := wasmenc.NewModule()
	types := &wasmenc.TypeSection{}
	types.Function(nil, nil)
	module.Section(types)
	imports := &wasmenc.ImportSection{}
	imports.Func("env", "abort", 0)
	module.Section(imports)
	funcs := &wasmenc.FunctionSection{}
	funcs.Function(0)
	module.Section(funcs)
	exports := &wasmenc.ExportSection{}
	exports.Export("greet", wasmenc.ExportFunc, 1)
	module.Section(exports)
	code := &wasmenc.CodeSection{}
	code.RawFunction([]byte{0x00, 0x0b})
	module.Section(code)
	return module.Finish()
}

const testGlue = `let wasm;
imports.env = {};
imports.env.abort = function() { throw new Error("abort"); };
export function greet() {
    return wasm.greet();
}
`

func writeTestDist(t *testing.T, fs afero.Fs) {
	t.Helper()

	require.NoError(t, fsext.MkDir(fs, "dist"))
	files := map[string][]byte{
		"dist/index.html":  []byte("<!DOCTYPE html>\n<html>\n  <body>\n    <h1>  shout  </h1>\n  </body>\n</html>\n"),
		"dist/style.css":   []byte("body {\n  margin: 0px;\n  color: #ffffff;\n}\n"),
		"dist/app.js":      []byte(testGlue),
		"dist/app_bg.wasm": buildTestModule(t),
		"dist/extra.js":    []byte("function util(x) { return x + 1; }\n"),
		"dist/orphan.wasm": {0xde, 0xad, 0xbe, 0xef},
		"dist/notes.txt":   []byte("not part of the bundle"),
	}
	for path, content := range files {
		require.NoError(t, fsext.WriteFile(fs, path, content))
	}
}

func TestRunMinifiesDist(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeTestDist(t, fs)

	var out bytes.Buffer
	require.NoError(t, Run(fs, testLogger(), &out, "dist", "dist-minified"))

	for _, name := range []string{"index.html", "style.css", "app.js", "app_bg.wasm", "extra.js", "orphan.wasm"} {
		exists, err := afero.Exists(fs, "dist-minified/"+name)
		require.NoError(t, err)
		assert.True(t, exists, "missing output file %s", name)
	}

	// the whitelist drops everything else
	exists, err := afero.Exists(fs, "dist-minified/notes.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	// a wasm module without a js partner passes through unchanged
	orphan, err := fsext.ReadFile(fs, "dist-minified/orphan.wasm")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, orphan)

	// the glue was patched: the original symbol names are gone
	glue, err := fsext.ReadFile(fs, "dist-minified/app.js")
	require.NoError(t, err)
	assert.NotContains(t, string(glue), "imports.env")
	assert.NotContains(t, string(glue), "wasm.greet")
	assert.Contains(t, string(glue), "imports.a")

	html, err := fsext.ReadFile(fs, "dist-minified/index.html")
	require.NoError(t, err)
	assert.Less(t, len(html), len("<!DOCTYPE html>\n<html>\n  <body>\n    <h1>  shout  </h1>\n  </body>\n</html>\n"))

	report := out.String()
	for _, name := range []string{"filename", "origin", "minify", "brotli", "index.html", "app_bg.wasm", "orphan.wasm"} {
		assert.Contains(t, report, name)
	}
	// the pass-through wasm didn't change size
	assert.Contains(t, report, "---KiB")
}

func TestRunRecreatesMinifiedDir(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeTestDist(t, fs)
	require.NoError(t, fsext.MkDir(fs, "dist-minified"))
	require.NoError(t, fsext.WriteFile(fs, "dist-minified/stale.js", []byte("stale")))

	var out bytes.Buffer
	require.NoError(t, Run(fs, testLogger(), &out, "dist", "dist-minified"))

	exists, err := afero.Exists(fs, "dist-minified/stale.js")
	require.NoError(t, err)
	assert.False(t, exists, "stale output should have been deleted")
}

func TestRunContinuesAfterFileFailure(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeTestDist(t, fs)
	// broken standalone js: parse failure aborts the file, not the run
	require.NoError(t, fsext.WriteFile(fs, "dist/broken.js", []byte(") (")))

	var out bytes.Buffer
	err := Run(fs, testLogger(), &out, "dist", "dist-minified")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 file(s) failed")

	// the healthy files were still produced
	exists, aerr := afero.Exists(fs, "dist-minified/index.html")
	require.NoError(t, aerr)
	assert.True(t, exists)

	broken, aerr := afero.Exists(fs, "dist-minified/broken.js")
	require.NoError(t, aerr)
	assert.False(t, broken)
}

func TestRunMissingOriginalDir(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	var out bytes.Buffer
	err := Run(fs, testLogger(), &out, "missing", "dist-minified")
	assert.Error(t, err)
}

func TestGroupTargetsPairing(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fsext.MkDir(fs, "dist"))
	for _, name := range []string{"app.js", "app_bg.wasm", "other.js", "lone_bg.wasm"} {
		require.NoError(t, fsext.WriteFile(fs, "dist/"+name, []byte("x")))
	}
	paths, err := fsext.ReadDir(fs, "dist")
	require.NoError(t, err)

	targets, err := groupTargets(fs, testLogger(), paths)
	require.NoError(t, err)

	var pairs, individuals int
	for _, target := range targets {
		if target.wasm != nil {
			pairs++
			assert.Equal(t, "app.js", fileStem(target.js.path)+".js")
			assert.Equal(t, "app_bg", fileStem(target.wasm.path))
		} else {
			individuals++
		}
	}
	assert.Equal(t, 1, pairs)
	assert.Equal(t, 2, individuals) // other.js and the unpaired lone_bg.wasm
}
