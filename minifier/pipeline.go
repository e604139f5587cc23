// Package minifier drives the minification pipeline: it classifies the
// files of a dist directory, pairs each wasm-bindgen glue script with its
// wasm module, runs the symbol rewriter, the JS pre-optimizer and the
// external minifiers, and reports per-file before/after sizes.
package minifier

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/distmin/distmin/lib/fsext"
	"github.com/distmin/distmin/minifier/extmin"
	"github.com/distmin/distmin/minifier/optjs"
	"github.com/distmin/distmin/minifier/symbol"
)

// ProcessStats is the size record of one produced file. MinifiedSize is nil
// when minification didn't change the size.
type ProcessStats struct {
	OriginSize   int
	MinifiedSize *int
	BrotliedSize int
}

// trackedFile carries a file's content through the pipeline, remembering its
// original size.
type trackedFile struct {
	path        string
	content     []byte
	originalLen int
}

func newTrackedFile(fs afero.Fs, path string) (*trackedFile, error) {
	content, err := fsext.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	return &trackedFile{path: path, content: content, originalLen: len(content)}, nil
}

// minifyString runs a text-to-text minifier over the content. Non-UTF-8
// content is a fatal error for the file.
func (t *trackedFile) minifyString(minify func(string) (string, error)) error {
	if !utf8.Valid(t.content) {
		return fmt.Errorf("%s is not valid UTF-8", t.path)
	}
	updated, err := minify(string(t.content))
	if err != nil {
		return err
	}
	t.content = []byte(updated)
	return nil
}

// finish writes the file into minifiedDir and returns its size record.
func (t *trackedFile) finish(fs afero.Fs, minifiedDir string) (ProcessStats, error) {
	brotlied, err := extmin.BrotliCompress(t.content)
	if err != nil {
		return ProcessStats{}, err
	}
	out := filepath.Join(minifiedDir, filepath.Base(t.path))
	if err := fsext.WriteFile(fs, out, t.content); err != nil {
		return ProcessStats{}, err
	}
	stats := ProcessStats{
		OriginSize:   t.originalLen,
		BrotliedSize: len(brotlied),
	}
	if n := len(t.content); n != t.originalLen {
		stats.MinifiedSize = &n
	}
	return stats, nil
}

// processTarget is one unit of work: an individual file, or a wasm-bindgen
// js+wasm pair (wasm non-nil).
type processTarget struct {
	js   *trackedFile
	wasm *trackedFile
}

// Run minifies every whitelisted file of originalDir into minifiedDir and
// writes the size-report table to out. Per-file failures are logged and the
// file is skipped; Run returns an error if any file failed, or immediately
// if the output directory itself cannot be prepared.
func Run(fs afero.Fs, logger logrus.FieldLogger, out io.Writer, originalDir, minifiedDir string) error {
	if err := fsext.RimRaf(fs, minifiedDir); err != nil {
		return fmt.Errorf("could not clear %s: %w", minifiedDir, err)
	}
	if err := fsext.MkDir(fs, minifiedDir); err != nil {
		return fmt.Errorf("could not create %s: %w", minifiedDir, err)
	}

	paths, err := fsext.ReadDir(fs, originalDir)
	if err != nil {
		return fmt.Errorf("could not list %s: %w", originalDir, err)
	}

	targets, err := groupTargets(fs, logger, paths)
	if err != nil {
		return err
	}

	failed := 0
	results := make([]fileResult, 0, len(targets))
	for _, target := range targets {
		files, err := process(target)
		if err != nil {
			failed++
			path := target.js.path
			logger.WithError(err).WithField("file", path).Error("minification failed")
			continue
		}
		for _, f := range files {
			stats, err := f.finish(fs, minifiedDir)
			if err != nil {
				failed++
				logger.WithError(err).WithField("file", f.path).Error("could not finalize file")
				continue
			}
			results = append(results, fileResult{name: filepath.Base(f.path), stats: stats})
		}
	}

	printReport(out, results)

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed to minify", failed)
	}
	return nil
}

// groupTargets classifies the directory listing: html and css stand alone,
// each js is paired with the wasm whose stem is "<js-stem>_bg", and leftover
// js and wasm files stand alone too. Files outside the whitelist are logged
// and skipped.
func groupTargets(fs afero.Fs, logger logrus.FieldLogger, paths []string) ([]processTarget, error) {
	var targets []processTarget
	var jsFiles, wasmFiles []*trackedFile

	for _, path := range paths {
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		switch ext {
		case "html", "css", "js", "wasm":
		default:
			logger.WithField("file", path).Debug("skipping file with unsupported extension")
			continue
		}
		file, err := newTrackedFile(fs, path)
		if err != nil {
			return nil, err
		}
		switch ext {
		case "html", "css":
			targets = append(targets, processTarget{js: file})
		case "js":
			jsFiles = append(jsFiles, file)
		case "wasm":
			wasmFiles = append(wasmFiles, file)
		}
	}

	for _, jsFile := range jsFiles {
		jsStem := fileStem(jsFile.path)
		pair := -1
		for i, wasmFile := range wasmFiles {
			if fileStem(wasmFile.path) == jsStem+"_bg" {
				pair = i
				break
			}
		}
		if pair >= 0 {
			targets = append(targets, processTarget{js: jsFile, wasm: wasmFiles[pair]})
			wasmFiles = append(wasmFiles[:pair], wasmFiles[pair+1:]...)
		} else {
			targets = append(targets, processTarget{js: jsFile})
		}
	}
	for _, wasmFile := range wasmFiles {
		logger.WithField("file", wasmFile.path).Debug("wasm module without a js partner, passing through")
		targets = append(targets, processTarget{js: wasmFile})
	}
	return targets, nil
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// minifyJS is the js treatment: the AST pre-optimizer followed by the
// external minifier.
func minifyJS(src string) (string, error) {
	optimized, err := optjs.Optimize(src)
	if err != nil {
		return "", err
	}
	return extmin.JS(optimized)
}

// process applies the right treatment to one target and returns the files
// to finalize, pair first.
func process(target processTarget) ([]*trackedFile, error) {
	if target.wasm != nil {
		if !utf8.Valid(target.js.content) {
			return nil, fmt.Errorf("%s is not valid UTF-8", target.js.path)
		}
		newWasm, newJS, err := symbol.MinifySymbol(target.wasm.content, string(target.js.content))
		if err != nil {
			return nil, err
		}
		target.wasm.content = newWasm
		target.js.content = []byte(newJS)
		if err := target.js.minifyString(minifyJS); err != nil {
			return nil, err
		}
		return []*trackedFile{target.js, target.wasm}, nil
	}

	file := target.js
	switch strings.TrimPrefix(filepath.Ext(file.path), ".") {
	case "html":
		if err := file.minifyString(extmin.HTML); err != nil {
			return nil, err
		}
	case "css":
		if err := file.minifyString(extmin.CSS); err != nil {
			return nil, err
		}
	case "js":
		if err := file.minifyString(minifyJS); err != nil {
			return nil, err
		}
	case "wasm":
		// no js partner: passed through unchanged
	}
	return []*trackedFile{file}, nil
}
