// Package extmin wraps the external minifiers and the brotli compressor the
// pipeline calls out to: tdewolff/minify for HTML, CSS and JavaScript, and
// andybalholm/brotli for the final size metric.
package extmin

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/andybalholm/brotli"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	mjs "github.com/tdewolff/minify/v2/js"
)

// ErrExternalTool is returned when a minifier or the compressor fails.
var ErrExternalTool = errors.New("external tool error")

const (
	mimeHTML = "text/html"
	mimeCSS  = "text/css"
	mimeJS   = "application/javascript"
)

// m is the shared minifier registry. The default configurations already
// collapse whitespace, drop comments, strip optional tags and attribute
// quotes, and minify CSS/JS embedded in HTML, matching the aggressive
// option set the pipeline wants.
var m = minify.New()

func init() {
	m.Add(mimeHTML, &html.Minifier{})
	m.Add(mimeCSS, &css.Minifier{})
	m.Add(mimeJS, &mjs.Minifier{})
}

// HTML minifies an HTML document.
func HTML(src string) (string, error) {
	out, err := m.String(mimeHTML, src)
	if err != nil {
		return "", fmt.Errorf("%w: html minifier: %v", ErrExternalTool, err)
	}
	return out, nil
}

// CSS minifies a stylesheet.
func CSS(src string) (string, error) {
	out, err := m.String(mimeCSS, src)
	if err != nil {
		return "", fmt.Errorf("%w: css minifier: %v", ErrExternalTool, err)
	}
	return out, nil
}

// JS minifies a script.
func JS(src string) (string, error) {
	out, err := m.String(mimeJS, src)
	if err != nil {
		return "", fmt.Errorf("%w: js minifier: %v", ErrExternalTool, err)
	}
	return out, nil
}

// BrotliCompress compresses src at the default quality. The result is only
// used as a size metric, so no options are exposed.
func BrotliCompress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("%w: brotli: %v", ErrExternalTool, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: brotli: %v", ErrExternalTool, err)
	}
	return buf.Bytes(), nil
}
