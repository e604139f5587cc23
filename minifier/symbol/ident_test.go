package symbol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinifiedIdentSequence(t *testing.T) {
	t.Parallel()

	var gen MinifiedIdent
	got := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		got = append(got, gen.Next())
	}
	assert.Equal(t, "abcde", strings.Join(got, ""))
}

func TestMinifiedIdentEveryTenth(t *testing.T) {
	t.Parallel()

	var gen MinifiedIdent
	got := make([]string, 0, 10)
	for i := 0; i < 100; i++ {
		ident := gen.Next()
		if i%10 == 0 {
			got = append(got, ident)
		}
	}
	assert.Equal(t, "a k u E O Y ib sb Cb Mb", strings.Join(got, " "))
}

func TestMinifiedIdentNth(t *testing.T) {
	t.Parallel()

	nth := func(n int) string {
		var gen MinifiedIdent
		var s string
		for i := 0; i <= n; i++ {
			s = gen.Next()
		}
		return s
	}

	testdata := map[int]string{
		0:    "a",
		10:   "k",
		25:   "z",
		26:   "A",
		51:   "Z",
		52:   "ab",
		53:   "bb",
		62:   "kb",
		2704: "aab",
	}
	for n, expected := range testdata {
		assert.Equal(t, expected, nth(n), "n=%d", n)
	}
}

func TestMinifiedIdentIndependence(t *testing.T) {
	t.Parallel()

	var a, b MinifiedIdent
	assert.Equal(t, "a", a.Next())
	assert.Equal(t, "b", a.Next())
	assert.Equal(t, "a", b.Next())
	assert.Equal(t, "c", a.Next())
	assert.Equal(t, "b", b.Next())
}
