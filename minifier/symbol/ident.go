package symbol

// identAlphabet is the digit alphabet of the minified identifier sequence.
const identAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// MinifiedIdent generates the sequence a, b, ..., z, A, ..., Z, ab, bb, ...
// of short identifiers: the nonnegative integers expanded over a 52-letter
// alphabet, least-significant digit first. Generators advance independently;
// the zero value starts the sequence from "a".
type MinifiedIdent struct {
	n uint64
}

// Next returns the next identifier in the sequence.
func (g *MinifiedIdent) Next() string {
	var buf [8]byte
	out := buf[:0]
	n := g.n
	for {
		out = append(out, identAlphabet[n%52])
		n /= 52
		if n == 0 {
			break
		}
	}
	g.n++
	return string(out)
}
