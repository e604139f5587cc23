// Package wasmenc builds a WebAssembly core module section by section. Each
// section builder owns its encoded buffer; Module.Section appends a finished
// section and Module.Finish returns the complete binary.
package wasmenc

import (
	"bytes"
	"encoding/binary"
)

const wasmVersion = 1

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// Section is implemented by the section builders of this package.
type Section interface {
	sectionID() byte
	payload() []byte
}

// Module accumulates encoded sections in the order they are appended.
type Module struct {
	buf bytes.Buffer
}

// NewModule returns a Module with the header already written.
func NewModule() *Module {
	m := &Module{}
	m.buf.Write(wasmMagic)
	var version [4]byte
	binary.LittleEndian.PutUint32(version[:], wasmVersion)
	m.buf.Write(version[:])
	return m
}

// Section appends one finished section to the module.
func (m *Module) Section(s Section) {
	payload := s.payload()
	m.buf.WriteByte(s.sectionID())
	writeU32(&m.buf, uint32(len(payload)))
	m.buf.Write(payload)
}

// Finish returns the encoded module bytes.
func (m *Module) Finish() []byte {
	return m.buf.Bytes()
}

// writeU32 appends v in unsigned LEB128 form.
func writeU32(buf *bytes.Buffer, v uint32) {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		buf.WriteByte(c)
		if v == 0 {
			return
		}
	}
}

// writeU64 appends v in unsigned LEB128 form.
func writeU64(buf *bytes.Buffer, v uint64) {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		buf.WriteByte(c)
		if v == 0 {
			return
		}
	}
}

// writeName appends a length-prefixed UTF-8 string.
func writeName(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}
