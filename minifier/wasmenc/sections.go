package wasmenc

import "bytes"

// countedSection is the common shape of the vector-style sections: an entry
// count followed by the encoded entries.
type countedSection struct {
	n   uint32
	buf bytes.Buffer
}

func (s *countedSection) payload() []byte {
	var out bytes.Buffer
	writeU32(&out, s.n)
	out.Write(s.buf.Bytes())
	return out.Bytes()
}

// Len returns the number of entries added so far.
func (s *countedSection) Len() uint32 {
	return s.n
}

// TypeSection builds the type section.
type TypeSection struct{ countedSection }

func (s *TypeSection) sectionID() byte { return 1 }

// Function appends a function signature.
func (s *TypeSection) Function(params, results []ValType) {
	s.n++
	s.buf.WriteByte(0x60)
	writeU32(&s.buf, uint32(len(params)))
	for _, p := range params {
		writeValType(&s.buf, p)
	}
	writeU32(&s.buf, uint32(len(results)))
	for _, r := range results {
		writeValType(&s.buf, r)
	}
}

// Array appends an array type.
func (s *TypeSection) Array(elementType StorageType, mutable bool) {
	s.n++
	s.buf.WriteByte(0x5e)
	writeStorageType(&s.buf, elementType)
	writeMutability(&s.buf, mutable)
}

// ImportSection builds the import section.
type ImportSection struct{ countedSection }

func (s *ImportSection) sectionID() byte { return 2 }

func (s *ImportSection) header(module, name string, kind ExportKind) {
	s.n++
	writeName(&s.buf, module)
	writeName(&s.buf, name)
	s.buf.WriteByte(byte(kind))
}

// Func appends a function import.
func (s *ImportSection) Func(module, name string, typeIdx uint32) {
	s.header(module, name, ExportFunc)
	writeU32(&s.buf, typeIdx)
}

// Table appends a table import.
func (s *ImportSection) Table(module, name string, t TableType) {
	s.header(module, name, ExportTable)
	writeTableType(&s.buf, t)
}

// Memory appends a memory import.
func (s *ImportSection) Memory(module, name string, m MemoryType) {
	s.header(module, name, ExportMemory)
	writeMemoryType(&s.buf, m)
}

// Global appends a global import.
func (s *ImportSection) Global(module, name string, g GlobalType) {
	s.header(module, name, ExportGlobal)
	writeGlobalType(&s.buf, g)
}

// Tag appends a tag import.
func (s *ImportSection) Tag(module, name string, t TagType) {
	s.header(module, name, ExportTag)
	writeTagType(&s.buf, t)
}

// FunctionSection builds the function section.
type FunctionSection struct{ countedSection }

func (s *FunctionSection) sectionID() byte { return 3 }

// Function appends one type index.
func (s *FunctionSection) Function(typeIdx uint32) {
	s.n++
	writeU32(&s.buf, typeIdx)
}

// TableSection builds the table section.
type TableSection struct{ countedSection }

func (s *TableSection) sectionID() byte { return 4 }

// Table appends one table.
func (s *TableSection) Table(t TableType) {
	s.n++
	writeTableType(&s.buf, t)
}

// MemorySection builds the memory section.
type MemorySection struct{ countedSection }

func (s *MemorySection) sectionID() byte { return 5 }

// Memory appends one memory.
func (s *MemorySection) Memory(m MemoryType) {
	s.n++
	writeMemoryType(&s.buf, m)
}

// GlobalSection builds the global section.
type GlobalSection struct{ countedSection }

func (s *GlobalSection) sectionID() byte { return 6 }

// Global appends one global with its init expression.
func (s *GlobalSection) Global(t GlobalType, init *ConstExpr) {
	s.n++
	writeGlobalType(&s.buf, t)
	init.encode(&s.buf)
}

// ExportSection builds the export section.
type ExportSection struct{ countedSection }

func (s *ExportSection) sectionID() byte { return 7 }

// Export appends one export.
func (s *ExportSection) Export(name string, kind ExportKind, index uint32) {
	s.n++
	writeName(&s.buf, name)
	s.buf.WriteByte(byte(kind))
	writeU32(&s.buf, index)
}

// ElementModeKind selects the mode of an element segment.
type ElementModeKind uint8

// Element segment modes.
const (
	ElementPassive ElementModeKind = iota
	ElementActive
	ElementDeclared
)

// ElementMode is the mode of an element segment. For ElementActive, Offset
// must point at caller-owned storage that outlives the Segment call.
type ElementMode struct {
	Kind   ElementModeKind
	Table  uint32
	Offset *ConstExpr
}

// Elements holds the items of an element segment. Exactly one of the two
// slices is used; both reference caller-owned scratch storage.
type Elements struct {
	Functions   []uint32
	Expressions []ConstExpr
	// IsExpressions selects the Expressions slice even when it is empty.
	IsExpressions bool
}

// ElementSegment is one element segment.
type ElementSegment struct {
	Mode        ElementMode
	ElementType RefType
	Elements    Elements
}

// ElementSection builds the element section.
type ElementSection struct{ countedSection }

func (s *ElementSection) sectionID() byte { return 9 }

// Segment appends one element segment, choosing the most compact of the
// eight flag-selected encodings that can represent it.
func (s *ElementSection) Segment(seg ElementSegment) {
	s.n++

	exprs := seg.Elements.IsExpressions
	funcRefType := seg.ElementType == FuncRef

	var flags uint32
	switch seg.Mode.Kind {
	case ElementActive:
		switch {
		case seg.Mode.Table == 0 && funcRefType:
			flags = 0
		default:
			flags = 2
		}
	case ElementPassive:
		flags = 1
	case ElementDeclared:
		flags = 3
	}
	if exprs {
		flags |= 4
	}

	writeU32(&s.buf, flags)
	if seg.Mode.Kind == ElementActive {
		if flags&0x02 != 0 {
			writeU32(&s.buf, seg.Mode.Table)
		}
		seg.Mode.Offset.encode(&s.buf)
	}
	if flags != 0 && flags != 4 {
		if exprs {
			writeRefType(&s.buf, seg.ElementType)
		} else {
			s.buf.WriteByte(0x00) // element kind: function references
		}
	}
	if exprs {
		writeU32(&s.buf, uint32(len(seg.Elements.Expressions)))
		for _, e := range seg.Elements.Expressions {
			e.encode(&s.buf)
		}
	} else {
		writeU32(&s.buf, uint32(len(seg.Elements.Functions)))
		for _, idx := range seg.Elements.Functions {
			writeU32(&s.buf, idx)
		}
	}
}

// DataSection builds the data section.
type DataSection struct{ countedSection }

func (s *DataSection) sectionID() byte { return 11 }

// Passive appends a passive data segment.
func (s *DataSection) Passive(data []byte) {
	s.n++
	writeU32(&s.buf, 1)
	writeU32(&s.buf, uint32(len(data)))
	s.buf.Write(data)
}

// Active appends an active data segment.
func (s *DataSection) Active(memoryIndex uint32, offset *ConstExpr, data []byte) {
	s.n++
	if memoryIndex == 0 {
		writeU32(&s.buf, 0)
	} else {
		writeU32(&s.buf, 2)
		writeU32(&s.buf, memoryIndex)
	}
	offset.encode(&s.buf)
	writeU32(&s.buf, uint32(len(data)))
	s.buf.Write(data)
}

// TagSection builds the tag section.
type TagSection struct{ countedSection }

func (s *TagSection) sectionID() byte { return 13 }

// Tag appends one tag.
func (s *TagSection) Tag(t TagType) {
	s.n++
	writeTagType(&s.buf, t)
}

// CodeSection builds the code section.
type CodeSection struct{ countedSection }

func (s *CodeSection) sectionID() byte { return 10 }

// RawFunction appends one code entry from its raw body bytes (locals
// included), preserved bit-exact behind the size prefix.
func (s *CodeSection) RawFunction(body []byte) {
	s.n++
	writeU32(&s.buf, uint32(len(body)))
	s.buf.Write(body)
}

// CustomSection is an opaque custom section, passed through verbatim.
type CustomSection struct {
	Name string
	Data []byte
}

func (s CustomSection) sectionID() byte { return 0 }

func (s CustomSection) payload() []byte {
	var out bytes.Buffer
	writeName(&out, s.Name)
	out.Write(s.Data)
	return out.Bytes()
}
