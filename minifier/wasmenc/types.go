package wasmenc

import "bytes"

// HeapKind enumerates the abstract heap types plus the indexed form.
type HeapKind uint8

// Heap type kinds.
const (
	HeapFunc HeapKind = iota
	HeapExtern
	HeapAny
	HeapNone
	HeapNoExtern
	HeapNoFunc
	HeapEq
	HeapStruct
	HeapArray
	HeapI31
	HeapIndexed
)

// HeapType is the target of a reference type. Index is only meaningful for
// HeapIndexed.
type HeapType struct {
	Kind  HeapKind
	Index uint32
}

// RefType is a (possibly nullable) reference to a heap type.
type RefType struct {
	Nullable bool
	Heap     HeapType
}

// FuncRef is the funcref shorthand type.
var FuncRef = RefType{Nullable: true, Heap: HeapType{Kind: HeapFunc}}

// ValKind enumerates the value type families.
type ValKind uint8

// Value type kinds.
const (
	ValI32 ValKind = iota
	ValI64
	ValF32
	ValF64
	ValV128
	ValRef
)

// ValType is a value type. Ref is only meaningful for ValRef.
type ValType struct {
	Kind ValKind
	Ref  RefType
}

// StorageKind enumerates the storage type families used by array types.
type StorageKind uint8

// Storage type kinds.
const (
	StorageI8 StorageKind = iota
	StorageI16
	StorageVal
)

// StorageType is a field storage type. Val is only meaningful for StorageVal.
type StorageType struct {
	Kind StorageKind
	Val  ValType
}

// TagKind is the kind of a tag.
type TagKind uint8

// Tag kinds.
const (
	TagKindException TagKind = iota
)

// ExportKind classifies exports (and import descriptors).
type ExportKind uint8

// Export kinds, in their binary encoding order.
const (
	ExportFunc ExportKind = iota
	ExportTable
	ExportMemory
	ExportGlobal
	ExportTag
)

// TableType describes a table.
type TableType struct {
	ElementType RefType
	Minimum     uint32
	Maximum     *uint32
}

// MemoryType describes a linear memory.
type MemoryType struct {
	Minimum  uint64
	Maximum  *uint64
	Memory64 bool
	Shared   bool
}

// GlobalType describes a global.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// TagType describes a tag.
type TagType struct {
	Kind        TagKind
	FuncTypeIdx uint32
}

// ConstExpr is a constant expression held as raw instruction bytes without
// the trailing end opcode; the encoder appends its own terminator.
type ConstExpr struct {
	raw []byte
}

// NewConstExpr wraps raw instruction bytes (no trailing end opcode).
func NewConstExpr(raw []byte) ConstExpr {
	return ConstExpr{raw: raw}
}

// Raw returns the expression bytes without the terminator.
func (e ConstExpr) Raw() []byte {
	return e.raw
}

const opEnd = 0x0b

func (e ConstExpr) encode(buf *bytes.Buffer) {
	buf.Write(e.raw)
	buf.WriteByte(opEnd)
}

func heapTypeByte(k HeapKind) byte {
	switch k {
	case HeapFunc:
		return 0x70
	case HeapExtern:
		return 0x6f
	case HeapAny:
		return 0x6e
	case HeapNone:
		return 0x71
	case HeapNoExtern:
		return 0x72
	case HeapNoFunc:
		return 0x73
	case HeapEq:
		return 0x6d
	case HeapStruct:
		return 0x6b
	case HeapArray:
		return 0x6a
	case HeapI31:
		return 0x6c
	}
	return 0
}

func writeHeapType(buf *bytes.Buffer, h HeapType) {
	if h.Kind == HeapIndexed {
		writeU32(buf, h.Index)
		return
	}
	buf.WriteByte(heapTypeByte(h.Kind))
}

func writeRefType(buf *bytes.Buffer, r RefType) {
	if r.Nullable && r.Heap.Kind != HeapIndexed {
		// Single-byte shorthand.
		buf.WriteByte(heapTypeByte(r.Heap.Kind))
		return
	}
	if r.Nullable {
		buf.WriteByte(0x63)
	} else {
		buf.WriteByte(0x64)
	}
	writeHeapType(buf, r.Heap)
}

func writeValType(buf *bytes.Buffer, v ValType) {
	switch v.Kind {
	case ValI32:
		buf.WriteByte(0x7f)
	case ValI64:
		buf.WriteByte(0x7e)
	case ValF32:
		buf.WriteByte(0x7d)
	case ValF64:
		buf.WriteByte(0x7c)
	case ValV128:
		buf.WriteByte(0x7b)
	case ValRef:
		writeRefType(buf, v.Ref)
	}
}

func writeStorageType(buf *bytes.Buffer, s StorageType) {
	switch s.Kind {
	case StorageI8:
		buf.WriteByte(0x78)
	case StorageI16:
		buf.WriteByte(0x77)
	case StorageVal:
		writeValType(buf, s.Val)
	}
}

func writeMutability(buf *bytes.Buffer, mutable bool) {
	if mutable {
		buf.WriteByte(0x01)
	} else {
		buf.WriteByte(0x00)
	}
}

func writeTableType(buf *bytes.Buffer, t TableType) {
	writeRefType(buf, t.ElementType)
	if t.Maximum != nil {
		buf.WriteByte(0x01)
		writeU32(buf, t.Minimum)
		writeU32(buf, *t.Maximum)
	} else {
		buf.WriteByte(0x00)
		writeU32(buf, t.Minimum)
	}
}

func writeMemoryType(buf *bytes.Buffer, m MemoryType) {
	var flags byte
	if m.Maximum != nil {
		flags |= 0x01
	}
	if m.Shared {
		flags |= 0x02
	}
	if m.Memory64 {
		flags |= 0x04
	}
	buf.WriteByte(flags)
	writeLimit := func(v uint64) {
		if m.Memory64 {
			writeU64(buf, v)
		} else {
			writeU32(buf, uint32(v))
		}
	}
	writeLimit(m.Minimum)
	if m.Maximum != nil {
		writeLimit(*m.Maximum)
	}
}

func writeGlobalType(buf *bytes.Buffer, g GlobalType) {
	writeValType(buf, g.ValType)
	writeMutability(buf, g.Mutable)
}

func writeTagType(buf *bytes.Buffer, t TagType) {
	buf.WriteByte(byte(t.Kind))
	writeU32(buf, t.FuncTypeIdx)
}
