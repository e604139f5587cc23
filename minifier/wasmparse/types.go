package wasmparse

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

// TagKind is the kind of a tag. Exceptions are the only kind defined.
type TagKind uint8

// Tag kinds.
const (
	TagKindException TagKind = iota
)

// ExternalKind classifies imports and exports.
type ExternalKind uint8

// External kinds, in their binary encoding order.
const (
	ExternalFunc ExternalKind = iota
	ExternalTable
	ExternalMemory
	ExternalGlobal
	ExternalTag
)

// TableType describes a table: its element type and limits.
type TableType struct {
	ElementType RefType
	Initial     uint32
	Maximum     *uint32
}

// MemoryType describes a linear memory.
type MemoryType struct {
	Initial  uint64
	Maximum  *uint64
	Memory64 bool
	Shared   bool
}

// GlobalType describes a global: its content type and mutability.
type GlobalType struct {
	ContentType ValType
	Mutable     bool
}

// TagType describes a tag: its kind and function type index.
type TagType struct {
	Kind        TagKind
	FuncTypeIdx uint32
}

// TypeRef is the type of an import entry. Exactly the field selected by Kind
// is meaningful.
type TypeRef struct {
	Kind        ExternalKind
	FuncTypeIdx uint32
	Table       TableType
	Memory      MemoryType
	Global      GlobalType
	Tag         TagType
}

// Import is one import-section entry.
type Import struct {
	Module string
	Name   string
	Type   TypeRef
}

// Export is one export-section entry.
type Export struct {
	Name  string
	Kind  ExternalKind
	Index uint32
}

// ConstExpr is the raw byte sequence of a constant expression, including the
// trailing end opcode.
type ConstExpr []byte

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// ArrayType is a GC array type.
type ArrayType struct {
	ElementType StorageType
	Mutable     bool
}

// CompositeKind selects the variant of a type-section entry.
type CompositeKind uint8

// Composite type kinds.
const (
	CompositeFunc CompositeKind = iota
	CompositeArray
)

// CompositeType is one type-section entry: a function signature or an array
// type.
type CompositeType struct {
	Kind  CompositeKind
	Func  FuncType
	Array ArrayType
}

// Global is one global-section entry.
type Global struct {
	Type GlobalType
	Init ConstExpr
}

// ElementModeKind selects the mode of an element segment.
type ElementModeKind uint8

// Element segment modes.
const (
	ElementPassive ElementModeKind = iota
	ElementActive
	ElementDeclared
)

// ElementKind is the mode of an element segment. TableIndex and Offset are
// only meaningful for ElementActive.
type ElementKind struct {
	Mode       ElementModeKind
	TableIndex uint32
	Offset     ConstExpr
}

// ElementItems holds the items of an element segment: either a function
// index list or an expression list, never both.
type ElementItems struct {
	IsExpressions bool
	Functions     []uint32
	Expressions   []ConstExpr
}

// Element is one element-section entry.
type Element struct {
	Kind  ElementKind
	Type  RefType
	Items ElementItems
}

// DataModeKind selects the mode of a data segment.
type DataModeKind uint8

// Data segment modes.
const (
	DataPassive DataModeKind = iota
	DataActive
)

// DataKind is the mode of a data segment. MemoryIndex and Offset are only
// meaningful for DataActive.
type DataKind struct {
	Mode        DataModeKind
	MemoryIndex uint32
	Offset      ConstExpr
}

// DataSegment is one data-section entry.
type DataSegment struct {
	Kind DataKind
	Data []byte
}
