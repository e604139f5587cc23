package wasmparse

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Payload is one element of the section stream produced by Parser. The
// concrete types mirror the section families of the binary format, plus the
// Version header and the terminal End marker.
type Payload interface {
	payload()
}

// Version is the module header payload, produced exactly once, first.
type Version struct{}

// TypeSection carries the decoded type-section entries.
type TypeSection struct{ Types []CompositeType }

// ImportSection carries the decoded import-section entries.
type ImportSection struct{ Imports []Import }

// FunctionSection carries the function-section type indices.
type FunctionSection struct{ TypeIndices []uint32 }

// TableSection carries the decoded table types.
type TableSection struct{ Tables []TableType }

// MemorySection carries the decoded memory types.
type MemorySection struct{ Memories []MemoryType }

// TagSection carries the decoded tag types.
type TagSection struct{ Tags []TagType }

// GlobalSection carries the decoded globals.
type GlobalSection struct{ Globals []Global }

// ExportSection carries the decoded export-section entries.
type ExportSection struct{ Exports []Export }

// ElementSection carries the decoded element segments.
type ElementSection struct{ Elements []Element }

// DataSection carries the decoded data segments.
type DataSection struct{ Data []DataSegment }

// CustomSection carries an opaque custom section.
type CustomSection struct {
	Name string
	Data []byte
}

// CodeSectionStart announces a code section holding Count entries.
type CodeSectionStart struct{ Count uint32 }

// CodeSectionEntry carries the raw body bytes of one code entry, locals
// included, bit-exact.
type CodeSectionEntry struct{ Body []byte }

// End marks the end of the module stream.
type End struct{}

func (Version) payload()          {}
func (TypeSection) payload()      {}
func (ImportSection) payload()    {}
func (FunctionSection) payload()  {}
func (TableSection) payload()     {}
func (MemorySection) payload()    {}
func (TagSection) payload()       {}
func (GlobalSection) payload()    {}
func (ExportSection) payload()    {}
func (ElementSection) payload()   {}
func (DataSection) payload()      {}
func (CustomSection) payload()    {}
func (CodeSectionStart) payload() {}
func (CodeSectionEntry) payload() {}
func (End) payload()              {}

// Parser streams a module as Payload values. Call Next until it returns End;
// a call after End returns io.EOF.
type Parser struct {
	r *reader

	versionDone bool
	ended       bool

	codeRemaining uint32
	codeEnd       int
}

// NewParser returns a Parser over the given module bytes.
func NewParser(wasm []byte) *Parser {
	return &Parser{r: &reader{b: wasm}}
}

const wasmVersion = 1

var wasmMagic = [4]byte{0x00, 0x61, 0x73, 0x6d}

// Next produces the next payload in stream order.
func (p *Parser) Next() (Payload, error) {
	if p.ended {
		return nil, io.EOF
	}

	if !p.versionDone {
		if err := p.readHeader(); err != nil {
			return nil, err
		}
		p.versionDone = true
		return Version{}, nil
	}

	if p.codeRemaining > 0 {
		if p.r.pos >= p.codeEnd {
			return nil, fmt.Errorf("%w: truncated code section, %d entries missing", ErrIntegrity, p.codeRemaining)
		}
		body, err := p.readCodeEntry()
		if err != nil {
			return nil, err
		}
		p.codeRemaining--
		if p.codeRemaining == 0 && p.r.pos != p.codeEnd {
			return nil, fmt.Errorf("%w: code section size mismatch at offset %d", ErrIntegrity, p.r.pos)
		}
		return CodeSectionEntry{Body: body}, nil
	}

	if p.r.len() == 0 {
		p.ended = true
		return End{}, nil
	}

	return p.readSection()
}

func (p *Parser) readHeader() error {
	raw, err := p.r.readBytes(8)
	if err != nil {
		return err
	}
	if [4]byte(raw[:4]) != wasmMagic {
		return fmt.Errorf("%w: bad magic", ErrParse)
	}
	if v := binary.LittleEndian.Uint32(raw[4:8]); v != wasmVersion {
		return fmt.Errorf("%w: version %d", ErrParse, v)
	}
	return nil
}

func (p *Parser) readSection() (Payload, error) {
	id, err := p.r.readByte()
	if err != nil {
		return nil, err
	}
	size, err := p.r.readU32()
	if err != nil {
		return nil, err
	}
	if int(size) > p.r.len() {
		return nil, fmt.Errorf("%w: section %d exceeds module size", ErrParse, id)
	}
	end := p.r.pos + int(size)

	var payload Payload
	switch id {
	case sectionIDCustom:
		payload, err = p.readCustomSection(end)
	case sectionIDType:
		payload, err = p.readTypeSection()
	case sectionIDImport:
		payload, err = p.readImportSection()
	case sectionIDFunction:
		payload, err = p.readFunctionSection()
	case sectionIDTable:
		payload, err = p.readTableSection()
	case sectionIDMemory:
		payload, err = p.readMemorySection()
	case sectionIDGlobal:
		payload, err = p.readGlobalSection()
	case sectionIDExport:
		payload, err = p.readExportSection()
	case sectionIDElement:
		payload, err = p.readElementSection()
	case sectionIDData:
		payload, err = p.readDataSection()
	case sectionIDTag:
		payload, err = p.readTagSection()
	case sectionIDCode:
		count, cerr := p.r.readU32()
		if cerr != nil {
			return nil, cerr
		}
		p.codeRemaining = count
		p.codeEnd = end
		if count == 0 && p.r.pos != end {
			return nil, fmt.Errorf("%w: empty code section with trailing bytes", ErrIntegrity)
		}
		return CodeSectionStart{Count: count}, nil
	case sectionIDStart, sectionIDDataCount:
		return nil, fmt.Errorf("%w: section id %d", ErrUnsupportedSection, id)
	default:
		return nil, fmt.Errorf("%w: section id %d", ErrUnsupportedSection, id)
	}
	if err != nil {
		return nil, err
	}
	if p.r.pos != end {
		return nil, fmt.Errorf("%w: section %d size mismatch: ends at %d, expected %d", ErrParse, id, p.r.pos, end)
	}
	return payload, nil
}

func (p *Parser) readCodeEntry() ([]byte, error) {
	size, err := p.r.readU32()
	if err != nil {
		return nil, err
	}
	if p.r.pos+int(size) > p.codeEnd {
		return nil, fmt.Errorf("%w: code entry exceeds code section", ErrIntegrity)
	}
	return p.r.readBytes(int(size))
}

func (p *Parser) readCustomSection(end int) (Payload, error) {
	name, err := p.r.readName()
	if err != nil {
		return nil, err
	}
	if p.r.pos > end {
		return nil, fmt.Errorf("%w: custom section name exceeds section", ErrParse)
	}
	data, err := p.r.readBytes(end - p.r.pos)
	if err != nil {
		return nil, err
	}
	return CustomSection{Name: name, Data: data}, nil
}

func (p *Parser) readTypeSection() (Payload, error) {
	count, err := p.r.readU32()
	if err != nil {
		return nil, err
	}
	types := make([]CompositeType, 0, count)
	for i := uint32(0); i < count; i++ {
		form, err := p.r.readByte()
		if err != nil {
			return nil, err
		}
		switch form {
		case 0x60: // func
			params, err := p.readValTypeVec()
			if err != nil {
				return nil, err
			}
			results, err := p.readValTypeVec()
			if err != nil {
				return nil, err
			}
			types = append(types, CompositeType{Kind: CompositeFunc, Func: FuncType{Params: params, Results: results}})
		case 0x5e: // array
			field, err := p.readStorageType()
			if err != nil {
				return nil, err
			}
			mut, err := p.readMutability()
			if err != nil {
				return nil, err
			}
			types = append(types, CompositeType{Kind: CompositeArray, Array: ArrayType{ElementType: field, Mutable: mut}})
		default:
			return nil, fmt.Errorf("%w: type form 0x%02x", ErrUnsupportedType, form)
		}
	}
	return TypeSection{Types: types}, nil
}

func (p *Parser) readImportSection() (Payload, error) {
	count, err := p.r.readU32()
	if err != nil {
		return nil, err
	}
	imports := make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		module, err := p.r.readName()
		if err != nil {
			return nil, err
		}
		name, err := p.r.readName()
		if err != nil {
			return nil, err
		}
		ty, err := p.readTypeRef()
		if err != nil {
			return nil, err
		}
		imports = append(imports, Import{Module: module, Name: name, Type: ty})
	}
	return ImportSection{Imports: imports}, nil
}

func (p *Parser) readTypeRef() (TypeRef, error) {
	kind, err := p.r.readByte()
	if err != nil {
		return TypeRef{}, err
	}
	switch ExternalKind(kind) {
	case ExternalFunc:
		idx, err := p.r.readU32()
		return TypeRef{Kind: ExternalFunc, FuncTypeIdx: idx}, err
	case ExternalTable:
		t, err := p.readTableType()
		return TypeRef{Kind: ExternalTable, Table: t}, err
	case ExternalMemory:
		m, err := p.readMemoryType()
		return TypeRef{Kind: ExternalMemory, Memory: m}, err
	case ExternalGlobal:
		g, err := p.readGlobalType()
		return TypeRef{Kind: ExternalGlobal, Global: g}, err
	case ExternalTag:
		t, err := p.readTagType()
		return TypeRef{Kind: ExternalTag, Tag: t}, err
	default:
		return TypeRef{}, fmt.Errorf("%w: import kind 0x%02x", ErrUnsupportedType, kind)
	}
}

func (p *Parser) readFunctionSection() (Payload, error) {
	count, err := p.r.readU32()
	if err != nil {
		return nil, err
	}
	indices := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		idx, err := p.r.readU32()
		if err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	return FunctionSection{TypeIndices: indices}, nil
}

func (p *Parser) readTableSection() (Payload, error) {
	count, err := p.r.readU32()
	if err != nil {
		return nil, err
	}
	tables := make([]TableType, 0, count)
	for i := uint32(0); i < count; i++ {
		t, err := p.readTableType()
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return TableSection{Tables: tables}, nil
}

func (p *Parser) readMemorySection() (Payload, error) {
	count, err := p.r.readU32()
	if err != nil {
		return nil, err
	}
	memories := make([]MemoryType, 0, count)
	for i := uint32(0); i < count; i++ {
		m, err := p.readMemoryType()
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return MemorySection{Memories: memories}, nil
}

func (p *Parser) readTagSection() (Payload, error) {
	count, err := p.r.readU32()
	if err != nil {
		return nil, err
	}
	tags := make([]TagType, 0, count)
	for i := uint32(0); i < count; i++ {
		t, err := p.readTagType()
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return TagSection{Tags: tags}, nil
}

func (p *Parser) readGlobalSection() (Payload, error) {
	count, err := p.r.readU32()
	if err != nil {
		return nil, err
	}
	globals := make([]Global, 0, count)
	for i := uint32(0); i < count; i++ {
		ty, err := p.readGlobalType()
		if err != nil {
			return nil, err
		}
		init, err := p.readConstExpr()
		if err != nil {
			return nil, err
		}
		globals = append(globals, Global{Type: ty, Init: init})
	}
	return GlobalSection{Globals: globals}, nil
}

func (p *Parser) readExportSection() (Payload, error) {
	count, err := p.r.readU32()
	if err != nil {
		return nil, err
	}
	exports := make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := p.r.readName()
		if err != nil {
			return nil, err
		}
		kind, err := p.r.readByte()
		if err != nil {
			return nil, err
		}
		if ExternalKind(kind) > ExternalTag {
			return nil, fmt.Errorf("%w: export kind 0x%02x", ErrUnsupportedType, kind)
		}
		idx, err := p.r.readU32()
		if err != nil {
			return nil, err
		}
		exports = append(exports, Export{Name: name, Kind: ExternalKind(kind), Index: idx})
	}
	return ExportSection{Exports: exports}, nil
}

var funcRef = RefType{Nullable: true, Heap: HeapType{Kind: HeapFunc}}

func (p *Parser) readElementSection() (Payload, error) {
	count, err := p.r.readU32()
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, count)
	for i := uint32(0); i < count; i++ {
		el, err := p.readElement()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	return ElementSection{Elements: elements}, nil
}

// readElement decodes one element segment following the eight flag-selected
// encodings of the binary format.
func (p *Parser) readElement() (Element, error) {
	flags, err := p.r.readU32()
	if err != nil {
		return Element{}, err
	}
	if flags > 7 {
		return Element{}, fmt.Errorf("%w: element segment flags %d", ErrParse, flags)
	}

	el := Element{Type: funcRef}

	active := flags&0x01 == 0
	declared := !active && flags&0x02 != 0
	explicitIndex := flags&0x02 != 0
	expressions := flags&0x04 != 0

	switch {
	case active:
		el.Kind.Mode = ElementActive
		if explicitIndex {
			if el.Kind.TableIndex, err = p.r.readU32(); err != nil {
				return Element{}, err
			}
		}
		if el.Kind.Offset, err = p.readConstExpr(); err != nil {
			return Element{}, err
		}
	case declared:
		el.Kind.Mode = ElementDeclared
	default:
		el.Kind.Mode = ElementPassive
	}

	// Flag 0 and 4 imply funcref with no explicit type in the encoding; the
	// others carry an element kind byte (for function lists) or a reftype
	// (for expression lists).
	if flags != 0 && flags != 4 {
		if expressions {
			if el.Type, err = p.readRefType(); err != nil {
				return Element{}, err
			}
		} else {
			elemKind, err := p.r.readByte()
			if err != nil {
				return Element{}, err
			}
			if elemKind != 0x00 {
				return Element{}, fmt.Errorf("%w: element kind 0x%02x", ErrUnsupportedType, elemKind)
			}
		}
	}

	n, err := p.r.readU32()
	if err != nil {
		return Element{}, err
	}
	if expressions {
		el.Items.IsExpressions = true
		el.Items.Expressions = make([]ConstExpr, 0, n)
		for j := uint32(0); j < n; j++ {
			e, err := p.readConstExpr()
			if err != nil {
				return Element{}, err
			}
			el.Items.Expressions = append(el.Items.Expressions, e)
		}
	} else {
		el.Items.Functions = make([]uint32, 0, n)
		for j := uint32(0); j < n; j++ {
			idx, err := p.r.readU32()
			if err != nil {
				return Element{}, err
			}
			el.Items.Functions = append(el.Items.Functions, idx)
		}
	}
	return el, nil
}

func (p *Parser) readDataSection() (Payload, error) {
	count, err := p.r.readU32()
	if err != nil {
		return nil, err
	}
	segments := make([]DataSegment, 0, count)
	for i := uint32(0); i < count; i++ {
		flags, err := p.r.readU32()
		if err != nil {
			return nil, err
		}
		var seg DataSegment
		switch flags {
		case 0, 2:
			seg.Kind.Mode = DataActive
			if flags == 2 {
				if seg.Kind.MemoryIndex, err = p.r.readU32(); err != nil {
					return nil, err
				}
			}
			if seg.Kind.Offset, err = p.readConstExpr(); err != nil {
				return nil, err
			}
		case 1:
			seg.Kind.Mode = DataPassive
		default:
			return nil, fmt.Errorf("%w: data segment flags %d", ErrParse, flags)
		}
		n, err := p.r.readU32()
		if err != nil {
			return nil, err
		}
		if seg.Data, err = p.r.readBytes(int(n)); err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return DataSection{Data: segments}, nil
}

func (p *Parser) readValTypeVec() ([]ValType, error) {
	count, err := p.r.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]ValType, 0, count)
	for i := uint32(0); i < count; i++ {
		vt, err := p.readValType()
		if err != nil {
			return nil, err
		}
		out = append(out, vt)
	}
	return out, nil
}

// absHeapType maps the single-byte abstract heap type encodings.
func absHeapType(b byte) (HeapKind, bool) {
	switch b {
	case 0x70:
		return HeapFunc, true
	case 0x6f:
		return HeapExtern, true
	case 0x6e:
		return HeapAny, true
	case 0x71:
		return HeapNone, true
	case 0x72:
		return HeapNoExtern, true
	case 0x73:
		return HeapNoFunc, true
	case 0x6d:
		return HeapEq, true
	case 0x6b:
		return HeapStruct, true
	case 0x6a:
		return HeapArray, true
	case 0x6c:
		return HeapI31, true
	}
	return 0, false
}

func (p *Parser) readValType() (ValType, error) {
	b, err := p.r.peekByte()
	if err != nil {
		return ValType{}, err
	}
	switch b {
	case 0x7f:
		_, _ = p.r.readByte()
		return ValType{Kind: ValI32}, nil
	case 0x7e:
		_, _ = p.r.readByte()
		return ValType{Kind: ValI64}, nil
	case 0x7d:
		_, _ = p.r.readByte()
		return ValType{Kind: ValF32}, nil
	case 0x7c:
		_, _ = p.r.readByte()
		return ValType{Kind: ValF64}, nil
	case 0x7b:
		_, _ = p.r.readByte()
		return ValType{Kind: ValV128}, nil
	}
	ref, err := p.readRefType()
	if err != nil {
		return ValType{}, err
	}
	return ValType{Kind: ValRef, Ref: ref}, nil
}

func (p *Parser) readRefType() (RefType, error) {
	b, err := p.r.readByte()
	if err != nil {
		return RefType{}, err
	}
	if kind, ok := absHeapType(b); ok {
		// Single-byte shorthand: a nullable reference to the abstract type.
		return RefType{Nullable: true, Heap: HeapType{Kind: kind}}, nil
	}
	switch b {
	case 0x63: // (ref null ht)
		heap, err := p.readHeapType()
		return RefType{Nullable: true, Heap: heap}, err
	case 0x64: // (ref ht)
		heap, err := p.readHeapType()
		return RefType{Nullable: false, Heap: heap}, err
	default:
		return RefType{}, fmt.Errorf("%w: reference type 0x%02x", ErrUnsupportedType, b)
	}
}

func (p *Parser) readHeapType() (HeapType, error) {
	b, err := p.r.peekByte()
	if err != nil {
		return HeapType{}, err
	}
	if kind, ok := absHeapType(b); ok {
		_, _ = p.r.readByte()
		return HeapType{Kind: kind}, nil
	}
	idx, err := p.r.readU32()
	if err != nil {
		return HeapType{}, err
	}
	return HeapType{Kind: HeapIndexed, Index: idx}, nil
}

func (p *Parser) readStorageType() (StorageType, error) {
	b, err := p.r.peekByte()
	if err != nil {
		return StorageType{}, err
	}
	switch b {
	case 0x78:
		_, _ = p.r.readByte()
		return StorageType{Kind: StorageI8}, nil
	case 0x77:
		_, _ = p.r.readByte()
		return StorageType{Kind: StorageI16}, nil
	}
	vt, err := p.readValType()
	if err != nil {
		return StorageType{}, err
	}
	return StorageType{Kind: StorageVal, Val: vt}, nil
}

func (p *Parser) readTableType() (TableType, error) {
	elem, err := p.readRefType()
	if err != nil {
		return TableType{}, err
	}
	flags, err := p.r.readByte()
	if err != nil {
		return TableType{}, err
	}
	if flags > 0x01 {
		return TableType{}, fmt.Errorf("%w: table limits flags 0x%02x", ErrParse, flags)
	}
	initial, err := p.r.readU32()
	if err != nil {
		return TableType{}, err
	}
	t := TableType{ElementType: elem, Initial: initial}
	if flags&0x01 != 0 {
		max, err := p.r.readU32()
		if err != nil {
			return TableType{}, err
		}
		t.Maximum = &max
	}
	return t, nil
}

func (p *Parser) readMemoryType() (MemoryType, error) {
	flags, err := p.r.readByte()
	if err != nil {
		return MemoryType{}, err
	}
	if flags > 0x07 {
		return MemoryType{}, fmt.Errorf("%w: memory limits flags 0x%02x", ErrParse, flags)
	}
	m := MemoryType{
		Shared:   flags&0x02 != 0,
		Memory64: flags&0x04 != 0,
	}
	readLimit := func() (uint64, error) {
		if m.Memory64 {
			return p.r.readU64()
		}
		v, err := p.r.readU32()
		return uint64(v), err
	}
	if m.Initial, err = readLimit(); err != nil {
		return MemoryType{}, err
	}
	if flags&0x01 != 0 {
		max, err := readLimit()
		if err != nil {
			return MemoryType{}, err
		}
		m.Maximum = &max
	}
	return m, nil
}

func (p *Parser) readGlobalType() (GlobalType, error) {
	vt, err := p.readValType()
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := p.readMutability()
	if err != nil {
		return GlobalType{}, err
	}
	return GlobalType{ContentType: vt, Mutable: mut}, nil
}

func (p *Parser) readMutability() (bool, error) {
	b, err := p.r.readByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, fmt.Errorf("%w: mutability 0x%02x", ErrParse, b)
	}
}

func (p *Parser) readTagType() (TagType, error) {
	attr, err := p.r.readByte()
	if err != nil {
		return TagType{}, err
	}
	if attr != 0x00 {
		return TagType{}, fmt.Errorf("%w: tag attribute 0x%02x", ErrUnsupportedType, attr)
	}
	idx, err := p.r.readU32()
	if err != nil {
		return TagType{}, err
	}
	return TagType{Kind: TagKindException, FuncTypeIdx: idx}, nil
}

// Constant expression opcodes.
const (
	opEnd       = 0x0b
	opGlobalGet = 0x23
	opI32Const  = 0x41
	opI64Const  = 0x42
	opF32Const  = 0x43
	opF64Const  = 0x44
	opI32Add    = 0x6a
	opI32Sub    = 0x6b
	opI32Mul    = 0x6c
	opI64Add    = 0x7c
	opI64Sub    = 0x7d
	opI64Mul    = 0x7e
	opRefNull   = 0xd0
	opRefFunc   = 0xd2
)

// readConstExpr delimits one constant expression and returns its raw bytes,
// including the trailing end opcode. Only the opcodes valid in constant
// expressions are recognized; immediates are skipped, not interpreted.
func (p *Parser) readConstExpr() (ConstExpr, error) {
	start := p.r.pos
	for {
		op, err := p.r.readByte()
		if err != nil {
			return nil, err
		}
		switch op {
		case opEnd:
			return ConstExpr(p.r.b[start:p.r.pos]), nil
		case opI32Const, opI64Const, opGlobalGet, opRefFunc:
			if err := p.r.skipLEB(); err != nil {
				return nil, err
			}
		case opF32Const:
			if _, err := p.r.readBytes(4); err != nil {
				return nil, err
			}
		case opF64Const:
			if _, err := p.r.readBytes(8); err != nil {
				return nil, err
			}
		case opRefNull:
			if _, err := p.readHeapType(); err != nil {
				return nil, err
			}
		case opI32Add, opI32Sub, opI32Mul, opI64Add, opI64Sub, opI64Mul:
			// extended-const arithmetic, no immediates
		default:
			return nil, fmt.Errorf("%w: opcode 0x%02x in constant expression", ErrParse, op)
		}
	}
}
