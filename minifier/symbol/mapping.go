package symbol

import (
	"fmt"

	"github.com/distmin/distmin/minifier/wasmenc"
	"github.com/distmin/distmin/minifier/wasmparse"
)

// The mapping functions translate reader-side type descriptors into their
// encoder-side equivalents. Every supported input variant maps to its
// counterpart by name; anything else means the module uses a feature the
// rewriter does not support and is a fatal error.

func mapHeapType(h wasmparse.HeapType) (wasmenc.HeapType, error) {
	switch h.Kind {
	case wasmparse.HeapFunc:
		return wasmenc.HeapType{Kind: wasmenc.HeapFunc}, nil
	case wasmparse.HeapExtern:
		return wasmenc.HeapType{Kind: wasmenc.HeapExtern}, nil
	case wasmparse.HeapAny:
		return wasmenc.HeapType{Kind: wasmenc.HeapAny}, nil
	case wasmparse.HeapNone:
		return wasmenc.HeapType{Kind: wasmenc.HeapNone}, nil
	case wasmparse.HeapNoExtern:
		return wasmenc.HeapType{Kind: wasmenc.HeapNoExtern}, nil
	case wasmparse.HeapNoFunc:
		return wasmenc.HeapType{Kind: wasmenc.HeapNoFunc}, nil
	case wasmparse.HeapEq:
		return wasmenc.HeapType{Kind: wasmenc.HeapEq}, nil
	case wasmparse.HeapStruct:
		return wasmenc.HeapType{Kind: wasmenc.HeapStruct}, nil
	case wasmparse.HeapArray:
		return wasmenc.HeapType{Kind: wasmenc.HeapArray}, nil
	case wasmparse.HeapI31:
		return wasmenc.HeapType{Kind: wasmenc.HeapI31}, nil
	case wasmparse.HeapIndexed:
		return wasmenc.HeapType{Kind: wasmenc.HeapIndexed, Index: h.Index}, nil
	default:
		return wasmenc.HeapType{}, fmt.Errorf("%w: heap type %d", wasmparse.ErrUnsupportedType, h.Kind)
	}
}

func mapRefType(r wasmparse.RefType) (wasmenc.RefType, error) {
	heap, err := mapHeapType(r.Heap)
	if err != nil {
		return wasmenc.RefType{}, err
	}
	return wasmenc.RefType{Nullable: r.Nullable, Heap: heap}, nil
}

func mapValType(v wasmparse.ValType) (wasmenc.ValType, error) {
	switch v.Kind {
	case wasmparse.ValI32:
		return wasmenc.ValType{Kind: wasmenc.ValI32}, nil
	case wasmparse.ValI64:
		return wasmenc.ValType{Kind: wasmenc.ValI64}, nil
	case wasmparse.ValF32:
		return wasmenc.ValType{Kind: wasmenc.ValF32}, nil
	case wasmparse.ValF64:
		return wasmenc.ValType{Kind: wasmenc.ValF64}, nil
	case wasmparse.ValV128:
		return wasmenc.ValType{Kind: wasmenc.ValV128}, nil
	case wasmparse.ValRef:
		ref, err := mapRefType(v.Ref)
		if err != nil {
			return wasmenc.ValType{}, err
		}
		return wasmenc.ValType{Kind: wasmenc.ValRef, Ref: ref}, nil
	default:
		return wasmenc.ValType{}, fmt.Errorf("%w: value type %d", wasmparse.ErrUnsupportedType, v.Kind)
	}
}

func mapValTypes(vs []wasmparse.ValType) ([]wasmenc.ValType, error) {
	out := make([]wasmenc.ValType, 0, len(vs))
	for _, v := range vs {
		m, err := mapValType(v)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func mapStorageType(s wasmparse.StorageType) (wasmenc.StorageType, error) {
	switch s.Kind {
	case wasmparse.StorageI8:
		return wasmenc.StorageType{Kind: wasmenc.StorageI8}, nil
	case wasmparse.StorageI16:
		return wasmenc.StorageType{Kind: wasmenc.StorageI16}, nil
	case wasmparse.StorageVal:
		v, err := mapValType(s.Val)
		if err != nil {
			return wasmenc.StorageType{}, err
		}
		return wasmenc.StorageType{Kind: wasmenc.StorageVal, Val: v}, nil
	default:
		return wasmenc.StorageType{}, fmt.Errorf("%w: storage type %d", wasmparse.ErrUnsupportedType, s.Kind)
	}
}

func mapTagKind(k wasmparse.TagKind) (wasmenc.TagKind, error) {
	switch k {
	case wasmparse.TagKindException:
		return wasmenc.TagKindException, nil
	default:
		return 0, fmt.Errorf("%w: tag kind %d", wasmparse.ErrUnsupportedType, k)
	}
}

func mapExternalKind(k wasmparse.ExternalKind) (wasmenc.ExportKind, error) {
	switch k {
	case wasmparse.ExternalFunc:
		return wasmenc.ExportFunc, nil
	case wasmparse.ExternalTable:
		return wasmenc.ExportTable, nil
	case wasmparse.ExternalMemory:
		return wasmenc.ExportMemory, nil
	case wasmparse.ExternalGlobal:
		return wasmenc.ExportGlobal, nil
	case wasmparse.ExternalTag:
		return wasmenc.ExportTag, nil
	default:
		return 0, fmt.Errorf("%w: external kind %d", wasmparse.ErrUnsupportedType, k)
	}
}

func mapTableType(t wasmparse.TableType) (wasmenc.TableType, error) {
	elem, err := mapRefType(t.ElementType)
	if err != nil {
		return wasmenc.TableType{}, err
	}
	return wasmenc.TableType{
		ElementType: elem,
		Minimum:     t.Initial,
		Maximum:     t.Maximum,
	}, nil
}

func mapMemoryType(m wasmparse.MemoryType) wasmenc.MemoryType {
	return wasmenc.MemoryType{
		Minimum:  m.Initial,
		Maximum:  m.Maximum,
		Memory64: m.Memory64,
		Shared:   m.Shared,
	}
}

func mapGlobalType(g wasmparse.GlobalType) (wasmenc.GlobalType, error) {
	vt, err := mapValType(g.ContentType)
	if err != nil {
		return wasmenc.GlobalType{}, err
	}
	return wasmenc.GlobalType{ValType: vt, Mutable: g.Mutable}, nil
}

func mapTagType(t wasmparse.TagType) (wasmenc.TagType, error) {
	kind, err := mapTagKind(t.Kind)
	if err != nil {
		return wasmenc.TagType{}, err
	}
	return wasmenc.TagType{Kind: kind, FuncTypeIdx: t.FuncTypeIdx}, nil
}

// mapConstExpr strips the trailing end opcode; the encoder appends its own
// terminator. The instruction bytes themselves are not inspected.
func mapConstExpr(c wasmparse.ConstExpr) wasmenc.ConstExpr {
	return wasmenc.NewConstExpr(c[:len(c)-1])
}

// mapElementItems fills exactly one of the two caller-supplied scratch
// vectors and returns an Elements view referencing it. The scratch storage
// must outlive the encoder call that consumes the returned value.
func mapElementItems(items wasmparse.ElementItems, functions *[]uint32, constExprs *[]wasmenc.ConstExpr) wasmenc.Elements {
	if items.IsExpressions {
		for _, e := range items.Expressions {
			*constExprs = append(*constExprs, mapConstExpr(e))
		}
		return wasmenc.Elements{Expressions: *constExprs, IsExpressions: true}
	}
	*functions = append(*functions, items.Functions...)
	return wasmenc.Elements{Functions: *functions}
}

// mapElementKind translates an element segment mode. For the active mode the
// mapped offset expression is stored into the caller-supplied slot, which
// must outlive the returned mode.
func mapElementKind(e wasmparse.ElementKind, offset *wasmenc.ConstExpr) (wasmenc.ElementMode, error) {
	switch e.Mode {
	case wasmparse.ElementPassive:
		return wasmenc.ElementMode{Kind: wasmenc.ElementPassive}, nil
	case wasmparse.ElementActive:
		*offset = mapConstExpr(e.Offset)
		return wasmenc.ElementMode{
			Kind:   wasmenc.ElementActive,
			Table:  e.TableIndex,
			Offset: offset,
		}, nil
	case wasmparse.ElementDeclared:
		return wasmenc.ElementMode{Kind: wasmenc.ElementDeclared}, nil
	default:
		return wasmenc.ElementMode{}, fmt.Errorf("%w: element mode %d", wasmparse.ErrUnsupportedType, e.Mode)
	}
}
