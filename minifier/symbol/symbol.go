// Package symbol rewrites the cross-boundary identifiers of a wasm module —
// import module/member names and export names — into short dense ones, and
// patches the paired wasm-bindgen glue JavaScript to match.
package symbol

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/distmin/distmin/minifier/wasmenc"
	"github.com/distmin/distmin/minifier/wasmparse"
)

// ErrIntegrity is returned when the code-section accounting doesn't add up.
var ErrIntegrity = errors.New("code section integrity error")

// identTable is an insertion-ordered original→minified name table. Iteration
// order must be stable so identical inputs produce identical output bytes.
type identTable struct {
	order []string
	m     map[string]string
}

func newIdentTable() *identTable {
	return &identTable{m: make(map[string]string)}
}

func (t *identTable) lookupOrInsert(name string, gen *MinifiedIdent) string {
	if after, ok := t.m[name]; ok {
		return after
	}
	after := gen.Next()
	t.order = append(t.order, name)
	t.m[name] = after
	return after
}

// importModule is the per-module-name entry of the import rewrite table.
type importModule struct {
	after string
	names *identTable
}

// codeAccumulator tracks an open code section. enc is non-nil exactly while
// remaining > 0.
type codeAccumulator struct {
	remaining uint32
	enc       *wasmenc.CodeSection
}

// MinifySymbol streams the wasm module, remapping every import and export
// name through freshly started identifier generators, and applies the
// corresponding textual substitutions to the glue JavaScript. It is pure
// with respect to its inputs.
func MinifySymbol(wasm []byte, js string) ([]byte, string, error) {
	module := wasmenc.NewModule()

	importsOrder := []string{}
	importsMap := map[string]*importModule{}
	exports := newIdentTable()

	var moduleIdent, nameIdent, exportIdent MinifiedIdent

	var code codeAccumulator

	parser := wasmparse.NewParser(wasm)
stream:
	for {
		payload, err := parser.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, "", err
		}

		switch pl := payload.(type) {
		case wasmparse.TypeSection:
			enc := &wasmenc.TypeSection{}
			for _, ty := range pl.Types {
				switch ty.Kind {
				case wasmparse.CompositeFunc:
					params, err := mapValTypes(ty.Func.Params)
					if err != nil {
						return nil, "", err
					}
					results, err := mapValTypes(ty.Func.Results)
					if err != nil {
						return nil, "", err
					}
					enc.Function(params, results)
				case wasmparse.CompositeArray:
					elem, err := mapStorageType(ty.Array.ElementType)
					if err != nil {
						return nil, "", err
					}
					enc.Array(elem, ty.Array.Mutable)
				}
			}
			module.Section(enc)

		case wasmparse.ImportSection:
			enc := &wasmenc.ImportSection{}
			for _, imp := range pl.Imports {
				entry, ok := importsMap[imp.Module]
				if !ok {
					entry = &importModule{after: moduleIdent.Next(), names: newIdentTable()}
					importsOrder = append(importsOrder, imp.Module)
					importsMap[imp.Module] = entry
				}
				name := entry.names.lookupOrInsert(imp.Name, &nameIdent)
				if err := encodeImport(enc, entry.after, name, imp.Type); err != nil {
					return nil, "", err
				}
			}
			module.Section(enc)

		case wasmparse.FunctionSection:
			enc := &wasmenc.FunctionSection{}
			for _, idx := range pl.TypeIndices {
				enc.Function(idx)
			}
			module.Section(enc)

		case wasmparse.TableSection:
			enc := &wasmenc.TableSection{}
			for _, t := range pl.Tables {
				mapped, err := mapTableType(t)
				if err != nil {
					return nil, "", err
				}
				enc.Table(mapped)
			}
			module.Section(enc)

		case wasmparse.MemorySection:
			enc := &wasmenc.MemorySection{}
			for _, m := range pl.Memories {
				enc.Memory(mapMemoryType(m))
			}
			module.Section(enc)

		case wasmparse.TagSection:
			enc := &wasmenc.TagSection{}
			for _, t := range pl.Tags {
				mapped, err := mapTagType(t)
				if err != nil {
					return nil, "", err
				}
				enc.Tag(mapped)
			}
			module.Section(enc)

		case wasmparse.GlobalSection:
			enc := &wasmenc.GlobalSection{}
			for _, g := range pl.Globals {
				ty, err := mapGlobalType(g.Type)
				if err != nil {
					return nil, "", err
				}
				init := mapConstExpr(g.Init)
				enc.Global(ty, &init)
			}
			module.Section(enc)

		case wasmparse.ExportSection:
			enc := &wasmenc.ExportSection{}
			for _, exp := range pl.Exports {
				kind, err := mapExternalKind(exp.Kind)
				if err != nil {
					return nil, "", err
				}
				enc.Export(exports.lookupOrInsert(exp.Name, &exportIdent), kind, exp.Index)
			}
			module.Section(enc)

		case wasmparse.ElementSection:
			enc := &wasmenc.ElementSection{}
			for _, el := range pl.Elements {
				// The scratch storage lives on this iteration's stack so the
				// segment can reference it until it is serialized.
				var (
					offset     wasmenc.ConstExpr
					functions  []uint32
					constExprs []wasmenc.ConstExpr
				)
				mode, err := mapElementKind(el.Kind, &offset)
				if err != nil {
					return nil, "", err
				}
				elemType, err := mapRefType(el.Type)
				if err != nil {
					return nil, "", err
				}
				enc.Segment(wasmenc.ElementSegment{
					Mode:        mode,
					ElementType: elemType,
					Elements:    mapElementItems(el.Items, &functions, &constExprs),
				})
			}
			module.Section(enc)

		case wasmparse.DataSection:
			enc := &wasmenc.DataSection{}
			for _, seg := range pl.Data {
				switch seg.Kind.Mode {
				case wasmparse.DataPassive:
					enc.Passive(seg.Data)
				case wasmparse.DataActive:
					offset := mapConstExpr(seg.Kind.Offset)
					enc.Active(seg.Kind.MemoryIndex, &offset, seg.Data)
				}
			}
			module.Section(enc)

		case wasmparse.CustomSection:
			// Custom sections are not semantically linked to import/export
			// name strings (the "name" section refers to them by index), so
			// they pass through verbatim.
			module.Section(wasmenc.CustomSection{Name: pl.Name, Data: pl.Data})

		case wasmparse.CodeSectionStart:
			if code.enc != nil {
				return nil, "", fmt.Errorf("%w: code section started twice", ErrIntegrity)
			}
			if pl.Count == 0 {
				module.Section(&wasmenc.CodeSection{})
				continue
			}
			code.remaining = pl.Count
			code.enc = &wasmenc.CodeSection{}

		case wasmparse.CodeSectionEntry:
			if code.enc == nil {
				return nil, "", fmt.Errorf("%w: code entry outside a code section", ErrIntegrity)
			}
			code.enc.RawFunction(pl.Body)
			code.remaining--
			if code.remaining == 0 {
				module.Section(code.enc)
				code.enc = nil
			}

		case wasmparse.Version:
			// implied by the encoder

		case wasmparse.End:
			break stream

		default:
			return nil, "", fmt.Errorf("%w: payload %T", wasmparse.ErrUnsupportedSection, payload)
		}
	}

	if code.enc != nil || code.remaining != 0 {
		return nil, "", fmt.Errorf("%w: truncated code section", ErrIntegrity)
	}

	newJS := patchGlueJS(js, importsOrder, importsMap, exports)
	return module.Finish(), newJS, nil
}

func encodeImport(enc *wasmenc.ImportSection, module, name string, ty wasmparse.TypeRef) error {
	switch ty.Kind {
	case wasmparse.ExternalFunc:
		enc.Func(module, name, ty.FuncTypeIdx)
	case wasmparse.ExternalTable:
		t, err := mapTableType(ty.Table)
		if err != nil {
			return err
		}
		enc.Table(module, name, t)
	case wasmparse.ExternalMemory:
		enc.Memory(module, name, mapMemoryType(ty.Memory))
	case wasmparse.ExternalGlobal:
		g, err := mapGlobalType(ty.Global)
		if err != nil {
			return err
		}
		enc.Global(module, name, g)
	case wasmparse.ExternalTag:
		t, err := mapTagType(ty.Tag)
		if err != nil {
			return err
		}
		enc.Tag(module, name, t)
	default:
		return fmt.Errorf("%w: import kind %d", wasmparse.ErrUnsupportedType, ty.Kind)
	}
	return nil
}

// patchGlueJS applies the textual substitutions matching the rewrite the
// module just went through. Module-level assignment lines are rewritten
// before member accesses because the member patterns embed the module name.
// This is a substring rewrite and depends on the exact glue shape emitted by
// wasm-bindgen: `imports.<mod> = {};`, `imports.<mod>.<member>` and
// `wasm.<export>`.
func patchGlueJS(js string, importsOrder []string, importsMap map[string]*importModule, exports *identTable) string {
	for _, modBefore := range importsOrder {
		entry := importsMap[modBefore]
		js = strings.ReplaceAll(js,
			fmt.Sprintf("imports.%s = {};", modBefore),
			fmt.Sprintf("imports.%s = {};", entry.after),
		)
		for _, nameBefore := range entry.names.order {
			js = strings.ReplaceAll(js,
				fmt.Sprintf("imports.%s.%s", modBefore, nameBefore),
				fmt.Sprintf("imports.%s.%s", entry.after, entry.names.m[nameBefore]),
			)
		}
	}
	for _, expBefore := range exports.order {
		js = strings.ReplaceAll(js,
			fmt.Sprintf("wasm.%s", expBefore),
			fmt.Sprintf("wasm.%s", exports.m[expBefore]),
		)
	}
	return js
}
