package abi

import (
	"fmt"
)

// Kind is the foreign type of a layout field.
type Kind uint8

const (
	KindU8 Kind = iota
	KindBool
	KindI32
	KindU32
	KindF32
	KindPtr
	KindBytes
)

// FieldSpec declares one field of a layout.
type FieldSpec struct {
	Name  string
	Kind  Kind
	Count uint32
}

// U8 declares an unsigned byte field.
func U8(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindU8} }

// Bool declares a one-byte boolean field.
func Bool(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindBool} }

// I32 declares a signed 32-bit field.
func I32(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindI32} }

// U32 declares an unsigned 32-bit field.
func U32(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindU32} }

// F32 declares a float field.
func F32(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindF32} }

// Ptr declares a pointer-sized field.
func Ptr(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindPtr} }

// Bytes declares an inline byte array of n bytes.
func Bytes(name string, n uint32) FieldSpec { return FieldSpec{Name: name, Kind: KindBytes, Count: n} }

// Words declares an inline array of n pointer-sized words.
func Words(name string, n uint32) FieldSpec {
	return FieldSpec{Name: name, Kind: KindBytes, Count: n * WordSize}
}

func (s FieldSpec) sizeAlign() (uint32, uint32) {
	switch s.Kind {
	case KindU8, KindBool:
		return 1, 1
	case KindBytes:
		if s.Count%WordSize == 0 {
			return s.Count, WordSize
		}
		return s.Count, 1
	default:
		return 4, 4
	}
}

// Field is a placed field.
type Field struct {
	Name   string
	Offset uint32
	Size   uint32
	Kind   Kind
}

// Layout describes the bytes behind a foreign object pointer. When the
// layout has a table, its first word is the table pointer.
type Layout struct {
	table  *Table
	base   *Layout
	byName map[string]int
	compat map[*Layout]struct{}
	name   string
	fields []Field
	size   uint32
	align  uint32
}

// NewLayout declares a root layout. table may be nil for plain data.
func NewLayout(name string, table *Table, fields ...FieldSpec) *Layout {
	l := &Layout{
		name:   name,
		table:  table,
		byName: make(map[string]int, len(fields)),
		compat: make(map[*Layout]struct{}, 1),
		align:  1,
	}
	if table != nil {
		l.size = WordSize
		l.align = WordSize
	}
	l.compat[l] = struct{}{}
	l.place(fields)
	return l
}

// Derive declares a layout whose leading bytes are exactly l's, followed by
// fields. table must extend l's table; nil keeps l's table. Declaring the
// edge is an unchecked assertion about the foreign declaration.
func (l *Layout) Derive(name string, table *Table, fields ...FieldSpec) *Layout {
	if table == nil {
		table = l.table
	}
	if (table == nil) != (l.table == nil) {
		panic(fmt.Sprintf("abi: layout %s and base %s disagree on having a table", name, l.name))
	}
	if table != nil && !table.Extends(l.table) {
		panic(fmt.Sprintf("abi: table %s of %s does not extend %s", table.name, name, l.table.name))
	}

	d := &Layout{
		name:   name,
		table:  table,
		base:   l,
		fields: append([]Field(nil), l.fields...),
		byName: make(map[string]int, len(l.fields)+len(fields)),
		compat: make(map[*Layout]struct{}, len(l.compat)+1),
		size:   alignTo(l.size, l.align),
		align:  l.align,
	}
	for k, v := range l.byName {
		d.byName[k] = v
	}
	for k := range l.compat {
		d.compat[k] = struct{}{}
	}
	d.compat[d] = struct{}{}
	d.place(fields)
	return d
}

// Wrap declares a transparent wrapper: same bytes, same table, new name.
// The wrapper is compatible with of and with everything of is compatible
// with; the reverse does not hold.
func Wrap(name string, of *Layout) *Layout {
	w := &Layout{
		name:   name,
		table:  of.table,
		base:   of,
		fields: of.fields,
		byName: of.byName,
		compat: make(map[*Layout]struct{}, len(of.compat)+1),
		size:   of.size,
		align:  of.align,
	}
	for k := range of.compat {
		w.compat[k] = struct{}{}
	}
	w.compat[w] = struct{}{}
	return w
}

func (l *Layout) place(fields []FieldSpec) {
	for _, spec := range fields {
		if _, dup := l.byName[spec.Name]; dup {
			panic(fmt.Sprintf("abi: layout %s declares field %q twice", l.name, spec.Name))
		}
		size, align := spec.sizeAlign()
		off := alignTo(l.size, align)
		l.byName[spec.Name] = len(l.fields)
		l.fields = append(l.fields, Field{Name: spec.Name, Offset: off, Size: size, Kind: spec.Kind})
		l.size = off + size
		if align > l.align {
			l.align = align
		}
	}
	l.size = alignTo(l.size, l.align)
}

// CompatibleWith reports whether a pointer to l may be used as a pointer
// to target. It is reflexive and transitive along declared edges.
func (l *Layout) CompatibleWith(target *Layout) bool {
	_, ok := l.compat[target]
	return ok
}

// Field returns the named field. Asking for an undeclared field is a
// construction error and panics.
func (l *Layout) Field(name string) Field {
	i, ok := l.byName[name]
	if !ok {
		panic(fmt.Sprintf("abi: layout %s has no field %q", l.name, name))
	}
	return l.fields[i]
}

// HasField reports whether name is declared on l or a base.
func (l *Layout) HasField(name string) bool {
	_, ok := l.byName[name]
	return ok
}

// Fields returns the placed fields in offset order.
func (l *Layout) Fields() []Field { return append([]Field(nil), l.fields...) }

// Name returns the layout's declared name.
func (l *Layout) Name() string { return l.name }

// Table returns the layout's dispatch table descriptor, or nil.
func (l *Layout) Table() *Table { return l.table }

// Base returns the layout l was derived from or wraps, or nil.
func (l *Layout) Base() *Layout { return l.base }

// Size returns the layout's size including tail padding.
func (l *Layout) Size() uint32 { return l.size }

// Align returns the layout's alignment.
func (l *Layout) Align() uint32 { return l.align }

func alignTo(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}
