// Package javabin parses JVM .class files directly against the documented
// binary format. No library in the retrieved corpus reads JVM bytecode, so
// this package is built on encoding/binary by necessity (see DESIGN.md);
// everything else in the engine defers to an ecosystem library where one
// exists.
package javabin

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const classMagic = 0xCAFEBABE

// Access flag bits relevant to class-type classification and member
// visibility, per the JVM specification.
const (
	AccPublic     = 0x0001
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
	// AccRecord is not a real class access flag in the JVM spec (records
	// are recognized by the presence of a Record attribute); it is kept
	// here as a documented zero value so callers see the full precedence
	// table in one place.
	AccRecord = 0
)

// Constant pool tags (JVM spec table 4.4-A).
const (
	tagUTF8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// cpEntry is one constant-pool slot. Only the fields relevant to class,
// name, and descriptor resolution are retained.
type cpEntry struct {
	tag       uint8
	utf8      string
	classIdx  uint16 // tagClass: index of the UTF8 name
	nameIdx   uint16 // tagNameAndType: name index
	descIdx   uint16 // tagNameAndType: descriptor index
}

// Member describes one field or method entry.
type Member struct {
	Name       string
	Descriptor string
	AccessFlags uint16
}

// ClassFile is the parsed result of one .class file, sufficient for the
// engine's needs: classification, member lists, and per-method decision
// point counts for cyclomatic complexity.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16
	ThisClass    string // internal name, e.g. "com/acme/Foo"
	SuperClass   string // internal name, empty for java/lang/Object-less edge cases
	Interfaces   []string
	Fields       []Member
	Methods      []Member

	// DecisionPoints maps a method's "name descriptor" key to the count of
	// conditional jumps and switch tables found in its Code attribute.
	DecisionPoints map[string]int
}

// ClassType classifies a parsed class file by its access flags, in the
// precedence order the binary parser must apply: annotation (annotation
// bit set) -> interface -> enum -> record -> class. Record detection uses
// the presence of a Record attribute captured during parsing (hasRecord).
func (c *ClassFile) ClassType(hasRecordAttribute bool) string {
	switch {
	case c.AccessFlags&AccAnnotation != 0:
		return "annotation"
	case c.AccessFlags&AccInterface != 0:
		return "interface"
	case c.AccessFlags&AccEnum != 0:
		return "enum"
	case hasRecordAttribute:
		return "record"
	default:
		return "class"
	}
}

// Parse reads one .class file's bytes and returns its parsed structure. It
// returns an error wrapping the position at which parsing failed; callers
// (the binary collector) turn this into a non-fatal diagnostic per §7.
func Parse(raw []byte) (*ClassFile, bool, error) {
	r := bytes.NewReader(raw)

	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, false, fmt.Errorf("read magic: %w", err)
	}

	if magic != classMagic {
		return nil, false, fmt.Errorf("not a class file: bad magic %#x", magic)
	}

	var minor, major uint16
	if err := readAll(r, &minor, &major); err != nil {
		return nil, false, fmt.Errorf("read version: %w", err)
	}

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, false, fmt.Errorf("read constant pool: %w", err)
	}

	var accessFlags, thisClassIdx, superClassIdx uint16
	if err := readAll(r, &accessFlags, &thisClassIdx, &superClassIdx); err != nil {
		return nil, false, fmt.Errorf("read class header: %w", err)
	}

	var interfaceCount uint16
	if err := readAll(r, &interfaceCount); err != nil {
		return nil, false, fmt.Errorf("read interface count: %w", err)
	}

	interfaces := make([]string, 0, interfaceCount)

	for i := uint16(0); i < interfaceCount; i++ {
		var idx uint16
		if err := readAll(r, &idx); err != nil {
			return nil, false, fmt.Errorf("read interface: %w", err)
		}

		interfaces = append(interfaces, resolveClassName(pool, idx))
	}

	fields, _, err := readMembers(r, pool)
	if err != nil {
		return nil, false, fmt.Errorf("read fields: %w", err)
	}

	methods, decisionPoints, err := readMembers(r, pool)
	if err != nil {
		return nil, false, fmt.Errorf("read methods: %w", err)
	}

	hasRecord, err := skipAttributesAndDetectRecord(r, pool)
	if err != nil {
		return nil, false, fmt.Errorf("read class attributes: %w", err)
	}

	cf := &ClassFile{
		MinorVersion:   minor,
		MajorVersion:   major,
		AccessFlags:    accessFlags,
		ThisClass:      resolveClassName(pool, thisClassIdx),
		SuperClass:     resolveClassName(pool, superClassIdx),
		Interfaces:     interfaces,
		Fields:         fields,
		Methods:        methods,
		DecisionPoints: decisionPoints,
	}

	return cf, hasRecord, nil
}

func readAll(r *bytes.Reader, fields ...any) error {
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return err
		}
	}

	return nil
}

func resolveClassName(pool []cpEntry, idx uint16) string {
	if int(idx) >= len(pool) || idx == 0 {
		return ""
	}

	entry := pool[idx]
	if entry.tag != tagClass {
		return ""
	}

	return resolveUTF8(pool, entry.classIdx)
}

func resolveUTF8(pool []cpEntry, idx uint16) string {
	if int(idx) >= len(pool) || idx == 0 {
		return ""
	}

	return pool[idx].utf8
}
