package javabin

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// readConstantPool reads the constant_pool_count and all entries. Per the
// JVM spec, the pool is 1-indexed and Long/Double entries occupy two
// slots; the returned slice preserves that indexing (index 0 and the slot
// after a Long/Double are left as the zero cpEntry).
func readConstantPool(r *bytes.Reader) ([]cpEntry, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}

	pool := make([]cpEntry, count)

	for i := 1; i < int(count); i++ {
		var tag uint8
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		entry := cpEntry{tag: tag}

		switch tag {
		case tagUTF8:
			var length uint16
			if err := binary.Read(r, binary.BigEndian, &length); err != nil {
				return nil, err
			}

			buf := make([]byte, length)
			if _, err := r.Read(buf); err != nil {
				return nil, err
			}

			entry.utf8 = string(buf)
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			if err := binary.Read(r, binary.BigEndian, &entry.classIdx); err != nil {
				return nil, err
			}
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagDynamic, tagInvokeDynamic:
			var a, b uint16
			if err := readAll(r, &a, &b); err != nil {
				return nil, err
			}
		case tagNameAndType:
			if err := readAll(r, &entry.nameIdx, &entry.descIdx); err != nil {
				return nil, err
			}
		case tagInteger, tagFloat:
			var v uint32
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, err
			}
		case tagLong, tagDouble:
			var v uint64
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, err
			}

			pool[i] = entry
			i++ // Long/Double entries occupy two constant pool slots.

			continue
		case tagMethodHandle:
			var kind uint8

			var refIdx uint16
			if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
				return nil, err
			}

			if err := binary.Read(r, binary.BigEndian, &refIdx); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown constant pool tag %d at entry %d", tag, i)
		}

		pool[i] = entry
	}

	return pool, nil
}
