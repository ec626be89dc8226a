package javabin

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// readMembers reads a field_info or method_info table (the two formats
// share a layout) and, for methods, scans each entry's Code attribute for
// decision points. For the fields table every entry in decisionPoints is 0
// (fields have no Code attribute).
func readMembers(r *bytes.Reader, pool []cpEntry) ([]Member, map[string]int, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, nil, err
	}

	members := make([]Member, 0, count)
	decisionPoints := make(map[string]int, count)

	for i := uint16(0); i < count; i++ {
		var accessFlags, nameIdx, descIdx, attrCount uint16
		if err := readAll(r, &accessFlags, &nameIdx, &descIdx, &attrCount); err != nil {
			return nil, nil, fmt.Errorf("member %d header: %w", i, err)
		}

		name := resolveUTF8(pool, nameIdx)
		desc := resolveUTF8(pool, descIdx)

		memberDecisionPoints := 0

		for a := uint16(0); a < attrCount; a++ {
			var attrNameIdx uint16

			var attrLen uint32
			if err := binary.Read(r, binary.BigEndian, &attrNameIdx); err != nil {
				return nil, nil, fmt.Errorf("member %d attr %d name: %w", i, a, err)
			}

			if err := binary.Read(r, binary.BigEndian, &attrLen); err != nil {
				return nil, nil, fmt.Errorf("member %d attr %d length: %w", i, a, err)
			}

			body := make([]byte, attrLen)
			if _, err := readFull(r, body); err != nil {
				return nil, nil, fmt.Errorf("member %d attr %d body: %w", i, a, err)
			}

			if resolveUTF8(pool, attrNameIdx) == "Code" {
				memberDecisionPoints = countCodeDecisionPoints(body)
			}
		}

		members = append(members, Member{Name: name, Descriptor: desc, AccessFlags: accessFlags})
		decisionPoints[name+" "+desc] = memberDecisionPoints
	}

	return members, decisionPoints, nil
}

// skipAttributesAndDetectRecord reads the class file's top-level attribute
// table (after methods), reporting whether a "Record" attribute is present
// so ClassType can apply record precedence.
func skipAttributesAndDetectRecord(r *bytes.Reader, pool []cpEntry) (bool, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return false, err
	}

	hasRecord := false

	for i := uint16(0); i < count; i++ {
		var nameIdx uint16

		var length uint32
		if err := binary.Read(r, binary.BigEndian, &nameIdx); err != nil {
			return false, err
		}

		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return false, err
		}

		body := make([]byte, length)
		if _, err := readFull(r, body); err != nil {
			return false, err
		}

		if resolveUTF8(pool, nameIdx) == "Record" {
			hasRecord = true
		}
	}

	return hasRecord, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	total := 0

	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n

		if err != nil {
			return total, err
		}

		if n == 0 {
			return total, fmt.Errorf("unexpected EOF")
		}
	}

	return total, nil
}
