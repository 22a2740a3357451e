package model

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DescriptorSize is the width in bytes of a single ORB descriptor.
const DescriptorSize = 32

// templateMagic and templateVersion identify the serialized template layout.
// Layout: magic | version:uint8 | nsets:uint32 | per set: count:uint32
// followed by count fixed-width descriptors.
const (
	templateMagic   = "PTPL"
	templateVersion = 1
)

// Serialization errors.
var (
	ErrMalformedTemplate = errors.New("malformed palm template")
)

// Descriptor is one fixed-width binary feature vector.
type Descriptor [DescriptorSize]byte

// DescriptorSet holds the descriptors extracted from a single frame, in
// detection order. Immutable once produced by the extractor.
type DescriptorSet []Descriptor

// Template is the enrolled palm representation: one descriptor set per
// accepted enrollment frame, in capture order.
type Template []DescriptorSet

// Encode serializes the template into its versioned binary layout.
func (t Template) Encode() []byte {
	size := len(templateMagic) + 1 + 4
	for _, set := range t {
		size += 4 + len(set)*DescriptorSize
	}

	buf := make([]byte, 0, size)
	buf = append(buf, templateMagic...)
	buf = append(buf, templateVersion)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(t)))
	for _, set := range t {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(set)))
		for _, d := range set {
			buf = append(buf, d[:]...)
		}
	}
	return buf
}

// DecodeTemplate parses a serialized template blob.
func DecodeTemplate(blob []byte) (Template, error) {
	header := len(templateMagic) + 1 + 4
	if len(blob) < header {
		return nil, fmt.Errorf("%w: blob too short (%d bytes)", ErrMalformedTemplate, len(blob))
	}
	if string(blob[:len(templateMagic)]) != templateMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrMalformedTemplate)
	}
	if blob[len(templateMagic)] != templateVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedTemplate, blob[len(templateMagic)])
	}

	nsets := binary.BigEndian.Uint32(blob[len(templateMagic)+1 : header])
	rest := blob[header:]

	// Every set costs at least its 4-byte count header, so a count the
	// remaining bytes cannot hold is corruption; reject it before sizing
	// any allocation off the untrusted header.
	if int64(nsets) > int64(len(rest)/4) {
		return nil, fmt.Errorf("%w: implausible set count %d for %d bytes", ErrMalformedTemplate, nsets, len(rest))
	}

	tpl := make(Template, 0, nsets)
	for i := uint32(0); i < nsets; i++ {
		if len(rest) < 4 {
			return nil, fmt.Errorf("%w: truncated set header at set %d", ErrMalformedTemplate, i)
		}
		count := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]

		need := int(count) * DescriptorSize
		if len(rest) < need {
			return nil, fmt.Errorf("%w: truncated descriptors at set %d", ErrMalformedTemplate, i)
		}
		set := make(DescriptorSet, count)
		for j := range set {
			copy(set[j][:], rest[j*DescriptorSize:])
		}
		rest = rest[need:]
		tpl = append(tpl, set)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedTemplate, len(rest))
	}
	return tpl, nil
}
