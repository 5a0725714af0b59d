package dbfile

import (
	"encoding/binary"
	"fmt"
)

// Record is a view of one fixed-width record. Views returned by File.Record
// alias the file mapping and must not be used after File.Close.
type Record []byte

func (r Record) Uint8(off int) uint8 { return r[off] }
func (r Record) Uint32(off int) uint32 { return binary.LittleEndian.Uint32(r[off:]) }
func (r Record) Int32(off int) int32 { return int32(binary.LittleEndian.Uint32(r[off:])) }
func (r Record) PutUint8(off int, v uint8) { r[off] = v }
func (r Record) PutUint32(off int, v uint32) { binary.LittleEndian.PutUint32(r[off:], v) }
func (r Record) PutInt32(off int, v int32) { binary.LittleEndian.PutUint32(r[off:], uint32(v)) }

// Chrom returns the chromosome index of the locus prefix.
func (r Record) Chrom() uint32 { return r.Uint32(OffChrom) }

// Begin returns the begin as stored on disk.
func (r Record) Begin() int32 { return r.Int32(OffBegin) }

func (r Record) End() int32 { return r.Int32(OffEnd) }

// Locus returns the 0-based half-open interval of the record, applying the
// begin convention of family.
func (r Record) Locus(family Family) (chrom uint32, begin, end int) {
	begin = int(r.Begin())
	if family.OneBasedBegin() {
		begin--
	}
	return r.Chrom(), begin, int(r.End())
}

func decodeHeader(b []byte) Header {
	return Header{
		Magic:         binary.LittleEndian.Uint32(b[0:4]),
		Version:       binary.LittleEndian.Uint32(b[4:8]),
		Family:        Family(binary.LittleEndian.Uint32(b[8:12])),
		RecordSize:    binary.LittleEndian.Uint32(b[12:16]),
		RecordCount:   binary.LittleEndian.Uint64(b[16:24]),
		RecordsOffset: binary.LittleEndian.Uint64(b[24:32]),
		StringsOffset: binary.LittleEndian.Uint64(b[32:40]),
		StringsSize:   binary.LittleEndian.Uint64(b[40:48]),
		Checksum:      binary.LittleEndian.Uint32(b[48:52]),
	}
}

func encodeHeader(h Header) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], uint32(h.Family))
	binary.LittleEndian.PutUint32(b[12:16], h.RecordSize)
	binary.LittleEndian.PutUint64(b[16:24], h.RecordCount)
	binary.LittleEndian.PutUint64(b[24:32], h.RecordsOffset)
	binary.LittleEndian.PutUint64(b[32:40], h.StringsOffset)
	binary.LittleEndian.PutUint64(b[40:48], h.StringsSize)
	binary.LittleEndian.PutUint32(b[48:52], h.Checksum)
	return b
}

// NewRecord returns a zeroed record of the family's width.
func NewRecord(family Family) (Record, error) {
	size := family.RecordSize()
	if size == 0 {
		return nil, fmt.Errorf("unknown record family %d", uint32(family))
	}
	return make(Record, size), nil
}
