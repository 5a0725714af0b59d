package dbfile

import (
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"path/filepath"
)

// Writer accumulates records in memory and writes a database file.
type Writer struct {
	family  Family
	records []byte
	strings []byte
	count   uint64
}

func NewWriter(family Family) (*Writer, error) {
	if family.RecordSize() == 0 {
		return nil, fmt.Errorf("unknown record family %d", uint32(family))
	}
	return &Writer{family: family}, nil
}

// Locus returns a new zeroed record with its locus prefix filled in. begin is
// expected in the family's on-disk convention.
func (w *Writer) Locus(chrom uint32, begin, end int32) Record {
	rec := make(Record, w.family.RecordSize())
	if w.family.HasLocus() {
		rec.PutUint32(OffChrom, chrom)
		rec.PutInt32(OffBegin, begin)
		rec.PutInt32(OffEnd, end)
	}
	return rec
}

// Add appends one record.
func (w *Writer) Add(rec Record) error {
	if len(rec) != w.family.RecordSize() {
		return fmt.Errorf("record of %d bytes, %s records are %d", len(rec), w.family, w.family.RecordSize())
	}
	w.records = append(w.records, rec...)
	w.count++
	return nil
}

// AddString appends s to the string table and returns its offset and length.
func (w *Writer) AddString(s string) (off, n uint32, err error) {
	if uint64(len(w.strings))+uint64(len(s)) > math.MaxUint32 {
		return 0, 0, fmt.Errorf("string table overflow")
	}
	off = uint32(len(w.strings))
	w.strings = append(w.strings, s...)
	return off, uint32(len(s)), nil
}

func (w *Writer) Len() int { return int(w.count) }

// WriteFile writes the table to path. It writes to a .tmp file first and
// renames on success.
func (w *Writer) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp database file: %w", err)
	}
	defer f.Close()

	recordsOffset := uint64(HeaderSize)
	stringsOffset := recordsOffset + uint64(len(w.records))
	header := encodeHeader(Header{
		Magic:         Magic,
		Version:       FormatVersion,
		Family:        w.family,
		RecordSize:    uint32(w.family.RecordSize()),
		RecordCount:   w.count,
		RecordsOffset: recordsOffset,
		StringsOffset: stringsOffset,
		StringsSize:   uint64(len(w.strings)),
		Checksum:      crc32.ChecksumIEEE(w.records),
	})
	for _, chunk := range [][]byte{header, w.records, w.strings} {
		if _, err := f.Write(chunk); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("writing database file: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("syncing database file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming database file: %w", err)
	}
	return nil
}
