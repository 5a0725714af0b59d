package dbfile

import (
	"fmt"
	"hash/crc32"
	"os"
	"sync"
	"unsafe"

	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
)

// File is an open, memory-mapped database file. It owns the mapping; record
// views and strings obtained from it are valid until Close.
type File struct {
	path    string
	header  Header
	data    []byte
	records []byte
	strings []byte
	unmap   func() error
	once    sync.Once
}

func corrupt(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", apperrors.ErrCorruptDatabase, path, fmt.Sprintf(format, args...))
}

// Open maps path read-only and validates that it holds a table of the given
// family. Layout violations are reported as ErrCorruptDatabase.
func Open(path string, family Family) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat database file: %w", err)
	}
	size := info.Size()
	if size < int64(HeaderSize) {
		return nil, corrupt(path, "file too short (%d bytes)", size)
	}
	if int64(int(size)) != size {
		return nil, corrupt(path, "file too large to map (%d bytes)", size)
	}

	data, unmap, err := mapFile(f, int(size))
	if err != nil {
		return nil, err
	}
	db, err := newFile(path, family, data, unmap)
	if err != nil {
		unmap()
		return nil, err
	}
	return db, nil
}

func newFile(path string, family Family, data []byte, unmap func() error) (*File, error) {
	h := decodeHeader(data[:HeaderSize])
	if h.Magic != Magic {
		return nil, corrupt(path, "bad magic bytes %#x", h.Magic)
	}
	if h.Version != FormatVersion {
		return nil, corrupt(path, "unsupported format version %d", h.Version)
	}
	if h.Family != family {
		return nil, corrupt(path, "holds %s records, want %s", h.Family, family)
	}
	if int(h.RecordSize) != family.RecordSize() {
		return nil, corrupt(path, "record size %d, want %d", h.RecordSize, family.RecordSize())
	}

	size := uint64(len(data))
	if h.RecordsOffset < uint64(HeaderSize) || h.RecordsOffset > size {
		return nil, corrupt(path, "records offset %d out of range", h.RecordsOffset)
	}
	if h.RecordCount > (size-h.RecordsOffset)/uint64(h.RecordSize) {
		return nil, corrupt(path, "%d records do not fit in %d bytes", h.RecordCount, size)
	}
	recordsEnd := h.RecordsOffset + h.RecordCount*uint64(h.RecordSize)
	if h.StringsOffset < recordsEnd || h.StringsOffset > size || h.StringsSize > size-h.StringsOffset {
		return nil, corrupt(path, "string table [%d,+%d) out of range", h.StringsOffset, h.StringsSize)
	}

	return &File{
		path:    path,
		header:  h,
		data:    data,
		records: data[h.RecordsOffset:recordsEnd],
		strings: data[h.StringsOffset : h.StringsOffset+h.StringsSize],
		unmap:   unmap,
	}, nil
}

func (f *File) Path() string { return f.path }
func (f *File) Header() Header { return f.header }
func (f *File) Family() Family { return f.header.Family }
func (f *File) Len() int { return int(f.header.RecordCount) }

// Record returns a view of record i. It panics if i is out of range.
func (f *File) Record(i int) Record {
	size := int(f.header.RecordSize)
	off := i * size
	return Record(f.records[off : off+size : off+size])
}

// String returns the string table entry at [off, off+n) without copying.
func (f *File) String(off, n uint32) (string, error) {
	end := uint64(off) + uint64(n)
	if end > uint64(len(f.strings)) {
		return "", corrupt(f.path, "string [%d,+%d) outside table of %d bytes", off, n, len(f.strings))
	}
	if n == 0 {
		return "", nil
	}
	return unsafe.String(&f.strings[off], int(n)), nil
}

// VerifyChecksum recomputes the crc32 of the record table.
func (f *File) VerifyChecksum() error {
	if got := crc32.ChecksumIEEE(f.records); got != f.header.Checksum {
		return corrupt(f.path, "record checksum %08x, header says %08x", got, f.header.Checksum)
	}
	return nil
}

// Mapped reports whether Close has not yet released the mapping.
func (f *File) Mapped() bool { return f.data != nil }

// Close releases the mapping. It is safe to call more than once.
func (f *File) Close() error {
	var err error
	f.once.Do(func() {
		err = f.unmap()
		f.data, f.records, f.strings = nil, nil, nil
	})
	return err
}
