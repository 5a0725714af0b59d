package genes

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
)

// XlinkEntry links the identifiers of one gene.
type XlinkEntry struct {
	Entrez  uint32
	Hgnc    uint32
	Ensembl uint32
	Symbol  string
}

// HgncLabel formats the HGNC identifier as "HGNC:<n>".
func (e XlinkEntry) HgncLabel() string { return fmt.Sprintf("HGNC:%d", e.Hgnc) }

// Xlink is the gene identifier cross-reference table. Symbols alias the
// file mapping until Close.
type Xlink struct {
	entries   []XlinkEntry
	byEntrez  map[uint32]int
	byEnsembl map[uint32]int
	bySymbol  map[string]int
	file      *dbfile.File
}

// LoadXlink maps the binary xlink table at path.
func LoadXlink(path string) (*Xlink, error) {
	f, err := dbfile.Open(path, dbfile.FamilyXlink)
	if err != nil {
		return nil, err
	}
	x := &Xlink{
		entries:   make([]XlinkEntry, 0, f.Len()),
		byEntrez:  make(map[uint32]int, f.Len()),
		byEnsembl: make(map[uint32]int, f.Len()),
		bySymbol:  make(map[string]int, f.Len()),
		file:      f,
	}
	for i := 0; i < f.Len(); i++ {
		rec := f.Record(i)
		sym, err := f.String(rec.Uint32(dbfile.OffXlinkSymOff), rec.Uint32(dbfile.OffXlinkSymLen))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xlink record %d: %w", i, err)
		}
		e := XlinkEntry{
			Entrez:  rec.Uint32(dbfile.OffXlinkEntrez),
			Hgnc:    rec.Uint32(dbfile.OffXlinkHgnc),
			Ensembl: rec.Uint32(dbfile.OffXlinkEnsembl),
			Symbol:  sym,
		}
		n := len(x.entries)
		x.entries = append(x.entries, e)
		// first entry wins for shared identifiers
		if _, ok := x.byEntrez[e.Entrez]; !ok && e.Entrez != 0 {
			x.byEntrez[e.Entrez] = n
		}
		if _, ok := x.byEnsembl[e.Ensembl]; !ok && e.Ensembl != 0 {
			x.byEnsembl[e.Ensembl] = n
		}
		if key := strings.ToUpper(sym); key != "" {
			if _, ok := x.bySymbol[key]; !ok {
				x.bySymbol[key] = n
			}
		}
	}
	return x, nil
}

func (x *Xlink) lookup(m map[uint32]int, id uint32) (XlinkEntry, bool) {
	i, ok := m[id]
	if !ok {
		return XlinkEntry{}, false
	}
	return x.entries[i], true
}

// ByEntrez looks an entry up by Entrez gene id.
func (x *Xlink) ByEntrez(id uint32) (XlinkEntry, bool) { return x.lookup(x.byEntrez, id) }
// ByEnsembl looks an entry up by numeric Ensembl gene id.
func (x *Xlink) ByEnsembl(id uint32) (XlinkEntry, bool) { return x.lookup(x.byEnsembl, id) }

// BySymbol looks a gene up by its symbol, ignoring case.
func (x *Xlink) BySymbol(symbol string) (XlinkEntry, bool) {
	i, ok := x.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return XlinkEntry{}, false
	}
	return x.entries[i], true
}

func (x *Xlink) Len() int { return len(x.entries) }

// Close unmaps the table. Symbols must not be used afterwards.
func (x *Xlink) Close() error { return x.file.Close() }
