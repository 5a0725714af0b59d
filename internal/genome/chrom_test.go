package genome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	cases := map[string]string{
		"1":     "1",
		"chr1":  "1",
		"CHR1":  "1",
		"Chr22": "22",
		"x":     "X",
		"chrY":  "Y",
		"chrM":  "MT",
		"M":     "MT",
		"mt":    "MT",
		" 7 ":   "7",
	}
	for in, want := range cases {
		assert.Equal(t, want, Canonicalize(in), in)
	}
}

func TestDefaultCatalogOrder(t *testing.T) {
	c := DefaultCatalog
	require.Equal(t, 25, c.Len())
	assert.Equal(t, "1", c.Name(0))
	assert.Equal(t, "22", c.Name(21))
	assert.Equal(t, "X", c.Name(22))
	assert.Equal(t, "MT", c.Name(24))
	assert.Equal(t, "", c.Name(25))

	i, ok := c.Index("chrX")
	assert.True(t, ok)
	assert.Equal(t, 22, i)

	_, ok = c.Index("chrUn_gl000220")
	assert.False(t, ok)
}

func TestNewCatalogExtensions(t *testing.T) {
	c := NewCatalog("chrEBV", "X", "hs37d5")
	require.Equal(t, 27, c.Len())
	assert.Equal(t, "EBV", c.Name(25))
	assert.Equal(t, "HS37D5", c.Name(26))
	assert.Equal(t, 25, c.MustIndex("ebv"))
}

func TestParseRelease(t *testing.T) {
	r, err := ParseRelease("GRCh38")
	require.NoError(t, err)
	assert.Equal(t, GRCh38, r)

	r, err = ParseRelease("hg19")
	require.NoError(t, err)
	assert.Equal(t, GRCh37, r)

	_, err = ParseRelease("T2T")
	assert.Error(t, err)
}

func TestSameChromAndMitochondrial(t *testing.T) {
	assert.True(t, SameChrom("chr1", "1"))
	assert.False(t, SameChrom("1", "2"))
	assert.True(t, IsMitochondrial("chrM"))
	assert.False(t, IsMitochondrial("chrX"))
}
