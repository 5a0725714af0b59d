package query

// RawSpec is the loosely typed query document as written by users.
type RawSpec struct {
	Frequency    map[string]RawFrequency `mapstructure:"frequency"`
	Consequences []string                `mapstructure:"consequences"`
	Quality      map[string]RawQuality   `mapstructure:"quality"`
	Genotype     map[string]string       `mapstructure:"genotype"`
	Genes        []string                `mapstructure:"genes"`
	Regions      []any                   `mapstructure:"regions"`
	ClinVar      RawClinVar              `mapstructure:"clinvar"`
}

type RawFrequency struct {
	Enabled     bool     `mapstructure:"enabled"`
	MinOverlap  *float64 `mapstructure:"minOverlap"`
	MaxCarriers *int64   `mapstructure:"maxCarriers"`
}

type RawQuality struct {
	MinDpHet *int     `mapstructure:"minDpHet"`
	MinDpHom *int     `mapstructure:"minDpHom"`
	MinGq    *float64 `mapstructure:"minGq"`
	MinAb    *float64 `mapstructure:"minAb"`
	MinAd    *int     `mapstructure:"minAd"`
	MaxAd    *int     `mapstructure:"maxAd"`
	OnFail   string   `mapstructure:"onFail"`
}

type RawClinVar struct {
	RequireInClinvar        bool `mapstructure:"requireInClinvar"`
	IncludeBenign           bool `mapstructure:"includeBenign"`
	IncludeLikelyBenign     bool `mapstructure:"includeLikelyBenign"`
	IncludeUncertain        bool `mapstructure:"includeUncertain"`
	IncludeLikelyPathogenic bool `mapstructure:"includeLikelyPathogenic"`
	IncludePathogenic       bool `mapstructure:"includePathogenic"`
}

type rawRegion struct {
	Chrom string `mapstructure:"chrom"`
	Start *int   `mapstructure:"start"`
	End   *int   `mapstructure:"end"`
}
