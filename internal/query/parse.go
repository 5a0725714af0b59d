package query

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/background"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return fmt.Sprintf("%v: %s", apperrors.ErrInvalidQuery, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return apperrors.ErrInvalidQuery }

// Load reads a query document from a YAML or JSON file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading query file: %v", apperrors.ErrInvalidQuery, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML or JSON query document.
func Parse(data []byte) (*Spec, error) {
	doc := make(map[string]any)
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidQuery, err)
	}
	return FromMap(doc)
}

// FromMap validates an already decoded document, e.g. the "query" member of
// a JSON request body.
func FromMap(doc map[string]any) (*Spec, error) {
	var raw RawSpec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidQuery, err)
	}
	return Build(&raw)
}

// Build validates raw and derives the immutable Spec.
func Build(raw *RawSpec) (*Spec, error) {
	errs := make(map[string]string)
	spec := &Spec{
		Frequency:    make(map[background.Source]FrequencyLimit),
		Consequences: make(map[variant.Consequence]struct{}),
		Quality:      make(map[string]QualityThresholds),
		Genotype:     make(map[string]GenotypeChoice),
		Genes:        make(map[string]struct{}),
	}

	for label, f := range raw.Frequency {
		field := "frequency." + label
		src, err := background.ParseSource(label)
		if err != nil {
			errs[field] = err.Error()
			continue
		}
		limit := FrequencyLimit{Enabled: f.Enabled}
		if f.MinOverlap != nil {
			if *f.MinOverlap < 0 || *f.MinOverlap > 1 {
				errs[field+".minOverlap"] = "must be between 0 and 1"
			}
			limit.MinOverlap = *f.MinOverlap
		}
		if f.MaxCarriers != nil {
			if *f.MaxCarriers < 0 {
				errs[field+".maxCarriers"] = "must not be negative"
			}
			limit.MaxCarriers = uint64(max(*f.MaxCarriers, 0))
		} else if f.Enabled {
			errs[field+".maxCarriers"] = "required when enabled"
		}
		spec.Frequency[src] = limit
	}

	for i, label := range raw.Consequences {
		c, err := variant.ParseConsequence(label)
		if err != nil {
			errs[fmt.Sprintf("consequences[%d]", i)] = err.Error()
			continue
		}
		spec.Consequences[c] = struct{}{}
	}

	for sample, q := range raw.Quality {
		field := "quality." + sample
		th, fieldErrs := buildQuality(q)
		for k, v := range fieldErrs {
			errs[field+"."+k] = v
		}
		spec.Quality[sample] = th
	}

	for sample, label := range raw.Genotype {
		g, err := ParseGenotypeChoice(label)
		if err != nil {
			errs["genotype."+sample] = err.Error()
			continue
		}
		spec.Genotype[sample] = g
	}

	for i, g := range raw.Genes {
		id := strings.ToUpper(strings.TrimSpace(g))
		if id == "" {
			errs[fmt.Sprintf("genes[%d]", i)] = "empty gene identifier"
			continue
		}
		spec.Genes[id] = struct{}{}
	}

	for i, r := range raw.Regions {
		region, err := parseRegionValue(r)
		if err != nil {
			errs[fmt.Sprintf("regions[%d]", i)] = err.Error()
			continue
		}
		spec.Regions = append(spec.Regions, region)
	}

	spec.ClinVar = ClinVarFilter(raw.ClinVar)

	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return spec, nil
}

func buildQuality(q RawQuality) (QualityThresholds, map[string]string) {
	errs := make(map[string]string)
	var th QualityThresholds
	nonNeg := func(name string, v *int) int {
		if v == nil {
			return 0
		}
		if *v < 0 {
			errs[name] = "must not be negative"
		}
		return *v
	}
	th.MinDpHet = nonNeg("minDpHet", q.MinDpHet)
	th.MinDpHom = nonNeg("minDpHom", q.MinDpHom)
	th.MinAd = nonNeg("minAd", q.MinAd)
	if q.MaxAd != nil {
		v := nonNeg("maxAd", q.MaxAd)
		th.MaxAd = &v
	}
	if q.MinGq != nil {
		if *q.MinGq < 0 {
			errs["minGq"] = "must not be negative"
		}
		th.MinGq = *q.MinGq
	}
	if q.MinAb != nil {
		if *q.MinAb < 0 || *q.MinAb > 0.5 {
			errs["minAb"] = "must be between 0 and 0.5"
		}
		th.MinAb = *q.MinAb
	}
	action, err := ParseFailAction(q.OnFail)
	if err != nil {
		errs["onFail"] = err.Error()
	}
	th.OnFail = action
	return th, errs
}

func parseRegionValue(v any) (Region, error) {
	switch r := v.(type) {
	case string:
		return ParseRegion(r)
	case map[string]any:
		var raw rawRegion
		if err := mapstructure.WeakDecode(r, &raw); err != nil {
			return Region{}, err
		}
		return newRegion(raw.Chrom, raw.Start, raw.End)
	default:
		return Region{}, fmt.Errorf("region must be a string or a mapping, got %T", v)
	}
}

// ParseRegion parses "chr1", "chr1:100-200" or "1:1,000-2,000". Coordinates
// are 1-based and inclusive.
func ParseRegion(text string) (Region, error) {
	s := strings.TrimSpace(text)
	chrom, rng, found := strings.Cut(s, ":")
	if !found {
		return newRegion(chrom, nil, nil)
	}
	from, to, ok := strings.Cut(strings.ReplaceAll(rng, ",", ""), "-")
	if !ok {
		return Region{}, fmt.Errorf("region %q: want chrom:start-end", text)
	}
	start, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return Region{}, fmt.Errorf("region %q: parsing start: %v", text, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return Region{}, fmt.Errorf("region %q: parsing end: %v", text, err)
	}
	return newRegion(chrom, &start, &end)
}

func newRegion(chrom string, start, end *int) (Region, error) {
	name := genome.Canonicalize(chrom)
	if name == "" {
		return Region{}, fmt.Errorf("region chromosome is required")
	}
	r := Region{Chrom: name}
	if start == nil && end == nil {
		return r, nil
	}
	if start == nil || end == nil {
		return Region{}, fmt.Errorf("region %s: start and end must be given together", name)
	}
	if *start < 1 || *end < *start {
		return Region{}, fmt.Errorf("region %s: invalid range %d-%d", name, *start, *end)
	}
	r.Start, r.End, r.HasRange = *start, *end, true
	return r, nil
}
