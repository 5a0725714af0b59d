// Package server is the REST shell over the overlap engine and the filter
// pipeline.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/background"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/genes"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/tad"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annotation"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/interpreter"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/query"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/middleware"
)

const (
	defaultMaxVariants = 10000
	maxBodyBytes       = 32 << 20
)

type Options struct {
	GeneModel   genes.Model
	Concurrency int
	MaxVariants int
	Timeout     time.Duration
	Metrics     *metrics.Metrics
}

type Server struct {
	bundles   *annodb.Bundles
	annotator annotation.Annotator
	opts      Options
	logger    *slog.Logger
}

func New(bundles *annodb.Bundles, annotator annotation.Annotator, opts Options) *Server {
	if annotator == nil {
		annotator = annotation.NewComposite(bundles.ClinvarSV, nil)
	}
	if opts.MaxVariants <= 0 {
		opts.MaxVariants = defaultMaxVariants
	}
	return &Server{
		bundles:   bundles,
		annotator: annotator,
		opts:      opts,
		logger:    slog.Default().With("component", "server"),
	}
}

// Handler wires the routes and middleware. checker backs the health probes.
func (s *Server) Handler(checker *health.Checker) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/overlaps", s.Overlaps)
	mux.HandleFunc("POST /api/v1/evaluate", s.Evaluate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	// Metrics sits directly on the mux to see the matched pattern.
	var chain http.Handler = mux
	if s.opts.Metrics != nil {
		chain = middleware.Metrics(s.opts.Metrics)(chain)
	}
	if s.opts.Timeout > 0 {
		chain = middleware.Timeout(s.opts.Timeout)(chain)
	}
	return middleware.RequestID(chain)
}

// Hit is one overlapping database record. Begin and End are 1-based
// inclusive.
type Hit struct {
	Chrom         string `json:"chrom"`
	Begin         int    `json:"begin"`
	End           int    `json:"end"`
	Count         uint32 `json:"count,omitempty"`
	SvType        string `json:"svType,omitempty"`
	ID            string `json:"id,omitempty"`
	VariationType string `json:"variationType,omitempty"`
	Significance  string `json:"significance,omitempty"`
}

type OverlapResponse struct {
	DB    string   `json:"db"`
	Query string   `json:"query"`
	Hits  []Hit    `json:"hits"`
	Genes []string `json:"genes,omitempty"`
}

// Overlaps answers GET /api/v1/overlaps?db=&chrom=&start=&end=&svType=.
// start and end are 1-based inclusive; svType defaults to DEL, i.e. a plain
// interval.
func (s *Server) Overlaps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := candidateFromQuery(q.Get("chrom"), q.Get("start"), q.Get("end"), q.Get("svType"))
	if err != nil {
		s.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, 0, "%v", err))
		return
	}
	if _, ok := s.bundles.Catalog.Index(v.Chrom); !ok {
		s.writeError(w, apperrors.Newf(apperrors.ErrUnknownChromosome, 0, "%q", v.Chrom))
		return
	}
	db := strings.ToLower(q.Get("db"))
	resp := OverlapResponse{DB: db, Query: v.Key(), Hits: []Hit{}}
	chrom := s.bundles.Catalog.Name
	self, _ := s.bundles.Catalog.Index(v.Chrom)

	switch {
	case db == "pathogenic":
		for _, h := range s.bundles.Pathogenic.Query(v) {
			resp.Hits = append(resp.Hits, Hit{Chrom: chrom(self), Begin: h.Begin + 1, End: h.End, SvType: h.SvType.String(), ID: h.ID})
		}
	case db == "clinvar_sv":
		for _, h := range s.bundles.ClinvarSV.Query(v) {
			resp.Hits = append(resp.Hits, Hit{
				Chrom: chrom(self), Begin: h.Begin + 1, End: h.End, ID: h.Accession(),
				VariationType: h.VariationType.String(), Significance: h.Pathogenicity.String(),
			})
		}
	case strings.HasPrefix(db, "tad_"):
		set, err := tad.ParseSet(strings.TrimPrefix(db, "tad_"))
		if err != nil {
			s.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, 0, "%v", err))
			return
		}
		for _, h := range s.bundles.Tads.Query(set, v) {
			resp.Hits = append(resp.Hits, Hit{Chrom: chrom(h.Chrom), Begin: h.Begin + 1, End: h.End})
		}
	case strings.HasPrefix(db, "genes_"):
		model, err := genes.ParseModel(strings.TrimPrefix(db, "genes_"))
		if err != nil {
			s.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, 0, "%v", err))
			return
		}
		resp.Genes = s.bundles.Genes.HgncIDs(model, v)
	default:
		src, err := background.ParseSource(db)
		if err != nil {
			s.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, 0, "unknown database %q", db))
			return
		}
		for _, h := range s.bundles.Background.Query(src, v) {
			resp.Hits = append(resp.Hits, Hit{Chrom: chrom(h.Chrom), Begin: h.Begin + 1, End: h.End, Count: h.Count})
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func candidateFromQuery(chrom, start, end, svType string) (*variant.Candidate, error) {
	if chrom == "" {
		return nil, errors.New("query parameter 'chrom' is required")
	}
	pos, err := strconv.Atoi(start)
	if err != nil || pos < 1 {
		return nil, errors.New("query parameter 'start' must be a positive integer")
	}
	stop := pos
	if end != "" {
		if stop, err = strconv.Atoi(end); err != nil || stop < pos {
			return nil, errors.New("query parameter 'end' must be an integer not below start")
		}
	}
	if svType == "" {
		svType = "DEL"
	}
	t, err := variant.ParseSvType(svType)
	if err != nil {
		return nil, err
	}
	if t == variant.SvNone {
		t = variant.SvDel
	}
	v := &variant.Candidate{Chrom: chrom, Pos: pos, End: stop, SvType: t}
	return v, v.Validate()
}

type EvaluateRequest struct {
	Query    map[string]any       `json:"query"`
	Variants []*variant.Candidate `json:"variants"`
}

type Result struct {
	ID    string `json:"id,omitempty"`
	Key   string `json:"key"`
	Pass  bool   `json:"pass"`
	Error string `json:"error,omitempty"`
}

type EvaluateResponse struct {
	Passed  int      `json:"passed"`
	Results []Result `json:"results"`
}

// Evaluate answers POST /api/v1/evaluate with one result per submitted
// variant, in submission order.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req EvaluateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, 0, "request body: %v", err))
		return
	}
	if len(req.Variants) > s.opts.MaxVariants {
		s.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge, "at most %d variants per request", s.opts.MaxVariants))
		return
	}
	if req.Query == nil {
		req.Query = map[string]any{}
	}
	spec, err := query.FromMap(req.Query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	interp, err := interpreter.New(spec, interpreter.Options{
		Background: s.bundles.Background,
		Annotator:  s.annotator,
		Metrics:    s.opts.Metrics,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	runner := batch.New(interp, batch.Options{
		Concurrency:  s.opts.Concurrency,
		Consequences: s.annotator,
		Genes:        s.bundles.Genes,
		GeneModel:    s.opts.GeneModel,
		Metrics:      s.opts.Metrics,
	})

	resp := EvaluateResponse{Results: make([]Result, len(req.Variants))}
	for i, v := range req.Variants {
		if v == nil {
			resp.Results[i] = Result{Error: "null variant"}
			continue
		}
		res := Result{ID: v.ID, Key: v.Key()}
		if err := v.Validate(); err != nil {
			res.Error = err.Error()
		} else if res.Pass, err = runner.Evaluate(ctx, v); err != nil {
			res.Error = err.Error()
		}
		if res.Pass {
			resp.Passed++
		}
		resp.Results[i] = res
	}
	log.Info("evaluation completed", "variants", len(req.Variants), "passed", resp.Passed)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, apperrors.HTTPStatusCode(err), ErrorResponse{Error: err.Error(), Code: apperrors.Code(err)})
}
