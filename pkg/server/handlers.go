package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chazu/dfm/pkg/analysis"
	"github.com/chazu/dfm/pkg/features"
	"github.com/chazu/dfm/pkg/scoring"
)

// AnalyzeRequest is the body of POST /v1/analyze. STL content is base64;
// part scripts and shape documents are sent as text.
type AnalyzeRequest struct {
	Name    string          `json:"name"`
	Format  analysis.Format `json:"format"`
	Content string          `json:"content"`
	Units   string          `json:"units,omitempty"`
}

// input decodes the request into an analysis input.
func (a AnalyzeRequest) input() (analysis.Input, error) {
	in := analysis.Input{
		Name:   strings.TrimSpace(a.Name),
		Format: analysis.Format(strings.ToLower(strings.TrimSpace(string(a.Format)))),
		Units:  a.Units,
	}
	if a.Content == "" {
		return in, errors.New("content is required")
	}
	switch in.Format {
	case analysis.FormatScript, analysis.FormatShape:
		in.Content = []byte(a.Content)
	case analysis.FormatSTL:
		b, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return in, fmt.Errorf("content is not valid base64: %w", err)
		}
		in.Content = b
	default:
		return in, fmt.Errorf("format must be one of %q, %q or %q", analysis.FormatScript, analysis.FormatSTL, analysis.FormatShape)
	}
	if in.Name == "" {
		in.Name = "part." + string(in.Format)
	}
	return in, nil
}

// AnalyzeScoreRequest is the body of POST /v1/analyze/score. Exactly one
// of Part and Analysis is set: Part is analyzed first, Analysis is a
// record from an earlier call.
type AnalyzeScoreRequest struct {
	Part        *AnalyzeRequest       `json:"part,omitempty"`
	Analysis    *analysis.Record      `json:"analysis,omitempty"`
	ProcessType scoring.ProcessType   `json:"process_type"`
	Tolerances  scoring.ToleranceData `json:"tolerances"`
	Material    scoring.MaterialData  `json:"material"`
	Finish      scoring.FinishData    `json:"finish"`
	Quantity    int                   `json:"quantity"`
}

// AnalyzeScoreResponse pairs the derived geometry with its score.
type AnalyzeScoreResponse struct {
	Analysis *analysis.Record        `json:"analysis"`
	Geometry scoring.GeometryData    `json:"geometry"`
	Score    scoring.ScoringResponse `json:"score"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Service: ServiceName, Version: s.version})
}

// handleScore handles POST /v1/score.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req scoring.ScoringRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}

	resp := s.scorer.Score(req)
	s.metrics.IncrementGrade(string(resp.Grade))
	s.logger.InfoContext(ctx, "part scored",
		"request_id", RequestID(ctx),
		"process_type", req.ProcessType,
		"total_score", resp.TotalScore,
		"grade", resp.Grade,
	)
	writeJSON(w, http.StatusOK, resp)
}

// handleAnalyze handles POST /v1/analyze.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	rec, err := s.analyze(r, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleAnalyzeScore handles POST /v1/analyze/score.
func (s *Server) handleAnalyzeScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := AnalyzeScoreRequest{
		Quantity: 1,
		Material: scoring.MaterialData{AvailabilityScore: 100},
		Finish:   scoring.FinishData{FinishComplexity: scoring.FinishSimple},
	}
	if !s.decode(w, r, &req) {
		return
	}
	if (req.Part == nil) == (req.Analysis == nil) {
		writeError(w, badRequest("exactly one of part and analysis is required"))
		return
	}

	rec := req.Analysis
	if req.Part != nil {
		var err error
		if rec, err = s.analyze(r, *req.Part); err != nil {
			writeError(w, err)
			return
		}
	}

	sr := analysis.ScoreRequest(rec, req.ProcessType, req.Tolerances, req.Material, req.Finish, req.Quantity)
	sr.Normalize()
	if err := sr.Validate(); err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	resp := s.scorer.Score(sr)
	s.metrics.IncrementGrade(string(resp.Grade))
	s.logger.InfoContext(ctx, "part analyzed and scored",
		"request_id", RequestID(ctx),
		"name", rec.Source.Name,
		"total_score", resp.TotalScore,
		"grade", resp.Grade,
	)
	writeJSON(w, http.StatusOK, AnalyzeScoreResponse{Analysis: rec, Geometry: sr.Geometry, Score: resp})
}

// analyze runs or recalls the analysis of req.
func (s *Server) analyze(r *http.Request, req AnalyzeRequest) (*analysis.Record, error) {
	ctx := r.Context()
	in, err := req.input()
	if err != nil {
		return nil, badRequest(err.Error())
	}

	key := cacheKey(in)
	if s.cache != nil {
		if rec, ok := s.cache.Get(key); ok {
			s.metrics.CacheHit()
			cp := *rec
			cp.Source.Name = in.Name
			return &cp, nil
		}
		s.metrics.CacheMiss()
	}

	start := time.Now()
	rec, err := s.analyzer.Analyze(ctx, in)
	d := time.Since(start)
	if err != nil {
		if analysis.IsInputError(err) {
			s.metrics.ObserveAnalysis(string(in.Format), "rejected", d)
			s.logger.WarnContext(ctx, "part rejected",
				"request_id", RequestID(ctx),
				"name", in.Name,
				"error", err,
			)
			return nil, unprocessable(err.Error())
		}
		s.metrics.ObserveAnalysis(string(in.Format), "failed", d)
		s.logger.ErrorContext(ctx, "analysis failed",
			"request_id", RequestID(ctx),
			"name", in.Name,
			"error", err,
		)
		return nil, internal(err)
	}

	status := "complete"
	if rec.Partial() {
		status = "partial"
	}
	s.metrics.ObserveAnalysis(string(in.Format), status, d)
	s.recordFeatures(rec)
	s.logger.InfoContext(ctx, "analysis finished",
		"request_id", RequestID(ctx),
		"name", in.Name,
		"status", status,
		"duration_ms", d.Milliseconds(),
	)

	if s.cache != nil {
		s.cache.Add(key, rec)
	}
	return rec, nil
}

func (s *Server) recordFeatures(rec *analysis.Record) {
	through := 0
	for _, h := range rec.Holes {
		if h.Kind == features.HoleThrough {
			through++
		}
	}
	s.metrics.AddFeatures("through_hole", through)
	s.metrics.AddFeatures("blind_hole", len(rec.Holes)-through)
	s.metrics.AddFeatures("pocket", len(rec.Pockets))
	s.metrics.ObserveMinWall(rec.MinWall.GlobalMinMM)
}

// cacheKey identifies an analysis by what determines its result.
func cacheKey(in analysis.Input) string {
	return string(in.Format) + "|" + strings.ToLower(strings.TrimSpace(in.Units)) + "|" + analysis.ContentHash(in.Content)
}

// decode reads a JSON body into dst, writing the error response itself.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, &apiError{status: http.StatusRequestEntityTooLarge, code: "request_too_large", description: fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit)})
			return false
		}
		writeError(w, badRequest("invalid JSON body: "+err.Error()))
		return false
	}
	return true
}
