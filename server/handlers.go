package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Perruchok/vozpublica/narrative"
	"github.com/gin-gonic/gin"
)

// EvolutionRequest is the body of POST /semantic-evolution. Dates are
// YYYY-MM-DD; a nil threshold selects the service default.
type EvolutionRequest struct {
	Concept             string   `json:"concept"`
	Granularity         string   `json:"granularity"`
	StartDate           string   `json:"start_date"`
	EndDate             string   `json:"end_date"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
}

// ExplainDriftRequest is the body of POST /explain-drift. Periods are YYYY-MM.
type ExplainDriftRequest struct {
	Concept             string   `json:"concept"`
	FromPeriod          string   `json:"from_period"`
	ToPeriod            string   `json:"to_period"`
	MaxExamples         int      `json:"max_examples"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
}

// SpeakerDriftRequest is the body of POST /speaker-drift. The pre and post
// ranges are YYYY-MM-DD and inclusive.
type SpeakerDriftRequest struct {
	Concept             string   `json:"concept"`
	PreStart            string   `json:"pre_start"`
	PreEnd              string   `json:"pre_end"`
	PostStart           string   `json:"post_start"`
	PostEnd             string   `json:"post_end"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
	MinEvidence         int      `json:"min_evidence"`
	TopK                int      `json:"top_k"`
}

// NarrativeReportRequest is the body of POST /narrative-report.
type NarrativeReportRequest struct {
	SpeakerDriftRequest
	MaxExamples     int  `json:"max_examples"`
	SkipExplanation bool `json:"skip_explanation"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// QARequest is the body of POST /qa.
type QARequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

// dateParser collects the first parse failure across several fields.
type dateParser struct {
	err error
}

// day parses a YYYY-MM-DD value. Empty values stay zero so the service
// reports them as missing.
func (p *dateParser) day(field, value string) time.Time {
	if value == "" || p.err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		p.err = fmt.Errorf("%s %q must be formatted YYYY-MM-DD", field, value)
		return time.Time{}
	}
	return t
}

func (s *Server) SemanticEvolution(c *gin.Context) {
	var req EvolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body")
		return
	}
	var p dateParser
	start := p.day("start_date", req.StartDate)
	end := p.day("end_date", req.EndDate)
	if p.err != nil {
		s.badRequest(c, p.err.Error())
		return
	}

	resp, err := s.service.Evolution(c.Request.Context(), narrative.EvolutionRequest{
		Concept:             req.Concept,
		Granularity:         req.Granularity,
		StartDate:           start,
		EndDate:             end,
		SimilarityThreshold: req.SimilarityThreshold,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ExplainDrift(c *gin.Context) {
	var req ExplainDriftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body")
		return
	}

	resp, err := s.service.ExplainDrift(c.Request.Context(), narrative.ExplainRequest{
		Concept:             req.Concept,
		FromPeriod:          req.FromPeriod,
		ToPeriod:            req.ToPeriod,
		MaxExamples:         req.MaxExamples,
		SimilarityThreshold: req.SimilarityThreshold,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) SpeakerDrift(c *gin.Context) {
	var req SpeakerDriftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body")
		return
	}
	var p dateParser
	sr := narrative.SpeakerDriftRequest{
		Concept:             req.Concept,
		PreStart:            p.day("pre_start", req.PreStart),
		PreEnd:              p.day("pre_end", req.PreEnd),
		PostStart:           p.day("post_start", req.PostStart),
		PostEnd:             p.day("post_end", req.PostEnd),
		SimilarityThreshold: req.SimilarityThreshold,
		MinEvidence:         req.MinEvidence,
		TopK:                req.TopK,
	}
	if p.err != nil {
		s.badRequest(c, p.err.Error())
		return
	}

	resp, err := s.service.SpeakerDrift(c.Request.Context(), sr)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) NarrativeReport(c *gin.Context) {
	var req NarrativeReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body")
		return
	}
	var p dateParser
	rr := narrative.ReportRequest{
		Concept:             req.Concept,
		PreStart:            p.day("pre_start", req.PreStart),
		PreEnd:              p.day("pre_end", req.PreEnd),
		PostStart:           p.day("post_start", req.PostStart),
		PostEnd:             p.day("post_end", req.PostEnd),
		SimilarityThreshold: req.SimilarityThreshold,
		MinEvidence:         req.MinEvidence,
		TopK:                req.TopK,
		MaxExamples:         req.MaxExamples,
		SkipExplanation:     req.SkipExplanation,
	}
	if p.err != nil {
		s.badRequest(c, p.err.Error())
		return
	}

	resp, err := s.service.Report(c.Request.Context(), rr)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body")
		return
	}

	results, err := s.searcher.Search(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": req.Query, "results": results})
}

func (s *Server) QA(c *gin.Context) {
	var req QARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body")
		return
	}

	answer, err := s.searcher.Ask(c.Request.Context(), req.Question, req.TopK)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}
