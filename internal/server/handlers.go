package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"medrag/internal/domain"
)

type chatRequest struct {
	Question       string `json:"question"`
	IncludeSources bool   `json:"include_sources"`
}

type sourceView struct {
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// chatWithSourcesResponse always carries the sources key, empty or not.
type chatWithSourcesResponse struct {
	Answer  string       `json:"answer"`
	Sources []sourceView `json:"sources"`
}

type retrieveRequest struct {
	Question string `json:"question"`
	K        int    `json:"k"`
}

type retrieveResponse struct {
	Passages []domain.Passage `json:"passages"`
}

type statsResponse struct {
	domain.Stats
	Embedding domain.EmbeddingInfo `json:"embedding"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body.")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Empty question provided.")
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	answer, err := s.answerer.Ask(ctx, req.Question)
	if err != nil {
		return s.pipelineError(ctx, err)
	}

	if !req.IncludeSources {
		return c.JSON(http.StatusOK, chatResponse{Answer: answer.Text})
	}
	sources := make([]sourceView, len(answer.Sources))
	for i, p := range answer.Sources {
		sources[i] = sourceView{Source: p.Source, Page: p.Page, Score: p.Score, Text: p.Text}
	}
	return c.JSON(http.StatusOK, chatWithSourcesResponse{Answer: answer.Text, Sources: sources})
}

func (s *Server) retrieve(c echo.Context) error {
	var req retrieveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body.")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Empty question provided.")
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	passages, err := s.retriever.Retrieve(ctx, req.Question, req.K)
	if err != nil {
		return s.pipelineError(ctx, err)
	}
	if passages == nil {
		passages = []domain.Passage{}
	}
	return c.JSON(http.StatusOK, retrieveResponse{Passages: passages})
}

func (s *Server) stats(c echo.Context) error {
	stats, err := s.index.GetStats()
	if err != nil {
		return err
	}
	info, err := s.index.GetEmbeddingInfo()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statsResponse{Stats: stats, Embedding: info})
}

func (s *Server) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout <= 0 {
		return context.WithCancel(c.Request().Context())
	}
	return context.WithTimeout(c.Request().Context(), s.cfg.RequestTimeout)
}

// pipelineError maps an expired request deadline to 408 and anything
// else to 500 with the error text as detail.
func (s *Server) pipelineError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return echo.NewHTTPError(http.StatusRequestTimeout, "Request timed out.").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
}
