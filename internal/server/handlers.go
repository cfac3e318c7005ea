package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"plantprofit/internal/config"
	"plantprofit/internal/domain"
	"plantprofit/internal/farmmodel"
	"plantprofit/internal/logging"
	"plantprofit/internal/service"
)

const degradedAnswer = "AI features are currently unavailable. Crop data, the farm model and the optimizer still work; please try the assistant again later."

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

type optimizeRequest struct {
	Model  json.RawMessage `json:"model"`
	Acres  float64         `json:"acres"`
	Budget float64         `json:"budget"`
}

type carbonRequest struct {
	Practice string  `json:"practice"`
	Acres    float64 `json:"acres"`
}

// ingest runs detached from the client connection so a disconnect cannot
// abandon a half-written upsert.
func (s *Server) ingest(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), config.Seconds(s.cfg.IngestTimeoutSecs))
	defer cancel()

	stats, err := s.svc.Ingest(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": stats.Count, "backend": stats.Backend})
}

func (s *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.Seconds(s.cfg.QueryTimeoutSecs))
	defer cancel()

	res, err := s.svc.Query(ctx, req.Query, req.TopK)
	if err != nil {
		if errors.Is(err, domain.ErrServiceUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			logging.Warnf("http", "query degraded rid=%s: %v", c.GetString(requestIDKey), err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "answer": degradedAnswer})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) farmModel(c *gin.Context) {
	var p farmmodel.Params
	if err := bindOptionalJSON(c, &p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "model": s.svc.FarmModel(p)})
}

func (s *Server) optimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.Seconds(s.cfg.QueryTimeoutSecs))
	defer cancel()

	res, err := s.svc.Optimize(ctx, service.OptimizeRequest{Model: req.Model, Acres: req.Acres, Budget: req.Budget})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) projections(c *gin.Context) {
	var sc farmmodel.Scenario
	if err := bindOptionalJSON(c, &sc); err != nil {
		respondError(c, err)
		return
	}
	switch sc.Mode {
	case "", domain.Annual, domain.Perennial:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be annual or perennial"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "scenario": sc, "projections": s.svc.Project(sc)})
}

func (s *Server) carbonCredits(c *gin.Context) {
	var req carbonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	est, err := s.svc.CarbonCredits(req.Practice, req.Acres)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

func (s *Server) usdaProxy(c *gin.Context) {
	res, err := s.svc.USDA(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(res.Status, res.ContentType, res.Body)
}

func (s *Server) weather(c *gin.Context) {
	lat, err := optionalFloat(c, "lat")
	if err != nil {
		respondError(c, err)
		return
	}
	lon, err := optionalFloat(c, "lon")
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := s.svc.Weather(c.Request.Context(), lat, lon)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) crops(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", s.svc.CatalogJSON())
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "pid": os.Getpid(), "timestamp": time.Now().UnixMilli()})
}

// bindOptionalJSON decodes the body when there is one; an empty body leaves
// v at its zero value.
func bindOptionalJSON(c *gin.Context, v any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(v); err != nil {
		return badRequest(err)
	}
	return nil
}

func optionalFloat(c *gin.Context, name string) (*float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, badRequest(errors.New(name + " must be a number"))
	}
	return &v, nil
}
