package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tonnomolt/housing-prices-fi/internal/config"
	"github.com/tonnomolt/housing-prices-fi/internal/ingest"
	"github.com/tonnomolt/housing-prices-fi/internal/jsonstat"
	"github.com/tonnomolt/housing-prices-fi/internal/statapi"
	"github.com/tonnomolt/housing-prices-fi/internal/store"
)

// PriceReader is the read-query surface the API serves from storage.
type PriceReader interface {
	DistinctPeriods(ctx context.Context) ([]time.Time, error)
	PricesForArea(ctx context.Context, areaCode, categoryCode string) ([]store.PricePoint, error)
	Categories(ctx context.Context) ([]store.CanonicalCategory, error)
}

// Ingestor triggers an ingestion run for a configured source.
type Ingestor interface {
	IngestSource(ctx context.Context, src config.Source) (*ingest.RunSummary, error)
}

// Handler holds the API dependencies.
type Handler struct {
	reader   PriceReader
	ingestor Ingestor
	sources  map[string]config.Source
}

// NewHandler creates an API handler over the given collaborators.
func NewHandler(reader PriceReader, ingestor Ingestor, sources []config.Source) *Handler {
	byName := make(map[string]config.Source, len(sources))
	for _, src := range sources {
		byName[src.Name] = src
	}
	return &Handler{reader: reader, ingestor: ingestor, sources: byName}
}

// RegisterRoutes attaches all routes to the engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/periods", h.listPeriods)
		v1.GET("/areas/:area/prices", h.listAreaPrices)
		v1.GET("/categories", h.listCategories)
		v1.POST("/sources/:name/ingest", h.triggerIngest)
	}
}

func (h *Handler) listPeriods(c *gin.Context) {
	periods, err := h.reader.DistinctPeriods(c.Request.Context())
	if err != nil {
		log.Printf("Failed to list periods: %v", err)
		RespondWithError(c, http.StatusInternalServerError, ErrorCodeInternalServerError, "Failed to list periods", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

func (h *Handler) listAreaPrices(c *gin.Context) {
	areaCode := c.Param("area")
	categoryCode := c.Query("category")

	prices, err := h.reader.PricesForArea(c.Request.Context(), areaCode, categoryCode)
	if err != nil {
		log.Printf("Failed to list prices for area %s: %v", areaCode, err)
		RespondWithError(c, http.StatusInternalServerError, ErrorCodeInternalServerError, "Failed to list prices", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"area_code": areaCode, "prices": prices})
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.reader.Categories(c.Request.Context())
	if err != nil {
		log.Printf("Failed to list categories: %v", err)
		RespondWithError(c, http.StatusInternalServerError, ErrorCodeInternalServerError, "Failed to list categories", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) triggerIngest(c *gin.Context) {
	name := c.Param("name")
	src, ok := h.sources[name]
	if !ok {
		RespondWithError(c, http.StatusNotFound, ErrorCodeSourceNotFound, "No configured source with that name", gin.H{"source": name})
		return
	}

	summary, err := h.ingestor.IngestSource(c.Request.Context(), src)
	if err != nil {
		log.Printf("Ingestion for source %s failed: %v", name, err)

		var fetchErr *statapi.FetchError
		if errors.As(err, &fetchErr) {
			RespondWithError(c, http.StatusBadGateway, ErrorCodeUpstreamFetch, "Statistics API request failed", gin.H{
				"url": fetchErr.URL, "status": fetchErr.StatusCode,
			})
			return
		}
		var schemaErr *jsonstat.SchemaError
		if errors.As(err, &schemaErr) {
			RespondWithError(c, http.StatusBadGateway, ErrorCodeDatasetSchema, "Dataset payload failed schema checks", gin.H{
				"reason": schemaErr.Reason,
			})
			return
		}
		RespondWithError(c, http.StatusInternalServerError, ErrorCodeInternalServerError, "Ingestion failed", nil)
		return
	}
	c.JSON(http.StatusOK, summary)
}
