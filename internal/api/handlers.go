package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// handleRoot returns a service banner with usage hints.
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "crypto-covered-call-scanner",
		"usage":   "GET /api/scan/:asset for covered call strategies, GET /api/assets for the supported assets",
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(c *gin.Context) {
	cacheStatus := "healthy"
	if s.cacheHealth != nil && !s.cacheHealth.IsHealthy() {
		cacheStatus = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"provider": s.config.ProviderName,
		"cache":    cacheStatus,
		"uptime":   time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleGetAssets lists the configured asset groups and their ETF tickers.
func (s *Server) handleGetAssets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"assets": s.universe.Assets(),
		"groups": s.universe.Groups(),
	})
}

// handleScanAsset returns the covered call report for one asset group,
// served from cache when a fresh report exists.
func (s *Server) handleScanAsset(c *gin.Context) {
	asset := strings.ToUpper(c.Param("asset"))

	if !s.universe.Has(asset) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "unknown asset",
			"asset":   asset,
			"message": "asset is not in the configured universe, see /api/assets",
		})
		return
	}

	report, err := s.scanner.Report(c.Request.Context(), asset)
	if err != nil {
		s.logger.Error().Err(err).Str("asset", asset).Msg("scan failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "scan failed",
			"asset":   asset,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}
