package transport

import (
	"fmt"
	"net/http"
	"time"

	"go-rhythm-inspector/internal/analyzer"
	apperrors "go-rhythm-inspector/internal/errors"
	"go-rhythm-inspector/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Transport-level messages, verbatim from the original service contract.
const (
	msgFileParamRequired = "Параметр 'file' обязателен"
	msgFilePathRequired  = "Поле 'file_path' обязательно"
	msgBadJSON           = "Неверный JSON формат"
	msgRouteNotFound     = "Эндпоинт не найден"
	msgInternalError     = "Внутренняя ошибка сервера"
	msgHealthy           = "Сервис Essentia работает корректно"
)

// AnalyzeRequest is the POST /analyze body.
type AnalyzeRequest struct {
	FilePath string `json:"file_path"`
}

// NewHandler builds the gin router for the rhythm analysis service.
func NewHandler(a analyzer.AudioAnalyzer) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		allowAllOrigins(),
		requestLogger(),
		gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				analyzer.ErrorEnvelope{Error: fmt.Sprintf("%s: %v", msgInternalError, recovered)})
		}),
	)

	r.GET("/health", healthCheck(a))
	r.GET("/analyze", analyzeByQuery(a))
	r.POST("/analyze", analyzeByBody(a))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, analyzer.ErrorEnvelope{Error: msgRouteNotFound})
	})

	return r
}

// healthCheck probes the engine on every call; availability is never cached.
func healthCheck(a analyzer.AudioAnalyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.ProbeEngine(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, analyzer.ErrorEnvelope{Error: apperrors.Message(err)})
			return
		}
		c.JSON(http.StatusOK, analyzer.Health{
			Status:            "healthy",
			EssentiaAvailable: true,
			Message:           msgHealthy,
		})
	}
}

func analyzeByQuery(a analyzer.AudioAnalyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		file := c.Query("file")
		if file == "" {
			c.JSON(http.StatusBadRequest, analyzer.ErrorEnvelope{Error: msgFileParamRequired})
			return
		}
		respondAnalysis(c, a, file)
	}
}

func analyzeByBody(a analyzer.AudioAnalyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, analyzer.ErrorEnvelope{Error: msgBadJSON})
			return
		}
		if req.FilePath == "" {
			c.JSON(http.StatusBadRequest, analyzer.ErrorEnvelope{Error: msgFilePathRequired})
			return
		}
		respondAnalysis(c, a, req.FilePath)
	}
}

// respondAnalysis runs the analysis and writes the shared envelope. Analysis
// failures reached through a valid request still answer 200: the failure
// lives in the payload, not the transport, mirroring the CLI contract.
func respondAnalysis(c *gin.Context, a analyzer.AudioAnalyzer, path string) {
	result, err := a.Analyze(c.Request.Context(), path)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"path":       path,
			"request_id": c.GetString("request_id"),
		}).Error("Audio analysis failed")
		c.JSON(http.StatusOK, analyzer.ErrorEnvelope{Error: apperrors.Message(err)})
		return
	}
	c.JSON(http.StatusOK, analyzer.AnalysisEnvelope{AudioAnalysis: result})
}

// allowAllOrigins sets the permissive cross-origin header on every response,
// including errors and unknown routes, unconditionally of the Origin header.
func allowAllOrigins() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set("request_id", requestID)

		c.Next()

		logger.WithFields(logrus.Fields{
			"request_id":  requestID,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"ip":          c.ClientIP(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Request handled")
	}
}
