package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tr4cks/firmod/controller"
)

const requestIDHeader = "X-Request-Id"

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func LoggerMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info().
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

func ModuleStateMiddleware(ctrl *controller.Controller, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := ctrl.State(c.Request.Context())

		if state.Err != nil {
			logger.Error().Err(state.Err).Msg("Failed to retrieve module state")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"status": "ko",
				"error":  "module is unavailable",
			})
			return
		}

		c.Set("status", state.Value.Status)
		c.Set("parameters", state.Value.Parameters)

		c.Next()
	}
}
