package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/tr4cks/firmod/controller"
	"github.com/tr4cks/firmod/modules"
)

func newRouter(config *Config, ctrl *controller.Controller, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), LoggerMiddleware(logger))
	router.SetTrustedProxies(nil)

	var withAuth gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if config.Username != "" {
		withAuth = gin.BasicAuth(gin.Accounts{config.Username: config.Password})
	}

	api := router.Group("/api")
	{
		api.GET("/status", ModuleStateMiddleware(ctrl, logger), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": c.MustGet("status"),
			})
		})

		api.GET("/parameters", ModuleStateMiddleware(ctrl, logger), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":     c.MustGet("status"),
				"parameters": c.MustGet("parameters"),
			})
		})

		api.PUT("/parameters", withAuth, func(c *gin.Context) {
			var parameters map[string]interface{}
			err := c.ShouldBindJSON(&parameters)
			if err != nil && !errors.Is(err, io.EOF) {
				respondError(c, logger, http.StatusBadRequest, err)
				return
			}
			state, err := ctrl.Configure(c.Request.Context(), parameters)
			if err != nil {
				respondError(c, logger, statusCode(err), err)
				return
			}
			c.JSON(http.StatusOK, state)
		})

		api.POST("/init", withAuth, func(c *gin.Context) {
			state, err := ctrl.Init(c.Request.Context())
			if err != nil {
				respondError(c, logger, statusCode(err), err)
				return
			}
			c.JSON(http.StatusOK, state)
		})

		api.POST("/update", func(c *gin.Context) {
			state, err := ctrl.Update(c.Request.Context())
			if err != nil {
				respondError(c, logger, statusCode(err), err)
				return
			}
			c.JSON(http.StatusOK, state)
		})
	}

	return router
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, modules.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, controller.ErrStopped), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger zerolog.Logger, code int, err error) {
	logger.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Module operation failed")
	c.JSON(code, gin.H{
		"status": "ko",
		"error":  err.Error(),
	})
}

// runServer serves the HTTP API until ctx is done.
func runServer(ctx context.Context, config *Config, ctrl *controller.Controller, logger zerolog.Logger) error {
	server := &http.Server{
		Addr:    config.Listen,
		Handler: newRouter(config, ctrl, logger),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("address", config.Listen).Msg("HTTP API listening")
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info().Msg("HTTP API stopped")
	return nil
}
