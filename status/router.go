package status

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kbukum/prefetchkit/errors"
	"github.com/kbukum/prefetchkit/logger"
	"github.com/kbukum/prefetchkit/version"
)

// NewRouter returns a gin engine serving reg.
func NewRouter(serviceName string, reg *Registry, log *logger.Logger) *gin.Engine {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("status")

	engine := gin.New()
	engine.Use(recovery(log), requestLogger(log))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	engine.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get())
	})
	engine.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": reg.Snapshot()})
	})
	engine.GET("/stats/:id", func(c *gin.Context) {
		st, ok := reg.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, errors.NotFound("session "+c.Param("id")).ToResponse())
			return
		}
		c.JSON(http.StatusOK, st)
	})
	return engine
}

// recovery turns a handler panic into a 500 with an INTERNAL_ERROR body.
func recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("Panic recovered", logger.Fields(
					"error", fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
				))
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					errors.Internal(fmt.Errorf("%v", rec)).ToResponse())
			}
		}()
		c.Next()
	}
}

// requestLogger logs every request except health checks at debug level.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		log.Debug("HTTP request", logger.MergeWithDuration(logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		), time.Since(start)))
	}
}
