package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

var (
	limiter = rate.NewLimiter(20, 100)

	endpointCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "library_endpoint_calls_total",
		Help: "Total number of calls per endpoint.",
	}, []string{"endpoint"})
	errorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "library_errors_total",
		Help: "Total number of internal errors per endpoint.",
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(endpointCounter)
	prometheus.MustRegister(errorCounter)
}

func rateLimit() gin.HandlerFunc {
	return func(ginCtx *gin.Context) {
		if !limiter.Allow() {
			ginCtx.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"error": "the API is at capacity, try again later"})
			return
		}
		ginCtx.Next()
	}
}

func countRequests() gin.HandlerFunc {
	return func(ginCtx *gin.Context) {
		endpointCounter.WithLabelValues(ginCtx.FullPath()).Inc()
		ginCtx.Next()
	}
}

func countError(endpoint string) {
	errorCounter.WithLabelValues(endpoint).Inc()
}

func metricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
