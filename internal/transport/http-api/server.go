// Package httpapi exposes the chat router and loan lookups over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/observability"
	faqclassifier "loan-assistant/internal/conversation/faq-classifier"
	"loan-assistant/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ChatReplier answers a chat message.
type ChatReplier interface {
	Reply(ctx context.Context, message, token string) string
}

// LoanReader backs the direct lookup and diagnostics endpoints.
type LoanReader interface {
	FindLoan(ctx context.Context, loanID, accountNumber string) (*models.LoanRecord, error)
	SampleLoans(ctx context.Context, limit int) ([]models.LoanRecord, error)
	Ping(ctx context.Context) error
}

// IntentCatalog is the FAQ catalog as seen by the admin endpoints.
type IntentCatalog interface {
	Catalog() *faqclassifier.Catalog
	AddIntent(intent models.Intent) error
}

type Config struct {
	AllowedOrigins   []string
	MaxMessageLength int
	AdminEnabled     bool
	MetricsEnabled   bool
}

type Dependencies struct {
	Chat          ChatReplier
	Loans         LoanReader
	Intents       IntentCatalog
	Observability *observability.Observability
	Logger        logger.Logger
}

type Server struct {
	deps   Dependencies
	config Config
	logger logger.Logger
}

func New(deps Dependencies, config Config) *Server {
	if config.MaxMessageLength <= 0 {
		config.MaxMessageLength = 1000
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Server{
		deps:   deps,
		config: config,
		logger: log.With(map[string]interface{}{"component": "http-api"}),
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestMetrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = s.config.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	if len(corsConfig.AllowOrigins) > 0 {
		router.Use(cors.New(corsConfig))
	}

	api := router.Group("/api")
	{
		api.POST("/chat", s.chat)
		api.GET("/loan-details/:loan_id/:account_number", s.loanDetails)
		api.GET("/loan-status/:loan_id/:account_number", s.loanDetails)
		api.GET("/emi-details/:loan_id/:account_number", s.emiDetails)
		api.GET("/health", s.health)
		api.GET("/db-test", s.dbTest)
		api.GET("/intents", s.listIntents)
		if s.config.AdminEnabled {
			api.POST("/intents", s.addIntent)
		}
	}

	if s.config.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	return router
}

// HTTPServer wraps Handler in an http.Server with the configured timeouts.
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.deps.Observability.RecordRequest(c.Request.Context(), route, c.Writer.Status(), time.Since(start))
	}
}
