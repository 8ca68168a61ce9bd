package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cafes/internal/model"
)

// DefaultAddress matches the port the service has always listened on.
const DefaultAddress = "127.0.0.1:5000"

//go:embed templates/*.html
var templateFS embed.FS

// CafeStore is the storage the handlers depend on.
type CafeStore interface {
	Random(ctx context.Context) (model.Cafe, error)
	List(ctx context.Context) ([]model.Cafe, error)
	FindByLocation(ctx context.Context, loc string) (model.Cafe, error)
	Insert(ctx context.Context, c model.NewCafe) (int64, error)
	UpdatePrice(ctx context.Context, id int64, price *string) error
	Delete(ctx context.Context, id int64) error
}

// ServerOptions configures the HTTP server.
type ServerOptions struct {
	Addr string
	// APIKey authorizes DELETE /report-closed. Empty refuses every delete.
	APIKey            string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	Logger            *log.Logger
}

// Server hosts the cafe API.
type Server struct {
	http   *http.Server
	engine *gin.Engine
	store  CafeStore
	apiKey string
	logger *log.Logger
	opts   ServerOptions
}

// NewServer constructs a new API server backed by store.
// The server does not start listening until Start is called.
func NewServer(store CafeStore, opts ServerOptions) *Server {
	if store == nil {
		panic("api.NewServer: store is nil")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddress
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(requestLogger(opts.Logger), recoverer(opts.Logger))
	engine.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	s := &Server{
		engine: engine,
		store:  store,
		apiKey: opts.APIKey,
		logger: opts.Logger,
		opts:   opts,
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           engine,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       opts.IdleTimeout,
			ErrorLog:          opts.Logger,
			BaseContext: func(l net.Listener) context.Context {
				return context.Background()
			},
		},
	}

	// Routes
	engine.GET("/", s.handleHome)
	engine.GET("/random", s.handleRandom)
	engine.GET("/all", s.handleAll)
	engine.GET("/search", s.handleSearch)
	engine.POST("/add", s.handleAdd)
	engine.PATCH("/update-price/:id", s.handleUpdatePrice)
	engine.DELETE("/report-closed/:id", s.handleReportClosed)

	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving HTTP in a background goroutine.
// It returns immediately; use Stop for graceful shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.Printf("api: listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("api: ListenAndServe error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server, waiting up to ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.opts.ShutdownTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}

// requestLogger writes one access line per request.
func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Printf("%s %s %d %dms", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Milliseconds())
	}
}

// recoverer turns a handler panic into the server error envelope.
func recoverer(logger *log.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(logger.Writer(), func(c *gin.Context, recovered any) {
		writeError(c, http.StatusInternalServerError, "Server error")
		c.Abort()
	})
}
