package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"image"
	"log"
	"net/http"
	"time"

	"github.com/andresmejia3/facekit/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const requestIDHeader = "X-Request-ID"

// Classifier is the one forward pass the UI needs. *inference.Predictor satisfies it.
type Classifier interface {
	Predict(img image.Image) (types.Prediction, error)
}

type Options struct {
	PreviewWidth   uint
	MaxUploadBytes int64
	Debug          bool
}

// Server is the single-page upload-and-predict UI. The classifier and its
// label mapping are loaded by the caller once, before the server starts.
type Server struct {
	classifier Classifier
	opts       Options
	router     *gin.Engine
}

func New(classifier Classifier, opts Options) *Server {
	if opts.PreviewWidth == 0 {
		opts.PreviewWidth = 200
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{classifier: classifier, opts: opts}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), requestID)
	_ = router.SetTrustedProxies(nil)
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept"},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.MaxMultipartMemory = s.opts.MaxUploadBytes

	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.tmpl")))

	router.GET("/", s.index)
	router.POST("/predict", s.predict)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled. With TLS domains it obtains
// certificates through Let's Encrypt, otherwise it listens on addr.
func (s *Server) Run(ctx context.Context, addr string, domains []string) error {
	if len(domains) > 0 {
		log.Printf("[SERVE] Serving %v with automatic TLS", domains)
		return autotls.RunWithContext(ctx, s.router, domains...)
	}

	srv := &http.Server{Addr: addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[SERVE] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set("requestID", id)
	c.Header(requestIDHeader, id)
	c.Next()
}
