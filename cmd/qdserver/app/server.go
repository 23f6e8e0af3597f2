package app

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/qdlab/qd-analyzer/internal/analysis"
	"github.com/qdlab/qd-analyzer/internal/chart"
	"github.com/qdlab/qd-analyzer/internal/config"
	"github.com/qdlab/qd-analyzer/internal/summary"
)

const (
	KindLIV Kind = "liv"
	KindOSA Kind = "osa"

	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatPNG  = "png"

	uploadField   = "files"
	messageHeader = "X-Analysis-Message"

	msgNoUpload = "请先上传 CSV 文件！"
)

// Kind selects the analyzer
type Kind string

// Server is the upload API: CSV files are uploaded, analyzed in a temporary
// folder and the summary is returned.
type Server struct {
	logger      *slog.Logger
	uploadLimit int64
	renderer    *chart.Renderer
}

// NewServer creates a Server from the configuration
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	limit, err := cfg.Server.UploadLimit()
	if err != nil {
		return nil, err
	}

	renderer, err := chart.NewRenderer(chart.RenderConfig{
		Width:  cfg.Server.Chart.Width,
		Height: cfg.Server.Chart.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chart renderer: %w", err)
	}

	return &Server{
		logger:      logger,
		uploadLimit: limit,
		renderer:    renderer,
	}, nil
}

// Handler returns the HTTP handler of the API
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.POST("/analyze/:kind", s.handleAnalyze)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		size := max(c.Writer.Size(), 0)
		s.logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.String("size", humanize.Bytes(uint64(size))),
			slog.Duration("latency", time.Since(start)))
	}
}

// SummaryPayload is a summary table in JSON responses
type SummaryPayload struct {
	Filename string     `json:"filename"`
	Header   []string   `json:"header"`
	Rows     [][]string `json:"rows"`
}

// AnalyzeResponse is the JSON response of an analysis
type AnalyzeResponse struct {
	ID      string          `json:"id"`
	Message string          `json:"message"`
	Summary *SummaryPayload `json:"summary,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// result is an analysis run on uploaded files.
type result struct {
	message     string
	summaryName string
	summaryPath string
	chart       *chart.Chart // nil when the analysis failed
}

func (s *Server) handleAnalyze(c *gin.Context) {
	kind := Kind(c.Param("kind"))
	if kind != KindLIV && kind != KindOSA {
		c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown analysis '%s'", kind)})
		return
	}

	format := c.DefaultQuery("format", FormatJSON)
	if format != FormatJSON && format != FormatCSV && format != FormatPNG {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown format '%s'", format)})
		return
	}

	id := uuid.NewString()
	logger := s.logger.With(slog.String("analysisID", id), slog.String("kind", string(kind)))

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.uploadLimit)
	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("upload exceeds %s", humanize.IBytes(uint64(s.uploadLimit))),
			})
			return
		}
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgNoUpload})
		return
	}

	files := form.File[uploadField]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgNoUpload})
		return
	}
	for _, f := range files {
		if !strings.HasSuffix(f.Filename, ".csv") {
			c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("not a csv file: '%s'", f.Filename)})
			return
		}
	}

	dir, err := os.MkdirTemp("", "qd-"+id+"-")
	if err != nil {
		logger.Error(fmt.Sprintf("creating upload folder: %s", err.Error()))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "creating upload folder"})
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("removing upload folder", slog.String("error", err.Error()))
		}
	}()

	if err = stageUploads(c, dir, files); err != nil {
		logger.Error(err.Error())
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "storing uploaded files"})
		return
	}

	logger.Info("analyzing upload", slog.Int("files", len(files)))

	res := s.analyze(kind, dir, logger)
	s.respond(c, id, format, res)
}

// stageUploads stores the uploaded files flat inside dir. Files with the same
// name replace each other.
func stageUploads(c *gin.Context, dir string, files []*multipart.FileHeader) error {
	for _, f := range files {
		name := filepath.Base(f.Filename)
		if err := c.SaveUploadedFile(f, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("storing '%s': %w", name, err)
		}
	}
	return nil
}

func (s *Server) analyze(kind Kind, dir string, logger *slog.Logger) result {
	opts := []analysis.Option{analysis.WithLogger(logger)}

	switch kind {
	case KindOSA:
		report, err := analysis.OSA(dir, opts...)
		if err != nil {
			return result{message: analysis.ErrorMessage(err)}
		}
		return result{
			message:     report.Message(),
			summaryName: analysis.OSASummaryFile,
			summaryPath: report.SummaryPath,
			chart:       osaChart(report),
		}

	default:
		report, err := analysis.LIV(dir, opts...)
		if err != nil {
			return result{message: analysis.ErrorMessage(err)}
		}
		return result{
			message:     report.Message(),
			summaryName: analysis.LIVSummaryFile,
			summaryPath: report.SummaryPath,
			chart:       livChart(report),
		}
	}
}

func (s *Server) respond(c *gin.Context, id, format string, res result) {
	resp := AnalyzeResponse{ID: id, Message: res.message}

	if res.summaryPath == "" {
		status := http.StatusOK
		if format != FormatJSON {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, resp)
		return
	}

	switch format {
	case FormatCSV:
		p, err := os.ReadFile(res.summaryPath)
		if err != nil {
			s.internalError(c, fmt.Errorf("reading summary: %w", err))
			return
		}
		c.Header(messageHeader, url.QueryEscape(res.message))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.summaryName))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", p)

	case FormatPNG:
		img, err := s.renderer.Render(res.chart)
		if errors.Is(err, chart.ErrNoBars) {
			c.JSON(http.StatusUnprocessableEntity, resp)
			return
		}
		if err != nil {
			s.internalError(c, fmt.Errorf("rendering chart: %w", err))
			return
		}
		var buf bytes.Buffer
		if err = png.Encode(&buf, img); err != nil {
			s.internalError(c, fmt.Errorf("encoding chart: %w", err))
			return
		}
		c.Header(messageHeader, url.QueryEscape(res.message))
		c.Data(http.StatusOK, "image/png", buf.Bytes())

	default:
		table, err := summary.Read(res.summaryPath)
		if err != nil {
			s.internalError(c, fmt.Errorf("reading summary: %w", err))
			return
		}
		resp.Summary = &SummaryPayload{
			Filename: res.summaryName,
			Header:   table.Header,
			Rows:     table.Rows,
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error(err.Error())
	c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
