// Package api provides the REST API server for mml2midi
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/james-see/mml2midi/pkg/config"
	"github.com/james-see/mml2midi/pkg/converter"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title MML2MIDI API
// @version 1.0
// @description API for converting between Mabinogi MML and Standard MIDI Files
// @host localhost:8080
// @BasePath /api/v1

// RequestIDHeader carries the request ID in requests and responses
const RequestIDHeader = "X-Request-ID"

const loggerKey = "logger"

// Server serves the conversion API
type Server struct {
	cfg    *config.Config
	logger *log.Logger
}

// NewServer creates a server. A nil cfg uses the defaults.
func NewServer(cfg *config.Config, logger *log.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{cfg: cfg, logger: logger}
}

// Router builds the gin engine with all routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestID())
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/convert/mml2midi", s.handleMMLToMIDI)
		v1.POST("/convert/midi2mml", s.handleMIDIToMML)
		v1.POST("/format", s.handleFormat)
		v1.POST("/inspect", s.handleInspect)
		v1.GET("/formats", listFormats)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// Run listens on the configured port
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.logger.Info("starting API server", "addr", addr)
	return s.Router().Run(addr)
}

// StartServer starts the API server with the given settings
func StartServer(cfg *config.Config, logger *log.Logger) error {
	return NewServer(cfg, logger).Run()
}

// requestID tags every request with an ID, reusing one sent by the client,
// and logs the request once it completes
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		logger := s.logger.With("request_id", id)
		c.Set(loggerKey, logger)

		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

func requestLogger(c *gin.Context) *log.Logger {
	if l, ok := c.Get(loggerKey); ok {
		if logger, ok := l.(*log.Logger); ok {
			return logger
		}
	}
	return log.Default()
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "mml2midi",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns a list of supported file formats
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{string(converter.FormatMML), string(converter.FormatMIDI)},
		"conversions": converter.GetSupportedConversions(),
	})
}

// handleMMLToMIDI godoc
// @Summary Convert MML to MIDI
// @Description Upload an .mml file, or send MML text in the "mml" form field, and receive a MIDI file
// @Tags convert
// @Accept multipart/form-data
// @Produce audio/midi
// @Param file formData file false "MML file to convert"
// @Param mml formData string false "MML text to convert"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert/mml2midi [post]
func (s *Server) handleMMLToMIDI(c *gin.Context) {
	data, name, ok := s.readInput(c, "mml")
	if !ok {
		return
	}

	result, err := s.newConverter(c).MMLToMIDI(data)
	if err != nil {
		conversionFailed(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName(name, ".mid")))
	c.Data(http.StatusOK, "audio/midi", result)
}

// handleMIDIToMML godoc
// @Summary Convert MIDI to MML
// @Description Upload a MIDI file and receive MML text in a Mabinogi envelope
// @Tags convert
// @Accept multipart/form-data
// @Produce text/plain
// @Param file formData file true "MIDI file to convert"
// @Param pad query bool false "Pad every track to the score length"
// @Success 200 {string} string
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert/midi2mml [post]
func (s *Server) handleMIDIToMML(c *gin.Context) {
	data, name, ok := s.readInput(c, "")
	if !ok {
		return
	}

	result, err := s.newConverter(c).MIDIToMML(data)
	if err != nil {
		conversionFailed(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName(name, ".mml")))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", result)
}

// handleFormat godoc
// @Summary Normalize MML
// @Description Parse MML and write it back in canonical form
// @Tags convert
// @Accept multipart/form-data
// @Produce json
// @Param mml formData string false "MML text"
// @Param file formData file false "MML file"
// @Param pad query bool false "Pad every track to the score length"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/format [post]
func (s *Server) handleFormat(c *gin.Context) {
	data, _, ok := s.readInput(c, "mml")
	if !ok {
		return
	}

	result, err := s.newConverter(c).FormatMML(data)
	if err != nil {
		conversionFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mml": string(result)})
}

// TrackSummary describes one track of a score
type TrackSummary struct {
	Notes  int    `json:"notes"`
	Length int    `json:"length"`
	Text   string `json:"text"`
}

// TempoSummary is one tempo change
type TempoSummary struct {
	Tick int `json:"tick"`
	BPM  int `json:"bpm"`
}

// InspectResponse summarizes a score
type InspectResponse struct {
	Length int            `json:"length"`
	Tempo  []TempoSummary `json:"tempo"`
	Tracks []TrackSummary `json:"tracks"`
}

// handleInspect godoc
// @Summary Inspect a score
// @Description Parse MML or MIDI and report its tracks and tempo changes
// @Tags info
// @Accept multipart/form-data
// @Produce json
// @Param mml formData string false "MML text"
// @Param file formData file false "MML or MIDI file"
// @Success 200 {object} InspectResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/inspect [post]
func (s *Server) handleInspect(c *gin.Context) {
	data, _, ok := s.readInput(c, "mml")
	if !ok {
		return
	}

	var score *converter.Score
	var err error
	if converter.DetectFormatFromContent(data) == converter.FormatMIDI {
		score, err = converter.NewMIDIConverter(requestLogger(c)).ParseMIDI(data)
	} else {
		score, err = converter.ParseScore(string(data))
	}
	if err != nil {
		conversionFailed(c, err)
		return
	}

	resp := InspectResponse{Length: score.Length(), Tempo: []TempoSummary{}}
	for ev := range score.Tempo.All() {
		resp.Tempo = append(resp.Tempo, TempoSummary{Tick: ev.TickOffset, BPM: ev.BPM})
	}
	for i, t := range score.Tracks {
		text, err := t.ToText(i == 0, 0)
		if err != nil {
			conversionFailed(c, err)
			return
		}
		resp.Tracks = append(resp.Tracks, TrackSummary{
			Notes:  len(t.Notes()),
			Length: t.Length(),
			Text:   text,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// newConverter builds a per-request converter so handlers share no state
func (s *Server) newConverter(c *gin.Context) *converter.Converter {
	pad := s.cfg.Convert.PadTracks
	if v, ok := c.GetQuery("pad"); ok {
		pad = v == "true" || v == "1"
	}
	return converter.New(
		converter.WithLogger(requestLogger(c)),
		converter.WithPadTracks(pad),
	)
}

// readInput returns the uploaded file, or the text of field when no file was
// sent. An empty field name means a file is required.
func (s *Server) readInput(c *gin.Context, field string) ([]byte, string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err == nil {
		defer func() { _ = file.Close() }()
		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
			return nil, "", false
		}
		return data, header.Filename, true
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return nil, "", false
	}

	if field != "" {
		if text := c.PostForm(field); strings.TrimSpace(text) != "" {
			return []byte(text), "", true
		}
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
	return nil, "", false
}

func conversionFailed(c *gin.Context, err error) {
	requestLogger(c).Warn("conversion failed", "err", err)
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
}

func outputName(input, ext string) string {
	if input == "" {
		return "converted" + ext
	}
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}
