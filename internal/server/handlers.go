package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/KaramelBytes/excelinsight/internal/deck"
	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/KaramelBytes/excelinsight/internal/export"
	"github.com/KaramelBytes/excelinsight/internal/parser"
	"github.com/KaramelBytes/excelinsight/internal/pipeline"
	"github.com/KaramelBytes/excelinsight/internal/profit"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
)

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Workbooks int    `json:"workbooks"`
	Downloads int    `json:"downloads"`
	Trips     int    `json:"trips"`
	MaxUpload string `json:"max_upload"`
	Uptime    string `json:"uptime"`
}

// GET /api/status
func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Workbooks: s.workbooks.len(),
		Downloads: s.downloads.len(),
		Trips:     len(s.cfg.Trips),
		MaxUpload: humanize.IBytes(uint64(s.cfg.MaxUploadBytes)),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	})
}

// WorkbookResponse describes an uploaded workbook.
type WorkbookResponse struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Size   int64    `json:"size"`
	Sheets []string `json:"sheets"`
}

// POST /api/workbooks (multipart field "file")
func (s *Server) uploadWorkbook(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, errs.Wrap(errs.ErrKindInvalidInput, "missing upload field \"file\"", err))
		return
	}
	// The declared size is checked before the file is opened or parsed.
	if fh.Size > s.cfg.MaxUploadBytes {
		err := errs.Newf(errs.ErrKindInputRejected, "%s is %s, larger than the %s limit",
			fh.Filename, humanize.IBytes(uint64(fh.Size)), humanize.IBytes(uint64(s.cfg.MaxUploadBytes)))
		_ = c.Error(err)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error(), "kind": err.Kind.String()})
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, errs.Wrap(errs.ErrKindInputRejected, "open upload", err))
		return
	}
	defer f.Close()

	wb, err := parser.Open(fh.Filename, f, fh.Size, s.cfg.MaxUploadBytes)
	if err != nil {
		s.fail(c, err)
		return
	}
	id := s.workbooks.put(wb)
	s.log.Infof("workbook %s: %s (%s, %d sheets)", id, wb.Name, humanize.Bytes(uint64(wb.Size)), len(wb.Sheets()))
	c.JSON(http.StatusCreated, WorkbookResponse{ID: id, Name: wb.Name, Size: wb.Size, Sheets: wb.Sheets()})
}

func (s *Server) workbook(c *gin.Context) (*parser.Workbook, bool) {
	id := c.Param("id")
	wb, ok := s.workbooks.get(id)
	if !ok {
		s.fail(c, errs.Newf(errs.ErrKindNotFound, "workbook %s not found or expired", id))
		return nil, false
	}
	return wb, true
}

// GET /api/workbooks/:id
func (s *Server) getWorkbook(c *gin.Context) {
	wb, ok := s.workbook(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, WorkbookResponse{ID: c.Param("id"), Name: wb.Name, Size: wb.Size, Sheets: wb.Sheets()})
}

// DELETE /api/workbooks/:id
func (s *Server) deleteWorkbook(c *gin.Context) {
	if !s.workbooks.delete(c.Param("id")) {
		s.fail(c, errs.Newf(errs.ErrKindNotFound, "workbook %s not found or expired", c.Param("id")))
		return
	}
	c.Status(http.StatusNoContent)
}

// request reads the pipeline selection from the query string.
func (s *Server) request(c *gin.Context) pipeline.Request {
	return pipeline.Request{
		Sheet:          c.Param("sheet"),
		Kind:           c.Query("kind"),
		Category:       c.Query("category"),
		Metrics:        c.QueryArray("metric"),
		EditedInsights: c.QueryArray("edit"),
		PreviewRows:    s.cfg.PreviewRows,
	}
}

func (s *Server) view(c *gin.Context, req pipeline.Request) (*pipeline.View, bool) {
	wb, ok := s.workbook(c)
	if !ok {
		return nil, false
	}
	v, err := pipeline.Run(c.Request.Context(), wb, req)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return v, true
}

// GET /api/workbooks/:id/sheets/:sheet
func (s *Server) getView(c *gin.Context) {
	v, ok := s.view(c, s.request(c))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v)
}

// GET /api/workbooks/:id/sheets/:sheet/chart.png
func (s *Server) getChart(c *gin.Context) {
	v, ok := s.view(c, s.request(c))
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := v.RenderChart(&buf, s.cfg.ChartSize); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", v.Chart.FileName))
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// ClipboardRequest carries edited insight text.
type ClipboardRequest struct {
	Insights []string `json:"insights"`
}

// ClipboardResponse is the composed text and any copy warning.
type ClipboardResponse struct {
	Text    string `json:"text"`
	Copied  bool   `json:"copied"`
	Warning string `json:"warning,omitempty"`
}

// POST /api/workbooks/:id/sheets/:sheet/clipboard
func (s *Server) postClipboard(c *gin.Context) {
	var body ClipboardRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			s.fail(c, errs.Wrap(errs.ErrKindInvalidInput, "decode request", err))
			return
		}
	}
	req := s.request(c)
	if len(body.Insights) > 0 {
		req.EditedInsights = body.Insights
	}
	v, ok := s.view(c, req)
	if !ok {
		return
	}
	text, err := v.ClipboardText()
	if err != nil {
		s.fail(c, err)
		return
	}
	resp := ClipboardResponse{Text: text}
	if s.cfg.Clipboard != nil {
		if err := export.Copy(s.cfg.Clipboard, text); err != nil {
			s.log.Warnf("clipboard: %v", err)
			resp.Warning = err.Error()
		} else {
			resp.Copied = true
		}
	}
	c.JSON(http.StatusOK, resp)
}

// DeckRequest selects the slides of a deck.
type DeckRequest struct {
	Title   string   `json:"title"`
	Kinds   []string `json:"kinds"`
	Profile bool     `json:"profile"`
}

// DeckResponse points at the finished deck.
type DeckResponse struct {
	Token    string   `json:"token"`
	URL      string   `json:"url"`
	Slides   int      `json:"slides"`
	Location string   `json:"location,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// POST /api/workbooks/:id/sheets/:sheet/deck
func (s *Server) postDeck(c *gin.Context) {
	var body DeckRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			s.fail(c, errs.Wrap(errs.ErrKindInvalidInput, "decode request", err))
			return
		}
	}
	v, ok := s.view(c, s.request(c))
	if !ok {
		return
	}
	specs, err := v.DeckSpecs(body.Kinds)
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	res, err := deck.Build(&buf, v.Table(), specs, deck.Options{Title: body.Title, IncludeProfile: body.Profile, Log: s.log})
	if err != nil {
		s.fail(c, err)
		return
	}
	name := deck.FileName(v.Overview.Sheet)
	resp := DeckResponse{Slides: res.Slides, Warnings: res.Warnings}
	if s.cfg.Sink != nil {
		loc, err := s.cfg.Sink.Put(c.Request.Context(), name, export.ContentType(name), buf.Bytes())
		if err != nil {
			s.log.Warnf("deck sink: %v", err)
			resp.Warnings = append(resp.Warnings, err.Error())
		} else {
			resp.Location = loc
		}
	}
	resp.Token = s.downloads.put(name, export.ContentType(name), buf.Bytes())
	resp.URL = "/api/downloads/" + resp.Token
	c.JSON(http.StatusCreated, resp)
}

// GET /api/downloads/:token
func (s *Server) getDownload(c *gin.Context) {
	d, ok := s.downloads.take(c.Param("token"))
	if !ok {
		s.fail(c, errs.New(errs.ErrKindNotFound, "download link expired"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.name))
	c.Data(http.StatusOK, d.contentType, d.data)
}

func filtersFrom(c *gin.Context) profit.Filters {
	return profit.Filters{
		Zones:       c.QueryArray("zone"),
		DriverTypes: c.QueryArray("driver_type"),
		Buckets:     c.QueryArray("bucket"),
		Groups:      c.QueryArray("ab_group"),
	}
}

// GET /api/trips
func (s *Server) getTrips(c *gin.Context) {
	d, err := profit.Analyze(s.cfg.Trips, filtersFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GET /api/trips/compare?by=zone&left=A&right=B
func (s *Server) getTripsCompare(c *gin.Context) {
	by, err := profit.ParseCompareBy(c.Query("by"))
	if err != nil {
		s.fail(c, err)
		return
	}
	f := filtersFrom(c)
	left, right := c.Query("left"), c.Query("right")
	if left == "" || right == "" {
		opts, err := profit.Options(s.cfg.Trips, f, by)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"by": by, "options": opts})
		return
	}
	cmp, err := profit.Compare(s.cfg.Trips, f, by, left, right)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}
