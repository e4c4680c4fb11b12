package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/KaramelBytes/excelinsight/internal/logger"
	"github.com/KaramelBytes/excelinsight/internal/pipeline"
	"github.com/KaramelBytes/excelinsight/internal/profit"
	"github.com/KaramelBytes/excelinsight/internal/trips"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const segments = "Segment,Y1,Y2\nA,100,300\nB,200,100\nC,50,50\n"

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(s string) error {
	f.text = s
	return f.err
}

type memSink struct{ names []string }

func (m *memSink) Put(_ context.Context, name, _ string, _ []byte) (string, error) {
	m.names = append(m.names, name)
	return "mem://" + name, nil
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	cfg.Log = logger.Nop()
	if cfg.Trips == nil {
		cfg.Trips = trips.Generate(300, trips.NewRand(trips.DefaultSeed))
	}
	return New(cfg)
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func upload(t *testing.T, s *Server, name, body string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/workbooks", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return do(t, s, req)
}

func uploadID(t *testing.T, s *Server) string {
	t.Helper()
	w := upload(t, s, "segments.csv", segments)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp WorkbookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"segments"}, resp.Sheets)
	return resp.ID
}

func TestUploadAndView(t *testing.T) {
	s := newTestServer(t, Config{})
	id := uploadID(t, s)

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/sheets/segments", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var v pipeline.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, 3, v.Overview.Rows)
	require.NotNil(t, v.Roles)
	assert.Equal(t, "Segment", v.Roles.Category)
	require.Len(t, v.Insights, 3)
	assert.Equal(t, "Y2 has the highest total value across all segments.", v.Insights[0].Text)

	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/sheets/segments?kind=pie&edit=Custom+line", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, "pie.png", v.Chart.FileName)
	require.Len(t, v.Insights, 1)
	assert.Equal(t, "Custom line", v.Insights[0].Text)

	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadRejections(t *testing.T) {
	s := newTestServer(t, Config{MaxUploadBytes: 16})
	w := upload(t, s, "segments.csv", segments)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "input_rejected")

	s = newTestServer(t, Config{})
	w = upload(t, s, "notes.docx", "hello")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = upload(t, s, "empty.csv", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, httptest.NewRequest(http.MethodPost, "/api/workbooks", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestViewErrors(t *testing.T) {
	s := newTestServer(t, Config{})
	w := do(t, s, httptest.NewRequest(http.MethodGet, "/api/workbooks/nope/sheets/x", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	id := uploadID(t, s)
	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/sheets/Other", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/sheets/segments?kind=bubble", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, httptest.NewRequest(http.MethodDelete, "/api/workbooks/"+id, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShapeMismatchViewAndChart(t *testing.T) {
	s := newTestServer(t, Config{})
	w := upload(t, s, "notes.csv", "Name,Comment\nA,x\n")
	require.Equal(t, http.StatusCreated, w.Code)
	var wb WorkbookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wb))

	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/workbooks/"+wb.ID+"/sheets/notes", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "no suitable multi-metric chart pattern")

	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/workbooks/"+wb.ID+"/sheets/notes/chart.png", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestChartPNG(t *testing.T) {
	s := newTestServer(t, Config{})
	id := uploadID(t, s)
	w := do(t, s, httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/sheets/segments/chart.png?kind=stacked-bar", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "stacked_bar.png")
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 1100, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
}

func TestClipboard(t *testing.T) {
	cb := &fakeClipboard{}
	s := newTestServer(t, Config{Clipboard: cb})
	id := uploadID(t, s)

	body := bytes.NewBufferString(`{"insights":["First edited line."]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/workbooks/"+id+"/sheets/segments/clipboard", body)
	req.Header.Set("Content-Type", "application/json")
	w := do(t, s, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp ClipboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Copied)
	assert.Contains(t, resp.Text, "Insights:\n- First edited line.")
	assert.Equal(t, resp.Text, cb.text)

	cb.err = errors.New("no display")
	w = do(t, s, httptest.NewRequest(http.MethodPost, "/api/workbooks/"+id+"/sheets/segments/clipboard", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Copied)
	assert.Contains(t, resp.Warning, "no display")
}

func TestDeckAndDownload(t *testing.T) {
	sink := &memSink{}
	s := newTestServer(t, Config{Sink: sink})
	id := uploadID(t, s)

	body := bytes.NewBufferString(`{"kinds":["grouped-bar","radar"],"profile":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/workbooks/"+id+"/sheets/segments/deck", body)
	req.Header.Set("Content-Type", "application/json")
	w := do(t, s, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp DeckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Slides)
	assert.Equal(t, "mem://excelinsight_segments.pptx", resp.Location)
	assert.Equal(t, []string{"excelinsight_segments.pptx"}, sink.names)

	w = do(t, s, httptest.NewRequest(http.MethodGet, resp.URL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "presentationml")
	assert.Equal(t, "PK", w.Body.String()[:2])

	w = do(t, s, httptest.NewRequest(http.MethodGet, resp.URL, nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "tokens are single use")
}

func TestTrips(t *testing.T) {
	s := newTestServer(t, Config{})
	w := do(t, s, httptest.NewRequest(http.MethodGet, "/api/trips?zone=Downtown&zone=Brampton", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var d profit.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Len(t, d.Zones, 2)
	assert.Len(t, d.Insights, 3)

	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/trips?zone=Atlantis", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/trips/compare?by=driver_type&left=Full-time&right=Part-time", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cmp profit.Comparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cmp))
	assert.Len(t, cmp.Metrics, 3)

	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/trips/compare?by=zone", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "options")

	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/trips/compare?by=zone&left=Downtown&right=Downtown", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, Config{})
	uploadID(t, s)
	w := do(t, s, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var st StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Workbooks)
	assert.Equal(t, 300, st.Trips)
	assert.Equal(t, "20 MiB", st.MaxUpload)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(errs.New(errs.ErrKindInvalidInput, "x")))
	assert.Equal(t, http.StatusNotFound, statusFor(errs.New(errs.ErrKindNotFound, "x")))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(errs.New(errs.ErrKindShapeMismatch, "x")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errs.New(errs.ErrKindExportFailed, "x")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("plain")))
}

func TestStoresExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	wbs := newWorkbookStore(time.Minute)
	wbs.now = clock
	id := wbs.put(nil)
	now = now.Add(50 * time.Second)
	_, ok := wbs.get(id)
	assert.True(t, ok, "access extends the lifetime")
	now = now.Add(50 * time.Second)
	_, ok = wbs.get(id)
	assert.True(t, ok)
	now = now.Add(2 * time.Minute)
	_, ok = wbs.get(id)
	assert.False(t, ok)

	dls := newDownloadStore(time.Minute)
	dls.now = clock
	tok := dls.put("a.pptx", "x", []byte("a"))
	now = now.Add(2 * time.Minute)
	_, ok = dls.take(tok)
	assert.False(t, ok)
	assert.Equal(t, 0, dls.len())
}
