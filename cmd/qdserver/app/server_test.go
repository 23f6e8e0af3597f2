package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qdlab/qd-analyzer/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Chart.Width = 640
	cfg.Server.Chart.Height = 400
	return cfg
}

func newServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()

	srv, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return srv
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return newServer(t, testConfig()).Handler()
}

func livCurve(voltage, threshold, power150 float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "0,%g,0\n", voltage)
	fmt.Fprintf(&sb, "%g,1.1,0.1\n", threshold-10)
	fmt.Fprintf(&sb, "%g,1.2,0.3\n", threshold)
	fmt.Fprintf(&sb, "150,1.5,%g\n", power150)
	return sb.String()
}

type upload struct {
	name    string
	content string
}

func uploadRequest(t *testing.T, target string, files ...upload) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile(uploadField, f.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) AnalyzeResponse {
	t.Helper()

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthz(t *testing.T) {
	rec := serve(newTestServer(t), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyze_LIV(t *testing.T) {
	h := newTestServer(t)

	req := uploadRequest(t, "/api/v1/analyze/liv",
		upload{"QD-LIV-W1-6-D1-a.csv", livCurve(0, 100, 5)},
		upload{"QD-LIV-W1-7-D2-a.csv", livCurve(0, 135, 5)},
	)
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	_, err := uuid.Parse(resp.ID)
	assert.NoError(t, err)
	assert.Contains(t, resp.Message, "总文件数：2，唯一器件数：2，正常器件：1，已死器件：1")
	assert.Contains(t, resp.Message, "没有重复测试的器件。")

	require.NotNil(t, resp.Summary)
	assert.Equal(t, "liv_summary.csv", resp.Summary.Filename)
	assert.Equal(t, []string{"Device Type", "Threshold Current (mA)", "Power at 150 mA (mW)"}, resp.Summary.Header)
	assert.Equal(t, [][]string{
		{"6", "100.0", "5.0"},
		{"7", "W1-D2 器件已死", "W1-D2 器件已死"},
	}, resp.Summary.Rows)
}

func TestAnalyze_OSA_CSV(t *testing.T) {
	h := newTestServer(t)

	req := uploadRequest(t, "/api/v1/analyze/osa?format=csv",
		upload{"QD-OSA-W1-6-D1-a.csv", "1500,0.1\n1501,0.3\n1502,0.5\n1503,0.05\n"},
		upload{"QD-OSA-W1-6-D1-b.csv", "1500,0.9\n"},
	)
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="osa_summary.csv"`, rec.Header().Get("Content-Disposition"))

	msg, err := url.QueryUnescape(rec.Header().Get(messageHeader))
	require.NoError(t, err)
	assert.Contains(t, msg, "总文件数：2，唯一器件数：1")
	assert.Contains(t, msg, "- W1-D1 测试了 2 次")

	assert.Equal(t, "Device Type,Tone Count\n6,1\n", rec.Body.String())
}

func TestAnalyze_PNG(t *testing.T) {
	h := newTestServer(t)

	req := uploadRequest(t, "/api/v1/analyze/liv?format=png",
		upload{"QD-LIV-W1-6-D1-a.csv", livCurve(0, 100, 5)},
		upload{"QD-LIV-W1-6-D2-a.csv", livCurve(0, 60, 5)},
	)
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())
}

func TestAnalyze_NoDevices(t *testing.T) {
	h := newTestServer(t)

	// every file is filtered out: the summary is written with a header only
	files := []upload{{"QD-LIV-W1-6-D1-a.csv", livCurve(0.5, 100, 5)}}

	rec := serve(h, uploadRequest(t, "/api/v1/analyze/liv?format=png", files...))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeResponse(t, rec).Message, "总文件数：1，唯一器件数：0")

	rec = serve(h, uploadRequest(t, "/api/v1/analyze/liv", files...))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Summary)
	assert.Empty(t, resp.Summary.Rows)
}

func TestAnalyze_StrayQuote(t *testing.T) {
	h := newTestServer(t)

	req := uploadRequest(t, "/api/v1/analyze/osa",
		upload{"QD-OSA-W1-6-D1-x.csv", "1550 nm\",0.3\n1551,0.1\n"},
	)
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	assert.True(t, strings.HasPrefix(resp.Message, "分析完成！"), resp.Message)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, [][]string{{"6", "1"}}, resp.Summary.Rows)
}

func TestRespond_AnalysisFailure(t *testing.T) {
	srv := newServer(t, testConfig())
	failed := result{message: "分析失败: reading directory: boom"}

	tests := []struct {
		format string
		status int
	}{
		{FormatJSON, http.StatusOK},
		{FormatCSV, http.StatusUnprocessableEntity},
		{FormatPNG, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			srv.respond(c, "id-1", tt.format, failed)
			assert.Equal(t, tt.status, rec.Code)

			resp := decodeResponse(t, rec)
			assert.Equal(t, "id-1", resp.ID)
			assert.Equal(t, failed.message, resp.Message)
			assert.Nil(t, resp.Summary)
		})
	}
}

func TestAnalyze_UploadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxUploadSize = "1 KiB"
	h := newServer(t, cfg).Handler()

	req := uploadRequest(t, "/api/v1/analyze/osa",
		upload{"QD-OSA-W1-6-D1-a.csv", strings.Repeat("1500,0.5\n", 1200)},
	)
	rec := serve(h, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "upload exceeds 1.0 KiB", resp.Error)
}

func TestAnalyze_BadRequests(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		errMsg string
	}{
		{
			name:   "no files",
			req:    uploadRequest(t, "/api/v1/analyze/liv"),
			status: http.StatusBadRequest,
			errMsg: "请先上传 CSV 文件！",
		},
		{
			name:   "not multipart",
			req:    httptest.NewRequest(http.MethodPost, "/api/v1/analyze/osa", strings.NewReader("x")),
			status: http.StatusBadRequest,
			errMsg: "请先上传 CSV 文件！",
		},
		{
			name:   "not a csv file",
			req:    uploadRequest(t, "/api/v1/analyze/liv", upload{"notes.txt", "x"}),
			status: http.StatusBadRequest,
			errMsg: "not a csv file: 'notes.txt'",
		},
		{
			name:   "unknown analysis",
			req:    uploadRequest(t, "/api/v1/analyze/spectrum", upload{"a.csv", "1,2"}),
			status: http.StatusNotFound,
			errMsg: "unknown analysis 'spectrum'",
		},
		{
			name:   "unknown format",
			req:    uploadRequest(t, "/api/v1/analyze/liv?format=xml", upload{"a.csv", "1,2"}),
			status: http.StatusBadRequest,
			errMsg: "unknown format 'xml'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.req)
			assert.Equal(t, tt.status, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.errMsg, resp.Error)
		})
	}
}
