package web

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/contactcard/internal/config"
	"github.com/JonMunkholm/contactcard/internal/core"
	"github.com/JonMunkholm/contactcard/internal/metrics"
)

const contactsCSV = "First Name,Last Name,Phone\n" +
	"Jane,Smith,555\n" +
	",Nobody,\n" +
	"John,Doe,\n"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Export.Mode = "combined"
	cfg.Convert.MaxFileSize = 1 << 20
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	svc := core.NewService(cfg, nil, metrics.New(reg))
	s := NewServer(cfg, svc, reg)
	t.Cleanup(s.Close)
	return s
}

// uploadRequest builds a multipart POST with a "file" part and extra fields.
func uploadRequest(t *testing.T, path, csv string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if csv != "" {
		fw, err := mw.CreateFormFile("file", "contacts.csv")
		require.NoError(t, err)
		_, err = io.WriteString(fw, csv)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())
	rr := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestFields(t *testing.T) {
	s := newTestServer(t, testConfig())
	rr := serve(s, httptest.NewRequest(http.MethodGet, "/api/fields", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var fields []struct {
		Label    string `json:"label"`
		Required bool   `json:"required"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fields))
	require.Len(t, fields, len(core.Fields()))
	assert.Equal(t, "Skip", fields[0].Label)
	assert.Equal(t, "First Name", fields[1].Label)
	assert.True(t, fields[1].Required)
}

func TestSample(t *testing.T) {
	s := newTestServer(t, testConfig())
	rr := serve(s, httptest.NewRequest(http.MethodGet, "/api/sample.csv", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "First Name,Last Name,Phone,Email"))
}

func TestInspect(t *testing.T) {
	s := newTestServer(t, testConfig())
	rr := serve(s, uploadRequest(t, "/api/inspect", contactsCSV, nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var preview core.PreviewResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &preview))
	assert.Equal(t, []string{"First Name", "Last Name", "Phone"}, preview.Columns)
	assert.Equal(t, "Phone (Mobile)", preview.Mapping["Phone"])
	assert.Equal(t, core.PreviewSummary{TotalRows: 3, Convertible: 2, Skipped: 1}, preview.Summary)
}

func TestConvert_Combined(t *testing.T) {
	s := newTestServer(t, testConfig())
	rr := serve(s, uploadRequest(t, "/api/convert", contactsCSV, nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, "text/vcard; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "2", rr.Header().Get("X-Contacts-Succeeded"))
	assert.Equal(t, "1", rr.Header().Get("X-Contacts-Failed"))
	assert.NotEmpty(t, rr.Header().Get("X-Export-ID"))

	want := "BEGIN:VCARD\nVERSION:3.0\nN:Smith;Jane;;;\nFN:Jane Smith\nTEL;TYPE=CELL:555\nEND:VCARD\n" +
		"\n" +
		"BEGIN:VCARD\nVERSION:3.0\nN:Doe;John;;;\nFN:John Doe\nEND:VCARD\n"
	assert.Equal(t, want, rr.Body.String())
}

func TestConvert_PerContactZip(t *testing.T) {
	s := newTestServer(t, testConfig())
	mapping := `{"First Name":"First Name","Last Name":"Last Name"}`
	rr := serve(s, uploadRequest(t, "/api/convert", contactsCSV, map[string]string{
		"mode":    "per-contact",
		"mapping": mapping,
	}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/zip", rr.Header().Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(rr.Body.Bytes()), int64(rr.Body.Len()))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"Jane Smith.vcf", "John Doe.vcf"}, names)

	f, err := zr.Open("Jane Smith.vcf")
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCARD\nVERSION:3.0\nN:Smith;Jane;;;\nFN:Jane Smith\nEND:VCARD\n", string(data))
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name       string
		csv        string
		fields     map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no file",
			fields:     map[string]string{"mode": "combined"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "UPL001",
		},
		{
			name:       "all skip",
			csv:        contactsCSV,
			fields:     map[string]string{"mapping": `{"First Name":"Skip"}`},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "MAP001",
		},
		{
			name:       "unknown column",
			csv:        contactsCSV,
			fields:     map[string]string{"mapping": `{"Fax":"Phone (Work)"}`},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "MAP002",
		},
		{
			name:       "bad mapping json",
			csv:        contactsCSV,
			fields:     map[string]string{"mapping": `{"First Name":`},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "MAP003",
		},
		{
			name:       "blank header",
			csv:        ",,\nJane,Smith,\n",
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "CSV001",
		},
		{
			name:       "header only",
			csv:        "First Name,Last Name\n",
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "CONV001",
		},
		{
			name:       "bad mode",
			csv:        contactsCSV,
			fields:     map[string]string{"mode": "tar"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "MAP003",
		},
	}

	s := newTestServer(t, testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(s, uploadRequest(t, "/api/convert", tt.csv, tt.fields))
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, rr).Code)
		})
	}
}

func TestConvert_NothingConverted(t *testing.T) {
	s := newTestServer(t, testConfig())
	rr := serve(s, uploadRequest(t, "/api/convert", "First Name,Last Name\n,Smith\nJane,\n", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-Contacts-Succeeded"))
	assert.Equal(t, "2", rr.Header().Get("X-Contacts-Failed"))
}

func TestConvert_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Convert.MaxFileSize = 64
	s := newTestServer(t, cfg)

	big := "First Name,Last Name\n" + strings.Repeat("Jane,Smith\n", 20000)
	rr := serve(s, uploadRequest(t, "/api/convert", big, nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, rr.Body.String())
	assert.Equal(t, "CSV003", decodeError(t, rr).Code)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	s := newTestServer(t, cfg)

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/api/fields", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/fields", nil)
	req.Header.Set("X-API-Key", "secret")
	rr = serve(s, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "health check must not need a key")
}

func TestConvertRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 100
	cfg.Rate.ConvertLimit = 1
	s := newTestServer(t, cfg)

	rr := serve(s, uploadRequest(t, "/api/convert", contactsCSV, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(s, uploadRequest(t, "/api/convert", contactsCSV, nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rr).Code)

	rr = serve(s, httptest.NewRequest(http.MethodGet, "/api/fields", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "other endpoints keep the general limit")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	serve(s, uploadRequest(t, "/api/convert", contactsCSV, nil))

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `contactcard_records_total{outcome="succeeded"} 2`)
}

func TestZipCards_LaterNameWins(t *testing.T) {
	cards := []core.Card{
		{FileName: "Jane Smith.vcf", Text: "first"},
		{FileName: "John Doe.vcf", Text: "john"},
		{FileName: "Jane Smith.vcf", Text: "second"},
	}
	body, err := zipCards(cards)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	f, err := zr.Open("Jane Smith.vcf")
	require.NoError(t, err)
	defer f.Close()
	data, _ := io.ReadAll(f)
	assert.Equal(t, "second", string(data))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"format", &core.FormatError{Err: core.ErrNoHeader}, http.StatusUnprocessableEntity},
		{"mapping", &core.MappingError{Err: core.ErrNothingMapped}, http.StatusUnprocessableEntity},
		{"no records", core.ErrNoRecords, http.StatusUnprocessableEntity},
		{"busy", core.ErrTooManyConversions, http.StatusServiceUnavailable},
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"deadline", fmt.Errorf("render: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondError_DeadlineExceeded(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/convert", nil)
	rec := httptest.NewRecorder()

	respondError(rec, req, context.DeadlineExceeded, 0)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "UPL003", body.Code)
}
