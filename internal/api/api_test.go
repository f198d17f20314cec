package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GonzoDMX/citation-index/internal/ai"
	"github.com/GonzoDMX/citation-index/internal/config"
	"github.com/GonzoDMX/citation-index/internal/models"
	"github.com/GonzoDMX/citation-index/internal/pipeline/pipelinetest"
	"github.com/GonzoDMX/citation-index/internal/search"
	"github.com/GonzoDMX/citation-index/internal/store"
)

type fakeExtractor struct {
	fields models.CitationFields
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) (models.CitationFields, error) {
	f.calls++
	return f.fields, f.err
}

var _ ai.Extractor = (*fakeExtractor)(nil)

type testServer struct {
	handler http.Handler
	store   *store.Store
	uploads string
}

func newTestServer(t *testing.T, ex ai.Extractor) *testServer {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	st, err := store.Open(ctx, config.DatabaseConfig{
		Path:   filepath.Join(dir, "citations.db"),
		Driver: config.DriverModernc,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = st.EnsureIndex(ctx)
	require.NoError(t, err)

	uploads := filepath.Join(dir, "uploads")
	h := NewHandlers(Deps{
		Store:     st,
		Search:    search.NewExecutor(st.DB(), config.CurrentDefaults.Weights, 0),
		Extractor: ex,
		Uploads:   config.UploadConfig{Dir: uploads, MaxBytes: 1 << 20},
	})
	return &testServer{handler: NewRouter(h), store: st, uploads: uploads}
}

func (s *testServer) do(t *testing.T, method, target string, body []byte, contentType string) (*httptest.ResponseRecorder, StandardResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var resp StandardResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

// decodeData re-decodes the envelope payload into dst.
func decodeData(t *testing.T, resp StandardResponse, dst any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

func validFields() models.CitationFields {
	return models.CitationFields{
		Journal:         "AIR 2020 SC 100",
		Parties:         "Ramesh v. State of Kerala",
		Court:           "Supreme Court",
		DateOfJudgement: "2020-03-15",
		Sections:        "Section 302 IPC",
		Description:     "Murder conviction upheld on circumstantial evidence.",
		Keywords:        "murder, circumstantial evidence",
	}
}

func (s *testServer) create(t *testing.T, f models.CitationFields) models.Citation {
	t.Helper()
	body, _ := json.Marshal(f)
	rec, resp := s.do(t, http.MethodPost, "/api/v1/citations", body, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c models.Citation
	decodeData(t, resp, &c)
	return c
}

// ==========================================
// SERVICE
// ==========================================

func TestHealthAndStatus(t *testing.T) {
	s := newTestServer(t, nil)

	rec, _ := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())

	rec, resp := s.do(t, http.MethodGet, "/api/v1/system/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st StatusResponse
	decodeData(t, resp, &st)
	assert.Equal(t, "healthy", st.Status)
	assert.Equal(t, "disabled", st.Extraction)
	assert.Equal(t, config.DriverModernc, st.Driver)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	rec, _ := s.do(t, http.MethodOptions, "/api/v1/citations", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

// ==========================================
// CITATIONS
// ==========================================

func TestCitationLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	c := s.create(t, validFields())
	require.NotZero(t, c.ID)
	assert.Equal(t, "2020-03-15", c.DateOfJudgement.String())

	rec, resp := s.do(t, http.MethodGet, "/api/v1/citations/"+strconv.FormatInt(c.ID, 10), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Citation
	decodeData(t, resp, &got)
	assert.Equal(t, c.Parties, got.Parties)

	rec, resp = s.do(t, http.MethodGet, "/api/v1/citations", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list CitationListResponse
	decodeData(t, resp, &list)
	assert.EqualValues(t, 1, list.Total)
	require.Len(t, list.Citations, 1)

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/citations/"+strconv.FormatInt(c.ID, 10), nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = s.do(t, http.MethodGet, "/api/v1/citations/"+strconv.FormatInt(c.ID, 10), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/citations/"+strconv.FormatInt(c.ID, 10), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCitationCreate_Rejects(t *testing.T) {
	s := newTestServer(t, nil)

	missing := validFields()
	missing.Description = "  "
	badDate := validFields()
	badDate.DateOfJudgement = "15/03/2020"
	badPDF := validFields()
	badPDF.PDFPath = "../secret.pdf"

	for name, f := range map[string]models.CitationFields{
		"missing description": missing,
		"bad date":            badDate,
		"pdf path traversal":  badPDF,
	} {
		t.Run(name, func(t *testing.T) {
			body, _ := json.Marshal(f)
			rec, resp := s.do(t, http.MethodPost, "/api/v1/citations", body, "application/json")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}

	rec, _ := s.do(t, http.MethodPost, "/api/v1/citations", []byte("{not json"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	n, err := s.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCitationGet_BadID(t *testing.T) {
	s := newTestServer(t, nil)
	rec, _ := s.do(t, http.MethodGet, "/api/v1/citations/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCitationList_BadPaging(t *testing.T) {
	s := newTestServer(t, nil)
	rec, _ := s.do(t, http.MethodGet, "/api/v1/citations?limit=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ==========================================
// SEARCH
// ==========================================

func TestSearch(t *testing.T) {
	s := newTestServer(t, nil)
	murder := s.create(t, validFields())

	other := validFields()
	other.Parties = "Sharma v. Union of India"
	other.Description = "Land acquisition compensation enhanced."
	other.Keywords = "land acquisition"
	s.create(t, other)

	rec, resp := s.do(t, http.MethodGet, "/api/v1/search?q=circumstantial", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sr SearchResponse
	decodeData(t, resp, &sr)
	require.Len(t, sr.Results, 1)
	assert.Equal(t, murder.ID, sr.Results[0].ID)
	assert.Equal(t, 1, sr.Total)
	assert.Equal(t, "circumstantial", sr.Query)
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := newTestServer(t, nil)
	s.create(t, validFields())

	rec, resp := s.do(t, http.MethodGet, "/api/v1/search?q=%20%20", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	var sr SearchResponse
	decodeData(t, resp, &sr)
	assert.Empty(t, sr.Results)
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestSearch_NulByteIsNeutralised(t *testing.T) {
	s := newTestServer(t, nil)
	murder := s.create(t, validFields())

	rec, resp := s.do(t, http.MethodGet, "/api/v1/search?q=%00murder", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	var sr SearchResponse
	decodeData(t, resp, &sr)
	require.Len(t, sr.Results, 1)
	assert.Equal(t, murder.ID, sr.Results[0].ID)
}

type failingQuerier struct{ err error }

func (f failingQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, f.err
}

func TestSearch_RejectedQueryIsEmptySuccess(t *testing.T) {
	s := newTestServer(t, nil)
	h := NewRouter(NewHandlers(Deps{
		Store: s.store,
		Search: search.NewExecutor(failingQuerier{err: errors.New(`fts5: syntax error near ""`)},
			config.CurrentDefaults.Weights, 0),
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=murder", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StandardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "Search failed")
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestSearch_DatabaseFailureIsServerError(t *testing.T) {
	s := newTestServer(t, nil)
	h := NewRouter(NewHandlers(Deps{
		Store:  s.store,
		Search: search.NewExecutor(failingQuerier{err: errors.New("disk I/O error")}, config.CurrentDefaults.Weights, 0),
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=murder", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSearch_SpecialCharactersAreSafe(t *testing.T) {
	s := newTestServer(t, nil)
	s.create(t, validFields())

	for _, q := range []string{"AND", "(", "*", "NEAR(", "s.302:", "-murder", "^"} {
		rec, resp := s.do(t, http.MethodGet, "/api/v1/search?q="+url.QueryEscape(q), nil, "")
		assert.Equal(t, http.StatusOK, rec.Code, q)
		assert.True(t, resp.Success, q)
	}
}

// ==========================================
// EXTRACTION & UPLOADS
// ==========================================

func multipartBody(t *testing.T, field, filename string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("other", "value"))
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestExtract_MissingFile(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{})
	body, ct := multipartBody(t, "", "", nil)
	rec, resp := s.do(t, http.MethodPost, "/api/v1/extract", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file part in the request.", resp.Error)
}

func TestExtract_RejectsNonPDF(t *testing.T) {
	ex := &fakeExtractor{}
	s := newTestServer(t, ex)
	body, ct := multipartBody(t, extractField, "notes.pdf", []byte("just some text, not a pdf"))
	rec, _ := s.do(t, http.MethodPost, "/api/v1/extract", body, ct)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Zero(t, ex.calls)
}

func TestExtract_UnavailableWithoutGateway(t *testing.T) {
	s := newTestServer(t, nil)
	body, ct := multipartBody(t, extractField, "case.pdf", []byte("%PDF-1.4\n%garbage"))
	rec, _ := s.do(t, http.MethodPost, "/api/v1/extract", body, ct)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExtract_UnreadablePDFIsRemoved(t *testing.T) {
	ex := &fakeExtractor{}
	s := newTestServer(t, ex)
	body, ct := multipartBody(t, extractField, "case.pdf", []byte("%PDF-1.4\nthis is not a real document"))
	rec, _ := s.do(t, http.MethodPost, "/api/v1/extract", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, ex.calls)

	entries, err := os.ReadDir(s.uploads)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

const judgementText = "IN THE SUPREME COURT OF INDIA. Unlawful detention of the petitioner; habeas corpus allowed."

func TestExtract_Success(t *testing.T) {
	ex := &fakeExtractor{fields: models.CitationFields{
		Journal:     "AIR 2021 SC 7",
		Parties:     "Kumar v. State",
		Court:       "Supreme Court",
		Description: "Unlawful detention of the petitioner.",
	}}
	s := newTestServer(t, ex)

	body, ct := multipartBody(t, extractField, "Judgement One.pdf", pipelinetest.OnePagePDF(judgementText))
	rec, resp := s.do(t, http.MethodPost, "/api/v1/extract", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)
	assert.Equal(t, 1, ex.calls)

	var out ExtractResponse
	decodeData(t, resp, &out)
	assert.True(t, strings.HasSuffix(out.PDFFilename, "_Judgement_One.pdf"), out.PDFFilename)
	assert.Equal(t, out.PDFFilename, out.Fields.PDFPath)
	assert.Equal(t, "Kumar v. State", out.Fields.Parties)

	_, err := os.Stat(filepath.Join(s.uploads, out.PDFFilename))
	require.NoError(t, err, "upload should be kept")

	// The stored name is what the client sends back on create, and it downloads.
	rec, _ = s.do(t, http.MethodGet, "/uploads/"+out.PDFFilename, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtract_GatewayFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"insufficient text", ai.ErrInsufficientText, http.StatusUnprocessableEntity},
		{"model failure", ai.ErrExtractionFailed, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExtractor{err: tt.err}
			s := newTestServer(t, ex)

			body, ct := multipartBody(t, extractField, "case.pdf", pipelinetest.OnePagePDF(judgementText))
			rec, resp := s.do(t, http.MethodPost, "/api/v1/extract", body, ct)
			assert.Equal(t, tt.code, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, 1, ex.calls)

			entries, err := os.ReadDir(s.uploads)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestExtract_TooLarge(t *testing.T) {
	s := newTestServer(t, &fakeExtractor{})
	big := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 2<<20)...)
	body, ct := multipartBody(t, extractField, "big.pdf", big)
	rec, resp := s.do(t, http.MethodPost, "/api/v1/extract", body, ct)
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, rec.Code)
	assert.False(t, resp.Success)
}

func TestUpload_Download(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, os.MkdirAll(s.uploads, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(s.uploads, "abc_case.pdf"), []byte("%PDF-1.4 data"), 0644))

	rec, _ := s.do(t, http.MethodGet, "/uploads/abc_case.pdf", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 data", rec.Body.String())

	rec, _ = s.do(t, http.MethodGet, "/uploads/missing.pdf", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/uploads/..%2Fcitations.db", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ==========================================
// INDEX
// ==========================================

func TestIndexEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	s.create(t, validFields())

	rec, resp := s.do(t, http.MethodGet, "/api/v1/index/info", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info store.IndexInfo
	decodeData(t, resp, &info)
	assert.True(t, info.Exists)
	assert.EqualValues(t, 1, info.Citations)
	assert.EqualValues(t, 1, info.IndexEntries)
	assert.Equal(t, 3, info.Triggers)

	rec, resp = s.do(t, http.MethodPost, "/api/v1/index/verify", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rec, resp = s.do(t, http.MethodPost, "/api/v1/index/rebuild", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}
