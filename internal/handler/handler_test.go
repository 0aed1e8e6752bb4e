package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pdf-embeddings-go/internal/apperr"
	"pdf-embeddings-go/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeIngestService 是 service.IngestService 的测试替身。
type fakeIngestService struct {
	result *model.IngestResult
	err    error
}

func (f *fakeIngestService) Ingest(ctx context.Context, pdfBase64, userID, filename string) (*model.IngestResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeRetrieveService 是 service.RetrieveService 的测试替身。
type fakeRetrieveService struct {
	result *model.RetrieveResult
	err    error
	gotK   int
}

func (f *fakeRetrieveService) Retrieve(ctx context.Context, query, userID string, k int) (*model.RetrieveResult, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func uploadRouter(svc *fakeIngestService) *gin.Engine {
	r := gin.New()
	r.POST("/upload-pdf", NewPDFHandler(svc).UploadPDF)
	return r
}

func queryRouter(svc *fakeRetrieveService) *gin.Engine {
	r := gin.New()
	r.POST("/query", NewQueryHandler(svc).Query)
	return r
}

func TestUploadPDFSuccess(t *testing.T) {
	svc := &fakeIngestService{result: &model.IngestResult{
		PagesProcessed:    3,
		EmbeddingsCreated: 2,
		DocIDs:            []string{"d1", "d2"},
	}}
	w := doJSON(t, uploadRouter(svc), http.MethodPost, "/upload-pdf", gin.H{
		"pdf_base64": "cGRm",
		"user_id":    "u1",
		"filename":   "doc.pdf",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "PDF processed and embeddings created successfully", body["message"])
	assert.Equal(t, "doc.pdf", body["filename"])
	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, float64(3), body["pages_processed"])
	assert.Equal(t, float64(2), body["embeddings_created"])
	assert.Equal(t, []any{"d1", "d2"}, body["document_ids"])
}

func TestUploadPDFMissingFields(t *testing.T) {
	svc := &fakeIngestService{result: &model.IngestResult{}}

	cases := []struct {
		name string
		body gin.H
	}{
		{"missing pdf_base64", gin.H{"user_id": "u1", "filename": "doc.pdf"}},
		{"missing user_id", gin.H{"pdf_base64": "cGRm", "filename": "doc.pdf"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, uploadRouter(svc), http.MethodPost, "/upload-pdf", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeBody(t, w), "error")
		})
	}
}

func TestUploadPDFErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"decode error", fmt.Errorf("%w: bad padding", apperr.ErrDecode), http.StatusBadRequest},
		{"parse error", fmt.Errorf("%w: broken xref", apperr.ErrParse), http.StatusBadRequest},
		{"invalid argument", fmt.Errorf("%w: filename is required", apperr.ErrInvalidArgument), http.StatusBadRequest},
		{"embedding failure", fmt.Errorf("%w: quota exceeded", apperr.ErrEmbeddingService), http.StatusInternalServerError},
		{"storage failure", fmt.Errorf("%w: bulk rejected", apperr.ErrStorage), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, uploadRouter(&fakeIngestService{err: tc.err}), http.MethodPost, "/upload-pdf", gin.H{
				"pdf_base64": "cGRm",
				"user_id":    "u1",
				"filename":   "doc.pdf",
			})
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.NotEmpty(t, decodeBody(t, w)["error"])
		})
	}
}

func TestUploadPDFServerErrorHidesDetail(t *testing.T) {
	// 上游错误信息可能含有连接串或凭证，5xx 响应只回类别描述
	err := fmt.Errorf("%w: dial tcp es-internal:9200 user=admin", apperr.ErrStorage)
	w := doJSON(t, uploadRouter(&fakeIngestService{err: err}), http.MethodPost, "/upload-pdf", gin.H{
		"pdf_base64": "cGRm",
		"user_id":    "u1",
		"filename":   "doc.pdf",
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, apperr.ErrStorage.Error(), body["error"])
	assert.NotContains(t, w.Body.String(), "es-internal")
}

func TestQuerySuccess(t *testing.T) {
	svc := &fakeRetrieveService{result: &model.RetrieveResult{
		Results: []model.QueryResult{
			{Content: "Alpha content", Metadata: model.Metadata{Source: "a.pdf", Page: 0, UserID: "u1", DocID: "d1"}, SimilarityScore: 0.93},
		},
		ResultsCount: 1,
	}}
	w := doJSON(t, queryRouter(svc), http.MethodPost, "/query", gin.H{
		"query":   "Alpha",
		"user_id": "u1",
		"k":       3,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, svc.gotK)

	body := decodeBody(t, w)
	assert.Equal(t, "Alpha", body["query"])
	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, float64(1), body["results_count"])

	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, "Alpha content", first["content"])
	assert.Equal(t, 0.93, first["similarity_score"])
	meta := first["metadata"].(map[string]any)
	assert.Equal(t, "a.pdf", meta["source"])
	assert.Equal(t, float64(0), meta["page"])
	assert.Equal(t, "u1", meta["user_id"])
	assert.Equal(t, "d1", meta["doc_id"])
}

func TestQueryEmptyResults(t *testing.T) {
	svc := &fakeRetrieveService{result: &model.RetrieveResult{Results: []model.QueryResult{}, ResultsCount: 0}}
	w := doJSON(t, queryRouter(svc), http.MethodPost, "/query", gin.H{
		"query":   "nothing here",
		"user_id": "u1",
	})

	// k 省略时透传 0，由服务层取默认值
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, svc.gotK)

	body := decodeBody(t, w)
	assert.Equal(t, float64(0), body["results_count"])
	assert.Equal(t, []any{}, body["results"])
}

func TestQueryMissingFields(t *testing.T) {
	svc := &fakeRetrieveService{result: &model.RetrieveResult{}}

	cases := []struct {
		name string
		body gin.H
	}{
		{"missing query", gin.H{"user_id": "u1"}},
		{"missing user_id", gin.H{"query": "Alpha"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, queryRouter(svc), http.MethodPost, "/query", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestQueryErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid k", fmt.Errorf("%w: k must be between 1 and 50", apperr.ErrInvalidArgument), http.StatusBadRequest},
		{"embedding failure", fmt.Errorf("%w: timeout", apperr.ErrEmbeddingService), http.StatusInternalServerError},
		{"storage failure", fmt.Errorf("%w: es down", apperr.ErrStorage), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, queryRouter(&fakeRetrieveService{err: tc.err}), http.MethodPost, "/query", gin.H{
				"query":   "Alpha",
				"user_id": "u1",
			})
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/health", NewHealthHandler().Health)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}
