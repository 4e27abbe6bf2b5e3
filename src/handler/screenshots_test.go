package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/src/model"
	"tradejournal/src/service"
)

type mockPreviewService struct {
	keys     []string
	uploaded []byte
	filename string
	err      error
}

func (m *mockPreviewService) PreviewCSV(_ context.Context, r io.Reader) ([]service.PreviewRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []service.PreviewRow{{Trade: model.RawTrade{"symbol": "ES"}, Valid: true, Fingerprint: "ES|LONG"}}, nil
}

func (m *mockPreviewService) GetExistingTradeKeys(context.Context) ([]string, error) {
	return m.keys, m.err
}

func (m *mockPreviewService) UploadScreenshot(_ context.Context, filename, _ string, blob []byte) (*service.Screenshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.filename = filename
	m.uploaded = blob
	return &service.Screenshot{Path: "u1/x.png", URL: "https://signed"}, nil
}

func (m *mockPreviewService) SignImage(_ context.Context, objectPath string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "https://signed/" + objectPath, nil
}

func TestPreviewImportHandler(t *testing.T) {
	body, contentType := multipartBody(t, nil, "ContractName\nESZ4\n")
	req := withUser(httptest.NewRequest(http.MethodPost, "/trades/import/preview", body))
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	PreviewImportHandler(&mockPreviewService{}, 1<<20).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"fingerprint":"ES|LONG"`)

	rr = httptest.NewRecorder()
	PreviewImportHandler(&mockPreviewService{}, 1<<20).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodPost, "/trades/import/preview", nil)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTradeKeysHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	TradeKeysHandler(&mockPreviewService{keys: []string{"a", "b"}}).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/trades/keys", nil)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `["a","b"]`, rr.Body.String())
}

func TestUploadScreenshotHandler(t *testing.T) {
	svc := &mockPreviewService{}
	body, contentType := multipartBody(t, nil, "\x89PNG")
	req := withUser(httptest.NewRequest(http.MethodPost, "/screenshots", body))
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	UploadScreenshotHandler(svc, 1<<20).ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "trades.csv", svc.filename)
	assert.Equal(t, []byte("\x89PNG"), svc.uploaded)
	assert.JSONEq(t, `{"path":"u1/x.png","url":"https://signed"}`, rr.Body.String())
}

func TestSignScreenshotHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	SignScreenshotHandler(&mockPreviewService{}).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/screenshots/sign?path=u1/x.png", nil)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	SignScreenshotHandler(&mockPreviewService{err: service.ErrForbiddenPath}).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/screenshots/sign?path=u2/x.png", nil)))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	SignScreenshotHandler(&mockPreviewService{err: service.ErrStorageDisabled}).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/screenshots/sign?path=u1/x.png", nil)))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
