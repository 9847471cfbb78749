package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhelttu/closet-go/internal/conf"
	"github.com/jhelttu/closet-go/internal/datastore"
	"github.com/jhelttu/closet-go/internal/garmentnet"
	"github.com/jhelttu/closet-go/internal/pipeline"
)

// stubClassifier returns a fixed classification for every upload.
type stubClassifier struct {
	result garmentnet.Classification
	err    error
}

func (s *stubClassifier) Classify(imageData []byte) (garmentnet.Classification, error) {
	if s.err != nil {
		return garmentnet.Classification{}, s.err
	}
	return s.result, nil
}

// newTestController wires a controller against a temp-dir SQLite store and
// a stub classifier. The recommender stays nil.
func newTestController(t *testing.T) *Controller {
	t.Helper()

	settings := &conf.Settings{Version: "test"}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	ds := datastore.New(settings)
	require.NotNil(t, ds)
	require.NoError(t, ds.Open())
	t.Cleanup(func() {
		if err := ds.Close(); err != nil {
			t.Errorf("Failed to close datastore: %v", err)
		}
	})

	classifier := &stubClassifier{result: garmentnet.Classification{
		SubCategory: "Topwear",
		ArticleType: "Tshirts",
		Gender:      "Men",
		BaseColour:  "Blue",
		Season:      "Summer",
		Usage:       "Casual",
	}}
	p := pipeline.New(classifier, ds, nil)

	e := echo.New()
	return New(e, p, ds, settings, nil, nil)
}

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartUpload builds a multipart request body with one file field.
func multipartUpload(t *testing.T, fieldName, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func ingestOne(t *testing.T, c *Controller) {
	t.Helper()
	body, contentType := multipartUpload(t, "file", "shirt.png", testImage(t))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/garments", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "ingest failed: %s", rec.Body.String())
}

func TestIngestGarment(t *testing.T) {
	c := newTestController(t)

	body, contentType := multipartUpload(t, "file", "shirt.png", testImage(t))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/garments", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result garmentnet.Classification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Tshirts", result.ArticleType)
	assert.Equal(t, "Blue", result.BaseColour)
}

func TestIngestGarmentMissingFile(t *testing.T) {
	c := newTestController(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/garments", nil)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation", resp.Kind)
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestListGarments(t *testing.T) {
	c := newTestController(t)
	ingestOne(t, c)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/garments", nil)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var entries []pipeline.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0].ID)
	assert.Equal(t, "Topwear", entries[0].SubCategory)
	assert.NotEmpty(t, entries[0].Image)
}

func TestUpdateGarment(t *testing.T) {
	c := newTestController(t)
	ingestOne(t, c)

	payload := strings.NewReader(`{"season": "Winter"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/garments/1", payload)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	garment, err := c.DS.GetGarment(1)
	require.NoError(t, err)
	assert.Equal(t, "Winter", garment.Season)
}

func TestUpdateGarmentErrors(t *testing.T) {
	c := newTestController(t)
	ingestOne(t, c)

	cases := []struct {
		name string
		path string
		body string
		code int
		kind string
	}{
		{"invalid id", "/api/v1/garments/abc", `{"season": "Winter"}`, http.StatusBadRequest, "invalid-id"},
		{"zero id", "/api/v1/garments/0", `{"season": "Winter"}`, http.StatusBadRequest, "invalid-id"},
		{"unknown id", "/api/v1/garments/9999", `{"season": "Winter"}`, http.StatusNotFound, "not-found"},
		{"immutable field", "/api/v1/garments/1", `{"blobId": "7"}`, http.StatusBadRequest, "invalid-update"},
		{"empty body", "/api/v1/garments/1", `{}`, http.StatusBadRequest, "validation"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, tc.path, strings.NewReader(tc.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c.Echo.ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.kind, resp.Kind)
		})
	}
}

func TestDeleteGarment(t *testing.T) {
	c := newTestController(t)
	ingestOne(t, c)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/garments/1", nil)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The second delete of the same id is 404, not a silent no-op.
	rec = httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/garments/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecommendationsUnconfigured(t *testing.T) {
	c := newTestController(t)

	payload := strings.NewReader(`{"occasion": "wedding"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", payload)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	c := newTestController(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "test", resp["version"])
}
