package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/nutri-vision/internal/classify"
	"github.com/Brownie44l1/nutri-vision/internal/metrics"
	"github.com/Brownie44l1/nutri-vision/internal/model"
	"github.com/Brownie44l1/nutri-vision/internal/nutrition"
	"github.com/Brownie44l1/nutri-vision/internal/produce"
	"github.com/Brownie44l1/nutri-vision/internal/storage"
)

type stubPredictor struct {
	index int
}

func (p stubPredictor) Input() model.Input {
	return model.Input{Size: 4, Layout: model.LayoutNHWC}
}

func (p stubPredictor) Predict([]float32) (*model.Prediction, error) {
	scores := make([]float32, produce.NumClasses)
	if p.index >= 0 && p.index < produce.NumClasses {
		scores[p.index] = 1
	}
	return &model.Prediction{Index: p.index, Confidence: 1, Scores: scores}, nil
}

type stubFetcher struct {
	text string
	err  error
}

func (f stubFetcher) Fetch(context.Context, string) (string, error) {
	return f.text, f.err
}

type fixture struct {
	router  *gin.Engine
	uploads string
}

func newFixture(t *testing.T, index int, fetcher nutrition.Fetcher) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := filepath.Join(t.TempDir(), "upload_images")
	m := metrics.New()
	svc := classify.NewService(stubPredictor{index: index}, fetcher, m, zerolog.Nop())
	h := NewHandler(svc, storage.NewUploads(dir))
	return fixture{router: NewRouter(h, m, zerolog.Nop()), uploads: dir}
}

func (f fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, target, filename string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 5, 5))))
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	f := newFixture(t, 0, nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestPredictFromImage(t *testing.T) {
	f := newFixture(t, 27, stubFetcher{text: "77 calories"})
	rec := f.do(uploadRequest(t, "/predict/image", "spud.png", pngBytes(t)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got classify.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Potato", got.Label)
	assert.Equal(t, produce.Vegetable, got.Category)
	assert.Equal(t, "77 calories (100 grams)", got.Nutrition)

	_, err := os.Stat(filepath.Join(f.uploads, "spud.png"))
	assert.NoError(t, err, "upload is kept under its original name")
}

func TestPredictFromImage_Errors(t *testing.T) {
	f := newFixture(t, 0, nil)

	rec := f.do(uploadRequest(t, "/predict/image", "junk.png", []byte("not a png")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), msgInvalidImage)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/predict/image", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f = newFixture(t, produce.NumClasses, nil)
	rec = f.do(uploadRequest(t, "/predict/image", "apple.png", pngBytes(t)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), msgProcessingError)
}

func TestUploadPage(t *testing.T) {
	f := newFixture(t, 0, stubFetcher{text: "52 calories"})

	rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Choose an Image")

	rec = f.do(uploadRequest(t, "/", "apple.png", pngBytes(t)))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<strong>Category</strong>: Fruit")
	assert.Contains(t, body, "<strong>Predicted</strong>: Apple")
	assert.Contains(t, body, "52 calories (100 grams)")
}

func TestUploadPage_NutritionUnavailable(t *testing.T) {
	f := newFixture(t, 33, stubFetcher{err: nutrition.ErrLookupUnavailable})

	rec := f.do(uploadRequest(t, "/", "tomato.png", pngBytes(t)))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Vegetables")
	assert.Contains(t, body, "Tomato")
	assert.NotContains(t, body, "100 grams")
}

func TestUploadPage_DecodeError(t *testing.T) {
	f := newFixture(t, 0, nil)

	rec := f.do(uploadRequest(t, "/", "broken.jpg", []byte{0xff, 0xd8, 0x00}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), msgProcessingError)
	assert.NotContains(t, rec.Body.String(), "Predicted")
}

func TestPredict_RawTensor(t *testing.T) {
	f := newFixture(t, 1, nil)

	payload, err := json.Marshal(PredictionRequest{Image: make([]float32, 4*4*3)})
	require.NoError(t, err)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"label":"Banana"`)

	payload, err = json.Marshal(PredictionRequest{Image: make([]float32, 3)})
	require.NoError(t, err)
	rec = f.do(httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(payload)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClasses(t *testing.T) {
	f := newFixture(t, 0, nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/classes", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Classes    []string `json:"classes"`
		Fruits     []string `json:"fruits"`
		Vegetables []string `json:"vegetables"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Classes, produce.NumClasses)
	assert.Equal(t, produce.NumClasses, len(got.Fruits)+len(got.Vegetables))
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, 0, nil)
	rec := f.do(httptest.NewRequest(http.MethodOptions, "/predict/image", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, 0, nil)
	f.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/health",status="200"} 1`)
}

func TestPredictFromImage_TooLarge(t *testing.T) {
	f := newFixture(t, 0, nil)
	big := make([]byte, MaxUploadSize+1<<20)

	rec := f.do(uploadRequest(t, "/predict/image", "huge.png", big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), msgTooLarge)

	rec = f.do(uploadRequest(t, "/", "huge.png", big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), msgTooLarge)

	_, err := os.Stat(filepath.Join(f.uploads, "huge.png"))
	assert.True(t, os.IsNotExist(err))
}
