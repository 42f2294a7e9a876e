package handlers

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Brownie44l1/nutri-vision/internal/classify"
	"github.com/Brownie44l1/nutri-vision/internal/model"
	"github.com/Brownie44l1/nutri-vision/internal/produce"
	"github.com/Brownie44l1/nutri-vision/internal/storage"
)

// MaxUploadSize bounds multipart bodies.
const MaxUploadSize = 10 << 20

const (
	msgProcessingError = "Error in image processing."
	msgNoImage         = "No image file provided. Use 'image' as the form field name"
	msgInvalidImage    = "Invalid image format. Supported: JPEG, PNG"
	msgTooLarge        = "Image is larger than 10 MB"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

type Handler struct {
	service *classify.Service
	uploads *storage.Uploads
}

func NewHandler(service *classify.Service, uploads *storage.Uploads) *Handler {
	return &Handler{
		service: service,
		uploads: uploads,
	}
}

type PredictionRequest struct {
	Image []float32 `json:"image"`
}

type pageData struct {
	Result    *classify.Result
	ImageName string
	Error     string
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) Classes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"classes":    produce.Labels(),
		"fruits":     produce.FruitNames(),
		"vegetables": produce.VegetableNames(),
	})
}

func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{})
}

// Upload is the form post behind the index page.
func (h *Handler) Upload(c *gin.Context) {
	name, data, err := h.readUpload(c)
	if err != nil {
		status, msg := uploadError(err)
		c.HTML(status, "index.html", pageData{Error: msg})
		return
	}

	result, err := h.classify(c, name, data)
	if err != nil {
		c.HTML(statusFor(err), "index.html", pageData{Error: msgProcessingError})
		return
	}

	c.HTML(http.StatusOK, "index.html", pageData{Result: result, ImageName: name})
}

func (h *Handler) Predict(c *gin.Context) {
	var req PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	result, err := h.service.ClassifyTensor(c.Request.Context(), req.Image)
	if err != nil {
		logger(c).Err(err).Msg("prediction failed")
		c.JSON(statusFor(err), gin.H{"error": errorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) PredictFromImage(c *gin.Context) {
	name, data, err := h.readUpload(c)
	if err != nil {
		status, msg := uploadError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	result, err := h.classify(c, name, data)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": errorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) readUpload(c *gin.Context) (string, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

	header, err := c.FormFile("image")
	if err != nil {
		logger(c).Debug().Err(err).Msg("read file from form")
		return "", nil, err
	}

	data, err := readFormFile(header)
	if err != nil {
		logger(c).Err(err).Msg("open form file")
		return "", nil, err
	}

	logger(c).Info().Str("file", header.Filename).Int64("size", header.Size).Msg("received file")
	return header.Filename, data, nil
}

func (h *Handler) classify(c *gin.Context, name string, data []byte) (*classify.Result, error) {
	path, err := h.uploads.Save(name, data)
	if err != nil {
		logger(c).Err(err).Str("file", name).Msg("save upload")
		return nil, err
	}

	result, err := h.service.Classify(c.Request.Context(), data)
	if err != nil {
		logger(c).Err(err).Str("path", path).Msg("classification failed")
		return nil, err
	}

	logger(c).Info().
		Str("label", result.Label).
		Stringer("category", result.Category).
		Float32("confidence", result.Confidence).
		Bool("nutrition", result.Nutrition != "").
		Msg("classified upload")
	return result, nil
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// uploadError maps a failure to read the multipart upload.
func uploadError(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, msgTooLarge
	}
	return http.StatusBadRequest, msgNoImage
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrImageDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, classify.ErrInvalidInput), errors.Is(err, storage.ErrEmptyFilename):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrImageDecode):
		return msgInvalidImage
	case errors.Is(err, classify.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, storage.ErrEmptyFilename):
		return msgNoImage
	default:
		return msgProcessingError
	}
}

func logger(c *gin.Context) *zerolog.Logger {
	return zerolog.Ctx(c.Request.Context())
}
