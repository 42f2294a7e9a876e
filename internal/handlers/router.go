package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Brownie44l1/nutri-vision/internal/metrics"
)

// NewRouter mounts every endpoint on a fresh gin engine.
func NewRouter(h *Handler, m *metrics.Metrics, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log), CORS())
	if m != nil {
		r.Use(Metrics(m))
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.MaxMultipartMemory = MaxUploadSize
	r.SetHTMLTemplate(Templates())

	r.GET("/", h.Index)
	r.POST("/", h.Upload)
	r.GET("/health", h.Health)
	r.GET("/classes", h.Classes)
	r.POST("/predict", h.Predict)
	r.POST("/predict/image", h.PredictFromImage)

	return r
}
