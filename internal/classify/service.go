package classify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Brownie44l1/nutri-vision/internal/metrics"
	"github.com/Brownie44l1/nutri-vision/internal/model"
	"github.com/Brownie44l1/nutri-vision/internal/nutrition"
	"github.com/Brownie44l1/nutri-vision/internal/produce"
)

// Predictor runs the produce model. *model.Handle implements it.
type Predictor interface {
	Input() model.Input
	Predict(input []float32) (*model.Prediction, error)
}

// Result is everything shown for one uploaded photo.
type Result struct {
	produce.Resolution
	Confidence  float32            `json:"confidence"`
	Nutrition   string             `json:"nutrition,omitempty"`
	Predictions map[string]float32 `json:"predictions"`
}

type Service struct {
	predictor Predictor
	nutrition nutrition.Fetcher
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewService wires the flow. fetcher and m may be nil.
func NewService(predictor Predictor, fetcher nutrition.Fetcher, m *metrics.Metrics, log zerolog.Logger) *Service {
	return &Service{
		predictor: predictor,
		nutrition: fetcher,
		metrics:   m,
		log:       log,
	}
}

// InputSize is the length ClassifyTensor expects.
func (s *Service) InputSize() int {
	in := s.predictor.Input()
	return in.Size * in.Size * 3
}

// Classify decodes an uploaded JPEG or PNG and classifies it.
func (s *Service) Classify(ctx context.Context, image []byte) (*Result, error) {
	img, format, err := model.DecodeBytes(image)
	if err != nil {
		return nil, err
	}
	s.logger(ctx).Debug().
		Str("format", format).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("decoded upload")

	return s.ClassifyTensor(ctx, model.Preprocess(img, s.predictor.Input()))
}

// ClassifyTensor classifies an already normalized input tensor.
func (s *Service) ClassifyTensor(ctx context.Context, input []float32) (*Result, error) {
	if want := s.InputSize(); len(input) != want {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidInput, want, len(input))
	}

	start := time.Now()
	pred, err := s.predictor.Predict(input)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if s.metrics != nil {
		s.metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	}

	res, err := produce.Resolve(pred.Index)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Resolution:  res,
		Confidence:  pred.Confidence,
		Predictions: scoresByLabel(pred.Scores),
	}
	if s.metrics != nil {
		s.metrics.Predictions.WithLabelValues(res.Category.String()).Inc()
	}

	result.Nutrition = s.lookupNutrition(ctx, res.Label)
	return result, nil
}

// lookupNutrition never fails the request; an unavailable lookup just
// leaves the nutrition line out.
func (s *Service) lookupNutrition(ctx context.Context, label string) string {
	if s.nutrition == nil {
		return ""
	}

	text, err := s.nutrition.Fetch(ctx, label)
	if err != nil {
		s.observeLookup("unavailable")
		ev := s.logger(ctx).Warn().Err(err).Str("label", label)
		if !errors.Is(err, nutrition.ErrLookupUnavailable) {
			ev = ev.Bool("unexpected", true)
		}
		ev.Msg("nutrition lookup failed")
		return ""
	}

	s.observeLookup("ok")
	return nutrition.Format(text)
}

func (s *Service) observeLookup(outcome string) {
	if s.metrics != nil {
		s.metrics.NutritionLookups.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.log
}

func scoresByLabel(scores []float32) map[string]float32 {
	out := make(map[string]float32, len(scores))
	for i, v := range scores {
		if res, err := produce.Resolve(i); err == nil {
			out[res.Label] = v
		}
	}
	return out
}
