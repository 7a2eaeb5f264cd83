package tracker

import (
	"github.com/Alfresco/SearchServices-sub009/core/metrics"
	"github.com/Alfresco/SearchServices-sub009/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the tracker admin feature for core.
func NewFeature(core *reconcile.Core, m *metrics.Metrics, logger *zap.Logger, tracks bool) *Feature {
	svc := NewService(core, m, logger, tracks)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "tracker"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.service.core != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
