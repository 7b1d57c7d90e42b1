package di

import (
	"go.uber.org/zap"

	"eden-backend/application/batch"
	"eden-backend/application/ports"
	"eden-backend/application/services"
	"eden-backend/infrastructure/config"
	"eden-backend/infrastructure/extraction"
	"eden-backend/infrastructure/tasks"
	"eden-backend/interfaces/http/rest"
	"eden-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	LogLevel  zap.AtomicLevel
	Metrics   *observability.Collector
	Storage   *Storage
	EventBus  ports.EventBus
	LLM       ports.LLMProvider
	Extractor *extraction.Extractor
	Capture   *services.CaptureService
	Items     *services.ItemService
	Chat      *services.ChatService
	Runner    *batch.Runner
	Scheduler *tasks.Scheduler
	Router    *rest.Router
}
