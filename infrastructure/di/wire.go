//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"eden-backend/application/batch"
	"eden-backend/application/ports"
	"eden-backend/application/services"
	"eden-backend/infrastructure/config"
	"eden-backend/infrastructure/extraction"
)

// InfrastructureSet provides logging, metrics, storage, events and the model.
var InfrastructureSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideMetrics,
	ProvideDomainConfig,
	ProvideErrorHandler,
	ProvideStorage,
	ProvideItemStore,
	ProvideTokenStore,
	ProvideEventBus,
	ProvideLLMProvider,
	ProvideExtractor,
	ProvideScheduler,
	wire.Bind(new(ports.ContentExtractor), new(*extraction.Extractor)),
)

// ApplicationSet provides the capture pipeline and the services around it.
var ApplicationSet = wire.NewSet(
	services.NewAnalyzerService,
	services.NewLinkerService,
	services.NewEdgeService,
	services.NewCaptureService,
	services.NewItemService,
	services.NewChatService,
	ProvideRunner,
	wire.Bind(new(ports.Analyzer), new(*services.AnalyzerService)),
	wire.Bind(new(ports.Linker), new(*services.LinkerService)),
	wire.Bind(new(batch.Pipeline), new(*services.CaptureService)),
)

// InterfaceSet provides the HTTP surface.
var InterfaceSet = wire.NewSet(
	ProvideHandlers,
	ProvideRouterOptions,
	ProvideRouter,
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	InfrastructureSet,
	ApplicationSet,
	InterfaceSet,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// drains background work and closes storage.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
