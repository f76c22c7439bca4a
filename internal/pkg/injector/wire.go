//go:build wireinject
// +build wireinject

package injector

import (
	"github.com/google/wire"
	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	"github.com/lk2023060901/doc-catalog-backend/internal/conf"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	"github.com/lk2023060901/doc-catalog-backend/internal/server"
)

// ProviderSet is the Wire provider set for all dependencies
var ProviderSet = wire.NewSet(
	// Data layer
	dataProviderSet,

	// Repositories and stores
	repositoryProviderSet,

	// Use cases
	useCaseProviderSet,

	// HTTP services
	httpServiceProviderSet,

	// Servers
	serverProviderSet,
)

var dataProviderSet = wire.NewSet(
	provideData,
	provideWorkerPool,
)

var repositoryProviderSet = wire.NewSet(
	provideFileRepo,
	provideBlobStore,
	provideStatsStore,
	provideRecentStore,
	provideNotifier,
)

var useCaseProviderSet = wire.NewSet(
	provideCatalogOptions,
	provideStatsCache,
	provideRecentUseCase,
	biz.NewCatalogUseCase,
)

var httpServiceProviderSet = wire.NewSet(
	provideJWTManager,
	provideCatalogService,
)

var serverProviderSet = wire.NewSet(
	server.NewHTTPServer,
)

// InitializeApp initializes the application with Wire
func InitializeApp(config *conf.Config, log *logger.Logger) (*App, func(), error) {
	wire.Build(ProviderSet, newApp)
	return nil, nil, nil
}
