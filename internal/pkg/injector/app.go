package injector

import (
	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	"github.com/lk2023060901/doc-catalog-backend/internal/conf"
	"github.com/lk2023060901/doc-catalog-backend/internal/data"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	"github.com/lk2023060901/doc-catalog-backend/internal/server"
)

// App encapsulates all application dependencies
type App struct {
	Config     *conf.Config
	Logger     *logger.Logger
	Data       *data.Data
	Stats      *biz.StatsCache
	HTTPServer *server.HTTPServer
}
