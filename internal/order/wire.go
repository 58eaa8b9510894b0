package order

import (
	"database/sql"

	"go.uber.org/zap"

	"comanda/internal/feed"
	"comanda/internal/order/controller"
	"comanda/internal/order/repository"
	"comanda/internal/order/service"
	"comanda/internal/order/store"
	"comanda/internal/printer"
)

// Module bundles the order stack. The service is shared with the print gate;
// the store is the read model behind the table and kitchen views.
type Module struct {
	Controller *controller.Controller
	Service    *service.OrderService
	Store      *store.Store
}

func NewModule(
	db *sql.DB,
	menu service.MenuReader,
	settings service.SettingsReader,
	publisher *feed.Publisher,
	dispatcher *printer.Dispatcher,
	logger *zap.Logger,
	maxRetryAttempts int,
) *Module {
	orderRepo := repository.NewMySQLOrderRepository(db)
	itemRepo := repository.NewMySQLOrderItemRepository(db)

	svc := service.NewOrderService(
		db,
		orderRepo,
		itemRepo,
		menu,
		settings,
		publisher,
		logger,
		maxRetryAttempts,
	)

	st := store.New(svc, logger)
	ctrl := controller.NewController(svc, st, dispatcher, settings, logger)

	return &Module{
		Controller: ctrl,
		Service:    svc,
		Store:      st,
	}
}
