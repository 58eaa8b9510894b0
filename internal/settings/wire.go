package settings

import (
	"database/sql"

	"go.uber.org/zap"

	"comanda/internal/feed"
)

type Module struct {
	Controller *Controller
	Repository *MySQLRepository
}

func NewModule(db *sql.DB, publisher *feed.Publisher, logger *zap.Logger) *Module {
	repo := NewMySQLRepository(db)
	controller := NewController(repo, publisher, logger)
	return &Module{Controller: controller, Repository: repo}
}
