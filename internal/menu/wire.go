package menu

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
	return &Module{
		Controller: NewController(repo, publisher, logger),
		Repository: repo,
	}
}
