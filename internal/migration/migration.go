package migration

import (
	notificationdomain "github.com/kolamart/kolamart/internal/notification/domain"
	orderdomain "github.com/kolamart/kolamart/internal/order/domain"
	productdomain "github.com/kolamart/kolamart/internal/product/domain"
	txndomain "github.com/kolamart/kolamart/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(Run),
)

// Run applies schema migrations at startup. AutoMigrate is additive only;
// destructive changes go through operations, not deploys.
func Run(db *gorm.DB, log *zap.Logger) error {
	log = log.Named("migration")
	err := db.AutoMigrate(
		&productdomain.Product{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&txndomain.Transaction{},
		&notificationdomain.Alert{},
	)
	if err != nil {
		return err
	}
	log.Info("schema migrated")
	return nil
}
