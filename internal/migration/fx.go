package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, log *zap.Logger) error {
		log = log.Named("migrations")
		dialect := conn.Dialector.Name()
		if !Supports(dialect) {
			log.Warn("embedded migrations target postgres; schema must be provisioned separately",
				zap.String("dialect", dialect),
			)
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		log.Info("schema up to date")
		return nil
	}),
)

// Supports reports whether the embedded migrations can run on dialect.
func Supports(dialect string) bool {
	return dialect == "postgres"
}
