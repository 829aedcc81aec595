package migration

import (
	"github.com/shulekit/shulekit/internal/config"
	feedomain "github.com/shulekit/shulekit/internal/feestructure/domain"
	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
	paymentdomain "github.com/shulekit/shulekit/internal/payment/domain"
	promotiondomain "github.com/shulekit/shulekit/internal/promotion/domain"
	schooldomain "github.com/shulekit/shulekit/internal/school/domain"
	"github.com/shulekit/shulekit/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(
				&schooldomain.School{},
				&schooldomain.AcademicYear{},
				&schooldomain.Term{},
				&schooldomain.Grade{},
				&schooldomain.ClassRoom{},
				&schooldomain.Student{},
				&schooldomain.Alumni{},
				&schooldomain.StudentAcademics{},
				&feedomain.FeeStructure{},
				&paymentdomain.Payment{},
				&paymentdomain.Receipt{},
				&ledgerdomain.YearClose{},
				&promotiondomain.PromotionCriteria{},
				&promotiondomain.ClassProgression{},
				&promotiondomain.PromotionLog{},
			); err != nil {
				return err
			}
		}

		if cfg.DefaultSchoolID != 0 {
			if err := seed.EnsureSchoolWithID(conn, cfg.DefaultSchoolID); err != nil {
				return err
			}
		}
		if cfg.SeedDemoData {
			return seed.EnsureDemoSchool(conn)
		}
		return nil
	}),
)
