package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shulekit/shulekit/internal/cache"
	"github.com/shulekit/shulekit/internal/config"
	"github.com/shulekit/shulekit/internal/feestructure"
	feedomain "github.com/shulekit/shulekit/internal/feestructure/domain"
	"github.com/shulekit/shulekit/internal/ledger"
	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
	"github.com/shulekit/shulekit/internal/observability"
	obsmiddleware "github.com/shulekit/shulekit/internal/observability/logger"
	obsmetrics "github.com/shulekit/shulekit/internal/observability/metrics"
	"github.com/shulekit/shulekit/internal/payment"
	paymentdomain "github.com/shulekit/shulekit/internal/payment/domain"
	"github.com/shulekit/shulekit/internal/promotion"
	promotiondomain "github.com/shulekit/shulekit/internal/promotion/domain"
	"github.com/shulekit/shulekit/internal/providers"
	"github.com/shulekit/shulekit/internal/providers/pdf"
	"github.com/shulekit/shulekit/internal/school"
	schooldomain "github.com/shulekit/shulekit/internal/school/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	cache.Module,
	school.Module,
	feestructure.Module,
	ledger.Module,
	payment.Module,
	promotion.Module,
	providers.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	schoolRepo   schooldomain.Repository
	feeSvc       feedomain.Service
	ledgerSvc    ledgerdomain.Service
	paymentSvc   paymentdomain.Service
	promotionSvc promotiondomain.Service
	pdfProvider  pdf.Provider
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	SchoolRepo   schooldomain.Repository
	FeeSvc       feedomain.Service
	LedgerSvc    ledgerdomain.Service
	PaymentSvc   paymentdomain.Service
	PromotionSvc promotiondomain.Service
	PDFProvider  pdf.Provider
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		schoolRepo:   p.SchoolRepo,
		feeSvc:       p.FeeSvc,
		ledgerSvc:    p.LedgerSvc,
		paymentSvc:   p.PaymentSvc,
		promotionSvc: p.PromotionSvc,
		pdfProvider:  p.PDFProvider,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	schools := v1.Group("/schools/:schoolId", s.SchoolContext())
	{
		// -------- Fee structures --------
		schools.GET("/fee-structures", s.ListFeeStructures)
		schools.POST("/fee-structures", s.CreateFeeStructure)
		schools.GET("/fee-structures/:id", s.GetFeeStructureByID)
		schools.PATCH("/fee-structures/:id", s.UpdateFeeStructure)
		schools.DELETE("/fee-structures/:id", s.DeleteFeeStructure)

		// -------- Balances and statements --------
		schools.GET("/students/:studentId/balances", s.GetStudentBalances)
		schools.GET("/students/:studentId/statement", s.GetStudentStatement)

		// -------- Payments and receipts --------
		schools.POST("/payments", s.ApplyPayment)
		schools.GET("/payments", s.ListPaymentsByDateRange)
		schools.GET("/students/:studentId/payments", s.ListStudentPayments)
		schools.GET("/students/:studentId/receipts", s.ListStudentReceipts)
		schools.GET("/receipts/:receiptNo", s.GetReceipt)
		schools.GET("/receipts/:receiptNo/pdf", s.RenderReceiptPDF)

		// -------- Year close --------
		schools.POST("/year-closes", s.CloseYear)

		// -------- Promotion --------
		schools.GET("/promotion-criteria", s.ListPromotionCriteria)
		schools.POST("/promotion-criteria", s.CreatePromotionCriteria)
		schools.PATCH("/promotion-criteria/:id", s.UpdatePromotionCriteria)
		schools.GET("/class-progressions", s.ListClassProgressions)
		schools.POST("/class-progressions", s.CreateClassProgression)
		schools.GET("/students/:studentId/promotion-logs", s.ListPromotionLogs)
		schools.POST("/promotions/evaluate", s.EvaluatePromotion)
		schools.POST("/promotions/class", s.PromoteClass)
		schools.POST("/promotions/school", s.PromoteSchool)
	}
}
