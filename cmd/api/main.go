package main

import (
	"context"
	"math/big"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	httpadp "frendlend-backend/internal/adapter/http"
	ledgerdb "frendlend-backend/internal/adapter/ledger"
	"frendlend-backend/internal/adapter/middleware"
	"frendlend-backend/internal/adapter/repository/mysql"
	"frendlend-backend/internal/config"
	domainFee "frendlend-backend/internal/domain/fee"
	domainLoan "frendlend-backend/internal/domain/loan"
	domainOffer "frendlend-backend/internal/domain/offer"
	domainUow "frendlend-backend/internal/domain/uow"
	"frendlend-backend/internal/infrastructure/cache"
	"frendlend-backend/internal/infrastructure/db"
	"frendlend-backend/internal/notify"
	adminuc "frendlend-backend/internal/usecase/admin"
	batchuc "frendlend-backend/internal/usecase/batch"
	loanuc "frendlend-backend/internal/usecase/loan"
	offeruc "frendlend-backend/internal/usecase/offer"
	"frendlend-backend/pkg/money"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.WithError(err).Fatal("connect mysql")
	}
	models := append([]any{
		&domainLoan.Loan{},
		&domainOffer.Offer{},
		&domainFee.Setting{},
		&domainFee.Balance{},
	}, ledgerdb.Models()...)
	if err := gdb.AutoMigrate(models...); err != nil {
		log.WithError(err).Fatal("migrate")
	}

	rdb, err := cache.Open(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.WithError(err).Fatal("connect redis")
	}

	uow := mysql.NewGormUoW(gdb, cfg.ServiceID)

	seedProtocolFee(log, uow, cfg)

	acceptanceFee := big.NewInt(0)
	if cfg.AcceptanceFee != "" {
		a, err := money.Parse(cfg.AcceptanceFee)
		if err != nil {
			log.WithError(err).Fatal("invalid ACCEPTANCE_FEE")
		}
		acceptanceFee = a.Big()
	}

	offers := offeruc.NewUsecase(uow, log)
	loans := loanuc.NewUsecase(uow, loanuc.Params{
		ServiceID:             cfg.ServiceID,
		FeeAccount:            cfg.FeeAccount,
		ImpairmentGracePeriod: time.Duration(cfg.ImpairGraceSecs) * time.Second,
		AcceptanceFee:         acceptanceFee,
	}, notify.WebhookFactory, log)
	admin := adminuc.NewUsecase(uow, adminuc.Params{
		AdminID:    cfg.AdminID,
		FeeAccount: cfg.FeeAccount,
		Treasury:   cfg.Treasury,
	}, log)
	batch := batchuc.NewUsecase(uow, loans, offers)

	h := httpadp.NewHandler()
	oh := httpadp.NewOfferHandler(offers)
	lh := httpadp.NewLoanHandler(loans)
	ah := httpadp.NewAdminHandler(admin)
	bh := httpadp.NewBatchHandler(batch)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())
	e.Use(middleware.Idempotency(rdb, log, time.Duration(cfg.IdempTTLSecs)*time.Second))

	// routes
	e.GET("/health", h.Health)

	e.POST("/offers", oh.CreateOffer)
	e.GET("/offers/:offer_id", oh.GetOffer)
	e.POST("/offers/:offer_id/reject", oh.RejectOffer)
	e.POST("/offers/:offer_id/accept", lh.AcceptOffer)
	e.POST("/offers/accept", lh.BatchAccept)

	e.GET("/loans/:loan_id", lh.GetLoan)
	e.GET("/loans/:loan_id/due", lh.TotalDue)
	e.POST("/loans/:loan_id/pay", lh.Pay)
	e.POST("/loans/:loan_id/impair", lh.Impair)
	e.POST("/loans/:loan_id/mark-paid", lh.MarkPaid)

	e.POST("/batch", bh.Run)

	adm := e.Group("/admin", middleware.AdminAuth(cfg.AdminJWTSecret, cfg.AdminID))
	adm.PUT("/fee", ah.SetProtocolFee)
	adm.POST("/fees/withdraw", ah.WithdrawFees)

	if cfg.FeeSweepCron != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.FeeSweepCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			withdrawals, err := admin.WithdrawAllFees(ctx, cfg.AdminID)
			if err != nil {
				log.WithError(err).Error("scheduled fee sweep failed")
				return
			}
			log.WithField("withdrawals", len(withdrawals)).Info("fee sweep done")
		})
		if err != nil {
			log.WithError(err).Fatal("invalid FEE_SWEEP_CRON")
		}
		c.Start()
		defer c.Stop()
	}

	addr := ":" + cfg.AppPort
	log.WithField("addr", addr).Info("listening")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// seedProtocolFee applies PROTOCOL_FEE_BPS on first boot only; after that the
// admin surface owns the setting.
func seedProtocolFee(log *logrus.Logger, uow *mysql.GormUoW, cfg *config.Config) {
	if cfg.ProtocolFeeBps == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := uow.WithinTx(ctx, func(r domainUow.Repos) error {
		s, err := r.Fees.GetSetting(ctx)
		if err != nil {
			return err
		}
		if s.UpdatedBy != "" {
			return nil
		}
		s.FeeBps = cfg.ProtocolFeeBps
		s.UpdatedBy = cfg.AdminID
		return r.Fees.SaveSetting(ctx, s)
	})
	if err != nil {
		log.WithError(err).Fatal("seed protocol fee")
	}
}
