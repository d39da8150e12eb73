// Command appserver wires together every casebot component (C1-C13) into a
// running process: storage selection, the antifraud/RNG/payment services,
// the HTTP surface, the long-poll runner, and the cron scheduler, managed as
// a unit by the lifecycle manager.
package main

import (
	"context"
	"encoding/hex"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/starvault/casebot/internal/app/core/clock"
	"github.com/starvault/casebot/internal/app/core/lifecycle"
	"github.com/starvault/casebot/internal/app/domain/ratelimit"
	"github.com/starvault/casebot/internal/app/httpapi"
	appmetrics "github.com/starvault/casebot/internal/app/metrics"
	"github.com/starvault/casebot/internal/app/platform/telegram"
	"github.com/starvault/casebot/internal/app/services/awardsvc"
	"github.com/starvault/casebot/internal/app/services/banservice"
	"github.com/starvault/casebot/internal/app/services/caseloader"
	"github.com/starvault/casebot/internal/app/services/payment"
	"github.com/starvault/casebot/internal/app/services/queue"
	"github.com/starvault/casebot/internal/app/services/ratelimiter"
	"github.com/starvault/casebot/internal/app/services/rngsvc"
	"github.com/starvault/casebot/internal/app/services/scheduler"
	"github.com/starvault/casebot/internal/app/services/velocityscorer"
	"github.com/starvault/casebot/internal/app/storage"
	"github.com/starvault/casebot/internal/app/storage/filestore"
	"github.com/starvault/casebot/internal/app/storage/memory"
	"github.com/starvault/casebot/internal/app/storage/postgres"
	"github.com/starvault/casebot/internal/app/storage/redisstore"
	"github.com/starvault/casebot/internal/platform/database"
	"github.com/starvault/casebot/internal/platform/migrations"
	"github.com/starvault/casebot/pkg/config"
	"github.com/starvault/casebot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	log0 := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	fairnessKey, err := decodeFairnessKey(cfg.RNG.FairnessKey)
	if err != nil {
		log0.WithField("error", err.Error()).Fatal("invalid FAIRNESS_KEY")
	}

	rootCtx := context.Background()

	clk := clock.System{}
	manager := lifecycle.NewManager()

	// --- persistence (C13) --------------------------------------------
	bucketStore, velocityStore, rngStore, paymentStore, banStore, ledgerStore, closeStores :=
		buildStores(rootCtx, cfg, log0)
	defer closeStores()

	// --- case economics (C8) -------------------------------------------
	cases := caseloader.New(cfg.CasesFile)
	if _, err := cases.Reload(); err != nil {
		log0.WithField("error", err.Error()).Warn("initial case config load failed; serving empty catalog")
	}

	// --- chat-platform facade (out-of-scope collaborator, §1) -----------
	var tgClient telegram.Client = telegram.NewHTTPClient(cfg.Bot.Token, 25)

	// --- antifraud (C2/C3/C4) -------------------------------------------
	limiter := ratelimiter.New(bucketStore, clk)
	scorer := velocityscorer.New(velocityStore, clk, velocityParams(cfg))
	bans := banservice.New(banStore, clk)

	ipParams := ratelimit.Params{
		Capacity:      cfg.Antifraud.IPBucketCapacity,
		RefillPerSec:  cfg.Antifraud.IPBucketRefillPerSec,
		TTLSec:        3600,
		InitialTokens: cfg.Antifraud.IPBucketCapacity,
	}
	subjectParams := ratelimit.Params{
		Capacity:      cfg.Antifraud.SubjectBucketCapacity,
		RefillPerSec:  cfg.Antifraud.SubjectBucketRefillSec,
		TTLSec:        3600,
		InitialTokens: cfg.Antifraud.SubjectBucketCapacity,
	}

	// --- RNG commit/reveal/draw (C9) ------------------------------------
	rngService := rngsvc.New(rngStore, clk, fairnessKey, cases.CaseItems)

	// --- award fulfillment + payment state machine (C10) ----------------
	awarder := awardsvc.New(tgClient, ledgerStore, clk)
	paymentService := payment.New(paymentStore, rngService, tgClient, clk, fairnessKey, cases.CaseLookup, awarder, appmetrics.Facade{})

	// --- update ingestion pipeline (C5/C6/C7) ---------------------------
	dedupStore := memory.NewDedupStore()
	dispatcher := httpapi.NewDispatcher(httpapi.DispatchConfig{
		Scorer:   scorer,
		Payments: paymentService,
		Telegram: tgClient,
		Metrics:  appmetrics.Facade{},
		Log:      logger.NewDefault("dispatch"),
	})
	q := queue.New(dedupStore, clk, dispatcher, appmetrics.Facade{}, queue.Params{
		Capacity: cfg.Queue.Capacity,
		Workers:  cfg.Queue.Workers,
		DedupTTL: time.Duration(cfg.Queue.DedupTTLHr) * time.Hour,
	})
	manager.Register(q)

	// --- HTTP surface (C6, C11, miniapp) --------------------------------
	handler := httpapi.NewHandler(httpapi.Config{
		Queue:               q,
		Limiter:             limiter,
		Scorer:              scorer,
		Bans:                bans,
		Cases:               cases,
		Payments:            paymentService,
		RNG:                 rngService,
		Telegram:            tgClient,
		Clock:               clk,
		Metrics:             appmetrics.Facade{},
		Log:                 log0,
		BotToken:            cfg.Bot.Token,
		WebhookSecretToken:  cfg.Bot.WebhookSecretToken,
		WebhookPath:         cfg.Bot.WebhookPath,
		AdminToken:          cfg.Admin.Token,
		WebAppDir:           cfg.Server.WebAppDir,
		IPBucketParams:      ipParams,
		SubjectBucketParams: subjectParams,
		AutoBanTTL:          time.Duration(cfg.Antifraud.AutoBanTTLSec) * time.Second,
		MetricsPath:         cfg.Server.MetricsPath,
		MetricsHandler:      appmetrics.Handler(),
	})

	addr := listenAddr(cfg)
	httpService := httpapi.NewService(addr, handler, log0)
	manager.Register(httpService)

	// --- exactly one ingress runner: webhook push XOR long-polling (§4.5)
	if cfg.Bot.Mode == "long_polling" {
		lp := httpapi.NewLongPollRunner(tgClient, q, appmetrics.Facade{}, logger.NewDefault("longpoll"))
		manager.Register(lp)
	}

	// --- periodic maintenance (gauges + lazy daily seed commit) ---------
	cron := scheduler.New(appmetrics.RefreshProcessGauges, scheduler.CommitTodayFunc(rngService), logger.NewDefault("scheduler"))
	manager.Register(cron)

	if err := manager.Start(rootCtx); err != nil {
		log0.WithField("error", err.Error()).Fatal("failed to start casebot")
	}
	log0.WithField("addr", addr).Info("casebot listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := manager.Stop(shutdownCtx); err != nil {
		log0.WithField("error", err.Error()).Error("shutdown encountered errors")
	}
}

func listenAddr(cfg *config.Config) string {
	if cfg.Server.Port == 0 {
		return ":8080"
	}
	return ":" + itoa(cfg.Server.Port)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func decodeFairnessKey(hexKey string) ([]byte, error) {
	if hexKey == "" {
		// Development fallback only; operators must set FAIRNESS_KEY for a
		// real deployment since it governs the provably-fair commitment.
		return make([]byte, 32), nil
	}
	return hex.DecodeString(hexKey)
}

func velocityParams(cfg *config.Config) velocityscorer.Params {
	af := cfg.Antifraud
	return velocityscorer.Params{
		ShortWindow:   time.Duration(af.ShortWindowSec) * time.Second,
		LongWindow:    time.Duration(af.LongWindowSec) * time.Second,
		IPShortMax:    af.IPShortBurstMax,
		IPLongMax:     af.IPLongBurstMax,
		PathsMax:      af.DistinctPathsMax,
		InvoiceMax:    af.InvoiceBurstMax,
		PrecheckMax:   af.PrecheckoutBurstMax,
		SuccessMax:    af.SuccessBurstMax,
		UAMaxTokens:   af.UAMismatchMaxDistinct,
		UAMismatchTTL: time.Duration(af.UAMismatchTTLSec) * time.Second,
		FlagScore:     af.FlagScore,
		SoftCap:       af.SoftCapThreshold,
		HardBlock:     af.HardBlockThreshold,
	}
}

// buildStores selects the bucket/velocity/RNG/payment/ban/ledger store
// implementations per configuration (§6, C13): Redis for the distributed
// bucket/velocity variants when REDIS_ADDR is set, otherwise in-memory; the
// RNG store per RNG_STORAGE (memory/file/db); Postgres for payment/ban/ledger
// whenever DATABASE_URL is configured, otherwise in-memory. The returned
// close func releases any opened DB/Redis/file handles.
func buildStores(ctx context.Context, cfg *config.Config, log0 *logger.Logger) (
	storage.BucketStore, storage.VelocityStore, storage.RNGStore,
	storage.PaymentStore, storage.BanStore, storage.LedgerStore,
	func(),
) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var bucketStore storage.BucketStore
	var velocityStore storage.VelocityStore
	if addr := cfg.Redis.Addr; addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = rdb.Close() })
		bucketStore = redisstore.NewBucketStore(rdb, "casebot:bucket")
		velocityStore = redisstore.NewVelocityStore(rdb, "casebot:velocity")
	} else {
		bucketStore = memory.NewBucketStore()
		velocityStore = memory.NewVelocityStore()
	}

	dsn := cfg.DatabaseConnString()

	var sharedStore *postgres.Store
	openPostgres := func() *postgres.Store {
		if sharedStore != nil {
			return sharedStore
		}
		db, err := database.Open(ctx, dsn)
		if err != nil {
			log0.WithField("error", err.Error()).Fatal("connect to postgres")
		}
		if err := migrations.Apply(ctx, db); err != nil {
			log0.WithField("error", err.Error()).Fatal("apply migrations")
		}
		closers = append(closers, func() { _ = db.Close() })
		sharedStore = postgres.New(db)
		return sharedStore
	}

	var rngStore storage.RNGStore
	switch cfg.RNG.Storage {
	case "file":
		path := "data/rng-journal.ndjson"
		fs, err := filestore.Open(path)
		if err != nil {
			log0.WithField("error", err.Error()).Fatal("open RNG file store")
		}
		closers = append(closers, func() { _ = fs.Close() })
		rngStore = fs
	case "db":
		if dsn == "" {
			log0.Fatal("RNG_STORAGE=db requires DATABASE_URL")
		}
		rngStore = openPostgres()
	default:
		rngStore = memory.NewRNGStore()
	}

	var paymentStore storage.PaymentStore
	var banStore storage.BanStore
	var ledgerStore storage.LedgerStore
	if dsn != "" {
		store := openPostgres()
		paymentStore = store
		banStore = store
		ledgerStore = store
	} else {
		paymentStore = memory.NewPaymentStore()
		banStore = memory.NewBanStore()
		ledgerStore = memory.NewLedgerStore()
	}

	return bucketStore, velocityStore, rngStore, paymentStore, banStore, ledgerStore, closeAll
}
