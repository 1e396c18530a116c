// Package app はサブコマンドの解析と依存関係のワイヤリングを担う。
package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/tangobook/internal/auth"
	"github.com/hitoshi/tangobook/internal/config"
	"github.com/hitoshi/tangobook/internal/contact"
	"github.com/hitoshi/tangobook/internal/database"
	"github.com/hitoshi/tangobook/internal/dictionary"
	"github.com/hitoshi/tangobook/internal/handler"
	"github.com/hitoshi/tangobook/internal/importer"
	"github.com/hitoshi/tangobook/internal/logger"
	"github.com/hitoshi/tangobook/internal/metrics"
	"github.com/hitoshi/tangobook/internal/middleware"
	"github.com/hitoshi/tangobook/internal/quiz"
	"github.com/hitoshi/tangobook/internal/repository"
	"github.com/hitoshi/tangobook/internal/security"
	"github.com/hitoshi/tangobook/internal/user"
	"github.com/hitoshi/tangobook/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandImport:
		return runImport(cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーと
// クリーンアップワーカーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	wordRepo := repository.NewPostgresWordRepo(db)
	progressRepo := repository.NewPostgresQuizProgressRepo(db)
	reviewRepo := repository.NewPostgresReviewProgressRepo(db)
	attemptRepo := repository.NewPostgresAttemptRepo(db)
	inquiryRepo := repository.NewPostgresInquiryRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	verifier := auth.NewVerifier(auth.VerifierConfig{
		Secret:   cfg.JWTSecret,
		JWKSURL:  cfg.JWKSURL,
		Audience: cfg.JWTAudience,
	}, nil)
	authService := auth.NewService(
		verifier, userRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	sanitizer := security.NewSanitizer()
	quizService := quiz.NewService(wordRepo, progressRepo, reviewRepo, attemptRepo, collector)
	dictionaryService := dictionary.NewService(wordRepo)
	accountService := user.NewService(userRepo, sessionRepo, wordRepo, attemptRepo, sanitizer)

	mailer := contact.NewSMTPMailer(contact.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
	contactService := contact.NewService(inquiryRepo, sanitizer, mailer, cfg.AdminEmail)

	// 5. レート制限の構築（configはreq/min単位、rate.Limitはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.QuizStartRate = rate.Limit(float64(cfg.RateLimitQuizStart) / 60.0)
	rateLimiterCfg.QuizStartBurst = cfg.RateLimitQuizStart
	rateLimiterCfg.ContactRate = rate.Limit(float64(cfg.RateLimitContact) / 60.0)
	rateLimiterCfg.ContactBurst = cfg.RateLimitContact
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		Authenticator:     authService,
		AuthMetrics:       collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		HTTPMetrics:       collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		QuizService:       quizService,
		DictionaryService: dictionaryService,
		AccountService:    accountService,
		ContactService:    contactService,

		MetricsHandler: metrics.Handler(registry),
		HealthCheck:    db.Ping,
	}

	router := handler.NewRouter(deps)

	// 7. クリーンアップワーカーの起動
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()

	cleanupWorker := cleanup.NewWorker(sessionRepo, progressRepo, collector, cfg.CleanupInterval)
	go cleanupWorker.Run(workerCtx)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")
	cancelWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runImport は単語データの一括取り込みを実行する。
// --file でxlsxまたはcsvファイルを指定し、--sheet でシート名を指定できる。
func runImport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	file := fs.String("file", "", "path to the xlsx/csv file to import")
	sheet := fs.String("sheet", "", "sheet name (xlsx only, defaults to the active sheet)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	wordRepo := repository.NewPostgresWordRepo(db)

	result, err := importer.NewImporter(wordRepo).ImportFile(context.Background(), *file, *sheet)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	slog.Info("import completed",
		slog.String("file", *file),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
