package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tangobook/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.Authenticator
	AuthMetrics       middleware.AuthMetrics
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	HTTPMetrics       middleware.HTTPMetrics

	// サービス
	AuthService       AuthServiceInterface
	AuthConfig        AuthHandlerConfig
	QuizService       QuizServiceInterface
	DictionaryService DictionaryServiceInterface
	AccountService    AccountServiceInterface
	ContactService    ContactServiceInterface

	// 運用エンドポイント
	MetricsHandler http.Handler
	HealthCheck    func() error
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Auth → RateLimit(General)
//
// セッション発行（/auth/session）とログアウトは認証ミドルウェアの外に
// 配置する。どちらも認証済みコンテキストを前提にできないため。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.HTTPMetrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	flashcardHandler := NewFlashcardHandler(deps.QuizService)
	dictionaryHandler := NewDictionaryHandler(deps.DictionaryService)
	accountHandler := NewAccountHandler(deps.AccountService, deps.AuthConfig)
	contactHandler := NewContactHandler(deps.ContactService)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler(deps.HealthCheck))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/session", authHandler.CreateSession)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.Authenticator, deps.AuthMetrics))
			r.Get("/me", authHandler.Me)
		})
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Authenticator, deps.AuthMetrics))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// フラッシュカード
		r.Route("/api/flashcard", func(r chi.Router) {
			r.Route("/quiz", func(r chi.Router) {
				r.Get("/", flashcardHandler.ListQuiz)
				r.With(deps.RateLimiter.QuizStartMiddleware()).Post("/start", flashcardHandler.StartQuiz)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", flashcardHandler.GetQuiz)
					r.Delete("/", flashcardHandler.DeleteQuiz)
					r.Post("/answer", flashcardHandler.SubmitAnswer)
					r.Post("/pause", flashcardHandler.PauseQuiz)
					r.Post("/resume", flashcardHandler.ResumeQuiz)
				})
			})

			r.Route("/review", func(r chi.Router) {
				r.Get("/", flashcardHandler.ListReviews)
				r.With(deps.RateLimiter.QuizStartMiddleware()).Post("/start", flashcardHandler.StartReview)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", flashcardHandler.GetReview)
					r.Delete("/", flashcardHandler.DeleteReview)
					r.Post("/answer", flashcardHandler.SubmitReviewAnswer)
					r.Post("/pause", flashcardHandler.PauseReview)
					r.Post("/resume", flashcardHandler.ResumeReview)
				})
			})

			r.Get("/statistics", flashcardHandler.Statistics)
			r.Get("/incorrect-words", flashcardHandler.IncorrectWords)
		})

		// 辞書
		r.Route("/api/dictionary", func(r chi.Router) {
			r.Get("/words", dictionaryHandler.ListWords)
			r.Get("/words/{id}", dictionaryHandler.GetWord)
			r.Get("/search", dictionaryHandler.Search)
			r.Get("/random", dictionaryHandler.RandomWord)
			r.Get("/levels", dictionaryHandler.ListLevels)
			r.Get("/parts-of-speech", dictionaryHandler.ListPartsOfSpeech)
		})

		// アカウント
		r.Route("/api/accounts", func(r chi.Router) {
			r.Get("/profile", accountHandler.Profile)
			r.Patch("/profile", accountHandler.UpdateProfile)
			r.Get("/detail", accountHandler.Detail)
			r.Delete("/withdraw", accountHandler.Withdraw)
		})

		// お問い合わせ（送信専用レート制限を追加）
		r.Route("/api/contact", func(r chi.Router) {
			r.With(deps.RateLimiter.ContactMiddleware()).Post("/", contactHandler.Submit)
			r.Get("/", contactHandler.List)
		})
	})

	return r
}

// healthHandler はヘルスチェックのHTTPハンドラーを返す。
// checkがnilの場合は常に200を返す。
func healthHandler(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
