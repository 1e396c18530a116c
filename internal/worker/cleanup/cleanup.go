// Package cleanup は期限切れデータを定期削除するバックグラウンドジョブを提供する。
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/tangobook/internal/repository"
)

// stalePausedAge を超えて中断されたままの未完了クイズは完了扱いに凍結される。
const stalePausedAge = 90 * 24 * time.Hour

// Metrics はクリーンアップ結果の記録インターフェース。
type Metrics interface {
	RecordSessionsCleaned(count int64)
}

// Worker は期限切れセッションの削除と放置クイズの凍結を定期実行する。
type Worker struct {
	sessionRepo  repository.SessionRepository
	progressRepo repository.QuizProgressRepository
	metrics      Metrics
	interval     time.Duration
	now          func() time.Time
}

// NewWorker はWorkerを生成する。intervalが0以下の場合は24時間間隔になる。
func NewWorker(sessionRepo repository.SessionRepository, progressRepo repository.QuizProgressRepository, metrics Metrics, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Worker{
		sessionRepo:  sessionRepo,
		progressRepo: progressRepo,
		metrics:      metrics,
		interval:     interval,
		now:          time.Now,
	}
}

// Run は起動直後に一度実行し、以後interval間隔で繰り返す。
// ctxのキャンセルで停止する。serveコマンドからgoroutineとして起動される。
func (w *Worker) Run(ctx context.Context) {
	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce はクリーンアップを1回実行する。
// 片方が失敗してももう片方は実行し、エラーはログのみに残す。
func (w *Worker) RunOnce(ctx context.Context) {
	now := w.now()

	deleted, err := w.sessionRepo.DeleteExpired(ctx, now)
	if err != nil {
		slog.Error("failed to delete expired sessions", slog.String("error", err.Error()))
	} else {
		if deleted > 0 {
			slog.Info("expired sessions deleted", slog.Int64("count", deleted))
		}
		w.metrics.RecordSessionsCleaned(deleted)
	}

	frozen, err := w.progressRepo.FreezeStalePaused(ctx, now.Add(-stalePausedAge))
	if err != nil {
		slog.Error("failed to freeze stale paused sessions", slog.String("error", err.Error()))
	} else if frozen > 0 {
		slog.Info("stale paused sessions frozen", slog.Int64("count", frozen))
	}
}
