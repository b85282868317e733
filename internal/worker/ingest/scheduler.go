// Package ingest は質問取り込みのバックグラウンド実行を提供する。
// ティッカーによる定期実行とコンテキストによる停止制御を含む。
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/stackmirror/internal/ingest"
)

// IngestRunner は1バッチ分の取り込み実行インターフェース。
type IngestRunner interface {
	// Run は上流から1バッチを取得してローカルストアへ取り込む。
	Run(ctx context.Context) (*ingest.Result, error)
}

// Scheduler は質問取り込みの定期実行を行う。
// 取り込みは挿入専用で冪等なため、サイクルの重複や再実行は無害である。
type Scheduler struct {
	runner IngestRunner
	logger *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(runner IngestRunner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		logger: logger,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("取り込みスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("取り込みスケジューラを停止しました")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle は取り込みを1回実行する。
// バッチ失敗はログに記録し、次のサイクルへ継続する。
func (s *Scheduler) runCycle(ctx context.Context) {
	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error("取り込みサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
