// Package ratelimiter は外部API呼び出しの頻度をトークンバケットで制限します。
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterInterface は、API呼び出しなどの操作の頻度を制限するインターフェースです。
type RateLimiterInterface interface {
	WaitIfNeeded(ctx context.Context) error
}

// RateLimiterは、API呼び出しなどの操作の頻度を制限します。
// interval あたり limit 回まで連続で呼び出せ、それ以降は interval/limit ごとに1回ずつ許可されます。
// 複数のゴルーチンから同時に使用できます。待機中の呼び出しが他の呼び出しをブロックすることはありません。
type RateLimiter struct {
	limiter *rate.Limiter
	limit   int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

var _ RateLimiterInterface = (*RateLimiter)(nil)

// NewRateLimiterは新しいRateLimiterのインスタンスを生成します。
// limit または interval が0以下の場合、制限は無効になります。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit: limit,
		now:   time.Now,
		sleep: sleepContext,
	}
	if limit > 0 && interval > 0 {
		rl.limiter = rate.NewLimiter(rate.Every(interval/time.Duration(limit)), limit)
	}
	return rl
}

// WaitIfNeededはトークンを1つ予約し、必要であれば利用可能になるまで待機します。
// 待機中に ctx がキャンセルされた場合は予約を取り消して ctx.Err() を返します。
func (rl *RateLimiter) WaitIfNeeded(ctx context.Context) error {
	if rl == nil || rl.limiter == nil {
		return nil
	}

	now := rl.now()
	r := rl.limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("rate limiter: cannot reserve token (limit %d)", rl.limit)
	}

	wait := r.DelayFrom(now)
	if wait <= 0 {
		return nil
	}
	slog.Warn("rate limit reached; waiting for next token", "limit", rl.limit, "wait", wait)
	if err := rl.sleep(ctx, wait); err != nil {
		r.CancelAt(rl.now())
		return err
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
