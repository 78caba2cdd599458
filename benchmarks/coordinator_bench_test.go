package benchmarks

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gitlab.com/simigo/client/datacore/internal/adapters/logger"
	"gitlab.com/simigo/client/datacore/internal/application"
)

type alwaysOnline struct{}

func (alwaysOnline) IsOnline() bool              { return true }
func (alwaysOnline) BackendOnline() bool         { return true }
func (alwaysOnline) ProbeConnectivity()          {}
func (alwaysOnline) ReportBackendReachable(bool) {}

// BenchmarkCoordinator compares distinct keys against heavy collapsing on one key.
func BenchmarkCoordinator(b *testing.B) {
	ctx := context.Background()

	b.Run("DistinctKeys", func(b *testing.B) {
		coord := application.NewCoordinator(alwaysOnline{}, logger.NewNop())
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			key := fmt.Sprintf("bench:%d", i)
			if _, err := application.Run(ctx, coord, key, func(context.Context) (int, error) { return i, nil }); err != nil {
				b.Fatalf("run: %v", err)
			}
		}
	})

	b.Run("CollapsedKey", func(b *testing.B) {
		coord := application.NewCoordinator(alwaysOnline{}, logger.NewNop())
		var executions atomic.Int64
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				_, err := application.Run(ctx, coord, "bench:hot", func(context.Context) (int, error) {
					executions.Add(1)
					time.Sleep(time.Millisecond)
					return 1, nil
				})
				if err != nil {
					b.Errorf("run: %v", err)
				}
			}
		})
		b.ReportMetric(float64(executions.Load())/float64(b.N), "executions/op")
	})
}
