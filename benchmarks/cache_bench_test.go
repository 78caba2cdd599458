package benchmarks

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/internal/adapters/logger"
	"gitlab.com/simigo/client/datacore/internal/adapters/memory"
	"gitlab.com/simigo/client/datacore/internal/adapters/sqlite"
	"gitlab.com/simigo/client/datacore/internal/application"
	"gitlab.com/simigo/client/datacore/internal/domain"
	"gitlab.com/simigo/client/datacore/pkg/cachekeys"
)

type country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func sampleCountries(n int) []country {
	out := make([]country, n)
	for i := range out {
		out[i] = country{Code: fmt.Sprintf("C%03d", i), Name: fmt.Sprintf("Country %d", i)}
	}
	return out
}

// setupCache builds an SWR cache over store, scoped to a signed-in user.
func setupCache(b *testing.B, store domain.BlobStore) *application.SWRCache {
	b.Helper()
	provider := config.NewStaticProvider(config.Config{})
	state := application.NewSessionState(provider)
	state.SetCurrentUser("bench-user")
	return application.NewSWRCache(store, state, logger.NewNop())
}

func stores(b *testing.B) map[string]domain.BlobStore {
	b.Helper()
	lite, err := sqlite.Open(filepath.Join(b.TempDir(), "bench.sqlite"))
	if err != nil {
		b.Fatalf("open sqlite: %v", err)
	}
	b.Cleanup(func() { _ = lite.Close() })
	return map[string]domain.BlobStore{
		"memory": memory.NewBlobStore(),
		"sqlite": lite,
	}
}

// BenchmarkSWRCache measures decode and encode cost of typical catalog payloads.
func BenchmarkSWRCache(b *testing.B) {
	ctx := context.Background()
	payload := sampleCountries(200)
	key := cachekeys.Countries("en")

	for name, store := range stores(b) {
		cache := setupCache(b, store)

		b.Run(name+"/Save", func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if err := application.Save(ctx, cache, key, payload); err != nil {
					b.Fatalf("save: %v", err)
				}
			}
		})

		b.Run(name+"/LoadFresh", func(b *testing.B) {
			if err := application.Save(ctx, cache, key, payload); err != nil {
				b.Fatalf("save: %v", err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, ok := application.Load[[]country](ctx, cache, key, time.Hour, false); !ok {
					b.Fatal("expected a fresh hit")
				}
			}
		})

		b.Run(name+"/ParallelLoad", func(b *testing.B) {
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					application.Load[[]country](ctx, cache, key, time.Hour, false)
				}
			})
		})
	}
}

// BenchmarkClearForUser measures the prefix delete used at logout.
func BenchmarkClearForUser(b *testing.B) {
	ctx := context.Background()
	for name, store := range stores(b) {
		cache := setupCache(b, store)
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				for j := 0; j < 50; j++ {
					_ = application.Save(ctx, cache, cachekeys.Order(fmt.Sprintf("o-%d", j)), j)
				}
				b.StartTimer()
				if err := cache.ClearForUser(ctx); err != nil {
					b.Fatalf("clear: %v", err)
				}
			}
		})
	}
}
