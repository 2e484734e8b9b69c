package engine

import (
	"log/slog"
	"sync"

	"github.com/ethosengine/cachecore/cache"
)

// The indexed backend is probed at most once per process. A panic or
// error during probe construction permanently pins every later engine to
// the portable backend.
var (
	indexedProbe   sync.Once
	indexedHealthy bool
)

func indexedAvailable(logger *slog.Logger) bool {
	indexedProbe.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("indexed cache backend failed, falling back to portable",
					"panic", r)
			}
		}()

		probe, err := cache.NewBlobIndexed(1)
		if err != nil {
			logger.Warn("indexed cache backend failed, falling back to portable",
				"error", err)
			return
		}
		probe.Close()
		indexedHealthy = true
	})
	return indexedHealthy
}
