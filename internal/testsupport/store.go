package testsupport

import (
	"testing"

	"github.com/sharkye1/Szhimatar2/internal/config"
	"github.com/sharkye1/Szhimatar2/internal/stats"
)

// MustOpenStats opens the render history store for tests and registers
// cleanup.
func MustOpenStats(t testing.TB, cfg *config.Config) *stats.Store {
	t.Helper()

	store, err := stats.Open(cfg)
	if err != nil {
		t.Fatalf("stats.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
