package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"reward-advisor/domain"
)

func TestRulesWatcher_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRules), 0o600))

	var (
		mu      sync.Mutex
		applied []*RuleSet
	)
	w, err := NewRulesWatcher(path, func(rs *RuleSet) {
		mu.Lock()
		applied = append(applied, rs)
		mu.Unlock()
	}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// An invalid file keeps the previous rules.
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - name: crypto\n"), 0o600))
	time.Sleep(600 * time.Millisecond)
	mu.Lock()
	require.Empty(t, applied)
	mu.Unlock()

	updated := "categories:\n  - name: housing\n    merchants: [acme property group]\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		if len(applied) == 0 {
			return false
		}
		return applied[len(applied)-1].Match("ACME Property Group").Category == domain.CategoryHousing
	}, 5*time.Second, 50*time.Millisecond)
}

func TestRulesWatcher_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRules), 0o600))

	w, err := NewRulesWatcher(path, func(*RuleSet) {}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}
