package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/dsolution-crm/internal/store"
	"github.com/vovakirdan/dsolution-crm/internal/store/sqlite"
)

func newTestService(t *testing.T) (*Service, *sqlite.SQLiteStore) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st), st
}

func TestListSeedsDefaultsOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, len(Defaults))
	require.Equal(t, Defaults[0].Name, first[0].Name)
	require.Equal(t, Defaults[len(Defaults)-1].Name, first[len(first)-1].Name)

	second, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, second, len(Defaults))
	require.Equal(t, first[0].ID, second[0].ID)

	got, err := svc.Get(ctx, first[3].ID)
	require.NoError(t, err)
	require.Equal(t, first[3].Name, got.Name)
}

func TestListKeepsExistingCatalog(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := st.CreateServices(ctx, []store.Service{{Name: "Custom", Description: "only one"}})
	require.NoError(t, err)

	services, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, services, 1)
	require.Equal(t, "Custom", services[0].Name)
}

func TestListConcurrentFirstCallsSeedOnce(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.List(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := st.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(Defaults))
}

func TestGetUnknownService(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}
