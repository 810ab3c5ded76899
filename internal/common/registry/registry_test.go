package registry

import (
	"sync"
	"testing"

	"spectral-workbench/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedFactory struct{ name string }

func (f namedFactory) GetType() string { return f.name }

func TestRegistry(t *testing.T) {
	r := New[namedFactory]()
	r.Register("StandardNormalVariate", namedFactory{"StandardNormalVariate"})
	r.Register("KFold", namedFactory{"KFold"})

	t.Run("get registered", func(t *testing.T) {
		f, err := r.Get("KFold")
		require.NoError(t, err)
		assert.Equal(t, "KFold", f.GetType())
	})

	t.Run("unknown is not found", func(t *testing.T) {
		_, err := r.Get("Nope")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	})

	t.Run("alias resolves to target", func(t *testing.T) {
		require.NoError(t, r.Alias("SNV", "StandardNormalVariate"))
		f, err := r.Get("SNV")
		require.NoError(t, err)
		assert.Equal(t, "StandardNormalVariate", f.GetType())
		assert.True(t, r.IsRegistered("SNV"))
		assert.Equal(t, map[string]string{"SNV": "StandardNormalVariate"}, r.GetAliases())
	})

	t.Run("alias errors", func(t *testing.T) {
		assert.True(t, errors.IsType(r.Alias("X", "Missing"), errors.ErrTypeNotFound))
		assert.True(t, errors.IsType(r.Alias("KFold", "StandardNormalVariate"), errors.ErrTypeValidation))
	})

	t.Run("available types are sorted and exclude aliases", func(t *testing.T) {
		assert.Equal(t, []string{"KFold", "StandardNormalVariate"}, r.GetAvailableTypes())
		assert.Equal(t, 2, r.Count())
	})

	t.Run("clear", func(t *testing.T) {
		r.Clear()
		assert.Equal(t, 0, r.Count())
		assert.False(t, r.IsRegistered("SNV"))
	})
}

func TestRegistry_Concurrent(t *testing.T) {
	r := New[namedFactory]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register("A", namedFactory{"A"})
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Get("A")
			_ = r.GetAvailableTypes()
		}()
	}
	wg.Wait()
	assert.True(t, r.IsRegistered("A"))
}
