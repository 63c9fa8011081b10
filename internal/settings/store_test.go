package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.json"))

	st, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.DatabaseURL)
	assert.NotNil(t, st.APIKeys)
	assert.False(t, st.Mail.Configured())
}

func TestStore_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	s := NewStore(path)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	in := &Settings{
		APIKeys:     map[string]string{"maps": "abc", "instagram": "xyz"},
		DatabaseURL: "mysql://db:3306/travelhub",
		Mail:        Mail{Host: "smtp.example.com", Port: 2525, From: "no-reply@travelhub.test"},
	}
	require.NoError(t, s.Save(ctx, in))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.APIKeys, out.APIKeys)
	assert.Equal(t, in.DatabaseURL, out.DatabaseURL)
	assert.Equal(t, in.Mail, out.Mail)
	assert.True(t, out.Mail.Configured())
	assert.Equal(t, fixed, out.UpdatedAt)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_SaveReplacesWholesale(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.json"))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &Settings{APIKeys: map[string]string{"maps": "abc"}, DatabaseURL: "old"}))
	require.NoError(t, s.Save(ctx, &Settings{APIKeys: map[string]string{"stripe": "sk"}}))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"stripe": "sk"}, out.APIKeys)
	assert.Empty(t, out.DatabaseURL)
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestStore_ConcurrentSavesLeaveValidFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "settings.json"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Save(ctx, &Settings{DatabaseURL: "db-" + string(rune('a'+i))})
		}(i)
	}
	wg.Wait()

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, out.DatabaseURL, "db-")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must be cleaned up")
}
