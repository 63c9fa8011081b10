package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"travelhub/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.PasswordResetToken{}))
	return db
}

func seedReset(t *testing.T, db *gorm.DB) (*model.User, *model.PasswordResetToken) {
	t.Helper()
	user := &model.User{Name: "Ana", Email: "ana@x.com", PasswordHash: "old-hash", Role: model.RoleClient, Active: true}
	require.NoError(t, db.Create(user).Error)

	token := &model.PasswordResetToken{Token: "hashed-token", UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, NewPasswordResetRepository(db).Create(context.Background(), token))
	return user, token
}

func TestPasswordResetRepository_ConsumeOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewPasswordResetRepository(db)
	ctx := context.Background()
	user, token := seedReset(t, db)
	usedAt := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.Consume(ctx, token.ID, user.ID, "new-hash", usedAt))

	stored, err := repo.FindByToken(ctx, "hashed-token")
	require.NoError(t, err)
	assert.True(t, stored.Used)
	require.NotNil(t, stored.UsedAt)

	var reloaded model.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, "new-hash", reloaded.PasswordHash)

	err = repo.Consume(ctx, token.ID, user.ID, "second-hash", usedAt)
	assert.ErrorIs(t, err, ErrTokenAlreadyConsumed)

	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, "new-hash", reloaded.PasswordHash, "a second consume must not change the password")
}

func TestPasswordResetRepository_ConcurrentConsume(t *testing.T) {
	db := newTestDB(t)
	repo := NewPasswordResetRepository(db)
	user, token := seedReset(t, db)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Consume(context.Background(), token.ID, user.ID, "hash", time.Now())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrTokenAlreadyConsumed)
	}
	assert.Equal(t, 1, succeeded)
}

func TestPasswordResetRepository_ConsumeUnknownUserRollsBack(t *testing.T) {
	db := newTestDB(t)
	repo := NewPasswordResetRepository(db)
	ctx := context.Background()
	_, token := seedReset(t, db)

	other := &model.User{Name: "Bia", Email: "bia@x.com", PasswordHash: "x", Active: true}
	require.NoError(t, db.Create(other).Error)
	require.NoError(t, db.Delete(other).Error)

	err := repo.Consume(ctx, token.ID, other.ID, "hash", time.Now())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	stored, err := repo.FindByToken(ctx, "hashed-token")
	require.NoError(t, err)
	assert.False(t, stored.Used, "token stays usable when the password update fails")
}
