//go:build integration

package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"checkpoint/internal/registration/models"
	"checkpoint/pkg/platform/sentinel"
	"checkpoint/pkg/testutil"
	"checkpoint/pkg/testutil/containers"
)

type CachedBackendSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	inner  *InMemory
	cached *CachedBackend
	ctx    context.Context
}

func TestCachedBackendSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedBackendSuite))
}

func (s *CachedBackendSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.ctx = context.Background()
}

func (s *CachedBackendSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
	s.inner = NewInMemory()
	s.cached = NewCached(s.inner, s.redis.Client, time.Minute, testutil.DiscardLogger())
}

func (s *CachedBackendSuite) seed(id string) *models.Registration {
	r := &models.Registration{
		RegistrationID: id,
		Type:           models.DirectionEntry,
		Timestamp:      time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC),
		PlateData:      models.PlateData{PlateNumber: "12345-A-6"},
	}
	s.Require().NoError(s.cached.Insert(s.ctx, r))
	return r
}

func (s *CachedBackendSuite) TestGetPopulatesCache() {
	r := s.seed("C-1")

	found, err := s.cached.Get(s.ctx, "C-1")
	s.Require().NoError(err)
	s.Equal(r, found)

	exists, err := s.redis.Client.Exists(s.ctx, cacheKeyPrefix+"C-1").Result()
	s.Require().NoError(err)
	s.EqualValues(1, exists)

	// Served from Redis even once the backing record is gone.
	s.Require().NoError(s.inner.Delete(s.ctx, "C-1"))
	cachedCopy, err := s.cached.Get(s.ctx, "C-1")
	s.Require().NoError(err)
	s.Equal("12345-A-6", cachedCopy.PlateData.PlateNumber)
}

func (s *CachedBackendSuite) TestDeleteInvalidates() {
	s.seed("C-2")
	_, err := s.cached.Get(s.ctx, "C-2")
	s.Require().NoError(err)

	s.Require().NoError(s.cached.Delete(s.ctx, "C-2"))

	exists, err := s.redis.Client.Exists(s.ctx, cacheKeyPrefix+"C-2").Result()
	s.Require().NoError(err)
	s.Zero(exists)
	_, err = s.cached.Get(s.ctx, "C-2")
	s.Error(err)
}

// pausingBackend holds the first Get after it has read the record, until
// resume is closed.
type pausingBackend struct {
	Backend
	read   chan struct{}
	resume chan struct{}
}

func (b *pausingBackend) Get(ctx context.Context, id string) (*models.Registration, error) {
	r, err := b.Backend.Get(ctx, id)
	select {
	case b.read <- struct{}{}:
		<-b.resume
	default:
	}
	return r, err
}

func (s *CachedBackendSuite) TestReadRacingDeleteDoesNotRestoreRecord() {
	s.seed("C-3")
	paused := &pausingBackend{Backend: s.inner, read: make(chan struct{}, 1), resume: make(chan struct{})}
	cached := NewCached(paused, s.redis.Client, time.Minute, testutil.DiscardLogger())

	// A cache miss has read the row but not yet filled the cache.
	done := make(chan error, 1)
	go func() {
		_, err := cached.Get(s.ctx, "C-3")
		done <- err
	}()
	<-paused.read

	s.Require().NoError(cached.Delete(s.ctx, "C-3"))
	close(paused.resume)
	s.Require().NoError(<-done)

	exists, err := s.redis.Client.Exists(s.ctx, cacheKeyPrefix+"C-3").Result()
	s.Require().NoError(err)
	s.Zero(exists)

	_, err = cached.Get(s.ctx, "C-3")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *CachedBackendSuite) TestTombstoneHidesEntryLeftByFailedInvalidation() {
	r := s.seed("C-4")
	s.Require().NoError(s.cached.Delete(s.ctx, "C-4"))

	// An entry that survived a failed DEL.
	doc, err := json.Marshal(r)
	s.Require().NoError(err)
	s.Require().NoError(s.redis.Client.Set(s.ctx, cacheKeyPrefix+"C-4", doc, time.Minute).Err())

	_, err = s.cached.Get(s.ctx, "C-4")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
