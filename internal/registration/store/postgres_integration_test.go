//go:build integration

package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"checkpoint/internal/registration/models"
	"checkpoint/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	backendSuite
	postgres *containers.PostgresContainer
	store    *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	s := &PostgresStoreSuite{}
	s.newBackend = func() Backend {
		s.Require().NoError(s.postgres.TruncateTables(context.Background(), "registrations"))
		return s.store
	}
	suite.Run(t, s)
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) TestEnsureSchemaIsIdempotent() {
	s.NoError(s.store.EnsureSchema(s.ctx))
}

// TestConcurrentSameIDSaves verifies that when many writers race on one id,
// exactly one insert wins and the rest fail.
func (s *PostgresStoreSuite) TestConcurrentSameIDSaves() {
	const goroutines = 20
	var wg sync.WaitGroup
	var saved atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := s.registration("ENTRY-1749996000000", models.DirectionEntry, s.now, "P", "I")
			if s.gateway.Save(s.ctx, r) {
				saved.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), saved.Load())
	all, err := s.gateway.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}
