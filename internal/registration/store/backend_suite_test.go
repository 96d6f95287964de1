package store

import (
	"context"
	"slices"
	"time"

	"github.com/stretchr/testify/suite"

	"checkpoint/internal/registration/models"
	"checkpoint/pkg/requestcontext"
	"checkpoint/pkg/testutil"
)

// backendSuite exercises a Backend through the Gateway. Concrete suites
// provide newBackend, which must return an empty store.
type backendSuite struct {
	suite.Suite
	newBackend func() Backend
	gateway    *Gateway
	ctx        context.Context
	now        time.Time
}

func (s *backendSuite) SetupTest() {
	s.now = time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.gateway = NewGateway(s.newBackend(),
		WithLogger(testutil.DiscardLogger()),
		WithLocation(time.UTC),
	)
}

func (s *backendSuite) registration(id string, direction models.Direction, at time.Time, plate, idNumber string) *models.Registration {
	return &models.Registration{
		RegistrationID: id,
		Type:           direction,
		Timestamp:      at,
		IdentityData: models.IdentityData{
			IDNumber:   idNumber,
			FirstName:  "Amina",
			LastName:   "Benali",
			FullName:   "Amina Benali",
			Confidence: models.IdentityConfidence{IDNumber: 0.91, FirstName: 0.5, LastName: 0.25},
		},
		PlateData: models.PlateData{PlateNumber: plate, Confidence: 0.875},
	}
}

func (s *backendSuite) TestSaveThenFindReturnsIdenticalRecord() {
	r := s.registration("ENTRY-1", models.DirectionEntry, s.now, "12345-A-6", "AB123")
	r.Extra = map[string]any{"submittedFrom": "Chrome on Windows"}
	s.Require().True(s.gateway.Save(s.ctx, r))

	found, ok := s.gateway.FindByID(s.ctx, "ENTRY-1")
	s.Require().True(ok)
	s.Equal(r, found)
}

func (s *backendSuite) TestSaveAssignsMissingDefaults() {
	r := &models.Registration{Type: models.DirectionExit}
	s.Require().True(s.gateway.Save(s.ctx, r))

	s.NotEmpty(r.RegistrationID)
	s.True(s.now.Equal(r.Timestamp))
	_, ok := s.gateway.FindByID(s.ctx, r.RegistrationID)
	s.True(ok)
}

func (s *backendSuite) TestDuplicateIDIsRejectedNotOverwritten() {
	first := s.registration("ENTRY-1747729800000", models.DirectionEntry, s.now, "FIRST", "A1")
	second := s.registration("ENTRY-1747729800000", models.DirectionEntry, s.now, "SECOND", "B2")

	s.Require().True(s.gateway.Save(s.ctx, first))
	s.False(s.gateway.Save(s.ctx, second))

	found, ok := s.gateway.FindByID(s.ctx, first.RegistrationID)
	s.Require().True(ok)
	s.Equal("FIRST", found.PlateData.PlateNumber)
}

func (s *backendSuite) TestFindByIDUnknown() {
	found, ok := s.gateway.FindByID(s.ctx, "missing")
	s.False(ok)
	s.Nil(found)
}

func (s *backendSuite) TestFindAllSortedByCallerNewestFirst() {
	t1 := s.now.Add(-2 * time.Hour)
	t2 := s.now.Add(-1 * time.Hour)
	t3 := s.now
	s.Require().True(s.gateway.Save(s.ctx, s.registration("T2", models.DirectionEntry, t2, "P", "I")))
	s.Require().True(s.gateway.Save(s.ctx, s.registration("T3", models.DirectionExit, t3, "P", "I")))
	s.Require().True(s.gateway.Save(s.ctx, s.registration("T1", models.DirectionEntry, t1, "P", "I")))

	all, err := s.gateway.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)

	slices.SortFunc(all, func(a, b *models.Registration) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	ids := []string{all[0].RegistrationID, all[1].RegistrationID, all[2].RegistrationID}
	s.Equal([]string{"T3", "T2", "T1"}, ids)
}

func (s *backendSuite) TestDeleteByID() {
	s.Require().True(s.gateway.Save(s.ctx, s.registration("DEL-1", models.DirectionEntry, s.now, "P", "I")))

	s.True(s.gateway.DeleteByID(s.ctx, "DEL-1"))
	s.False(s.gateway.DeleteByID(s.ctx, "DEL-1"), "second delete matches nothing")
	_, ok := s.gateway.FindByID(s.ctx, "DEL-1")
	s.False(ok)
}

func (s *backendSuite) TestStatsOnEmptyStore() {
	stats := s.gateway.ComputeStats(s.ctx)
	s.Equal(models.Stats{}, stats)
	s.Nil(stats.LatestTimestamp)
}

func (s *backendSuite) TestStats() {
	yesterday := s.now.Add(-30 * time.Hour)
	seed := []*models.Registration{
		s.registration("E1", models.DirectionEntry, s.now.Add(-1*time.Hour), "12345-A-6", "AB123"),
		s.registration("X1", models.DirectionExit, s.now.Add(-30*time.Minute), "12345-A-6", "AB123"),
		s.registration("E2", models.DirectionEntry, yesterday, "99999-B-1", ""),
		s.registration("E3", models.DirectionEntry, yesterday.Add(time.Minute), "", "CD456"),
	}
	for _, r := range seed {
		s.Require().True(s.gateway.Save(s.ctx, r))
	}

	stats := s.gateway.ComputeStats(s.ctx)
	s.EqualValues(4, stats.Total)
	s.EqualValues(3, stats.EntryCount)
	s.EqualValues(1, stats.ExitCount)
	s.EqualValues(2, stats.UniqueVehicleCount)
	s.EqualValues(2, stats.UniquePersonCount)
	s.EqualValues(1, stats.TodayEntryCount)
	s.EqualValues(1, stats.TodayExitCount)
	s.Require().NotNil(stats.LatestTimestamp)
	s.True(s.now.Add(-30 * time.Minute).Equal(*stats.LatestTimestamp))
}

func (s *backendSuite) TestSearch() {
	s.Require().True(s.gateway.Save(s.ctx, s.registration("E1", models.DirectionEntry, s.now.Add(-time.Hour), "12345-A-6", "AB123")))
	s.Require().True(s.gateway.Save(s.ctx, s.registration("X1", models.DirectionExit, s.now, "12345-A-6", "CD456")))
	s.Require().True(s.gateway.Save(s.ctx, s.registration("E2", models.DirectionEntry, s.now, "77777-C-2", "AB123")))

	byPlate, err := s.gateway.Search(s.ctx, models.Query{PlateNumber: "12345-a-6"})
	s.Require().NoError(err)
	s.Require().Len(byPlate, 2)
	s.Equal("X1", byPlate[0].RegistrationID, "newest first")

	both, err := s.gateway.Search(s.ctx, models.Query{PlateNumber: "12345-A-6", IDNumber: "AB123"})
	s.Require().NoError(err)
	s.Require().Len(both, 1)
	s.Equal("E1", both[0].RegistrationID)

	none, err := s.gateway.Search(s.ctx, models.Query{IDNumber: "ZZ000"})
	s.Require().NoError(err)
	s.Empty(none)
}
