package save

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DukeRupert/clerkly/internal/cache"
	"github.com/DukeRupert/clerkly/internal/document"
	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/DukeRupert/clerkly/internal/repository"
	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fake store
// =============================================================================

type fakeStore struct {
	mu sync.Mutex

	row    repository.ReportRow
	images []repository.ReportImageRow

	getErr    error
	updateErr error

	updates []repository.UpdateReportRowParams
}

func (f *fakeStore) GetReportRow(_ context.Context, _ uuid.UUID) (repository.ReportRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return repository.ReportRow{}, f.getErr
	}
	return f.row, nil
}

func (f *fakeStore) UpdateReportRow(_ context.Context, params repository.UpdateReportRowParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, params)
	f.row.Status = params.Status
	f.row.ReportInfo = pqtype.NullRawMessage{RawMessage: params.ReportInfo, Valid: true}
	f.row.UpdatedAt = params.UpdatedAt
	f.row.CompletedAt = params.CompletedAt
	return nil
}

func (f *fakeStore) ListImagesByReport(_ context.Context, _ uuid.UUID) ([]repository.ReportImageRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.images, nil
}

func (f *fakeStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

// =============================================================================
// Fixtures
// =============================================================================

func testPipeline(store Store) (*Pipeline, *cache.Cache, *Guard) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.New(time.Minute)
	g := NewGuard()
	codec := document.NewCodec(logger)
	return NewPipeline(store, c, g, codec, logger), c, g
}

func testReport(roomCount int) *domain.Report {
	mainID := uuid.New()
	rooms := []domain.Room{domain.NewRoom(mainID, "Lounge", "livingroom", 1)}
	for i := 1; i < roomCount; i++ {
		rooms = append(rooms, domain.NewRoom(uuid.New(), "", "bedroom", i+1))
	}
	return &domain.Report{
		ID:         uuid.New(),
		MainRoomID: mainID,
		Status:     domain.ReportStatusDraft,
		Rooms:      rooms,
	}
}

func storeFor(report *domain.Report) *fakeStore {
	return &fakeStore{row: repository.ReportRow{
		ID:           report.ID,
		MainRoomID:   report.MainRoomID,
		MainRoomType: "livingroom",
		Status:       report.Status.String(),
	}}
}

// =============================================================================
// Tests
// =============================================================================

func TestPipeline_Save(t *testing.T) {
	report := testReport(2)
	store := storeFor(report)
	p, c, _ := testPipeline(store)
	c.Set(report.ID, report, nil)

	ok, err := p.Save(context.Background(), report, Options{UpdateStatus: true})
	require.NoError(t, err)
	assert.True(t, ok)

	// Exactly one write, carrying the whole tree.
	require.Equal(t, 1, store.updateCount())
	var doc document.Document
	require.NoError(t, json.Unmarshal(store.updates[0].ReportInfo, &doc))
	assert.Equal(t, "Lounge", doc.RoomName)
	require.Len(t, doc.AdditionalRooms, 1)
	assert.Equal(t, "Bedroom", doc.AdditionalRooms[0].Name)

	// Draft advanced to in_progress with no images present.
	assert.Equal(t, domain.ReportStatusInProgress, report.Status)
	assert.Equal(t, "in_progress", store.updates[0].Status)
	assert.Nil(t, report.CompletedAt)

	cached, _, found := c.Get(report.ID)
	require.True(t, found)
	assert.Equal(t, domain.ReportStatusInProgress, cached.Status)
}

func TestPipeline_Save_ImageEscalation(t *testing.T) {
	report := testReport(1)
	store := storeFor(report)
	store.images = []repository.ReportImageRow{{
		ID:       uuid.New(),
		ReportID: report.ID,
		RoomID:   report.MainRoomID,
		URL:      "https://cdn/a.jpg",
	}}
	p, _, _ := testPipeline(store)

	ok, err := p.Save(context.Background(), report, Options{UpdateStatus: true})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.ReportStatusPendingReview, report.Status)
}

func TestPipeline_Save_StatusRatchet(t *testing.T) {
	report := testReport(1)
	report.Status = domain.ReportStatusPendingReview
	store := storeFor(report)
	p, _, _ := testPipeline(store)

	// Re-saving with no images does not regress the status.
	ok, err := p.Save(context.Background(), report, Options{UpdateStatus: true})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.ReportStatusPendingReview, report.Status)
}

func TestPipeline_Save_LifecycleSequence(t *testing.T) {
	report := testReport(2)
	store := storeFor(report)
	p, _, _ := testPipeline(store)

	// First save of a zero-image draft starts the report.
	ok, err := p.Save(context.Background(), report, Options{UpdateStatus: true})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.ReportStatusInProgress, report.Status)

	// A photo arrives; the next save escalates for review.
	store.mu.Lock()
	store.images = []repository.ReportImageRow{{
		ID:       uuid.New(),
		ReportID: report.ID,
		RoomID:   report.MainRoomID,
		URL:      "https://cdn/a.jpg",
	}}
	store.mu.Unlock()

	ok, err = p.Save(context.Background(), report, Options{UpdateStatus: true})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.ReportStatusPendingReview, report.Status)
	assert.Equal(t, 2, store.updateCount())
}

func TestPipeline_Save_GuardRejection(t *testing.T) {
	report := testReport(1)
	store := storeFor(report)
	p, _, g := testPipeline(store)

	require.True(t, g.Begin(report.ID))
	defer g.End(report.ID)

	ok, err := p.Save(context.Background(), report, Options{})
	assert.False(t, ok)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, 0, store.updateCount())
}

func TestPipeline_Save_FetchFailure(t *testing.T) {
	report := testReport(1)
	store := storeFor(report)
	store.getErr = errors.New("connection reset")
	p, c, g := testPipeline(store)
	c.Set(report.ID, report, nil)

	ok, err := p.Save(context.Background(), report, Options{})
	assert.False(t, ok)
	assert.Equal(t, domain.EFETCH, domain.ErrorCode(err))

	// Failed saves invalidate the cache and release the latch.
	_, _, found := c.Get(report.ID)
	assert.False(t, found)
	assert.False(t, g.InFlight(report.ID))
}

func TestPipeline_Save_WriteFailure(t *testing.T) {
	report := testReport(1)
	store := storeFor(report)
	store.updateErr = errors.New("deadlock detected")
	p, c, g := testPipeline(store)
	c.Set(report.ID, report, nil)

	ok, err := p.Save(context.Background(), report, Options{})
	assert.False(t, ok)
	assert.Equal(t, domain.EWRITE, domain.ErrorCode(err))
	assert.Equal(t, domain.ReportStatusDraft, report.Status)

	_, _, found := c.Get(report.ID)
	assert.False(t, found)
	assert.False(t, g.InFlight(report.ID))
}

func TestPipeline_Save_Progress(t *testing.T) {
	report := testReport(3)
	store := storeFor(report)
	p, _, _ := testPipeline(store)

	var stages []string
	var percents []int
	ok, err := p.Save(context.Background(), report, Options{
		OnProgress: func(pr Progress) {
			stages = append(stages, pr.Stage)
			percents = append(percents, pr.Percent)
		},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{StageStarted, StagePrepared, StageWritten, StageFinished}, stages)
	assert.Equal(t, []int{0, 40, 80, 100}, percents)
}

func TestPipeline_Complete(t *testing.T) {
	report := testReport(1)
	store := storeFor(report)
	p, _, _ := testPipeline(store)

	ok, err := p.Save(context.Background(), report, Options{MarkCompleted: true})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.ReportStatusCompleted, report.Status)
	require.NotNil(t, report.CompletedAt)
	first := *report.CompletedAt

	// Completing again keeps the original completion time.
	time.Sleep(5 * time.Millisecond)
	ok, err = p.Save(context.Background(), report, Options{MarkCompleted: true})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, report.CompletedAt.Equal(first))
}

func TestPipeline_SaveBatched_MatchesSequential(t *testing.T) {
	// Both variants must persist the same document for the same input.
	for _, roomCount := range []int{1, 2, 3, 4, 7, 10} {
		report := testReport(roomCount)

		seqStore := storeFor(report)
		seq, _, _ := testPipeline(seqStore)
		seqReport := *report
		ok, err := seq.Save(context.Background(), &seqReport, Options{UpdateStatus: true})
		require.NoError(t, err)
		require.True(t, ok)

		batStore := storeFor(report)
		bat, _, _ := testPipeline(batStore)
		batReport := *report
		ok, err = bat.SaveBatched(context.Background(), &batReport, Options{UpdateStatus: true})
		require.NoError(t, err)
		require.True(t, ok)

		assert.JSONEq(t,
			string(seqStore.updates[0].ReportInfo),
			string(batStore.updates[0].ReportInfo),
			"room count %d", roomCount)
		assert.Equal(t, 1, batStore.updateCount())
	}
}

func TestPipeline_Save_PreservesUnknownKeys(t *testing.T) {
	report := testReport(1)
	store := storeFor(report)
	store.row.ReportInfo = pqtype.NullRawMessage{
		RawMessage: json.RawMessage(`{"roomName":"Old","customField":{"a":1}}`),
		Valid:      true,
	}
	p, _, _ := testPipeline(store)

	ok, err := p.Save(context.Background(), report, Options{})
	require.NoError(t, err)
	require.True(t, ok)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(store.updates[0].ReportInfo, &fields))
	assert.JSONEq(t, `{"a":1}`, string(fields["customField"]))
	// The saved tree overwrites the stale top-level room name.
	assert.JSONEq(t, `"Lounge"`, string(fields["roomName"]))
}

func TestPipeline_Save_CompletedAtPassthrough(t *testing.T) {
	report := testReport(1)
	store := storeFor(report)
	completed := time.Now().Add(-time.Hour)
	store.row.Status = "completed"
	store.row.CompletedAt = sql.NullTime{Time: completed, Valid: true}
	report.Status = domain.ReportStatusCompleted

	p, _, _ := testPipeline(store)
	ok, err := p.Save(context.Background(), report, Options{UpdateStatus: true})
	require.NoError(t, err)
	require.True(t, ok)

	// A plain save never clears an existing completion stamp.
	require.True(t, store.updates[0].CompletedAt.Valid)
	assert.True(t, store.updates[0].CompletedAt.Time.Equal(completed))
}
