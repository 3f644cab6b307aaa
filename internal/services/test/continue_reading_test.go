package services_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/bionicotaku/lingo-services-reading/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldContinueReadingKeepsLatestPerSeries(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seriesA, seriesB, seriesC := uuid.New(), uuid.New(), uuid.New()
	chA2, chA1, chB1, chC1 := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	// 按时间倒序
	records := []po.ActivityRecord{
		{SeriesID: seriesA, ChapterID: chA2, ProgressPercent: 30, TouchedAt: base},
		{SeriesID: seriesB, ChapterID: chB1, ProgressPercent: 100, TouchedAt: base.Add(-time.Minute)},
		{SeriesID: seriesA, ChapterID: chA1, ProgressPercent: 100, TouchedAt: base.Add(-2 * time.Minute)},
		{SeriesID: seriesC, ChapterID: chC1, ProgressPercent: 10, TouchedAt: base.Add(-3 * time.Minute)},
	}

	items := services.FoldContinueReading(records, 10)
	require.Len(t, items, 3)
	assert.Equal(t, seriesA, items[0].SeriesID)
	assert.Equal(t, chA2, items[0].ChapterID)
	assert.Equal(t, int16(30), items[0].ProgressPercent)
	assert.Equal(t, seriesB, items[1].SeriesID)
	assert.Equal(t, seriesC, items[2].SeriesID)

	limited := services.FoldContinueReading(records, 2)
	require.Len(t, limited, 2)
	assert.Equal(t, seriesB, limited[1].SeriesID)

	assert.Empty(t, services.FoldContinueReading(records, 0))
}

func TestNormalizeContinueReadingLimit(t *testing.T) {
	assert.Equal(t, services.DefaultContinueReadingLimit, services.NormalizeContinueReadingLimit(0))
	assert.Equal(t, services.DefaultContinueReadingLimit, services.NormalizeContinueReadingLimit(-3))
	assert.Equal(t, 7, services.NormalizeContinueReadingLimit(7))
	assert.Equal(t, services.MaxContinueReadingLimit, services.NormalizeContinueReadingLimit(500))
}

func TestContinueReadingFromLedger(t *testing.T) {
	fx := newLedgerFixture(t, services.LedgerConfig{})
	user := uuid.New()
	creator := uuid.New()
	series1, series2 := uuid.New(), uuid.New()
	ch1 := fx.content.addChapter(creator, series1)
	ch2 := fx.content.addChapter(creator, series1)
	ch3 := fx.content.addChapter(creator, series2)

	ctx := context.Background()
	for i, ref := range []po.ChapterRef{ch1, ch3, ch2} {
		fx.advance(time.Minute)
		_, err := fx.svc.RecordProgress(ctx, services.RecordProgressInput{
			UserID: user, SeriesID: ref.SeriesID, ChapterID: ref.ChapterID, Percent: 20 * (i + 1),
		})
		require.NoError(t, err)
	}

	items, err := fx.svc.ContinueReading(ctx, user, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, series1, items[0].SeriesID)
	assert.Equal(t, ch2.ChapterID, items[0].ChapterID)
	assert.Equal(t, series2, items[1].SeriesID)

	other, err := fx.svc.ContinueReading(ctx, uuid.New(), 5)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestContinueReadingRequiresUser(t *testing.T) {
	svc := services.NewLedgerService(newFakeContent(), newFakeActivity(), newFakeMarks(), newFakeProfiles(),
		newFakeMarks(), newFakeCounters(), &lockingTxManager{}, nil, services.LedgerConfig{}, log.NewStdLogger(io.Discard))

	_, err := svc.ContinueReading(context.Background(), uuid.Nil, 10)
	require.Error(t, err)
	assert.Equal(t, 401, int(kerrors.FromError(err).Code))
}
