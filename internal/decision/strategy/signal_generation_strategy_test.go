package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-etf-decision/internal/decision/dto"
	"golang-etf-decision/internal/decision/service"
	"golang-etf-decision/internal/entity"
	"golang-etf-decision/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSignalService struct {
	service.SignalService
	summary *dto.GenerationSummary
	err     error
}

func (f *fakeSignalService) GenerateLatest(context.Context) (*dto.GenerationSummary, error) {
	return f.summary, f.err
}

func TestSignalGenerationStrategy_Execute(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	svc := &fakeSignalService{summary: &dto.GenerationSummary{
		Date:           &date,
		Signals:        []entity.SignalRecord{{Symbol: "VWCE"}, {Symbol: "AGGH"}},
		MissingSymbols: []string{"EIMI"},
	}}
	st := NewSignalGenerationStrategy(logger.NewNop(), svc)

	out, err := st.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, JobTypeSignalGeneration, st.GetType())
	assert.JSONEq(t, `{"date":"2026-03-02","signals":2,"guard_active":false,"missing_symbols":["EIMI"],"publish_failures":0}`, out)
}

func TestSignalGenerationStrategy_NoDate(t *testing.T) {
	st := NewSignalGenerationStrategy(logger.NewNop(), &fakeSignalService{summary: &dto.GenerationSummary{}})

	out, err := st.Execute(context.Background())

	require.NoError(t, err)
	assert.JSONEq(t, `{"signals":0,"guard_active":false,"publish_failures":0}`, out)
}

func TestSignalGenerationStrategy_Error(t *testing.T) {
	boom := errors.New("resolver failed")
	st := NewSignalGenerationStrategy(logger.NewNop(), &fakeSignalService{err: boom})

	_, err := st.Execute(context.Background())

	assert.ErrorIs(t, err, boom)
}
