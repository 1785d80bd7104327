package ledger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRepairer struct {
	mock.Mock
}

func (m *MockRepairer) RepairProjections(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestAuditor_RunOnce(t *testing.T) {
	repairer := new(MockRepairer)
	repairer.On("RepairProjections", mock.Anything).Return(2, nil).Once()

	NewAuditor(repairer, nil).RunOnce(context.Background())

	repairer.AssertExpectations(t)
}

func TestAuditor_RunOnceSurvivesError(t *testing.T) {
	repairer := new(MockRepairer)
	repairer.On("RepairProjections", mock.Anything).Return(0, errors.New("db down")).Once()

	assert.NotPanics(t, func() {
		NewAuditor(repairer, &AuditorConfig{Interval: time.Second}).RunOnce(context.Background())
	})
	repairer.AssertExpectations(t)
}

func TestAuditor_RunStopsOnCancel(t *testing.T) {
	var runs atomic.Int32
	repairer := new(MockRepairer)
	repairer.On("RepairProjections", mock.Anything).Return(0, nil).Run(func(mock.Arguments) { runs.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewAuditor(repairer, &AuditorConfig{Interval: 10 * time.Millisecond}).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("auditor did not stop")
	}
}

func TestNewAuditor_Defaults(t *testing.T) {
	a := NewAuditor(new(MockRepairer), &AuditorConfig{})
	assert.Equal(t, DefaultAuditInterval, a.interval)
}
