package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condor-trader/internal/broker"
	"condor-trader/internal/models"
)

func TestConfigDirFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"absent", []string{"evaluate", "SPY"}, ""},
		{"separate value", []string{"--config", "/tmp/condor", "evaluate"}, "/tmp/condor"},
		{"equals form", []string{"evaluate", "--config=/tmp/condor"}, "/tmp/condor"},
		{"after subcommand", []string{"sweep", "--config", "/etc/condor"}, "/etc/condor"},
		{"dangling flag", []string{"evaluate", "--config"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigDirFromArgs(tt.args))
		})
	}
}

// unreliablePositionBroker fails position listings a set number of times.
type unreliablePositionBroker struct {
	*broker.PaperBroker
	failures int
	calls    int
}

func (u *unreliablePositionBroker) ListPositions(ctx context.Context) ([]models.Position, error) {
	u.calls++
	if u.calls <= u.failures {
		return nil, errors.New("connection reset")
	}
	return u.PaperBroker.ListPositions(ctx)
}

func TestFetchOpenPositions_RetriesTransientFailure(t *testing.T) {
	inner := broker.NewPaperBroker()
	inner.SeedPosition(models.Position{Symbol: "SPY", Quantity: 2})
	b := &unreliablePositionBroker{PaperBroker: inner, failures: 1}

	positions, err := fetchOpenPositions(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 2, b.calls)
	require.Len(t, positions, 1)
	assert.Equal(t, "SPY", positions[0].Symbol)
}

func TestFetchOpenPositions_PersistentFailureSurfaces(t *testing.T) {
	b := &unreliablePositionBroker{PaperBroker: broker.NewPaperBroker(), failures: 10}

	_, err := fetchOpenPositions(context.Background(), b)
	require.Error(t, err)
	// One retry for an idempotent read, then give up.
	assert.Equal(t, 2, b.calls)
}
