package bot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"economy-bot/internal/models"
)

func TestStateStoreRoundTrip(t *testing.T) {
	states, err := newStateStore(16)
	require.NoError(t, err)

	_, ok := states.get(1)
	require.False(t, ok)

	states.set(1, &Conversation{Flow: FlowCreateCheck, Step: StepCheckAmount, CheckCurrency: models.CurrencyBananas})

	conv, ok := states.get(1)
	require.True(t, ok)
	require.Equal(t, FlowCreateCheck, conv.Flow)
	require.Equal(t, StepCheckAmount, conv.Step)
	require.Equal(t, models.CurrencyBananas, conv.CheckCurrency)

	states.clear(1)
	_, ok = states.get(1)
	require.False(t, ok)
}

func TestStateStoreEvictsOldest(t *testing.T) {
	states, err := newStateStore(2)
	require.NoError(t, err)

	states.set(1, &Conversation{Flow: FlowDeposit})
	states.set(2, &Conversation{Flow: FlowWithdraw})
	states.set(3, &Conversation{Flow: FlowEditBalance})

	_, ok := states.get(1)
	require.False(t, ok)
	_, ok = states.get(2)
	require.True(t, ok)
	_, ok = states.get(3)
	require.True(t, ok)
}
