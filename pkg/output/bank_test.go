package output_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sigcntrl/lampagent/pkg/output"
	"github.com/sigcntrl/lampagent/pkg/output/mocks"
)

func TestBankInitializeAll(t *testing.T) {
	drv := mocks.NewMockDriver(t)
	drv.EXPECT().Setup([]int{4, 5, 6}).Return(nil).Once()

	bank := output.NewBank(drv, []int{4, 5, 6}, nil)
	require.NoError(t, bank.InitializeAll())
}

func TestBankSetUnknownChannel(t *testing.T) {
	drv := mocks.NewMockDriver(t)

	bank := output.NewBank(drv, []int{4, 5}, nil)
	err := bank.Set(99, true)
	assert.ErrorIs(t, err, output.ErrUnknownChannel)
	drv.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
}

func TestBankAllOnWritesEveryChannel(t *testing.T) {
	drv := mocks.NewMockDriver(t)
	for _, ch := range []int{4, 5, 6} {
		drv.EXPECT().Set(ch, true).Return(nil).Once()
	}

	bank := output.NewBank(drv, []int{4, 5, 6}, nil)
	require.NoError(t, bank.AllOn())
}

func TestBankAllOffReportsFirstError(t *testing.T) {
	boom := errors.New("boom")
	drv := mocks.NewMockDriver(t)
	drv.EXPECT().Set(4, false).Return(boom).Once()
	drv.EXPECT().Set(5, false).Return(nil).Once()

	bank := output.NewBank(drv, []int{4, 5}, nil)
	assert.ErrorIs(t, bank.AllOff(), boom)
}

func TestBankCloseTurnsOffAndReleases(t *testing.T) {
	drv := output.NewSimDriver()
	bank := output.NewBank(drv, []int{4, 5}, nil)
	require.NoError(t, bank.InitializeAll())
	require.NoError(t, bank.AllOn())

	require.NoError(t, bank.Close())
	assert.False(t, drv.State(4))
	assert.False(t, drv.State(5))
	assert.True(t, drv.Closed())

	// Idempotent, and writes after close are refused
	assert.NoError(t, bank.Close())
	assert.ErrorIs(t, bank.Set(4, true), output.ErrClosed)
}

func TestBankSerializesWriters(t *testing.T) {
	var (
		mu      sync.Mutex
		inside  int
		overlap bool
	)
	drv := mocks.NewMockDriver(t)
	drv.EXPECT().Set(mock.Anything, mock.Anything).RunAndReturn(func(int, bool) error {
		mu.Lock()
		inside++
		if inside > 1 {
			overlap = true
		}
		mu.Unlock()

		mu.Lock()
		inside--
		mu.Unlock()
		return nil
	})

	bank := output.NewBank(drv, []int{1, 2, 3, 4}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = bank.Set(1+(i+j)%4, j%2 == 0)
			}
		}(i)
	}
	wg.Wait()

	assert.False(t, overlap, "two writers were inside the driver at once")
}

func TestParseDriverKind(t *testing.T) {
	tests := []struct {
		in      string
		want    output.DriverKind
		wantErr bool
	}{
		{"rpio", output.DriverRPi, false},
		{"SIM", output.DriverSim, false},
		{"gpiod", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := output.ParseDriverKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimDriverRecordsWrites(t *testing.T) {
	drv := output.NewSimDriver()

	var seen []output.Write
	drv.OnChange(func(ch int, on bool) {
		seen = append(seen, output.Write{Channel: ch, On: on})
	})

	require.NoError(t, drv.Setup([]int{7, 8}))
	require.NoError(t, drv.Set(7, true))
	require.NoError(t, drv.Set(8, true))
	require.NoError(t, drv.Set(7, false))

	assert.Equal(t, 1, drv.Setups())
	assert.Equal(t, map[int]bool{7: false, 8: true}, drv.States())
	assert.Equal(t, []output.Write{{7, true}, {7, false}}, drv.WritesTo(7))
	assert.Len(t, drv.Writes(), 3)
	assert.Equal(t, drv.Writes(), seen)
}
