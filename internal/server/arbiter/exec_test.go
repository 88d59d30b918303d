package arbiter

import (
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helperArbiter returns an External that re-executes this test binary as a
// fake simulator. The response and exit behavior are controlled via env.
func helperArbiter(t *testing.T, env ...string) *External {
	t.Helper()
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				t.Setenv(kv[:i], kv[i+1:])
				break
			}
		}
	}
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	return NewExternal(os.Args[0], "-test.run=TestHelperProcess$", "--")
}

// TestHelperProcess is not a real test; it acts as the simulator binary
// when re-executed by helperArbiter.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	if os.Getenv("SIM_FAIL") == "1" {
		fmt.Fprint(os.Stderr, "simulator crashed")
		os.Exit(2)
	}

	// consume the replay bytes like the real simulator would
	n, _ := io.Copy(io.Discard, os.Stdin)

	if os.Getenv("SIM_ECHO_SIZE") == "1" {
		fmt.Fprintf(os.Stdout, `{"elapsed_ticks":%d,"expected_ticks":%d}`, n, n)
		return
	}

	fmt.Fprint(os.Stdout, os.Getenv("SIM_RESPONSE"))
}

func TestExternal_SimulateSuccess(t *testing.T) {
	arb := helperArbiter(t, `SIM_RESPONSE={"elapsed_ticks":1200,"expected_ticks":1200}`)

	res, err := arb.Simulate([]byte("replay-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int32(1200), res.ElapsedTicks)
	assert.Equal(t, int32(1200), res.ExpectedTicks)
	assert.True(t, res.Consistent())
}

func TestExternal_SimulateReceivesStdin(t *testing.T) {
	arb := helperArbiter(t, "SIM_ECHO_SIZE=1")

	payload := []byte("0123456789")
	res, err := arb.Simulate(payload)
	require.NoError(t, err)
	assert.Equal(t, int32(len(payload)), res.ElapsedTicks)
}

func TestExternal_InspectSuccess(t *testing.T) {
	arb := helperArbiter(t, `SIM_RESPONSE={"replay_version":4,"checkpoint_count":12,"tick_count":3400}`)

	info, err := arb.Inspect([]byte("replay-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int32(4), info.ReplayVersion)
	assert.Equal(t, int32(12), info.CheckpointCount)
	assert.Equal(t, int32(3400), info.TickCount)
}

func TestExternal_ReportedError(t *testing.T) {
	arb := helperArbiter(t, `SIM_RESPONSE={"error":"stage data is corrupted"}`)

	_, err := arb.Simulate([]byte("replay-bytes"))
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "stage data is corrupted", ae.Message)
}

func TestExternal_NonZeroExit(t *testing.T) {
	arb := helperArbiter(t, "SIM_FAIL=1")

	_, err := arb.Simulate([]byte("replay-bytes"))
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Message, "simulator crashed")
}

func TestExternal_GarbageOutput(t *testing.T) {
	arb := helperArbiter(t, "SIM_RESPONSE=not json at all")

	_, err := arb.Simulate([]byte("replay-bytes"))
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Message, "unparseable simulator output")
}

func TestSimResult_Consistent(t *testing.T) {
	tests := []struct {
		name string
		res  SimResult
		want bool
	}{
		{"matching positive", SimResult{1200, 1200}, true},
		{"mismatch", SimResult{1200, 1199}, false},
		{"zero ticks", SimResult{0, 0}, false},
		{"negative ticks", SimResult{-1, -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.Consistent())
		})
	}
}
