package arbiter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Subcommands understood by the simulator binary.
const (
	cmdSimulate = "simulate"
	cmdInfo     = "info"
)

// External invokes the replay simulator as a separate process. The replay
// bytes are written to the simulator's stdin; the simulator answers with a
// single JSON object on stdout, either the requested payload or
// {"error": "..."}. The simulator enforces its own hard step cap
// internally, so an invocation terminates even on pathological input.
type External struct {
	path string
	args []string
}

// NewExternal returns an arbiter backed by the simulator binary at path.
// Any extra args are passed before the subcommand.
func NewExternal(path string, args ...string) *External {
	return &External{path: path, args: args}
}

func (e *External) Simulate(data []byte) (SimResult, error) {
	var out struct {
		ElapsedTicks  int32 `json:"elapsed_ticks"`
		ExpectedTicks int32 `json:"expected_ticks"`
	}
	if err := e.invoke(cmdSimulate, data, &out); err != nil {
		return SimResult{}, err
	}
	return SimResult{ElapsedTicks: out.ElapsedTicks, ExpectedTicks: out.ExpectedTicks}, nil
}

func (e *External) Inspect(data []byte) (ReplayInfo, error) {
	var out struct {
		ReplayVersion   int32 `json:"replay_version"`
		CheckpointCount int32 `json:"checkpoint_count"`
		TickCount       int32 `json:"tick_count"`
	}
	if err := e.invoke(cmdInfo, data, &out); err != nil {
		return ReplayInfo{}, err
	}
	return ReplayInfo{ReplayVersion: out.ReplayVersion, CheckpointCount: out.CheckpointCount, TickCount: out.TickCount}, nil
}

func (e *External) invoke(subcommand string, data []byte, out any) error {
	args := append(append([]string{}, e.args...), subcommand)
	cmd := exec.Command(e.path, args...)
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return &Error{Message: msg}
	}

	raw := bytes.TrimSpace(stdout.Bytes())

	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return &Error{Message: fmt.Sprintf("unparseable simulator output: %v", err)}
	}
	if probe.Error != "" {
		return &Error{Message: probe.Error}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Message: fmt.Sprintf("unparseable simulator output: %v", err)}
	}
	return nil
}
