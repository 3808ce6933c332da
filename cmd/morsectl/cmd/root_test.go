package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/moffa90/go-morsectl/command"
	"github.com/moffa90/go-morsectl/config"
	"github.com/moffa90/go-morsectl/emulator"
	"github.com/moffa90/go-morsectl/internal/logging"
	"github.com/moffa90/go-morsectl/protocol"
	"github.com/moffa90/go-morsectl/transport"
)

// useChip routes every command to chip over a loopback transport.
func useChip(t *testing.T, chip *emulator.Chip, opts ...transport.LoopbackOption) {
	t.Helper()
	t.Setenv(config.EnvFile, "")
	t.Setenv(logging.EnvLevel, "")
	SetTransportFactory(func(config.Config) (transport.Transport, error) {
		return transport.NewLoopback(chip, opts...), nil
	})
	t.Cleanup(func() { SetTransportFactory(nil) })
}

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root := RootCmd()
	root.SetOut(buf)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	useChip(t, emulator.New())

	out, err := executeCommand("version", "-o", "json")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, emulator.DefaultVersion) {
		t.Errorf("expected output to contain %q, got: %s", emulator.DefaultVersion, out)
	}
}

func TestCommandRequests(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want command.Request
	}{
		{
			name: command.NameRAW,
			args: []string{"raw", "enable", "5", "-s", "4000,8", "-x", "-a", "1,10", "--start-time", "20", "-p", "4,-1,1"},
			want: &command.RAW{
				ID:          5,
				Action:      command.RAWEnable,
				SlotDef:     command.Some(command.SlotDefinition{DurationUs: 4000, NumSlots: 8}),
				CrossSlot:   true,
				Group:       command.Some(command.AIDGroup{Start: 1, End: 10}),
				StartTimeUs: command.Some[uint32](20),
				PRAW:        command.Some(command.PeriodicRAW{Periodicity: 4, Persistent: true, StartOffset: 1}),
			},
		},
		{
			name: command.NameDynamicPeering,
			args: []string{"dynamic_peering", "enable", "-r", "10", "--blacklist-timeout", "60"},
			want: &command.DynamicPeering{Enabled: true, RSSIMargin: 10, BlacklistTimeout: 60},
		},
		{
			name: command.NameTxPktLifetime,
			args: []string{"tx_pkt_lifetime_us", "100000"},
			want: &command.TxPktLifetime{LifetimeUs: 100000},
		},
		{
			name: command.NameIFS,
			args: []string{"ifs", "0xA0"},
			want: &command.IFS{SpacingUs: 160},
		},
		{
			name: command.NamePHYDeaf,
			args: []string{"phy_deaf", "2"},
			want: &command.PHYDeaf{Mode: 2},
		},
		{
			name: command.NameSetChannel,
			args: []string{"set_channel", "-c", "920500", "--operating-bw", "2", "-p", "1", "-n", "0"},
			want: &command.SetChannel{
				FrequencyHz:           920500000,
				OperatingBandwidthMHz: command.Some[uint8](2),
				PrimaryBandwidthMHz:   command.Some[uint8](1),
				Primary1MHzIndex:      command.Some[uint8](0),
				S1GChanPower:          true,
			},
		},
		{
			name: command.NameSetQoS,
			args: []string{"set_qos", "1", "--aifs", "3", "-m", "3,7"},
			want: &command.SetQoS{
				Queue: 1,
				AIFS:  command.Some[uint8](3),
				CWMin: command.Some[uint16](3),
				CWMax: command.Some[uint16](7),
			},
		},
		{
			name: command.NameTxRate,
			args: []string{"txrate", "enable", "-m", "4", "-b", "-1", "-n", "2", "-s", "1", "-l", "0"},
			want: &command.TxRate{
				Enabled: true,
				MCS:     command.Some[int32](4),
				NSS:     command.Some[uint8](2),
				ShortGI: command.Some(true),
				LDPC:    command.Some(false),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chip := emulator.New()
			useChip(t, chip)

			if _, err := executeCommand(tt.args...); err != nil {
				t.Fatalf("%s failed: %v", tt.name, err)
			}
			got, ok := chip.Last(tt.name)
			if !ok {
				t.Fatalf("chip never saw %s", tt.name)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("chip saw %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestQoSOutput(t *testing.T) {
	useChip(t, emulator.New())

	out, err := executeCommand("set_qos", "2", "--txop", "2000", "-o", "yaml")
	if err != nil {
		t.Fatalf("set_qos failed: %v", err)
	}
	if !strings.Contains(out, "max_txop_us: 2000") {
		t.Errorf("expected merged txop in output, got: %s", out)
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCode int
	}{
		{"missing argument", []string{"ifs"}, "accepts 1 arg", ExitUsage},
		{"unknown flag", []string{"version", "--bogus"}, "unknown flag", ExitUsage},
		{"not a number", []string{"ifs", "fast"}, "invalid ifs_us", ExitUsage},
		{"out of range", []string{"phy_deaf", "300"}, "invalid mode", ExitUsage},
		{"validation", []string{"dynamic_peering", "enable", "-r", "2", "--blacklist-timeout", "60"}, "rssi_margin", ExitUsage},
		{"missing flag", []string{"dynamic_peering", "enable", "-r", "10"}, "blacklist_timeout", ExitUsage},
		{"bad switch", []string{"txrate", "maybe"}, "not enable or disable", ExitUsage},
		{"bad action", []string{"raw", "pause", "1"}, "unknown action", ExitUsage},
		{"short slot def", []string{"raw", "enable", "1", "-s", "4000"}, "want 2 values", ExitUsage},
		{"bad boolean", []string{"txrate", "enable", "-c", "2"}, "not 0, 1 or -1", ExitUsage},
		{"unknown transport", []string{"-t", "usb", "version"}, "unknown transport", ExitUsage},
		{"unknown output", []string{"-o", "csv", "version"}, "unknown output format", ExitUsage},
		{"serial without port", []string{"-t", "serial", "version"}, "serial.port", ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chip := emulator.New()
			useChip(t, chip)

			_, err := executeCommand(tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
			if code := ExitCode(err); code != tt.wantCode {
				t.Errorf("ExitCode() = %d, want %d", code, tt.wantCode)
			}
			if chip.Handled() != 0 {
				t.Errorf("chip handled %d frames for a rejected command", chip.Handled())
			}
		})
	}
}

func TestDeviceErrorExitCode(t *testing.T) {
	chip := emulator.New()
	chip.InjectStatus(protocol.CmdSetQoSParams, protocol.StatusInvalidArgument)
	useChip(t, chip)

	_, err := executeCommand("set_qos", "1", "--aifs", "2")
	if !errors.Is(err, protocol.StatusInvalidArgument) {
		t.Fatalf("error = %v, want invalid argument status", err)
	}
	if code := ExitCode(err); code != ExitFailure {
		t.Errorf("ExitCode() = %d, want %d", code, ExitFailure)
	}
}

func TestCapabilityExitCode(t *testing.T) {
	useChip(t, emulator.New(), transport.WithDirectChip(true))

	_, err := executeCommand("raw", "enable", "1", "-s", "4000,8")
	if err == nil || !strings.Contains(err.Error(), "direct-to-chip") {
		t.Fatalf("error = %v, want capability error", err)
	}
	if code := ExitCode(err); code != ExitUsage {
		t.Errorf("ExitCode() = %d, want %d", code, ExitUsage)
	}

	if _, err := executeCommand("ifs", "200"); err != nil {
		t.Errorf("direct-chip command failed: %v", err)
	}
}

func TestResetCommand(t *testing.T) {
	chip := emulator.New()
	useChip(t, chip)

	out, err := executeCommand("reset")
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if !strings.Contains(out, "Reset complete.") {
		t.Errorf("unexpected output: %s", out)
	}
	if chip.Boots() != 2 {
		t.Errorf("boots = %d, want 2", chip.Boots())
	}

	if _, err := executeCommand("reset", "--softreset"); err != nil {
		t.Fatalf("soft reset failed: %v", err)
	}
	if chip.Boots() != 3 {
		t.Errorf("boots = %d, want 3", chip.Boots())
	}
}

func TestCommandsList(t *testing.T) {
	useChip(t, emulator.New(), transport.WithDirectChip(true))

	out, err := executeCommand("commands")
	if err != nil {
		t.Fatalf("commands failed: %v", err)
	}
	if !strings.Contains(out, "ifs") || strings.Contains(out, "dynamic_peering") {
		t.Errorf("direct-chip listing wrong:\n%s", out)
	}

	out, err = executeCommand("commands", "--all", "-o", "json")
	if err != nil {
		t.Fatalf("commands --all failed: %v", err)
	}
	if !strings.Contains(out, `"name": "dynamic_peering"`) {
		t.Errorf("full listing missing dynamic_peering:\n%s", out)
	}
}

func TestMetricsFile(t *testing.T) {
	useChip(t, emulator.New())
	path := filepath.Join(t.TempDir(), "morsectl.prom")

	if _, err := executeCommand("--metrics-file", path, "get_channel"); err != nil {
		t.Fatalf("get_channel failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	want := `morsectl_commands_total{command="get_channel",outcome="ok"} 1`
	if !strings.Contains(string(data), want) {
		t.Errorf("metrics file missing %q:\n%s", want, data)
	}
}

func TestConfigFile(t *testing.T) {
	useChip(t, emulator.New())
	path := filepath.Join(t.TempDir(), "morsectl.toml")
	if err := os.WriteFile(path, []byte("output = \"yaml\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand("-f", path, "get_qos", "0")
	if err != nil {
		t.Fatalf("get_qos failed: %v", err)
	}
	if !strings.Contains(out, "aifs: ") {
		t.Errorf("expected yaml output, got: %s", out)
	}

	out, err = executeCommand("-f", path, "-o", "json", "get_qos", "0")
	if err != nil {
		t.Fatalf("get_qos failed: %v", err)
	}
	if !strings.Contains(out, `"aifs":`) {
		t.Errorf("flag did not override config, got: %s", out)
	}
}

func TestServeRemote(t *testing.T) {
	t.Setenv(config.EnvFile, "")
	t.Setenv(logging.EnvLevel, "")
	SetTransportFactory(nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := &app{logger: zerolog.Nop()}
	done := make(chan error, 1)
	go func() {
		done <- a.serve(ctx, ln, DefaultServePath, emulator.New(emulator.WithVersion("served")))
	}()

	url := fmt.Sprintf("ws://%s%s", ln.Addr(), DefaultServePath)
	out, err := executeCommand("-t", "remote", "--url", url, "-i", "wlan1", "version")
	if err != nil {
		t.Fatalf("remote version failed: %v", err)
	}
	if !strings.Contains(out, "served") {
		t.Errorf("unexpected output: %s", out)
	}

	path := filepath.Join(t.TempDir(), "morsectl.toml")
	if err := os.WriteFile(path, []byte("timeout = \"0s\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := executeCommand("-f", path, "-t", "remote", "--url", url, "get_channel"); err != nil {
		t.Errorf("remote get_channel with zero timeout failed: %v", err)
	}
	if _, err := executeCommand("-t", "remote", "--url", url, "reset"); err != nil {
		t.Errorf("remote reset failed: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"usage", &usageError{err: errors.New("bad flag")}, ExitUsage},
		{"validation", &protocol.ValidationError{Command: "ifs"}, ExitUsage},
		{"capability", &protocol.CapabilityError{Command: "raw"}, ExitUsage},
		{"transport", &protocol.TransportError{Op: "send", Err: errors.New("eof")}, ExitFailure},
		{"protocol", &protocol.ProtocolError{Command: "version"}, ExitFailure},
		{"device", &protocol.DeviceError{Command: "set_qos", Status: protocol.StatusInvalidArgument}, ExitFailure},
		{"other", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
