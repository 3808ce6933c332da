package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-morsectl/command"
	"github.com/moffa90/go-morsectl/dispatch"
	"github.com/moffa90/go-morsectl/protocol"
)

// buildFunc turns parsed arguments into a request. A nil request is sent
// for commands without payload.
type buildFunc func(cmd *cobra.Command, args []string) (command.Request, error)

// chipCommands returns one subcommand per registered command.
func chipCommands(a *app) []*cobra.Command {
	return []*cobra.Command{
		newRAWCmd(a),
		newDynamicPeeringCmd(a),
		a.valueCmd(command.NameTxPktLifetime, "<lifetime_us>", func(v uint32) command.Request {
			return &command.TxPktLifetime{LifetimeUs: v}
		}),
		a.valueCmd(command.NameIFS, "<ifs_us>", func(v uint32) command.Request {
			return &command.IFS{SpacingUs: v}
		}),
		a.byteCmd(command.NamePHYDeaf, "<mode>", func(v uint8) command.Request {
			return &command.PHYDeaf{Mode: v}
		}),
		a.byteCmd(command.NameSTAType, "<sta_type>", func(v uint8) command.Request {
			return &command.STAType{Type: v}
		}),
		a.byteCmd(command.NameEncMode, "<enc_mode>", func(v uint8) command.Request {
			return &command.EncMode{Mode: v}
		}),
		a.chipCmd(command.NameVersion, "", cobra.NoArgs, nil),
		newSetChannelCmd(a),
		a.chipCmd(command.NameGetChannel, "", cobra.NoArgs, nil),
		a.chipCmd(command.NameGetDTIMChannel, "", cobra.NoArgs, nil),
		a.chipCmd(command.NameGetCurrentChannel, "", cobra.NoArgs, nil),
		newSetQoSCmd(a),
		newGetQoSCmd(a),
		newTxRateCmd(a),
	}
}

// chipCmd builds the subcommand that dispatches name.
func (a *app) chipCmd(name, use string, args cobra.PositionalArgs, build buildFunc) *cobra.Command {
	desc, ok := command.Default().Lookup(name)
	if !ok {
		panic("morsectl: unregistered command " + name)
	}
	return &cobra.Command{
		Use:   strings.TrimSpace(name + " " + use),
		Short: desc.Summary,
		Args:  usageArgs(args),
		RunE: func(cmd *cobra.Command, argv []string) error {
			var req command.Request
			if build != nil {
				var err error
				if req, err = build(cmd, argv); err != nil {
					return err
				}
			}
			return a.session(cmd.Context(), func(d *dispatch.Dispatcher) error {
				resp, err := d.Run(cmd.Context(), name, req)
				if err != nil {
					return err
				}
				a.print(cmd, resp)
				return nil
			})
		},
	}
}

// valueCmd builds a command taking a single 32-bit argument.
func (a *app) valueCmd(name, use string, mk func(uint32) command.Request) *cobra.Command {
	field := strings.Trim(use, "<>")
	return a.chipCmd(name, use, cobra.ExactArgs(1), func(cmd *cobra.Command, args []string) (command.Request, error) {
		v, err := parseArg[uint32](name, field, args[0])
		if err != nil {
			return nil, err
		}
		return mk(v), nil
	})
}

// byteCmd builds a command taking a single 8-bit argument.
func (a *app) byteCmd(name, use string, mk func(uint8) command.Request) *cobra.Command {
	field := strings.Trim(use, "<>")
	return a.chipCmd(name, use, cobra.ExactArgs(1), func(cmd *cobra.Command, args []string) (command.Request, error) {
		v, err := parseArg[uint8](name, field, args[0])
		if err != nil {
			return nil, err
		}
		return mk(v), nil
	})
}

func newRAWCmd(a *app) *cobra.Command {
	var (
		slotDef   []int
		crossSlot bool
		aidGroup  []int
		startTime uint32
		bcnSpread []int
		praw      []int
	)

	c := a.chipCmd(command.NameRAW, "{enable|disable|delete} <id>", cobra.ExactArgs(2),
		func(cmd *cobra.Command, args []string) (command.Request, error) {
			action, err := command.ParseRAWAction(args[0])
			if err != nil {
				return nil, err
			}
			id, err := parseArg[uint16](command.NameRAW, "id", args[1])
			if err != nil {
				return nil, err
			}
			req := &command.RAW{ID: id, Action: action, CrossSlot: crossSlot}

			flags := cmd.Flags()
			if flags.Changed("slot-def") {
				v, err := ints[uint32](command.NameRAW, "slot_def", slotDef, 2)
				if err != nil {
					return nil, err
				}
				if v[1] > 0xFF {
					return nil, invalidArg(command.NameRAW, "num_slots", "%d out of range", v[1])
				}
				req.SlotDef = command.Some(command.SlotDefinition{DurationUs: v[0], NumSlots: uint8(v[1])})
			}
			if flags.Changed("aid-group") {
				v, err := ints[uint16](command.NameRAW, "aid_group", aidGroup, 2)
				if err != nil {
					return nil, err
				}
				req.Group = command.Some(command.AIDGroup{Start: v[0], End: v[1]})
			}
			if flags.Changed("start-time") {
				req.StartTimeUs = command.Some(startTime)
			}
			if flags.Changed("bcn-spread") {
				v, err := ints[uint16](command.NameRAW, "bcn_spread", bcnSpread, 2)
				if err != nil {
					return nil, err
				}
				req.BeaconSpread = command.Some(command.BeaconSpread{MaxSpread: v[0], NominalSTAPerBcn: v[1]})
			}
			if flags.Changed("praw") {
				p, err := parsePRAW(praw)
				if err != nil {
					return nil, err
				}
				req.PRAW = command.Some(p)
			}
			return req, nil
		})

	c.Long = "Enable, disable or delete a RAW config. Id 0 addresses every config."
	flags := c.Flags()
	flags.IntSliceVarP(&slotDef, "slot-def", "s", nil, "<duration_us>,<num_slots>: slot definition, required for new configs")
	flags.BoolVarP(&crossSlot, "cross-slot", "x", false, "enable cross slot bleed (requires --slot-def)")
	flags.IntSliceVarP(&aidGroup, "aid-group", "a", nil, "<start_aid>,<end_aid>: AID range for the config")
	flags.Uint32Var(&startTime, "start-time", 0, "start of the RAW window in us from the end of the beacon")
	flags.IntSliceVarP(&bcnSpread, "bcn-spread", "b", nil, "<max_beacons>,<nominal_sta_per_beacon>: use beacon spreading")
	flags.IntSliceVarP(&praw, "praw", "p", nil, "<periodicity>,<validity (-1 for persistent)>,<offset>: use periodic RAW")
	return c
}

func parsePRAW(vals []int) (command.PeriodicRAW, error) {
	if len(vals) != 3 {
		return command.PeriodicRAW{}, invalidArg(command.NameRAW, "praw", "want 3 values, got %d", len(vals))
	}
	p := command.PeriodicRAW{Persistent: vals[1] == -1}
	if !p.Persistent {
		v, err := fitUint[uint8](command.NameRAW, "validity", vals[1])
		if err != nil {
			return p, err
		}
		p.Validity = v
	}
	var err error
	if p.Periodicity, err = fitUint[uint8](command.NameRAW, "periodicity", vals[0]); err != nil {
		return p, err
	}
	if p.StartOffset, err = fitUint[uint8](command.NameRAW, "start_offset", vals[2]); err != nil {
		return p, err
	}
	return p, nil
}

func newDynamicPeeringCmd(a *app) *cobra.Command {
	var (
		margin  uint8
		timeout uint32
	)

	c := a.chipCmd(command.NameDynamicPeering, "{enable|disable}", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) (command.Request, error) {
			enabled, err := parseSwitch(command.NameDynamicPeering, args[0])
			if err != nil {
				return nil, err
			}
			flags := cmd.Flags()
			if !flags.Changed("rssi-margin") {
				return nil, invalidArg(command.NameDynamicPeering, "rssi_margin", "must be specified")
			}
			if !flags.Changed("blacklist-timeout") {
				return nil, invalidArg(command.NameDynamicPeering, "blacklist_timeout", "must be specified")
			}
			return &command.DynamicPeering{Enabled: enabled, RSSIMargin: margin, BlacklistTimeout: timeout}, nil
		})

	flags := c.Flags()
	flags.Uint8VarP(&margin, "rssi-margin", "r", 0,
		fmt.Sprintf("RSSI margin in dB when picking a peer to kick out (%d-%d)", command.RSSIMarginMin, command.RSSIMarginMax))
	flags.Uint32Var(&timeout, "blacklist-timeout", 0,
		fmt.Sprintf("seconds a kicked-out peer is refused (%d-%d)", command.BlacklistTimeoutMin, command.BlacklistTimeoutMax))
	return c
}

func newSetChannelCmd(a *app) *cobra.Command {
	var (
		freqKHz     uint32
		opBW        uint8
		primBW      uint8
		primIdx     uint8
		dot11Mode   uint8
		ignorePower bool
	)

	c := a.chipCmd(command.NameSetChannel, "", cobra.NoArgs,
		func(cmd *cobra.Command, args []string) (command.Request, error) {
			if freqKHz > ^uint32(0)/1000 {
				return nil, invalidArg(command.NameSetChannel, "frequency", "%d kHz out of range", freqKHz)
			}
			req := &command.SetChannel{
				FrequencyHz:  freqKHz * 1000,
				Dot11Mode:    dot11Mode,
				S1GChanPower: !ignorePower,
			}
			flags := cmd.Flags()
			if flags.Changed("operating-bw") {
				req.OperatingBandwidthMHz = command.Some(opBW)
			}
			if flags.Changed("primary-bw") {
				req.PrimaryBandwidthMHz = command.Some(primBW)
			}
			if flags.Changed("primary-index") {
				req.Primary1MHzIndex = command.Some(primIdx)
			}
			return req, nil
		})

	flags := c.Flags()
	flags.Uint32VarP(&freqKHz, "frequency", "c", 0, "channel frequency in kHz")
	flags.Uint8Var(&opBW, "operating-bw", 0, "operating bandwidth in MHz")
	flags.Uint8VarP(&primBW, "primary-bw", "p", 0, "primary bandwidth in MHz")
	flags.Uint8VarP(&primIdx, "primary-index", "n", 0, "primary 1 MHz channel index")
	flags.Uint8Var(&dot11Mode, "dot11-mode", 0, "802.11 mode")
	flags.BoolVarP(&ignorePower, "ignore-reg-power", "r", false, "ignore the regulatory max tx power")
	return c
}

func newSetQoSCmd(a *app) *cobra.Command {
	var (
		aifs uint8
		txop uint32
		cw   []int
	)

	c := a.chipCmd(command.NameSetQoS, "<queue>", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) (command.Request, error) {
			queue, err := parseArg[uint8](command.NameSetQoS, "queue", args[0])
			if err != nil {
				return nil, err
			}
			req := &command.SetQoS{Queue: queue}
			flags := cmd.Flags()
			if flags.Changed("aifs") {
				req.AIFS = command.Some(aifs)
			}
			if flags.Changed("txop") {
				req.MaxTXOPUs = command.Some(txop)
			}
			if flags.Changed("cw") {
				v, err := ints[uint16](command.NameSetQoS, "cw", cw, 2)
				if err != nil {
					return nil, err
				}
				req.CWMin = command.Some(v[0])
				req.CWMax = command.Some(v[1])
			}
			return req, nil
		})

	flags := c.Flags()
	flags.Uint8VarP(&aifs, "aifs", "c", 0, "number of AIFS slots to wait for")
	flags.Uint32Var(&txop, "txop", 0, "maximum TXOP in us")
	flags.IntSliceVarP(&cw, "cw", "m", nil, "<min>,<max>: contention window")
	return c
}

func newGetQoSCmd(a *app) *cobra.Command {
	return a.chipCmd(command.NameGetQoS, "<queue>", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) (command.Request, error) {
			queue, err := parseArg[uint8](command.NameGetQoS, "queue", args[0])
			if err != nil {
				return nil, err
			}
			return &command.GetQoS{Queue: queue}, nil
		})
}

func newTxRateCmd(a *app) *cobra.Command {
	var mcs, bw, format, pilots, sgi, nss, ldpc, stbc int

	c := a.chipCmd(command.NameTxRate, "{enable|disable}", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) (command.Request, error) {
			enabled, err := parseSwitch(command.NameTxRate, args[0])
			if err != nil {
				return nil, err
			}
			req := &command.TxRate{Enabled: enabled}
			flags := cmd.Flags()
			set := func(name string, v int) bool { return flags.Changed(name) && v != -1 }

			if set("mcs", mcs) {
				req.MCS = command.Some(int32(mcs))
			}
			if set("bandwidth", bw) {
				req.BandwidthMHz = command.Some(int32(bw))
			}
			if set("format", format) {
				req.Format = command.Some(int32(format))
			}
			if set("nss", nss) {
				v, err := fitUint[uint8](command.NameTxRate, "nss", nss)
				if err != nil {
					return nil, err
				}
				req.NSS = command.Some(v)
			}
			for _, b := range []struct {
				name string
				v    int
				dst  *command.Optional[bool]
			}{
				{"traveling-pilots", pilots, &req.TravelingPilot},
				{"sgi", sgi, &req.ShortGI},
				{"ldpc", ldpc, &req.LDPC},
				{"stbc", stbc, &req.STBC},
			} {
				if !set(b.name, b.v) {
					continue
				}
				if b.v != 0 && b.v != 1 {
					return nil, invalidArg(command.NameTxRate, b.name, "%d is not 0, 1 or -1", b.v)
				}
				*b.dst = command.Some(b.v == 1)
			}
			return req, nil
		})

	c.Long = "Force the transmission rate. 'disable' resets every forced parameter; -1 leaves a parameter at the firmware default."
	flags := c.Flags()
	flags.IntVarP(&mcs, "mcs", "m", -1, fmt.Sprintf("MCS index (0-%d)", command.MCSMax))
	flags.IntVarP(&bw, "bandwidth", "b", -1, "tx bandwidth in MHz")
	flags.IntVar(&format, "format", -1, fmt.Sprintf("duplicate format (0-%d)", command.FormatMax))
	flags.IntVar(&pilots, "traveling-pilots", -1, "traveling pilots (0, 1)")
	flags.IntVarP(&sgi, "sgi", "s", -1, "short guard interval (0, 1)")
	flags.IntVarP(&nss, "nss", "n", -1, fmt.Sprintf("spatial streams (1-%d)", command.NSSMax))
	flags.IntVarP(&ldpc, "ldpc", "l", -1, "LDPC (0, 1)")
	flags.IntVarP(&stbc, "stbc", "c", -1, "STBC (0, 1)")
	return c
}

// usageArgs marks positional argument errors as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	if check == nil {
		return nil
	}
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

type unsigned interface {
	~uint8 | ~uint16 | ~uint32
}

func invalidArg(cmd, field, format string, args ...interface{}) *protocol.ValidationError {
	return &protocol.ValidationError{Command: cmd, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// parseArg parses a decimal or 0x-prefixed positional argument.
func parseArg[T unsigned](cmd, field, s string) (T, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil || v > uint64(^T(0)) {
		return 0, invalidArg(cmd, field, "%q is not a number in [0, %d]", s, uint64(^T(0)))
	}
	return T(v), nil
}

func fitUint[T unsigned](cmd, field string, v int) (T, error) {
	if v < 0 || uint64(v) > uint64(^T(0)) {
		return 0, invalidArg(cmd, field, "%d out of range [0, %d]", v, uint64(^T(0)))
	}
	return T(v), nil
}

// ints converts a comma separated flag of exactly n values.
func ints[T unsigned](cmd, field string, vals []int, n int) ([]T, error) {
	if len(vals) != n {
		return nil, invalidArg(cmd, field, "want %d values, got %d", n, len(vals))
	}
	out := make([]T, n)
	for i, v := range vals {
		u, err := fitUint[T](cmd, field, v)
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

func parseSwitch(cmd, s string) (bool, error) {
	switch strings.ToLower(s) {
	case "enable":
		return true, nil
	case "disable":
		return false, nil
	default:
		return false, invalidArg(cmd, "", "%q is not enable or disable", s)
	}
}
