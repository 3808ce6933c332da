package emulator

import (
	"context"
	"fmt"
	"sync"

	"github.com/moffa90/go-morsectl/command"
	"github.com/moffa90/go-morsectl/protocol"
	"github.com/moffa90/go-morsectl/transport"
)

// DefaultVersion is reported by get-version unless WithVersion is used.
const DefaultVersion = "rel_1_12_4_2024_Jun_11-emulated"

// Number of EDCA queues the emulated firmware accepts.
const numQueues = 4

var defaultChannel = command.ChannelInfo{
	FrequencyHz:           923500000,
	OperatingBandwidthMHz: 1,
	PrimaryBandwidthMHz:   1,
	Primary1MHzIndex:      0,
}

// EDCA defaults for BE, BK, VI and VO.
var defaultQoS = [numQueues]command.QoSParams{
	{AIFS: 3, CWMin: 15, CWMax: 1023, MaxTXOPUs: 15008},
	{AIFS: 7, CWMin: 15, CWMax: 1023, MaxTXOPUs: 15008},
	{AIFS: 2, CWMin: 7, CWMax: 15, MaxTXOPUs: 15008},
	{AIFS: 2, CWMin: 3, CWMax: 7, MaxTXOPUs: 15008},
}

// Chip is an in-memory firmware model. It implements transport.Handler,
// transport.Resetter and transport.RegisterAccess. It is safe for
// concurrent use.
type Chip struct {
	registry *command.Registry
	version  string

	mu        sync.Mutex
	channel   command.ChannelInfo
	dtim      command.ChannelInfo
	qos       [numQueues]command.QoSParams
	registers map[uint32]uint32
	last      map[string]command.Request
	inject    map[protocol.CommandID]protocol.Status
	handled   int
	boots     int
}

// Option configures a Chip.
type Option func(*Chip)

// WithVersion sets the firmware version string.
func WithVersion(v string) Option {
	return func(c *Chip) {
		c.version = v
	}
}

// WithRegistry replaces command.Default.
func WithRegistry(r *command.Registry) Option {
	return func(c *Chip) {
		c.registry = r
	}
}

// New returns a freshly booted chip.
func New(opts ...Option) *Chip {
	c := &Chip{
		registry:  command.Default(),
		version:   DefaultVersion,
		registers: make(map[uint32]uint32),
		inject:    make(map[protocol.CommandID]protocol.Status),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.boot()
	return c
}

// boot restores power-on state. Injected failures and the register file
// survive, as they would across a firmware restart.
func (c *Chip) boot() {
	c.channel = defaultChannel
	c.dtim = defaultChannel
	c.qos = defaultQoS
	c.last = make(map[string]command.Request)
	c.boots++
}

// InjectStatus makes every later command with id fail with status.
// StatusSuccess clears the injection.
func (c *Chip) InjectStatus(id protocol.CommandID, status protocol.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if status == protocol.StatusSuccess {
		delete(c.inject, id)
		return
	}
	c.inject[id] = status
}

// Last returns the most recent request accepted for the named command.
func (c *Chip) Last(name string) (command.Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.last[name]
	return req, ok
}

// Handled returns the number of frames answered.
func (c *Chip) Handled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handled
}

// Boots returns how many times the chip started, including New.
func (c *Chip) Boots() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boots
}

// HandleFrame answers one command frame. Malformed requests are answered
// with a failure status; only a frame too short to carry a header is an
// error, since there is nothing to address the confirm to.
func (c *Chip) HandleFrame(ctx context.Context, frame []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := protocol.DecodeHeader(frame)
	if err != nil {
		return nil, fmt.Errorf("emulator: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.handled++

	payload := frame[protocol.HeaderSize:]
	var reply []byte
	status := protocol.StatusSuccess
	if int(h.Length) > len(payload) {
		status = protocol.StatusInvalidArgument
	} else {
		reply, status = c.execute(h.MessageID, payload[:h.Length])
	}

	rh := protocol.ResponseHeader{
		Header: protocol.Header{
			Flags:          h.Flags,
			MessageID:      h.MessageID,
			HostSequenceID: h.HostSequenceID,
			InterfaceID:    h.InterfaceID,
		},
		Status: status,
	}
	if status != protocol.StatusSuccess {
		reply = nil
	}
	return protocol.EncodeResponse(rh, reply)
}

func (c *Chip) execute(id protocol.CommandID, payload []byte) ([]byte, protocol.Status) {
	if st, ok := c.inject[id]; ok {
		return nil, st
	}

	desc, ok := c.registry.LookupID(id)
	if !ok {
		return nil, protocol.StatusInvalidArgument
	}

	req := desc.NewRequest()
	r := protocol.NewReader(payload)
	if err := req.Decode(r); err != nil || r.Remaining() != 0 {
		return nil, protocol.StatusInvalidArgument
	}
	if err := req.Validate(); err != nil {
		return nil, protocol.StatusInvalidArgument
	}

	resp, status := c.apply(desc.Name, req)
	if status != protocol.StatusSuccess {
		return nil, status
	}
	c.last[desc.Name] = req

	if resp == nil {
		resp = desc.NewResponse()
	}
	out := make([]byte, resp.PayloadSize())
	if err := resp.Encode(protocol.NewWriter(out)); err != nil {
		return nil, protocol.StatusNoMemory
	}
	return out, protocol.StatusSuccess
}

// apply updates chip state for req and returns the confirm payload, or nil
// for commands with an empty confirm.
func (c *Chip) apply(name string, req command.Request) (command.Response, protocol.Status) {
	switch r := req.(type) {
	case *command.SetChannel:
		ch := command.ChannelInfo{
			FrequencyHz:           r.FrequencyHz,
			OperatingBandwidthMHz: r.OperatingBandwidthMHz.Or(defaultChannel.OperatingBandwidthMHz),
			PrimaryBandwidthMHz:   r.PrimaryBandwidthMHz.Or(defaultChannel.PrimaryBandwidthMHz),
			Primary1MHzIndex:      r.Primary1MHzIndex.Or(0),
		}
		if ch.PrimaryBandwidthMHz > ch.OperatingBandwidthMHz ||
			ch.Primary1MHzIndex >= ch.OperatingBandwidthMHz {
			return nil, protocol.StatusInvalidArgument
		}
		c.channel = ch
		c.dtim = ch
		return nil, protocol.StatusSuccess

	case *command.SetQoS:
		if int(r.Queue) >= numQueues {
			return nil, protocol.StatusInvalidArgument
		}
		p := &c.qos[r.Queue]
		p.AIFS = r.AIFS.Or(p.AIFS)
		p.CWMin = r.CWMin.Or(p.CWMin)
		p.CWMax = r.CWMax.Or(p.CWMax)
		p.MaxTXOPUs = r.MaxTXOPUs.Or(p.MaxTXOPUs)
		params := *p
		return &params, protocol.StatusSuccess

	case *command.GetQoS:
		if int(r.Queue) >= numQueues {
			return nil, protocol.StatusInvalidArgument
		}
		params := c.qos[r.Queue]
		return &params, protocol.StatusSuccess
	}

	switch name {
	case command.NameVersion:
		return &command.Version{Version: c.version}, protocol.StatusSuccess
	case command.NameGetChannel, command.NameGetCurrentChannel:
		ch := c.channel
		return &ch, protocol.StatusSuccess
	case command.NameGetDTIMChannel:
		ch := c.dtim
		return &ch, protocol.StatusSuccess
	}
	return nil, protocol.StatusSuccess
}

// ResetDevice reboots the chip.
func (c *Chip) ResetDevice(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boot()
	return nil
}

func (c *Chip) ReadRegister(ctx context.Context, addr uint32) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registers[addr], nil
}

// WriteRegister stores value. Raising the host interrupt after the MAC
// boot word has been written restarts the firmware, which is how the soft
// reset sequence ends.
func (c *Chip) WriteRegister(ctx context.Context, addr, value uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registers[addr] = value

	if addr == transport.RegHostInterrupt && value&transport.RegHostIntValue != 0 &&
		c.registers[transport.RegMACBoot] == transport.RegMACBootValue {
		c.registers[transport.RegMACBoot] = 0
		c.boot()
	}
	return nil
}

var (
	_ transport.Handler        = (*Chip)(nil)
	_ transport.Resetter       = (*Chip)(nil)
	_ transport.RegisterAccess = (*Chip)(nil)
)
