package command

import (
	"fmt"
	"sort"
	"sync"

	"github.com/moffa90/go-morsectl/protocol"
)

// Command names.
const (
	NameRAW               = "raw"
	NameDynamicPeering    = "dynamic_peering"
	NameTxPktLifetime     = "tx_pkt_lifetime_us"
	NameIFS               = "ifs"
	NamePHYDeaf           = "phy_deaf"
	NameSTAType           = "sta_type"
	NameEncMode           = "enc_mode"
	NameVersion           = "version"
	NameSetChannel        = "set_channel"
	NameGetChannel        = "get_channel"
	NameGetDTIMChannel    = "get_dtim_channel"
	NameGetCurrentChannel = "get_current_channel"
	NameSetQoS            = "set_qos"
	NameGetQoS            = "get_qos"
	NameTxRate            = "txrate"
)

// Registry maps command names and ids to descriptors. It is immutable
// once built and safe for concurrent lookups.
type Registry struct {
	byName map[string]Descriptor
	byID   map[protocol.CommandID]string
	names  []string
}

// NewRegistry builds a registry from descs.
//
// It panics on a duplicate name or id, an id outside the assigned ranges,
// or a descriptor without constructors. These are definition errors.
func NewRegistry(descs ...Descriptor) *Registry {
	r := &Registry{
		byName: make(map[string]Descriptor, len(descs)),
		byID:   make(map[protocol.CommandID]string, len(descs)),
	}
	for _, d := range descs {
		if d.Name == "" {
			panic(fmt.Sprintf("command: descriptor for %s has no name", d.ID))
		}
		if _, dup := r.byName[d.Name]; dup {
			panic(fmt.Sprintf("command: duplicate name %q", d.Name))
		}
		if other, dup := r.byID[d.ID]; dup {
			panic(fmt.Sprintf("command: %q reuses id %s of %q", d.Name, d.ID, other))
		}
		if protocol.RangeOf(d.ID) == protocol.RangeUnassigned {
			panic(fmt.Sprintf("command: %q uses unassigned id %s", d.Name, d.ID))
		}
		if d.NewRequest == nil || d.NewResponse == nil {
			panic(fmt.Sprintf("command: %q is missing a request or response constructor", d.Name))
		}
		r.byName[d.Name] = d
		r.byID[d.ID] = d.Name
		r.names = append(r.names, d.Name)
	}
	sort.Strings(r.names)
	return r
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// LookupID returns the descriptor registered under id.
func (r *Registry) LookupID(id protocol.CommandID) (Descriptor, bool) {
	name, ok := r.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return r.byName[name], true
}

// Names returns every registered name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Descriptors returns every descriptor sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name])
	}
	return out
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	return len(r.names)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry of every command this package implements.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(Builtin()...)
	})
	return defaultRegistry
}

// Builtin returns the descriptors behind Default.
func Builtin() []Descriptor {
	return []Descriptor{
		{
			Name:              NameRAW,
			ID:                protocol.CmdConfigRAW,
			Summary:           "configure a restricted access window",
			RequiresInterface: true,
			NewRequest:        func() Request { return &RAW{} },
			NewResponse:       newEmptyResponse,
		},
		{
			Name:              NameDynamicPeering,
			ID:                protocol.CmdDynamicPeeringSetConf,
			Summary:           "enable or disable mesh dynamic peering",
			RequiresInterface: true,
			NewRequest:        func() Request { return &DynamicPeering{} },
			NewResponse:       newEmptyResponse,
		},
		{
			Name:              NameTxPktLifetime,
			ID:                protocol.CmdSetTxPktLifetimeUS,
			Summary:           "set the tx packet lifetime in microseconds",
			RequiresInterface: true,
			DirectChip:        true,
			NewRequest:        func() Request { return &TxPktLifetime{} },
			NewResponse:       newEmptyResponse,
		},
		{
			Name:              NameIFS,
			ID:                protocol.CmdSetIFS,
			Summary:           "set the inter-frame spacing in microseconds",
			RequiresInterface: true,
			DirectChip:        true,
			NewRequest:        func() Request { return &IFS{} },
			NewResponse:       newEmptyResponse,
		},
		{
			Name:              NamePHYDeaf,
			ID:                protocol.CmdTestPHYDeaf,
			Summary:           "block the phy from receiving or transmitting",
			RequiresInterface: true,
			DirectChip:        true,
			NewRequest:        func() Request { return &PHYDeaf{} },
			NewResponse:       newEmptyResponse,
		},
		{
			Name:              NameSTAType,
			ID:                protocol.CmdSetSTAType,
			Summary:           "set the S1G station type",
			RequiresInterface: true,
			NewRequest:        func() Request { return &STAType{} },
			NewResponse:       newEmptyResponse,
		},
		{
			Name:              NameEncMode,
			ID:                protocol.CmdSetEncMode,
			Summary:           "set the TIM encoding mode",
			RequiresInterface: true,
			NewRequest:        func() Request { return &EncMode{} },
			NewResponse:       newEmptyResponse,
		},
		{
			Name:              NameVersion,
			ID:                protocol.CmdGetVersion,
			Summary:           "read the firmware version",
			RequiresInterface: true,
			DirectChip:        true,
			NewRequest:        newEmptyRequest,
			NewResponse:       func() Response { return &Version{} },
		},
		{
			Name:              NameSetChannel,
			ID:                protocol.CmdSetChannel,
			Summary:           "tune the operating channel",
			RequiresInterface: true,
			DirectChip:        true,
			NewRequest:        func() Request { return &SetChannel{} },
			NewResponse:       newEmptyResponse,
		},
		{
			Name:              NameGetChannel,
			ID:                protocol.CmdGetFullChannel,
			Summary:           "read the full channel information",
			RequiresInterface: true,
			DirectChip:        true,
			NewRequest:        newEmptyRequest,
			NewResponse:       func() Response { return &ChannelInfo{} },
		},
		{
			Name:              NameGetDTIMChannel,
			ID:                protocol.CmdGetDTIMChannel,
			Summary:           "read the DTIM channel information",
			RequiresInterface: true,
			DirectChip:        true,
			NewRequest:        newEmptyRequest,
			NewResponse:       func() Response { return &ChannelInfo{} },
		},
		{
			Name:              NameGetCurrentChannel,
			ID:                protocol.CmdGetCurrentChannel,
			Summary:           "read the channel the radio is currently on",
			RequiresInterface: true,
			DirectChip:        true,
			NewRequest:        newEmptyRequest,
			NewResponse:       func() Response { return &ChannelInfo{} },
		},
		{
			Name:              NameSetQoS,
			ID:                protocol.CmdSetQoSParams,
			Summary:           "set the EDCA parameters of a queue",
			RequiresInterface: true,
			DirectChip:        true,
			NewRequest:        func() Request { return &SetQoS{} },
			NewResponse:       func() Response { return &QoSParams{} },
		},
		{
			Name:              NameGetQoS,
			ID:                protocol.CmdGetQoSParams,
			Summary:           "read the EDCA parameters of a queue",
			RequiresInterface: true,
			DirectChip:        true,
			NewRequest:        func() Request { return &GetQoS{} },
			NewResponse:       func() Response { return &QoSParams{} },
		},
		{
			Name:              NameTxRate,
			ID:                protocol.CmdTestSetTransmissionRate,
			Summary:           "force the transmission rate",
			RequiresInterface: true,
			DirectChip:        true,
			NewRequest:        func() Request { return &TxRate{} },
			NewResponse:       newEmptyResponse,
		},
	}
}
