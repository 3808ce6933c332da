package protocol

import "fmt"

// Header sizes in bytes.
const (
	// HeaderSize is the size of the command header
	HeaderSize = 12

	// StatusSize is the size of the status word that follows a confirm header
	StatusSize = 4

	// ResponseHeaderSize is the size of the confirm header including status
	ResponseHeaderSize = HeaderSize + StatusSize

	// MaxPayloadSize is the largest payload the 16-bit length field can describe
	MaxPayloadSize = 0xFFFF
)

// CommandID is the 16-bit message identifier carried in every header.
type CommandID uint16

// Host to firmware/driver messages.
//
// Values are fixed by the firmware ABI and must stay unique.
const (
	CmdSetChannel              CommandID = 0x0001
	CmdGetVersion              CommandID = 0x0002
	CmdSetTxPower              CommandID = 0x0003
	CmdAddInterface            CommandID = 0x0004
	CmdRemoveInterface         CommandID = 0x0005
	CmdBSSConfig               CommandID = 0x0006
	CmdAppStatsLogDeprecated   CommandID = 0x0007
	CmdRPG                     CommandID = 0x0009
	CmdMACStatsLogDeprecated   CommandID = 0x000C
	CmdUPHYStatsLogDeprecated  CommandID = 0x000E
	CmdCfgScan                 CommandID = 0x0010
	CmdSetQoSParams            CommandID = 0x0011
	CmdGetQoSParams            CommandID = 0x0012
	CmdGetFullChannel          CommandID = 0x0013
	CmdSetSTAState             CommandID = 0x0014
	CmdSetBSSColor             CommandID = 0x0015
	CmdTurbo                   CommandID = 0x0018
	CmdHealthCheck             CommandID = 0x0019
	CmdSetCTSSelfPS            CommandID = 0x001A
	CmdSetDTIMChannelChange    CommandID = 0x001B
	CmdGetDTIMChannel          CommandID = 0x001C
	CmdGetCurrentChannel       CommandID = 0x001D
	CmdCfgACIScan              CommandID = 0x001F
	CmdSetLongSleepConfig      CommandID = 0x0021
	CmdSetDutyCycle            CommandID = 0x0022
	CmdGetDutyCycle            CommandID = 0x0023
	CmdGetCapabilities         CommandID = 0x0025
	CmdInstallTWTAgreement     CommandID = 0x0026
	CmdRemoveTWTAgreement      CommandID = 0x0027
	CmdGetTSF                  CommandID = 0x0028
	CmdMACAddr                 CommandID = 0x0029
	CmdMPSWConfig              CommandID = 0x0030
	CmdStandbyMode             CommandID = 0x0031
	CmdDHCPOffload             CommandID = 0x0032
	CmdSetKeepAliveOffload     CommandID = 0x0033
	CmdGetSetGenericParam      CommandID = 0x003E
	CmdUAPSDConfig             CommandID = 0x0040
	CmdSetModulation           CommandID = 0x1000
	CmdGetRSSI                 CommandID = 0x1002
	CmdSetIFS                  CommandID = 0x1003
	CmdSetFEMSettings          CommandID = 0x1005
	CmdSetTXOP                 CommandID = 0x1008
	CmdSetControlResponse      CommandID = 0x1009
	CmdSetPeriodicCal          CommandID = 0x100A
	CmdSetBeaconRSSIThreshold  CommandID = 0x100B
	CmdSetTxPktLifetimeUS      CommandID = 0x100C
	CmdSetPHYSMWatchdog        CommandID = 0x100D
	CmdAppStatsLog             CommandID = 0x2007
	CmdAppStatsReset           CommandID = 0x2008
	CmdMACStatsLog             CommandID = 0x200C
	CmdMACStatsReset           CommandID = 0x200D
	CmdUPHYStatsLog            CommandID = 0x200E
	CmdUPHYStatsReset          CommandID = 0x200F
	CmdTestStartSamplePlay     CommandID = 0x8002
	CmdTestStopSamplePlay      CommandID = 0x8003
	CmdTestSetResponseIndicate CommandID = 0x8007
	CmdTestSetMACAckTimeout    CommandID = 0x8008
	CmdTestSetTransmissionRate CommandID = 0x8009
	CmdTestSetTxScaler         CommandID = 0x800B
	CmdTestSetNDPProbeSupport  CommandID = 0x800C
	CmdTestForceAssert         CommandID = 0x800E
	CmdTestLNABypass           CommandID = 0x800F
	CmdTestSigFieldErrorEvent  CommandID = 0x8011
	CmdTestOTP                 CommandID = 0x8014
	CmdSetAntenna              CommandID = 0x8015
	CmdTestSetMaxAMPDULength   CommandID = 0x8016
	CmdTestTDCPGDisable        CommandID = 0x8017
	CmdTestDumpHWKeys          CommandID = 0x8018
	CmdTestPHYDeaf             CommandID = 0x8019
	CmdTestTransmitCW          CommandID = 0x8020
	CmdTestOverridePAOnDelay   CommandID = 0x8021
	CmdTestSetFSG              CommandID = 0x8022
	CmdTestEnergyDetectionMode CommandID = 0x8023
	CmdTestSetCapabilities     CommandID = 0x8118
	CmdTestTxPowerAdjust       CommandID = 0x8119
	CmdTestSetAGCGainCode      CommandID = 0x811A
	CmdTestGPIO                CommandID = 0x811B
	CmdSetSTAType              CommandID = 0xA000
	CmdSetEncMode              CommandID = 0xA001
	CmdSetListenInterval       CommandID = 0xA003
	CmdSetAMPDU                CommandID = 0xA004
	CmdSetRAWDeprecated        CommandID = 0xA005
	CmdCoredump                CommandID = 0xA006
	CmdSetS1GOpClass           CommandID = 0xA007
	CmdSendWakeActionFrame     CommandID = 0xA008
	CmdVendorIEConfig          CommandID = 0xA009
	CmdTWTSetConf              CommandID = 0xA010
	CmdGetAvailableChannels    CommandID = 0xA011
	CmdSetECSAS1GInfo          CommandID = 0xA012
	CmdGetHWVersion            CommandID = 0xA013
	CmdCACSet                  CommandID = 0xA014
	CmdDriverSetDutyCycle      CommandID = 0xA015
	CmdMBSSIDInfo              CommandID = 0xA016
	CmdOCSReq                  CommandID = 0xA017
	CmdMeshConfig              CommandID = 0xA018
	CmdMBCASetConf             CommandID = 0xA019
	CmdDynamicPeeringSetConf   CommandID = 0xA020
	CmdConfigRAW               CommandID = 0xA021
)

// knownCommands is the append-only id table. New entries go at the end.
var knownCommands = []CommandID{
	CmdSetChannel, CmdGetVersion, CmdSetTxPower, CmdAddInterface, CmdRemoveInterface,
	CmdBSSConfig, CmdAppStatsLogDeprecated, CmdRPG, CmdMACStatsLogDeprecated,
	CmdUPHYStatsLogDeprecated, CmdCfgScan, CmdSetQoSParams, CmdGetQoSParams,
	CmdGetFullChannel, CmdSetSTAState, CmdSetBSSColor, CmdTurbo, CmdHealthCheck,
	CmdSetCTSSelfPS, CmdSetDTIMChannelChange, CmdGetDTIMChannel, CmdGetCurrentChannel,
	CmdCfgACIScan, CmdSetLongSleepConfig, CmdSetDutyCycle, CmdGetDutyCycle,
	CmdGetCapabilities, CmdInstallTWTAgreement, CmdRemoveTWTAgreement, CmdGetTSF,
	CmdMACAddr, CmdMPSWConfig, CmdStandbyMode, CmdDHCPOffload, CmdSetKeepAliveOffload,
	CmdGetSetGenericParam, CmdUAPSDConfig,
	CmdSetModulation, CmdGetRSSI, CmdSetIFS, CmdSetFEMSettings, CmdSetTXOP,
	CmdSetControlResponse, CmdSetPeriodicCal, CmdSetBeaconRSSIThreshold,
	CmdSetTxPktLifetimeUS, CmdSetPHYSMWatchdog,
	CmdAppStatsLog, CmdAppStatsReset, CmdMACStatsLog, CmdMACStatsReset,
	CmdUPHYStatsLog, CmdUPHYStatsReset,
	CmdTestStartSamplePlay, CmdTestStopSamplePlay, CmdTestSetResponseIndicate,
	CmdTestSetMACAckTimeout, CmdTestSetTransmissionRate, CmdTestSetTxScaler,
	CmdTestSetNDPProbeSupport, CmdTestForceAssert, CmdTestLNABypass,
	CmdTestSigFieldErrorEvent, CmdTestOTP, CmdSetAntenna, CmdTestSetMaxAMPDULength,
	CmdTestTDCPGDisable, CmdTestDumpHWKeys, CmdTestPHYDeaf, CmdTestTransmitCW,
	CmdTestOverridePAOnDelay, CmdTestSetFSG, CmdTestEnergyDetectionMode,
	CmdTestSetCapabilities, CmdTestTxPowerAdjust, CmdTestSetAGCGainCode, CmdTestGPIO,
	CmdSetSTAType, CmdSetEncMode, CmdSetListenInterval, CmdSetAMPDU, CmdSetRAWDeprecated,
	CmdCoredump, CmdSetS1GOpClass, CmdSendWakeActionFrame, CmdVendorIEConfig,
	CmdTWTSetConf, CmdGetAvailableChannels, CmdSetECSAS1GInfo, CmdGetHWVersion,
	CmdCACSet, CmdDriverSetDutyCycle, CmdMBSSIDInfo, CmdOCSReq, CmdMeshConfig,
	CmdMBCASetConf, CmdDynamicPeeringSetConf, CmdConfigRAW,
}

// KnownCommands returns a copy of every command id defined by the ABI.
func KnownCommands() []CommandID {
	ids := make([]CommandID, len(knownCommands))
	copy(ids, knownCommands)
	return ids
}

// IDRange identifies which partition of the id space a command belongs to.
type IDRange int

const (
	RangeUnassigned IDRange = iota
	RangeCore
	RangeTuning
	RangeStatistics
	RangeTest
	RangeDriver
)

// RangeOf classifies id into its partition of the 16-bit id space.
func RangeOf(id CommandID) IDRange {
	switch {
	case id >= 0x0001 && id <= 0x00FF:
		return RangeCore
	case id >= 0x1000 && id <= 0x1FFF:
		return RangeTuning
	case id >= 0x2000 && id <= 0x2FFF:
		return RangeStatistics
	case id >= 0x8000 && id <= 0x8FFF:
		return RangeTest
	case id >= 0xA000 && id <= 0xAFFF:
		return RangeDriver
	default:
		return RangeUnassigned
	}
}

func (r IDRange) String() string {
	switch r {
	case RangeCore:
		return "core"
	case RangeTuning:
		return "tuning"
	case RangeStatistics:
		return "statistics"
	case RangeTest:
		return "test"
	case RangeDriver:
		return "driver"
	default:
		return "unassigned"
	}
}

func (id CommandID) String() string {
	return fmt.Sprintf("0x%04X", uint16(id))
}

// Status is the signed return code carried in every confirm.
//
// Values mirror errno numbering so they are portable across host systems.
type Status int32

const (
	// StatusSuccess indicates the command was executed
	StatusSuccess Status = 0

	// StatusPermission indicates the operation is not permitted
	StatusPermission Status = -1

	// StatusNoDevice indicates there is no such device or address
	StatusNoDevice Status = -6

	// StatusNoMemory indicates the firmware ran out of memory
	StatusNoMemory Status = -12

	// StatusInvalidArgument indicates the firmware rejected an argument
	StatusInvalidArgument Status = -22
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPermission:
		return "permission denied"
	case StatusNoDevice:
		return "no such device"
	case StatusNoMemory:
		return "out of memory"
	case StatusInvalidArgument:
		return "invalid argument"
	default:
		return fmt.Sprintf("unknown status %d", int32(s))
	}
}

// Error lets a Status be used as an errors.Is target.
func (s Status) Error() string {
	return s.String()
}
