// Package emulator simulates the command handling of the chip firmware.
//
// # Overview
//
// A Chip decodes every request frame with the command registry, applies
// it to a small state model and answers with a confirm frame. The model
// keeps the channel, the EDCA parameters of four queues, the firmware
// version and a register file for the soft reset sequence.
//
// # Basic Usage
//
// Back a loopback transport with a Chip:
//
//	chip := emulator.New(emulator.WithVersion("rel_1_12_4"))
//	d := dispatch.New(transport.NewLoopback(chip))
//
// Or serve it to remote transports:
//
//	http.Handle("/morse", transport.NewServer(chip))
//
// # Test Hooks
//
// Tests drive and inspect a Chip through:
//   - InjectStatus: fail a command id with a status until cleared
//   - Last: the most recent decoded request of a command
//   - Handled and Boots: frames answered and resets seen
//
//	chip.InjectStatus(protocol.CmdSetQoSParams, protocol.StatusInvalidArgument)
//	if req, ok := chip.Last(command.NameSetQoS); ok {
//	    fmt.Printf("%+v\n", req)
//	}
package emulator
