// Package grills holds the built-in registry of Pit Boss grill models and
// decodes the controller messages each model's control board produces.
//
// # Registry
//
// Model definitions are compiled into the binary from grills.json. Each model
// names a control board, its temperature dial bounds, and its hardware
// complement (meat probes, lights). Get looks up a single model and List
// enumerates them, optionally filtered by control board.
//
// # Message Layouts
//
// A control board pushes two kinds of hexadecimal messages: status (prefix
// FE0B) carrying the full controller state and temperatures (prefix FE0C)
// carrying only the temperature block. A layout lists the fixed-width fields
// after the prefix in wire order. ParseStatus and ParseTemperatures decode a
// message into a State map; a message with the wrong prefix or malformed hex
// decodes to nil rather than an error, since controllers interleave several
// message kinds on one channel.
//
// Temperatures arrive as three digit bytes (hundreds, tens, ones). The value
// 960 marks a disconnected probe; the field is then present in the State with
// a nil value. Boards that report in Celsius when isFahrenheit is zero have
// their readings converted from the wire's Fahrenheit encoding, except for
// fields the vendor excludes from conversion.
//
// # Commands
//
// Each board carries the MCU commands it accepts, addressed by slug. A
// command renders to the hexadecimal string expected by PB.SendMCUCommand,
// substituting numeric arguments into %d3 (three decimal digit bytes) and %h
// (one hex byte) placeholders.
package grills
