// Package wire defines the heartbeat datagram format and the command
// vocabulary carried inside it.
//
// Every datagram, in either direction, is an ASCII body followed by the
// delimiter ">>>" and a decimal sequence index:
//
//	ON>>>17
//	Hello client 3.9>>>0
//
// Each direction keeps its own sequence counter starting at 0. The body is
// split from the index at the rightmost delimiter, so a body may itself
// contain ">>>".
//
// # Commands
//
// Inbound bodies are parsed once into a tagged Command:
//
//	REQ               resend request (never echoed)
//	ON / OFF          all channels on / off
//	END               shutdown
//	ILED_ON<n>        channel n on  (1-2 digits)
//	ILED_OFF<n>       channel n off (1-2 digits)
//	HLED_ON<h><p>     header h pin p on  (one digit each)
//	HLED_OFF<h><p>    header h pin p off (one digit each)
//
// Any other body parses as KindIgnored; it is still echoed back in the
// next heartbeat.
package wire
