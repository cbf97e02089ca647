package hw

import "errors"

// pfpState is the PFP serial handshake's unload-prompt detection machine,
// grounded on gspc/hw/pfp.py's _get_unload_prompt: probe with a bare
// carriage return, then up to five "Q\r" attempts, then a final "U\r" to
// reach the UNLOAD> prompt. Encoded as an explicit enum with a bounded
// transition counter rather than the original's ad hoc retry loop.
type pfpState int

const (
	pfpStateProbe pfpState = iota
	pfpStateQuit
	pfpStateUnload
	pfpStateReady
	pfpStateFailed
)

const maxQuitAttempts = 5

// ErrPFPUnreachable is returned when the unload prompt could not be
// reached within the bounded number of attempts — a protocol-level fault
// the PFP pressure guard turns into a cycle abort.
var ErrPFPUnreachable = errors.New("hw: pfp unload prompt unreachable")

// pfpHandshake drives the detection state machine to completion against a
// respond function standing in for the serial round-trip (the simulated
// backend always succeeds; a future hardware backend would pass the real
// serial transaction here).
func pfpHandshake(respond func(cmd string) (prompt string, ok bool)) (pfpState, error) {
	state := pfpStateProbe
	attempts := 0
	for {
		switch state {
		case pfpStateProbe:
			if prompt, ok := respond(" \r"); ok && prompt == "UNLOAD>" {
				return pfpStateReady, nil
			}
			state = pfpStateQuit
		case pfpStateQuit:
			if attempts >= maxQuitAttempts {
				state = pfpStateUnload
				continue
			}
			attempts++
			if prompt, ok := respond("Q\r"); ok && prompt == "UNLOAD>" {
				return pfpStateReady, nil
			}
		case pfpStateUnload:
			if prompt, ok := respond("U\r"); ok && prompt == "UNLOAD>" {
				return pfpStateReady, nil
			}
			state = pfpStateFailed
		case pfpStateFailed:
			return state, ErrPFPUnreachable
		}
	}
}
