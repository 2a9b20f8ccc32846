// Package jobescrow implements the escrow state machine for freelance jobs.
//
// A job moves open -> claimed -> active -> completed|disputed -> ended. The
// creator ends a completed job, which pays the counterparty and the protocol
// owner. The protocol owner settles a disputed job through a stake-weighted
// poll: the poll is created and resolved asynchronously by the poll engine
// and the winner is paid when the resolution reply arrives. A job ends at
// most once.
package jobescrow
