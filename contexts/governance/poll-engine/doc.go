// Package pollengine implements stake-weighted polls: the poll registry, the
// vote tally and reward claims.
//
// A voter's weight is the ledger balance reported for the voter when the
// ballot is processed. Polls with options "v1" and "v2" can be resolved to a
// winner once their window has closed; winners split the poll budget in
// proportion to their weight. Job disputes use the same polls through the
// poll.creation.requested and poll.winner.requested topics.
package pollengine
