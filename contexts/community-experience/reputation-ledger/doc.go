// Package reputationledger implements the reputation points sink inside the
// community-experience context.
//
// Points are credited by job settlement and dispute resolution, only ever
// grow, and are never read back by other modules. Every credit is journaled
// so the running totals can be audited.
package reputationledger
