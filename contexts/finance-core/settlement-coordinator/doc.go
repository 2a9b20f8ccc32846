// Package settlementcoordinator moves value to recipients through the
// external ledger.
//
// A payout is a two step chain: register_recipient, then transfer_funds.
// Both steps are asynchronous ledger calls. The settlement record is
// committed before each call is issued and the reply is applied by
// HandleLedgerResult. A failed step is terminal: there is no retry and no
// reversal of work already done by the caller.
package settlementcoordinator
