// Package models defines the core domain models for the deudacero balance
// engine.
//
// # Model Groups
//
// Raw side (what the backend gives us):
//   - GroupSummary, GroupDetail and friends in payload.go mirror the loose
//     REST payloads. They are unmarshalled as-is and never used past the
//     normalization boundary.
//   - DebtEdge is the normalized atomic obligation: debtor owes creditor an
//     amount within one group.
//   - GroupRecords is one group's normalized pull: identity, member names and
//     debt edges. A member's set of GroupRecords is replaced wholesale on
//     every successful refresh.
//
// Computed side (what the UI consumes):
//   - SettlementEntry is one proposed transfer that helps zero out balances.
//   - GroupBreakdown and PersonBreakdown re-aggregate settlement entries by
//     group and by counterpart member, scoped to the viewing member.
//   - Totals sums the group breakdowns into a single net position.
//
// Computed models are value snapshots rebuilt on every refresh or filter
// change; they are never persisted.
//
// # Design Principles
//
//  1. Raw and computed models never mix: handlers see computed models only.
//  2. Amounts are float64 rounded to 2 decimals at every mutation site;
//     anything at or below the engine epsilon (0.009) is treated as zero.
//  3. Member and group ids are int64, matching the backend's numeric ids.
package models
