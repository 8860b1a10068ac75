// Package model defines the shared data types of the purchase engine.
//
// Conventions:
//   - Amounts: integer yen, always a positive multiple of 100
//   - Dates: YYYYMMDD strings (terminal-local calendar dates)
//   - IDs: uuid.UUID for ledger records, opaque strings for receipts
package model
