// Package domain defines the persisted record types of the reputation
// ledger and the validation rules transitions apply to them.
//
// Every record is stored as a JSON value under a deterministic string key.
// Timestamps are nullable epoch-milliseconds: they stay null until the
// network-agreed clock value has been committed.
package domain
