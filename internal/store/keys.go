package store

import "strings"

// Persisted object layout. Keys mirror the logical collections: accounts,
// per-supplier shards, one combined view, deals, one history log, per-recipient
// mailboxes, per-actor activity logs and sessions.
const (
	AccountPrefix      = "accounts/"
	ShardPrefix        = "stock/suppliers/"
	CombinedStockKey   = "stock/combined/all_suppliers"
	DealPrefix         = "deals/open/"
	DealHistoryKey     = "deals/history"
	NotificationPrefix = "notifications/"
	ActivityPrefix     = "activity/"
	SessionPrefix      = "sessions/"
)

// AccountKey returns the object key for one account.
func AccountKey(username string) string {
	return AccountPrefix + strings.ToLower(strings.TrimSpace(username))
}

// ShardKey returns the object key for one supplier's inventory shard.
func ShardKey(supplier string) string {
	return ShardPrefix + strings.ToLower(strings.TrimSpace(supplier))
}

// SupplierFromShardKey recovers the owning supplier identity from a shard key.
func SupplierFromShardKey(key string) string {
	return strings.TrimPrefix(key, ShardPrefix)
}

// DealKey returns the object key for one deal record.
func DealKey(dealID string) string {
	return DealPrefix + dealID
}

// NotificationKey returns the mailbox key for one recipient.
func NotificationKey(recipient string) string {
	return NotificationPrefix + strings.ToLower(strings.TrimSpace(recipient))
}

// ActivityKey returns the activity-log key for one actor.
func ActivityKey(actor string) string {
	return ActivityPrefix + strings.ToLower(strings.TrimSpace(actor))
}

// SessionKey returns the object key for one session, keyed by token hash.
func SessionKey(tokenHash string) string {
	return SessionPrefix + tokenHash
}
