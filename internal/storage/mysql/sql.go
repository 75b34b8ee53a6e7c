package mysql

// -----------------------------------------------------------------------------
// INVENTORY
// -----------------------------------------------------------------------------

const upsertInventorySQL = `
INSERT INTO room_inventory
  (tenant_id, room_id, date, available, blocked, out_of_order, maintenance, reserved,
   closed_to_arrival, closed_to_departure, block_reason, rate_override, min_stay, max_stay,
   is_bookable, active, sync_pending, synced, sync_error, last_sync_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  available           = VALUES(available),
  blocked             = VALUES(blocked),
  out_of_order        = VALUES(out_of_order),
  maintenance         = VALUES(maintenance),
  reserved            = VALUES(reserved),
  closed_to_arrival   = VALUES(closed_to_arrival),
  closed_to_departure = VALUES(closed_to_departure),
  block_reason        = VALUES(block_reason),
  rate_override       = VALUES(rate_override),
  min_stay            = VALUES(min_stay),
  max_stay            = VALUES(max_stay),
  is_bookable         = VALUES(is_bookable),
  active              = VALUES(active),
  sync_pending        = VALUES(sync_pending),
  synced              = VALUES(synced),
  sync_error          = VALUES(sync_error),
  last_sync_at        = VALUES(last_sync_at),
  updated_at          = CURRENT_TIMESTAMP
`

// Multi-row form shares the column list above; the repo appends value tuples.
const insertInventoryPrefix = `INSERT INTO room_inventory
  (tenant_id, room_id, date, available, blocked, out_of_order, maintenance, reserved,
   closed_to_arrival, closed_to_departure, block_reason, rate_override, min_stay, max_stay,
   is_bookable, active, sync_pending, synced, sync_error, last_sync_at)
VALUES `

const insertInventoryOnDup = ` ON DUPLICATE KEY UPDATE
  available           = VALUES(available),
  blocked             = VALUES(blocked),
  out_of_order        = VALUES(out_of_order),
  maintenance         = VALUES(maintenance),
  reserved            = VALUES(reserved),
  closed_to_arrival   = VALUES(closed_to_arrival),
  closed_to_departure = VALUES(closed_to_departure),
  block_reason        = VALUES(block_reason),
  rate_override       = VALUES(rate_override),
  min_stay            = VALUES(min_stay),
  max_stay            = VALUES(max_stay),
  is_bookable         = VALUES(is_bookable),
  active              = VALUES(active),
  sync_pending        = VALUES(sync_pending),
  synced              = VALUES(synced),
  sync_error          = VALUES(sync_error),
  last_sync_at        = VALUES(last_sync_at),
  updated_at          = CURRENT_TIMESTAMP`

const selectInventoryCols = `
  id, tenant_id, room_id, date, available, blocked, out_of_order, maintenance, reserved,
  closed_to_arrival, closed_to_departure, block_reason, rate_override, min_stay, max_stay,
  is_bookable, active, sync_pending, synced, sync_error, last_sync_at, created_at, updated_at`

const getInventorySQL = `SELECT` + selectInventoryCols + `
FROM room_inventory WHERE room_id = ? AND date = ?`

const getInventoryRangeSQL = `SELECT` + selectInventoryCols + `
FROM room_inventory WHERE room_id = ? AND date BETWEEN ? AND ?
ORDER BY date`

// Pending work selection favors near dates first and is index-friendly for
// bounded polling on (sync_pending, sync_error).
const listPendingSQL = `SELECT` + selectInventoryCols + `
FROM room_inventory i
WHERE i.active = 1 AND i.sync_pending = 1 AND i.sync_error IS NULL
  AND (? IS NULL OR i.room_id IN (SELECT r.id FROM rooms r WHERE r.property_id = ?))
ORDER BY i.date, i.created_at
LIMIT ?`

const listErroredSQL = `SELECT` + selectInventoryCols + `
FROM room_inventory i
WHERE i.active = 1 AND i.sync_pending = 1 AND i.sync_error IS NOT NULL
  AND (? IS NULL OR i.room_id IN (SELECT r.id FROM rooms r WHERE r.property_id = ?))
ORDER BY i.date, i.created_at
LIMIT ?`

const listForPropertySQL = `SELECT` + selectInventoryCols + `
FROM room_inventory i
JOIN rooms r ON r.id = i.room_id
WHERE i.active = 1 AND r.property_id = ? AND i.date BETWEEN ? AND ?
ORDER BY i.date, i.created_at
LIMIT ?`

// One multi-row update per batch, not one transaction per record.
const markSyncedPrefix = `UPDATE room_inventory
SET synced = 1, sync_pending = 0, sync_error = NULL, last_sync_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE id IN `

const markSyncErrorSQL = `UPDATE room_inventory
SET synced = 0, sync_pending = 1, sync_error = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

const disableForRoomSQL = `UPDATE room_inventory
SET active = 0, sync_pending = 1, sync_error = NULL, updated_at = CURRENT_TIMESTAMP
WHERE room_id = ? AND active = 1`

const countInventorySQL = `SELECT COUNT(*) FROM room_inventory i
WHERE i.active = 1 AND %s
  AND (? IS NULL OR i.room_id IN (SELECT r.id FROM rooms r WHERE r.property_id = ?))`

const occupancyOnSQL = `SELECT
  COALESCE(SUM(CASE WHEN i.reserved = 1 THEN 1 ELSE 0 END), 0) AS occupied,
  COUNT(r.id) AS total
FROM rooms r
LEFT JOIN room_inventory i ON i.room_id = r.id AND i.date = ? AND i.active = 1
WHERE r.property_id = ? AND r.active = 1
  AND (? IS NULL OR r.room_type_id = ?)`

// -----------------------------------------------------------------------------
// ROOMS (read-only slice of the out-of-scope CRUD schema)
// -----------------------------------------------------------------------------

const getRoomSQL = `SELECT id, tenant_id, property_id, room_type_id, name, base_rate, active
FROM rooms WHERE id = ?`

// -----------------------------------------------------------------------------
// MAPPINGS
// -----------------------------------------------------------------------------

const insertMappingSQL = `
INSERT INTO room_mappings
  (tenant_id, config_id, room_id, external_room_id, external_room_name, external_room_type,
   sync_availability, sync_rates, sync_restrictions, min_occupancy, max_occupancy,
   rate_multiplier, rate_override, sync_pending, deletion_pending, active)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectMappingCols = `
  id, tenant_id, config_id, room_id, external_room_id, external_room_name, external_room_type,
  sync_availability, sync_rates, sync_restrictions, min_occupancy, max_occupancy,
  rate_multiplier, rate_override, availability_synced_at, rates_synced_at, restrictions_synced_at,
  sync_error, sync_error_count, sync_pending, deletion_pending, active, created_at, updated_at`

const getMappingByRoomSQL = `SELECT` + selectMappingCols + `
FROM room_mappings WHERE config_id = ? AND room_id = ? AND active = 1`

const getMappingByExternalSQL = `SELECT` + selectMappingCols + `
FROM room_mappings WHERE config_id = ? AND external_room_id = ? AND active = 1`

const listReadyMappingsSQL = `SELECT` + selectMappingCols + `
FROM room_mappings
WHERE config_id = ? AND active = 1 AND deletion_pending = 0
  AND (sync_availability = 1 OR sync_rates = 1 OR sync_restrictions = 1)
ORDER BY room_id`

const listDeletionPendingSQL = `SELECT` + selectMappingCols + `
FROM room_mappings
WHERE config_id = ? AND active = 1 AND deletion_pending = 1
ORDER BY updated_at
LIMIT ?`

// Never hard-deleted: the outward removal still has to be pushed.
const markDeletionPendingSQL = `UPDATE room_mappings
SET deletion_pending = 1, sync_pending = 1, updated_at = CURRENT_TIMESTAMP
WHERE room_id = ? AND active = 1 AND deletion_pending = 0`

// Orphans: active maps whose room is gone or inactive.
const listOrphanMappingsSQL = `SELECT` + selectMappingCols + `
FROM room_mappings m
WHERE m.tenant_id = ? AND m.active = 1 AND m.deletion_pending = 0
  AND NOT EXISTS (SELECT 1 FROM rooms r WHERE r.id = m.room_id AND r.active = 1)`

const recordMappingErrorSQL = `UPDATE room_mappings
SET sync_error = ?, sync_error_count = sync_error_count + 1, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

const deactivateMappingSQL = `UPDATE room_mappings
SET active = 0, sync_pending = 0, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

// -----------------------------------------------------------------------------
// RESTRICTIONS
// -----------------------------------------------------------------------------

const insertRestrictionSQL = `
INSERT INTO restrictions
  (tenant_id, property_id, room_id, room_type_id, start_date, end_date, weekdays,
   type, value, priority, source, active, sync_pending)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectRestrictionCols = `
  id, tenant_id, property_id, room_id, room_type_id, start_date, end_date, weekdays,
  type, value, priority, source, active, sync_pending, synced, sync_error, last_sync_at,
  created_at, updated_at`

const listOverlappingRestrictionsSQL = `SELECT` + selectRestrictionCols + `
FROM restrictions
WHERE property_id = ? AND active = 1
  AND start_date <= ? AND end_date >= ?
  AND (room_id IS NULL OR room_id = ?)
  AND (room_type_id IS NULL OR room_type_id = ?)
ORDER BY id`

// Deactivated rows stay in the feed until their lifted values are pushed.
const listPendingRestrictionsSQL = `SELECT` + selectRestrictionCols + `
FROM restrictions
WHERE sync_pending = 1
  AND (? IS NULL OR property_id = ?)
ORDER BY start_date
LIMIT ?`

const markRestrictionsSyncedPrefix = `UPDATE restrictions
SET synced = 1, sync_pending = 0, sync_error = NULL, last_sync_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE id IN `

// Soft-deactivated, never physically removed while audit-referenced.
const deactivateRestrictionSQL = `UPDATE restrictions
SET active = 0, sync_pending = 1, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

// -----------------------------------------------------------------------------
// RATE PLANS
// -----------------------------------------------------------------------------

const upsertRatePlanSQL = `
INSERT INTO rate_plans
  (id, tenant_id, property_id, room_type_id, name, is_default, active,
   rate_single, rate_double, rate_triple, rate_quad, extra_person_rate,
   min_stay, max_stay, min_advance_days, max_advance_days,
   valid_from, valid_to, weekdays, channels,
   parent_plan_id, derivation_type, derivation_value,
   yield_enabled, yield_rules, cancellation_policy, payment_policy,
   closed_arrival_dates, closed_departure_dates)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name                   = VALUES(name),
  is_default             = VALUES(is_default),
  active                 = VALUES(active),
  rate_single            = VALUES(rate_single),
  rate_double            = VALUES(rate_double),
  rate_triple            = VALUES(rate_triple),
  rate_quad              = VALUES(rate_quad),
  extra_person_rate      = VALUES(extra_person_rate),
  min_stay               = VALUES(min_stay),
  max_stay               = VALUES(max_stay),
  min_advance_days       = VALUES(min_advance_days),
  max_advance_days       = VALUES(max_advance_days),
  valid_from             = VALUES(valid_from),
  valid_to               = VALUES(valid_to),
  weekdays               = VALUES(weekdays),
  channels               = VALUES(channels),
  parent_plan_id         = VALUES(parent_plan_id),
  derivation_type        = VALUES(derivation_type),
  derivation_value       = VALUES(derivation_value),
  yield_enabled          = VALUES(yield_enabled),
  yield_rules            = VALUES(yield_rules),
  cancellation_policy    = VALUES(cancellation_policy),
  payment_policy         = VALUES(payment_policy),
  closed_arrival_dates   = VALUES(closed_arrival_dates),
  closed_departure_dates = VALUES(closed_departure_dates),
  updated_at             = CURRENT_TIMESTAMP
`

const selectRatePlanCols = `
  id, tenant_id, property_id, room_type_id, name, is_default, active,
  rate_single, rate_double, rate_triple, rate_quad, extra_person_rate,
  min_stay, max_stay, min_advance_days, max_advance_days,
  valid_from, valid_to, weekdays, channels,
  parent_plan_id, derivation_type, derivation_value,
  yield_enabled, yield_rules, cancellation_policy, payment_policy,
  closed_arrival_dates, closed_departure_dates, created_at, updated_at`

const getRatePlanSQL = `SELECT` + selectRatePlanCols + `
FROM rate_plans WHERE id = ?`

// At most one default plan per scope; prefer the narrow room-type scope.
const defaultRatePlanSQL = `SELECT` + selectRatePlanCols + `
FROM rate_plans
WHERE property_id = ? AND is_default = 1 AND active = 1
  AND (room_type_id = ? OR room_type_id IS NULL)
ORDER BY room_type_id IS NULL
LIMIT 1`

const clearDefaultRatePlanSQL = `UPDATE rate_plans
SET is_default = 0, updated_at = CURRENT_TIMESTAMP
WHERE tenant_id = ? AND property_id = ? AND is_default = 1 AND id <> ?
  AND ((room_type_id IS NULL AND ? IS NULL) OR room_type_id = ?)`

// -----------------------------------------------------------------------------
// CHANNEL CONFIGS & SYNC LOG
// -----------------------------------------------------------------------------

const selectConfigCols = `
  id, tenant_id, property_id, name, base_url, api_key, connection_id,
  active, connected, error_threshold, pending_threshold, created_at, updated_at`

const listActiveConfigsSQL = `SELECT` + selectConfigCols + `
FROM channel_configs WHERE active = 1 ORDER BY id`

const activeConfigForPropertySQL = `SELECT` + selectConfigCols + `
FROM channel_configs WHERE property_id = ? AND active = 1 LIMIT 1`

const markConfigConnectedSQL = `UPDATE channel_configs
SET connected = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

const insertSyncLogSQL = `
INSERT INTO sync_logs
  (run_id, config_id, kind, status, processed, succeeded, failed, error, started_at, duration_ms)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectSyncLogCols = `
  id, run_id, config_id, kind, status, processed, succeeded, failed, error, started_at, duration_ms`

const getSyncLogByRunSQL = `SELECT` + selectSyncLogCols + `
FROM sync_logs WHERE run_id = ? ORDER BY id DESC LIMIT 1`

const listSyncLogsSinceSQL = `SELECT` + selectSyncLogCols + `
FROM sync_logs WHERE config_id = ? AND started_at >= ?
ORDER BY started_at DESC`

const deleteSyncLogsBeforeSQL = `DELETE FROM sync_logs WHERE started_at < ?`
