package mysql

// INSERT IGNORE is the dedup mechanism: the unique keys on url and on
// fingerprint swallow duplicates atomically, RowsAffected tells inserted
// from already-known. `year` is backticked because MySQL treats it as a
// keyword.
const insertReviewSQL = `
INSERT IGNORE INTO reviews
  (source, kind, brand, model, generation, ` + "`year`" + `, url, title, content,
   author, rating, pros, cons, mileage, engine_volume, engine_power, fuel_type,
   transmission, body_type, drive_type, publish_date, views_count, likes_count,
   comments_count, ratings, parsed_at, fingerprint)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const existsByURLSQL = `SELECT EXISTS(SELECT 1 FROM reviews WHERE url = ?)`

const countReviewsSQL = `SELECT COUNT(*) FROM reviews`

const statsTotalsSQL = `
SELECT COUNT(*), COUNT(DISTINCT brand), COUNT(DISTINCT model) FROM reviews
`

const statsBySourceSQL = `SELECT source, COUNT(*) FROM reviews GROUP BY source`

const statsByKindSQL = `SELECT kind, COUNT(*) FROM reviews GROUP BY kind`

const listReviewsSQL = `
SELECT
  id, source, kind, brand, model, generation, ` + "`year`" + `, url, title,
  content, author, rating, pros, cons, mileage, engine_volume, engine_power,
  fuel_type, transmission, body_type, drive_type, publish_date, views_count,
  likes_count, comments_count, ratings, parsed_at, fingerprint
FROM reviews
`

const listReviewsSuffixSQL = `
ORDER BY parsed_at DESC, id DESC
LIMIT ?`

const insertMissSQL = `
INSERT INTO fetch_misses (url, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  http_status = VALUES(http_status),
  reason      = VALUES(reason),
  seen_at     = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// SOURCE QUEUE
// -----------------------------------------------------------------------------

const seedQueuePrefix = `
INSERT IGNORE INTO sources_queue (brand, model, source, priority)
VALUES `

// RAND() spreads concurrent collectors across brands instead of hammering
// one portal section in order.
const nextPendingSQL = `
SELECT id, brand, model, source FROM sources_queue
WHERE status = 'pending'
ORDER BY priority DESC, RAND()
LIMIT 1
`

const claimPendingSQL = `
UPDATE sources_queue
SET status = 'processing', last_parsed_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = 'pending'
`

const completeTaskSQL = `
UPDATE sources_queue
SET status = 'completed', pages_done = ?, reviews_found = ?, last_parsed_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const failTaskSQL = `
UPDATE sources_queue
SET status = 'failed', fail_reason = ?, last_parsed_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const queueStatsSQL = `SELECT status, COUNT(*) FROM sources_queue GROUP BY status`
