package archive

// Schema contains the SQL statements to create the archive schema.
const Schema = `
-- Terminal transfer states evicted from memory
CREATE TABLE IF NOT EXISTS transfers (
    request_id   TEXT PRIMARY KEY,
    source       TEXT NOT NULL,
    destination  TEXT NOT NULL,
    status       TEXT NOT NULL,
    size         INTEGER NOT NULL,
    submitted_at DATETIME NOT NULL,
    finished_at  DATETIME,
    state        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transfers_finished ON transfers(finished_at);
CREATE INDEX IF NOT EXISTS idx_transfers_status ON transfers(status);
`

// defaultListLimit caps List when no limit is given.
const defaultListLimit = 100
