package repository

const schemaSQL = `
CREATE TABLE IF NOT EXISTS recommendations (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	type             TEXT NOT NULL,
	title            TEXT NOT NULL,
	description      TEXT,
	rationale        TEXT,
	action_items     TEXT,
	expected_benefit REAL,
	confidence       INTEGER,
	priority         TEXT NOT NULL,
	source           TEXT,
	created_at       TEXT NOT NULL,
	expires_at       TEXT
);

CREATE INDEX IF NOT EXISTS idx_recommendations_user ON recommendations(user_id, expires_at);
`
