package store

const schema = `
-- One row per card, mirroring the JSON record layout. Timestamps are stored
-- as RFC 3339 text so rows sort chronologically, and the review history is a
-- JSON array of booleans.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    tier TEXT NOT NULL,
    category TEXT,
    owner TEXT,
    created_at TEXT NOT NULL,
    last_reviewed_at TEXT,
    next_review_at TEXT NOT NULL,
    review_count INTEGER NOT NULL DEFAULT 0,
    review_history TEXT,
    last_mandatory_review_at TEXT,
    success_streak INTEGER NOT NULL DEFAULT 0,
    position INTEGER NOT NULL
);
`
