package postgres

// schema contains the SQL statements to set up the database. Statements are
// idempotent and run on every Migrate call.
const schema = `
CREATE TABLE IF NOT EXISTS settle_groups (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    currency    TEXT NOT NULL DEFAULT '',
    admin_id    TEXT NOT NULL DEFAULT '',
    members     JSONB NOT NULL DEFAULT '[]',
    status      TEXT NOT NULL DEFAULT 'active',
    closed_at   TIMESTAMPTZ,
    metadata    JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_settle_groups_status ON settle_groups (status);

CREATE TABLE IF NOT EXISTS settle_expenses (
    id          TEXT PRIMARY KEY,
    group_id    TEXT NOT NULL,
    payer_id    TEXT NOT NULL DEFAULT '',
    amount      BIGINT NOT NULL,
    currency    TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    shares      JSONB NOT NULL DEFAULT '[]',
    settled     BOOLEAN NOT NULL DEFAULT FALSE,
    settled_at  TIMESTAMPTZ,
    metadata    JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_settle_expenses_group ON settle_expenses (group_id, created_at);
CREATE INDEX IF NOT EXISTS idx_settle_expenses_unsettled ON settle_expenses (group_id, settled);

CREATE TABLE IF NOT EXISTS settle_runs (
    id          TEXT PRIMARY KEY,
    group_id    TEXT NOT NULL,
    plan_id     TEXT NOT NULL,
    outcome     TEXT NOT NULL DEFAULT '',
    planned     INT NOT NULL DEFAULT 0,
    confirmed   INT NOT NULL DEFAULT 0,
    failed      INT NOT NULL DEFAULT 0,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_settle_runs_group ON settle_runs (group_id, started_at);
`
