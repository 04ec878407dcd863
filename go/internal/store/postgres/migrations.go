package postgres

// schema is applied by Migrate. Times are epoch milliseconds, durations whole
// seconds. Ticket entries stay embedded in clock_events as JSONB.
const schema = `
CREATE TABLE IF NOT EXISTS tickets (
    id               UUID PRIMARY KEY,
    team_id          UUID NOT NULL,
    title            TEXT NOT NULL,
    accumulated_time BIGINT NOT NULL DEFAULT 0,
    start_timestamp  BIGINT,
    running_by       UUID
);

CREATE INDEX IF NOT EXISTS tickets_team_idx ON tickets (team_id);

CREATE UNIQUE INDEX IF NOT EXISTS tickets_one_running_per_user
    ON tickets (running_by) WHERE start_timestamp IS NOT NULL;

CREATE TABLE IF NOT EXISTS clock_events (
    id               UUID PRIMARY KEY,
    user_id          UUID NOT NULL,
    team_id          UUID NOT NULL,
    start_timestamp  BIGINT NOT NULL,
    end_time         BIGINT,
    accumulated_time BIGINT NOT NULL DEFAULT 0,
    tickets          JSONB NOT NULL DEFAULT '[]'::jsonb,
    edited_at        BIGINT,
    edited_by        UUID
);

CREATE INDEX IF NOT EXISTS clock_events_user_start_idx ON clock_events (user_id, start_timestamp);

CREATE UNIQUE INDEX IF NOT EXISTS clock_events_one_open_per_key
    ON clock_events (user_id, team_id) WHERE end_time IS NULL;

CREATE OR REPLACE FUNCTION notify_clock_event_change() RETURNS trigger AS $$
BEGIN
    PERFORM pg_notify('clock_event_changes', NEW.id::text);
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS clock_events_notify ON clock_events;
CREATE TRIGGER clock_events_notify
    AFTER INSERT OR UPDATE ON clock_events
    FOR EACH ROW EXECUTE FUNCTION notify_clock_event_change();

CREATE TABLE IF NOT EXISTS notification_outbox (
    id             UUID PRIMARY KEY,
    event_type     TEXT NOT NULL,
    recipient_kind TEXT NOT NULL,
    recipient_id   UUID NOT NULL,
    title          TEXT NOT NULL,
    body           TEXT NOT NULL,
    data           JSONB,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    sent_at        TIMESTAMPTZ
);

ALTER TABLE notification_outbox ADD COLUMN IF NOT EXISTS attempts INT NOT NULL DEFAULT 0;
ALTER TABLE notification_outbox ADD COLUMN IF NOT EXISTS next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now();
ALTER TABLE notification_outbox ADD COLUMN IF NOT EXISTS last_error TEXT;

DROP INDEX IF EXISTS notification_outbox_unsent_idx;
CREATE INDEX IF NOT EXISTS notification_outbox_due_idx
    ON notification_outbox (attempts, created_at) WHERE sent_at IS NULL;

CREATE OR REPLACE FUNCTION notify_notification_outbox() RETURNS trigger AS $$
BEGIN
    PERFORM pg_notify('notification_outbox_events', NEW.id::text);
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS notification_outbox_notify ON notification_outbox;
CREATE TRIGGER notification_outbox_notify
    AFTER INSERT ON notification_outbox
    FOR EACH ROW EXECUTE FUNCTION notify_notification_outbox();
`
