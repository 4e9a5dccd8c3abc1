package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LeventeLantos/reminderbot/internal/model"

	_ "modernc.org/sqlite"
)

// Times are stored as fixed-width UTC text so string comparison matches
// chronological order.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reminders (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id        TEXT NOT NULL,
    channel_id     TEXT NOT NULL,
    guild_id       TEXT,
    content        TEXT NOT NULL,
    event_time     TEXT NOT NULL,
    reminder_1day  INTEGER NOT NULL DEFAULT 0,
    reminder_30min INTEGER NOT NULL DEFAULT 0,
    created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reminders_user_event ON reminders (user_id, event_time);
CREATE INDEX IF NOT EXISTS idx_reminders_event ON reminders (event_time);
`

type SQLiteReminderRepo struct {
	db *sql.DB
}

// NewSQLiteReminderRepo opens (or creates) the database file at path and
// makes sure the schema exists.
func NewSQLiteReminderRepo(ctx context.Context, path string) (*SQLiteReminderRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("repo: open sqlite: %w", err)
	}

	// SQLite has a single writer; one pooled connection serializes every
	// statement issued by the dispatcher and the command paths.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("repo: %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: create schema: %w", err)
	}

	return &SQLiteReminderRepo{db: db}, nil
}

func (r *SQLiteReminderRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteReminderRepo) Insert(ctx context.Context, rem model.Reminder) (int64, error) {
	var guild sql.NullString
	if rem.GuildID != nil {
		guild = sql.NullString{String: *rem.GuildID, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (user_id, channel_id, guild_id, content, event_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rem.UserID, rem.ChannelID, guild, rem.Content, formatTime(rem.EventTime), formatTime(rem.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("repo: insert reminder: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("repo: insert reminder id: %w", err)
	}
	return id, nil
}

func (r *SQLiteReminderRepo) ListActive(ctx context.Context, userID string, now time.Time) ([]model.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, channel_id, guild_id, content, event_time,
		       reminder_1day, reminder_30min, created_at
		FROM reminders
		WHERE user_id = ? AND event_time > ?
		ORDER BY event_time ASC, id ASC
	`, userID, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("repo: list active: %w", err)
	}
	defer rows.Close()

	out, err := scanSQLiteReminders(rows)
	if err != nil {
		return nil, fmt.Errorf("repo: list active: %w", err)
	}
	return out, nil
}

func (r *SQLiteReminderRepo) DueForStage(ctx context.Context, stage model.Stage, now time.Time, lookahead time.Duration) ([]model.Reminder, error) {
	col, err := stageColumn(stage)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, channel_id, guild_id, content, event_time,
		       reminder_1day, reminder_30min, created_at
		FROM reminders
		WHERE `+col+` = 0 AND event_time > ? AND event_time <= ?
		ORDER BY event_time ASC, id ASC
	`, formatTime(now), formatTime(now.Add(lookahead)))
	if err != nil {
		return nil, fmt.Errorf("repo: due for stage %s: %w", stage, err)
	}
	defer rows.Close()

	out, err := scanSQLiteReminders(rows)
	if err != nil {
		return nil, fmt.Errorf("repo: due for stage %s: %w", stage, err)
	}
	return out, nil
}

func (r *SQLiteReminderRepo) MarkSent(ctx context.Context, id int64, stage model.Stage) error {
	col, err := stageColumn(stage)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE reminders SET `+col+` = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("repo: mark %d sent for %s: %w", id, stage, err)
	}
	return nil
}

func (r *SQLiteReminderRepo) DeleteExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE event_time < ?`, formatTime(now.Add(-retention)))
	if err != nil {
		return 0, fmt.Errorf("repo: delete expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("repo: delete expired rows: %w", err)
	}
	return n, nil
}

func scanSQLiteReminders(rows *sql.Rows) ([]model.Reminder, error) {
	var out []model.Reminder
	for rows.Next() {
		var (
			m         model.Reminder
			guild     sql.NullString
			eventTime string
			createdAt string
		)
		if err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.ChannelID,
			&guild,
			&m.Content,
			&eventTime,
			&m.Reminder1DaySent,
			&m.Reminder30MinSent,
			&createdAt,
		); err != nil {
			return nil, err
		}

		if guild.Valid {
			s := guild.String
			m.GuildID = &s
		}

		var err error
		if m.EventTime, err = parseTime(eventTime); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}

		out = append(out, m)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(sqliteTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
