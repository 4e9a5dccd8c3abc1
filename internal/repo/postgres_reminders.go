package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LeventeLantos/reminderbot/internal/model"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS reminders (
    id             BIGSERIAL PRIMARY KEY,
    user_id        TEXT NOT NULL,
    channel_id     TEXT NOT NULL,
    guild_id       TEXT,
    content        TEXT NOT NULL,
    event_time     TIMESTAMPTZ NOT NULL,
    reminder_1day  BOOLEAN NOT NULL DEFAULT FALSE,
    reminder_30min BOOLEAN NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reminders_user_event ON reminders (user_id, event_time);
CREATE INDEX IF NOT EXISTS idx_reminders_event ON reminders (event_time);
`

type PostgresReminderRepo struct {
	db *sql.DB
}

func NewPostgresReminderRepo(ctx context.Context, url string) (*PostgresReminderRepo, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("repo: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: create schema: %w", err)
	}
	return &PostgresReminderRepo{db: db}, nil
}

func (r *PostgresReminderRepo) Close() error {
	return r.db.Close()
}

func (r *PostgresReminderRepo) Insert(ctx context.Context, rem model.Reminder) (int64, error) {
	var guild sql.NullString
	if rem.GuildID != nil {
		guild = sql.NullString{String: *rem.GuildID, Valid: true}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO reminders (user_id, channel_id, guild_id, content, event_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, rem.UserID, rem.ChannelID, guild, rem.Content, rem.EventTime.UTC(), rem.CreatedAt.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("repo: insert reminder: %w", err)
	}
	return id, nil
}

func (r *PostgresReminderRepo) ListActive(ctx context.Context, userID string, now time.Time) ([]model.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, channel_id, guild_id, content, event_time,
		       reminder_1day, reminder_30min, created_at
		FROM reminders
		WHERE user_id = $1 AND event_time > $2
		ORDER BY event_time ASC, id ASC
	`, userID, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("repo: list active: %w", err)
	}
	defer rows.Close()

	out, err := scanPostgresReminders(rows)
	if err != nil {
		return nil, fmt.Errorf("repo: list active: %w", err)
	}
	return out, nil
}

func (r *PostgresReminderRepo) DueForStage(ctx context.Context, stage model.Stage, now time.Time, lookahead time.Duration) ([]model.Reminder, error) {
	col, err := stageColumn(stage)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, channel_id, guild_id, content, event_time,
		       reminder_1day, reminder_30min, created_at
		FROM reminders
		WHERE `+col+` = FALSE AND event_time > $1 AND event_time <= $2
		ORDER BY event_time ASC, id ASC
	`, now.UTC(), now.Add(lookahead).UTC())
	if err != nil {
		return nil, fmt.Errorf("repo: due for stage %s: %w", stage, err)
	}
	defer rows.Close()

	out, err := scanPostgresReminders(rows)
	if err != nil {
		return nil, fmt.Errorf("repo: due for stage %s: %w", stage, err)
	}
	return out, nil
}

func (r *PostgresReminderRepo) MarkSent(ctx context.Context, id int64, stage model.Stage) error {
	col, err := stageColumn(stage)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE reminders SET `+col+` = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("repo: mark %d sent for %s: %w", id, stage, err)
	}
	return nil
}

func (r *PostgresReminderRepo) DeleteExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE event_time < $1`, now.Add(-retention).UTC())
	if err != nil {
		return 0, fmt.Errorf("repo: delete expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("repo: delete expired rows: %w", err)
	}
	return n, nil
}

func scanPostgresReminders(rows *sql.Rows) ([]model.Reminder, error) {
	var out []model.Reminder
	for rows.Next() {
		var m model.Reminder
		var guild sql.NullString

		if err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.ChannelID,
			&guild,
			&m.Content,
			&m.EventTime,
			&m.Reminder1DaySent,
			&m.Reminder30MinSent,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}

		if guild.Valid {
			s := guild.String
			m.GuildID = &s
		}
		m.EventTime = m.EventTime.UTC()
		m.CreatedAt = m.CreatedAt.UTC()

		out = append(out, m)
	}
	return out, rows.Err()
}
