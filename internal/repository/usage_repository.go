package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool the repository needs
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type UsageRepository struct {
	db  Querier
	now func() time.Time
}

type DailyUsage struct {
	Channel          string    `json:"channel"`
	Date             time.Time `json:"date"`
	MessagesSent     int       `json:"messages_sent"`
	MessagesReceived int       `json:"messages_received"`
}

// UsageSummary aggregates a usage history per channel
type UsageSummary struct {
	Days     int                   `json:"days"`
	Channels map[string]ChannelSum `json:"channels"`
	Total    ChannelSum            `json:"total"`
}

type ChannelSum struct {
	Sent     int `json:"sent"`
	Received int `json:"received"`
}

func NewUsageRepository(db Querier) *UsageRepository {
	return &UsageRepository{db: db, now: time.Now}
}

func (r *UsageRepository) today() string {
	return r.now().UTC().Format("2006-01-02")
}

// IncrementSent increments messages_sent for today
func (r *UsageRepository) IncrementSent(ctx context.Context, channel string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_usage (channel, date, messages_sent, messages_received)
		VALUES ($1, $2, 1, 0)
		ON CONFLICT (channel, date)
		DO UPDATE SET messages_sent = message_usage.messages_sent + 1
	`, channel, r.today())
	return err
}

// IncrementReceived increments messages_received for today
func (r *UsageRepository) IncrementReceived(ctx context.Context, channel string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_usage (channel, date, messages_sent, messages_received)
		VALUES ($1, $2, 0, 1)
		ON CONFLICT (channel, date)
		DO UPDATE SET messages_received = message_usage.messages_received + 1
	`, channel, r.today())
	return err
}

// GetTodayUsage returns today's counters for channel
func (r *UsageRepository) GetTodayUsage(ctx context.Context, channel string) (sent, received int, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT messages_sent, messages_received
		FROM message_usage WHERE channel = $1 AND date = $2
	`, channel, r.today()).Scan(&sent, &received)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, nil // No record means 0 usage
	}
	return sent, received, err
}

// GetUsageHistory returns the last days of usage for every channel
func (r *UsageRepository) GetUsageHistory(ctx context.Context, days int) ([]DailyUsage, error) {
	startDate := r.now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
	rows, err := r.db.Query(ctx, `
		SELECT channel, date, messages_sent, messages_received
		FROM message_usage
		WHERE date >= $1
		ORDER BY date ASC, channel ASC
	`, startDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := []DailyUsage{}
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Channel, &u.Date, &u.MessagesSent, &u.MessagesReceived); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

// Summarize folds a history into per-channel and overall totals
func Summarize(days int, history []DailyUsage) UsageSummary {
	s := UsageSummary{Days: days, Channels: map[string]ChannelSum{}}
	for _, u := range history {
		c := s.Channels[u.Channel]
		c.Sent += u.MessagesSent
		c.Received += u.MessagesReceived
		s.Channels[u.Channel] = c

		s.Total.Sent += u.MessagesSent
		s.Total.Received += u.MessagesReceived
	}
	return s
}
