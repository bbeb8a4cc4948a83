package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrFailedToParsePostgresConfig is returned when the connection string is malformed.
	ErrFailedToParsePostgresConfig = errors.New("failed to parse postgres connection config")

	// ErrPostgresNotReady is returned when the database does not become
	// reachable within the configured retry budget.
	ErrPostgresNotReady = errors.New("postgres server is not ready")
)

// PostgresConfig configures the Postgres-backed notification storage.
type PostgresConfig struct {
	ConnectionString string        `env:"NOTIFY_PG_CONN_URL,required"`
	MaxOpenConns     int32         `env:"NOTIFY_PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns     int32         `env:"NOTIFY_PG_MAX_IDLE_CONNS" envDefault:"5"`
	RetryAttempts    int           `env:"NOTIFY_PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval    time.Duration `env:"NOTIFY_PG_RETRY_INTERVAL" envDefault:"5s"`
}

// ConnectPostgres establishes a pgx connection pool with retry, verifying the
// connection with a ping before handing the pool to the storage.
func ConnectPostgres(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParsePostgresConfig, err)
	}
	poolCfg.MaxConns = cfg.MaxOpenConns
	poolCfg.MinConns = cfg.MaxIdleConns

	for i := range cfg.RetryAttempts {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrPostgresNotReady, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, ErrPostgresNotReady
}

// PostgresStorage is a Postgres-backed implementation of the Storage
// interface on top of a pgx connection pool. The schema is applied with
// Migrate before first use.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed notification storage.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

const notifColumns = "id, user_id, type_id, category, priority, title, body, data, read, read_at, created_at, expires_at"

func (s *PostgresStorage) Create(ctx context.Context, notif Notification) error {
	if notif.ID == "" {
		return errors.New("notification ID is required")
	}
	if notif.UserID == "" {
		return errors.New("user ID is required")
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (`+notifColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		notif.ID, notif.UserID, notif.TypeID, string(notif.Category), int(notif.Priority),
		notif.Title, notif.Body, notif.Data, notif.Read, notif.ReadAt, notif.CreatedAt, notif.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("store notification %s: %w", notif.ID, err)
	}
	return nil
}

func (s *PostgresStorage) Get(ctx context.Context, userID, notifID string) (*Notification, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+notifColumns+` FROM notifications WHERE user_id = $1 AND id = $2`,
		userID, notifID,
	)

	notif, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get notification %s: %w", notifID, err)
	}
	return notif, nil
}

func (s *PostgresStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	query := `SELECT ` + notifColumns + ` FROM notifications
		WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > now())`
	args := []any{userID}

	if opts.OnlyUnread {
		query += ` AND NOT read`
	}
	if len(opts.Categories) > 0 {
		categories := make([]string, len(opts.Categories))
		for i, c := range opts.Categories {
			categories[i] = string(c)
		}
		args = append(args, categories)
		query += ` AND category = ANY($` + strconv.Itoa(len(args)) + `)`
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications for user %s: %w", userID, err)
	}
	defer rows.Close()

	notifs := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifs = append(notifs, *n)
	}
	return notifs, rows.Err()
}

func (s *PostgresStorage) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read = true, read_at = now()
		 WHERE user_id = $1 AND id = ANY($2) AND NOT read`,
		userID, notifIDs,
	)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE user_id = $1 AND id = ANY($2)`,
		userID, notifIDs,
	)
	if err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}

func (s *PostgresStorage) DeleteAll(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete notifications for user %s: %w", userID, err)
	}
	return nil
}

func (s *PostgresStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM notifications
		 WHERE user_id = $1 AND NOT read AND (expires_at IS NULL OR expires_at > now())`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread for user %s: %w", userID, err)
	}
	return count, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		n        Notification
		category string
		priority int
	)
	if err := row.Scan(
		&n.ID, &n.UserID, &n.TypeID, &category, &priority,
		&n.Title, &n.Body, &n.Data, &n.Read, &n.ReadAt, &n.CreatedAt, &n.ExpiresAt,
	); err != nil {
		return nil, err
	}
	n.Category = Category(category)
	n.Priority = Priority(priority)
	return &n, nil
}
