package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/selimdilsadercan/iklim-chat-api/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// postgresStore persists messages directly in Postgres, for
// self-hosted deployments without the hosted backend.
type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a Postgres-backed Store and optionally runs
// pending migrations.
func NewPostgresStore(dsn string, runMigrations bool) (Store, error) {
	if dsn == "" {
		return nil, errors.New("database URL is required")
	}

	db := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if runMigrations {
		source := &migrate.EmbedFileSystemMigrationSource{
			FileSystem: migrationsFS,
			Root:       "migrations",
		}
		if _, err := migrate.Exec(db, "postgres", source, migrate.Up); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return &postgresStore{db: db}, nil
}

func (s *postgresStore) LoadHistory(ctx context.Context, userID string, personaIndex int) ([]model.Message, error) {
	const query = `
		SELECT id, user_id, persona_index, text, is_user, created_at
		FROM chat_messages
		WHERE user_id = $1 AND persona_index = $2
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, personaIndex)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.PersonaIndex, &m.Text, &m.IsUser, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return msgs, nil
}

func (s *postgresStore) AppendMessage(ctx context.Context, userID string, personaIndex int, text string, isUser bool) (model.Message, error) {
	const query = `
		INSERT INTO chat_messages (user_id, persona_index, text, is_user)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	m := model.Message{
		UserID:       userID,
		PersonaIndex: personaIndex,
		Text:         text,
		IsUser:       isUser,
	}
	err := s.db.QueryRowContext(ctx, query, userID, personaIndex, text, isUser).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return model.Message{}, fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	return m, nil
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}
