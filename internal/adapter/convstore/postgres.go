package convstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"ragserver/internal/domain"
	"ragserver/internal/port"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	title       TEXT NOT NULL DEFAULT 'New Conversation',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	conversation_id  UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role             TEXT NOT NULL,
	content          TEXT NOT NULL,
	citations        JSONB NOT NULL DEFAULT '[]',
	timing_ms        DOUBLE PRECISION,
	token_usage      JSONB NOT NULL DEFAULT '{}',
	sources_used     INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, created_at);

CREATE TABLE IF NOT EXISTS query_logs (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	query         TEXT NOT NULL,
	answer        TEXT,
	has_answer    BOOLEAN NOT NULL DEFAULT false,
	timing_ms     DOUBLE PRECISION,
	token_usage   JSONB NOT NULL DEFAULT '{}',
	sources_used  INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres stores conversations, messages and query logs in Postgres.
// A zero DSN produces an unconfigured store whose operations return
// ErrNotConfigured; the rest of the server runs fine without it.
type Postgres struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

// NewPostgres connects to the database and ensures the schema exists.
// An empty dsn yields an unconfigured store, not an error.
func NewPostgres(ctx context.Context, dsn string, log *logrus.Logger) (*Postgres, error) {
	if log == nil {
		log = logrus.New()
	}
	if dsn == "" {
		return &Postgres{log: log}, nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info("Connected to conversation store")
	return &Postgres{pool: pool, log: log}, nil
}

// Close releases the connection pool.
func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Postgres) Configured() bool {
	return s.pool != nil
}

func (s *Postgres) CreateConversation(ctx context.Context, title string) (domain.Conversation, error) {
	if s.pool == nil {
		return domain.Conversation{}, port.ErrNotConfigured
	}
	if title == "" {
		title = "New Conversation"
	}

	var conv domain.Conversation
	err := s.pool.QueryRow(ctx,
		`INSERT INTO conversations (title) VALUES ($1)
		 RETURNING id, title, created_at, updated_at`,
		title,
	).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

func (s *Postgres) ListConversations(ctx context.Context, limit int) ([]domain.Conversation, error) {
	if s.pool == nil {
		return nil, port.ErrNotConfigured
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, created_at, updated_at
		 FROM conversations
		 ORDER BY updated_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	conversations := []domain.Conversation{}
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

func (s *Postgres) GetConversation(ctx context.Context, id string) (domain.Conversation, error) {
	if s.pool == nil {
		return domain.Conversation{}, port.ErrNotConfigured
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.Conversation{}, port.ErrNotFound
	}

	var conv domain.Conversation
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = $1`,
		id,
	).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, port.ErrNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("failed to get conversation: %w", err)
	}

	messages, err := s.messagesFor(ctx, id)
	if err != nil {
		return domain.Conversation{}, err
	}
	conv.Messages = messages
	return conv, nil
}

func (s *Postgres) messagesFor(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, citations, timing_ms, token_usage, sources_used, created_at
		 FROM messages
		 WHERE conversation_id = $1
		 ORDER BY created_at ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var (
			msg           domain.Message
			citationsJSON []byte
			usageJSON     []byte
			timingMS      *float64
		)
		err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content,
			&citationsJSON, &timingMS, &usageJSON, &msg.SourcesUsed, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if timingMS != nil {
			msg.TimingMS = *timingMS
		}
		if len(citationsJSON) > 0 {
			_ = json.Unmarshal(citationsJSON, &msg.Citations)
		}
		if len(usageJSON) > 0 {
			_ = json.Unmarshal(usageJSON, &msg.TokenUsage)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *Postgres) RenameConversation(ctx context.Context, id, title string) (domain.Conversation, error) {
	if s.pool == nil {
		return domain.Conversation{}, port.ErrNotConfigured
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.Conversation{}, port.ErrNotFound
	}

	var conv domain.Conversation
	err := s.pool.QueryRow(ctx,
		`UPDATE conversations SET title = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING id, title, created_at, updated_at`,
		id, title,
	).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, port.ErrNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("failed to rename conversation: %w", err)
	}
	return conv, nil
}

func (s *Postgres) DeleteConversation(ctx context.Context, id string) error {
	if s.pool == nil {
		return port.ErrNotConfigured
	}
	if _, err := uuid.Parse(id); err != nil {
		return port.ErrNotFound
	}

	// Messages cascade via the FK constraint.
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return port.ErrNotFound
	}
	return nil
}

func (s *Postgres) AddMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if s.pool == nil {
		return domain.Message{}, port.ErrNotConfigured
	}
	if _, err := uuid.Parse(msg.ConversationID); err != nil {
		return domain.Message{}, port.ErrNotFound
	}

	citations := msg.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	citationsJSON, err := json.Marshal(citations)
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to marshal citations: %w", err)
	}
	usageJSON, err := json.Marshal(msg.TokenUsage)
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to marshal token usage: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, role, content, citations, timing_ms, token_usage, sources_used)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		msg.ConversationID, msg.Role, msg.Content, citationsJSON, msg.TimingMS, usageJSON, msg.SourcesUsed,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to add message: %w", err)
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`,
		msg.ConversationID,
	); err != nil {
		s.log.WithError(err).Warn("Failed to bump conversation timestamp")
	}

	return msg, nil
}

func (s *Postgres) LogQuery(ctx context.Context, entry domain.QueryLog) error {
	if s.pool == nil {
		return port.ErrNotConfigured
	}

	usageJSON, err := json.Marshal(entry.TokenUsage)
	if err != nil {
		return fmt.Errorf("failed to marshal token usage: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO query_logs (query, answer, has_answer, timing_ms, token_usage, sources_used)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.Query, entry.Answer, entry.HasAnswer, entry.TimingMS, usageJSON, entry.SourcesUsed,
	)
	if err != nil {
		return fmt.Errorf("failed to log query: %w", err)
	}
	return nil
}
