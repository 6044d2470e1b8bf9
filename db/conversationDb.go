package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mlassistant/models"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository is the keyed conversation store. Messages are kept in append order.
// ListConversations returns conversations without their messages.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context) ([]*models.Conversation, error)
	AppendMessage(ctx context.Context, id string, msg models.Message) error
	// CompleteTurn stores the assistant reply together with the turn's route and chapter.
	// Either both are stored or neither is.
	CompleteTurn(ctx context.Context, id string, reply models.Message, route models.Route, chapter string) error
	DeleteConversation(ctx context.Context, id string) error
	Close() error
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversations (
	id         UUID PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	route      TEXT NOT NULL DEFAULT '',
	chapter    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS conversation_messages (
	conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (conversation_id, position)
);`

type PostgresConversationRepository struct {
	db *sql.DB
}

func NewPostgresConversationRepository(ctx context.Context, databaseURL string) (*PostgresConversationRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &PostgresConversationRepository{db: db}
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *PostgresConversationRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (r *PostgresConversationRepository) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (id, title, route, chapter)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	row := r.db.QueryRowContext(ctx, query, conv.ID, conv.Title, string(conv.State.Route), conv.State.Chapter)
	if err := row.Scan(&conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	for _, msg := range conv.State.Messages {
		if err := r.AppendMessage(ctx, conv.ID, msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresConversationRepository) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	query := `
		SELECT id, title, route, chapter, created_at, updated_at
		FROM conversations
		WHERE id = $1`

	conv := &models.Conversation{}
	var route string
	row := r.db.QueryRowContext(ctx, query, id)
	err := row.Scan(&conv.ID, &conv.Title, &route, &conv.State.Chapter, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	conv.State.Route = models.Route(route)

	messages, err := r.getMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	conv.State.Messages = messages
	return conv, nil
}

func (r *PostgresConversationRepository) getMessages(ctx context.Context, id string) ([]models.Message, error) {
	query := `
		SELECT role, content
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		var role string
		if err := rows.Scan(&role, &msg.Content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = models.Role(role)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

func (r *PostgresConversationRepository) ListConversations(ctx context.Context) ([]*models.Conversation, error) {
	query := `
		SELECT id, title, route, chapter, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]*models.Conversation, 0)
	for rows.Next() {
		conv := &models.Conversation{}
		var route string
		if err := rows.Scan(&conv.ID, &conv.Title, &route, &conv.State.Chapter, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conv.State.Route = models.Route(route)
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return conversations, nil
}

// AppendMessage stores msg after the conversation's current last message.
func (r *PostgresConversationRepository) AppendMessage(ctx context.Context, id string, msg models.Message) error {
	if err := checkID(id); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touch(ctx, tx, id); err != nil {
		return err
	}
	if err := insertMessage(ctx, tx, id, msg); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, id string, msg models.Message) error {
	query := `
		INSERT INTO conversation_messages (conversation_id, position, role, content)
		SELECT $1, COALESCE(MAX(position) + 1, 0), $2, $3
		FROM conversation_messages
		WHERE conversation_id = $1`

	if _, err := tx.ExecContext(ctx, query, id, string(msg.Role), msg.Content); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// touch bumps updated_at and locks the conversation row for the rest of the transaction.
func touch(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return requireAffected(result, id)
}

func (r *PostgresConversationRepository) CompleteTurn(ctx context.Context, id string, reply models.Message, route models.Route, chapter string) error {
	if err := checkID(id); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE conversations
		SET route = $1, chapter = $2, updated_at = NOW()
		WHERE id = $3`

	result, err := tx.ExecContext(ctx, query, string(route), chapter, id)
	if err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}
	if err := requireAffected(result, id); err != nil {
		return err
	}
	if err := insertMessage(ctx, tx, id, reply); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}
	return nil
}

func (r *PostgresConversationRepository) DeleteConversation(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return requireAffected(result, id)
}

// checkID rejects ids the uuid column could never hold, which would otherwise surface as a
// query error instead of a missing conversation.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return nil
}

func requireAffected(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return nil
}

func (r *PostgresConversationRepository) Close() error {
	return r.db.Close()
}
