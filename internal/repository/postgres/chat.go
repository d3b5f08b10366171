package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/repository"
)

type chatRepository struct {
	db *sql.DB
}

// NewChatRepository creates a new ChatRepository backed by Postgres.
func NewChatRepository(db *sql.DB) repository.ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateChat(ctx context.Context, chat entity.Chat) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO chats (id, kind, state, order_id, created_at) VALUES ($1, $2, $3, $4, $5)",
		chat.ID, string(chat.Kind), string(chat.State), chat.OrderID, chat.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat: %w", err)
	}
	return nil
}

func (r *chatRepository) FindChat(ctx context.Context, id string) (*entity.Chat, error) {
	var c entity.Chat
	var kind, state string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, kind, state, order_id, created_at FROM chats WHERE id = $1", id,
	).Scan(&c.ID, &kind, &state, &c.OrderID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chat: %w", err)
	}
	c.Kind = entity.ChatKind(kind)
	c.State = entity.ChatState(state)
	return &c, nil
}

func (r *chatRepository) FindChats(ctx context.Context) ([]entity.Chat, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, kind, state, order_id, created_at FROM chats ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var chats []entity.Chat
	for rows.Next() {
		var c entity.Chat
		var kind, state string
		if err := rows.Scan(&c.ID, &kind, &state, &c.OrderID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		c.Kind = entity.ChatKind(kind)
		c.State = entity.ChatState(state)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (r *chatRepository) UpdateChatState(ctx context.Context, id string, state entity.ChatState) error {
	res, err := r.db.ExecContext(ctx, "UPDATE chats SET state = $1 WHERE id = $2", string(state), id)
	if err != nil {
		return fmt.Errorf("failed to update chat state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, msg entity.Message) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (id, chat_id, author, body, created_at) VALUES ($1, $2, $3, $4, $5)",
		msg.ID, msg.ChatID, string(msg.Author), msg.Body, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (r *chatRepository) FindMessages(ctx context.Context, chatID string) ([]entity.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, chat_id, author, body, created_at FROM messages WHERE chat_id = $1 ORDER BY created_at ASC",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []entity.Message
	for rows.Next() {
		var m entity.Message
		var author string
		if err := rows.Scan(&m.ID, &m.ChatID, &author, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Author = entity.MessageAuthor(author)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
