package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/repository"
)

// ErrChatClosed is returned when posting to a closed chat.
var ErrChatClosed = errors.New("chat is closed")

// ChatService manages chats and their immutable message log.
type ChatService struct {
	repo repository.ChatRepository
}

func NewChatService(repo repository.ChatRepository) *ChatService {
	return &ChatService{repo: repo}
}

// OpenChat starts a conversation of the given kind, optionally tied to an
// order.
func (s *ChatService) OpenChat(ctx context.Context, kind entity.ChatKind, orderID string) (*entity.Chat, error) {
	if kind != entity.ChatKindSale && kind != entity.ChatKindReport {
		return nil, fmt.Errorf("unknown chat kind %q", kind)
	}

	chat := entity.Chat{
		ID:        uuid.New().String(),
		Kind:      kind,
		State:     entity.ChatStateOpen,
		OrderID:   orderID,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return &chat, nil
}

// GetChats lists all chats, newest first.
func (s *ChatService) GetChats(ctx context.Context) ([]entity.Chat, error) {
	return s.repo.FindChats(ctx)
}

// PostMessage appends a message to an open chat. Messages are immutable
// once created.
func (s *ChatService) PostMessage(ctx context.Context, chatID string, author entity.MessageAuthor, body string) (*entity.Message, error) {
	if author != entity.AuthorCustomer && author != entity.AuthorSeller && author != entity.AuthorAdmin {
		return nil, fmt.Errorf("unknown message author %q", author)
	}
	if body == "" {
		return nil, fmt.Errorf("message body must not be empty")
	}

	chat, err := s.repo.FindChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.State == entity.ChatStateClosed {
		return nil, fmt.Errorf("chat %s: %w", chatID, ErrChatClosed)
	}

	msg := entity.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Author:    author,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return &msg, nil
}

// GetMessages returns a chat's messages in creation order.
func (s *ChatService) GetMessages(ctx context.Context, chatID string) ([]entity.Message, error) {
	return s.repo.FindMessages(ctx, chatID)
}

// CloseChat stops a chat from accepting further messages.
func (s *ChatService) CloseChat(ctx context.Context, chatID string) error {
	return s.repo.UpdateChatState(ctx, chatID, entity.ChatStateClosed)
}
