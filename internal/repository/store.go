// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories that share one connection or transaction.
type Store interface {
	Profiles() ProfileRepository
	Friends() FriendRepository
	Conversations() ConversationRepository
	Messages() MessageRepository

	// Transaction runs fn against a Store bound to a single database
	// transaction. Any error returned by fn rolls the transaction back and is
	// returned unchanged.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db            *gorm.DB
	profiles      ProfileRepository
	friends       FriendRepository
	conversations ConversationRepository
	messages      MessageRepository
}

// NewStore creates a Store over db.
func NewStore(db *gorm.DB) Store {
	return &store{
		db:            db,
		profiles:      NewProfileRepository(db),
		friends:       NewFriendRepository(db),
		conversations: NewConversationRepository(db),
		messages:      NewMessageRepository(db),
	}
}

func (s *store) Profiles() ProfileRepository           { return s.profiles }
func (s *store) Friends() FriendRepository             { return s.friends }
func (s *store) Conversations() ConversationRepository { return s.conversations }
func (s *store) Messages() MessageRepository           { return s.messages }

func (s *store) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
