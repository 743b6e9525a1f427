package database

import "murmur/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.FriendRequest{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
	}
}
