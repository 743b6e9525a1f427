// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"log"
	"os"

	"murmur/internal/events"
	"murmur/internal/models"
	"murmur/internal/repository"
	"murmur/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Options sizes a seeding run.
type Options struct {
	Users int `yaml:"users"`
	// FirstUserID is the identity given to the first seeded profile.
	FirstUserID uint `yaml:"first_user_id"`
	// FriendPercent is the chance, 0-100, that a pair of users become friends.
	FriendPercent int `yaml:"friend_percent"`
	// PendingPercent is the chance that a pair who are not friends has an open request.
	PendingPercent          int   `yaml:"pending_percent"`
	Groups                  int   `yaml:"groups"`
	MembersPerGroup         int   `yaml:"members_per_group"`
	MessagesPerConversation int   `yaml:"messages_per_conversation"`
	Seed                    int64 `yaml:"seed"`
}

// DefaultOptions is used when no preset is named.
func DefaultOptions() Options {
	return Options{
		Users:                   20,
		FirstUserID:             1,
		FriendPercent:           30,
		PendingPercent:          10,
		Groups:                  5,
		MembersPerGroup:         4,
		MessagesPerConversation: 8,
	}
}

type presetFile struct {
	Presets map[string]Options `yaml:"presets"`
}

// LoadPresets reads named Options from a YAML file of the form
// "presets: {name: {users: 10, ...}}".
func LoadPresets(path string) (map[string]Options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var file presetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}
	return file.Presets, nil
}

// Summary counts what a run created.
type Summary struct {
	Profiles    int
	Friendships int
	Pending     int
	Groups      int
	Messages    int
}

// Seeder writes demo data through the service layer so seeded rows obey the
// same rules as API traffic.
type Seeder struct {
	db            *gorm.DB
	opts          Options
	faker         *gofakeit.Faker
	profiles      *service.ProfileService
	friends       *service.FriendService
	conversations *service.ConversationService
	messages      *service.MessageService
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.FirstUserID == 0 {
		opts.FirstUserID = 1
	}
	seed := opts.Seed
	if seed == 0 {
		seed = gofakeit.Int64()
	}

	store := repository.NewStore(db)
	publisher := events.NopPublisher{}
	return &Seeder{
		db:            db,
		opts:          opts,
		faker:         gofakeit.New(seed),
		profiles:      service.NewProfileService(store, publisher, service.NewUsernameGenerator(seed)),
		friends:       service.NewFriendService(store, publisher),
		conversations: service.NewConversationService(store, publisher),
		messages:      service.NewMessageService(store, publisher),
	}
}

// ClearAll removes every chat row.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")
	all := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{
		&models.Message{},
		&models.ConversationParticipant{},
		&models.Conversation{},
		&models.FriendRequest{},
		&models.Profile{},
	} {
		if err := all.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run seeds profiles, then friendships with their DMs, then groups, then messages.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	users, err := s.seedProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed profiles: %w", err)
	}
	summary.Profiles = len(users)
	log.Printf("✓ %d profiles created", len(users))

	dms, err := s.seedFriendships(ctx, users, summary)
	if err != nil {
		return nil, fmt.Errorf("seed friendships: %w", err)
	}
	log.Printf("✓ %d friendships, %d pending requests", summary.Friendships, summary.Pending)

	groups, err := s.seedGroups(ctx, users)
	if err != nil {
		return nil, fmt.Errorf("seed groups: %w", err)
	}
	summary.Groups = len(groups)
	log.Printf("✓ %d groups created", len(groups))

	for _, conv := range append(dms, groups...) {
		n, err := s.seedMessages(ctx, conv)
		if err != nil {
			return nil, fmt.Errorf("seed messages: %w", err)
		}
		summary.Messages += n
	}
	log.Printf("✓ %d messages sent", summary.Messages)

	return summary, nil
}

type seededUser struct {
	id       uint
	username string
}

func (s *Seeder) seedProfiles(ctx context.Context) ([]seededUser, error) {
	users := make([]seededUser, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		userID := s.opts.FirstUserID + uint(i)
		name, err := s.profiles.GenerateUsername(ctx, userID)
		if err != nil {
			return nil, err
		}

		image := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID())
		description := s.faker.Sentence(8)
		if _, err := s.profiles.UpdateProfile(ctx, userID, models.ProfileUpdate{
			ProfileImage: &image,
			Description:  &description,
		}); err != nil {
			return nil, err
		}
		users = append(users, seededUser{id: userID, username: name})
	}
	return users, nil
}

func (s *Seeder) seedFriendships(ctx context.Context, users []seededUser, summary *Summary) ([]*models.Conversation, error) {
	var dms []*models.Conversation
	for i := range users {
		for j := i + 1; j < len(users); j++ {
			sender, recipient := users[i], users[j]
			switch {
			case s.roll(s.opts.FriendPercent):
				req, err := s.friends.SendRequest(ctx, sender.id, recipient.username)
				if err != nil {
					return nil, err
				}
				res, err := s.friends.Respond(ctx, recipient.id, req.ID, true)
				if err != nil {
					return nil, err
				}
				dms = append(dms, res.Conversation)
				summary.Friendships++
			case s.roll(s.opts.PendingPercent):
				if _, err := s.friends.SendRequest(ctx, sender.id, recipient.username); err != nil {
					return nil, err
				}
				summary.Pending++
			}
		}
	}
	return dms, nil
}

func (s *Seeder) seedGroups(ctx context.Context, users []seededUser) ([]*models.Conversation, error) {
	if len(users) == 0 {
		return nil, nil
	}
	var groups []*models.Conversation
	for g := 0; g < s.opts.Groups; g++ {
		owner := users[s.faker.Number(0, len(users)-1)]
		conv, err := s.conversations.CreateGroup(ctx, owner.id)
		if err != nil {
			return nil, err
		}

		order := make([]int, len(users))
		for i := range order {
			order[i] = i
		}
		s.faker.ShuffleInts(order)

		var members []uint
		for _, idx := range order {
			if len(members) >= s.opts.MembersPerGroup-1 {
				break
			}
			if users[idx].id != owner.id {
				members = append(members, users[idx].id)
			}
		}
		if len(members) > 0 {
			if _, err := s.conversations.AddMembers(ctx, owner.id, conv.ID, members); err != nil {
				return nil, err
			}
		}

		name := fmt.Sprintf("%s %s", s.faker.HipsterWord(), s.faker.Hobby())
		conv, err = s.conversations.UpdateGroup(ctx, owner.id, conv.ID, models.ConversationUpdate{Name: &name})
		if err != nil {
			return nil, err
		}
		groups = append(groups, conv)
	}
	return groups, nil
}

func (s *Seeder) seedMessages(ctx context.Context, conv *models.Conversation) (int, error) {
	members := conv.ParticipantIDs()
	if len(members) == 0 {
		return 0, nil
	}
	for i := 0; i < s.opts.MessagesPerConversation; i++ {
		author := members[s.faker.Number(0, len(members)-1)]
		if _, err := s.messages.Send(ctx, author, conv.ID, s.faker.Sentence(s.faker.Number(3, 14))); err != nil {
			return i, err
		}
	}
	return s.opts.MessagesPerConversation, nil
}

func (s *Seeder) roll(percent int) bool {
	return percent > 0 && s.faker.Number(1, 100) <= percent
}
