package service

import (
	"context"
	"encoding/json"
	"strings"

	"murmur/internal/events"
	"murmur/internal/models"
	"murmur/internal/observability"
	"murmur/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxUsernameLength = 64

// ProfileService owns usernames and profile attributes.
type ProfileService struct {
	store     repository.Store
	events    events.Publisher
	usernames UsernameGenerator
}

// NewProfileService returns a new ProfileService. A nil generator selects the
// default word-based one.
func NewProfileService(store repository.Store, publisher events.Publisher, usernames UsernameGenerator) *ProfileService {
	if usernames == nil {
		usernames = NewUsernameGenerator(0)
	}
	return &ProfileService{
		store:     store,
		events:    publisher,
		usernames: usernames,
	}
}

// GetUsername returns the user's username, or nil when they have no profile.
func (s *ProfileService) GetUsername(ctx context.Context, userID uint) (*string, error) {
	profile, err := s.store.Profiles().GetByUserID(ctx, userID)
	if err != nil || profile == nil {
		return nil, err
	}
	return &profile.Username, nil
}

// GetProfile returns the user's profile, or nil when none exists.
func (s *ProfileService) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	return s.store.Profiles().GetByUserID(ctx, userID)
}

// GenerateUsername assigns the caller a fresh, unused generated username,
// creating their profile when needed.
func (s *ProfileService) GenerateUsername(ctx context.Context, userID uint) (username string, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ProfileService", "GenerateUsername", userAttr(userID))
	defer span.Finish(&err)

	attempts := 0
	defer func() { observability.UsernameGenerationAttempts.Observe(float64(attempts)) }()

	for {
		err = s.store.Transaction(ctx, func(tx repository.Store) error {
			name, tries, err := s.freeUsername(ctx, tx.Profiles(), userID)
			attempts += tries
			if err != nil {
				return err
			}
			username = name
			return assignUsername(ctx, tx.Profiles(), userID, name)
		})
		// Lost a race for the candidate; the unique index is the final word.
		if models.IsUniqueViolation(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		break
	}

	s.emitProfileUpdated(ctx, userID, username)
	return username, nil
}

// SetUsername assigns name to the caller. It fails with a conflict when a
// different identity already holds it.
func (s *ProfileService) SetUsername(ctx context.Context, userID uint, name string) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ProfileService", "SetUsername", userAttr(userID))
	defer span.Finish(&err)

	if err := validateUsername(name); err != nil {
		return err
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		holder, err := tx.Profiles().GetByUsername(ctx, name)
		if err != nil {
			return err
		}
		if holder != nil && holder.UserID != userID {
			return models.NewConflictError("Username already taken")
		}
		return assignUsername(ctx, tx.Profiles(), userID, name)
	})
	if models.IsUniqueViolation(err) {
		return models.NewConflictError("Username already taken")
	}
	if err != nil {
		return err
	}

	s.emitProfileUpdated(ctx, userID, name)
	return nil
}

// UpdateProfile applies a partial update to the caller's profile, creating it
// with a generated username when absent.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uint, update models.ProfileUpdate) (profile *models.Profile, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ProfileService", "UpdateProfile", userAttr(userID))
	defer span.Finish(&err)

	if update.Extended != nil && !json.Valid([]byte(*update.Extended)) {
		return nil, models.NewInvalidFormatError("Invalid JSON in extended field", nil)
	}

	for {
		err = s.store.Transaction(ctx, func(tx repository.Store) error {
			existing, err := tx.Profiles().GetByUserID(ctx, userID)
			if err != nil {
				return err
			}
			if existing != nil {
				if err := tx.Profiles().Update(ctx, userID, update.Columns()); err != nil {
					return err
				}
				update.Apply(existing)
				profile = existing
				return nil
			}

			name, _, err := s.freeUsername(ctx, tx.Profiles(), userID)
			if err != nil {
				return err
			}
			created := models.NewProfile(userID, name)
			update.Apply(created)
			if err := tx.Profiles().Create(ctx, created); err != nil {
				return err
			}
			profile = created
			return nil
		})
		if models.IsUniqueViolation(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	s.emitProfileUpdated(ctx, userID, profile.Username)
	return profile, nil
}

// freeUsername draws candidates until one is unused or already held by
// userID. There is no attempt cap; only cancellation stops the loop.
func (s *ProfileService) freeUsername(ctx context.Context, profiles repository.ProfileRepository, userID uint) (string, int, error) {
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return "", attempts, err
		}
		attempts++
		candidate := s.usernames.Next()
		holder, err := profiles.GetByUsername(ctx, candidate)
		if err != nil {
			return "", attempts, err
		}
		if holder == nil || holder.UserID == userID {
			return candidate, attempts, nil
		}
	}
}

func (s *ProfileService) emitProfileUpdated(ctx context.Context, userID uint, username string) {
	events.Emit(ctx, s.events, events.New(events.ProfileUpdated, events.UserKey(userID), []uint{userID}, map[string]interface{}{
		"user_id":  userID,
		"username": username,
	}))
}

// assignUsername upserts username onto userID's profile.
func assignUsername(ctx context.Context, profiles repository.ProfileRepository, userID uint, username string) error {
	existing, err := profiles.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if existing == nil {
		return profiles.Create(ctx, models.NewProfile(userID, username))
	}
	if existing.Username == username {
		return nil
	}
	return profiles.UpdateUsername(ctx, userID, username)
}

// lookupProfiles loads the profiles of userIDs for internal use. Every id is
// present in the result; ids without a profile get the placeholder record.
func lookupProfiles(ctx context.Context, profiles repository.ProfileRepository, userIDs []uint) (map[uint]*models.Profile, error) {
	found, err := profiles.ListByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]*models.Profile, len(userIDs))
	for i := range found {
		out[found[i].UserID] = &found[i]
	}
	for _, id := range userIDs {
		if _, ok := out[id]; !ok {
			out[id] = models.PlaceholderProfile(id)
		}
	}
	return out, nil
}

func validateUsername(name string) error {
	if strings.TrimSpace(name) == "" {
		return models.NewValidationError("Username is required")
	}
	if len(name) > maxUsernameLength {
		return models.NewValidationError("Username must be at most 64 characters")
	}
	return nil
}

func userAttr(userID uint) attribute.KeyValue {
	return attribute.Int64("user.id", int64(userID))
}
