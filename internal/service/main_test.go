package service

import (
	"context"
	"sync"
	"testing"

	"murmur/internal/database"
	"murmur/internal/events"
	"murmur/internal/models"
	"murmur/internal/repository"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Backend() string { return "test" }

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// sequenceGenerator replays names, repeating the last one forever.
type sequenceGenerator struct {
	mu    sync.Mutex
	names []string
	calls int
	onHit func(calls int)
}

func (g *sequenceGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.onHit != nil {
		g.onHit(g.calls)
	}
	if g.calls <= len(g.names) {
		return g.names[g.calls-1]
	}
	return g.names[len(g.names)-1]
}

type testEnv struct {
	store         repository.Store
	pub           *recordingPublisher
	profiles      *ProfileService
	friends       *FriendService
	conversations *ConversationService
	messages      *MessageService
}

func newTestEnv(t *testing.T, gen UsernameGenerator) *testEnv {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := repository.NewStore(db)
	pub := &recordingPublisher{}
	return &testEnv{
		store:         store,
		pub:           pub,
		profiles:      NewProfileService(store, pub, gen),
		friends:       NewFriendService(store, pub),
		conversations: NewConversationService(store, pub),
		messages:      NewMessageService(store, pub),
	}
}

func (e *testEnv) createProfile(t *testing.T, userID uint, username string) {
	t.Helper()
	require.NoError(t, e.store.Profiles().Create(context.Background(), models.NewProfile(userID, username)))
}

// befriend makes a and b friends through the public flow and returns the DM.
func (e *testEnv) befriend(t *testing.T, a, b uint, bUsername string) *models.Conversation {
	t.Helper()
	ctx := context.Background()
	req, err := e.friends.SendRequest(ctx, a, bUsername)
	require.NoError(t, err)
	res, err := e.friends.Respond(ctx, b, req.ID, true)
	require.NoError(t, err)
	require.NotNil(t, res.Conversation)
	return res.Conversation
}
