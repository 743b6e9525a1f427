package service

import (
	"fmt"
	"sync"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	usernameAdjectives = []string{"Happy", "Clever", "Swift", "Bright", "Cool"}
	usernameNouns      = []string{"Panda", "Tiger", "Eagle", "Fox", "Wolf"}
)

// UsernameGenerator yields candidate usernames. Candidates are not
// guaranteed to be free.
type UsernameGenerator interface {
	Next() string
}

type wordUsernameGenerator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// NewUsernameGenerator returns a generator of {Adjective}{Noun}{0-999}
// candidates. A zero seed picks a random one.
func NewUsernameGenerator(seed int64) UsernameGenerator {
	return &wordUsernameGenerator{faker: gofakeit.New(seed)}
}

func (g *wordUsernameGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%s%s%d",
		g.faker.RandomString(usernameAdjectives),
		g.faker.RandomString(usernameNouns),
		g.faker.Number(0, 999),
	)
}
