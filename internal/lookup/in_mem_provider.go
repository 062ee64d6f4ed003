package lookup

import (
	"context"
	"strings"
	"sync"

	"github.com/sauerbraten/jsonfile"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
)

// InMemoryProvider serves users from memory, usually loaded from users.json.
type InMemoryProvider struct {
	µ         sync.RWMutex
	usersByID map[string]*auth.User
}

func NewInMemoryProvider(users []*auth.User) *InMemoryProvider {
	p := &InMemoryProvider{
		usersByID: map[string]*auth.User{},
	}
	for _, u := range users {
		p.usersByID[u.ClientID.String()] = u
	}
	return p
}

// FromFile loads users from a JSON file (// comments allowed).
func FromFile(fileName string) (*InMemoryProvider, error) {
	var users []*auth.User
	err := jsonfile.ParseFile(fileName, &users)
	if err != nil {
		return nil, err
	}
	return NewInMemoryProvider(users), nil
}

func (p *InMemoryProvider) GetUser(ctx context.Context, clientID string) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.µ.RLock()
	defer p.µ.RUnlock()

	u, ok := p.usersByID[strings.ToLower(clientID)]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

// Put adds or replaces a user.
func (p *InMemoryProvider) Put(u *auth.User) {
	p.µ.Lock()
	defer p.µ.Unlock()
	p.usersByID[u.ClientID.String()] = u
}

func (p *InMemoryProvider) NumUsers() int {
	p.µ.RLock()
	defer p.µ.RUnlock()
	return len(p.usersByID)
}
