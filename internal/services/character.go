package services

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

// CharacterStore holds the current persona. Readers get an immutable
// snapshot; Swap installs a new one atomically.
type CharacterStore struct {
	p atomic.Pointer[domain.Character]
}

// NewCharacterStore returns a store holding c.
func NewCharacterStore(c *domain.Character) *CharacterStore {
	s := &CharacterStore{}
	s.Swap(c)
	return s
}

// Current returns the installed persona, never nil.
func (s *CharacterStore) Current() *domain.Character {
	if c := s.p.Load(); c != nil {
		return c
	}
	return &domain.Character{}
}

// Swap installs a copy of c.
func (s *CharacterStore) Swap(c *domain.Character) {
	if c == nil {
		return
	}
	cp := cloneCharacter(*c)
	s.p.Store(&cp)
}

func cloneCharacter(c domain.Character) domain.Character {
	clone := func(in []string) []string {
		if in == nil {
			return nil
		}
		return append([]string(nil), in...)
	}
	c.Bio = clone(c.Bio)
	c.Lore = clone(c.Lore)
	c.Topics = clone(c.Topics)
	c.Adjectives = clone(c.Adjectives)
	c.Style = clone(c.Style)
	return c
}

// DefaultCharacter is used when no character file is configured.
func DefaultCharacter(handle string) *domain.Character {
	name := handle
	if name == "" {
		name = "agent"
	}
	return &domain.Character{
		Name:       name,
		Handle:     handle,
		Bio:        []string{"A helpful Farcaster agent that answers mentions and replies."},
		Adjectives: []string{"friendly", "concise"},
		Style:      []string{"keep replies short", "no hashtags"},
	}
}

// LoadCharacterFile reads a JSON character. Handle defaults to fallbackHandle.
func LoadCharacterFile(path, fallbackHandle string) (*domain.Character, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCharacter(fallbackHandle), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read character: %w", err)
	}
	var c domain.Character
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse character %s: %w", path, err)
	}
	if c.Handle == "" {
		c.Handle = fallbackHandle
	}
	if c.Name == "" {
		c.Name = c.Handle
	}
	return &c, nil
}
