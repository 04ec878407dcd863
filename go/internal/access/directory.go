// Package access carries the resolved actor and the team directory used to gate
// who may start, stop, read or edit clock data. Membership management itself
// lives outside this service.
package access

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Directory answers membership questions for a team.
type Directory interface {
	IsMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
	IsAdmin(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
}

// TeamEntry is one team in a directory file.
type TeamEntry struct {
	ID      uuid.UUID   `yaml:"id"`
	Name    string      `yaml:"name"`
	Admins  []uuid.UUID `yaml:"admins"`
	Members []uuid.UUID `yaml:"members"`
}

// StaticDirectory is a Directory backed by a fixed team roster, typically
// loaded from the YAML config file.
type StaticDirectory struct {
	mu      sync.RWMutex
	admins  map[uuid.UUID]map[uuid.UUID]bool
	members map[uuid.UUID]map[uuid.UUID]bool
}

// NewStaticDirectory builds a directory from team entries.
func NewStaticDirectory(teams []TeamEntry) *StaticDirectory {
	d := &StaticDirectory{
		admins:  make(map[uuid.UUID]map[uuid.UUID]bool),
		members: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
	for _, t := range teams {
		d.AddTeam(t)
	}
	return d
}

// LoadDirectoryFile reads a YAML file with a top-level `teams` list.
func LoadDirectoryFile(path string) (*StaticDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}

	var doc struct {
		Teams []TeamEntry `yaml:"teams"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse directory file: %w", err)
	}
	return NewStaticDirectory(doc.Teams), nil
}

// AddTeam registers or extends a team.
func (d *StaticDirectory) AddTeam(t TeamEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.admins[t.ID] == nil {
		d.admins[t.ID] = make(map[uuid.UUID]bool)
		d.members[t.ID] = make(map[uuid.UUID]bool)
	}
	for _, id := range t.Admins {
		d.admins[t.ID][id] = true
		d.members[t.ID][id] = true
	}
	for _, id := range t.Members {
		d.members[t.ID][id] = true
	}
}

func (d *StaticDirectory) IsMember(_ context.Context, teamID, userID uuid.UUID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.members[teamID][userID], nil
}

func (d *StaticDirectory) IsAdmin(_ context.Context, teamID, userID uuid.UUID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.admins[teamID][userID], nil
}
