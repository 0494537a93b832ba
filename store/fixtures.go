// ABOUTME: Seed data loading for the in-memory store
// ABOUTME: Reads embedded JSON fixtures with optional per-file overrides from a directory
package store

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/harperreed/leadpipe/models"
)

//go:embed fixtures/*.json
var embedded embed.FS

// Fixtures is the seed (or a snapshot) of every collection.
type Fixtures struct {
	Leads         []models.Lead
	Deals         []models.Deal
	Activities    []models.Activity
	Conversations []models.Conversation
	Messages      []models.Message
	TakenAt       time.Time
}

// LoadFixtures reads the embedded seed data. When overrideDir is set, any of
// leads.json, deals.json or activities.json found there replaces the
// embedded file of the same name.
func LoadFixtures(overrideDir string) (*Fixtures, error) {
	f := &Fixtures{}
	if err := readFixture(overrideDir, "leads.json", &f.Leads); err != nil {
		return nil, err
	}
	if err := readFixture(overrideDir, "deals.json", &f.Deals); err != nil {
		return nil, err
	}
	if err := readFixture(overrideDir, "activities.json", &f.Activities); err != nil {
		return nil, err
	}
	return f, nil
}

func readFixture(overrideDir, name string, v any) error {
	var data []byte
	if overrideDir != "" {
		b, err := os.ReadFile(filepath.Join(overrideDir, name))
		switch {
		case err == nil:
			data = b
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("failed to read fixture override %s: %w", name, err)
		}
	}
	if data == nil {
		b, err := embedded.ReadFile("fixtures/" + name)
		if err != nil {
			return fmt.Errorf("failed to read embedded fixture %s: %w", name, err)
		}
		data = b
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse fixture %s: %w", name, err)
	}
	return nil
}

// Snapshot copies every collection. Each collection is read under its own
// lock, so the copy is consistent per collection only.
func (s *Store) Snapshot() Fixtures {
	var f Fixtures
	s.leadsMu.RLock()
	for _, l := range s.leads {
		f.Leads = append(f.Leads, l.Clone())
	}
	s.leadsMu.RUnlock()

	s.dealsMu.RLock()
	for _, d := range s.deals {
		f.Deals = append(f.Deals, d.Clone())
	}
	s.dealsMu.RUnlock()

	s.actsMu.RLock()
	for _, a := range s.activities {
		f.Activities = append(f.Activities, a.Clone())
	}
	s.actsMu.RUnlock()

	s.convMu.RLock()
	for _, c := range s.convs {
		f.Conversations = append(f.Conversations, c.Clone())
	}
	f.Messages = append(f.Messages, s.messages...)
	s.convMu.RUnlock()

	f.TakenAt = s.now()
	return f
}
