// Package profile saves and restores peripheral property values as JSON
// snapshots, so a working microscope setup can be reapplied after a power
// cycle without touching the card-level SS save.
package profile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/asi-tiger/tiger-go/pkg/prop"
)

// Version is the current version of the profile file format.
const Version = 1

// ErrVersion indicates a profile written by an incompatible format version.
var ErrVersion = errors.New("unsupported profile version")

// Peripheral is the surface a device must expose to be captured.
type Peripheral interface {
	Name() string
	Props() *prop.Registry
}

// Profile is a snapshot of property values across peripherals.
type Profile struct {
	// Version is the profile file format version.
	Version int `json:"version"`

	// SavedAt is when the profile was captured.
	SavedAt time.Time `json:"saved_at"`

	// Peripherals holds one snapshot per device, in capture order.
	Peripherals []PeripheralProfile `json:"peripherals,omitempty"`
}

// PeripheralProfile is the snapshot of one device.
type PeripheralProfile struct {
	// Name is the extended device name.
	Name string `json:"name"`

	// Values maps property names to their captured values.
	Values map[string]string `json:"values,omitempty"`
}

// Capture reads the current value of every writable property on the given
// peripherals. Reads respect the refresh policy, so an initialized device
// snapshots from cache without serial traffic.
func Capture(devices ...Peripheral) (*Profile, error) {
	p := &Profile{Version: Version, SavedAt: time.Now()}
	for _, d := range devices {
		reg := d.Props()
		snap := PeripheralProfile{
			Name:   d.Name(),
			Values: make(map[string]string),
		}
		for _, name := range reg.Names() {
			pr, err := reg.Lookup(name)
			if err != nil {
				return nil, err
			}
			if pr.ReadOnly() {
				continue
			}
			v, err := reg.Get(name)
			if err != nil {
				return nil, err
			}
			snap.Values[name] = v
		}
		p.Peripherals = append(p.Peripherals, snap)
	}
	return p, nil
}

// Apply writes a profile's values back to matching peripherals. Devices not
// named in the profile are left alone, as are profile entries for
// properties the device no longer registers.
func Apply(p *Profile, devices ...Peripheral) error {
	byName := make(map[string]Peripheral, len(devices))
	for _, d := range devices {
		byName[d.Name()] = d
	}
	for _, snap := range p.Peripherals {
		d, ok := byName[snap.Name]
		if !ok {
			continue
		}
		reg := d.Props()
		// Apply in registration order so dependent properties (e.g. a
		// reverse flag consulted by a speed write) settle correctly.
		for _, name := range reg.Names() {
			v, ok := snap.Values[name]
			if !ok {
				continue
			}
			if err := reg.Set(name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Store manages persistence of profiles to a JSON file.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a profile store backed by the given path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Save persists a profile to disk.
func (s *Store) Save(p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	p.Version = Version
	if p.SavedAt.IsZero() {
		p.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// Load reads a profile from disk.
// Returns nil, nil if the file doesn't exist.
func (s *Store) Load() (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p := &Profile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}
	if p.Version != Version {
		return nil, ErrVersion
	}
	return p, nil
}

// Clear removes the profile file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
