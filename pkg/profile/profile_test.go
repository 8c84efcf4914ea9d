package profile_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/asi-tiger/tiger-go/pkg/profile"
	"github.com/asi-tiger/tiger-go/pkg/prop"
)

type fakeDevice struct {
	name string
	reg  *prop.Registry
}

func (d *fakeDevice) Name() string          { return d.name }
func (d *fakeDevice) Props() *prop.Registry { return d.reg }

func newFakeDevice(name string) *fakeDevice {
	reg := prop.NewRegistry()
	reg.MustAdd(prop.Metadata{Name: "Reverse", Type: prop.TypeEnum, Default: "No",
		Enum: prop.NewEnumTable().Add("No", 0).Add("Yes", 1)})
	reg.MustAdd(prop.Metadata{Name: "Speed", Type: prop.TypeFloat, Default: "5.7"})
	reg.MustAdd(prop.Metadata{Name: "FirmwareVersion", Type: prop.TypeFloat,
		Default: "3.3", ReadOnly: true})
	reg.SetInitialized()
	return &fakeDevice{name: name, reg: reg}
}

func TestCapture(t *testing.T) {
	d := newFakeDevice("ZStage:Z:32")
	p, err := profile.Capture(d)
	if err != nil {
		t.Fatal(err)
	}

	if len(p.Peripherals) != 1 {
		t.Fatalf("peripherals = %d", len(p.Peripherals))
	}
	snap := p.Peripherals[0]
	if snap.Name != "ZStage:Z:32" {
		t.Errorf("name = %q", snap.Name)
	}
	if snap.Values["Speed"] != "5.7" {
		t.Errorf("Speed = %q", snap.Values["Speed"])
	}
	// Read-only properties cannot be applied, so they are not captured.
	if _, ok := snap.Values["FirmwareVersion"]; ok {
		t.Error("read-only property captured")
	}
	if p.Version != profile.Version {
		t.Errorf("version = %d", p.Version)
	}
}

func TestApply(t *testing.T) {
	var applied []string
	record := func(p *prop.Property) error {
		applied = append(applied, p.Name())
		return nil
	}
	reg := prop.NewRegistry()
	reg.MustAdd(prop.Metadata{Name: "Reverse", Type: prop.TypeEnum, Default: "No",
		Enum:     prop.NewEnumTable().Add("No", 0).Add("Yes", 1),
		AfterSet: record})
	reg.MustAdd(prop.Metadata{Name: "Speed", Type: prop.TypeFloat, Default: "5.7",
		AfterSet: record})
	reg.SetInitialized()
	d := &fakeDevice{name: "ZStage:Z:32", reg: reg}

	p := &profile.Profile{
		Version: profile.Version,
		Peripherals: []profile.PeripheralProfile{
			{Name: "ZStage:Z:32", Values: map[string]string{
				"Speed":        "2.5",
				"Reverse":      "Yes",
				"NoSuchProp":   "1",
				"AnotherExtra": "x",
			}},
			{Name: "Piezo:P:33", Values: map[string]string{"Speed": "9"}},
		},
	}
	if err := profile.Apply(p, d); err != nil {
		t.Fatal(err)
	}

	// Values land in registration order so dependent writes settle
	// deterministically, and unknown entries are skipped.
	if len(applied) != 2 || applied[0] != "Reverse" || applied[1] != "Speed" {
		t.Errorf("applied = %v, want [Reverse Speed]", applied)
	}
	if v, _ := d.reg.Cached("Speed"); v != "2.5" {
		t.Errorf("Speed = %q", v)
	}
}

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles", "setup.json")
	store := profile.NewStore(path)

	t.Run("load before save", func(t *testing.T) {
		p, err := store.Load()
		if err != nil {
			t.Fatal(err)
		}
		if p != nil {
			t.Fatal("expected nil profile for a missing file")
		}
	})

	t.Run("round trip", func(t *testing.T) {
		saved := &profile.Profile{
			Peripherals: []profile.PeripheralProfile{
				{Name: "ZStage:Z:32", Values: map[string]string{"Speed": "5.7"}},
			},
		}
		if err := store.Save(saved); err != nil {
			t.Fatal(err)
		}
		loaded, err := store.Load()
		if err != nil {
			t.Fatal(err)
		}
		if loaded == nil || len(loaded.Peripherals) != 1 {
			t.Fatalf("loaded = %+v", loaded)
		}
		if loaded.Peripherals[0].Values["Speed"] != "5.7" {
			t.Errorf("Speed = %q", loaded.Peripherals[0].Values["Speed"])
		}
		if loaded.SavedAt.IsZero() {
			t.Error("SavedAt not stamped on save")
		}
	})

	t.Run("version check", func(t *testing.T) {
		if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Load(); !errors.Is(err, profile.ErrVersion) {
			t.Fatalf("err = %v, want ErrVersion", err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		if err := store.Clear(); err != nil {
			t.Fatal(err)
		}
		p, err := store.Load()
		if err != nil || p != nil {
			t.Fatalf("after clear: %+v, %v", p, err)
		}
		// Clearing twice is fine.
		if err := store.Clear(); err != nil {
			t.Fatal(err)
		}
	})
}
