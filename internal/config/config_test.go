package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" || cfg.PixelsPerHour != 60 {
		t.Errorf("defaults = %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perms = %o, want 0600", perm)
	}

	// Second load reads the written file.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Listen != cfg.Listen || again.RefreshCron != cfg.RefreshCron {
		t.Errorf("reload = %+v", again)
	}
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `listen: "0.0.0.0:9090"
timezone: "Europe/Berlin"
pixels_per_hour: 48
ics:
  - url: "https://cal.example.com/team.ics"
    id: "team"
    category: "work"
basic_auth:
  username: "calendar"
  password: "s3cret"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9090" || cfg.Timezone != "Europe/Berlin" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.PixelsPerHour != 48 {
		t.Errorf("PixelsPerHour = %v", cfg.PixelsPerHour)
	}
	if len(cfg.ICS) != 1 || cfg.ICS[0].ID != "team" || cfg.ICS[0].Category != "work" {
		t.Errorf("ICS = %+v", cfg.ICS)
	}
	if cfg.BasicAuth == nil || cfg.BasicAuth.Username != "calendar" {
		t.Errorf("BasicAuth = %+v", cfg.BasicAuth)
	}

	// Fields the file omitted come back normalized, not zero.
	if cfg.VisibleEventCap != 3 || cfg.HorizonDays != 60 {
		t.Errorf("normalized fields = cap %d horizon %d", cfg.VisibleEventCap, cfg.HorizonDays)
	}
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	var cfg Config
	cfg.Normalize()

	if cfg.Listen == "" || cfg.DBPath == "" || cfg.RefreshCron == "" {
		t.Errorf("normalize left blanks: %+v", cfg)
	}
	if cfg.PixelsPerHour != 60 || cfg.VisibleEventCap != 3 {
		t.Errorf("normalize layout defaults: %+v", cfg)
	}
	if cfg.ICS == nil {
		t.Error("ICS must be non-nil after Normalize")
	}
}

func TestLocation(t *testing.T) {
	cases := []struct {
		name     string
		timezone string
		want     string
		wantErr  bool
	}{
		{"empty means local", "", "Local", false},
		{"explicit local", "Local", "Local", false},
		{"named zone", "Asia/Tokyo", "Asia/Tokyo", false},
		{"bad name", "Mars/Olympus", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{Timezone: tc.timezone}
			loc, err := cfg.Location()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Location(%q) = %v, want error", tc.timezone, loc)
				}
				return
			}
			if err != nil {
				t.Fatalf("Location(%q): %v", tc.timezone, err)
			}
			if loc.String() != tc.want {
				t.Errorf("Location(%q) = %v, want %v", tc.timezone, loc, tc.want)
			}
		})
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("expected error for empty path")
	}
}
