package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.PresenceIntervalSeconds != 60 {
		t.Errorf("presence interval = %d, want 60", cfg.PresenceIntervalSeconds)
	}
	if cfg.IdentityFailure != IdentityFailureNotify {
		t.Errorf("identity failure = %q, want notify", cfg.IdentityFailure)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	want := Default()
	want.DefaultProfile = "work"
	want.UserID = "u1"
	want.UserName = "Alice"
	want.SyncURL = "wss://sync.example.com/feed"
	want.IdentityFailure = IdentityFailureIgnore

	if err := Save(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("missing file should be an error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty identity failure", func(c *Config) { c.IdentityFailure = "" }, false},
		{"ignore policy", func(c *Config) { c.IdentityFailure = IdentityFailureIgnore }, false},
		{"bad policy", func(c *Config) { c.IdentityFailure = "panic" }, true},
		{"negative interval", func(c *Config) { c.PresenceIntervalSeconds = -1 }, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Default()
			c.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != c.wantErr {
				t.Errorf("error = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("identity_failure = \"panic\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("invalid policy value should fail validation")
	}
}
