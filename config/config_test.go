package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
source:
  host: mail.old.example.org
  username: alice
  password: secret
destination:
  host: mail.new.example.org
  username: alice
  password: secret2
database:
  path: /tmp/ledger.db
`)

	cfg, err := loadFile(path)
	if err != nil {
		t.Fatalf("loadFile() error = %v", err)
	}

	if !cfg.Source.UseTLS || !cfg.Destination.UseTLS {
		t.Errorf("TLS default not applied: %+v %+v", cfg.Source, cfg.Destination)
	}
	if cfg.Options.BatchSize != 50 {
		t.Errorf("batch size default = %d, want 50", cfg.Options.BatchSize)
	}
	if cfg.Options.SleepBetweenSeconds != 2 {
		t.Errorf("sleep default = %d, want 2", cfg.Options.SleepBetweenSeconds)
	}
	if cfg.Options.ArchivePrefix != "Migrated/" {
		t.Errorf("archive prefix default = %q", cfg.Options.ArchivePrefix)
	}
}

func TestLoadFile_JSONAndOverrides(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "source": {"host": "a", "username": "u", "password": "p", "port": 1143, "tls": false},
  "destination": {"host": "b", "username": "v", "password": "q"},
  "database": {"path": "ledger.db"},
  "options": {"batch_size": 10, "sleep_between_seconds": 0, "archive_prefix": "Done/"}
}`)

	cfg, err := loadFile(path)
	if err != nil {
		t.Fatalf("loadFile() error = %v", err)
	}

	if cfg.Source.UseTLS {
		t.Errorf("explicit tls=false overridden by default")
	}
	if cfg.Source.Port != 1143 {
		t.Errorf("port = %d, want 1143", cfg.Source.Port)
	}
	if cfg.Options.BatchSize != 10 || cfg.Options.ArchivePrefix != "Done/" {
		t.Errorf("options = %+v", cfg.Options)
	}
	if cfg.Options.SleepBetween() != 0 {
		t.Errorf("SleepBetween() = %v, want 0", cfg.Options.SleepBetween())
	}
}

func TestLoadFile_PasswordFromEnv(t *testing.T) {
	t.Setenv("SRC_IMAP_PASS", "envsecret")

	path := writeFile(t, "config.yaml", `
source:
  host: a
  username: u
destination:
  host: b
  username: v
  password: q
database:
  path: ledger.db
`)

	cfg, err := loadFile(path)
	if err != nil {
		t.Fatalf("loadFile() error = %v", err)
	}
	if cfg.Source.Password != "envsecret" {
		t.Errorf("source password = %q, want env fallback", cfg.Source.Password)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{LogLevel: "info"}
	valid.Source.Host = "a"
	valid.Source.Username = "u"
	valid.Source.Password = "p"
	valid.Destination.Host = "b"
	valid.Destination.Username = "v"
	valid.Destination.Password = "q"
	valid.Database.Path = "ledger.db"
	valid.Options.BatchSize = 50

	if err := validate(valid); err != nil {
		t.Fatalf("validate() error = %v for a valid config", err)
	}

	broken := valid
	broken.Database.Path = ""
	if err := validate(broken); err == nil {
		t.Errorf("missing database path not rejected")
	}

	broken = valid
	broken.Options.BatchSize = 0
	if err := validate(broken); err == nil {
		t.Errorf("zero batch size not rejected")
	}

	broken = valid
	broken.LogLevel = "loud"
	if err := validate(broken); err == nil {
		t.Errorf("bogus log level not rejected")
	}
}

func TestLoadMapping(t *testing.T) {
	yamlPath := writeFile(t, "mapping.yaml", "INBOX: Imported\nSent: \"Sent Items\"\n")
	mapping, err := LoadMapping(yamlPath)
	if err != nil {
		t.Fatalf("LoadMapping(yaml) error = %v", err)
	}
	if mapping["INBOX"] != "Imported" || mapping["Sent"] != "Sent Items" {
		t.Errorf("yaml mapping = %v", mapping)
	}

	jsonPath := writeFile(t, "mapping.json", `{"INBOX": "Imported"}`)
	mapping, err = LoadMapping(jsonPath)
	if err != nil {
		t.Fatalf("LoadMapping(json) error = %v", err)
	}
	if mapping["INBOX"] != "Imported" {
		t.Errorf("json mapping = %v", mapping)
	}

	txtPath := writeFile(t, "mapping.txt", "INBOX=Imported")
	if _, err := LoadMapping(txtPath); err == nil {
		t.Errorf("unknown extension not rejected")
	}
}

func TestLoadExcludes(t *testing.T) {
	path := writeFile(t, "excludes.txt", "Spam\n\n  Trash  \nDrafts\n")
	excludes, err := LoadExcludes(path)
	if err != nil {
		t.Fatalf("LoadExcludes() error = %v", err)
	}

	for _, name := range []string{"Spam", "Trash", "Drafts"} {
		if _, ok := excludes[name]; !ok {
			t.Errorf("%s missing from exclude set", name)
		}
	}
	if len(excludes) != 3 {
		t.Errorf("exclude set = %v, want 3 entries", excludes)
	}
}
