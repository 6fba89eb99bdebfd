package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dangehub/obsidian-lunar-solar-sync/internal/convert"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/lunar"
)

func initStore(t *testing.T) *Store {
	t.Helper()
	home := filepath.Join(t.TempDir(), ".lunarsync")
	if err := Init(home, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return s
}

func TestInit(t *testing.T) {
	home := filepath.Join(t.TempDir(), ".lunarsync")

	if err := Init(home, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if info, err := os.Stat(filepath.Join(home, "logs")); err != nil || !info.IsDir() {
		t.Error("expected logs directory to exist")
	}
	if _, err := os.Stat(filepath.Join(home, "config.yaml")); err != nil {
		t.Error("expected config.yaml to exist")
	}

	// Second init should fail without force
	if err := Init(home, false); err == nil {
		t.Error("expected error on duplicate init")
	}
	if err := Init(home, true); err != nil {
		t.Errorf("expected force init to succeed: %v", err)
	}
}

func TestLoad(t *testing.T) {
	s := initStore(t)
	if diff := cmp.Diff(DefaultConfig(), s.Config); diff != "" {
		t.Errorf("fresh config (-want +got):\n%s", diff)
	}
}

func TestLoadMergesDefaultsAndNormalizes(t *testing.T) {
	s := initStore(t)
	raw := "version: \"1\"\nconversion:\n  output_mode: weekly\n  range_past: -4\n  range_future: 900\n  source_key: birthday_lunar\n"
	if err := os.WriteFile(s.Path("config.yaml"), []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(s.Home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	c := loaded.Config.Conversion
	if c.SourceKey != "birthday_lunar" {
		t.Errorf("source_key = %q", c.SourceKey)
	}
	if c.OutputMode != convert.Single || c.RangePast != 0 || c.RangeFuture != convert.MaxRange {
		t.Errorf("not normalized: %+v", c)
	}
	if c.OutputKeySingle != "solar_date" || !loaded.Config.Notify.Enabled {
		t.Error("missing fields should come from defaults")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	s := initStore(t)
	os.WriteFile(s.Path("config.yaml"), []byte("conversion: [\n"), 0644)
	if _, err := Load(s.Home); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestPath(t *testing.T) {
	s := &Store{Home: "/tmp/.lunarsync"}
	got := s.Path("logs", "lunarsync.log")
	if got != s.LogPath() {
		t.Errorf("Path() = %s, LogPath() = %s", got, s.LogPath())
	}
}

func TestHomeEnvVar(t *testing.T) {
	t.Setenv("LUNARSYNC_HOME", "/custom/path")
	if got := Home(); got != "/custom/path" {
		t.Errorf("Home() = %s, want /custom/path", got)
	}
}

func TestSetConfigValue(t *testing.T) {
	s := initStore(t)

	sets := [][2]string{
		{"conversion.output_mode", "range"},
		{"conversion.output_key_pattern", "[birthday]-YYYY"},
		{"conversion.default_leap_strategy", "向后"},
		{"conversion.range_future", "5"},
		{"conversion.target_paths", "People, Family/Grandma.md,,"},
		{"notify.enabled", "false"},
		{"watch.debounce_ms", "1000"},
	}
	for _, kv := range sets {
		if err := s.SetConfigValue(kv[0], kv[1]); err != nil {
			t.Fatalf("SetConfigValue(%s): %v", kv[0], err)
		}
	}

	// Reload and verify persistence
	s2, err := Load(s.Home)
	if err != nil {
		t.Fatal(err)
	}
	c := s2.Config
	if c.Conversion.OutputMode != convert.Range || c.Conversion.OutputKeyPattern != "[birthday]-YYYY" {
		t.Errorf("conversion not persisted: %+v", c.Conversion)
	}
	if c.Conversion.DefaultLeapStrategy != lunar.Backward || c.Conversion.RangeFuture != 5 {
		t.Errorf("strategy/range not persisted: %+v", c.Conversion)
	}
	if diff := cmp.Diff([]string{"People", "Family/Grandma.md"}, c.Conversion.TargetPaths); diff != "" {
		t.Errorf("target_paths (-want +got):\n%s", diff)
	}
	if c.Notify.Enabled || c.Watch.DebounceMS != 1000 {
		t.Errorf("notify/watch not persisted: %+v %+v", c.Notify, c.Watch)
	}
}

func TestSetConfigValue_VaultPathIsAbsolute(t *testing.T) {
	s := initStore(t)
	if err := s.SetConfigValue("vault.path", "notes"); err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(s.Config.Vault.Path) {
		t.Errorf("vault.path = %q, want absolute", s.Config.Vault.Path)
	}
}

func TestSetConfigValue_RangeIsCorrected(t *testing.T) {
	cases := []struct {
		value string
		want  int
	}{
		{"7", 7},
		{" 2 ", 2},
		{"-5", 0},
		{"100000", convert.MaxRange},
		{"abc", convert.DefaultSettings().RangePast},
		{"", convert.DefaultSettings().RangePast},
	}
	s := initStore(t)
	for _, tc := range cases {
		if err := s.SetConfigValue("conversion.range_past", tc.value); err != nil {
			t.Fatalf("SetConfigValue(%q): %v", tc.value, err)
		}
		if s.Config.Conversion.RangePast != tc.want {
			t.Errorf("range_past after %q = %d, want %d", tc.value, s.Config.Conversion.RangePast, tc.want)
		}
	}
}

func TestSetConfigValue_Rejects(t *testing.T) {
	s := initStore(t)
	cases := [][2]string{
		{"nonexistent.key", "value"},
		{"conversion.output_mode", "weekly"},
		{"conversion.default_leap_strategy", "sideways"},
		{"notify.enabled", "maybe"},
		{"watch.debounce_ms", "0"},
	}
	for _, kv := range cases {
		if err := s.SetConfigValue(kv[0], kv[1]); err == nil {
			t.Errorf("SetConfigValue(%s, %s) should fail", kv[0], kv[1])
		}
	}
	if diff := cmp.Diff(DefaultConfig(), s.Config); diff != "" {
		t.Errorf("rejected values must not change config (-want +got):\n%s", diff)
	}
}

func TestSetConfigValue_BlankKeyRestoresDefault(t *testing.T) {
	s := initStore(t)
	if err := s.SetConfigValue("conversion.source_key", "  "); err != nil {
		t.Fatal(err)
	}
	if s.Config.Conversion.SourceKey != "lunar_date" {
		t.Errorf("source_key = %q", s.Config.Conversion.SourceKey)
	}
}

func TestCheckHealth(t *testing.T) {
	s := initStore(t)

	issues := CheckHealth(s.Home)
	if len(issues) != 1 || issues[0].Severity != "warning" || !strings.Contains(issues[0].Message, "no vault") {
		t.Errorf("expected only the missing vault warning, got %v", issues)
	}

	vaultDir := t.TempDir()
	if err := s.SetConfigValue("vault.path", vaultDir); err != nil {
		t.Fatal(err)
	}
	if issues := CheckHealth(s.Home); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}

	os.RemoveAll(s.Path("logs"))
	os.WriteFile(s.Path("config.yaml"), []byte("vault:\n  path: "+vaultDir+"\nconversion:\n  range_past: -1\n"), 0644)
	issues = CheckHealth(s.Home)
	if len(issues) != 2 {
		t.Errorf("expected missing logs and range warning, got %v", issues)
	}
}

func TestFixIssues(t *testing.T) {
	s := initStore(t)
	os.RemoveAll(s.Path("logs"))

	fixed := FixIssues(s.Home)
	if len(fixed) == 0 {
		t.Error("expected at least one fix")
	}
	if _, err := os.Stat(s.Path("logs")); err != nil {
		t.Error("logs dir not recreated")
	}

	os.Remove(s.Path("config.yaml"))
	if fixed := FixIssues(s.Home); len(fixed) != 1 {
		t.Errorf("expected config to be recreated, got %v", fixed)
	}
	if fixed := FixIssues(s.Home); len(fixed) != 0 {
		t.Errorf("healthy home needs no fixes, got %v", fixed)
	}
}
