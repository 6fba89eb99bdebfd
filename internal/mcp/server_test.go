package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dangehub/obsidian-lunar-solar-sync/internal/store"
)

func setupServer(t *testing.T) (*Server, string) {
	t.Helper()
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".lunarsync")
	vaultDir := filepath.Join(tmp, "vault")
	if err := store.Init(home, false); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(vaultDir, "People"), 0755); err != nil {
		t.Fatal(err)
	}
	notes := map[string]string{
		"People/Grandma.md": "---\nlunar_date: 1950-01-01\n---\n",
		"People/Draft.md":   "no frontmatter\n",
	}
	for name, content := range notes {
		if err := os.WriteFile(filepath.Join(vaultDir, filepath.FromSlash(name)), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	st, err := store.Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SetConfigValue("vault.path", vaultDir); err != nil {
		t.Fatal(err)
	}

	s := NewServer(st, "test", nil)
	s.resolver.Now = func() time.Time {
		return time.Date(2023, time.January, 1, 8, 0, 0, 0, time.Local)
	}
	return s, vaultDir
}

func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverT, clientT := mcp.NewInMemoryTransports()
	if _, err := s.server.Connect(ctx, serverT, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

// call invokes a tool and decodes its JSON text content into out.
// It returns the tool error text, if any.
func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) string {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(res.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): content is %T", name, res.Content[0])
	}
	if res.IsError {
		return text.Text
	}
	if err := json.Unmarshal([]byte(text.Text), out); err != nil {
		t.Fatalf("decode %s result: %v\n%s", name, err, text.Text)
	}
	return ""
}

func TestTools_Listed(t *testing.T) {
	s, _ := setupServer(t)
	cs := connect(t, s)
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	for _, want := range []string{"lunar_convert", "note_sync", "vault_sync", "lunar_settings"} {
		found := false
		for _, n := range names {
			found = found || n == want
		}
		if !found {
			t.Errorf("tool %s not registered (have %v)", want, names)
		}
	}
}

func TestLunarConvert(t *testing.T) {
	s, _ := setupServer(t)
	cs := connect(t, s)

	var next ConvertResult
	if msg := call(t, cs, "lunar_convert", map[string]any{"date": "农历2023-01-01"}, &next); msg != "" {
		t.Fatalf("tool error: %s", msg)
	}
	if next.Next != "2023-01-22" || next.Strategy != "forward" || next.Lunar != "2023-01-01" {
		t.Errorf("next = %+v", next)
	}

	var rng ConvertResult
	args := map[string]any{"date": "2023-01-01", "mode": "range", "past": 0, "future": 1, "strategy": "严格"}
	if msg := call(t, cs, "lunar_convert", args, &rng); msg != "" {
		t.Fatalf("tool error: %s", msg)
	}
	want := []RangeEntry{{"solar_2023", "2023-01-22"}, {"solar_2024", "2024-02-10"}}
	if diff := cmp.Diff(want, rng.Range); diff != "" {
		t.Errorf("range (-want +got):\n%s", diff)
	}
	if rng.Strategy != "strict" {
		t.Errorf("strategy = %q", rng.Strategy)
	}
}

func TestLunarConvert_Errors(t *testing.T) {
	s, _ := setupServer(t)
	cs := connect(t, s)

	cases := []map[string]any{
		{"date": "yesterday"},
		{"date": "2023-01-01", "strategy": "sideways"},
		{"date": "2023-01-01", "mode": "weekly"},
	}
	for _, args := range cases {
		var out ConvertResult
		if msg := call(t, cs, "lunar_convert", args, &out); msg == "" {
			t.Errorf("expected tool error for %v", args)
		}
	}
}

func TestLunarConvert_UnknownStrategyListsChoices(t *testing.T) {
	s, _ := setupServer(t)
	cs := connect(t, s)

	var out ConvertResult
	msg := call(t, cs, "lunar_convert", map[string]any{"date": "2023-01-01", "strategy": "sideways"}, &out)
	if !strings.Contains(msg, "strict, forward, backward") {
		t.Errorf("error = %q, want the strategy list", msg)
	}
}

func TestNoteSync(t *testing.T) {
	s, vaultDir := setupServer(t)
	cs := connect(t, s)

	var dry OutcomeResult
	if msg := call(t, cs, "note_sync", map[string]any{"path": "People/Grandma.md", "dry_run": true}, &dry); msg != "" {
		t.Fatalf("tool error: %s", msg)
	}
	if dry.Status != "updated" || dry.Changes["solar_date"] != "2023-01-22" {
		t.Errorf("dry run = %+v", dry)
	}
	data, _ := os.ReadFile(filepath.Join(vaultDir, "People", "Grandma.md"))
	if strings.Contains(string(data), "solar_date") {
		t.Error("dry run wrote to disk")
	}

	var synced OutcomeResult
	if msg := call(t, cs, "note_sync", map[string]any{"path": "People/Grandma.md"}, &synced); msg != "" {
		t.Fatalf("tool error: %s", msg)
	}
	if synced.Status != "updated" || synced.Path != "People/Grandma.md" {
		t.Errorf("sync = %+v", synced)
	}

	var missing OutcomeResult
	if msg := call(t, cs, "note_sync", map[string]any{"path": "People/Nobody.md"}, &missing); msg == "" {
		t.Error("expected tool error for a missing note")
	}
}

func TestVaultSync(t *testing.T) {
	s, _ := setupServer(t)
	cs := connect(t, s)

	var out VaultSyncResult
	if msg := call(t, cs, "vault_sync", map[string]any{}, &out); msg != "" {
		t.Fatalf("tool error: %s", msg)
	}
	if out.Updated != 1 || out.Skipped != 1 || len(out.Outcomes) != 2 {
		t.Errorf("vault_sync = %+v", out)
	}

	var again VaultSyncResult
	call(t, cs, "vault_sync", map[string]any{}, &again)
	if again.Unchanged != 1 || again.Updated != 0 {
		t.Errorf("second vault_sync = %+v", again)
	}
}

func TestLunarSettings(t *testing.T) {
	s, vaultDir := setupServer(t)
	cs := connect(t, s)

	var out SettingsResult
	if msg := call(t, cs, "lunar_settings", map[string]any{}, &out); msg != "" {
		t.Fatalf("tool error: %s", msg)
	}
	if out.Vault != vaultDir || out.Conversion.SourceKey != "lunar_date" {
		t.Errorf("settings = %+v", out)
	}
}
