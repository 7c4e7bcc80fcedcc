package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blogstub"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/config"
)

type harness struct {
	t       *testing.T
	baseURL string
	config  string
	dir     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := blogstub.NewStore(nil)
	require.NoError(t, store.Seed([]blogstub.SeedUser{
		{Username: "author", Password: "author-pass", Author: "Atom Author"},
		{Username: "reader", Password: "reader-pass", Email: "reader@example.com"},
	}))
	engine := gin.New()
	blogstub.New(config.StubConfig{
		AccessSecret:  "a",
		RefreshSecret: "r",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, store, zerolog.Nop()).Register(engine)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "authorpanel.yaml")
	content := fmt.Sprintf("session:\n  store: file\n  path: %s\n", filepath.Join(dir, "session.json"))
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o600))

	return &harness{t: t, baseURL: srv.URL, config: cfgFile, dir: dir}
}

func (h *harness) run(stdin string, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	root := NewRootCmd(strings.NewReader(stdin), &out, &errOut)
	root.SetArgs(append([]string{"--config", h.config, "--base-url", h.baseURL, "--no-color"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run("", args...)
	require.NoError(h.t, err, errOut)
	return out
}

func (h *harness) login() {
	h.t.Helper()
	h.mustRun("login", "-u", "author", "-p", "author-pass")
}

func TestDateCommands(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "2025-04-04\n", h.mustRun("date", "to-gregorian", "1404/01/15"))
	assert.Equal(t, "1404/01/15\n", h.mustRun("date", "to-jalali", "2025-04-04"))
	assert.Equal(t, "2025-04-04 10:00\n", h.mustRun("date", "normalize", "۱۴۰۴/۰۱/۱۵ 10:00"))

	var out dateOutput
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "date", "to-gregorian", "1404-1-15")), &out))
	assert.Equal(t, "2025-04-04", out.Gregorian)
	assert.Equal(t, "1404/01/15", out.Jalali)
	assert.Equal(t, "Friday", out.Weekday)

	_, errOut, err := h.run("", "date", "to-gregorian", "1404/13/01")
	require.Error(t, err)
	assert.Contains(t, errOut, "not a valid Jalali date")

	_, _, err = h.run("", "date", "to-jalali", "2025-02-30")
	require.Error(t, err)
}

func TestLoginRequiresAuthorProfile(t *testing.T) {
	h := newHarness(t)

	_, errOut, err := h.run("", "login", "-u", "reader", "-p", "reader-pass")
	require.Error(t, err)
	assert.Contains(t, errOut, "no author profile")

	out, _, err := h.run("", "session", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")

	out, _, err = h.run("author-pass\n", "login", "-u", "author")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Atom Author")

	assert.Contains(t, h.mustRun("whoami"), "author")

	var st sessionStatus
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "session", "status")), &st))
	assert.True(t, st.LoggedIn)
	assert.True(t, st.HasRefresh)
	require.NotNil(t, st.ExpiresAt)
	require.NotNil(t, st.RefreshAt)
	assert.False(t, st.RefreshAt.After(*st.ExpiresAt))

	assert.Contains(t, h.mustRun("logout"), "Logged out")
	_, errOut, err = h.run("", "whoami")
	require.Error(t, err)
	assert.Contains(t, errOut, "Not logged in")
}

func TestCommandsNeedSession(t *testing.T) {
	h := newHarness(t)

	out, errOut, err := h.run("", "posts", "list")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "authorpanel login")
	assert.NotContains(t, errOut, "✗")
}

func TestPostsLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login()

	out := h.mustRun("posts", "list", "--order", "title")
	assert.Contains(t, out, "welcome-to-atom")
	assert.Contains(t, out, "rpg-roundup")
	assert.Contains(t, out, "1-3 of 3")
	assert.Less(t, strings.Index(out, "rpg-roundup"), strings.Index(out, "welcome-to-atom"))

	var page pageOutput
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "posts", "list", "--status", "draft")), &page))
	require.Len(t, page.Results, 1)
	assert.Equal(t, "rpg-roundup", page.Results[0]["slug"])

	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "posts", "list", "--tag", "indie")), &page))
	require.Len(t, page.Results, 1)
	assert.Equal(t, "welcome-to-atom", page.Results[0]["slug"])

	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "posts", "list", "--page-size", "2", "--page", "9")), &page))
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Results, 1)

	out = h.mustRun("posts", "create",
		"--set", "title=Patch notes",
		"--set", "excerpt=What changed",
		"--set", "content=Lots.",
		"--set", "category_id=1",
		"--set", "tag_ids=[1, 2]",
		"--set", "status=scheduled",
		"--set", "scheduled_at=1404/01/15 10:00",
	)
	assert.Contains(t, out, "Created post patch-notes")

	var post map[string]any
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "posts", "get", "patch-notes")), &post))
	assert.Equal(t, "2025-04-04T10:00:00Z", post["scheduled_at"])

	out = h.mustRun("posts", "edit", "patch-notes", "--set", "title=Patch notes v2", "--set", "status=draft")
	assert.Contains(t, out, "Saved post patch-notes")
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "posts", "get", "patch-notes")), &post))
	assert.Equal(t, "Patch notes v2", post["title"])
	assert.Len(t, post["tags"], 2)

	out, _, err := h.run("n\n", "posts", "publish", "patch-notes")
	require.NoError(t, err)
	assert.Contains(t, out, "Run publish on posts patch-notes? [y/N]")
	assert.Contains(t, out, "Cancelled")

	out = h.mustRun("posts", "publish", "patch-notes", "--force")
	assert.Contains(t, out, "Published patch-notes")

	out = h.mustRun("posts", "delete", "patch-notes", "-f")
	assert.Contains(t, out, "Deleted post patch-notes")
	_, errOut, err := h.run("", "posts", "get", "patch-notes")
	require.Error(t, err)
	assert.Contains(t, errOut, "✗")
}

func TestCreateReportsLocalValidation(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, errOut, err := h.run("", "posts", "create", "--set", "title=Only a title")
	require.Error(t, err)
	assert.Contains(t, errOut, "excerpt")
	assert.Contains(t, errOut, "content")
	assert.Contains(t, errOut, "category_id")
}

func TestCreateFromFile(t *testing.T) {
	h := newHarness(t)
	h.login()

	file := filepath.Join(h.dir, "tag.yaml")
	require.NoError(t, os.WriteFile(file, []byte("name: Strategy\nslug: strategy\n"), 0o600))
	out := h.mustRun("tags", "create", "-F", file, "--set", "description=Turn based")
	assert.Contains(t, out, "Created tag")

	out = h.mustRun("tags", "list", "-s", "turn based")
	assert.Contains(t, out, "strategy")
	assert.NotContains(t, out, "indie")
}

func TestDeleteDeclinedKeepsRecord(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, _, err := h.run("no\n", "categories", "delete", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.Contains(t, h.mustRun("categories", "get", "2"), "Guides")
}

func TestCommentsListHydratesReferences(t *testing.T) {
	h := newHarness(t)
	h.login()

	out := h.mustRun("comments", "list")
	assert.Contains(t, out, "Welcome to Atom")
	assert.Contains(t, out, "author")

	var page pageOutput
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "comments", "list", "--status", "pending")), &page))
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Great start!", page.Results[0]["content"])

	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "comments", "list", "-s", "welcome-to-atom")), &page))
	assert.Len(t, page.Results, 2)
}

func TestDashboardCommand(t *testing.T) {
	h := newHarness(t)
	h.login()

	out := h.mustRun("dashboard")
	assert.Contains(t, out, "Latest posts")
	assert.Contains(t, out, "Welcome to Atom")
	assert.Contains(t, out, "Top categories")

	var d dashboardOutput
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "dashboard")), &d))
	assert.Equal(t, 1, d.Published)
	assert.Equal(t, 2, d.DraftLike)
	require.NotNil(t, d.PendingComments)
	assert.Equal(t, 1, *d.PendingComments)
	require.NotNil(t, d.MediaTotal)
	assert.Equal(t, 1, *d.MediaTotal)
	assert.Len(t, d.Interactions, 7)
}

func TestUsersSearch(t *testing.T) {
	h := newHarness(t)
	h.login()

	assert.Contains(t, h.mustRun("users", "search", "reader@example.com"), "reader")
	assert.Contains(t, h.mustRun("users", "search", "nobody"), "No users found")
}

func TestMediaUpload(t *testing.T) {
	h := newHarness(t)
	h.login()

	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 32)...)
	file := filepath.Join(h.dir, "cover.png")
	require.NoError(t, os.WriteFile(file, png, 0o600))

	out := h.mustRun("media", "upload", file, "--alt", "Cover art")
	assert.Contains(t, out, "Uploaded cover.png as media #2")
	assert.Contains(t, h.mustRun("media", "list"), "cover.png")

	fake := filepath.Join(h.dir, "fake.png")
	require.NoError(t, os.WriteFile(fake, []byte("GIF89a-not-a-png"), 0o600))
	_, errOut, err := h.run("", "media", "upload", fake)
	require.Error(t, err)
	assert.Contains(t, errOut, "does not match")
}

func TestExportToFile(t *testing.T) {
	h := newHarness(t)
	h.login()

	target := filepath.Join(h.dir, "exports", "posts.json")
	out := h.mustRun("export", "posts", "--out", target)
	assert.Contains(t, out, "Exported 3 posts")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	var snap struct {
		ID       string           `json:"id"`
		Resource string           `json:"resource"`
		Count    int              `json:"count"`
		Items    []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "posts", snap.Resource)
	assert.Equal(t, 3, snap.Count)
	assert.Len(t, snap.Items, 3)
	assert.NotEmpty(t, snap.ID)

	_, _, err = h.run("", "export", "widgets")
	require.Error(t, err)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 3, parseValue("3"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, []any{1, 2}, parseValue("[1, 2]"))
	assert.Equal(t, "Patch notes", parseValue("Patch notes"))
	assert.Equal(t, "a: b", parseValue("a: b"))
	assert.Equal(t, "", parseValue(" "))
}

func TestReadInputSetWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"name": "From file", "order": 4}`), 0o600))

	cmd := &cobra.Command{Use: "x"}
	addInputFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"-F", file, "--set", "name=From flag"}))

	fields, err := readInput(cmd, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "From flag", fields["name"])
	assert.Equal(t, 4, fields["order"])

	cmd = &cobra.Command{Use: "x"}
	addInputFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--set", "novalue"}))
	_, err = readInput(cmd, strings.NewReader(""))
	require.Error(t, err)
}
