package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/packlist/internal/api/handlers"
	"github.com/langchou/packlist/internal/autocomplete"
	"github.com/langchou/packlist/internal/client"
	"github.com/langchou/packlist/internal/config"
	"github.com/langchou/packlist/internal/editor"
	"github.com/langchou/packlist/internal/listview"
	"github.com/langchou/packlist/internal/repository/filestore"
	"github.com/langchou/packlist/internal/service"
	"github.com/langchou/packlist/pkg/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// syncBuffer ls --watch 在读取 goroutine 中写输出
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// scriptPrompter 按顺序返回预设输入，用完后返回 io.EOF
type scriptPrompter struct {
	lines   []string
	prompts []string
}

func (p *scriptPrompter) Prompt(prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if len(p.lines) == 0 {
		return "", io.EOF
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

func (p *scriptPrompter) Close() error { return nil }

type testEnv struct {
	srv    *httptest.Server
	hub    *ws.Hub
	api    *client.Client
	drafts string
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := filestore.New(filepath.Join(t.TempDir(), "lists.json"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := ws.NewHub(zap.NewNop())
	go hub.Run(ctx)

	svc := service.NewListService(zap.NewNop(), store, service.WithNotifier(hub))
	r := gin.New()
	handlers.NewHandler(zap.NewNop(), svc, hub).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{
		srv:    srv,
		hub:    hub,
		api:    client.New(srv.URL),
		drafts: filepath.Join(t.TempDir(), "draft.json"),
	}
}

// run 执行一次命令，input 为交互输入
func (e *testEnv) run(ctx context.Context, args []string, input ...string) (string, string, int, *scriptPrompter) {
	out, errOut := &syncBuffer{}, &syncBuffer{}
	p := &scriptPrompter{lines: input}
	a := &app{
		cfg:         &config.ClientConfig{ServerURL: e.srv.URL, Timeout: 5 * time.Second},
		out:         out,
		errOut:      errOut,
		logger:      zap.NewNop(),
		draftPath:   e.drafts,
		newPrompter: func(func(string) []string) prompter { return p },
	}
	code := a.run(ctx, args)
	return out.String(), errOut.String(), code, p
}

func (e *testEnv) create(t *testing.T, items []string, driver, plate string) int64 {
	t.Helper()
	list, err := e.api.CreateList(context.Background(), client.Payload{Items: items, DriverName: driver, LicensePlate: plate})
	require.NoError(t, err)
	return list.ID
}

func TestRun_Usage(t *testing.T) {
	env := newEnv(t)

	out, _, code, _ := env.run(context.Background(), nil)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Usage: packlist")

	_, errOut, code, _ := env.run(context.Background(), []string{"frobnicate"})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown command: frobnicate")

	_, errOut, code, _ = env.run(context.Background(), []string{"--bogus", "ls"})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown flag")
}

func TestSortState(t *testing.T) {
	tests := []struct {
		key       string
		asc, desc bool
		want      listview.SortState
	}{
		{key: "id", want: listview.SortState{Key: listview.KeyID, Dir: listview.Desc}},
		{key: "id", asc: true, want: listview.SortState{Key: listview.KeyID, Dir: listview.Asc}},
		{key: "driver", want: listview.SortState{Key: listview.KeyDriver, Dir: listview.Asc}},
		{key: "itemCount", desc: true, want: listview.SortState{Key: listview.KeyItemCount, Dir: listview.Desc}},
	}
	for _, tt := range tests {
		got, err := sortState(tt.key, tt.asc, tt.desc)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.key)
	}

	_, err := sortState("weight", false, false)
	assert.Error(t, err)
}

func TestLs(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	out, _, code, _ := env.run(ctx, []string{"ls"})
	assert.Equal(t, 0, code)
	assert.Equal(t, "No lists.\n", out)

	env.create(t, []string{"A"}, "Zed", "9ZZ")
	env.create(t, []string{"A", "B", "C"}, "Adam", "1AA")

	out, _, code, _ = env.run(ctx, []string{"ls", "--sort", "driver"})
	assert.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.True(t, strings.HasPrefix(lines[1], "2 "), lines[1])
	assert.Contains(t, lines[1], "Adam")
	assert.Contains(t, lines[2], "Zed")

	_, errOut, code, _ := env.run(ctx, []string{"ls", "--asc", "--desc"})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "mutually exclusive")
}

func TestLs_WatchRefreshesOnChange(t *testing.T) {
	env := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	out, errOut := &syncBuffer{}, &syncBuffer{}
	a := &app{
		cfg:    &config.ClientConfig{ServerURL: env.srv.URL, Timeout: 5 * time.Second},
		out:    out,
		errOut: errOut,
		logger: zap.NewNop(),
	}

	done := make(chan int, 1)
	go func() { done <- a.run(ctx, []string{"ls", "--watch"}) }()

	require.Eventually(t, func() bool { return env.hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "No lists.\n", out.String())

	env.create(t, []string{"A"}, "Jan", "1AB")
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Jan") }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code, errOut.String())
	case <-time.After(5 * time.Second):
		t.Fatal("ls --watch did not stop")
	}
}

func TestShowAndPrint(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	id := env.create(t, []string{"A", "B"}, "Jan", "1AB2345")

	out, _, code, _ := env.run(ctx, []string{"show", "1"})
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Driver:  Jan")
	assert.Contains(t, out, "SPZ:     1AB2345")
	assert.Contains(t, out, "  1. A\n  2. B\n")

	out, _, code, _ = env.run(ctx, []string{"print", "--page-size", "1", "1"})
	assert.Equal(t, 0, code)
	assert.Equal(t, int64(1), id)
	assert.Contains(t, out, "ID: 1\n")
	assert.Contains(t, out, "SPZ: 1AB2345")
	assert.Contains(t, out, "Items (continued)")
	assert.Equal(t, 1, strings.Count(out, "\f"))

	_, errOut, code, _ := env.run(ctx, []string{"show", "99"})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "list 99: Not found")

	_, errOut, code, _ = env.run(ctx, []string{"show", "abc"})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `invalid list id "abc"`)
}

func TestRm(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.create(t, []string{"A"}, "Jan", "1AB")

	out, _, code, p := env.run(ctx, []string{"rm", "1"}, "n")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Cancelled.")
	assert.Equal(t, []string{"Are you sure you want to delete list 1? (y/N): "}, p.prompts)

	out, _, code, _ = env.run(ctx, []string{"rm", "--yes", "1"})
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Deleted list 1.")

	_, errOut, code, _ := env.run(ctx, []string{"rm", "-y", "1"})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "list 1: Not found")
}

func TestNextID(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	out, _, code, _ := env.run(ctx, []string{"next-id"})
	assert.Equal(t, 0, code)
	assert.Equal(t, "1\n", out)

	env.create(t, nil, "", "")
	out, _, _, _ = env.run(ctx, []string{"next-id"})
	assert.Equal(t, "2\n", out)
}

func TestNew_SavesAndClearsDraft(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	out, _, code, _ := env.run(ctx, []string{"new"},
		"driver Jan", "plate 1AB2345", "add A", "add B", "add A", "save")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "nothing added")
	assert.Contains(t, out, "-> overview")

	list, err := env.api.GetList(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, list.Items)
	assert.Equal(t, "Jan", list.DriverName)

	_, err = os.Stat(env.drafts)
	assert.True(t, os.IsNotExist(err))
}

func TestNew_ValidationKeepsDraft(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	out, _, code, _ := env.run(ctx, []string{"new"}, "add A", "save")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "! Driver name is required.")
	assert.Contains(t, out, "set it with: driver <name>")

	items, err := editor.FileDrafts{Path: env.drafts}.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, items)

	lists, err := env.api.GetAllLists(ctx)
	require.NoError(t, err)
	assert.Empty(t, lists)

	// 下次新建时恢复草稿
	out, _, _, _ = env.run(ctx, []string{"new"})
	assert.Contains(t, out, "  1. A\n")

	out, _, _, _ = env.run(ctx, []string{"new", "--discard-draft"})
	assert.Contains(t, out, "(no items)")
}

func TestEdit_DeleteNeedsConfirmation(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.create(t, []string{"A", "B"}, "Jan", "1AB")

	out, _, code, p := env.run(ctx, []string{"edit", "1"}, "del 1", "n", "del 1", "y", "save")
	require.Equal(t, 0, code)
	assert.Contains(t, p.prompts, `Are you sure you want to delete "A"? (y/N): `)
	assert.Contains(t, p.prompts, "packlist*> ")
	assert.Contains(t, out, "-> view(1)")

	list, err := env.api.GetList(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, list.Items)
}

func TestEdit_ReturnsToOrigin(t *testing.T) {
	env := newEnv(t)
	env.create(t, []string{"A"}, "Jan", "1AB")

	out, _, code, _ := env.run(context.Background(), []string{"edit", "--from", "overview", "1"}, "add B", "save")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "-> overview")

	_, errOut, code, _ := env.run(context.Background(), []string{"edit", "--from", "sideways", "1"})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "--from must be view or overview")
}

func TestEdit_QuitWithUnsavedChangesAsks(t *testing.T) {
	env := newEnv(t)
	env.create(t, []string{"A"}, "Jan", "1AB")

	_, _, code, p := env.run(context.Background(), []string{"edit", "1"}, "add B", "quit", "n", "quit", "y")
	require.Equal(t, 0, code)
	assert.Equal(t, 2, countPrefix(p.prompts, "Discard unsaved changes?"))

	list, err := env.api.GetList(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, list.Items)
}

func TestEdit_NotFound(t *testing.T) {
	env := newEnv(t)

	out, errOut, code, _ := env.run(context.Background(), []string{"edit", "42"})
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "! Not found")
	assert.Contains(t, out, "-> overview")
	assert.Contains(t, errOut, "load list 42")
}

func TestSession_Complete(t *testing.T) {
	env := newEnv(t)
	env.create(t, nil, "Jan", "1AB")
	env.create(t, nil, "Jana", "2CD")

	cache := autocomplete.New(env.api, zap.NewNop())
	cache.Load(context.Background())
	s := &session{cache: cache}

	assert.Equal(t, []string{"driver ", "del "}, s.complete("d"))
	assert.Equal(t, []string{"driver Jan", "driver Jana"}, s.complete("driver ja"))
	assert.Equal(t, []string{"plate 2CD"}, s.complete("plate 2"))
	assert.Nil(t, s.complete("add x"))
}

func countPrefix(values []string, prefix string) int {
	n := 0
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			n++
		}
	}
	return n
}
