package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/packlist/internal/api/handlers"
	"github.com/langchou/packlist/internal/repository/filestore"
	"github.com/langchou/packlist/internal/service"
	"github.com/langchou/packlist/pkg/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newServer 使用文件存储的完整服务端
func newServer(t *testing.T, wrap func(http.Handler) http.Handler) *httptest.Server {
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

	var h http.Handler = r
	if wrap != nil {
		h = wrap(r)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Lifecycle(t *testing.T) {
	srv := newServer(t, nil)
	c := New(srv.URL)
	ctx := context.Background()

	next, err := c.GetNextListID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	created, err := c.CreateList(ctx, Payload{Items: []string{"A", "B", "A"}, DriverName: "Jan", LicensePlate: "1AB2345"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, []string{"A", "B"}, created.Items)

	got, err := c.GetList(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Items, got.Items)

	updated, err := c.UpdateList(ctx, created.ID, Payload{Items: []string{"C"}, DriverName: "Eva", LicensePlate: "2CD"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, updated.Items)
	assert.Equal(t, "Eva", updated.DriverName)

	all, err := c.GetAllLists(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	drivers, err := c.GetDrivers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Eva"}, drivers)

	plates, err := c.GetLicensePlates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2CD"}, plates)

	require.NoError(t, c.DeleteList(ctx, created.ID))

	_, err = c.GetList(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	err = c.DeleteList(ctx, created.ID)
	assert.True(t, IsNotFound(err))
}

func TestClient_UpdateFallsBackWhenPutBlocked(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	blockPut := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			seen = append(seen, r.Method+" "+r.URL.RawQuery+" "+r.Header.Get("X-HTTP-Method-Override"))
			mu.Unlock()
			if r.Method == http.MethodPut {
				http.Error(w, "blocked by proxy", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	srv := newServer(t, blockPut)
	c := New(srv.URL)
	ctx := context.Background()

	created, err := c.CreateList(ctx, Payload{Items: []string{"A"}, DriverName: "Jan", LicensePlate: "1AB"})
	require.NoError(t, err)

	updated, err := c.UpdateList(ctx, created.ID, Payload{Items: []string{"Z"}, DriverName: "Jan", LicensePlate: "1AB"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Z"}, updated.Items)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.Equal(t, "PUT id=1 ", seen[1])
	assert.Equal(t, "POST _method=PUT&id=1 PUT", seen[2])
}

func TestClient_FallbackErrorIsReturned(t *testing.T) {
	srv := newServer(t, nil)
	c := New(srv.URL)

	_, err := c.UpdateList(context.Background(), 9999, Payload{Items: []string{"A"}})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Not found", apiErr.Message)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, WithTimeout(time.Second))
	_, err := c.GetAllLists(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Zero(t, apiErr.Status)
	assert.NotNil(t, apiErr.Err)
	assert.False(t, IsNotFound(err))
}

func TestClient_ErrorWithoutJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetDrivers(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestClient_WithTimeoutKeepsCallerClient(t *testing.T) {
	shared := &http.Client{}
	c := New("http://localhost", WithHTTPClient(shared), WithTimeout(time.Second))

	assert.Zero(t, shared.Timeout)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
	assert.NotSame(t, shared, c.httpClient)
}

func TestClient_PayloadShape(t *testing.T) {
	data, err := json.Marshal(Payload{ID: 3, Items: []string{"A"}, DriverName: "Jan", LicensePlate: "1AB"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"items":["A"],"driverName":"Jan","licensePlate":"1AB"}`, string(data))
}

func TestClient_Watch(t *testing.T) {
	srv := newServer(t, nil)
	c := New(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := make(chan ws.Message, 4)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(m ws.Message) {
			select {
			case msgs <- m:
			default:
			}
		})
	}()

	// 连接建立前的变更不会被收到，重试直到收到消息
	deadline := time.After(3 * time.Second)
	var got ws.Message
loop:
	for {
		_, err := c.CreateList(context.Background(), Payload{Items: []string{"A"}})
		require.NoError(t, err)
		select {
		case got = <-msgs:
			break loop
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("no websocket message received")
		}
	}

	assert.Equal(t, ws.MsgTypeListsChanged, got.Type)
	require.NotNil(t, got.Data)
	assert.Equal(t, service.ActionCreated, got.Data.Action)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
