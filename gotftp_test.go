package gotftp

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/eahydra/gotftp/bootstrap"
	"github.com/eahydra/gotftp/store"
	"github.com/eahydra/gotftp/wire"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memHandler is an in-memory FileHandler for exercising Server end to end
// without touching the filesystem.
type memHandler struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemHandler() *memHandler {
	return &memHandler{files: make(map[string][]byte)}
}

func (h *memHandler) OpenReader(remoteAddr net.Addr, filename string) (store.Reader, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	data, ok := h.files[filename]
	if !ok {
		return nil, store.ErrFileNotFound
	}
	return &memReader{data: data}, nil
}

func (h *memHandler) OpenWriter(remoteAddr net.Addr, filename string) (store.Writer, error) {
	return &memWriter{handler: h, name: filename}, nil
}

type memReader struct{ data []byte }

func (r *memReader) ReadBlock(ctx context.Context, n uint32, size int) ([]byte, error) {
	start := int(n-1) * size
	if start >= len(r.data) {
		return nil, nil
	}
	end := start + size
	if end > len(r.data) {
		end = len(r.data)
	}
	return r.data[start:end], nil
}
func (r *memReader) Size(ctx context.Context) (uint64, bool, error) { return uint64(len(r.data)), true, nil }
func (r *memReader) Close() error                                   { return nil }

type memWriter struct {
	handler *memHandler
	name    string
	buf     []byte
}

func (w *memWriter) WriteBlock(ctx context.Context, n uint32, p []byte) error {
	w.buf = append(w.buf, p...)
	return nil
}
func (w *memWriter) SetSize(n uint64) {}
func (w *memWriter) Finish(ctx context.Context) error {
	w.handler.mu.Lock()
	defer w.handler.mu.Unlock()
	w.handler.files[w.name] = w.buf
	return nil
}
func (w *memWriter) Cancel() error { return nil }

func startTestServer(t *testing.T) (*Server, *memHandler) {
	t.Helper()
	handler := newMemHandler()
	srv, err := NewServer("127.0.0.1:0", handler, 0, clockwork.NewRealClock(), nil)
	require.NoError(t, err)
	go srv.Run()
	t.Cleanup(func() { srv.Close() })
	return srv, handler
}

func TestClientPutThenGetRoundTrip(t *testing.T) {
	srv, handler := startTestServer(t)

	client, err := NewClient(srv.Addr().String(), clockwork.NewRealClock(), nil)
	require.NoError(t, err)

	content := make([]byte, 3*512+17) // spans several blocks, short final one
	for i := range content {
		content[i] = byte(i)
	}
	handler.mu.Lock()
	handler.files["untouched"] = nil
	handler.mu.Unlock()

	uploadReader := &memReader{data: content}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Put(ctx, "uploaded.bin", uploadReader, nil))

	handler.mu.Lock()
	got := handler.files["uploaded.bin"]
	handler.mu.Unlock()
	assert.Equal(t, content, got)

	downloadWriter := &memWriter{handler: handler, name: "roundtrip.bin"}
	require.NoError(t, client.Get(ctx, "uploaded.bin", downloadWriter, nil))
	assert.Equal(t, content, downloadWriter.buf)
}

func TestClientGetMissingFileReturnsError(t *testing.T) {
	srv, _ := startTestServer(t)
	client, err := NewClient(srv.Addr().String(), clockwork.NewRealClock(), nil)
	require.NoError(t, err)

	w := &memWriter{handler: newMemHandler(), name: "x"}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = client.Get(ctx, "nope.bin", w, nil)
	require.Error(t, err)
	var rejected *bootstrap.RequestRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, wire.ErrCodeFileNotFound, rejected.Code)
}
