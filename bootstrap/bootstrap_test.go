package bootstrap

import (
	"context"
	"net"
	"testing"

	"github.com/eahydra/gotftp/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	sent   [][]byte
	addrs  []net.Addr
	closed bool
}

func (t *fakeTransport) WriteTo(b []byte, addr net.Addr) (int, error) {
	t.sent = append(t.sent, append([]byte(nil), b...))
	t.addrs = append(t.addrs, addr)
	return len(b), nil
}

func (t *fakeTransport) Close() error        { t.closed = true; return nil }
func (t *fakeTransport) LocalAddr() net.Addr { return local }
func (t *fakeTransport) last() []byte {
	if len(t.sent) == 0 {
		return nil
	}
	return t.sent[len(t.sent)-1]
}
func (t *fakeTransport) lastAddr() net.Addr {
	if len(t.addrs) == 0 {
		return nil
	}
	return t.addrs[len(t.addrs)-1]
}

type fakeReader struct{ data []byte }

func (r *fakeReader) ReadBlock(ctx context.Context, n uint32, size int) ([]byte, error) {
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
func (r *fakeReader) Size(ctx context.Context) (uint64, bool, error) { return uint64(len(r.data)), true, nil }
func (r *fakeReader) Close() error                                   { return nil }

type fakeWriter struct {
	received []byte
	size     *uint64
}

func (w *fakeWriter) WriteBlock(ctx context.Context, n uint32, p []byte) error {
	w.received = append(w.received, p...)
	return nil
}
func (w *fakeWriter) SetSize(n uint64)                 { w.size = &n }
func (w *fakeWriter) Finish(ctx context.Context) error { return nil }
func (w *fakeWriter) Cancel() error                    { return nil }

var remote = &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 65465}
var local = &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 69}
var other = &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9999}

func TestRemoteOriginReadNoOptions(t *testing.T) {
	tr := &fakeTransport{}
	reader := &fakeReader{data: []byte("foo")}
	s := NewRemoteOriginReadSession(tr, remote, reader, nil)
	require.NoError(t, s.StartProtocol(context.Background()))
	assert.True(t, s.Established())
	assert.Equal(t, wire.Encode(&wire.DATA{Block: 1, Payload: []byte("foo")}), tr.last())
}

func TestRemoteOriginReadOptionNegotiation(t *testing.T) {
	tr := &fakeTransport{}
	reader := &fakeReader{data: []byte("123456789")}
	requested := wire.NewOptions()
	requested.Set("blksize", "9")
	s := NewRemoteOriginReadSession(tr, remote, reader, requested)
	require.NoError(t, s.StartProtocol(context.Background()))
	assert.False(t, s.Established())
	expectedOACK := wire.NewOptions()
	expectedOACK.Set("blksize", "9")
	assert.Equal(t, wire.Encode(&wire.OACK{Options: expectedOACK}), tr.last())

	terminal, err := s.DatagramReceived(context.Background(), remote, &wire.ACK{Block: 0})
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.True(t, s.Established())
	assert.Equal(t, wire.Encode(&wire.DATA{Block: 1, Payload: []byte("123456789")}), tr.last())
}

func TestRemoteOriginReadHandshakeTimeout(t *testing.T) {
	tr := &fakeTransport{}
	reader := &fakeReader{data: []byte("x")}
	requested := wire.NewOptions()
	requested.Set("blksize", "9")
	s := NewRemoteOriginReadSession(tr, remote, reader, requested)
	require.NoError(t, s.StartProtocol(context.Background()))

	var terminal bool
	var err error
	for i := 0; i < 3; i++ {
		terminal, err = s.HandleTimeout(context.Background())
	}
	assert.ErrorIs(t, err, ErrHandshakeTimeout)
	assert.True(t, terminal)
	assert.True(t, tr.closed)
}

func TestRemoteOriginWriteNoOptions(t *testing.T) {
	tr := &fakeTransport{}
	writer := &fakeWriter{}
	s := NewRemoteOriginWriteSession(tr, remote, writer, nil)
	require.NoError(t, s.StartProtocol(context.Background()))
	assert.True(t, s.Established())
	assert.Equal(t, wire.Encode(&wire.ACK{Block: 0}), tr.last())

	terminal, err := s.DatagramReceived(context.Background(), remote, &wire.DATA{Block: 1, Payload: []byte("x")})
	require.NoError(t, err)
	assert.True(t, terminal)
}

func TestRemoteOriginWriteOptionNegotiation(t *testing.T) {
	tr := &fakeTransport{}
	writer := &fakeWriter{}
	requested := wire.NewOptions()
	requested.Set("tsize", "45")
	s := NewRemoteOriginWriteSession(tr, remote, writer, requested)
	require.NoError(t, s.StartProtocol(context.Background()))
	assert.False(t, s.Established())

	terminal, err := s.DatagramReceived(context.Background(), remote, &wire.DATA{Block: 1, Payload: []byte("hello")})
	require.NoError(t, err)
	assert.True(t, terminal, "a 5-byte block is shorter than the default 512 and ends the transfer")
	assert.True(t, s.Established())
	require.NotNil(t, writer.size)
	assert.Equal(t, uint64(45), *writer.size)
	assert.Equal(t, wire.Encode(&wire.ACK{Block: 1}), tr.last())
}

func TestLocalOriginWriteHandshakeSuccessNoOptions(t *testing.T) {
	tr := &fakeTransport{}
	writer := &fakeWriter{}
	s := NewLocalOriginWriteSession(tr, remote, writer, "file.bin", wire.ModeOctet, nil)
	require.NoError(t, s.StartProtocol(context.Background()))

	terminal, err := s.DatagramReceived(context.Background(), remote, &wire.DATA{Block: 1, Payload: []byte("foobar")})
	require.NoError(t, err)
	assert.True(t, terminal, "a 6-byte block is shorter than the default 512 and ends the transfer")
	assert.True(t, s.Established())
	assert.Equal(t, wire.Encode(&wire.ACK{Block: 1}), tr.last())
}

func TestLocalOriginWriteHandshakeTimeout(t *testing.T) {
	tr := &fakeTransport{}
	writer := &fakeWriter{}
	s := NewLocalOriginWriteSession(tr, remote, writer, "file.bin", wire.ModeOctet, nil)
	require.NoError(t, s.StartProtocol(context.Background()))

	terminal, err := s.HandleTimeout(context.Background())
	require.ErrorIs(t, err, ErrHandshakeTimeout)
	assert.True(t, terminal)
	assert.True(t, tr.closed)
}

func TestLocalOriginWriteOptionNegotiation(t *testing.T) {
	tr := &fakeTransport{}
	writer := &fakeWriter{}
	requested := wire.NewOptions()
	requested.Set("blksize", "123")
	s := NewLocalOriginWriteSession(tr, remote, writer, "file.bin", wire.ModeOctet, requested)
	require.NoError(t, s.StartProtocol(context.Background()))

	firstOACK := wire.NewOptions()
	firstOACK.Set("blksize", "12")
	terminal, err := s.DatagramReceived(context.Background(), remote, &wire.OACK{Options: firstOACK})
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.Equal(t, wire.Encode(&wire.ACK{Block: 0}), tr.last())
	assert.Equal(t, uint16(512), s.Session().BlockSize(), "options aren't applied until the first DATA")

	secondOACK := wire.NewOptions()
	secondOACK.Set("blksize", "9")
	_, err = s.DatagramReceived(context.Background(), remote, &wire.OACK{Options: secondOACK})
	require.NoError(t, err)
	assert.Equal(t, uint16(512), s.Session().BlockSize())

	_, err = s.DatagramReceived(context.Background(), remote, &wire.DATA{Block: 1, Payload: []byte("123456789")})
	require.NoError(t, err)
	assert.Equal(t, uint16(9), s.Session().BlockSize(), "the latest negotiated value applies on first DATA")
}

func TestLocalOriginReadHandshakeSuccessNoOptions(t *testing.T) {
	tr := &fakeTransport{}
	reader := &fakeReader{data: []byte("hello")}
	s := NewLocalOriginReadSession(tr, remote, reader, "file.bin", wire.ModeOctet, nil)
	require.NoError(t, s.StartProtocol(context.Background()))

	terminal, err := s.DatagramReceived(context.Background(), remote, &wire.ACK{Block: 0})
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.True(t, s.Established())
	assert.Equal(t, wire.Encode(&wire.DATA{Block: 1, Payload: []byte("hello")}), tr.last())
}

func TestLocalOriginReadOptionNegotiation(t *testing.T) {
	tr := &fakeTransport{}
	reader := &fakeReader{data: []byte("123456789")}
	requested := wire.NewOptions()
	requested.Set("blksize", "9")
	s := NewLocalOriginReadSession(tr, remote, reader, "file.bin", wire.ModeOctet, requested)
	require.NoError(t, s.StartProtocol(context.Background()))

	oack := wire.NewOptions()
	oack.Set("blksize", "9")
	terminal, err := s.DatagramReceived(context.Background(), remote, &wire.OACK{Options: oack})
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.Equal(t, uint16(9), s.Session().BlockSize(), "a read-role session applies options immediately")
	assert.Equal(t, wire.Encode(&wire.DATA{Block: 1, Payload: []byte("123456789")}), tr.last())

	// A stray, redundant OACK after establishment changes nothing.
	stray := wire.NewOptions()
	stray.Set("blksize", "12")
	_, err = s.DatagramReceived(context.Background(), remote, &wire.OACK{Options: stray})
	require.NoError(t, err)
	assert.Equal(t, uint16(9), s.Session().BlockSize())
}

func TestTIDMismatchProducesError5(t *testing.T) {
	tr := &fakeTransport{}
	reader := &fakeReader{data: []byte("x")}
	s := NewRemoteOriginReadSession(tr, remote, reader, nil)
	require.NoError(t, s.StartProtocol(context.Background()))
	sentBefore := len(tr.sent)

	terminal, err := s.DatagramReceived(context.Background(), other, &wire.ACK{Block: 1})
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.Equal(t, sentBefore+1, len(tr.sent))
	assert.Equal(t, wire.Encode(wire.NewError(wire.ErrCodeUnknownTransferID, "")), tr.last())
	assert.Equal(t, other, tr.lastAddr())
}
