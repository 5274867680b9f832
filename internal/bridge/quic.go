package bridge

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	quicALPN = "worldmirror-quic"

	// maxFrameSize bounds a single length-prefixed update frame.
	maxFrameSize = 1 << 20
)

// quicTransport reads 4-byte big-endian length-prefixed JSON frames from a
// single bidirectional stream.
type quicTransport struct {
	session *quic.Conn
	stream  *quic.Stream
}

// DialQUIC connects to a QUIC update feed. A nil tlsConfig accepts
// self-signed certificates, which is how development world servers run.
func DialQUIC(ctx context.Context, addr string, tlsConfig *tls.Config) (Transport, error) {
	if tlsConfig == nil {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}
	tlsConfig.NextProtos = []string{quicALPN}

	quicConfig := &quic.Config{
		MaxIdleTimeout: 60 * time.Second,
	}

	session, err := quic.DialAddr(ctx, addr, tlsConfig, quicConfig)
	if err != nil {
		return nil, err
	}
	stream, err := session.OpenStreamSync(ctx)
	if err != nil {
		_ = session.CloseWithError(0, "failed to open stream")
		return nil, err
	}
	return &quicTransport{session: session, stream: stream}, nil
}

func (t *quicTransport) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var header [4]byte
	if _, err := io.ReadFull(t.stream, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return nil, fmt.Errorf("bridge: frame of %d bytes exceeds limit", size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(t.stream, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (t *quicTransport) Close() error {
	_ = t.stream.Close()
	return t.session.CloseWithError(0, "client closed")
}
