package chrony

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"time"
)

// Chronyd command-socket request/reply framing, following the shape of
// chrony's documented candm protocol: a fixed request header (version,
// packet type, command code, sequence number) followed by a command-specific
// payload, and a reply header carrying a status code ahead of the payload.
const (
	candmVersion = 6

	pktTypeRequest = 1
	pktTypeReply   = 2

	reqTracking     = 33
	reqResetSources = 83
	reqBurst        = 90

	replyStatusOK = 0
)

// requestHeader is the fixed 12-byte prefix of every request packet.
type requestHeader struct {
	Version byte
	PktType byte
	_       uint16 // reserved/pad
	Command uint32
	Seq     uint32
}

func (h requestHeader) marshal() []byte {
	buf := make([]byte, 12)
	buf[0] = h.Version
	buf[1] = h.PktType
	binary.BigEndian.PutUint32(buf[4:8], h.Command)
	binary.BigEndian.PutUint32(buf[8:12], h.Seq)
	return buf
}

// UDPClient implements Querier against chronyd's command/monitoring socket.
type UDPClient struct {
	addr string
	seq  uint32
}

// NewUDPClient builds a client targeting addr (host:port), defaulting to
// chronyd's conventional command-socket port.
func NewUDPClient(addr string) *UDPClient {
	if addr == "" {
		addr = "127.0.0.1:323"
	}
	return &UDPClient{addr: addr}
}

func (c *UDPClient) nextSeq() uint32 {
	c.seq++
	return c.seq
}

func (c *UDPClient) roundtrip(ctx context.Context, command uint32, payload []byte) ([]byte, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, QueryTimeout)
		defer cancel()
		deadline, _ = ctx.Deadline()
	}

	conn, err := net.Dial("udp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("chrony: dial %s: %w", c.addr, err)
	}
	defer conn.Close()
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("chrony: set deadline: %w", err)
	}

	req := requestHeader{Version: candmVersion, PktType: pktTypeRequest, Command: command, Seq: c.nextSeq()}
	out := append(req.marshal(), payload...)
	if _, err := conn.Write(out); err != nil {
		return nil, fmt.Errorf("chrony: write: %w", err)
	}

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("chrony: read: %w", err)
	}
	if n < 16 {
		return nil, fmt.Errorf("chrony: short reply (%d bytes)", n)
	}
	status := binary.BigEndian.Uint16(buf[12:14])
	if status != replyStatusOK {
		return nil, fmt.Errorf("chrony: reply status %d", status)
	}
	return buf[16:n], nil
}

// QueryTracking sends the Tracking request and parses the reply payload.
func (c *UDPClient) QueryTracking(ctx context.Context) (Tracking, error) {
	body, err := c.roundtrip(ctx, reqTracking, nil)
	if err != nil {
		return Tracking{}, err
	}
	if len(body) < 44 {
		return Tracking{}, fmt.Errorf("chrony: tracking reply too short (%d bytes)", len(body))
	}
	refID := binary.BigEndian.Uint32(body[0:4])
	refTimeSec := binary.BigEndian.Uint32(body[4:8])
	leapStatus := int(int16(binary.BigEndian.Uint16(body[8:10])))
	rootDelay := math.Float32frombits(binary.BigEndian.Uint32(body[12:16]))
	rootDispersion := math.Float32frombits(binary.BigEndian.Uint32(body[16:20]))
	currentCorrection := math.Float32frombits(binary.BigEndian.Uint32(body[20:24]))
	lastUpdateInterval := math.Float32frombits(binary.BigEndian.Uint32(body[24:28]))

	return Tracking{
		RefID:                refID,
		RefTime:              time.Unix(int64(refTimeSec), 0),
		LeapStatus:           leapStatus,
		RootDelaySec:         float64(rootDelay),
		RootDispersionSec:    float64(rootDispersion),
		CurrentCorrectionSec: float64(currentCorrection),
		LastUpdateInterval:   time.Duration(float64(lastUpdateInterval) * float64(time.Second)),
	}, nil
}

// ResetSources issues chronyd's "reset sources" command.
func (c *UDPClient) ResetSources(ctx context.Context) error {
	_, err := c.roundtrip(ctx, reqResetSources, nil)
	return err
}

// BurstSources issues chronyd's "burst" command against every reachable
// source (an unspecified mask/address), requesting 4 good samples out of 8.
func (c *UDPClient) BurstSources(ctx context.Context) error {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint32(payload[0:4], 4) // n_good_samples
	binary.BigEndian.PutUint32(payload[4:8], 8) // n_total_samples
	_, err := c.roundtrip(ctx, reqBurst, payload)
	return err
}
