package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MaxPayload bounds a single frame.
const MaxPayload = 1 << 20

// ErrMalformedFrame is returned when a frame header cannot be parsed.
var ErrMalformedFrame = errors.New("protocol: malformed frame")

// Kind is the frame type.
type Kind string

const (
	KindFrame  Kind = "frame"  // rendered grid plus status line
	KindNotice Kind = "notice" // paused / resuming
	KindOver   Kind = "over"   // final summary
	KindError  Kind = "error"  // setup rejected
)

func (k Kind) valid() bool {
	switch k {
	case KindFrame, KindNotice, KindOver, KindError:
		return true
	}
	return false
}

// Frame is one server-to-client message.
type Frame struct {
	Kind    Kind
	Payload string
}

// Encode returns "<kind> <length>\n" followed by the payload.
func (f Frame) Encode() []byte {
	header := string(f.Kind) + " " + strconv.Itoa(len(f.Payload)) + "\n"
	return append([]byte(header), f.Payload...)
}

// WriteFrame writes one encoded frame.
func WriteFrame(w io.Writer, f Frame) error {
	if _, err := w.Write(f.Encode()); err != nil {
		return fmt.Errorf("protocol: write %s frame: %w", f.Kind, err)
	}
	return nil
}

// ReadFrame reads one frame from a stream.
func ReadFrame(r *bufio.Reader) (Frame, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && header == "" {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("protocol: read header: %w", err)
	}

	kind, n, err := parseHeader(header)
	if err != nil {
		return Frame{}, err
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Frame{}, fmt.Errorf("protocol: read %s payload: %w", kind, err)
	}
	return Frame{Kind: kind, Payload: string(buf)}, nil
}

// DecodeFrame parses a frame carried in a single message, as on WebSocket.
func DecodeFrame(data []byte) (Frame, error) {
	header, payload, ok := strings.Cut(string(data), "\n")
	if !ok {
		return Frame{}, fmt.Errorf("%w: missing header terminator", ErrMalformedFrame)
	}
	kind, n, err := parseHeader(header)
	if err != nil {
		return Frame{}, err
	}
	if len(payload) != n {
		return Frame{}, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrMalformedFrame, len(payload), n)
	}
	return Frame{Kind: kind, Payload: payload}, nil
}

func parseHeader(header string) (Kind, int, error) {
	name, size, ok := strings.Cut(strings.TrimSuffix(header, "\n"), " ")
	if !ok {
		return "", 0, fmt.Errorf("%w: header %q", ErrMalformedFrame, header)
	}
	kind := Kind(name)
	if !kind.valid() {
		return "", 0, fmt.Errorf("%w: unknown kind %q", ErrMalformedFrame, name)
	}
	n, err := strconv.Atoi(size)
	if err != nil || n < 0 || n > MaxPayload {
		return "", 0, fmt.Errorf("%w: bad length %q", ErrMalformedFrame, size)
	}
	return kind, n, nil
}
