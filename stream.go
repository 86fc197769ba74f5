package kai

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// rawFrame is one wire-level SSE frame: an optional event label and the
// JSON payload. The Kai backend usually omits the label and carries the
// kind in the payload's "type" field.
type rawFrame struct {
	label string
	data  []byte
}

type sseReader struct {
	reader *bufio.Reader
	body   io.ReadCloser
	closed bool
}

func newSSEReader(body io.ReadCloser) *sseReader {
	return &sseReader{reader: bufio.NewReader(body), body: body}
}

// next returns the next frame, or io.EOF once the connection is drained.
// The backend emits one complete JSON document per "data:" line, so each
// data line yields a frame immediately. Comments, id/retry fields, blank
// lines, empty data, and the OpenAI-style [DONE] marker are skipped.
func (r *sseReader) next() (rawFrame, error) {
	if r.closed {
		return rawFrame{}, io.EOF
	}
	var label string
	for {
		line, err := r.reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return rawFrame{}, err
			}
			if line == "" {
				return rawFrame{}, io.EOF
			}
			// Fall through: the last line may lack a trailing newline.
		}
		switch {
		case line == "" || strings.HasPrefix(line, ":"):
			continue
		case strings.HasPrefix(line, "event:"):
			label = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(line[len("data:"):])
			if data == "" || data == "[DONE]" {
				label = ""
				continue
			}
			return rawFrame{label: label, data: []byte(data)}, nil
		default:
			// id:, retry:, and anything else the SSE grammar allows.
		}
	}
}

func (r *sseReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.body.Close()
}

// frameType extracts the event kind from a label-less frame's payload.
// Returns "" when the payload is not valid JSON.
func frameType(data []byte) string {
	var p struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return ""
	}
	return p.Type
}

// MessageStream is a pull-based, single-pass sequence of domain events over
// one SSE response. It owns its Accumulator; two concurrent sends never
// share one. Abandoning the stream early is safe: Close releases the
// connection and the accumulator keeps everything seen up to that point.
type MessageStream struct {
	chatID    string
	r         *sseReader
	acc       *Accumulator
	telemetry TelemetryHooks
	done      bool
}

func newMessageStream(chatID string, body io.ReadCloser, telemetry TelemetryHooks) *MessageStream {
	return &MessageStream{
		chatID:    chatID,
		r:         newSSEReader(body),
		acc:       NewAccumulator(),
		telemetry: telemetry,
	}
}

// ChatID returns the chat this stream belongs to.
func (s *MessageStream) ChatID() string { return s.chatID }

// Accumulator exposes the stream's running state. Valid at any point,
// including after early abandonment.
func (s *MessageStream) Accumulator() *Accumulator { return s.acc }

// Next advances the stream. It returns false once the stream is complete:
// after the first finish or error event, frames still buffered behind it
// are never parsed. A connection that closes before any terminal event
// yields ErrTruncatedStream, distinguishable from normal completion.
//
// Frames with unknown labels are dropped. Frames that fail to decode are
// recorded on the accumulator and skipped, unless the frame was a finish or
// error frame, in which case the decode failure is stream-fatal.
func (s *MessageStream) Next() (Event, bool, error) {
	if s.done {
		return nil, false, nil
	}
	for {
		frame, err := s.r.next()
		if err != nil {
			s.done = true
			_ = s.r.Close()
			if errors.Is(err, io.EOF) {
				return nil, false, ErrTruncatedStream
			}
			return nil, false, err
		}
		label := frame.label
		if label == "" {
			label = frameType(frame.data)
		}
		if label == "" {
			s.acc.record(&FrameError{Err: errors.New("payload is not a JSON object")})
			continue
		}
		ev, err := parseFrame(label, frame.data)
		if err != nil {
			if terminalLabels[label] {
				s.done = true
				_ = s.r.Close()
				return nil, false, err
			}
			s.acc.record(err)
			continue
		}
		if ev == nil {
			continue
		}
		s.acc.Process(ev)
		if s.telemetry.OnStreamEvent != nil {
			s.telemetry.OnStreamEvent(ev)
		}
		s.telemetry.metric("kai_stream_events_total", 1, map[string]string{"event": label})
		if s.acc.Finished() {
			s.done = true
			_ = s.r.Close()
		}
		return ev, true, nil
	}
}

// Close terminates the stream. Idempotent; safe to call at any point.
func (s *MessageStream) Close() error {
	s.done = true
	return s.r.Close()
}

// Result is the final snapshot of a fully (or partially) consumed stream.
type Result struct {
	ChatID            string
	Text              string
	ToolCalls         []ToolCall
	Finished          bool
	FinishReason      FinishReason
	Err               *ErrorEvent
	Usage             Usage
	PendingApprovalID string
	Violations        []error
}

// Result snapshots the accumulator. Callers normally use Collect; this is
// useful after consuming events one by one with Next.
func (s *MessageStream) Result() *Result {
	return &Result{
		ChatID:            s.chatID,
		Text:              s.acc.Text(),
		ToolCalls:         s.acc.ToolCalls(),
		Finished:          s.acc.Finished(),
		FinishReason:      s.acc.FinishReason(),
		Err:               s.acc.StreamError(),
		Usage:             s.acc.Usage(),
		PendingApprovalID: s.acc.PendingApprovalID(),
		Violations:        s.acc.Violations(),
	}
}

// Collect drains the stream into a Result. It is pull-based and respects
// context cancellation; the stream is closed when the call returns.
func (s *MessageStream) Collect(ctx context.Context) (*Result, error) {
	defer s.Close()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		_, ok, err := s.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return s.Result(), nil
}
