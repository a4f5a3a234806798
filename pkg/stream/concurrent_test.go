package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freyr-data/tfrecord/pkg/codec"
)

func TestConcurrentReader_ReadsInOrder(t *testing.T) {
	payloads := [][]byte{
		[]byte("one"),
		[]byte("two"),
		[]byte("three"),
	}
	path := writeTestFile(t, payloads)

	r, err := OpenReader(path, ReaderConfig{})
	require.NoError(t, err)

	cr := NewConcurrentReader(r)
	defer cr.Close()

	ctx := context.Background()
	for i, want := range payloads {
		got, err := cr.Next(ctx)
		require.NoError(t, err, "record %d", i)
		assert.Equal(t, want, got)
	}

	_, err = cr.Next(ctx)
	assert.Equal(t, io.EOF, err)
	_, err = cr.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestConcurrentReader_CancelledNextPreservesOrder(t *testing.T) {
	payloads := [][]byte{
		[]byte("first"),
		[]byte("second"),
	}

	// A source that stalls long enough for the cancellation to win the race.
	var buf bytes.Buffer
	w := NewWriter(&buf, WriterConfig{})
	for _, p := range payloads {
		_, err := w.Write(p)
		require.NoError(t, err)
	}
	require.NoError(t, w.Flush())

	slow := &slowReader{data: buf.Bytes(), delay: 20 * time.Millisecond}
	cr := NewConcurrentReader(NewReader(slow, ReaderConfig{}))
	defer cr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := cr.Next(ctx)
	require.Equal(t, context.DeadlineExceeded, err)

	// The in-flight read completes in the background and is delivered to
	// the following call; no record is lost or reordered.
	got, err := cr.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)

	got, err = cr.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

type slowReader struct {
	data  []byte
	pos   int
	delay time.Duration
}

func (s *slowReader) Read(p []byte) (int, error) {
	time.Sleep(s.delay)
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += n
	return n, nil
}

func TestConcurrentReader_ClosedReturnsErrClosed(t *testing.T) {
	path := writeTestFile(t, [][]byte{[]byte("x")})

	r, err := OpenReader(path, ReaderConfig{})
	require.NoError(t, err)

	cr := NewConcurrentReader(r)
	require.NoError(t, cr.Close())

	_, err = cr.Next(context.Background())
	assert.Equal(t, ErrClosed, err)
}

func TestConcurrentWriter_WritesFullFrames(t *testing.T) {
	var buf bytes.Buffer
	cw := NewConcurrentWriter(NewWriter(&buf, WriterConfig{}))

	ctx := context.Background()
	const numRecords = 25

	for i := 0; i < numRecords; i++ {
		payload := []byte(fmt.Sprintf("record_%d", i))
		off, err := cw.Write(ctx, payload)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, off, int64(0))
	}
	require.NoError(t, cw.Flush(ctx))
	require.NoError(t, cw.Close())

	// Every frame on the sink is complete and in write order.
	r := NewReader(bytes.NewReader(buf.Bytes()), ReaderConfig{})
	for i := 0; i < numRecords; i++ {
		got, err := r.Next()
		require.NoError(t, err, "record %d", i)
		assert.Equal(t, fmt.Sprintf("record_%d", i), string(got))
	}
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestConcurrentWriter_CancelledBeforeHandoffWritesNothing(t *testing.T) {
	// A tiny buffer forces frames through to the slow sink, keeping the
	// loop busy so the cancelled write can never be handed off.
	slow := &slowWriter{delay: 50 * time.Millisecond}
	cw := NewConcurrentWriter(NewWriter(slow, WriterConfig{BufferSize: 8}))

	blocked := make(chan struct{})
	go func() {
		defer close(blocked)
		_, err := cw.Write(context.Background(), []byte("block"))
		assert.NoError(t, err)
	}()
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cw.Write(ctx, []byte("never written"))
	assert.Equal(t, context.Canceled, err)

	<-blocked
	require.NoError(t, cw.Close())

	// Exactly one complete record reached the sink.
	r := NewReader(bytes.NewReader(slow.buf.Bytes()), ReaderConfig{})
	got, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte("block"), got)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

type slowWriter struct {
	buf   bytes.Buffer
	delay time.Duration
}

func (s *slowWriter) Write(p []byte) (int, error) {
	time.Sleep(s.delay)
	return s.buf.Write(p)
}

func TestConcurrentStreams_IndependentInstancesRunInParallel(t *testing.T) {
	const numStreams = 8
	const recordsPerStream = 20

	var wg sync.WaitGroup
	errs := make(chan error, numStreams)

	for s := 0; s < numStreams; s++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			var buf bytes.Buffer
			cw := NewConcurrentWriter(NewWriter(&buf, WriterConfig{}))
			ctx := context.Background()

			for i := 0; i < recordsPerStream; i++ {
				if _, err := cw.Write(ctx, []byte(fmt.Sprintf("s%d_r%d", id, i))); err != nil {
					errs <- fmt.Errorf("stream %d write %d: %w", id, i, err)
					return
				}
			}
			if err := cw.Close(); err != nil {
				errs <- fmt.Errorf("stream %d close: %w", id, err)
				return
			}

			cr := NewConcurrentReader(NewReader(bytes.NewReader(buf.Bytes()), ReaderConfig{}))
			defer cr.Close()

			for i := 0; i < recordsPerStream; i++ {
				got, err := cr.Next(ctx)
				if err != nil {
					errs <- fmt.Errorf("stream %d read %d: %w", id, i, err)
					return
				}
				if string(got) != fmt.Sprintf("s%d_r%d", id, i) {
					errs <- fmt.Errorf("stream %d record %d mismatch: %q", id, i, got)
					return
				}
			}
		}(s)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestConcurrentWriter_OffsetsMatchSyncWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := NewConcurrentWriter(NewWriter(&buf, WriterConfig{}))
	ctx := context.Background()

	off1, err := cw.Write(ctx, []byte("abc"))
	require.NoError(t, err)
	off2, err := cw.Write(ctx, []byte("de"))
	require.NoError(t, err)
	require.NoError(t, cw.Close())

	assert.Equal(t, int64(0), off1)
	assert.Equal(t, int64(codec.Overhead+3), off2)
}
