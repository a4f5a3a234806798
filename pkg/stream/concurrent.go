package stream

import (
	"context"
	"sync"
)

// ConcurrentReader wraps a Reader in a goroutine that owns the stream
// endpoint, so reads can be awaited and cancelled with a context.
//
// Like the synchronous Reader, one instance serves one caller at a time;
// independent instances over independent sources run fully in parallel.
// Cancelling a pending Next does not lose the record: the in-flight read
// completes in the background and is delivered to the following call, so
// stream order is preserved.
type ConcurrentReader struct {
	reader    *Reader
	requests  chan struct{}
	results   chan readResult
	done      chan struct{}
	closeOnce sync.Once
	pending   bool
}

type readResult struct {
	record []byte
	err    error
}

// NewConcurrentReader starts the background loop that owns reader
func NewConcurrentReader(reader *Reader) *ConcurrentReader {
	cr := &ConcurrentReader{
		reader:   reader,
		requests: make(chan struct{}),
		results:  make(chan readResult, 1),
		done:     make(chan struct{}),
	}
	go cr.loop()
	return cr
}

func (cr *ConcurrentReader) loop() {
	for {
		select {
		case <-cr.done:
			return
		case <-cr.requests:
			record, err := cr.reader.Next()
			// results has capacity 1 and at most one request is in
			// flight, so this never blocks.
			cr.results <- readResult{record: record, err: err}
		}
	}
}

// Next returns the next record payload, io.EOF at the end of the stream, or
// ctx.Err() if cancelled first.
func (cr *ConcurrentReader) Next(ctx context.Context) ([]byte, error) {
	if !cr.pending {
		select {
		case cr.requests <- struct{}{}:
			cr.pending = true
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-cr.done:
			return nil, ErrClosed
		}
	}

	select {
	case res := <-cr.results:
		cr.pending = false
		return res.record, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-cr.done:
		return nil, ErrClosed
	}
}

// Offset returns the logical cursor position in bytes
func (cr *ConcurrentReader) Offset() int64 {
	return cr.reader.Offset()
}

// Close stops the loop and closes the underlying reader
func (cr *ConcurrentReader) Close() error {
	cr.closeOnce.Do(func() {
		close(cr.done)
	})
	return cr.reader.Close()
}

// ConcurrentWriter wraps a Writer in a goroutine that owns the sink.
//
// A frame is handed to the loop whole: cancellation before the handoff
// writes nothing, and once handed off the complete frame is written, so a
// partial frame is never visible on the sink.
type ConcurrentWriter struct {
	writer    *Writer
	requests  chan writeRequest
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type writeRequest struct {
	payload []byte
	flush   bool
	reply   chan writeReply
}

type writeReply struct {
	offset int64
	err    error
}

// NewConcurrentWriter starts the background loop that owns writer
func NewConcurrentWriter(writer *Writer) *ConcurrentWriter {
	cw := &ConcurrentWriter{
		writer:   writer,
		requests: make(chan writeRequest),
		done:     make(chan struct{}),
	}
	cw.wg.Add(1)
	go cw.loop()
	return cw
}

func (cw *ConcurrentWriter) loop() {
	defer cw.wg.Done()
	for {
		select {
		case <-cw.done:
			return
		case req := <-cw.requests:
			var reply writeReply
			if req.flush {
				reply.err = cw.writer.Flush()
			} else {
				reply.offset, reply.err = cw.writer.Write(req.payload)
			}
			req.reply <- reply
		}
	}
}

// Write appends one record. If ctx is cancelled before the frame is handed
// to the loop, nothing is written; after the handoff the frame is emitted in
// full even if ctx is cancelled while waiting.
func (cw *ConcurrentWriter) Write(ctx context.Context, payload []byte) (int64, error) {
	req := writeRequest{payload: payload, reply: make(chan writeReply, 1)}

	select {
	case cw.requests <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-cw.done:
		return 0, ErrClosed
	}

	reply := <-req.reply
	return reply.offset, reply.err
}

// Flush pushes buffered frames to the underlying sink
func (cw *ConcurrentWriter) Flush(ctx context.Context) error {
	req := writeRequest{flush: true, reply: make(chan writeReply, 1)}

	select {
	case cw.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-cw.done:
		return ErrClosed
	}

	reply := <-req.reply
	return reply.err
}

// Close stops the loop and closes the underlying writer
func (cw *ConcurrentWriter) Close() error {
	cw.closeOnce.Do(func() {
		close(cw.done)
	})
	cw.wg.Wait()
	return cw.writer.Close()
}
