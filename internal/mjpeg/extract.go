package mjpeg

import "bytes"

var (
	// soi is the JPEG start-of-image marker
	soi = []byte{0xFF, 0xD8}
	// eoi is the JPEG end-of-image marker
	eoi = []byte{0xFF, 0xD9}
)

// Extract locates the first complete JPEG image in buf.
//
// It searches for the first start-of-image marker (0xFFD8) and the first
// end-of-image marker (0xFFD9) after it. When both are present it returns
// the bytes from SOI through EOI (inclusive) and the bytes following EOI.
//
// When no complete image is present, ok is false and rest is buf unchanged,
// so a partial frame (SOI seen, EOI not yet) survives until more bytes
// arrive.
//
// The returned frame aliases buf. Callers that keep it past the next append
// must copy it.
func Extract(buf []byte) (frame, rest []byte, ok bool) {
	start := bytes.Index(buf, soi)
	if start < 0 {
		return nil, buf, false
	}

	// EOI must start after the two SOI bytes. Searching from start+2 also
	// keeps an 0xFF 0xD8 0xD9 sequence from matching as both markers.
	end := bytes.Index(buf[start+len(soi):], eoi)
	if end < 0 {
		return nil, buf, false
	}
	end += start + len(soi) + len(eoi)

	return buf[start:end], buf[end:], true
}

// Accumulator holds the tail of a byte stream that has not yet been
// resolved into complete JPEG images.
//
// Bytes before a start marker are discarded only once an image has been
// extracted past them; a start marker with no end marker is kept across
// calls.
type Accumulator struct {
	buf []byte
}

// Write appends a chunk to the accumulator. It never fails.
func (a *Accumulator) Write(p []byte) (int, error) {
	a.buf = append(a.buf, p...)
	return len(p), nil
}

// Next extracts the next complete JPEG image, if any.
//
// The returned slice is a copy owned by the caller. After a successful
// extraction the consumed prefix (through EOI) is dropped from the
// accumulator.
func (a *Accumulator) Next() ([]byte, bool) {
	frame, rest, ok := Extract(a.buf)
	if !ok {
		// Without a start marker nothing buffered can become part of an
		// image, except a trailing 0xFF that may begin a split marker.
		if len(a.buf) > 1 && bytes.Index(a.buf, soi) < 0 {
			a.buf[0] = a.buf[len(a.buf)-1]
			a.buf = a.buf[:1]
		}
		return nil, false
	}

	out := make([]byte, len(frame))
	copy(out, frame)

	// Compact so the backing array does not grow without bound on a
	// long-lived stream.
	n := copy(a.buf, rest)
	a.buf = a.buf[:n]

	return out, true
}

// Len returns the number of buffered bytes.
func (a *Accumulator) Len() int {
	return len(a.buf)
}

// Reset discards all buffered bytes.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
}
