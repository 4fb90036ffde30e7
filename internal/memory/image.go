package memory

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
)

const pageSize = 4096

// errDetached is the cause reported once an Image has been detached.
var errDetached = errors.New("image detached")

// Access records one ReadBytes or WriteBytes call against an Image.
type Access struct {
	Addr Address
	Len  int
}

// Image is a sparse in-memory process image.
//
// Unwritten memory reads as zero. Pages are allocated on first write, and
// PatternSearch only scans allocated pages. Image records every read and
// write so tests can assert on I/O volume.
//
// Thread-safety: all methods are safe for concurrent use.
type Image struct {
	mu     sync.Mutex
	pages  map[uint32][]byte
	reads  []Access
	writes []Access

	failErr   error
	failAfter int // remaining successful calls before failErr applies; -1 disables
}

// NewImage returns an empty image.
func NewImage() *Image {
	return &Image{
		pages:     make(map[uint32][]byte),
		failAfter: -1,
	}
}

// ReadBytes implements Interface.
func (im *Image) ReadBytes(ctx context.Context, addr Address, n int) ([]byte, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if err := im.checkLocked(ctx, "read", addr, n); err != nil {
		return nil, err
	}
	im.reads = append(im.reads, Access{Addr: addr, Len: n})
	return im.peekLocked(addr, n), nil
}

// WriteBytes implements Interface.
func (im *Image) WriteBytes(ctx context.Context, addr Address, data []byte) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if err := im.checkLocked(ctx, "write", addr, len(data)); err != nil {
		return err
	}
	im.writes = append(im.writes, Access{Addr: addr, Len: len(data)})
	im.pokeLocked(addr, data)
	return nil
}

// PatternSearch implements Interface. The lowest matching address wins.
func (im *Image) PatternSearch(ctx context.Context, pattern []byte) (Address, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if err := im.checkLocked(ctx, "search", 0, len(pattern)); err != nil {
		return 0, err
	}
	if len(pattern) == 0 {
		return 0, ErrPatternNotFound
	}

	keys := make([]uint32, 0, len(im.pages))
	for k := range im.pages {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	// Scan runs of contiguous pages so matches may straddle page boundaries.
	for i := 0; i < len(keys); {
		j := i
		run := append([]byte(nil), im.pages[keys[i]]...)
		for j+1 < len(keys) && keys[j+1] == keys[j]+1 {
			j++
			run = append(run, im.pages[keys[j]]...)
		}
		if idx := bytes.Index(run, pattern); idx >= 0 {
			return Address(keys[i]*pageSize + uint32(idx)), nil
		}
		i = j + 1
	}
	return 0, ErrPatternNotFound
}

// Peek reads without recording an access or applying failure injection.
func (im *Image) Peek(addr Address, n int) []byte {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.peekLocked(addr, n)
}

// Poke writes without recording an access or applying failure injection.
// Tests and scenarios use it to play the game's side of the conversation.
func (im *Image) Poke(addr Address, data []byte) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.pokeLocked(addr, data)
}

// FailAfter makes every call after the next n successful calls fail with a
// connection-lost error wrapping cause. n == 0 fails immediately.
func (im *Image) FailAfter(n int, cause error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if cause == nil {
		cause = errDetached
	}
	im.failErr = cause
	im.failAfter = n
}

// Heal clears failure injection.
func (im *Image) Heal() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.failErr = nil
	im.failAfter = -1
}

// Reads returns the recorded reads since the last ResetLog.
func (im *Image) Reads() []Access {
	im.mu.Lock()
	defer im.mu.Unlock()
	return append([]Access(nil), im.reads...)
}

// Writes returns the recorded writes since the last ResetLog.
func (im *Image) Writes() []Access {
	im.mu.Lock()
	defer im.mu.Unlock()
	return append([]Access(nil), im.writes...)
}

// ResetLog clears the recorded reads and writes.
func (im *Image) ResetLog() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.reads = nil
	im.writes = nil
}

func (im *Image) checkLocked(ctx context.Context, op string, addr Address, n int) error {
	if err := ctx.Err(); err != nil {
		return &ConnectionLostError{Op: op, Addr: addr, Len: n, Err: err}
	}
	if im.failErr == nil {
		return nil
	}
	if im.failAfter > 0 {
		im.failAfter--
		return nil
	}
	return &ConnectionLostError{Op: op, Addr: addr, Len: n, Err: im.failErr}
}

func (im *Image) peekLocked(addr Address, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; {
		a := uint32(addr) + uint32(i)
		page, off := a/pageSize, a%pageSize
		chunk := int(pageSize - off)
		if chunk > n-i {
			chunk = n - i
		}
		if p, ok := im.pages[page]; ok {
			copy(out[i:i+chunk], p[off:])
		}
		i += chunk
	}
	return out
}

func (im *Image) pokeLocked(addr Address, data []byte) {
	for i := 0; i < len(data); {
		a := uint32(addr) + uint32(i)
		page, off := a/pageSize, a%pageSize
		p, ok := im.pages[page]
		if !ok {
			p = make([]byte, pageSize)
			im.pages[page] = p
		}
		n := copy(p[off:], data[i:])
		i += n
	}
}
