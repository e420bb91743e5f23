// Package buffer implements the two-tier priority coordinator: a bounded,
// concurrent container that keeps a small in-memory hot set and spills the
// rest to disk, always popping the currently highest-priority item across
// both tiers.
//
// Lock discipline and construction shape follow a single-mutex-guarded
// store with a condition variable for blocking consumers; the
// coordination algorithm itself (demote-on-over-memory,
// evict-on-over-disk, tie-break on pop) is the two-tier priority scheme
// this package exists to implement.
package buffer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/calvinalkan/prismbuffer/blobstore"
	"github.com/calvinalkan/prismbuffer/catalog"
	"github.com/calvinalkan/prismbuffer/codec"
)

// catalogFileName is the reserved name of the catalog database inside the
// managed directory.
const catalogFileName = "prism_data.db"

// Stats is a point-in-time snapshot of aggregate buffer state, used by
// operator tooling (prismctl stats).
type Stats struct {
	MemoryBytes uint64
	DiskBytes   uint64
	DiskRecords int
}

// Buffer is a priority-ordered, disk-spilling container over items of
// type T. The zero value is not usable; construct with [New].
type Buffer[T any] struct {
	codec        codec.Codec[T]
	priorityFunc func(T) uint64
	counter      epochCounter

	maxMemory uint32

	mu        sync.Mutex
	cond      *sync.Cond
	hotSet    map[string]T
	cat       *catalog.Catalog
	blobs     *blobstore.Store
	jitterLo  time.Duration
	jitterHi  time.Duration
	jitterRNG *rand.Rand

	closed bool
}

// New constructs a Buffer backed by a fresh or pre-existing managed
// directory. A zero directory_name or max_disk_bytes in opts is replaced
// by its documented default rather than rejected; New fails only if the
// codec is nil or the blob store or catalog cannot be opened (wrapping
// [catalog.ErrUnavailable] for the latter).
func New[T any](ctx context.Context, c codec.Codec[T], opts Options[T]) (*Buffer[T], error) {
	if c == nil {
		return nil, errors.New("buffer: codec must not be nil")
	}

	opts = opts.withDefaultsApplied()

	store, err := blobstore.New(blobstore.Options{
		DirectoryName:   opts.DirectoryName,
		ParentDirectory: opts.ParentDirectory,
	})
	if err != nil {
		return nil, fmt.Errorf("buffer: open blob store: %w", err)
	}

	cat, err := catalog.Open(ctx, catalog.Options{
		Path:         filepath.Join(store.Dir(), catalogFileName),
		MaxDiskBytes: opts.MaxDiskBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("buffer: open catalog: %w", err)
	}

	b := &Buffer[T]{
		codec:        c,
		priorityFunc: opts.PriorityFunc,
		maxMemory:    opts.MaxMemory,
		hotSet:       make(map[string]T),
		cat:          cat,
		blobs:        store,
		jitterLo:     opts.JitterLo,
		jitterHi:     opts.JitterHi,
		jitterRNG:    rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // jitter sleep timing, not security sensitive
	}
	b.cond = sync.NewCond(&b.mu)

	return b, nil
}

// Push inserts item, computing its priority and size via the codec,
// places it in the hot set, then restores invariants 3 and 4 by demoting
// and evicting as needed.
func (b *Buffer[T]) Push(ctx context.Context, item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New("buffer: push on a closed buffer")
	}

	priority := b.priority(item)
	size := b.codec.ByteSize(item)

	hash, err := mintHash(ctx, b.cat)
	if err != nil {
		return err
	}

	err = b.cat.Insert(ctx, priority, hash, size, false)
	if err != nil {
		return err
	}

	b.hotSet[hash] = item

	err = b.demoteWhileOverMemoryCap(ctx)
	if err != nil {
		return err
	}

	err = b.evictWhileDiskFull(ctx)
	if err != nil {
		return err
	}

	b.cond.Signal()

	return nil
}

// demoteWhileOverMemoryCap moves the lowest-priority in-memory items to
// disk until the hot set fits under max_memory. Must be called with the
// lock held.
func (b *Buffer[T]) demoteWhileOverMemoryCap(ctx context.Context) error {
	for uint32(len(b.hotSet)) > b.maxMemory {
		hash, err := b.cat.LowestInMemory(ctx)
		if err != nil {
			return err
		}

		if hash == "" {
			// Catalog disagrees with the hot set (invariant 1 violation);
			// nothing left to demote.
			return nil
		}

		item, ok := b.hotSet[hash]
		if !ok {
			return nil
		}

		err = b.writeBlob(hash, item)
		if err != nil {
			// Best-effort cleanup: the row never reached the disk tier.
			_ = b.cat.Delete(ctx, hash)
			_, _ = b.blobs.Delete(hash)
			delete(b.hotSet, hash)

			continue
		}

		delete(b.hotSet, hash)

		err = b.cat.UpdateTier(ctx, hash, true)
		if err != nil {
			return err
		}
	}

	return nil
}

// evictWhileDiskFull permanently deletes the lowest-priority on-disk
// records until disk_bytes() fits under max_disk_bytes. Must be called
// with the lock held.
func (b *Buffer[T]) evictWhileDiskFull(ctx context.Context) error {
	for {
		full, err := b.cat.Full(ctx)
		if err != nil {
			return err
		}

		if !full {
			return nil
		}

		hash, err := b.cat.LowestOnDisk(ctx)
		if err != nil {
			return err
		}

		if hash == "" {
			return nil
		}

		_, _ = b.blobs.Delete(hash)

		err = b.cat.Delete(ctx, hash)
		if err != nil {
			return err
		}
	}
}

func (b *Buffer[T]) writeBlob(hash string, item T) error {
	pw, err := b.blobs.OpenWrite(hash)
	if err != nil {
		return err
	}

	err = b.codec.Serialize(item, pw)
	if err != nil {
		_ = pw.Close()

		return err
	}

	return pw.Close()
}

func (b *Buffer[T]) priority(item T) uint64 {
	if b.priorityFunc != nil {
		return b.priorityFunc(item)
	}

	return b.counter.defaultPriority()
}

// Pop removes and returns the highest-priority item across both tiers. If
// block is true and the buffer is empty, Pop waits until a subsequent Push
// signals it; cancellation is not supported. Otherwise it
// returns the codec's zero value immediately. Callers distinguish the two
// outcomes with the codec's IsInitialized predicate.
func (b *Buffer[T]) Pop(ctx context.Context, block bool) (T, error) {
	b.mu.Lock()

	var hash string

	var onDisk bool

	for {
		h, disk, err := b.cat.Highest(ctx)
		if err != nil {
			b.mu.Unlock()

			return b.codec.Zero(), err
		}

		if h != "" {
			hash, onDisk = h, disk

			break
		}

		if !block {
			b.mu.Unlock()

			return b.codec.Zero(), nil
		}

		b.cond.Wait()
	}

	err := b.cat.Delete(ctx, hash)
	if err != nil {
		b.mu.Unlock()

		return b.codec.Zero(), err
	}

	var (
		item T
		ok   bool
	)

	if onDisk {
		item, ok = b.readAndDeleteBlob(hash)
	} else {
		item, ok = b.hotSet[hash]
		delete(b.hotSet, hash)
	}

	b.mu.Unlock()

	b.sleepJitter()

	if !ok {
		return b.codec.Zero(), nil
	}

	return item, nil
}

func (b *Buffer[T]) readAndDeleteBlob(hash string) (T, bool) {
	r, err := b.blobs.OpenRead(hash)
	if err != nil {
		return b.codec.Zero(), false
	}

	item, err := b.codec.Parse(r)

	_ = r.Close()

	if err != nil {
		_, _ = b.blobs.Delete(hash)

		return b.codec.Zero(), false
	}

	_, _ = b.blobs.Delete(hash)

	return item, true
}

// sleepJitter sleeps a uniform random duration in [jitterLo, jitterHi]. The
// random draw happens under b.mu, since jitterRNG is not safe for
// concurrent use and Pop calls this after releasing the lock; only the
// sleep itself happens unlocked. A no-op when jitterHi is zero or
// jitterLo exceeds jitterHi.
func (b *Buffer[T]) sleepJitter() {
	b.mu.Lock()
	lo, hi := b.jitterLo, b.jitterHi

	if hi == 0 || lo > hi {
		b.mu.Unlock()

		return
	}

	sleep := lo

	span := hi - lo
	if span > 0 {
		sleep += time.Duration(b.jitterRNG.Int63n(int64(span) + 1))
	}

	b.mu.Unlock()

	time.Sleep(sleep)
}

// SetJitter updates the post-pop sleep range. Both zero, or lo > hi,
// disables jitter.
func (b *Buffer[T]) SetJitter(lo, hi time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.jitterLo = lo
	b.jitterHi = hi
}

// Len reports the current number of items held in each tier.
func (b *Buffer[T]) Len(ctx context.Context) (memory int, disk int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	diskCount, err := b.cat.DiskCount(ctx)
	if err != nil {
		return 0, 0, err
	}

	return len(b.hotSet), diskCount, nil
}

// Stats returns an aggregate snapshot of buffer state.
func (b *Buffer[T]) Stats(ctx context.Context) (Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	diskBytes, err := b.cat.DiskBytes(ctx)
	if err != nil {
		return Stats{}, err
	}

	diskCount, err := b.cat.DiskCount(ctx)
	if err != nil {
		return Stats{}, err
	}

	var memoryBytes uint64
	for _, item := range b.hotSet {
		memoryBytes += b.codec.ByteSize(item)
	}

	return Stats{
		MemoryBytes: memoryBytes,
		DiskBytes:   diskBytes,
		DiskRecords: diskCount,
	}, nil
}

// Records returns a snapshot of every catalog row, ordered the same way
// Pop would consume them. Used by operator tooling (prismctl inspect,
// prismctl fsck) to reconcile the catalog against the blob directory.
func (b *Buffer[T]) Records(ctx context.Context) ([]catalog.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cat.Dump(ctx)
}

// BlobExists reports whether a blob file named hash is present, without
// reading its contents. Used by prismctl fsck.
func (b *Buffer[T]) BlobExists(hash string) bool {
	_, found, err := b.blobs.Stat(hash)

	return err == nil && found
}

// Close flushes every remaining hot-set entry to a blob, flipping its
// catalog row to on_disk=true, and releases the catalog handle. It does
// not re-run disk eviction: whatever rows exist
// after flush remain for a subsequent Buffer opened on the same directory
// to observe.
func (b *Buffer[T]) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	for hash, item := range b.hotSet {
		err := b.writeBlob(hash, item)
		if err != nil {
			continue
		}

		err = b.cat.UpdateTier(ctx, hash, true)
		if err != nil {
			return err
		}

		delete(b.hotSet, hash)
	}

	return b.cat.Close()
}

// ManagedDirectory returns the fully-qualified path of the directory
// holding the catalog database and all blob files.
func (b *Buffer[T]) ManagedDirectory() string {
	return b.blobs.Dir()
}

// BlobFileNames returns the names of every blob file currently on disk,
// excluding the reserved catalog database file and its SQLite side files
// (the "-wal" and "-shm" files that share its name as a prefix). Used by
// tests and prismctl fsck to assert invariant 6 (file count equals record
// count).
func (b *Buffer[T]) BlobFileNames() ([]string, error) {
	names, err := b.blobs.ListNames()
	if err != nil {
		return nil, err
	}

	out := names[:0]

	for _, n := range names {
		if strings.HasPrefix(n, catalogFileName) {
			continue
		}

		out = append(out, n)
	}

	return out, nil
}
