package buffer_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/prismbuffer/buffer"
	"github.com/calvinalkan/prismbuffer/codec"
)

func newBuffer(t *testing.T, override func(*buffer.Options[[]byte])) *buffer.Buffer[[]byte] {
	t.Helper()

	opts := buffer.DefaultOptions[[]byte]()
	opts.ParentDirectory = t.TempDir()

	if override != nil {
		override(&opts)
	}

	b, err := buffer.New(context.Background(), codec.Bytes{}, opts)
	require.NoError(t, err)

	t.Cleanup(func() { _ = b.Close(context.Background()) })

	return b
}

// TestScenarioA_DefaultPriority_PopsMostRecentFirst covers scenario A: with
// the default priority function, 1000 pushes in order "0".."999" pop back
// in the reverse order "999".."0".
func TestScenarioA_DefaultPriority_PopsMostRecentFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := newBuffer(t, nil)

	const n = 1000

	for i := 0; i < n; i++ {
		require.NoError(t, b.Push(ctx, []byte(strconv.Itoa(i))))
	}

	for i := n - 1; i >= 0; i-- {
		got, err := b.Pop(ctx, false)
		require.NoError(t, err)
		require.Equal(t, strconv.Itoa(i), string(got))
	}
}

// TestScenarioB_ExplicitPriorities covers scenario B: out-of-order explicit
// priorities pop back in descending priority order.
func TestScenarioB_ExplicitPriorities(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	priorities := map[string]uint64{
		"5": 5, "3": 3, "7": 7, "1": 1, "8": 8, "2": 2,
	}

	b := newBuffer(t, func(o *buffer.Options[[]byte]) {
		o.PriorityFunc = func(item []byte) uint64 {
			return priorities[string(item)]
		}
	})

	for _, payload := range []string{"5", "3", "7", "1", "8", "2"} {
		require.NoError(t, b.Push(ctx, []byte(payload)))
	}

	want := []string{"8", "7", "5", "3", "2", "1"}
	for _, w := range want {
		got, err := b.Pop(ctx, false)
		require.NoError(t, err)
		require.Equal(t, w, string(got))
	}
}

// TestScenarioC_DiskSpill_FileCountMatchesRecordCount covers scenario C:
// after destruction, the managed directory contains exactly one blob per
// pushed item plus the catalog file.
func TestScenarioC_DiskSpill_FileCountMatchesRecordCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	const (
		n           = 200
		avgItemSize = 16
	)

	parent := t.TempDir()

	b, err := buffer.New(context.Background(), codec.Bytes{}, buffer.Options[[]byte]{
		MaxDiskBytes:    n * avgItemSize,
		MaxMemory:       50,
		DirectoryName:   "spill",
		ParentDirectory: parent,
	})
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		require.NoError(t, b.Push(ctx, []byte(fmt.Sprintf("%012d", i))))
	}

	memory, disk, err := b.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, n, memory+disk)

	require.NoError(t, b.Close(ctx))

	names, err := b.BlobFileNames()
	require.NoError(t, err)
	require.Len(t, names, n)

	entries, err := os.ReadDir(filepath.Join(parent, "spill"))
	require.NoError(t, err)
	require.Len(t, entries, n+1, "n blobs plus the catalog file")
}

// TestScenarioD_ExternalBlobDeletion covers scenario D: after externally
// removing k blob files, exactly 1000-k pops return initialized items, and
// the rest return the uninitialized sentinel without blocking.
func TestScenarioD_ExternalBlobDeletion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	parent := t.TempDir()

	b, err := buffer.New(context.Background(), codec.Bytes{}, buffer.Options[[]byte]{
		MaxDiskBytes:    1_000_000,
		MaxMemory:       0, // every push demotes straight to disk
		DirectoryName:   "deleted-blobs",
		ParentDirectory: parent,
	})
	require.NoError(t, err)

	const n = 1000

	for i := 0; i < n; i++ {
		require.NoError(t, b.Push(ctx, []byte(fmt.Sprintf("%04d", i))))
	}

	names, err := b.BlobFileNames()
	require.NoError(t, err)

	const k = 137
	require.GreaterOrEqual(t, len(names), k)

	for _, name := range names[:k] {
		require.NoError(t, os.Remove(filepath.Join(b.ManagedDirectory(), name)))
	}

	initialized := 0

	codecBytes := codec.Bytes{}

	for i := 0; i < n; i++ {
		got, popErr := b.Pop(ctx, false)
		require.NoError(t, popErr)

		if codecBytes.IsInitialized(got) {
			initialized++
		}
	}

	require.Equal(t, n-k, initialized)

	// Further pops must return unavailable without blocking.
	got, err := b.Pop(ctx, false)
	require.NoError(t, err)
	require.False(t, codecBytes.IsInitialized(got))
}

func TestBoundary_MaxMemoryZero_EveryPushGoesStraightToDisk(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	b := newBuffer(t, func(o *buffer.Options[[]byte]) {
		o.MaxMemory = 0
	})

	require.NoError(t, b.Push(ctx, []byte("x")))

	memory, disk, err := b.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, memory)
	require.Equal(t, 1, disk)
}

func TestBoundary_SingleItemExceedsDiskCap_EndsAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	b := newBuffer(t, func(o *buffer.Options[[]byte]) {
		o.MaxMemory = 0
		o.MaxDiskBytes = 4
	})

	require.NoError(t, b.Push(ctx, []byte("this-is-way-over-four-bytes")))

	memory, disk, err := b.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, memory)
	require.Equal(t, 0, disk, "oversized item must be evicted immediately after admission")
}

func TestBlockingPop_WaitsForSubsequentPush(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := newBuffer(t, nil)

	var wg sync.WaitGroup

	resultCh := make(chan []byte, 1)

	wg.Add(1)

	go func() {
		defer wg.Done()

		got, err := b.Pop(ctx, true)
		require.NoError(t, err)
		resultCh <- got
	}()

	require.NoError(t, b.Push(ctx, []byte("woken")))

	wg.Wait()

	require.Equal(t, "woken", string(<-resultCh))
}

func TestPop_NonBlocking_OnEmptyBufferReturnsUninitializedImmediately(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := newBuffer(t, nil)

	got, err := b.Pop(ctx, false)
	require.NoError(t, err)
	require.False(t, codec.Bytes{}.IsInitialized(got))
}

func TestRoundTrip_PushThenPopReturnsEqualItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := newBuffer(t, nil)

	payload := []byte("round-trip-payload")

	require.NoError(t, b.Push(ctx, payload))

	got, err := b.Pop(ctx, false)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestClose_FlushesHotSetAndReopenRecoversItems(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()

	opts := buffer.DefaultOptions[[]byte]()
	opts.ParentDirectory = parent
	opts.MaxMemory = 50

	ctx := context.Background()

	b, err := buffer.New(ctx, codec.Bytes{}, opts)
	require.NoError(t, err)

	require.NoError(t, b.Push(ctx, []byte("x")))
	require.NoError(t, b.Push(ctx, []byte("y")))

	memory, disk, err := b.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, memory)
	require.Equal(t, 0, disk)

	require.NoError(t, b.Close(ctx))

	reopened, err := buffer.New(ctx, codec.Bytes{}, opts)
	require.NoError(t, err)

	t.Cleanup(func() { _ = reopened.Close(ctx) })

	memory, disk, err = reopened.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, memory)
	require.Equal(t, 2, disk)

	first, err := reopened.Pop(ctx, false)
	require.NoError(t, err)
	second, err := reopened.Pop(ctx, false)
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"x", "y"}, []string{string(first), string(second)})
}

func TestConcurrentPushPop_NoDataRace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := newBuffer(t, nil)

	const producers = 8

	const itemsPerProducer = 100

	var wg sync.WaitGroup

	for p := 0; p < producers; p++ {
		wg.Add(1)

		go func(p int) {
			defer wg.Done()

			for i := 0; i < itemsPerProducer; i++ {
				_ = b.Push(ctx, []byte(fmt.Sprintf("p%d-i%d", p, i)))
			}
		}(p)
	}

	wg.Wait()

	count := 0

	codecBytes := codec.Bytes{}

	for {
		got, err := b.Pop(ctx, false)
		require.NoError(t, err)

		if !codecBytes.IsInitialized(got) {
			break
		}

		count++
	}

	require.Equal(t, producers*itemsPerProducer, count)
}
