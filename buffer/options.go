package buffer

import "time"

const (
	defaultMaxDiskBytes  = 100_000_000
	defaultMaxMemory     = 50
	defaultDirectoryName = "prism_buffer"
)

// Options configures a [Buffer]. Start from [DefaultOptions] and override
// only the fields that need to change, the way config.go's DefaultConfig
// does for the ticket store.
type Options[T any] struct {
	// PriorityFunc computes an item's priority. Zero value means "use the
	// default": a monotonically increasing counter at push time, so the
	// most recently pushed item outranks earlier ones until something
	// with an explicit higher priority is pushed.
	PriorityFunc func(item T) uint64

	// MaxDiskBytes is the total on-disk byte cap. Zero means "use the
	// default" (100,000,000); a Buffer's catalog is never constructed
	// with a zero cap.
	MaxDiskBytes uint64

	// MaxMemory is the hot-set entry cap. Zero is a valid, meaningful
	// configuration (every push demotes immediately) and is NOT replaced
	// by a default; the default is only applied by [DefaultOptions].
	MaxMemory uint32

	// DirectoryName is the managed directory name. Zero value means
	// "use the default" ("prism_buffer").
	DirectoryName string

	// ParentDirectory is the parent of the managed directory. Zero value
	// means "use the default" (OS temp directory).
	ParentDirectory string

	// JitterLo and JitterHi bound the post-pop sleep. Both zero (the
	// default) disables jitter; JitterLo > JitterHi also disables it.
	JitterLo time.Duration
	JitterHi time.Duration
}

// DefaultOptions returns the configuration surface's documented defaults
// max_disk_bytes=10^8, max_memory=50, directory_name=
// "prism_buffer", parent_directory=OS temp, no jitter, counter-based
// default priority.
func DefaultOptions[T any]() Options[T] {
	return Options[T]{
		MaxDiskBytes:  defaultMaxDiskBytes,
		MaxMemory:     defaultMaxMemory,
		DirectoryName: defaultDirectoryName,
	}
}

func (o Options[T]) withDefaultsApplied() Options[T] {
	if o.MaxDiskBytes == 0 {
		o.MaxDiskBytes = defaultMaxDiskBytes
	}

	if o.DirectoryName == "" {
		o.DirectoryName = defaultDirectoryName
	}

	return o
}
