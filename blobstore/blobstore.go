// Package blobstore provides content-addressed file storage under a single
// managed directory, with a safety guard against path traversal and against
// operations on the directory itself.
//
// Built on the fs package's AtomicWriter for every write.
// GetFilePath/GetInput/GetOutput/Delete map onto PathOf/OpenRead/
// OpenWrite/Delete below.
package blobstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	pbfs "github.com/calvinalkan/prismbuffer/fs"
)

// ErrNotFound is returned by OpenRead when no regular file exists at the
// requested name, the name is a traversal attempt, or the name resolves
// to a directory.
var ErrNotFound = errors.New("blobstore: not found")

// ErrAlreadyExists is returned by OpenWrite when a regular file already
// exists at the requested name. Overwriting is not permitted through
// this interface.
var ErrAlreadyExists = errors.New("blobstore: already exists")

// Store is content-addressed file storage under a single managed
// directory. The zero value is not usable; construct with [New].
type Store struct {
	dir    string
	fs     pbfs.FS
	atomic *pbfs.AtomicWriter
}

// Options configures [New].
type Options struct {
	// DirectoryName is the name of the managed directory. Required.
	DirectoryName string

	// ParentDirectory is the parent under which DirectoryName is created.
	// Defaults to the OS temp directory.
	ParentDirectory string

	// FS is the filesystem implementation to use. Defaults to [pbfs.NewReal].
	FS pbfs.FS
}

// New constructs a Store, creating the managed directory if it does not
// exist. It fails with a configuration error when DirectoryName is empty,
// or when the managed path would resolve to the parent directory itself
// or the parent's parent (guards against misconfiguration that would let
// the store operate on directories it doesn't own).
func New(opts Options) (*Store, error) {
	if opts.DirectoryName == "" {
		return nil, errors.New("blobstore: directory name must not be empty")
	}

	parent := opts.ParentDirectory
	if parent == "" {
		parent = os.TempDir()
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = pbfs.NewReal()
	}

	parent = filepath.Clean(parent)
	managed := filepath.Join(parent, opts.DirectoryName)

	if managed == parent || managed == filepath.Dir(parent) {
		return nil, fmt.Errorf("blobstore: managed directory %q must not resolve to the parent or its parent", managed)
	}

	err := fsys.MkdirAll(managed, 0o750)
	if err != nil {
		return nil, fmt.Errorf("blobstore: create managed directory: %w", err)
	}

	return &Store{
		dir:    managed,
		fs:     fsys,
		atomic: pbfs.NewAtomicWriter(fsys),
	}, nil
}

// Dir returns the fully qualified managed directory path.
func (s *Store) Dir() string {
	return s.dir
}

// PathOf returns the fully qualified path for name, without touching the
// filesystem.
func (s *Store) PathOf(name string) string {
	return filepath.Join(s.dir, name)
}

// safeName reports whether name is safe to resolve within the managed
// directory: not empty, not a path separator component, and its final
// path component is not "." or "..".
func safeName(name string) bool {
	if name == "" {
		return false
	}

	if filepath.Base(name) != name {
		return false
	}

	return name != "." && name != ".."
}

// OpenRead opens name for reading. It returns [ErrNotFound] unless name
// resolves to an existing regular file directly under the managed
// directory. The caller must Close the returned reader.
func (s *Store) OpenRead(name string) (io.ReadCloser, error) {
	if !safeName(name) {
		return nil, ErrNotFound
	}

	path := s.PathOf(name)

	info, err := s.fs.Stat(path)
	if err != nil {
		return nil, ErrNotFound
	}

	if info.IsDir() {
		return nil, ErrNotFound
	}

	f, err := s.fs.Open(path)
	if err != nil {
		return nil, ErrNotFound
	}

	return f, nil
}

// OpenWrite creates name for writing. It returns [ErrAlreadyExists] if a
// regular file already exists at name; overwriting is not permitted
// through this interface. The caller must Close the returned writer,
// which commits the content via atomic rename.
func (s *Store) OpenWrite(name string) (*PendingWrite, error) {
	if !safeName(name) {
		return nil, ErrAlreadyExists
	}

	path := s.PathOf(name)

	_, statErr := s.fs.Stat(path)
	if statErr == nil {
		return nil, ErrAlreadyExists
	}

	if !os.IsNotExist(statErr) {
		return nil, fmt.Errorf("blobstore: stat %q: %w", name, statErr)
	}

	return &PendingWrite{store: s, path: path}, nil
}

// Write serializes the contents read from r into name via OpenWrite,
// convenience wrapper used by callers that already have an io.Reader
// rather than wanting to stream writes incrementally.
func (s *Store) Write(name string, r io.Reader) error {
	pw, err := s.OpenWrite(name)
	if err != nil {
		return err
	}

	return pw.WriteAll(r)
}

// Delete removes name from the managed directory. It returns (true, nil)
// if a file was actually removed, (false, nil) for missing files,
// directories, and traversal names, and (false, err) on unexpected I/O
// errors.
func (s *Store) Delete(name string) (bool, error) {
	if !safeName(name) {
		return false, nil
	}

	path := s.PathOf(name)

	info, statErr := s.fs.Stat(path)
	if statErr != nil {
		return false, nil
	}

	if info.IsDir() {
		return false, nil
	}

	err := s.fs.Remove(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("blobstore: remove %q: %w", name, err)
	}

	return true, nil
}

// ListNames returns the names of every regular file directly under the
// managed directory, including any reserved files (such as the catalog
// database) a caller must filter out itself. The blob store has no notion
// of reserved names; it only knows about files.
func (s *Store) ListNames() ([]string, error) {
	entries, err := s.fs.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("blobstore: read dir %q: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		names = append(names, e.Name())
	}

	return names, nil
}

// Stat reports the size in bytes of the blob named name, without opening
// a read stream. Used by diagnostic tooling to detect catalog/blob
// mismatches without materializing blob contents.
func (s *Store) Stat(name string) (size int64, found bool, err error) {
	if !safeName(name) {
		return 0, false, nil
	}

	info, statErr := s.fs.Stat(s.PathOf(name))
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("blobstore: stat %q: %w", name, statErr)
	}

	if info.IsDir() {
		return 0, false, nil
	}

	return info.Size(), true, nil
}

// PendingWrite is an in-progress blob write opened by [Store.OpenWrite].
// Writes accumulate in memory; Close commits them to disk atomically via
// the store's [pbfs.AtomicWriter]. It must be closed exactly once.
type PendingWrite struct {
	store *Store
	path  string
	buf   bytes.Buffer
	done  bool
}

// Write appends p to the pending blob. Satisfies io.Writer.
func (pw *PendingWrite) Write(p []byte) (int, error) {
	if pw.done {
		return 0, fmt.Errorf("blobstore: write %q: already closed", pw.path)
	}

	return pw.buf.Write(p)
}

// WriteAll copies all of r into the pending blob and commits it.
func (pw *PendingWrite) WriteAll(r io.Reader) error {
	if pw.done {
		return fmt.Errorf("blobstore: write %q: already closed", pw.path)
	}

	_, err := io.Copy(&pw.buf, r)
	if err != nil {
		pw.done = true

		return fmt.Errorf("blobstore: write %q: %w", pw.path, err)
	}

	return pw.Close()
}

// Close commits the pending write to path atomically (temp file in the
// same directory, synced, renamed into place). Close is idempotent;
// calling it more than once after a successful commit is a no-op.
func (pw *PendingWrite) Close() error {
	if pw.done {
		return nil
	}

	pw.done = true

	return pw.store.atomic.Write(pw.path, &pw.buf, pw.store.atomic.DefaultOptions())
}
