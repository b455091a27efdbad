package disk

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/cirruslabs/mocha/internal/store"
	"github.com/samber/lo"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

const (
	fileInfo = "info.json"
	fileBlob = "blob.bin"

	dirTemporary = ".tmp"
)

// Disk stores each object as a ZIP file that bundles the object's
// metadata and contents, so that both are replaced in a single rename(2).
//
// When a size limit is set, the least recently used objects are evicted
// to make room for new ones.
type Disk struct {
	dir        string
	limitBytes uint64
	mtx        sync.Mutex
}

func New(dir string, limitBytes uint64) (*Disk, error) {
	disk := &Disk{
		dir:        dir,
		limitBytes: limitBytes,
	}

	// Pre-create the disk's directory if not created yet, along with the
	// directory for objects in progress, which must reside on the same
	// filesystem for the rename(2) to be atomic
	if err := os.MkdirAll(filepath.Join(dir, dirTemporary), 0755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}

	return disk, nil
}

func (disk *Disk) Dir() string {
	return disk.dir
}

func (disk *Disk) Exists(_ context.Context, key string) (bool, error) {
	if _, err := os.Stat(disk.path(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, store.Unavailable(err, "check existence of", key)
	}

	return true, nil
}

func (disk *Disk) Get(_ context.Context, key string) (io.ReadCloser, store.Metadata, error) {
	disk.mtx.Lock()
	defer disk.mtx.Unlock()

	cacheFile, err := os.Open(disk.path(key))
	if err != nil {
		// Convert the error for consumer's convenience
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.Metadata{}, store.ErrNotFound
		}

		return nil, store.Metadata{}, store.Unavailable(err, "open", key)
	}

	// Update the access and modification times so that eviction would work correctly
	now := time.Now()

	if err := os.Chtimes(disk.path(key), now, now); err != nil {
		_ = cacheFile.Close()

		// Convert the error for consumer's convenience
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.Metadata{}, store.ErrNotFound
		}

		return nil, store.Metadata{}, store.Unavailable(fmt.Errorf("failed to set access and "+
			"modification times: %w", err), "retrieve", key)
	}

	blobReader, info, err := disk.getInner(cacheFile)
	if err != nil {
		_ = cacheFile.Close()

		return nil, store.Metadata{}, store.Unavailable(err, "read", key)
	}

	return &Reader{
		cacheFile:  cacheFile,
		blobReader: blobReader,
	}, info.Metadata, nil
}

func (disk *Disk) Put(_ context.Context, key string, metadata store.Metadata, blobReader io.Reader) error {
	tmpFile, err := os.CreateTemp(filepath.Join(disk.dir, dirTemporary), "put-*")
	if err != nil {
		return store.Unavailable(fmt.Errorf("failed to create a temporary file: %w", err), "store", key)
	}

	if err := writeEntry(tmpFile, key, metadata, blobReader); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())

		return store.Unavailable(err, "store", key)
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())

		return store.Unavailable(fmt.Errorf("failed to close temporary file: %w", err), "store", key)
	}

	if err := disk.accept(key, tmpFile.Name()); err != nil {
		_ = os.Remove(tmpFile.Name())

		return store.Unavailable(fmt.Errorf("failed to accept object: %w", err), "store", key)
	}

	return nil
}

func writeEntry(tmpFile *os.File, key string, metadata store.Metadata, blobReader io.Reader) error {
	// Write the cache entry as a ZIP file
	zipWriter := zip.NewWriter(tmpFile)

	// Write cache entry's info
	if err := writeInfo(zipWriter, Info{
		Key:      key,
		Metadata: metadata,
	}); err != nil {
		return fmt.Errorf("failed to write %q file: %w", fileInfo, err)
	}

	// Acquire a handle to the cache entry's underlying blob
	blobWriter, err := zipWriter.CreateHeader(&zip.FileHeader{
		Name:   fileBlob,
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("failed to write %q file: %w", fileBlob, err)
	}

	if _, err := io.Copy(blobWriter, blobReader); err != nil {
		return fmt.Errorf("failed to write %q file: %w", fileBlob, err)
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize ZIP file: %w", err)
	}

	return nil
}

func (disk *Disk) path(key string) string {
	// On macOS, the maximum filename length is 255 characters (inclusive),
	// so the safest way to avoid errors is to hash the cache entry's key
	hash := sha256.Sum256([]byte(key))

	return filepath.Join(disk.dir, hex.EncodeToString(hash[:]))
}

func (disk *Disk) getInner(cacheFile *os.File) (fs.File, Info, error) {
	// Open the cache entry as a ZIP file
	fi, err := cacheFile.Stat()
	if err != nil {
		// Convert the error for consumer's convenience
		if errors.Is(err, os.ErrNotExist) {
			return nil, Info{}, store.ErrNotFound
		}

		return nil, Info{}, fmt.Errorf("stat(2) failed: %w", err)
	}

	zipReader, err := zip.NewReader(cacheFile, fi.Size())
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to open as a ZIP file: %w", err)
	}

	// Read cache entry's info
	info, err := readInfo(zipReader)
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to read from ZIP file: %w", err)
	}

	// Acquire a handle to the cache entry's underlying blob
	blobReader, err := zipReader.Open(fileBlob)
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to read from ZIP file: %w", err)
	}

	return blobReader, *info, nil
}

func (disk *Disk) accept(key string, path string) error {
	disk.mtx.Lock()
	defer disk.mtx.Unlock()

	// Prepare for accepting the new cache entry
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}

	if disk.limitBytes != 0 {
		if err := disk.evict(uint64(fi.Size())); err != nil {
			return err
		}
	}

	// Accept new cache entry
	return os.Rename(path, disk.path(key))
}

func (disk *Disk) evict(needBytes uint64) error {
	// Does it even make sense to evict anything?
	if needBytes > disk.limitBytes {
		return fmt.Errorf("cannot accept cache entry as it's size of %d bytes"+
			" is larger than the disk limit of %d bytes", needBytes, disk.limitBytes)
	}

	// Collect a slice of cache entries, sorted by modification time, ascending order
	type Entry struct {
		Name    string
		Size    uint64
		ModTime time.Time
	}

	var entries []*Entry

	dirEntries, err := os.ReadDir(disk.dir)
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		// Skip the directory with objects in progress
		if entry.IsDir() {
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			return err
		}

		entries = append(entries, &Entry{
			Name:    entry.Name(),
			Size:    uint64(fi.Size()),
			ModTime: fi.ModTime(),
		})
	}

	slices.SortFunc(entries, func(a, b *Entry) int {
		return a.ModTime.Compare(b.ModTime)
	})

	usedBytes := lo.SumBy(entries, func(entry *Entry) uint64 {
		return entry.Size
	})

	// Evict the oldest entries to fit the new entry
	for _, entry := range entries {
		if (usedBytes + needBytes) <= disk.limitBytes {
			return nil
		}

		if err := os.Remove(filepath.Join(disk.dir, entry.Name)); err != nil {
			return err
		}

		usedBytes -= entry.Size
	}

	return nil
}
