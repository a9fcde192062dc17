package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/golang/snappy"

	"github.com/julianstephens/driftlog/internal/constants"
	"github.com/julianstephens/driftlog/internal/logger"
	"github.com/julianstephens/driftlog/internal/models"
	"github.com/julianstephens/driftlog/internal/utils"
)

// snappyMagic opens every snappy framed stream.
var snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")

// BundleInfo describes a stored archive bundle.
type BundleInfo struct {
	Name      string
	Location  string
	Size      int64
	CreatedAt time.Time
}

// Sink stores archive bundles by name.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]BundleInfo, error)
	Delete(ctx context.Context, name string) error
}

// Bundler serializes archive envelopes and writes them to every sink.
type Bundler struct {
	sinks    []Sink
	compress bool
	clock    utils.Clock
}

func NewBundler(compress bool, clock utils.Clock, sinks ...Sink) *Bundler {
	if clock == nil {
		clock = utils.SystemClock
	}
	return &Bundler{
		sinks:    sinks,
		compress: compress,
		clock:    clock,
	}
}

// BundleName returns the file name for a bundle created at t.
func BundleName(t time.Time, compressed bool) string {
	suffix := constants.ArchiveFileSuffix
	if compressed {
		suffix = constants.ArchiveCompressedSuffix
	}
	return constants.ArchiveFilePrefix + t.Format("20060102-150405") + suffix
}

// Write stores env in every sink and returns where it landed. If any sink
// fails, the copies already written are deleted, so a failed write leaves no
// bundle behind.
func (b *Bundler) Write(ctx context.Context, env models.ArchiveEnvelope) ([]string, error) {
	data, err := EncodeBundle(env, b.compress)
	if err != nil {
		return nil, err
	}
	name := BundleName(b.clock(), b.compress)

	locations := make([]string, 0, len(b.sinks))
	for i, sink := range b.sinks {
		loc, err := sink.Put(ctx, name, data)
		if err != nil {
			for _, written := range b.sinks[:i] {
				if delErr := written.Delete(ctx, name); delErr != nil {
					logger.Warn("Failed to remove partial archive bundle", "name", name, "error", delErr)
				}
			}
			return nil, fmt.Errorf("failed to write archive bundle: %w", err)
		}
		locations = append(locations, loc)
	}

	for _, loc := range locations {
		logger.Info("Archive bundle written", "location", loc, "bytes", len(data), "archived_count", env.ArchivedCount)
	}
	return locations, nil
}

// EncodeBundle renders an envelope as indented JSON, optionally wrapped in a
// snappy framed stream.
func EncodeBundle(env models.ArchiveEnvelope, compress bool) ([]byte, error) {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode archive: %w", err)
	}
	if !compress {
		return data, nil
	}

	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress archive: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress archive: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBundle accepts plain or snappy framed JSON and returns the entry
// store it carries. Plain exports and raw stores are accepted too.
func DecodeBundle(data []byte) (models.EntryStore, error) {
	if bytes.HasPrefix(data, snappyMagic) {
		plain, err := io.ReadAll(snappy.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress archive: %w", err)
		}
		data = plain
	}
	return models.ParseDocument(data)
}

// ReadBundle decodes a bundle file from disk.
func ReadBundle(path string) (models.EntryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return DecodeBundle(data)
}

// FileSink keeps bundles in a local directory.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (f *FileSink) Dir() string {
	return f.dir
}

func (f *FileSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(f.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	path := filepath.Join(f.dir, name)

	// Write then rename so a partial bundle never carries the final name.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	return path, nil
}

func (f *FileSink) Get(ctx context.Context, name string) ([]byte, error) {
	if name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid archive name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return data, nil
}

func (f *FileSink) Delete(ctx context.Context, name string) error {
	if name != filepath.Base(name) {
		return fmt.Errorf("invalid archive name %q", name)
	}
	if err := os.Remove(filepath.Join(f.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete archive: %w", err)
	}
	return nil
}

// List returns bundles newest first.
func (f *FileSink) List(ctx context.Context) ([]BundleInfo, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []BundleInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var bundles []BundleInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !IsBundleName(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		bundles = append(bundles, BundleInfo{
			Name:      name,
			Location:  filepath.Join(f.dir, name),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sortNewestFirst(bundles)
	return bundles, nil
}

// IsBundleName reports whether name follows the archive bundle pattern.
func IsBundleName(name string) bool {
	if !strings.HasPrefix(name, constants.ArchiveFilePrefix) {
		return false
	}
	return strings.HasSuffix(name, constants.ArchiveFileSuffix) ||
		strings.HasSuffix(name, constants.ArchiveCompressedSuffix)
}

// Bundle names embed their timestamp, so name order is creation order.
func sortNewestFirst(bundles []BundleInfo) {
	sort.Slice(bundles, func(i, j int) bool {
		return bundles[i].Name > bundles[j].Name
	})
}
