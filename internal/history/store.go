package history

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dgnsrekt/shobdo/internal/audio"
	"github.com/dgnsrekt/shobdo/internal/ttypes"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const (
	// DefaultMaxSize bounds the on-disk size of the history.
	DefaultMaxSize int64 = 256 * 1024 * 1024

	// DefaultCompressionLevel is the zstd level used for stored audio.
	DefaultCompressionLevel = 3

	indexFile = "history.index"

	// Blobs smaller than this are stored as is.
	minCompressSize = 1024
)

// ErrItemTooLarge is returned when a single generation exceeds the capacity.
var ErrItemTooLarge = errors.New("generation too large for history")

// Generation is one synthesized clip and the request that produced it.
type Generation struct {
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	VoiceID   string          `json:"voice_id"`
	Voice     string          `json:"voice"`
	Settings  ttypes.Settings `json:"settings"`
	CreatedAt time.Time       `json:"created_at"`
	Duration  time.Duration   `json:"duration"`
	Size      int64           `json:"size"`
}

// FileName returns the download name of the generation's WAV.
func FileName(gen Generation) string {
	return "shobdo_voice_" + gen.ID + ".wav"
}

// Options configures a Store.
type Options struct {
	// Dir holds the index and the audio files (required)
	Dir string

	// MaxSize is the capacity in bytes on disk (defaults to 256MB)
	MaxSize int64

	// CompressionLevel is the zstd level; zero or less stores audio raw
	CompressionLevel int

	// Now overrides the clock used for CreatedAt
	Now func() time.Time
}

// Stats describes the store's current contents.
type Stats struct {
	Count     int
	DiskSize  int64 // Bytes on disk, after compression
	AudioSize int64 // Bytes of WAV audio, before compression
	Capacity  int64
	Evictions int64
}

// Store persists generations and their WAV audio on disk. Audio is zstd
// compressed when that shrinks it. When the store is full the oldest
// generations are evicted first.
type Store struct {
	dir      string
	capacity int64 // Maximum size in bytes
	size     int64 // Current size in bytes

	// Compression
	enableCompression bool
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder

	// Index for fast lookups
	index map[string]*entry

	now       func() time.Time
	write     func(path string, data []byte) error
	evictions int64

	// Synchronization
	mu     sync.RWMutex
	closed bool
}

// entry represents a generation in the on-disk index
type entry struct {
	Generation Generation
	FilePath   string
	DiskSize   int64 // Size on disk (compressed)
	Compressed bool
}

// Open opens or creates the store in opts.Dir.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("history directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		dir:               opts.Dir,
		capacity:          opts.MaxSize,
		enableCompression: opts.CompressionLevel > 0,
		index:             make(map[string]*entry),
		now:               opts.Now,
		write:             writeFile,
	}

	// Compressed blobs stay readable after compression is turned off.
	var err error
	s.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	if s.enableCompression {
		s.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.CompressionLevel)))
		if err != nil {
			s.decoder.Close()
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}

	// Non-fatal: an unreadable index starts an empty history
	if err := s.loadIndex(); err != nil {
		s.index = make(map[string]*entry)
	}
	s.dropMissing()
	s.calculateSize()

	return s, nil
}

// Save stores wav under gen. An empty ID is filled with a new UUID, a zero
// CreatedAt with the current time, and a zero Duration from the WAV header.
// Size is always set from wav. The stored generation is returned.
func (s *Store) Save(gen Generation, wav []byte) (Generation, error) {
	header, err := audio.ReadWAVHeader(wav)
	if err != nil {
		return Generation{}, err
	}

	if gen.ID == "" {
		gen.ID = uuid.NewString()
	}
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = s.now()
	}
	if gen.Duration == 0 && header.ByteRate > 0 {
		gen.Duration = time.Duration(header.Subchunk2Size) * time.Second / time.Duration(header.ByteRate)
	}
	gen.Size = int64(len(wav))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Generation{}, errors.New("history store is closed")
	}

	// Compress if enabled
	data := wav
	compressed := false
	if s.enableCompression && len(wav) > minCompressSize {
		packed := s.encoder.EncodeAll(wav, nil)
		// Only use compression if it actually reduces size
		if len(packed) < len(wav) {
			data = packed
			compressed = true
		}
	}
	diskSize := int64(len(data))

	if diskSize > s.capacity {
		return Generation{}, ErrItemTooLarge
	}

	// A replacement is written to a fresh file so the old audio stays intact
	// until the index on disk points at the new one.
	existing, replacing := s.index[gen.ID]
	fileKey := gen.ID
	if replacing {
		fileKey = gen.ID + "\x00" + uuid.NewString()
	}

	filePath := s.generateFilePath(fileKey, compressed)
	if err := s.write(filePath, data); err != nil {
		return Generation{}, fmt.Errorf("failed to write audio file: %w", err)
	}

	s.index[gen.ID] = &entry{
		Generation: gen,
		FilePath:   filePath,
		DiskSize:   diskSize,
		Compressed: compressed,
	}
	s.size += diskSize
	if replacing {
		s.size -= existing.DiskSize
	}

	// Evict items if necessary
	for s.size > s.capacity && len(s.index) > 1 {
		s.evictOldest(gen.ID)
	}

	if err := s.saveIndex(); err != nil {
		s.size -= diskSize
		if replacing {
			s.index[gen.ID] = existing
			s.size += existing.DiskSize
		} else {
			delete(s.index, gen.ID)
		}
		os.Remove(filePath) //nolint:errcheck
		return Generation{}, fmt.Errorf("failed to save history index: %w", err)
	}

	if replacing {
		os.Remove(existing.FilePath) //nolint:errcheck
	}
	return gen, nil
}

// Get returns the generation with the given id.
func (s *Store) Get(id string) (Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.index[id]
	if !ok {
		return Generation{}, notFound(id)
	}
	return e.Generation, nil
}

// Audio returns the WAV bytes of a generation. An entry whose file has
// gone missing or fails to decompress is dropped.
func (s *Store) Audio(id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.index[id]
	if !ok {
		return nil, notFound(id)
	}

	data, err := os.ReadFile(e.FilePath)
	if err != nil {
		s.removeLocked(id)
		s.saveIndex() //nolint:errcheck
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeNotFound, "audio file is missing", err).
			WithContext("id", id)
	}

	if e.Compressed {
		decompressed, err := s.decoder.DecodeAll(data, nil)
		if err != nil {
			s.removeLocked(id)
			s.saveIndex() //nolint:errcheck
			return nil, ttypes.NewTTSError(ttypes.ErrorCodeNotFound, "audio file is corrupted", err).
				WithContext("id", id)
		}
		data = decompressed
	}

	return data, nil
}

// List returns all generations, newest first.
func (s *Store) List() []Generation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Generation, 0, len(s.index))
	for _, e := range s.index {
		out = append(out, e.Generation)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Delete removes a generation and its audio.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; !ok {
		return notFound(id)
	}
	s.removeLocked(id)
	return s.saveIndex()
}

// Clear removes every generation.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.index {
		os.Remove(e.FilePath) //nolint:errcheck
	}
	s.index = make(map[string]*entry)
	s.size = 0

	return s.saveIndex()
}

// Stats returns the store's current contents.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Count:     len(s.index),
		DiskSize:  s.size,
		Capacity:  s.capacity,
		Evictions: s.evictions,
	}
	for _, e := range s.index {
		st.AudioSize += e.Generation.Size
	}
	return st
}

// Close saves the index and releases the codecs.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.saveIndex()
	if s.encoder != nil {
		if cerr := s.encoder.Close(); err == nil {
			err = cerr
		}
	}
	s.decoder.Close()
	return err
}

// Private helper methods

func notFound(id string) error {
	return ttypes.NewTTSError(ttypes.ErrorCodeNotFound, fmt.Sprintf("no generation %q", id), nil)
}

func (s *Store) generateFilePath(id string, compressed bool) string {
	// Use SHA256 hash of the id for the filename
	hash := sha256.Sum256([]byte(id))
	filename := hex.EncodeToString(hash[:16]) + ".wav"
	if compressed {
		filename += ".zst"
	}
	return filepath.Join(s.dir, filename)
}

func (s *Store) removeLocked(id string) {
	e, ok := s.index[id]
	if !ok {
		return
	}
	os.Remove(e.FilePath) //nolint:errcheck
	s.size -= e.DiskSize
	delete(s.index, id)
}

// evictOldest removes the oldest generation other than keep.
func (s *Store) evictOldest(keep string) {
	var oldestID string
	var oldest time.Time

	for id, e := range s.index {
		if id == keep {
			continue
		}
		if oldestID == "" || e.Generation.CreatedAt.Before(oldest) {
			oldestID = id
			oldest = e.Generation.CreatedAt
		}
	}

	if oldestID != "" {
		s.removeLocked(oldestID)
		s.evictions++
	}
}

func (s *Store) dropMissing() {
	for id, e := range s.index {
		if _, err := os.Stat(e.FilePath); err != nil {
			delete(s.index, id)
		}
	}
}

func (s *Store) calculateSize() {
	s.size = 0
	for _, e := range s.index {
		s.size += e.DiskSize
	}
}

func (s *Store) loadIndex() error {
	file, err := os.Open(filepath.Join(s.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No index file yet
		}
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(&s.index)
}

func (s *Store) saveIndex() error {
	indexPath := filepath.Join(s.dir, indexFile)
	tempPath := indexPath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	err = gob.NewEncoder(file).Encode(s.index)
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath) //nolint:errcheck
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath) //nolint:errcheck
		return closeErr
	}

	return os.Rename(tempPath, indexPath)
}

// writeFile writes to a temp file first, then renames it into place.
func writeFile(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath) //nolint:errcheck
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath) //nolint:errcheck
		return closeErr
	}

	return os.Rename(tempPath, path)
}
