package archive

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dd0wney/cluso-communities/pkg/config"
	"github.com/dd0wney/cluso-communities/pkg/logging"
	"github.com/dd0wney/cluso-communities/pkg/metrics"
)

// logName is the append-only run log inside the archive directory.
const logName = "runs.log"

// Store appends run records to a local log and optionally mirrors each
// one to S3.
type Store struct {
	dir      string
	file     *os.File
	writer   *bufio.Writer
	seq      uint64
	mu       sync.Mutex
	uploader *S3Uploader
	logger   logging.Logger
	registry *metrics.Registry
}

// NewStore opens (or creates) the archive in cfg.Dir. When cfg.S3Bucket
// is set every record is also uploaded as its own object.
func NewStore(ctx context.Context, cfg config.ArchiveConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(cfg.Dir, logName), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive log: %w", err)
	}

	st := &Store{
		dir:      cfg.Dir,
		file:     file,
		writer:   bufio.NewWriter(file),
		logger:   logging.DefaultLogger().With(logging.Component("archive")),
		registry: metrics.DefaultRegistry(),
	}

	if cfg.S3Bucket != "" {
		uploader, err := NewS3Uploader(ctx, cfg)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to initialize s3 uploader: %w", err)
		}
		st.uploader = uploader
	}

	if err := st.recoverSeq(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to recover archive log: %w", err)
	}

	return st, nil
}

// SetUploader replaces the S3 uploader. Mainly for tests.
func (s *Store) SetUploader(u *S3Uploader) {
	s.uploader = u
}

// Save appends the record to the log and, when configured, uploads it
// to S3.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	compressed, err := rec.Marshal()
	if err != nil {
		return err
	}

	if err := s.append(compressed, rec.CreatedAt.Unix()); err != nil {
		s.registry.RecordArchiveWrite("disk", "error", 0)
		return err
	}
	s.registry.RecordArchiveWrite("disk", "ok", len(compressed))

	if s.uploader != nil {
		if err := s.uploader.Upload(ctx, rec, compressed); err != nil {
			s.registry.RecordArchiveWrite("s3", "error", 0)
			return err
		}
		s.registry.RecordArchiveWrite("s3", "ok", len(compressed))
	}

	s.logger.Debug("run archived",
		logging.RunID(rec.RunID),
		logging.Variant(rec.Variant),
		logging.Int("bytes", len(compressed)))
	return nil
}

// append writes one framed entry to disk.
// Format: [Seq:8][DataLen:4][Data:N][Checksum:4][Timestamp:8]
func (s *Store) append(compressed []byte, timestamp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if err := binary.Write(s.writer, binary.BigEndian, s.seq); err != nil {
		return err
	}
	if err := binary.Write(s.writer, binary.BigEndian, uint32(len(compressed))); err != nil {
		return err
	}
	if _, err := s.writer.Write(compressed); err != nil {
		return err
	}
	if err := binary.Write(s.writer, binary.BigEndian, crc32.ChecksumIEEE(compressed)); err != nil {
		return err
	}
	if err := binary.Write(s.writer, binary.BigEndian, timestamp); err != nil {
		return err
	}
	return s.writer.Flush()
}

// ReadAll replays every record in the log, verifying checksums.
func (s *Store) ReadAll() ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(filepath.Join(s.dir, logName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var records []*Record

	for {
		var seq uint64
		if err := binary.Read(reader, binary.BigEndian, &seq); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		var dataLen uint32
		if err := binary.Read(reader, binary.BigEndian, &dataLen); err != nil {
			return nil, err
		}

		compressed := make([]byte, dataLen)
		if _, err := io.ReadFull(reader, compressed); err != nil {
			return nil, err
		}

		var checksum uint32
		if err := binary.Read(reader, binary.BigEndian, &checksum); err != nil {
			return nil, err
		}
		if crc32.ChecksumIEEE(compressed) != checksum {
			return nil, fmt.Errorf("checksum mismatch for archive entry %d", seq)
		}

		var timestamp int64
		if err := binary.Read(reader, binary.BigEndian, &timestamp); err != nil {
			return nil, err
		}

		rec, err := UnmarshalRecord(compressed)
		if err != nil {
			return nil, fmt.Errorf("archive entry %d: %w", seq, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// Flush forces buffered entries to disk.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

// Close flushes and closes the log.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		return err
	}
	if err := s.file.Sync(); err != nil {
		return err
	}
	return s.file.Close()
}

// recoverSeq positions the sequence counter after the last entry.
func (s *Store) recoverSeq() error {
	records, err := s.ReadAll()
	if err != nil {
		return err
	}
	s.seq = uint64(len(records))
	return nil
}
