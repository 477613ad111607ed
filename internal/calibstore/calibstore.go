// Package calibstore persists per-sensor calibration records. The file store
// keeps all records in one YAML file replaced atomically on save; the memory
// store backs tests.
package calibstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// RecordType tags records produced by this sensor pipeline. A persisted
// record with any other tag is incompatible and must not be applied.
const RecordType = "lsm6ds3"

// Record is one sensor's calibration state. All fields are written together
// by a completed calibration run, never piecemeal.
type Record struct {
	Type            string        `yaml:"type"`
	GyroOffset      [3]float64    `yaml:"gyro_offset"`
	AccelBias       [3]float64    `yaml:"accel_bias"`
	AccelCorrection [3][3]float64 `yaml:"accel_correction"`
}

type Store interface {
	// GetCalibration returns the stored record for the sensor, false when
	// none has ever been persisted.
	GetCalibration(id int) (Record, bool)
	SetCalibration(id int, rec Record)
	// Save commits all records; synchronous, atomic on the file store.
	Save() error
}

type fileFormat struct {
	Sensors map[int]Record `yaml:"sensors"`
}

// FileStore is the YAML-file implementation.
type FileStore struct {
	path string

	mu      sync.Mutex
	records map[int]Record
}

// Open loads the store at path. It never returns a nil store: a missing file
// yields an empty store and no error; an unreadable or corrupt file yields an
// empty store plus the error, so the caller can log and carry on (the next
// Save rewrites the file).
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path, records: map[int]Record{}}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("calibstore: read %s: %w", path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(b, &f); err != nil {
		return s, fmt.Errorf("calibstore: parse %s: %w", path, err)
	}
	if f.Sensors != nil {
		s.records = f.Sensors
	}
	return s, nil
}

func (s *FileStore) GetCalibration(id int) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	return rec, ok
}

func (s *FileStore) SetCalibration(id int, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
}

func (s *FileStore) Save() error {
	s.mu.Lock()
	f := fileFormat{Sensors: make(map[int]Record, len(s.records))}
	for id, rec := range s.records {
		f.Sensors[id] = rec
	}
	s.mu.Unlock()

	b, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}

	// Temp file in the target directory so the final rename is atomic; a
	// crash mid-save must never corrupt the previous calibration.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// Memory is the in-memory Store used by tests and by callers that run
// without persistence.
type Memory struct {
	mu      sync.Mutex
	records map[int]Record
	// SaveErr, when set, is returned by Save.
	SaveErr error
	// Saves counts Save calls.
	Saves int
}

func NewMemory() *Memory {
	return &Memory{records: map[int]Record{}}
}

func (m *Memory) GetCalibration(id int) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return rec, ok
}

func (m *Memory) SetCalibration(id int, rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = rec
}

func (m *Memory) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	return m.SaveErr
}
