package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/config"
)

const (
	metadataFile = "metadata.json"
	pulseFile    = "pulse.csv"
	configFile   = "config.yaml"
)

var (
	// ErrNotFound is returned when no run matches an ID or prefix.
	ErrNotFound = errors.New("storage: run not found")
	// ErrAmbiguous is returned when a prefix matches several runs.
	ErrAmbiguous = errors.New("storage: run prefix is ambiguous")
)

// Store keeps one directory per optimization run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Timestamp  time.Time `json:"timestamp"`
	Seed       int64     `json:"seed"`
	Dt         float64   `json:"dt"`
	Steps      int       `json:"steps"`
	Channels   int       `json:"channels"`
	Integrator string    `json:"integrator"`
	Method     string    `json:"method"`

	Value       float64 `json:"value"`
	Converged   bool    `json:"converged"`
	Status      string  `json:"status"`
	Iterations  int     `json:"iterations"`
	Evaluations int     `json:"evaluations"`
	Attempts    int     `json:"attempts"`
	Runtime     float64 `json:"runtime_seconds"`

	Metrics map[string]float64 `json:"metrics"`
}

// Save writes a new run and returns its ID. ID and Timestamp in meta are
// assigned here. cfg may be nil.
func (s *Store) Save(meta RunMetadata, seq *mat.Dense, cfg *config.Config) (string, error) {
	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now().UTC()
	meta.Steps, meta.Channels = seq.Dims()

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writePulse(filepath.Join(runDir, pulseFile), seq, meta.Dt); err != nil {
		return "", err
	}
	if cfg != nil {
		if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
			return "", err
		}
	}

	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writePulse(path string, seq *mat.Dense, dt float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	rows, cols := seq.Dims()
	header := []string{"step", "time"}
	for k := 0; k < cols; k++ {
		header = append(header, fmt.Sprintf("u%d", k))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := 0; i < rows; i++ {
		row := []string{strconv.Itoa(i), strconv.FormatFloat(float64(i)*dt, 'f', 6, 64)}
		for k := 0; k < cols; k++ {
			row = append(row, strconv.FormatFloat(seq.At(i, k), 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.readMeta(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

// Resolve maps "latest", a full ID or a unique ID prefix to a run ID.
func (s *Store) Resolve(ref string) (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if ref == "latest" || ref == "" {
		if len(runs) == 0 {
			return "", ErrNotFound
		}
		return runs[0].ID, nil
	}

	var match string
	for _, r := range runs {
		if r.ID == ref {
			return r.ID, nil
		}
		if strings.HasPrefix(r.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("%q: %w", ref, ErrAmbiguous)
			}
			match = r.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%q: %w", ref, ErrNotFound)
	}
	return match, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	meta, err := s.readMeta(runID)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%q: %w", runID, ErrNotFound)
	}
	return meta, err
}

func (s *Store) readMeta(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadPulse reads the control sequence of a run and the start time of each
// step.
func (s *Store) LoadPulse(runID string) (*mat.Dense, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, pulseFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("storage: %s has no steps", pulseFile)
	}

	cols := len(records[0]) - 2
	if cols < 1 {
		return nil, nil, fmt.Errorf("storage: %s has no channels", pulseFile)
	}
	rows := len(records) - 1

	seq := mat.NewDense(rows, cols, nil)
	times := make([]float64, rows)
	for i, record := range records[1:] {
		t, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: step %d time: %w", i, err)
		}
		times[i] = t
		for k := 0; k < cols; k++ {
			v, err := strconv.ParseFloat(record[k+2], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("storage: step %d channel %d: %w", i, k, err)
			}
			seq.Set(i, k, v)
		}
	}

	return seq, times, nil
}

// LoadConfig reads the problem configuration saved with a run.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}
