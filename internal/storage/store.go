package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/latticeworks/lgfrelax/internal/relax"
)

// Store archives finished relaxation runs under a base directory, one
// subdirectory per run with metadata.json and forces.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Geometry      string    `json:"geometry"`
	LGF           string    `json:"lgf"`
	Mode          string    `json:"mode"`
	Ftol          float64   `json:"ftol"`
	MaxIter       int       `json:"max_iter"`
	Iterations    int       `json:"iterations"`
	Converged     bool      `json:"converged"`
	FinalForceMax float64   `json:"final_force_max"`
}

// Save archives one run and returns its ID.
func (s *Store) Save(meta RunMetadata, result *relax.Result) (string, error) {
	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now()
	meta.Iterations = result.Iterations
	meta.Converged = result.Converged
	meta.FinalForceMax = result.FinalForceMax

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "forces.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()
	if err := w.Write([]string{"iteration", "force_max", "force_norm", "energy"}); err != nil {
		return "", err
	}
	for i := range result.ForceMax {
		energy := ""
		if i < len(result.Energy) {
			energy = strconv.FormatFloat(result.Energy[i], 'e', 8, 64)
		}
		row := []string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(result.ForceMax[i], 'e', 8, 64),
			strconv.FormatFloat(result.ForceNorm[i], 'e', 8, 64),
			energy,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	return meta.ID, nil
}

// List returns metadata for every archived run.
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
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

// Load returns the metadata of one archived run.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadHistory reads back the per-iteration force history of a run.
func (s *Store) LoadHistory(runID string) (forceMax, forceNorm []float64, err error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "forces.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	for i := 1; i < len(records); i++ {
		if len(records[i]) < 3 {
			return nil, nil, fmt.Errorf("storage: %s: malformed forces.csv row %d", runID, i)
		}
		fm, err := strconv.ParseFloat(records[i][1], 64)
		if err != nil {
			return nil, nil, err
		}
		fn, err := strconv.ParseFloat(records[i][2], 64)
		if err != nil {
			return nil, nil, err
		}
		forceMax = append(forceMax, fm)
		forceNorm = append(forceNorm, fn)
	}
	return forceMax, forceNorm, nil
}
