// Package storage persists comparison runs: one directory per run holding
// metadata.json and steps.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/harness"
)

const (
	metadataFile = "metadata.json"
	stepsFile    = "steps.csv"
)

var stepsHeader = []string{"trajectory", "step", "control", "state_diff", "cost_diff", "flagged"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo is what the caller knows about a run that the report does not.
type RunInfo struct {
	Seed   int64
	Params dynamo.Params
	Preset string
}

type RunMetadata struct {
	ID              string        `json:"id"`
	Mode            harness.Mode  `json:"mode"`
	Timestamp       time.Time     `json:"timestamp"`
	Seed            int64         `json:"seed"`
	Preset          string        `json:"preset,omitempty"`
	Params          dynamo.Params `json:"params"`
	BatchSize       int           `json:"batch_size"`
	Steps           int           `json:"steps"`
	Epsilon         float64       `json:"epsilon"`
	TotalStateDiff  float64       `json:"total_state_diff"`
	TotalCostDiff   float64       `json:"total_cost_diff"`
	StateFlags      int           `json:"state_flags"`
	CostFlags       int           `json:"cost_flags"`
	ShapeMismatches int           `json:"shape_mismatches"`
}

// StepRecord is one row of steps.csv.
type StepRecord struct {
	Trajectory int     `json:"trajectory"`
	Step       int     `json:"step"`
	Control    float64 `json:"control"`
	StateDiff  float64 `json:"state_diff"`
	CostDiff   float64 `json:"cost_diff"`
	Flagged    bool    `json:"flagged"`
}

func NewRunID(mode harness.Mode) string {
	return fmt.Sprintf("%s_%s", mode, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Save writes a run. steps should hold every StepResult the session
// produced, in the order it produced them.
func (s *Store) Save(info RunInfo, rep *harness.Report, steps []harness.StepResult) (string, error) {
	runID := NewRunID(rep.Mode)
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:              runID,
		Mode:            rep.Mode,
		Timestamp:       time.Now(),
		Seed:            info.Seed,
		Preset:          info.Preset,
		Params:          info.Params,
		BatchSize:       rep.Trajectories,
		Steps:           rep.Steps,
		Epsilon:         rep.Epsilon,
		TotalStateDiff:  rep.TotalStateDiff,
		TotalCostDiff:   rep.TotalCostDiff,
		StateFlags:      rep.StateFlags,
		CostFlags:       rep.CostFlags,
		ShapeMismatches: rep.ShapeMismatches,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	if err := writeSteps(filepath.Join(runDir, stepsFile), steps); err != nil {
		return "", err
	}

	return runID, nil
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

func writeSteps(path string, steps []harness.StepResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(stepsHeader); err != nil {
		return err
	}

	for _, r := range steps {
		row := []string{
			strconv.Itoa(r.Trajectory),
			strconv.Itoa(r.Step),
			strconv.FormatFloat(float64(r.Control), 'g', -1, 32),
			strconv.FormatFloat(r.StateDiff, 'g', -1, 64),
			strconv.FormatFloat(r.CostDiff, 'g', -1, 64),
			strconv.FormatBool(r.Flagged()),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns saved runs, newest first.
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

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &meta, nil
}

func (s *Store) LoadSteps(runID string) ([]StepRecord, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, stepsFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(stepsHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	if len(records) < 2 {
		return []StepRecord{}, nil
	}

	steps := make([]StepRecord, 0, len(records)-1)
	for i, record := range records[1:] {
		rec, err := parseStep(record)
		if err != nil {
			return nil, fmt.Errorf("run %s: row %d: %w", runID, i+1, err)
		}
		steps = append(steps, rec)
	}

	return steps, nil
}

func parseStep(record []string) (StepRecord, error) {
	var rec StepRecord
	var err error

	if rec.Trajectory, err = strconv.Atoi(record[0]); err != nil {
		return rec, err
	}
	if rec.Step, err = strconv.Atoi(record[1]); err != nil {
		return rec, err
	}
	if rec.Control, err = strconv.ParseFloat(record[2], 64); err != nil {
		return rec, err
	}
	if rec.StateDiff, err = strconv.ParseFloat(record[3], 64); err != nil {
		return rec, err
	}
	if rec.CostDiff, err = strconv.ParseFloat(record[4], 64); err != nil {
		return rec, err
	}
	if rec.Flagged, err = strconv.ParseBool(record[5]); err != nil {
		return rec, err
	}
	return rec, nil
}

// Series splits step records into per-trajectory state and cost diff series.
func Series(steps []StepRecord) (state, cost map[int][]float64) {
	state = make(map[int][]float64)
	cost = make(map[int][]float64)
	for _, r := range steps {
		state[r.Trajectory] = append(state[r.Trajectory], r.StateDiff)
		cost[r.Trajectory] = append(cost[r.Trajectory], r.CostDiff)
	}
	return state, cost
}

type ExportData struct {
	Run   RunMetadata  `json:"run"`
	Steps []StepRecord `json:"steps"`
}

// ExportJSON writes a saved run as a single JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	steps, err := s.LoadSteps(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: *meta, Steps: steps})
}

// Recorder is a harness observer that keeps every step for Save.
type Recorder struct {
	Steps []harness.StepResult
}

func (r *Recorder) OnStep(res harness.StepResult) {
	r.Steps = append(r.Steps, res)
}
