package toml

import (
	"fmt"
	"time"

	"github.com/bnema/wns-cli/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version int            `toml:"version"`
	RunID   string         `toml:"run_id"`
	Records []recordSchema `toml:"records"`
}

func (s *fileSchema) applyDefaults(runID string) {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
	if s.RunID == "" {
		s.RunID = runID
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported state schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

func (s fileSchema) lastSeq() (int64, bool) {
	if len(s.Records) == 0 {
		return 0, false
	}
	return s.Records[len(s.Records)-1].Seq, true
}

type recordSchema struct {
	Seq       int64             `toml:"seq"`
	Stage     string            `toml:"stage"`
	Phase     string            `toml:"phase"`
	Iteration int               `toml:"iteration,omitempty"`
	Cycle     int               `toml:"cycle,omitempty"`
	Completed bool              `toml:"completed"`
	Failure   string            `toml:"failure,omitempty"`
	Artifacts map[string]string `toml:"artifacts,omitempty"`
	CreatedAt string            `toml:"created_at"`
}

func toRecordSchema(record domain.CheckpointRecord) recordSchema {
	return recordSchema{
		Seq:       record.Seq,
		Stage:     string(record.Stage),
		Phase:     record.Phase,
		Iteration: record.Iteration,
		Cycle:     record.Cycle,
		Completed: record.Completed,
		Failure:   record.Failure,
		Artifacts: record.Artifacts,
		CreatedAt: formatTime(record.CreatedAt),
	}
}

func fromRecordSchema(record recordSchema) domain.CheckpointRecord {
	return domain.CheckpointRecord{
		Seq:       record.Seq,
		Stage:     domain.PipelineStage(record.Stage),
		Phase:     record.Phase,
		Iteration: record.Iteration,
		Cycle:     record.Cycle,
		Completed: record.Completed,
		Failure:   record.Failure,
		Artifacts: record.Artifacts,
		CreatedAt: parseTime(record.CreatedAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}
