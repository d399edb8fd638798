package storage

import (
	"encoding/json"
	"errors"

	"bayesnet/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp sets the current schema and codec versions on a record.
func Stamp(run model.RunRecord) model.RunRecord {
	run.SchemaVersion = CurrentSchemaVersion
	run.CodecVersion = CurrentCodecVersion
	return run
}

func EncodeRun(run model.RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
