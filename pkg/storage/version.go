package storage

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// SchemaVersion is the layout version written into every report store.
const SchemaVersion = "v1.0.0"

var (
	metaBucket  = []byte("meta")
	metaVersion = []byte("schema_version")
	metaCodec   = []byte("codec")
)

// IsCompatibleVersion checks if a store written at version stored can be
// read by version current. Major versions must match; minor and patch may
// differ.
func IsCompatibleVersion(stored, current string) (bool, error) {
	if !semver.IsValid(stored) {
		return false, fmt.Errorf("invalid stored schema version: %s", stored)
	}
	if !semver.IsValid(current) {
		return false, fmt.Errorf("invalid schema version: %s", current)
	}
	return semver.Major(stored) == semver.Major(current), nil
}

// checkSchema stamps a fresh store with SchemaVersion and the codec name, or
// verifies that an existing store matches both.
func (s *ReportStore) checkSchema() error {
	return s.backend.Update(func(tx Tx) error {
		meta := tx.Bucket(metaBucket)
		if meta == nil {
			var err error
			if meta, err = tx.CreateBucket(metaBucket); err != nil {
				return err
			}
		}

		stored := meta.Get(metaVersion)
		if stored == nil {
			if err := meta.Put(metaVersion, []byte(SchemaVersion)); err != nil {
				return err
			}
			return meta.Put(metaCodec, []byte(s.codec.Name()))
		}

		ok, err := IsCompatibleVersion(string(stored), SchemaVersion)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrIncompatibleSchema, err)
		}
		if !ok {
			return fmt.Errorf("%w: store is %s, this build reads %s",
				ErrIncompatibleSchema, stored, semver.Major(SchemaVersion))
		}
		if codec := string(meta.Get(metaCodec)); codec != s.codec.Name() {
			return fmt.Errorf("%w: store uses %s, opened with %s", ErrCodecMismatch, codec, s.codec.Name())
		}
		return nil
	})
}
