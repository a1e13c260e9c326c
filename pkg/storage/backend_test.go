package storage

import (
	"bytes"
	"errors"
	"testing"
)

// backendTestSuite exercises the transactional contract ReportStore relies on.
// Every Backend implementation runs it.
func backendTestSuite(t *testing.T, newBackend func() (Backend, func(), error)) {
	t.Run("CreateBucket", func(t *testing.T) {
		backend, cleanup, err := newBackend()
		if err != nil {
			t.Fatalf("failed to create backend: %v", err)
		}
		defer cleanup()

		for i := 0; i < 2; i++ {
			err := backend.Update(func(tx Tx) error {
				_, err := tx.CreateBucket(runsBucket)
				return err
			})
			if err != nil {
				t.Fatalf("CreateBucket (attempt %d) failed: %v", i+1, err)
			}
		}

		err = backend.View(func(tx Tx) error {
			if tx.Bucket(runsBucket) == nil {
				t.Error("runs bucket missing after CreateBucket")
			}
			if tx.Bucket(reportBucket("run-404")) != nil {
				t.Error("unknown report bucket should be nil")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View failed: %v", err)
		}
	})

	t.Run("DeleteBucket", func(t *testing.T) {
		backend, cleanup, err := newBackend()
		if err != nil {
			t.Fatalf("failed to create backend: %v", err)
		}
		defer cleanup()

		backend.Update(func(tx Tx) error {
			_, err := tx.CreateBucket(runsBucket)
			return err
		})

		for i := 0; i < 2; i++ {
			// Idempotent
			if err := backend.Update(func(tx Tx) error { return tx.DeleteBucket(runsBucket) }); err != nil {
				t.Fatalf("DeleteBucket (attempt %d) failed: %v", i+1, err)
			}
		}

		backend.View(func(tx Tx) error {
			if tx.Bucket(runsBucket) != nil {
				t.Error("runs bucket still present after DeleteBucket")
			}
			return nil
		})
	})

	t.Run("PutGetDelete", func(t *testing.T) {
		backend, cleanup, err := newBackend()
		if err != nil {
			t.Fatalf("failed to create backend: %v", err)
		}
		defer cleanup()

		err = backend.Update(func(tx Tx) error {
			b, err := tx.CreateBucket(runsBucket)
			if err != nil {
				return err
			}
			if err := b.Put([]byte("run-1"), []byte(`{"records":3}`)); err != nil {
				return err
			}
			return b.Put([]byte("run-2"), []byte(`{"records":5}`))
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		backend.View(func(tx Tx) error {
			b := tx.Bucket(runsBucket)
			if got := b.Get([]byte("run-1")); !bytes.Equal(got, []byte(`{"records":3}`)) {
				t.Errorf("Get(run-1) = %s", got)
			}
			if got := b.Get([]byte("run-404")); got != nil {
				t.Errorf("Get of an unknown run = %s, want nil", got)
			}
			return nil
		})

		backend.Update(func(tx Tx) error {
			return tx.Bucket(runsBucket).Delete([]byte("run-1"))
		})

		backend.View(func(tx Tx) error {
			b := tx.Bucket(runsBucket)
			if got := b.Get([]byte("run-1")); got != nil {
				t.Error("run-1 should be gone after Delete")
			}
			if got := b.Get([]byte("run-2")); got == nil {
				t.Error("Delete removed the wrong key")
			}
			return nil
		})
	})

	t.Run("ForEach", func(t *testing.T) {
		backend, cleanup, err := newBackend()
		if err != nil {
			t.Fatalf("failed to create backend: %v", err)
		}
		defer cleanup()

		expected := map[string]string{
			"Paris":     `{"min":10,"max":30,"mean":20}`,
			"London":    `{"min":20,"max":20,"mean":20}`,
			"Sao Paulo": `{"min":-1.5,"max":31.2,"mean":18.04}`,
		}
		backend.Update(func(tx Tx) error {
			b, err := tx.CreateBucket(reportBucket("run-1"))
			if err != nil {
				return err
			}
			for k, v := range expected {
				if err := b.Put([]byte(k), []byte(v)); err != nil {
					return err
				}
			}
			return nil
		})

		collected := make(map[string]string)
		err = backend.View(func(tx Tx) error {
			return tx.Bucket(reportBucket("run-1")).ForEach(func(k, v []byte) error {
				collected[string(k)] = string(v)
				return nil
			})
		})
		if err != nil {
			t.Fatalf("ForEach failed: %v", err)
		}

		if len(collected) != len(expected) {
			t.Errorf("ForEach collected %d items, want %d", len(collected), len(expected))
		}
		for k, v := range expected {
			if collected[k] != v {
				t.Errorf("ForEach: %s = %s, want %s", k, collected[k], v)
			}
		}
	})

	t.Run("Rollback", func(t *testing.T) {
		backend, cleanup, err := newBackend()
		if err != nil {
			t.Fatalf("failed to create backend: %v", err)
		}
		defer cleanup()

		errBoom := errors.New("boom")
		err = backend.Update(func(tx Tx) error {
			b, err := tx.CreateBucket(runsBucket)
			if err != nil {
				return err
			}
			b.Put([]byte("run-1"), []byte(`{"records":3}`))
			return errBoom
		})
		if !errors.Is(err, errBoom) {
			t.Fatalf("Update returned %v, want %v", err, errBoom)
		}

		backend.View(func(tx Tx) error {
			if tx.Bucket(runsBucket) != nil {
				t.Error("a failed Update must not leave the runs bucket behind")
			}
			return nil
		})
	})

	t.Run("ForEachBucket", func(t *testing.T) {
		backend, cleanup, err := newBackend()
		if err != nil {
			t.Fatalf("failed to create backend: %v", err)
		}
		defer cleanup()

		buckets := []string{"runs", "report/run-1", "report/run-2"}
		backend.Update(func(tx Tx) error {
			for _, name := range buckets {
				if _, err := tx.CreateBucket([]byte(name)); err != nil {
					return err
				}
			}
			return nil
		})

		var collected []string
		err = backend.View(func(tx Tx) error {
			return tx.ForEachBucket(func(name []byte) error {
				collected = append(collected, string(name))
				return nil
			})
		})
		if err != nil {
			t.Fatalf("ForEachBucket failed: %v", err)
		}

		if len(collected) != len(buckets) {
			t.Errorf("ForEachBucket found %d buckets, want %d", len(collected), len(buckets))
		}
	})
}
