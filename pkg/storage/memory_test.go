package storage

import "testing"

func TestMemoryBackend(t *testing.T) {
	backendTestSuite(t, func() (Backend, func(), error) {
		return NewMemoryBackend(), func() {}, nil
	})
}

func TestMemoryBackend_ViewIsReadOnly(t *testing.T) {
	backend := NewMemoryBackend()

	err := backend.View(func(tx Tx) error {
		_, err := tx.CreateBucket([]byte("test"))
		return err
	})
	if err != ErrReadOnlyTx {
		t.Errorf("CreateBucket in View returned %v, want ErrReadOnlyTx", err)
	}
}
