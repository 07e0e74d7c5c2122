package memory

import (
	"testing"

	"tillledger/internal/store"
	"tillledger/internal/store/storetest"
)

func TestRepository(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		return New()
	})
}
