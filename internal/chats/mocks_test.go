package chats_test

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockFiles is a testify mock of attachments.Store.
type MockFiles struct {
	mock.Mock
}

func (m *MockFiles) Release(ctx context.Context, storageID string) error {
	args := m.Called(ctx, storageID)
	return args.Error(0)
}
