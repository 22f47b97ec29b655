package git

import (
	"context"
	"strings"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, dir string, timeout time.Duration, args ...string) ([]byte, error) {
	call := m.Called(dir, timeout, strings.Join(args, " "))
	out, _ := call.Get(0).([]byte)
	return out, call.Error(1)
}
