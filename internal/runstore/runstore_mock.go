package runstore

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/huangsam/actimerge/internal/contract"
	"github.com/huangsam/actimerge/schema"
)

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ contract.RunStore = &MockRunStore{} // Compile-time check

// BeginRun implements the RunStore interface.
func (m *MockRunStore) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// RecordExport implements the RunStore interface.
func (m *MockRunStore) RecordExport(runID int64, export schema.ExportSummary) error {
	args := m.Called(runID, export)
	return args.Error(0)
}

// EndRun implements the RunStore interface.
func (m *MockRunStore) EndRun(runID int64, endTime time.Time, signalRows int) error {
	args := m.Called(runID, endTime, signalRows)
	return args.Error(0)
}

// GetStatus implements the RunStore interface.
func (m *MockRunStore) GetStatus() (schema.RunStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.RunStatus), args.Error(1)
}

// GetAllRuns implements the RunStore interface.
func (m *MockRunStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.RunRecord)
	return runs, args.Error(1)
}

// GetAllExports implements the RunStore interface.
func (m *MockRunStore) GetAllExports() ([]schema.ExportRecord, error) {
	args := m.Called()
	exports, _ := args.Get(0).([]schema.ExportRecord)
	return exports, args.Error(1)
}

// Close implements the RunStore interface.
func (m *MockRunStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
