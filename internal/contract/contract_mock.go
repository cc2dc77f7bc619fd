package contract

import (
	"context"
	"time"

	"github.com/huangsam/safeupdate/schema"
	"github.com/stretchr/testify/mock"
)

// MockRegistryClient is a mock implementation of RegistryClient for testing.
type MockRegistryClient struct {
	mock.Mock
}

var _ RegistryClient = &MockRegistryClient{} // Compile-time check

// FetchVersionCreatedAt implements the RegistryClient interface.
func (m *MockRegistryClient) FetchVersionCreatedAt(ctx context.Context, name, version string) (time.Time, error) {
	ret := m.Called(ctx, name, version)
	t, _ := ret.Get(0).(time.Time)
	return t, ret.Error(1)
}

// FetchOwners implements the RegistryClient interface.
func (m *MockRegistryClient) FetchOwners(ctx context.Context, name string) ([]string, error) {
	ret := m.Called(ctx, name)
	owners, _ := ret.Get(0).([]string)
	return owners, ret.Error(1)
}

// FetchGemInfo implements the RegistryClient interface.
func (m *MockRegistryClient) FetchGemInfo(ctx context.Context, name string) (*schema.GemInfo, error) {
	ret := m.Called(ctx, name)
	info, _ := ret.Get(0).(*schema.GemInfo)
	return info, ret.Error(1)
}

// MockSourceResolver is a mock implementation of SourceResolver for testing.
type MockSourceResolver struct {
	mock.Mock
}

var _ SourceResolver = &MockSourceResolver{} // Compile-time check

// SourceFor implements the SourceResolver interface.
func (m *MockSourceResolver) SourceFor(name string) (string, bool) {
	ret := m.Called(name)
	return ret.String(0), ret.Bool(1)
}

// MockOutdatedSource is a mock implementation of OutdatedSource for testing.
type MockOutdatedSource struct {
	mock.Mock
}

var _ OutdatedSource = &MockOutdatedSource{} // Compile-time check

// List implements the OutdatedSource interface.
func (m *MockOutdatedSource) List(ctx context.Context, names []string) ([]schema.PackageReference, error) {
	ret := m.Called(ctx, names)
	pkgs, _ := ret.Get(0).([]schema.PackageReference)
	return pkgs, ret.Error(1)
}

// MockAuditTool is a mock implementation of AuditTool for testing.
type MockAuditTool struct {
	mock.Mock
}

var _ AuditTool = &MockAuditTool{} // Compile-time check

// Available implements the AuditTool interface.
func (m *MockAuditTool) Available(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

// Run implements the AuditTool interface.
func (m *MockAuditTool) Run(ctx context.Context) schema.AuditResult {
	ret := m.Called(ctx)
	result, _ := ret.Get(0).(schema.AuditResult)
	return result
}

// MockUpdateExecutor is a mock implementation of UpdateExecutor for testing.
type MockUpdateExecutor struct {
	mock.Mock
}

var _ UpdateExecutor = &MockUpdateExecutor{} // Compile-time check

// Update implements the UpdateExecutor interface.
func (m *MockUpdateExecutor) Update(ctx context.Context, names []string, lockOnly bool) error {
	return m.Called(ctx, names, lockOnly).Error(0)
}
