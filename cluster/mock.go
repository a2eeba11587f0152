// Hand-written mock in the shape of MockGen output.
// Source: github.com/flowgate-io/flowcore/cluster (interfaces: TokenClient)

package cluster

import (
	reflect "reflect"

	gomock "github.com/golang/mock/gomock"
)

// MockTokenClient is a mock of the TokenClient interface, hand-maintained
// in the canonical mockgen output shape (SPEC_FULL.md §1.1) since this
// module does not run `mockgen` as part of its build.
type MockTokenClient struct {
	ctrl     *gomock.Controller
	recorder *MockTokenClientMockRecorder
}

// MockTokenClientMockRecorder is the mock recorder for MockTokenClient.
type MockTokenClientMockRecorder struct {
	mock *MockTokenClient
}

// NewMockTokenClient creates a new mock instance.
func NewMockTokenClient(ctrl *gomock.Controller) *MockTokenClient {
	mock := &MockTokenClient{ctrl: ctrl}
	mock.recorder = &MockTokenClientMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockTokenClient) EXPECT() *MockTokenClientMockRecorder {
	return m.recorder
}

// RequestToken mocks base method.
func (m *MockTokenClient) RequestToken(flowID uint64, count int64, prioritized bool) (Result, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RequestToken", flowID, count, prioritized)
	ret0, _ := ret[0].(Result)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// RequestToken indicates an expected call of RequestToken.
func (mr *MockTokenClientMockRecorder) RequestToken(flowID, count, prioritized interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RequestToken", reflect.TypeOf((*MockTokenClient)(nil).RequestToken), flowID, count, prioritized)
}

var _ TokenClient = (*MockTokenClient)(nil)
