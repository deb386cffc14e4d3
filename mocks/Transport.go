package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/k0rventen/avea/common"
)

// Transport is a mock common.Transport for tests
type Transport struct {
	mock.Mock
}

func (_m *Transport) Scan(timeout time.Duration) ([]common.DeviceDescriptor, error) {
	ret := _m.Called(timeout)

	var r0 []common.DeviceDescriptor
	if rf, ok := ret.Get(0).(func(time.Duration) []common.DeviceDescriptor); ok {
		r0 = rf(timeout)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]common.DeviceDescriptor)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(time.Duration) error); ok {
		r1 = rf(timeout)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *Transport) Connect(address string, timeout time.Duration) (common.ConnectionHandle, error) {
	ret := _m.Called(address, timeout)

	var r0 common.ConnectionHandle
	if rf, ok := ret.Get(0).(func(string, time.Duration) common.ConnectionHandle); ok {
		r0 = rf(address, timeout)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(common.ConnectionHandle)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(string, time.Duration) error); ok {
		r1 = rf(address, timeout)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *Transport) Subscribe(handle common.ConnectionHandle, characteristic string, handler common.NotifyHandler) error {
	ret := _m.Called(handle, characteristic, handler)

	var r0 error
	if rf, ok := ret.Get(0).(func(common.ConnectionHandle, string, common.NotifyHandler) error); ok {
		r0 = rf(handle, characteristic, handler)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *Transport) Write(handle common.ConnectionHandle, characteristic string, payload []byte, ack bool) error {
	ret := _m.Called(handle, characteristic, payload, ack)

	var r0 error
	if rf, ok := ret.Get(0).(func(common.ConnectionHandle, string, []byte, bool) error); ok {
		r0 = rf(handle, characteristic, payload, ack)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *Transport) Read(handle common.ConnectionHandle, characteristic string) ([]byte, error) {
	ret := _m.Called(handle, characteristic)

	var r0 []byte
	if rf, ok := ret.Get(0).(func(common.ConnectionHandle, string) []byte); ok {
		r0 = rf(handle, characteristic)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(common.ConnectionHandle, string) error); ok {
		r1 = rf(handle, characteristic)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *Transport) Disconnect(handle common.ConnectionHandle) error {
	ret := _m.Called(handle)

	var r0 error
	if rf, ok := ret.Get(0).(func(common.ConnectionHandle) error); ok {
		r0 = rf(handle)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ConnectionHandle is a mock common.ConnectionHandle for tests
type ConnectionHandle struct {
	Addr string
}

func (_m *ConnectionHandle) Address() string {
	return _m.Addr
}
