package mocks

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"
)

// ConnPool a relations.ConnPool whose queries are set up with On("QueryContext", ...)
type ConnPool struct {
	mock.Mock
}

func (_m *ConnPool) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	ret := _m.Called(append([]interface{}{ctx, query}, args...)...)

	var r0 *sql.Rows
	if rf, ok := ret.Get(0).(func(context.Context, string, ...interface{}) *sql.Rows); ok {
		r0 = rf(ctx, query, args...)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*sql.Rows)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, ...interface{}) error); ok {
		r1 = rf(ctx, query, args...)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
