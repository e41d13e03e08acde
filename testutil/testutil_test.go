/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

type MockT struct {
	Failed bool
	Format string
	Args   []interface{}
}

func (t *MockT) FailNow() {
	t.Failed = true
	panic(errMockFailNow)
}

func (t *MockT) Errorf(format string, args ...interface{}) {
	t.Format, t.Args = format, args
}

type mockFailNow struct{}

var errMockFailNow = mockFailNow{}

// run calls fn and recovers the panic raised by MockT.FailNow, mimicking testing.T.FailNow's goexit.
func (t *MockT) run(fn func()) {
	defer func() {
		if r := recover(); r != nil && r != errMockFailNow {
			panic(r)
		}
	}()
	fn()
}
