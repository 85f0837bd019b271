package wireguard_test

import (
	"context"
	"errors"
	"strings"
	"sync"
)

type call struct {
	stdin string
	argv  string
}

// fakeRunner answers commands from a table keyed by "name arg1 arg2 ...".
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	outputs map[string]string
	fail    map[string]error
}

func (f *fakeRunner) Run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	argv := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{stdin: string(stdin), argv: argv})

	for prefix, err := range f.fail {
		if strings.HasPrefix(argv, prefix) {
			return nil, err
		}
	}
	if out, ok := f.outputs[argv]; ok {
		return []byte(out), nil
	}
	return nil, nil
}

func (f *fakeRunner) argvs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.argv
	}
	return out
}

var errExit = errors.New("exit status 1")
