package network

import "context"

// FakeLink is a test double with scripted connect results.
type FakeLink struct {
	// Results are returned by successive Connect calls; once exhausted the
	// last one repeats. Empty means every attempt succeeds.
	Results []error

	// DisconnectError, if set, will be returned by Disconnect.
	DisconnectError error

	Connects    int
	Disconnects int

	// Up reports whether the last Connect succeeded and no Disconnect followed.
	Up bool
}

// NewFakeLink creates a FakeLink returning results in order.
func NewFakeLink(results ...error) *FakeLink {
	return &FakeLink{Results: results}
}

func (f *FakeLink) Connect(ctx context.Context) error {
	var err error
	if len(f.Results) > 0 {
		i := f.Connects
		if i >= len(f.Results) {
			i = len(f.Results) - 1
		}
		err = f.Results[i]
	}
	f.Connects++
	f.Up = err == nil
	return err
}

func (f *FakeLink) Disconnect() error {
	f.Disconnects++
	f.Up = false
	return f.DisconnectError
}
