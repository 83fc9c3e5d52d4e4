//go:build !linux

package output

// RPiDriver is unavailable off Linux; every call fails with ErrUnsupported.
type RPiDriver struct{}

// NewRPiDriver creates a driver that always fails.
func NewRPiDriver() *RPiDriver {
	return &RPiDriver{}
}

func (d *RPiDriver) Setup(channels []int) error { return ErrUnsupported }
func (d *RPiDriver) Set(channel int, on bool) error { return ErrUnsupported }
func (d *RPiDriver) Close() error                   { return nil }

var _ Driver = (*RPiDriver)(nil)
