package pitboss

import "errors"

// ErrUnsupportedOperation is returned for operations the grill model's
// control board cannot perform, such as setting a second probe target on a
// board without that command.
var ErrUnsupportedOperation = errors.New("operation not supported by this grill")
