package ports

import "errors"

var ErrBlobNotFound = errors.New("blob not found")
