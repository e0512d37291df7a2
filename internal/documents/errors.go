package documents

import "errors"

var (
	ErrValidation  = errors.New("validation error")
	ErrDuplicateID = errors.New("document id already exists")
	ErrNotFound    = errors.New("not found")
	ErrDependency  = errors.New("dependency error")
)
