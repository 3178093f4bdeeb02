package storage

import "errors"

var (
	// ErrRuleNotFound is returned when a routing rule is not found
	ErrRuleNotFound = errors.New("rule not found")

	// ErrPolicyNotSet is returned when no file-upload policy has been stored
	ErrPolicyNotSet = errors.New("file upload policy not set")

	// ErrModelNotFound is returned when a catalog model is not found
	ErrModelNotFound = errors.New("model not found")
)
