// Package model defines the data structures shared by the scan pipeline.
package model

// Path represents a file system path.
type Path string

// RuleID names a signature rule. A file either matches a rule or it does not.
type RuleID string

// File is a candidate for scanning produced by discovery.
type File struct {
	Path Path
	Size int64
	MIME string
}
