// ABOUTME: Collection specs, display modes and feed channel metadata
// ABOUTME: A CollectionSpec names one logical feed; a Channel describes one output artifact

package models

import (
	"fmt"
	"time"
)

// DisplayMode selects how author lists are formatted.
type DisplayMode string

const (
	ModeAllAuthors   DisplayMode = "all-authors"
	ModeSingleAuthor DisplayMode = "single-author"
)

// AllModes lists every supported display mode in run order.
var AllModes = []DisplayMode{ModeAllAuthors, ModeSingleAuthor}

// ParseDisplayMode converts a configuration value into a DisplayMode.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch DisplayMode(s) {
	case ModeAllAuthors, ModeSingleAuthor:
		return DisplayMode(s), nil
	default:
		return "", fmt.Errorf("unknown display mode %q (want %q or %q)", s, ModeAllAuthors, ModeSingleAuthor)
	}
}

// SingleAuthor reports whether the mode collapses author lists to "First et al.".
func (m DisplayMode) SingleAuthor() bool {
	return m == ModeSingleAuthor
}

// CollectionSpec identifies one logical feed to produce.
// An empty Key selects the library's entire top-level item set.
type CollectionSpec struct {
	Key         string            `yaml:"key" json:"key,omitempty"`
	Label       string            `yaml:"label" json:"label"`
	Name        string            `yaml:"name" json:"name"`
	Title       string            `yaml:"title" json:"title"`
	Description string            `yaml:"description" json:"description,omitempty"`
	Files       map[string]string `yaml:"files,omitempty" json:"files,omitempty"`
}

// IsTopLevel reports whether the collection covers the whole library.
func (c CollectionSpec) IsTopLevel() bool {
	return c.Key == ""
}

// FileName returns the artifact filename for the given mode.
func (c CollectionSpec) FileName(mode DisplayMode) string {
	if f, ok := c.Files[string(mode)]; ok && f != "" {
		return f
	}
	if mode.SingleAuthor() {
		return c.Name + "_single.xml"
	}
	return c.Name + ".xml"
}

// Channel is the metadata block of one output feed.
type Channel struct {
	Title       string
	Link        string
	Description string
	Language    string
	Author      string
	BuildDate   time.Time
	SelfURL     string
	Generator   string
}
