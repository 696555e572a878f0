// Package domain holds identities, room attributes and the errors shared by every layer.
package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxFieldLen bounds every user supplied name, location and room id.
	MaxFieldLen  = 20
	// MaxRefLen bounds optional presentation hints such as color and avatar.
	MaxRefLen    = 256
	MaxUserIDLen = 64
)

// UserID is the stable identity a client supplies; it survives reconnects.
type UserID string

// Profile is how a user presents inside a room.
type Profile struct {
	DisplayName string `json:"displayName"`
	Location    string `json:"location"`
	Color       string `json:"color,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

func (p Profile) Validate() error {
	if err := ValidateField("displayName", p.DisplayName); err != nil {
		return err
	}
	if err := ValidateField("location", p.Location); err != nil {
		return err
	}
	if utf8.RuneCountInString(p.Color) > MaxRefLen || utf8.RuneCountInString(p.Avatar) > MaxRefLen {
		return fmt.Errorf("%w: presentation hint too long", ErrInvalidInput)
	}
	return nil
}

// ValidateField rejects blank values and values longer than MaxFieldLen code points.
func ValidateField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	if utf8.RuneCountInString(value) > MaxFieldLen {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidInput, field, MaxFieldLen)
	}
	return nil
}

func (id UserID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if len(id) > MaxUserIDLen {
		return fmt.Errorf("%w: userId too long", ErrInvalidInput)
	}
	return nil
}
