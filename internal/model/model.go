package model

import (
	"fmt"
	"strings"
	"time"
)

type Type string

const (
	TypeDay   Type = "day"
	TypeMonth Type = "month"
	TypeYear  Type = "year"
)

func ParseType(value string) (Type, error) {
	switch Type(strings.TrimSpace(strings.ToLower(value))) {
	case TypeDay:
		return TypeDay, nil
	case TypeMonth:
		return TypeMonth, nil
	case TypeYear:
		return TypeYear, nil
	}
	return "", fmt.Errorf("unknown record type %q", value)
}

func (t Type) Valid() bool {
	return t == TypeDay || t == TypeMonth || t == TypeYear
}

type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Type        Type      `json:"type"`
	Images      []Image   `json:"images,omitempty"`
	LegacyImage *Image    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Attachments returns the record's images, falling back to the single
// pre-migration image for rows written before task_images existed.
func (t Task) Attachments() []Image {
	if len(t.Images) > 0 {
		return t.Images
	}
	if t.LegacyImage != nil {
		return []Image{*t.LegacyImage}
	}
	return nil
}

type Image struct {
	MIME string `json:"mime"`
	Data []byte `json:"-"`
}

func (i Image) Size() int {
	return len(i.Data)
}
