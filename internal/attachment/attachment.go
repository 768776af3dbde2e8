// Package attachment turns picked files into image blobs and keeps the
// pending list shown under the entry form before a record is submitted.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/Joseda-hg/lazyjournal/internal/model"
)

var ErrNotImage = errors.New("file is not an image")

// Load reads path and returns it as an image blob. The MIME type is sniffed
// from the content, not the extension.
func Load(path string) (model.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Image{}, fmt.Errorf("read attachment %s: %w", path, err)
	}
	return FromBytes(data)
}

func FromBytes(data []byte) (model.Image, error) {
	if len(data) == 0 {
		return model.Image{}, ErrNotImage
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return model.Image{}, fmt.Errorf("%w: detected %s", ErrNotImage, mime)
	}
	return model.Image{MIME: mime, Data: data}, nil
}

// DataURL renders img as an inline data URL for previews.
func DataURL(img model.Image) string {
	mime := img.MIME
	if mime == "" {
		mime = http.DetectContentType(img.Data)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// HasAttachments treats an empty list and a missing one the same way.
func HasAttachments(task model.Task) bool {
	return len(task.Attachments()) > 0
}

// Pending is the list of images picked for a record that has not been
// submitted yet. Blobs and previews always share indices.
type Pending struct {
	images   []model.Image
	previews []string
}

func (p *Pending) Add(img model.Image) {
	p.images = append(p.images, img)
	p.previews = append(p.previews, DataURL(img))
}

// Remove drops the blob and preview at index i. Out-of-range is a no-op.
func (p *Pending) Remove(i int) bool {
	if i < 0 || i >= len(p.images) {
		return false
	}
	p.images = append(p.images[:i:i], p.images[i+1:]...)
	p.previews = append(p.previews[:i:i], p.previews[i+1:]...)
	return true
}

// Images returns a copy of the pending blobs, or nil when there are none so
// the record is stored without an images field.
func (p *Pending) Images() []model.Image {
	if len(p.images) == 0 {
		return nil
	}
	return append([]model.Image(nil), p.images...)
}

func (p *Pending) Previews() []string {
	return append([]string(nil), p.previews...)
}

func (p *Pending) Len() int {
	return len(p.images)
}

// Last returns the most recently added blob.
func (p *Pending) Last() (model.Image, bool) {
	if len(p.images) == 0 {
		return model.Image{}, false
	}
	return p.images[len(p.images)-1], true
}

func (p *Pending) Reset() {
	p.images = nil
	p.previews = nil
}
