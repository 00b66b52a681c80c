// Package media keeps track of the images attached to the emulated machine
// and of the options the last selected game wants to be started with.
//
// The emulator itself is out of process; the registry is the contract
// between the browser and whatever launches the game. State lives in the
// settings database so it survives restarts.
package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Disk units a drive image can be attached to.
const (
	FirstDiskUnit = 8
	LastDiskUnit  = 11
)

const (
	keyDiskPrefix = "media.disk."
	keyTape       = "media.tape"
	keyAutostart  = "media.autostart"
	keyName       = "media.name"
	keyRow        = "media.row"
	keyNTSC       = "media.ntsc"
	keyTrueDrive  = "media.truedrive"
	keyCwd        = "cwd"
)

// ErrBadUnit is returned for a disk unit outside 8..11.
var ErrBadUnit = errors.New("invalid disk unit")

// Store is the key/value persistence the registry writes to.
type Store interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
	Remove(key string) error
}

// Kind of an attachment.
type Kind string

const (
	KindDisk Kind = "disk"
	KindTape Kind = "tape"
)

// Attachment is an image attached to a device.
type Attachment struct {
	Kind Kind   `json:"kind"`
	Unit int    `json:"unit,omitempty"`
	Path string `json:"path"`
}

// Registry records attached media.
type Registry struct {
	store Store
}

// New creates a registry backed by store.
func New(store Store) *Registry {
	return &Registry{store: store}
}

func diskKey(unit int) string {
	return keyDiskPrefix + strconv.Itoa(unit)
}

func checkUnit(unit int) error {
	if unit < FirstDiskUnit || unit > LastDiskUnit {
		return fmt.Errorf("%w: %d", ErrBadUnit, unit)
	}
	return nil
}

// Disk returns the image attached to unit, or "".
func (r *Registry) Disk(unit int) (string, error) {
	if err := checkUnit(unit); err != nil {
		return "", err
	}
	v, _, err := r.store.Get(diskKey(unit))
	return v, err
}

// AttachDisk attaches the image at path to unit.
func (r *Registry) AttachDisk(unit int, path string) error {
	if err := checkUnit(unit); err != nil {
		return err
	}
	return r.store.Put(diskKey(unit), path)
}

// DetachDisk empties unit.
func (r *Registry) DetachDisk(unit int) error {
	if err := checkUnit(unit); err != nil {
		return err
	}
	return r.store.Remove(diskKey(unit))
}

// Tape returns the attached tape image, or "".
func (r *Registry) Tape() (string, error) {
	v, _, err := r.store.Get(keyTape)
	return v, err
}

// AttachTape attaches the tape image at path.
func (r *Registry) AttachTape(path string) error {
	return r.store.Put(keyTape, path)
}

// DetachTape removes the tape image.
func (r *Registry) DetachTape() error {
	return r.store.Remove(keyTape)
}

// Attached lists every attached image, disks first in unit order.
func (r *Registry) Attached() ([]Attachment, error) {
	var out []Attachment
	for unit := FirstDiskUnit; unit <= LastDiskUnit; unit++ {
		p, err := r.Disk(unit)
		if err != nil {
			return nil, err
		}
		if p != "" {
			out = append(out, Attachment{Kind: KindDisk, Unit: unit, Path: p})
		}
	}
	p, err := r.Tape()
	if err != nil {
		return nil, err
	}
	if p != "" {
		out = append(out, Attachment{Kind: KindTape, Path: p})
	}
	return out, nil
}

// DetachAll empties every device.
func (r *Registry) DetachAll() error {
	for unit := FirstDiskUnit; unit <= LastDiskUnit; unit++ {
		if err := r.DetachDisk(unit); err != nil {
			return err
		}
	}
	return r.DetachTape()
}

// DetachUnder detaches every image that lives inside dir. The first failure
// is returned after all devices have been tried.
func (r *Registry) DetachUnder(dir string) error {
	atts, err := r.Attached()
	if err != nil {
		return err
	}
	var firstErr error
	for _, a := range atts {
		if !within(a.Path, dir) {
			continue
		}
		var derr error
		if a.Kind == KindTape {
			derr = r.DetachTape()
		} else {
			derr = r.DetachDisk(a.Unit)
		}
		if derr != nil {
			log.Warn().Err(derr).Str("path", a.Path).Msg("detach failed")
			if firstErr == nil {
				firstErr = derr
			}
			continue
		}
		log.Debug().Str("kind", string(a.Kind)).Int("unit", a.Unit).Str("path", a.Path).Msg("detached")
	}
	return firstErr
}

func within(path, dir string) bool {
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
