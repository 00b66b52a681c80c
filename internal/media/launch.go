package media

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Launch describes how to start an installed game.
type Launch struct {
	Row       int    `json:"row"`
	Name      string `json:"name"`
	Dir       string `json:"dir"`
	Path      string `json:"path"`
	NTSC      bool   `json:"ntsc"`
	TrueDrive bool   `json:"true_drive"`
}

// Model returns the machine model the game wants.
func (l Launch) Model() string {
	if l.NTSC {
		return "NTSC"
	}
	return "PAL"
}

// KindOf guesses the device an image belongs on from its extension.
// Program and cartridge files are started directly and return "".
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".d64", ".d71", ".d81", ".g64", ".x64":
		return KindDisk
	case ".t64", ".tap":
		return KindTape
	default:
		return ""
	}
}

// Autostart attaches the start file of l to the first disk unit or the
// tape, and records the launch options and working directory.
func (r *Registry) Autostart(l Launch) error {
	switch KindOf(l.Path) {
	case KindDisk:
		if err := r.AttachDisk(FirstDiskUnit, l.Path); err != nil {
			return fmt.Errorf("attaching disk: %w", err)
		}
	case KindTape:
		if err := r.AttachTape(l.Path); err != nil {
			return fmt.Errorf("attaching tape: %w", err)
		}
	}

	pairs := [][2]string{
		{keyAutostart, l.Path},
		{keyName, l.Name},
		{keyRow, strconv.Itoa(l.Row)},
		{keyNTSC, strconv.FormatBool(l.NTSC)},
		{keyTrueDrive, strconv.FormatBool(l.TrueDrive)},
		{keyCwd, l.Dir},
	}
	for _, kv := range pairs {
		if err := r.store.Put(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// LastLaunch returns the options recorded by the last Autostart.
func (r *Registry) LastLaunch() (Launch, bool, error) {
	path, ok, err := r.store.Get(keyAutostart)
	if err != nil || !ok {
		return Launch{}, false, err
	}
	l := Launch{Path: path}
	get := func(k string) string {
		if err != nil {
			return ""
		}
		var v string
		v, _, err = r.store.Get(k)
		return v
	}
	l.Name = get(keyName)
	l.Dir = get(keyCwd)
	l.Row, _ = strconv.Atoi(get(keyRow))
	l.NTSC, _ = strconv.ParseBool(get(keyNTSC))
	l.TrueDrive, _ = strconv.ParseBool(get(keyTrueDrive))
	if err != nil {
		return Launch{}, false, err
	}
	return l, true, nil
}
