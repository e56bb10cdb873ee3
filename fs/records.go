// Package fs exports crawled records to the local filesystem.
package fs

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/fwojciec/contestcrawl"
)

// EncodeRecords writes records to w as an indented JSON array. A nil slice
// is written as an empty array.
func EncodeRecords(w io.Writer, records []*contestcrawl.ActivityRecord) error {
	if records == nil {
		records = []*contestcrawl.ActivityRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}

// WriteRecords writes records to path as JSON. The file is written to a
// temporary sibling first and renamed into place, so a reader never sees
// a partial export.
func WriteRecords(path string, records []*contestcrawl.ActivityRecord) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "creating %s", dir)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "creating temporary file in %s", dir)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = EncodeRecords(f, records); err != nil {
		return contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "encoding records")
	}
	if err = f.Chmod(0o644); err != nil {
		return contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "setting permissions on %s", f.Name())
	}
	if err = f.Close(); err != nil {
		return contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "closing %s", f.Name())
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "renaming export to %s", path)
	}
	return nil
}
