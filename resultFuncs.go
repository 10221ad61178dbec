package main

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/bob-anderson-ok/DMDdiffraction/dmd"
)

// SaveResult writes a result bundle in gob format.
func SaveResult(filename string, r *dmd.Result) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := gob.NewEncoder(f).Encode(r); err != nil {
		return fmt.Errorf("encoding %s: %w", filename, err)
	}
	return nil
}

// LoadResult reads a bundle written by SaveResult.
func LoadResult(filename string) (r *dmd.Result, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	r = &dmd.Result{}
	if err := gob.NewDecoder(f).Decode(r); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filename, err)
	}
	return r, nil
}
