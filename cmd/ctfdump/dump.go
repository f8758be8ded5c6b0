package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jtang613/goctf/pkg/ctf"
)

// fileResult is the buffered output of one input file.
type fileResult struct {
	out bytes.Buffer
	err error
}

// dumpFiles runs dump for every path, at most jobs at a time, and returns
// the results in path order. A failing file does not stop the others.
func dumpFiles(ctx context.Context, paths []string, jobs int, dump func(path string, w io.Writer) error) []fileResult {
	results := make([]fileResult, len(paths))

	var g errgroup.Group
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return nil
			}
			results[i].err = dump(path, &results[i].out)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// dumper renders every CTF buffer of a file.
type dumper struct {
	render renderer
	logger *zap.Logger
	multi  bool // label output with the file name
}

func (d *dumper) dump(path string, w io.Writer) error {
	logger := d.logger.With(zap.String("file", path))

	files, err := ctf.Open(path, ctf.WithLogger(logger))
	errs := []error{err}

	label := ""
	if d.multi {
		label = path
	}
	for _, f := range files {
		if err := d.render.Render(w, label, f); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}

	logger.Debug("dumped file", zap.Int("buffers", len(files)))
	return errors.Join(errs...)
}
