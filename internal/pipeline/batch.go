package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/paperchunk/internal/parser"
)

// ProcessFiles ingests each file with at most parallelism documents in
// flight and returns one snapshot per path, in path order. Documents are
// independent: a failure is recorded on its job and the rest continue.
func (p *Processor) ProcessFiles(ctx context.Context, paths []string, parallelism int, force bool) []JobSnapshot {
	if parallelism <= 0 {
		parallelism = 1
	}
	out := make([]JobSnapshot, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(parallelism)
	for i, path := range paths {
		g.Go(func() error {
			job := NewJob("", filepath.Base(path), "", nil)
			job.Force = force
			data, err := os.ReadFile(path)
			switch {
			case err != nil:
				job.AddError(fmt.Sprintf("read: %s", err))
				job.SetStatus(StatusFailed, "reading")
			case ctx.Err() != nil:
				job.AddError(ctx.Err().Error())
				job.SetStatus(StatusFailed, "queued")
			default:
				job.SetFileData(data)
				p.Process(ctx, job)
			}
			out[i] = job.Snapshot()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// FindFiles returns the supported files under root, sorted. A root that is
// itself a file is returned as is.
func FindFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && parser.IsSupportedExtension(path) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}
