package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const DefaultRoot = "static/img"

var ErrIO = errors.New("asset scan failed")
var ErrOutsideRoot = errors.New("path escapes asset root")

// Listing mirrors a directory: file names at this level plus one nested
// listing per sub-directory.
type Listing struct {
	Files   []string           `json:"files"`
	Folders map[string]Listing `json:"folders"`
}

func emptyListing() Listing {
	return Listing{Files: []string{}, Folders: map[string]Listing{}}
}

// Scan walks root recursively. Regular files and directories are listed;
// symlinks and special files are skipped. The first filesystem error aborts
// the whole scan.
func Scan(ctx context.Context, root string) (Listing, error) {
	g, ctx := errgroup.WithContext(ctx)
	var out Listing
	g.Go(func() error {
		l, err := scanDir(ctx, g, root)
		out = l
		return err
	})
	if err := g.Wait(); err != nil {
		return Listing{}, err
	}
	return out, nil
}

func scanDir(ctx context.Context, g *errgroup.Group, dir string) (Listing, error) {
	if err := ctx.Err(); err != nil {
		return Listing{}, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Listing{}, fmt.Errorf("%w: %s: %w", ErrIO, dir, err)
	}

	l := emptyListing()
	var (
		mu  sync.Mutex
		sub sync.WaitGroup
	)
	for _, e := range entries {
		switch {
		case e.Type().IsRegular():
			l.Files = append(l.Files, e.Name())
		case e.IsDir():
			name, path := e.Name(), filepath.Join(dir, e.Name())
			sub.Add(1)
			g.Go(func() error {
				defer sub.Done()
				child, err := scanDir(ctx, g, path)
				if err != nil {
					return err
				}
				mu.Lock()
				l.Folders[name] = child
				mu.Unlock()
				return nil
			})
		}
	}
	sub.Wait()
	if err := ctx.Err(); err != nil {
		// a sibling failed; the group already holds the real error
		return Listing{}, err
	}

	sortNames(l.Files)
	return l, nil
}

var collator = collate.New(language.Und, collate.IgnoreCase, collate.Numeric)
var collatorMu sync.Mutex

func sortNames(names []string) {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	collator.SortStrings(names)
}

// ResolveSubdir joins rel onto root, refusing anything that would leave root.
func ResolveSubdir(root, rel string) (string, error) {
	if rel == "" || rel == "." {
		return root, nil
	}
	rel = filepath.FromSlash(rel)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("assets: %q: %w", rel, ErrOutsideRoot)
	}
	return filepath.Join(root, rel), nil
}

// IsNotExist reports whether a scan failed because the path is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
