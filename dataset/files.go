package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	apperrors "github.com/kbukum/prefetchkit/errors"
	"github.com/kbukum/prefetchkit/prefetch"
)

// Files returns a producer that reads the file named by each key, relative to
// root on fsys.
func Files(fsys afero.Fs, root string) prefetch.Producer[string, []byte] {
	return func(ctx context.Context, key string) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := afero.ReadFile(fsys, filepath.Join(root, filepath.FromSlash(key)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, apperrors.NotFound("file " + key).WithCause(err)
			}
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		return data, nil
	}
}

// Decoded reads each key's file and decodes it into a V.
func Decoded[V any](fsys afero.Fs, root string, decode func(key string, data []byte) (V, error)) prefetch.Producer[string, V] {
	read := Files(fsys, root)
	return func(ctx context.Context, key string) (V, error) {
		var zero V
		data, err := read(ctx, key)
		if err != nil {
			return zero, err
		}
		v, err := decode(key, data)
		if err != nil {
			return zero, fmt.Errorf("decoding %s: %w", key, err)
		}
		return v, nil
	}
}

// Index lists the regular files under root whose base name matches pattern,
// as slash-separated paths relative to root in lexical order. An empty
// pattern matches every file.
func Index(fsys afero.Fs, root, pattern string) ([]string, error) {
	if pattern != "" {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, apperrors.InvalidConfig("pattern", err.Error())
		}
	}

	var keys []string
	err := afero.Walk(fsys, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if pattern != "" {
			if ok, _ := path.Match(pattern, info.Name()); !ok {
				return nil
			}
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", root, err)
	}
	sort.Strings(keys)
	return keys, nil
}
