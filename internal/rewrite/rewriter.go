package rewrite

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

var ErrNotText = errors.New("file is not valid UTF-8 text")

type FileError struct {
	Path string
	Err  error
}

// Result records what happened to each target file of a run.
type Result struct {
	Updated   []string
	Unchanged []string
	Missing   []string
	Failed    []FileError
}

func (r Result) HasFailures() bool {
	return len(r.Failed) > 0
}

type Rewriter struct {
	fs     afero.Fs
	logger zerolog.Logger
}

func New(fs afero.Fs, logger zerolog.Logger) *Rewriter {
	return &Rewriter{fs: fs, logger: logger}
}

// RewriteFile applies rules to the file at path and writes it back only when the
// content changed. It reports whether the file was rewritten.
func (rw *Rewriter) RewriteFile(path string, rules []Rule) (bool, error) {
	info, err := rw.fs.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	data, err := afero.ReadFile(rw.fs, path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return false, fmt.Errorf("%s: %w", path, ErrNotText)
	}

	original := string(data)
	updated := Apply(original, rules)
	if updated == original {
		rw.logger.Info().Msgf("No changes needed: %s", path)
		return false, nil
	}

	if err := afero.WriteFile(rw.fs, path, []byte(updated), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	rw.logger.Info().Msgf("Updated: %s", path)
	return true, nil
}

// Run rewrites every file in order. Missing files are skipped and failures are
// recorded; neither stops the batch.
func (rw *Rewriter) Run(files []string, rules []Rule) Result {
	rw.logger.Info().Msgf("Updating table names in %d files", len(files))

	var res Result
	for _, path := range files {
		exists, err := afero.Exists(rw.fs, path)
		if err != nil {
			rw.logger.Error().Msgf("Error updating %s: %v", path, err)
			res.Failed = append(res.Failed, FileError{Path: path, Err: err})
			continue
		}
		if !exists {
			rw.logger.Warn().Msgf("File not found: %s", path)
			res.Missing = append(res.Missing, path)
			continue
		}

		changed, err := rw.RewriteFile(path, rules)
		switch {
		case err != nil:
			rw.logger.Error().Msgf("Error updating %s: %v", path, err)
			res.Failed = append(res.Failed, FileError{Path: path, Err: err})
		case changed:
			res.Updated = append(res.Updated, path)
		default:
			res.Unchanged = append(res.Unchanged, path)
		}
	}

	rw.logger.Info().Msgf("Summary: %d files updated", len(res.Updated))
	return res
}
