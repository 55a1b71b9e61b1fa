package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gigsnearme/tablesetup/internal/config"
	"github.com/gigsnearme/tablesetup/internal/logging"
	"github.com/gigsnearme/tablesetup/internal/rewrite"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

// targetFs roots the target files at dir.
func targetFs(dir string) afero.Fs {
	fs := afero.NewOsFs()
	if dir == "" || dir == "." {
		return fs
	}
	return afero.NewBasePathFs(fs, dir)
}

// exitCode is 0 unless failOnError is set and some file could not be rewritten.
// Missing files never fail the run.
func exitCode(res rewrite.Result, failOnError bool) int {
	if failOnError && res.HasFailures() {
		return 1
	}
	return 0
}

// loadConfig reads the config and checks only the rewrite settings; provisioner
// settings do not stop the rewriter.
func loadConfig(path string, failOnError bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateRewrite(); err != nil {
		return nil, err
	}
	if failOnError {
		cfg.Rewrite.FailOnError = true
	}
	return cfg, nil
}

func renameTables(cfg *config.Config, fs afero.Fs, logger zerolog.Logger) int {
	res := rewrite.New(fs, logger).Run(cfg.Rewrite.Files, cfg.Rewrite.Rules)
	if res.HasFailures() {
		logger.Warn().Msgf("%d files could not be updated", len(res.Failed))
	}
	logger.Info().Msg("Table name update completed")
	return exitCode(res, cfg.Rewrite.FailOnError)
}

func main() {
	var configPath, dir string
	var failOnError bool
	flag.StringVar(&configPath, "config", config.DefaultFile, "YAML config file (optional)")
	flag.StringVar(&dir, "dir", ".", "Directory the target files are relative to")
	flag.BoolVar(&failOnError, "fail-on-error", false, "Exit 1 when a file cannot be read or written")
	flag.Parse()

	cfg, err := loadConfig(configPath, failOnError)
	if err != nil {
		processError(err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)
	os.Exit(renameTables(cfg, targetFs(dir), logger))
}
