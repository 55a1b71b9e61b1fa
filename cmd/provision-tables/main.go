package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gigsnearme/tablesetup/internal/config"
	"github.com/gigsnearme/tablesetup/internal/logging"
	"github.com/gigsnearme/tablesetup/internal/provision"
	"github.com/rs/zerolog"
)

// Request is the Lambda payload. Region overrides the configured one when set.
type Request struct {
	Region string `json:"region"`
}

type flags struct {
	configPath string
	endpoint   string
	timeout    time.Duration
	args       []string
}

func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

// applyFlags layers command line values over the loaded config. The optional
// positional argument is the region.
func applyFlags(cfg *config.Config, f flags) {
	if len(f.args) > 0 && f.args[0] != "" {
		cfg.Region = f.args[0]
	}
	if f.endpoint != "" {
		cfg.Database.Endpoint = f.endpoint
	}
	if f.timeout > 0 {
		cfg.Wait.Timeout = f.timeout
	}
}

// loadConfig reads the config and applies the command line on top. Validation
// happens afterwards so a positional region can fill an empty configured one.
func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, f)
	return cfg, nil
}

// clientFactory builds the DynamoDB client for a region and optional endpoint.
type clientFactory func(ctx context.Context, region, endpoint string) (provision.TableAPI, error)

func newDynamoClient(ctx context.Context, region, endpoint string) (provision.TableAPI, error) {
	return provision.NewDynamoClient(ctx, region, endpoint)
}

func run(ctx context.Context, cfg *config.Config, newClient clientFactory, logger zerolog.Logger) (provision.Summary, error) {
	logger.Info().Msgf("Region: %s", cfg.Region)

	client, err := newClient(ctx, cfg.Region, cfg.Database.Endpoint)
	if err != nil {
		return provision.Summary{}, err
	}

	summary := provision.New(client, cfg.ProvisionOptions(), logger).Run(ctx, cfg.Tables)
	if summary.OK() {
		logger.Info().Msg("Setup completed successfully")
		logger.Info().Msg("Next steps: run rename-tables, test the application against the new tables, configure IAM permissions")
	} else {
		logger.Error().Msg("Setup completed with errors. Please check the logs above.")
	}
	return summary, nil
}

func handleRequest(cfg *config.Config, newClient clientFactory, logger zerolog.Logger) func(context.Context, Request) error {
	return func(ctx context.Context, req Request) error {
		c := *cfg
		if req.Region != "" {
			c.Region = req.Region
		}
		if err := c.Validate(); err != nil {
			return err
		}
		summary, err := run(ctx, &c, newClient, logger)
		if err != nil {
			return err
		}
		if !summary.OK() {
			return fmt.Errorf("tables failed: %v", summary.Failed)
		}
		return nil
	}
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", config.DefaultFile, "YAML config file (optional)")
	flag.StringVar(&f.endpoint, "endpoint", "", "Custom DynamoDB endpoint (e.g., http://localhost:4566 for LocalStack)")
	flag.DurationVar(&f.timeout, "timeout", 0, "How long to wait for each table to become ACTIVE")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [region]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	f.args = flag.Args()

	cfg, err := loadConfig(f)
	if err != nil {
		processError(err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)

	if _, ok := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME"); ok {
		logger.Info().Msg("Starting lambda")
		lambda.Start(handleRequest(cfg, newDynamoClient, logger))
		return
	}

	if err := cfg.Validate(); err != nil {
		processError(err)
	}
	summary, err := run(context.Background(), cfg, newDynamoClient, logger)
	if err != nil {
		logger.Fatal().Msg(err.Error())
	}
	if !summary.OK() {
		os.Exit(1)
	}
}
