package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// ErrWaitTimeout is returned when a created table does not reach ACTIVE before the
// wait deadline. The table may exist but its usability is unconfirmed.
var ErrWaitTimeout = errors.New("timed out waiting for table to become ACTIVE")

var errNotActive = errors.New("table not active yet")

type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeCreated
	OutcomeExists
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeExists:
		return "exists"
	default:
		return "failed"
	}
}

type Options struct {
	// WaitTimeout bounds the whole wait-until-active loop for one table.
	WaitTimeout     time.Duration
	PollInterval    time.Duration
	MaxPollInterval time.Duration

	ReadUnitsPerSecond  int64
	WriteUnitsPerSecond int64
}

func DefaultOptions() Options {
	return Options{
		WaitTimeout:         5 * time.Minute,
		PollInterval:        2 * time.Second,
		MaxPollInterval:     20 * time.Second,
		ReadUnitsPerSecond:  12000,
		WriteUnitsPerSecond: 4000,
	}
}

type Provisioner struct {
	api    TableAPI
	opts   Options
	logger zerolog.Logger
}

// New returns a provisioner. A non-positive WaitTimeout falls back to the default.
func New(api TableAPI, opts Options, logger zerolog.Logger) *Provisioner {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = DefaultOptions().WaitTimeout
	}
	return &Provisioner{api: api, opts: opts, logger: logger}
}

// CreateTable creates table and blocks until it is ACTIVE. A table that already
// exists is reported as OutcomeExists with a nil error. Other failures are not retried.
func (p *Provisioner) CreateTable(ctx context.Context, table Table) (Outcome, error) {
	if err := table.Validate(); err != nil {
		return OutcomeFailed, err
	}

	out, err := p.api.CreateTable(ctx, table.createInput(p.opts))
	if err != nil {
		if isAlreadyExists(err) {
			p.logger.Warn().Msgf("Table %q already exists", table.Name)
			return OutcomeExists, nil
		}
		p.logger.Error().Msgf("Error creating table %q: %v", table.Name, err)
		return OutcomeFailed, fmt.Errorf("create table %q: %w", table.Name, err)
	}

	p.logger.Info().Msgf("Creating table %q ...", table.Name)
	if out != nil && out.TableDescription != nil {
		p.logger.Info().Msgf("Table ARN: %s", aws.ToString(out.TableDescription.TableArn))
	}

	p.logger.Info().Msgf("Waiting for table %q to become active...", table.Name)
	if err := p.WaitActive(ctx, table.Name); err != nil {
		p.logger.Error().Msgf("Table %q: %v", table.Name, err)
		return OutcomeFailed, err
	}
	p.logger.Info().Msgf("Table %q is now active", table.Name)

	return OutcomeCreated, nil
}

// WaitActive polls DescribeTable with exponential backoff until the table is ACTIVE
// or Options.WaitTimeout elapses, in which case the error wraps ErrWaitTimeout.
// ResourceNotFound is retried since a fresh table may not be visible yet.
func (p *Provisioner) WaitActive(ctx context.Context, name string) error {
	waitCtx, cancel := context.WithTimeout(ctx, p.opts.WaitTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	if p.opts.PollInterval > 0 {
		b.InitialInterval = p.opts.PollInterval
	}
	if p.opts.MaxPollInterval > 0 {
		b.MaxInterval = p.opts.MaxPollInterval
	}

	lastStatus := types.TableStatus("UNKNOWN")
	_, err := backoff.Retry(waitCtx, func() (types.TableStatus, error) {
		out, err := p.api.DescribeTable(waitCtx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err != nil {
			if isNotFound(err) {
				lastStatus = "NOT FOUND"
				return "", fmt.Errorf("%w: %v", errNotActive, err)
			}
			return "", backoff.Permanent(err)
		}
		if out.Table == nil {
			return "", fmt.Errorf("%w: empty table description", errNotActive)
		}
		lastStatus = out.Table.TableStatus
		if lastStatus != types.TableStatusActive {
			return lastStatus, fmt.Errorf("%w: status %s", errNotActive, lastStatus)
		}
		return lastStatus, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(p.opts.WaitTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.logger.Debug().Msgf("Table %q not active (%v), next check in %s", name, err, next)
		}),
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, errNotActive) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: table %q after %s (last status %s)", ErrWaitTimeout, name, p.opts.WaitTimeout, lastStatus)
	}
	return fmt.Errorf("waiting for table %q ACTIVE: %w", name, err)
}

type Summary struct {
	Total    int
	Ready    int
	Failed   []string
	Statuses []TableStatus
}

func (s Summary) OK() bool {
	return len(s.Failed) == 0
}

// Run creates every table, continuing past individual failures, then verifies all of
// them regardless of how creation went.
func (p *Provisioner) Run(ctx context.Context, tables []Table) Summary {
	p.logger.Info().Msgf("Setting up %d DynamoDB tables", len(tables))

	summary := Summary{Total: len(tables)}
	names := make([]string, 0, len(tables))
	for _, table := range tables {
		names = append(names, table.Name)
		if _, err := p.CreateTable(ctx, table); err != nil {
			summary.Failed = append(summary.Failed, table.Name)
			continue
		}
		summary.Ready++
	}

	p.logger.Info().Msgf("Tables created/verified: %d/%d", summary.Ready, summary.Total)
	if summary.OK() {
		p.logger.Info().Msg("All tables are ready")
	} else {
		p.logger.Error().Msgf("Some tables failed to create: %v", summary.Failed)
	}

	summary.Statuses = p.Verify(ctx, names)
	return summary
}
