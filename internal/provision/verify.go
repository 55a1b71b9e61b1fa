package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type StatusKind int

const (
	StatusFound StatusKind = iota
	StatusNotFound
	StatusError
)

// TableStatus is the result of describing one table during verification.
type TableStatus struct {
	Name      string
	Kind      StatusKind
	Status    types.TableStatus
	ItemCount int64
	Err       error
}

func (s TableStatus) String() string {
	switch s.Kind {
	case StatusNotFound:
		return fmt.Sprintf("%s: NOT FOUND", s.Name)
	case StatusError:
		return fmt.Sprintf("%s: ERROR - %v", s.Name, s.Err)
	default:
		return fmt.Sprintf("%s: %s (Items: %d)", s.Name, s.Status, s.ItemCount)
	}
}

// Verify describes each table and logs its status and item count. Missing tables are
// reported as NOT FOUND, distinct from other errors.
func (p *Provisioner) Verify(ctx context.Context, names []string) []TableStatus {
	p.logger.Info().Msg("Verifying tables...")

	statuses := make([]TableStatus, 0, len(names))
	for _, name := range names {
		status := p.describe(ctx, name)
		switch status.Kind {
		case StatusFound:
			p.logger.Info().Msg(status.String())
		default:
			p.logger.Error().Msg(status.String())
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func (p *Provisioner) describe(ctx context.Context, name string) TableStatus {
	out, err := p.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		if isNotFound(err) {
			return TableStatus{Name: name, Kind: StatusNotFound}
		}
		return TableStatus{Name: name, Kind: StatusError, Err: err}
	}
	if out.Table == nil {
		return TableStatus{Name: name, Kind: StatusError, Err: errors.New("empty table description")}
	}
	return TableStatus{
		Name:      name,
		Kind:      StatusFound,
		Status:    out.Table.TableStatus,
		ItemCount: aws.ToInt64(out.Table.ItemCount),
	}
}
