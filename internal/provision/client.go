package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// TableAPI is the part of *dynamodb.Client the provisioner needs.
type TableAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// NewDynamoClient loads the ambient AWS config (honors AWS_PROFILE, credentials chain, etc.)
// and returns a DynamoDB client bound to region. A non-empty endpointURL points the
// client at LocalStack or another custom endpoint.
func NewDynamoClient(ctx context.Context, region, endpointURL string) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, func(o *config.LoadOptions) error {
		if region != "" {
			o.Region = region
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed loading AWS config: %w", err)
	}

	if endpointURL != "" {
		cfg.BaseEndpoint = aws.String(endpointURL)
	}

	return dynamodb.NewFromConfig(cfg), nil
}

func isAlreadyExists(err error) bool {
	var riue *types.ResourceInUseException
	if errors.As(err, &riue) {
		return true
	}
	return hasErrorCode(err, "ResourceInUseException")
}

func isNotFound(err error) bool {
	var rnfe *types.ResourceNotFoundException
	if errors.As(err, &rnfe) {
		return true
	}
	return hasErrorCode(err, "ResourceNotFoundException")
}

// hasErrorCode covers endpoints that return the right code without the SDK mapping it
// to a typed exception.
func hasErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}
