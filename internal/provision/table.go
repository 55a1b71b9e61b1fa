package provision

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// KeyType is the scalar type of a partition key. Only strings are used.
type KeyType string

const (
	KeyTypeString KeyType = "S"
)

// Table describes a table to create. It is immutable once built by the config layer.
type Table struct {
	Name             string            `yaml:"name"`
	PartitionKey     string            `yaml:"partition_key"`
	PartitionKeyType KeyType           `yaml:"partition_key_type"`
	Tags             map[string]string `yaml:"tags"`
}

// DocTable returns a table keyed on docid (S), the schema shared by every document table.
func DocTable(name string, tags map[string]string) Table {
	return Table{
		Name:             name,
		PartitionKey:     "docid",
		PartitionKeyType: KeyTypeString,
		Tags:             tags,
	}
}

func (t Table) Validate() error {
	if t.Name == "" {
		return errors.New("table name is empty")
	}
	if t.PartitionKey == "" {
		return fmt.Errorf("table %q: partition key is empty", t.Name)
	}
	if t.PartitionKeyType != KeyTypeString {
		return fmt.Errorf("table %q: unsupported partition key type %q", t.Name, t.PartitionKeyType)
	}
	return nil
}

// createInput builds an on-demand, deletion-protected table request:
// - PK: <PartitionKey> (S)
// - warm throughput hint from opts
func (t Table) createInput(opts Options) *dynamodb.CreateTableInput {
	input := &dynamodb.CreateTableInput{
		TableName: aws.String(t.Name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(t.PartitionKey), AttributeType: types.ScalarAttributeType(t.PartitionKeyType)},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(t.PartitionKey), KeyType: types.KeyTypeHash},
		},
		BillingMode:               types.BillingModePayPerRequest, // on-demand: no capacity planning
		TableClass:                types.TableClassStandard,
		DeletionProtectionEnabled: aws.Bool(true),
	}

	if opts.ReadUnitsPerSecond > 0 || opts.WriteUnitsPerSecond > 0 {
		input.WarmThroughput = &types.WarmThroughput{
			ReadUnitsPerSecond:  aws.Int64(opts.ReadUnitsPerSecond),
			WriteUnitsPerSecond: aws.Int64(opts.WriteUnitsPerSecond),
		}
	}

	if len(t.Tags) > 0 {
		keys := make([]string, 0, len(t.Tags))
		for k := range t.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			input.Tags = append(input.Tags, types.Tag{Key: aws.String(k), Value: aws.String(t.Tags[k])})
		}
	}

	return input
}
