package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	awspkg "github.com/shopcart/storefront/pkg/aws"
)

// NewClient loads AWS config (honouring the LocalStack endpoint override) and returns a DynamoDB client.
func NewClient(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// NewClientFromConfig accepts an AWS SDK config and returns a DynamoDB client.
func NewClientFromConfig(cfg sdkaws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg)
}

// TableSpec describes a table keyed by a string hash key with optional
// string/string global secondary indexes.
type TableSpec struct {
	Name    string
	HashKey string
	Indexes []IndexSpec
}

type IndexSpec struct {
	Name    string
	HashKey string
	SortKey string
}

// EnsureTable creates the table in on-demand mode when it does not exist and
// waits for it to become active.
func EnsureTable(ctx context.Context, client *dynamodb.Client, spec TableSpec) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: sdkaws.String(spec.Name)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table %s: %w", spec.Name, err)
	}

	attrs := map[string]bool{spec.HashKey: true}
	input := &dynamodb.CreateTableInput{
		TableName:   sdkaws.String(spec.Name),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: sdkaws.String(spec.HashKey), KeyType: types.KeyTypeHash},
		},
	}
	for _, idx := range spec.Indexes {
		attrs[idx.HashKey] = true
		keys := []types.KeySchemaElement{{AttributeName: sdkaws.String(idx.HashKey), KeyType: types.KeyTypeHash}}
		if idx.SortKey != "" {
			attrs[idx.SortKey] = true
			keys = append(keys, types.KeySchemaElement{AttributeName: sdkaws.String(idx.SortKey), KeyType: types.KeyTypeRange})
		}
		input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:  sdkaws.String(idx.Name),
			KeySchema:  keys,
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	for name := range attrs {
		input.AttributeDefinitions = append(input.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: sdkaws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	if _, err := client.CreateTable(ctx, input); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	waiter := dynamodb.NewTableExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: sdkaws.String(spec.Name)}, 2*time.Minute)
}
