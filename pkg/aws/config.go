package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// endpointFromEnv returns the LocalStack style endpoint override, if any.
func endpointFromEnv() string {
	for _, key := range []string{"AWS_ENDPOINT", "AWS_SQS_ENDPOINT", "AWS_DYNAMODB_ENDPOINT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// LoadAWSConfig loads the default AWS config. When AWS_ENDPOINT (or a
// service specific variant) is set, every client is pointed at that URL so
// SNS, SQS, DynamoDB and Secrets Manager all hit the same LocalStack edge port.
func LoadAWSConfig(ctx context.Context, optFns ...func(*config.LoadOptions) error) (sdkaws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	endpoint := endpointFromEnv()
	if endpoint == "" {
		return cfg, nil
	}

	signingRegion := cfg.Region
	if signingRegion == "" {
		signingRegion = os.Getenv("AWS_REGION")
	}
	cfg.EndpointResolverWithOptions = sdkaws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (sdkaws.Endpoint, error) {
		sr := signingRegion
		if sr == "" {
			sr = region
		}
		return sdkaws.Endpoint{
			URL:               endpoint,
			SigningRegion:     sr,
			HostnameImmutable: true,
		}, nil
	})
	return cfg, nil
}
