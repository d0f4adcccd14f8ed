package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// endpointEnvVars lists the override variables checked in order. The first
// non-empty one routes every SDK client to that URL (LocalStack edge port).
var endpointEnvVars = []string{"AWS_SNS_ENDPOINT", "AWS_S3_ENDPOINT", "AWS_ENDPOINT"}

// LoadAWSConfig loads the default AWS config and applies an endpoint override
// when one of endpointEnvVars is set.
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	endpoint := EndpointOverride()
	if endpoint == "" {
		return cfg, nil
	}

	signingRegion := cfg.Region
	if signingRegion == "" {
		signingRegion = os.Getenv("AWS_REGION")
	}

	cfg.EndpointResolverWithOptions = sdkaws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (sdkaws.Endpoint, error) {
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

// EndpointOverride returns the configured custom endpoint, or "" for real AWS.
func EndpointOverride() string {
	for _, name := range endpointEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
