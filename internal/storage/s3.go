package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/ownernet/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NetworkFileSuffix marks objects that hold a network dump.
const NetworkFileSuffix = ".ndjson"

// ObjectLister is the part of the S3 client used for listings.
type ObjectLister interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Configured reports whether S3 settings are present in the environment.
func Configured() bool {
	return util.GetEnv("AWS_BUCKET") != "" && util.GetEnv("AWS_REGION") != ""
}

// Bucket returns the bucket network dumps are read from.
func Bucket() string {
	return util.GetEnvString("AWS_BUCKET", "ownernet")
}

func NewS3Client(ctx context.Context) (*s3.Client, error) {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	}
	if endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client, nil
}

// ListNetworkFiles returns the keys of all network dumps below prefix.
func ListNetworkFiles(ctx context.Context, client ObjectLister, prefix string) ([]string, error) {
	keys, err := ListFilesWithPrefix(ctx, client, prefix)
	if err != nil {
		return nil, err
	}

	out := keys[:0]
	for _, k := range keys {
		if strings.HasSuffix(strings.ToLower(k), NetworkFileSuffix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func ListFilesWithPrefix(ctx context.Context, client ObjectLister, prefix string) ([]string, error) {
	bucket := Bucket()

	keys := make([]string, 0)
	listInput := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}

	for {
		listOutput, err := client.ListObjectsV2(ctx, listInput)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects with prefix %s: %w", prefix, err)
		}

		for _, obj := range listOutput.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}

		if listOutput.IsTruncated != nil && *listOutput.IsTruncated {
			listInput.ContinuationToken = listOutput.NextContinuationToken
		} else {
			break
		}
	}

	return keys, nil
}
