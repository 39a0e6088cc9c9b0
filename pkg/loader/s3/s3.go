package s3

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OFFIS-RIT/ownernet/pkg/loader"
)

// ObjectGetter is the part of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3NetworkLoader is a NetworkFileLoader implementation that streams network
// dumps from an Amazon S3 bucket. It uses the AWS SDK v2 for Go.
type S3NetworkLoader struct {
	bucket string
	client ObjectGetter
}

// NewS3NetworkLoaderWithClient creates a new S3NetworkLoader using an
// existing client. This is useful if you want to reuse a preconfigured
// AWS client (e.g., with custom middleware or credentials).
func NewS3NetworkLoaderWithClient(bucket string, client ObjectGetter) *S3NetworkLoader {
	return &S3NetworkLoader{
		bucket: bucket,
		client: client,
	}
}

// NewS3NetworkLoaderParams defines the configuration parameters for
// creating a new S3NetworkLoader.
//
// Bucket specifies the S3 bucket name.
// Endpoint allows overriding the S3 endpoint (useful for S3-compatible
// storage like MinIO).
// Region specifies the AWS region.
// AccessKey and SecretKey provide static credentials.
type NewS3NetworkLoaderParams struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3NetworkLoader creates a new S3NetworkLoader using the provided
// parameters. It initializes an AWS S3 client with static credentials and
// the given endpoint/region.
//
// Example:
//
//	l, err := s3.NewS3NetworkLoader(ctx, s3.NewS3NetworkLoaderParams{
//		Bucket:    "networks",
//		Endpoint:  "http://localhost:9000",
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
//		SecretKey: os.Getenv("AWS_SECRET_KEY"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	file := loader.NewS3NetworkFile(loader.NewNetworkFileParams{ID: "1", Location: "ct/hartford.ndjson", Loader: l})
//	body, err := file.Open(ctx)
func NewS3NetworkLoader(ctx context.Context, params NewS3NetworkLoaderParams) (*S3NetworkLoader, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(params.Region),
		config.WithBaseEndpoint(params.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &S3NetworkLoader{
		bucket: params.Bucket,
		client: client,
	}, nil
}

// Open starts a GetObject for file.Location and returns its body.
func (l *S3NetworkLoader) Open(ctx context.Context, file loader.NetworkFile) (io.ReadCloser, error) {
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(file.Location),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get network file from S3: %w", err)
	}
	return out.Body, nil
}
