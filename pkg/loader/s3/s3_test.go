package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OFFIS-RIT/ownernet/pkg/loader"
)

type fakeGetter struct {
	bucket, key string
	body        string
	err         error
}

func (f *fakeGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = aws.ToString(params.Bucket)
	f.key = aws.ToString(params.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3NetworkLoaderOpen(t *testing.T) {
	getter := &fakeGetter{body: "{}\n"}
	l := NewS3NetworkLoaderWithClient("networks", getter)

	body, err := l.Open(context.Background(), loader.NetworkFile{Location: "ct/hartford.ndjson"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer body.Close()

	if getter.bucket != "networks" || getter.key != "ct/hartford.ndjson" {
		t.Fatalf("GetObject called with %s/%s", getter.bucket, getter.key)
	}
	data, _ := io.ReadAll(body)
	if string(data) != "{}\n" {
		t.Fatalf("body = %q", data)
	}
}

func TestS3NetworkLoaderWrapsError(t *testing.T) {
	missing := errors.New("NoSuchKey")
	l := NewS3NetworkLoaderWithClient("networks", &fakeGetter{err: missing})

	if _, err := l.Open(context.Background(), loader.NetworkFile{Location: "gone"}); !errors.Is(err, missing) {
		t.Fatalf("Open() error = %v, want wrapped NoSuchKey", err)
	}
}
