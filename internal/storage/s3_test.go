package storage

import (
	"context"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type pagedLister struct {
	pages   [][]string
	buckets []string
}

func (p *pagedLister) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	p.buckets = append(p.buckets, aws.ToString(params.Bucket))

	page := 0
	if params.ContinuationToken != nil {
		page = 1
	}
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(page == 0 && len(p.pages) > 1)}
	if page == 0 {
		out.NextContinuationToken = aws.String("next")
	}
	for _, key := range p.pages[page] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	return out, nil
}

func TestListNetworkFiles(t *testing.T) {
	t.Setenv("AWS_BUCKET", "networks")
	lister := &pagedLister{pages: [][]string{
		{"ct/hartford.ndjson", "ct/readme.txt"},
		{"ct/new-haven.NDJSON"},
	}}

	keys, err := ListNetworkFiles(context.Background(), lister, "ct/")
	if err != nil {
		t.Fatalf("ListNetworkFiles() error = %v", err)
	}
	if want := []string{"ct/hartford.ndjson", "ct/new-haven.NDJSON"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	if !reflect.DeepEqual(lister.buckets, []string{"networks", "networks"}) {
		t.Fatalf("buckets = %v", lister.buckets)
	}
}
