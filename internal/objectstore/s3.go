package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/connected-data-lake/cdl/internal/cdlerr"
)

// S3Store is a Store backed by an S3-compatible bucket, modeled on
// rclone's backend/s3.go session/client construction. The bucket is the
// dataset name; paths are keys within it.
type S3Store struct {
	bucket string
	client *s3.S3
}

// S3Config is the subset of DatasetCatalog needed to dial S3. AllowHTTP
// is derived from the endpoint scheme, as original_source's
// storage_options() does.
type S3Config struct {
	AccessKey  string
	SecretKey  string
	Region     string
	Endpoint   string
	AllowHTTP  bool
	PathStyle  bool
}

// NewS3Store dials an S3-compatible endpoint for bucket, following
// rclone's pattern of building a session.Session from static credentials
// plus an explicit endpoint/region (backend/s3.go's s3Connection).
func NewS3Store(bucket string, cfg S3Config) (*S3Store, error) {
	creds := credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	awsCfg := aws.NewConfig().
		WithRegion(cfg.Region).
		WithCredentials(creds).
		WithS3ForcePathStyle(cfg.PathStyle).
		WithDisableSSL(cfg.AllowHTTP)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, cdlerr.NewBackendError("s3", err)
	}
	return &S3Store{bucket: bucket, client: s3.New(sess)}, nil
}

func (s *S3Store) String() string { return "s3://" + s.bucket }

func (s *S3Store) key(path string) string {
	return strings.TrimPrefix(path, "/")
}

func (s *S3Store) Put(ctx context.Context, path string, payload []byte) (PutResult, error) {
	out, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
		Body:   strings.NewReader(string(payload)),
	})
	if err != nil {
		return PutResult{}, wrapS3Err(err)
	}
	var etag string
	if out.ETag != nil {
		etag = *out.ETag
	}
	return PutResult{ETag: etag}, nil
}

// PutOpts implements conditional writes. The installed aws-sdk-go v1's
// PutObjectInput has no IfNoneMatch field (that's an SDK v2 addition), so
// a conditional put is built the way rclone's s3 backend builds its own
// singlepart upload request (backend/s3.go's uploadSinglepartPutObject):
// go one level below PutObjectWithContext to PutObjectRequest, which
// returns the unsent *request.Request, and set the header by hand before
// calling Send.
func (s *S3Store) PutOpts(ctx context.Context, path string, payload []byte, opts PutOptions) (PutResult, error) {
	if opts.IfNoneMatch == "" {
		return s.Put(ctx, path, payload)
	}

	req, out := s.client.PutObjectRequest(&s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
		Body:   strings.NewReader(string(payload)),
	})
	req.SetContext(ctx)
	req.HTTPRequest.Header.Set("If-None-Match", opts.IfNoneMatch)

	if err := req.Send(); err != nil {
		if isPreconditionFailed(err) {
			return PutResult{}, cdlerr.ErrAlreadyExists
		}
		return PutResult{}, wrapS3Err(err)
	}
	var etag string
	if out.ETag != nil {
		etag = *out.ETag
	}
	return PutResult{ETag: etag}, nil
}

// isPreconditionFailed recognizes the HTTP 412 an If-None-Match
// conditional put returns when the object already exists. The older SDK
// surfaces this through the generic awserr.RequestFailure rather than a
// named error code.
func isPreconditionFailed(err error) bool {
	if rf, ok := err.(awserr.RequestFailure); ok {
		return rf.StatusCode() == 412
	}
	return false
}

func (s *S3Store) GetOpts(ctx context.Context, path string, opts GetOptions) (*GetResult, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	}
	if opts.IfMatch != "" {
		in.IfMatch = aws.String(opts.IfMatch)
	}
	if opts.IfNoneMatch != "" {
		in.IfNoneMatch = aws.String(opts.IfNoneMatch)
	}
	if r := opts.Range; r != nil {
		if r.Bounded() {
			in.Range = aws.String(fmt.Sprintf("bytes=%d-%d", r.Start, r.End-1))
		} else {
			in.Range = aws.String(fmt.Sprintf("bytes=%d-", r.Start))
		}
	}

	if opts.Head {
		head, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
			Bucket: in.Bucket, Key: in.Key,
		})
		if err != nil {
			return nil, wrapS3Err(err)
		}
		return &GetResult{
			Meta: objectMetaFromHead(path, head),
			Body: io.NopCloser(strings.NewReader("")),
		}, nil
	}

	out, err := s.client.GetObjectWithContext(ctx, in)
	if err != nil {
		return nil, wrapS3Err(err)
	}
	meta := ObjectMeta{Path: path}
	if out.ContentLength != nil {
		meta.Size = *out.ContentLength
	}
	if out.LastModified != nil {
		meta.LastModified = *out.LastModified
	}
	if out.ETag != nil {
		meta.ETag = *out.ETag
	}
	return &GetResult{Meta: meta, Body: out.Body}, nil
}

func (s *S3Store) GetRanges(ctx context.Context, path string, ranges []Range) ([][]byte, error) {
	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		res, err := s.GetOpts(ctx, path, GetOptions{Range: &r})
		if err != nil {
			return nil, err
		}
		b, err := res.Bytes()
		if err != nil {
			return nil, cdlerr.NewBackendError("s3", err)
		}
		out[i] = b
	}
	return out, nil
}

func (s *S3Store) Head(ctx context.Context, path string) (ObjectMeta, error) {
	head, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return ObjectMeta{}, wrapS3Err(err)
	}
	return objectMetaFromHead(path, head), nil
}

func (s *S3Store) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return wrapS3Err(err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]ObjectMeta, error) {
	var out []ObjectMeta
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			m := ObjectMeta{Path: aws.StringValue(obj.Key)}
			if obj.Size != nil {
				m.Size = *obj.Size
			}
			if obj.LastModified != nil {
				m.LastModified = *obj.LastModified
			}
			if obj.ETag != nil {
				m.ETag = *obj.ETag
			}
			out = append(out, m)
		}
		return true
	})
	if err != nil {
		return nil, wrapS3Err(err)
	}
	return out, nil
}

func (s *S3Store) ListWithOffset(ctx context.Context, prefix, offset string) ([]ObjectMeta, error) {
	all, err := s.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var out []ObjectMeta
	for _, m := range all {
		if m.Path > offset {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *S3Store) Copy(ctx context.Context, from, to string) error {
	_, err := s.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.key(to)),
		CopySource: aws.String(s.bucket + "/" + s.key(from)),
	})
	if err != nil {
		return wrapS3Err(err)
	}
	return nil
}

func (s *S3Store) Rename(ctx context.Context, from, to string) error {
	if err := s.Copy(ctx, from, to); err != nil {
		return err
	}
	return s.Delete(ctx, from)
}

func (s *S3Store) CopyIfNotExists(ctx context.Context, from, to string) error {
	if _, err := s.Head(ctx, to); err == nil {
		return fmt.Errorf("already exists: %s", to)
	}
	return s.Copy(ctx, from, to)
}

func (s *S3Store) RenameIfNotExists(ctx context.Context, from, to string) error {
	if _, err := s.Head(ctx, to); err == nil {
		return fmt.Errorf("already exists: %s", to)
	}
	return s.Rename(ctx, from, to)
}

func objectMetaFromHead(path string, head *s3.HeadObjectOutput) ObjectMeta {
	m := ObjectMeta{Path: path}
	if head.ContentLength != nil {
		m.Size = *head.ContentLength
	}
	if head.LastModified != nil {
		m.LastModified = *head.LastModified
	}
	if head.ETag != nil {
		m.ETag = *head.ETag
	}
	return m
}

func wrapS3Err(err error) error {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return cdlerr.ErrNotFound
		}
	}
	return cdlerr.NewBackendError("s3", err)
}
