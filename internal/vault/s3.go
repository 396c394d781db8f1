package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"qrganizer/internal/config"
	"qrganizer/internal/inventory"
)

// versionKey is the object metadata key holding the snapshot version.
const versionKey = "qrg-version"

// s3API is the subset of *s3.Client used by S3Vault.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type uploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Vault stores each snapshot as one object under <prefix>/<name>, with the
// version in object metadata. Uploads go through the multipart manager so
// large databases stream without buffering.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   s3API
	uploader uploader
}

var _ inventory.Vault = (*S3Vault)(nil)

// NewS3Vault builds an S3 client from cfg. Static credentials are used when
// both key fields are set; otherwise the default AWS credential chain applies.
func NewS3Vault(ctx context.Context, cfg config.VaultConfig) (*S3Vault, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Vault(cfg.Name, cfg.S3Bucket, cfg.S3Prefix, client, manager.NewUploader(client)), nil
}

func newS3Vault(name, bucket, prefix string, client s3API, up uploader) *S3Vault {
	return &S3Vault{name: name, bucket: bucket, prefix: prefix, client: client, uploader: up}
}

func (v *S3Vault) key(name string) string {
	return path.Join(v.prefix, "snapshots", name)
}

func (v *S3Vault) PutSnapshot(ctx context.Context, name string, r io.Reader, size int64, version int64) error {
	if err := checkName(name); err != nil {
		return err
	}
	cr := &countingReader{r: r}
	_, err := v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(v.bucket),
		Key:      aws.String(v.key(name)),
		Body:     cr,
		Metadata: map[string]string{versionKey: strconv.FormatInt(version, 10)},
	})
	if err != nil {
		return fmt.Errorf("uploading snapshot to s3://%s/%s: %w", v.bucket, v.key(name), err)
	}
	if cr.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, cr.n)
	}
	return nil
}

func (v *S3Vault) GetSnapshot(ctx context.Context, name string, w io.Writer) error {
	if err := checkName(name); err != nil {
		return err
	}
	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return fmt.Errorf("downloading snapshot: %w", err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	return nil
}

// SnapshotVersion returns 0 when the object does not exist.
func (v *S3Vault) SnapshotVersion(ctx context.Context, name string) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	out, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(name)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading snapshot metadata: %w", err)
	}

	raw, ok := out.Metadata[versionKey]
	if !ok {
		return 0, nil
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing snapshot version %q: %w", raw, err)
	}
	return version, nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup(ctx context.Context) error {
	if _, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)}); err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
