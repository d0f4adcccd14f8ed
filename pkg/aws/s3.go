package aws

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ImageURLResolver turns stored image keys into URLs a browser can load.
// With a CDN domain configured the URL is a plain CDN link; otherwise a
// presigned GET is generated against the bucket.
type ImageURLResolver struct {
	presigner *s3.PresignClient
	bucket    string
	cdnDomain string
	expiry    time.Duration
}

func NewImageURLResolver(cfg sdkaws.Config, bucket, cdnDomain string, expiry time.Duration) *ImageURLResolver {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &ImageURLResolver{
		presigner: s3.NewPresignClient(s3.NewFromConfig(cfg)),
		bucket:    bucket,
		cdnDomain: strings.TrimSuffix(cdnDomain, "/"),
		expiry:    expiry,
	}
}

// PublicURL resolves key. Absolute URLs are returned unchanged and an empty
// key yields "".
func (r *ImageURLResolver) PublicURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key, nil
	}
	key = strings.TrimPrefix(key, "/")

	if r.cdnDomain != "" {
		u := url.URL{Scheme: "https", Host: r.cdnDomain, Path: "/" + key}
		return u.String(), nil
	}
	if r.bucket == "" {
		return "", fmt.Errorf("no image bucket configured")
	}

	presigned, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: sdkaws.String(r.bucket),
		Key:    sdkaws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = r.expiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign get object: %w", err)
	}
	return presigned.URL, nil
}
