// Package bds3 provides results that stream objects from S3, answering range requests with ranged GetObject calls.
package bds3

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/advdv/bdispatch"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
)

// GetObjectAPI is the part of the S3 client the object result needs.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ GetObjectAPI = (*s3.Client)(nil)

// Object is a result that writes an S3 object. It implements [bdispatch.PartialWriter] so a request with a
// Range header is passed on to S3 and answered with 206 Partial Content.
type Object struct {
	ctx         context.Context
	api         GetObjectAPI
	bucket      string
	key         string
	contentType string
	rangeHeader string
}

// NewObject returns a result for the object at bucket/key as requested by r. An empty contentType means
// the one stored with the object is used for ranged responses.
func NewObject(ctx context.Context, api GetObjectAPI, bucket, key, contentType string, r *http.Request) *Object {
	return &Object{
		ctx:         ctx,
		api:         api,
		bucket:      bucket,
		key:         key,
		contentType: contentType,
		rangeHeader: r.Header.Get("Range"),
	}
}

// IsPartialRequest implements [bdispatch.PartialWriter].
func (o *Object) IsPartialRequest() bool { return o.rangeHeader != "" }

// Options implements [bdispatch.HasOptions].
func (o *Object) Options() map[string]string {
	opts := map[string]string{"Accept-Ranges": "bytes"}
	if o.contentType != "" {
		opts["Content-Type"] = o.contentType
	}

	return opts
}

// WritePartialTo implements [bdispatch.PartialWriter].
func (o *Object) WritePartialTo(w bdispatch.Sink) error {
	out, err := o.api.GetObject(o.ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(o.rangeHeader),
	})
	if err != nil {
		if statusOf(err) == http.StatusRequestedRangeNotSatisfiable {
			w.SetStatus(http.StatusRequestedRangeNotSatisfiable, "Requested Range Not Satisfiable")
			return nil
		}

		return errors.Wrapf(err, "get range %q of s3://%s/%s", o.rangeHeader, o.bucket, o.key)
	}
	defer out.Body.Close()

	if out.ContentRange != nil {
		w.Header().Set("Content-Range", *out.ContentRange)
	}

	if out.ContentLength != nil {
		w.Header().Set("Content-Length", strconv.FormatInt(*out.ContentLength, 10))
	}

	if o.contentType == "" && out.ContentType != nil {
		w.SetContentType(*out.ContentType)
	}

	w.SetStatus(http.StatusPartialContent, "Partial Content")

	if _, err := io.Copy(w, out.Body); err != nil {
		return errors.Wrap(err, "copy range")
	}

	return nil
}

// WriteTo writes the whole object.
func (o *Object) WriteTo(w io.Writer) (int64, error) {
	out, err := o.api.GetObject(o.ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		return 0, errors.Wrapf(err, "get s3://%s/%s", o.bucket, o.key)
	}
	defer out.Body.Close()

	return io.Copy(w, out.Body)
}

// statusOf returns the HTTP status of an S3 response error, or 0.
func statusOf(err error) int {
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}

	return 0
}
