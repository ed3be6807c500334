package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body string
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)

	return &s3.PutObjectOutput{}, f.err
}

func TestS3Store_Put(t *testing.T) {
	f := &fakeS3{}
	s := newS3Store(f, S3Config{Bucket: "covers", Region: "eu-west-1"})

	url, err := s.Put(context.Background(), "covers/a.png", strings.NewReader("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://covers.s3.eu-west-1.amazonaws.com/covers/a.png", url)
	assert.Equal(t, "covers", aws.ToString(f.in.Bucket))
	assert.Equal(t, "covers/a.png", aws.ToString(f.in.Key))
	assert.Equal(t, "image/png", aws.ToString(f.in.ContentType))
	assert.Equal(t, "img", f.body)

	s = newS3Store(f, S3Config{Bucket: "covers", PublicURL: "http://localhost:9000/covers/"})
	url, err = s.Put(context.Background(), "covers/b.png", strings.NewReader("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/covers/covers/b.png", url)

	f.err = errors.New("boom")
	_, err = s.Put(context.Background(), "covers/c.png", strings.NewReader("img"), "image/png")
	require.ErrorIs(t, err, f.err)
}

func TestNewS3_Disabled(t *testing.T) {
	s, err := NewS3(context.Background(), S3Config{})
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "k", strings.NewReader(""), "image/png")
	require.ErrorIs(t, err, ErrDisabled)
}

func TestImageContentType(t *testing.T) {
	ct, ok := ImageContentType("Cover.JPG")
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", ct)

	_, ok = ImageContentType("script.sh")
	require.False(t, ok)

	_, ok = ImageContentType("noext")
	require.False(t, ok)
}

func TestCoverKey(t *testing.T) {
	k1, k2 := CoverKey("a.PNG"), CoverKey("a.PNG")

	require.NotEqual(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, CoversPrefix))
	assert.True(t, strings.HasSuffix(k1, ".png"))
}

func TestNormalizeKey(t *testing.T) {
	for in, out := range map[string]string{
		"media/covers/a.png":  "covers/a.png",
		"/media/covers/a.png": "covers/a.png",
		"covers/a.png":        "covers/a.png",
		"/covers/a.png":       "covers/a.png",
	} {
		assert.Equal(t, out, NormalizeKey(in), in)
	}
}
