package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts map[string][]byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.puts[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3MirrorPut(t *testing.T) {
	fake := &fakeS3{puts: map[string][]byte{}}
	mirror, err := NewS3Mirror(fake, "harvest", "/cccbdb/raw/")
	require.NoError(t, err)

	require.NoError(t, mirror.Put(context.Background(), "7732185.html", []byte("<html></html>")))
	require.Equal(t, map[string][]byte{
		"harvest/cccbdb/raw/7732185.html": []byte("<html></html>"),
	}, fake.puts)
}

func TestS3MirrorKeyWithoutPrefix(t *testing.T) {
	mirror, err := NewS3Mirror(&fakeS3{}, "harvest", "")
	require.NoError(t, err)
	require.Equal(t, "64175.html", mirror.Key("64175.html"))
}

func TestS3MirrorErrors(t *testing.T) {
	_, err := NewS3Mirror(&fakeS3{}, "", "raw")
	require.Error(t, err)
	_, err = NewS3Mirror(nil, "harvest", "raw")
	require.Error(t, err)

	denied := errors.New("access denied")
	mirror, err := NewS3Mirror(&fakeS3{err: denied}, "harvest", "raw")
	require.NoError(t, err)
	err = mirror.Put(context.Background(), "64175.html", nil)
	require.ErrorIs(t, err, denied)
	require.Contains(t, err.Error(), "s3://harvest/raw/64175.html")
}
