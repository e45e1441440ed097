package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/calorielens/internal/photostore"
)

var _ photostore.PhotoStore = (*S3PhotoStore)(nil)

type object struct {
	body        []byte
	contentType string
}

// fakeClient is an in-memory bucket.
type fakeClient struct {
	objects map[string]object
	bucket  string
	putErr  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: map[string]object{}}
}

func (f *fakeClient) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.bucket = aws.ToString(in.Bucket)
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = object{body: data, contentType: aws.ToString(in.ContentType)}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	out := &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body))}
	if obj.contentType != "" {
		out.ContentType = aws.String(obj.contentType)
	}
	return out, nil
}

func (f *fakeClient) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeClient) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestStore(client *fakeClient) *S3PhotoStore {
	store := NewWithClient(client, "calorielens")
	store.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
	return store
}

func TestS3PhotoStoreSaveAndGet(t *testing.T) {
	client := newFakeClient()
	store := newTestStore(client)
	ctx := context.Background()

	key, err := store.Save(ctx, "diag_req-1", "image/webp", bytes.NewReader([]byte("webp bytes")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "diagnostics/2024-03-09/diag_req-1_"), key)
	assert.True(t, strings.HasSuffix(key, ".webp"), key)
	assert.Equal(t, "calorielens", client.bucket)

	body, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, "image/webp", mimeType)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, []byte("webp bytes"), data)
}

func TestS3PhotoStoreGetFallsBackToExtension(t *testing.T) {
	client := newFakeClient()
	client.objects["diagnostics/x.png"] = object{body: []byte("png")}

	_, mimeType, err := newTestStore(client).Get(context.Background(), "diagnostics/x.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
}

func TestS3PhotoStoreNotFound(t *testing.T) {
	store := newTestStore(newFakeClient())
	ctx := context.Background()

	_, _, err := store.Get(ctx, "missing.jpg")
	assert.ErrorIs(t, err, photostore.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "missing.jpg"), photostore.ErrNotFound)
}

func TestS3PhotoStoreDelete(t *testing.T) {
	client := newFakeClient()
	store := newTestStore(client)
	ctx := context.Background()

	key, err := store.Save(ctx, "diag", "image/jpeg", bytes.NewReader([]byte("jpeg")))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))
	assert.Empty(t, client.objects)
}

func TestS3PhotoStoreSaveError(t *testing.T) {
	client := newFakeClient()
	client.putErr = errors.New("access denied")

	_, err := newTestStore(client).Save(context.Background(), "diag", "image/jpeg", bytes.NewReader(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewS3PhotoStoreRequiresBucket(t *testing.T) {
	_, err := NewS3PhotoStore(context.Background(), Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestNewS3PhotoStoreCustomEndpoint(t *testing.T) {
	store, err := NewS3PhotoStore(context.Background(), Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "calorielens",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	require.NoError(t, err)

	client, ok := store.client.(*s3.Client)
	require.True(t, ok)
	opts := client.Options()
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
}
