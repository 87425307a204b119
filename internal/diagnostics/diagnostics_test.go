package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderPersistsFailures(t *testing.T) {
	store := NewMemoryStore()
	r := NewRecorder(store, nil)
	ctx := context.Background()

	r.Before(ctx, "req-1", "[PURPOSE]\nmake a map")
	r.After(ctx, "req-1", json.RawMessage("not json"), nil)
	require.Equal(t, 1, r.Pending())

	require.NoError(t, r.Flush(ctx, "req-1", errors.New("MalformedJSON: output is not valid JSON")))
	assert.Equal(t, 0, r.Pending())
	assert.Equal(t, []string{ErrorFile, PromptFile, RawFile}, store.List("req-1"))

	raw, ok := store.Get("req-1", RawFile)
	require.True(t, ok)
	assert.Equal(t, "not json", string(raw))
	msg, _ := store.Get("req-1", ErrorFile)
	assert.Contains(t, string(msg), "MalformedJSON")
}

func TestRecorderDropsSuccesses(t *testing.T) {
	store := NewMemoryStore()
	r := NewRecorder(store, nil)
	ctx := context.Background()

	r.Before(ctx, "ok", "prompt")
	r.After(ctx, "ok", json.RawMessage(`{}`), nil)
	require.NoError(t, r.Flush(ctx, "ok", nil))
	assert.Empty(t, store.List("ok"))
	assert.Equal(t, 0, r.Pending())
}

func TestRecorderGenerationError(t *testing.T) {
	store := NewMemoryStore()
	r := NewRecorder(store, nil)
	ctx := context.Background()

	genErr := errors.New("upstream 503")
	r.Before(ctx, "down", "prompt")
	r.After(ctx, "down", nil, genErr)
	require.NoError(t, r.Flush(ctx, "down", genErr))
	assert.Equal(t, []string{ErrorFile, PromptFile}, store.List("down"))
}

func TestNilRecorder(t *testing.T) {
	r := NewRecorder(nil, nil)
	assert.Nil(t, r)
	ctx := context.Background()
	assert.NotPanics(t, func() {
		r.Before(ctx, "x", "p")
		r.After(ctx, "x", nil, nil)
	})
	assert.NoError(t, r.Flush(ctx, "x", errors.New("boom")))
	assert.Equal(t, 0, r.Pending())
}

func TestObjectKey(t *testing.T) {
	key, err := objectKey(" abc ", "/raw.json")
	require.NoError(t, err)
	assert.Equal(t, "abc/raw.json", key)

	_, err = objectKey("", "raw.json")
	assert.Error(t, err)
	_, err = objectKey("abc", " ")
	assert.Error(t, err)

	assert.Error(t, NewMemoryStore().Put(context.Background(), "", "raw.json", nil))
}

func TestNewS3StoreValidates(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	assert.ErrorContains(t, err, "endpoint")
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "access key")
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")

	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "diag"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.region)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType(RawFile))
	assert.Equal(t, "text/plain; charset=utf-8", contentType(PromptFile))
}

type flakyBuckets struct {
	existsErrs []error
	exists     bool
	existCalls int
	makeCalls  int
}

func (f *flakyBuckets) BucketExists(context.Context, string) (bool, error) {
	f.existCalls++
	if len(f.existsErrs) > 0 {
		err := f.existsErrs[0]
		f.existsErrs = f.existsErrs[1:]
		return false, err
	}
	return f.exists, nil
}

func (f *flakyBuckets) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	f.makeCalls++
	f.exists = true
	return nil
}

func TestEnsureBucketRetriesAfterFailure(t *testing.T) {
	fake := &flakyBuckets{existsErrs: []error{errors.New("connection refused")}}
	s := &S3Store{buckets: fake, bucketName: "diag", region: "us-east-1"}
	ctx := context.Background()

	assert.ErrorContains(t, s.ensureBucket(ctx), "connection refused")
	require.NoError(t, s.ensureBucket(ctx))
	assert.Equal(t, 1, fake.makeCalls)

	require.NoError(t, s.ensureBucket(ctx))
	assert.Equal(t, 2, fake.existCalls)
}

func TestRecorderSeparatesRunsSharingRequestID(t *testing.T) {
	store := NewMemoryStore()
	r := NewRecorder(store, nil)
	ctx := context.Background()
	runA, runB := "client-fixed-id/a", "client-fixed-id/b"

	r.Before(ctx, runB, "prompt B")
	require.NoError(t, r.Flush(ctx, runA, nil))
	r.After(ctx, runB, nil, errors.New("upstream 503"))
	require.NoError(t, r.Flush(ctx, runB, errors.New("upstream 503")))

	assert.Equal(t, []string{"b/" + ErrorFile, "b/" + PromptFile}, store.List("client-fixed-id"))
	prompt, ok := store.Get(runB, PromptFile)
	require.True(t, ok)
	assert.Equal(t, "prompt B", string(prompt))
}
