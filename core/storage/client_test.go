package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Alfresco/SearchServices-sub009/core/storage"
	"github.com/Alfresco/SearchServices-sub009/core/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		ssl      bool
	}{
		{name: "Bare endpoint", endpoint: "localhost:9000"},
		{name: "HTTP scheme stripped", endpoint: "http://localhost:9000"},
		{name: "HTTPS scheme stripped", endpoint: "https://s3.amazonaws.com", ssl: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := storage.NewClient(storage.Config{
				Endpoint:  tt.endpoint,
				AccessKey: "testkey",
				SecretKey: "testsecret",
				UseSSL:    tt.ssl,
				Region:    "us-east-1",
			})
			assert.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("Existing bucket is left alone", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "content").Return(true, nil)

		assert.NoError(t, storage.EnsureBucket(ctx, m, "content", ""))
		m.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Missing bucket is created", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "content").Return(false, nil)
		m.On("MakeBucket", ctx, "content", mock.Anything).Return(nil)

		assert.NoError(t, storage.EnsureBucket(ctx, m, "content", "eu-west-1"))
		m.AssertExpectations(t)
	})

	t.Run("Lookup failure is wrapped", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "content").Return(false, errors.New("connection refused"))

		err := storage.EnsureBucket(ctx, m, "content", "")
		assert.ErrorContains(t, err, "connection refused")
	})
}
