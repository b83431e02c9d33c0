// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartil-io/tartil/pkg/blob"
	"github.com/tartil-io/tartil/pkg/catalog"
	"github.com/tartil-io/tartil/pkg/catalog/db/memory"
	"github.com/tartil-io/tartil/pkg/types"
)

type apiEnv struct {
	server *httptest.Server
	blobs  *blob.MemStore
	store  *memory.Store
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	blobs := blob.NewMemory()

	require.NoError(t, store.PutRecitation(ctx, &types.Recitation{
		Slug:        types.CanonicalRecitationSlug,
		EnglishName: "Hafs an Asim",
	}))
	for n := 1; n <= types.TotalChapters; n++ {
		require.NoError(t, store.PutChapter(ctx, &types.Chapter{
			Number:      n,
			Slug:        fmt.Sprintf("chapter-%d", n),
			EnglishName: fmt.Sprintf("Chapter %d", n),
		}))
	}

	svc, err := catalog.NewService(store, blobs, catalog.DefaultConfig())
	require.NoError(t, err)
	rec := catalog.NewReconciler(catalog.ReconcilerConfig{GracePeriod: time.Hour}, svc)

	ts := httptest.NewServer(New(svc, rec, DefaultConfig()).Router())
	t.Cleanup(ts.Close)
	return &apiEnv{server: ts, blobs: blobs, store: store}
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *apiEnv) createReciter(t *testing.T, english, arabic string) {
	t.Helper()
	body, contentType := multipartBody(t, map[string]string{
		"arabicName":  arabic,
		"englishName": english,
	}, nil)

	resp, err := http.Post(e.server.URL+"/v1/reciters/", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func (e *apiEnv) uploadAudio(t *testing.T, reciterSlug, recitationSlug string, files map[string][]byte) {
	t.Helper()
	body, contentType := multipartBody(t, nil, files)

	url := fmt.Sprintf("%s/v1/reciters/%s/recitations/%s/audio", e.server.URL, reciterSlug, recitationSlug)
	resp, err := http.Post(url, contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPILifecycle(t *testing.T) {
	env := newAPIEnv(t)
	env.createReciter(t, "Sample Reader", "قارئ")

	// Duplicate registration conflicts.
	body, contentType := multipartBody(t, map[string]string{
		"arabicName":  "قارئ",
		"englishName": "Sample Reader",
	}, nil)
	resp, err := http.Post(env.server.URL+"/v1/reciters/", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Upload a batch, then list.
	env.uploadAudio(t, "sample-reader", types.CanonicalRecitationSlug, map[string][]byte{
		"1.mp3": []byte("audio-1"),
		"2.mp3": []byte("audio-2"),
	})

	resp, err = http.Get(env.server.URL + "/v1/reciters/?search=sample")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list catalog.ListRecitersResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Reciters, 1)
	assert.Equal(t, 1, list.Reciters[0].TotalRecitations)
}

func TestAPIDetailsAndViews(t *testing.T) {
	env := newAPIEnv(t)
	env.createReciter(t, "Sample Reader", "قارئ")
	env.uploadAudio(t, "sample-reader", types.CanonicalRecitationSlug, map[string][]byte{
		"1.mp3": []byte("audio-1"),
	})

	resp, err := http.Get(env.server.URL + "/v1/reciters/sample-reader/?increaseViews=true")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var details catalog.ReciterDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&details))
	require.Len(t, details.Recitations, 1)
	assert.Equal(t, types.CanonicalRecitationSlug, details.Recitations[0].Recitation.Slug)
	assert.Equal(t, int64(1), details.TotalViewers)

	resp, err = http.Get(env.server.URL + "/v1/reciters/nobody/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIArchiveStream(t *testing.T) {
	env := newAPIEnv(t)
	env.createReciter(t, "Sample Reader", "قارئ")

	url := fmt.Sprintf("%s/v1/reciters/sample-reader/recitations/%s/archive", env.server.URL, types.CanonicalRecitationSlug)

	// Nothing uploaded yet: NotFound arrives before any zip bytes.
	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.uploadAudio(t, "sample-reader", types.CanonicalRecitationSlug, map[string][]byte{
		"1.mp3": []byte("audio-1"),
		"2.mp3": []byte("audio-2"),
	})

	resp, err = http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "sample-reader")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)
}

func TestAPIDeleteCascade(t *testing.T) {
	env := newAPIEnv(t)
	env.createReciter(t, "Sample Reader", "قارئ")
	env.uploadAudio(t, "sample-reader", types.CanonicalRecitationSlug, map[string][]byte{
		"1.mp3": []byte("audio-1"),
	})

	req, err := http.NewRequest(http.MethodDelete, env.server.URL+"/v1/reciters/sample-reader/", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res catalog.DeleteResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 0, env.blobs.Len())
}

func TestAPIReconcile(t *testing.T) {
	env := newAPIEnv(t)

	resp, err := http.Get(env.server.URL + "/v1/admin/reconcile")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(env.server.URL+"/v1/admin/reconcile", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report catalog.ReconcileReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Zero(t, report.TotalObjects)
	assert.Empty(t, report.ErrorMessage)

	// A sweep that cannot list the stores must not read as a clean run.
	env.blobs.FailList = errors.New("bucket unavailable")
	resp, err = http.Post(env.server.URL+"/v1/admin/reconcile", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var failed catalog.ReconcileReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&failed))
	assert.Equal(t, "bucket unavailable", failed.ErrorMessage)
}

func TestServerShutdown(t *testing.T) {
	svc, err := catalog.NewService(memory.New(), blob.NewMemory(), catalog.DefaultConfig())
	require.NoError(t, err)

	srv := New(svc, nil, Config{Addr: "127.0.0.1:0"})
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop after shutdown")
	}
}
