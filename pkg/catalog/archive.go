// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"

	"github.com/tartil-io/tartil/pkg/blob"
	"github.com/tartil-io/tartil/pkg/logger"
)

// Archive is a prepared archive stream. OpenArchive resolves and lists
// before any byte is produced, so NotFound surfaces before the caller
// commits response headers.
type Archive struct {
	// Name is the suggested download filename.
	Name string

	prefix  string
	objects []blob.ObjectInfo
	blobs   blob.Store
}

// OpenArchive resolves the assignment for a reciter/recitation pair and
// lists its audio prefix. It fails NotFound when the reciter, the
// recitation, the assignment, or the objects are missing.
func (s *Service) OpenArchive(ctx context.Context, reciterSlug, recitationSlug string) (*Archive, error) {
	reciter, err := s.getReciter(ctx, reciterSlug)
	if err != nil {
		return nil, err
	}
	recitation, err := s.getRecitation(ctx, recitationSlug)
	if err != nil {
		return nil, err
	}
	if !reciter.HasRecitation(recitation.ID) {
		return nil, NewNotFoundError("reciter %q does not hold recitation %q", reciterSlug, recitationSlug)
	}

	prefix := audioPrefix(reciterSlug, recitationSlug)
	objects, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, NewInternalError("list archive objects", err)
	}
	if len(objects) == 0 {
		return nil, NewNotFoundError("no objects stored under %s", prefix)
	}

	return &Archive{
		Name:    fmt.Sprintf("%s-%s.zip", reciterSlug, recitationSlug),
		prefix:  prefix,
		objects: objects,
		blobs:   s.blobs,
	}, nil
}

// ctxReader aborts an in-flight object read once the context is done,
// so an early sink close does not leave a stream copying forever.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

// WriteTo pipes every listed object through a zip encoder into sink.
// One object read is open at a time; backpressure flows from the sink
// through the encoder to the reads. Entry names are the object keys
// stripped of the prefix.
func (a *Archive) WriteTo(ctx context.Context, sink io.Writer) error {
	archiveStreamsTotal.Inc()
	zw := zip.NewWriter(sink)

	var total int64
	for _, obj := range a.objects {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}

		n, err := a.appendObject(ctx, zw, obj)
		total += n
		if err != nil {
			// The stream is already partially written; all we can do
			// is stop and let the sink see a truncated archive.
			zw.Close()
			return fmt.Errorf("append %s: %w", obj.Key, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	archiveBytesTotal.Add(float64(total))
	logger.Ctx(ctx).Info().
		Str("archive", a.Name).
		Int("objects", len(a.objects)).
		Str("size", humanize.Bytes(uint64(total))).
		Msg("archive streamed")
	return nil
}

// appendObject streams one object into the encoder and closes its read
// stream before returning.
func (a *Archive) appendObject(ctx context.Context, zw *zip.Writer, obj blob.ObjectInfo) (int64, error) {
	rc, err := a.blobs.Get(ctx, obj.Key)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	name := strings.TrimPrefix(obj.Key, a.prefix)
	w, err := zw.Create(name)
	if err != nil {
		return 0, err
	}
	return io.Copy(w, &ctxReader{ctx: ctx, r: rc})
}

// UploadArchive stores a pre-built consolidated archive for an existing
// assignment and records its URL for direct serving, bypassing
// on-the-fly streaming.
func (s *Service) UploadArchive(ctx context.Context, reciterSlug, recitationSlug string, r io.Reader) error {
	reciter, err := s.getReciter(ctx, reciterSlug)
	if err != nil {
		return err
	}
	recitation, err := s.getRecitation(ctx, recitationSlug)
	if err != nil {
		return err
	}
	assignment := reciter.Assignment(recitation.ID)
	if assignment == nil {
		return NewNotFoundError("reciter %q does not hold recitation %q", reciterSlug, recitationSlug)
	}

	res, err := s.blobs.Put(ctx, s.archiveKey(reciterSlug, recitationSlug), r, "application/zip")
	if err != nil {
		return NewStorageWriteError("save archive to object store", err)
	}

	assignment.ArchiveURL = res.DownloadURL
	if err := s.db.PutReciter(ctx, reciter); err != nil {
		return NewInternalError("record archive URL", err)
	}
	s.invalidate(ctx, reciter.Slug)
	return nil
}
