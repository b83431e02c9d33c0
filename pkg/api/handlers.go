// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tartil-io/tartil/pkg/catalog"
)

func (s *Server) handleListReciters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))

	res, err := s.svc.ListReciters(r.Context(), catalog.ListRecitersInput{
		Page:       page,
		PageSize:   size,
		Sort:       q.Get("sort"),
		Search:     q.Get("search"),
		Recitation: q.Get("recitation"),
		TopReciter: q.Get("topReciter"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// formPhoto extracts the optional photo part from a multipart form. The
// returned closer is nil when no photo was sent.
func formPhoto(r *http.Request) (*catalog.PhotoUpload, multipart.File, error) {
	file, header, err := r.FormFile("photo")
	if err == http.ErrMissingFile {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return &catalog.PhotoUpload{
		Reader:      file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, file, nil
}

func (s *Server) handleCreateReciter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "expected multipart form"})
		return
	}

	in := catalog.CreateReciterInput{
		ArabicName:  r.FormValue("arabicName"),
		EnglishName: r.FormValue("englishName"),
	}
	if raw := r.FormValue("number"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "number must be an integer"})
			return
		}
		in.Number = n
	}

	photo, file, err := formPhoto(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad photo part"})
		return
	}
	if file != nil {
		defer file.Close()
	}
	in.Photo = photo

	reciter, err := s.svc.CreateReciter(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reciter)
}

func (s *Server) handleUpdateReciter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "expected multipart form"})
		return
	}

	var in catalog.UpdateReciterInput
	if r.Form.Has("arabicName") {
		v := r.FormValue("arabicName")
		in.ArabicName = &v
	}
	if r.Form.Has("englishName") {
		v := r.FormValue("englishName")
		in.EnglishName = &v
	}
	if raw := r.FormValue("number"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "number must be an integer"})
			return
		}
		in.Number = &n
	}
	if raw := r.FormValue("isTopReciter"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "isTopReciter must be a boolean"})
			return
		}
		in.IsTopReciter = &v
	}

	photo, file, err := formPhoto(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad photo part"})
		return
	}
	if file != nil {
		defer file.Close()
	}
	in.Photo = photo

	reciter, err := s.svc.UpdateReciter(r.Context(), chi.URLParam(r, "reciterSlug"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reciter)
}

func (s *Server) handleReciterDetails(w http.ResponseWriter, r *http.Request) {
	increase, _ := strconv.ParseBool(r.URL.Query().Get("increaseViews"))
	details, err := s.svc.GetReciterDetails(r.Context(), chi.URLParam(r, "reciterSlug"), catalog.DetailsOptions{
		IncreaseViews: increase,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleReciterInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.GetReciterInfo(r.Context(), chi.URLParam(r, "reciterSlug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteReciter(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.DeleteReciter(r.Context(), chi.URLParam(r, "reciterSlug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "expected multipart form"})
		return
	}

	var files []catalog.AudioUpload
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("open part %q", header.Filename)})
				return
			}
			defer f.Close()
			files = append(files, catalog.AudioUpload{
				Reader:      f,
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
			})
		}
	}

	report, err := s.svc.UploadAudioBatch(r.Context(),
		chi.URLParam(r, "reciterSlug"), chi.URLParam(r, "recitationSlug"), files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStreamArchive(w http.ResponseWriter, r *http.Request) {
	archive, err := s.svc.OpenArchive(r.Context(),
		chi.URLParam(r, "reciterSlug"), chi.URLParam(r, "recitationSlug"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Name))
	// Headers are committed; a mid-stream failure can only truncate.
	_ = archive.WriteTo(r.Context(), w)
}

func (s *Server) handleUploadArchive(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	err := s.svc.UploadArchive(r.Context(),
		chi.URLParam(r, "reciterSlug"), chi.URLParam(r, "recitationSlug"), r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteRecitation(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.DeleteRecitation(r.Context(),
		chi.URLParam(r, "reciterSlug"), chi.URLParam(r, "recitationSlug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteChapter(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "chapterNumber"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "chapter number must be an integer"})
		return
	}

	res, err := s.svc.DeleteChapter(r.Context(),
		chi.URLParam(r, "reciterSlug"), chi.URLParam(r, "recitationSlug"), number)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListRecitations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.ListRecitations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := s.svc.ListChapters(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chapters)
}

func (s *Server) handleMissingArchives(w http.ResponseWriter, r *http.Request) {
	reciters, err := s.svc.IncompleteArchives(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reciters)
}

func (s *Server) handleMissingArchivesForReciter(w http.ResponseWriter, r *http.Request) {
	missing, err := s.svc.MissingArchivesForReciter(r.Context(), chi.URLParam(r, "reciterSlug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, missing)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report := s.rec.RunOnce(r.Context())
	if report == nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "reconciliation already in progress"})
		return
	}
	if report.Error != nil {
		writeJSON(w, http.StatusInternalServerError, report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReconcileReport(w http.ResponseWriter, r *http.Request) {
	report := s.rec.GetLastReport()
	if report == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no reconciliation has run yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}
