package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"

	"github.com/donmikel/partstore/applications/server"
	"github.com/donmikel/partstore/applications/server/domain"
	"github.com/donmikel/partstore/applications/server/multipart"
)

const fileField = "file"

var errNoFilename = errors.New("file part has no usable filename")

type storedFile struct {
	Name          string `json:"name"`
	Field         string `json:"field"`
	ContentType   string `json:"content_type,omitempty"`
	ContentLength int64  `json:"content_length"`
	Chunks        int    `json:"chunks"`
}

type uploadsResponse struct {
	Files  []storedFile        `json:"files"`
	Fields map[string][]string `json:"fields"`
}

func NewRouter(svc server.UploadService, forms FormOptions, logger log.Logger) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/file", PutFileHandler(svc, forms, logger)).Methods(http.MethodPut)
	r.HandleFunc("/uploads", PostUploadsHandler(svc, forms, logger)).Methods(http.MethodPost)
	r.HandleFunc("/file/{filename}", GetFileHandler(svc, logger)).Methods(http.MethodGet)
	r.HandleFunc("/file/{filename}", DeleteFileHandler(svc, logger)).Methods(http.MethodDelete)
	return r
}

// PutFileHandler stores the single part named "file".
func PutFileHandler(svc server.UploadService, forms FormOptions, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeForm(w, r, forms)
		if err != nil {
			level.Error(logger).Log("msg", "decodeForm error",
				"err", err,
			)
			writeErr(w, logger, err)
			return
		}
		defer body.Close()

		part, err := body.Single(fileField)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		defer part.Close()

		stored, err := storePart(r, svc, part)
		if err != nil {
			level.Error(logger).Log("msg", "Store error",
				"err", err,
			)
			writeErr(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusCreated, stored)
	}
}

// PostUploadsHandler stores every part carrying a filename and echoes the
// remaining parts back as form fields.
func PostUploadsHandler(svc server.UploadService, forms FormOptions, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeForm(w, r, forms)
		if err != nil {
			level.Error(logger).Log("msg", "decodeForm error",
				"err", err,
			)
			writeErr(w, logger, err)
			return
		}
		defer body.Close()

		resp := uploadsResponse{
			Files:  []storedFile{},
			Fields: map[string][]string{},
		}
		for part := range body.Parts() {
			if _, ok := part.Filename(); !ok {
				value, err := io.ReadAll(part)
				if err != nil {
					writeErr(w, logger, fmt.Errorf("can't read field %s: %w", part.Name(), err))
					return
				}
				resp.Fields[part.Name()] = append(resp.Fields[part.Name()], string(value))
				continue
			}

			stored, err := storePart(r, svc, part)
			if err != nil {
				level.Error(logger).Log("msg", "Store error",
					"field", part.Name(),
					"err", err,
				)
				writeErr(w, logger, err)
				return
			}
			resp.Files = append(resp.Files, stored)
		}

		writeJSON(w, logger, http.StatusCreated, resp)
	}
}

func storePart(r *http.Request, svc server.UploadService, part *multipart.Part) (storedFile, error) {
	filename, _ := part.Filename()
	name := uploadName(filename)
	if name == "" {
		return storedFile{}, fmt.Errorf("%w: part %s", errNoFilename, part.Name())
	}

	meta, err := svc.Store(r.Context(), domain.Upload{
		Meta: domain.UploadMeta{
			Name:          name,
			Field:         part.Name(),
			ContentType:   part.ContentType(),
			ContentLength: part.Size(),
		},
		Body: part,
	})
	if err != nil {
		return storedFile{}, err
	}

	return storedFile{
		Name:          meta.Name,
		Field:         meta.Field,
		ContentType:   meta.ContentType,
		ContentLength: meta.ContentLength,
		Chunks:        len(meta.Chunks),
	}, nil
}

// uploadName reduces a client supplied filename to its last path element.
func uploadName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}

func GetFileHandler(svc server.UploadService, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := mux.Vars(r)["filename"]
		if filename == "" {
			writeErr(w, logger, errNoFilename)
			return
		}

		file, err := svc.Open(r.Context(), filename)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		defer file.Body.Close()

		if file.Meta.ContentType != "" {
			w.Header().Set("Content-Type", file.Meta.ContentType)
		}
		w.Header().Set("Content-Length", strconv.FormatInt(file.Meta.ContentLength, 10))

		if _, err = io.Copy(w, file.Body); err != nil {
			level.Error(logger).Log("msg", "error body copy", "err", err)
			return
		}
	}
}

func DeleteFileHandler(svc server.UploadService, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := mux.Vars(r)["filename"]

		if err := svc.Delete(r.Context(), filename); err != nil {
			writeErr(w, logger, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, logger log.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		level.Error(logger).Log("msg", "can't write response", "err", err)
	}
}

func writeErr(w http.ResponseWriter, logger log.Logger, err error) {
	w.WriteHeader(statusFor(err))
	if _, werr := w.Write([]byte(err.Error())); werr != nil {
		level.Error(logger).Log("msg", "can't write response", "err", werr)
	}
}
