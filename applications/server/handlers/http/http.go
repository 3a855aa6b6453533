package http

import (
	"net/http"

	"github.com/go-kit/log"

	"github.com/donmikel/partstore/applications/server"
	"github.com/donmikel/partstore/applications/server/config"
)

func NewHTTPServer(conf config.Server, uploadService server.UploadService, logger log.Logger) *http.Server {
	forms := FormOptions{
		Decoder:     conf.Multipart.DecoderConfig(logger),
		MaxBodySize: int64(conf.Multipart.MaxBodySize),
	}
	return &http.Server{
		Addr:    conf.API.HTTPAddr,
		Handler: NewRouter(uploadService, forms, logger),
	}
}
