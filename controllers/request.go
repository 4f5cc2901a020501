package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"Attentus/config/authorization"
	"Attentus/models"
	"Attentus/services"
	"Attentus/util"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func bindError(err error) error {
	return util.NewError(util.KindValidation, err.Error(), err)
}

// currentDoctor fails the request when the auth middleware did not bind a doctor.
func currentDoctor(c *gin.Context) (*models.Doctor, bool) {
	doctor, err := authorization.CurrentDoctor(c)
	if err != nil {
		util.Fail(c, err)
		return nil, false
	}
	return doctor, true
}

/*
* Read an optional multipart file
* A missing field is not an error, the caller decides
* The returned closer must run once the upload has been consumed
 */
func formUpload(c *gin.Context, field string) (*services.Upload, func(), error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, func() {}, util.Validation(util.FILE_TOO_LARGE)
		}
		return nil, func() {}, bindError(err)
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*services.Upload, func(), error) {
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	closer := func() {
		if err := file.Close(); err != nil {
			log.Warn().Err(err).Str("filename", header.Filename).Msg("Error while closing upload")
		}
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &services.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}, closer, nil
}

// limitBody caps the request size so oversized uploads are refused while reading.
func limitBody(c *gin.Context, limit int64) {
	if limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
}
