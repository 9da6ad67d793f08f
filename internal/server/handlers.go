package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"html/template"
	"image"
	"image/png"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/facekit/internal/inference"
	"github.com/andresmejia3/facekit/internal/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/nfnt/resize"
)

var ErrUnsupportedType = errors.New("only JPG, JPEG and PNG images are accepted")

var errUploadTooLarge = errors.New("upload too large")

// multipartOverhead is the slack allowed on top of MaxUploadBytes for
// boundaries, part headers and the form field name.
const multipartOverhead = 64 << 10

var allowedExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// page is the template state. With no Label and no Error the page is
// awaiting an upload; otherwise it shows the outcome of the last one.
type page struct {
	Preview      template.URL
	PreviewWidth uint
	Label        string
	Error        string
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", page{PreviewWidth: s.opts.PreviewWidth})
}

func (s *Server) predict(c *gin.Context) {
	id := c.GetString("requestID")

	limit := s.opts.MaxUploadBytes + multipartOverhead
	if c.Request.ContentLength > limit {
		s.fail(c, http.StatusRequestEntityTooLarge, errUploadTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge, errUploadTooLarge)
			return
		}
		s.fail(c, http.StatusBadRequest, errors.New("no file uploaded"))
		return
	}

	// Reject by name first, then by content; neither needs a decode.
	if !allowedExtensions[strings.ToLower(filepath.Ext(fh.Filename))] {
		s.fail(c, http.StatusUnsupportedMediaType, ErrUnsupportedType)
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.opts.MaxUploadBytes+1))
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		s.fail(c, http.StatusRequestEntityTooLarge, errUploadTooLarge)
		return
	}

	mt := mimetype.Detect(data)
	if !mt.Is("image/jpeg") && !mt.Is("image/png") {
		s.fail(c, http.StatusUnsupportedMediaType, ErrUnsupportedType)
		return
	}

	rgb, err := inference.DecodeImage(bytes.NewReader(data))
	if err != nil {
		s.fail(c, http.StatusBadRequest, errors.New("could not decode image"))
		return
	}

	pred, err := s.classifier.Predict(rgb)
	if err != nil {
		log.Printf("[PREDICT] %s failed: %v", id, err)
		s.fail(c, http.StatusInternalServerError, errors.New("prediction failed"))
		return
	}
	log.Printf("[PREDICT] %s %s -> %s (index %d)", id, fh.Filename, pred.Label, pred.Index)

	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(http.StatusOK, pred)
		return
	}

	preview, err := s.preview(rgb)
	if err != nil {
		log.Printf("[PREDICT] %s preview failed: %v", id, err)
	}
	c.HTML(http.StatusOK, "index.tmpl", page{
		Preview:      preview,
		PreviewWidth: s.opts.PreviewWidth,
		Label:        pred.Label,
	})
}

// preview renders img at the configured display width as a PNG data URI.
func (s *Server) preview(img image.Image) (template.URL, error) {
	thumb := resize.Resize(s.opts.PreviewWidth, 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return "", err
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(status, types.ErrorResult{Error: err.Error()})
		return
	}
	c.HTML(status, "index.tmpl", page{PreviewWidth: s.opts.PreviewWidth, Error: err.Error()})
}
