package v1

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/silkycoders1/claimcheck/internal/domain"
	"github.com/silkycoders1/claimcheck/internal/service"
)

var errUploadTooLarge = errors.New("upload exceeds the size limit")

// Analyze runs the single-shot analysis over uploaded images.
// POST /api/analyze (multipart: requestType, userInput, images)
func (h *Handler) Analyze(c echo.Context) error {
	req := service.AnalysisRequest{
		Intent:    domain.ParseIntent(c.FormValue("requestType")),
		UserInput: c.FormValue("userInput"),
	}

	form, err := c.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid multipart form"})
	}
	if form != nil {
		for _, fh := range form.File["images"] {
			upload, err := h.readUpload(fh)
			if errors.Is(err, errUploadTooLarge) {
				return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: fmt.Sprintf("%s: %v", fh.Filename, err)})
			}
			if err != nil {
				return c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("%s: unreadable upload", fh.Filename)})
			}
			req.Images = append(req.Images, upload)
		}
	}

	w := newChunkWriter(c.Response(), c.QueryParam("framing") == framingSSE)
	err = h.service.Analyze(c.Request().Context(), req, w.write)
	return h.finishStream(c, w, err)
}

func (h *Handler) readUpload(fh *multipart.FileHeader) (service.Upload, error) {
	limit := h.config.Attachments.MaxBytes
	if limit > 0 && fh.Size > limit {
		return service.Upload{}, errUploadTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return service.Upload{}, err
	}
	if limit > 0 && int64(len(data)) > limit {
		return service.Upload{}, errUploadTooLarge
	}
	return service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}
