package echoapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/access"
	"github.com/trezcool/classboard/core/work"
)

const filesField = "files"

type (
	AccessRequest struct {
		Key          string      `json:"key"`
		RequiredRole access.Role `json:"required_role" validate:"omitempty,oneof=student teacher"`
	}

	AccessResponse struct {
		Role     access.Role `json:"role"`
		Token    string      `json:"token"`
		Redirect string      `json:"redirect"`
	}

	// MutationResponse tells the caller what was saved and whether it reached the shared store.
	MutationResponse struct {
		Item interface{} `json:"item,omitempty"`
		core.SyncStatus
		Message string `json:"message"`
	}

	CompletionRequest struct {
		Completed bool `json:"completed"`
	}

	ViewerResponse struct {
		Frame  interface{} `json:"frame"`
		Closed bool        `json:"closed"`
	}
)

func newMutationResponse(item interface{}, status core.SyncStatus, done string) MutationResponse {
	return MutationResponse{Item: item, SyncStatus: status, Message: syncMessage(status, done)}
}

// syncMessage is the user facing summary of a mutation, eg. "Uploaded and synced."
func syncMessage(status core.SyncStatus, done string) string {
	switch {
	case status.RemoteOK:
		return done + " and synced."
	case status == core.LocalOnly:
		return "Saved locally; remote sync not configured."
	default:
		return "Saved locally; remote sync failed."
	}
}

// bodyLimit formats megabytes for middleware.BodyLimit, leaving room for the multipart envelope.
func bodyLimit(mb int64) string {
	return fmt.Sprintf("%dM", mb+1)
}

// bindFilter reads the list filter from the query string.
func bindFilter(ctx echo.Context) work.Filter {
	var filter work.Filter
	// unknown values simply match nothing
	_ = (&echo.DefaultBinder{}).BindQueryParams(ctx, &filter)
	filter.Clean()
	return filter
}

func isMultipart(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// bindNewItem reads a NewItem from a multipart form with its `files`, or from a JSON body without attachments.
func bindNewItem(ctx echo.Context, maxUploadMB int64) (work.NewItem, error) {
	var data work.NewItem
	if !isMultipart(ctx) {
		if err := ctx.Bind(&data); err != nil {
			return data, errors.Wrap(err, "binding to NewItem")
		}
		return data, nil
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return data, echo.NewHTTPError(http.StatusBadRequest, "malformed multipart form").SetInternal(err)
	}
	data.Subject = work.Subject(formValue(form, "subject"))
	data.Type = work.Type(formValue(form, "type"))
	data.Date = formValue(form, "date")
	data.Description = formValue(form, "description")

	for _, fh := range form.File[filesField] {
		if maxUploadMB > 0 && fh.Size > maxUploadMB<<20 {
			return data, core.NewFieldError(filesField, fmt.Sprintf("%s is larger than %dMB", fh.Filename, maxUploadMB))
		}
		u, err := readUpload(fh)
		if err != nil {
			return data, errors.Wrapf(err, "reading %s", fh.Filename)
		}
		data.Uploads = append(data.Uploads, u)
	}
	return data, nil
}

func formValue(form *multipart.Form, key string) string {
	if vals := form.Value[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func readUpload(fh *multipart.FileHeader) (work.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return work.Upload{}, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return work.Upload{}, err
	}
	return work.Upload{
		Name:     fh.Filename,
		MimeType: work.DetectMimeType(fh.Header.Get(echo.HeaderContentType), data),
		Data:     data,
	}, nil
}
