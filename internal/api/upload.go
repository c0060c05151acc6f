package api

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	hwaerrors "github.com/brilliance/hwachat/internal/errors"
	"github.com/brilliance/hwachat/internal/models"
)

// Attachment size limits. Enforced client-side before any bytes leave
// the machine.
const (
	MaxImageSize    = 5 * 1024 * 1024  // 5 MiB
	MaxDocumentSize = 10 * 1024 * 1024 // 10 MiB
)

// allowedTypes maps each attachment kind to the MIME types the service
// accepts for it.
var allowedTypes = map[models.AttachmentKind][]string{
	models.KindImage:    {"image/jpeg", "image/png"},
	models.KindDocument: {"application/pdf"},
}

// RemoteFile is a successfully uploaded attachment.
type RemoteFile struct {
	URL  string
	Kind models.AttachmentKind
}

// ValidateAttachment checks a candidate upload against the type and
// size policy for its kind. It returns a ValidationError naming the
// violated rule, or nil. Type is checked before size so the user fixes
// the more fundamental problem first.
func ValidateAttachment(kind models.AttachmentKind, mimeType string, size int64) error {
	if !kind.Valid() {
		return hwaerrors.NewValidationError("type", fmt.Sprintf("unknown attachment kind %q", kind))
	}

	ok := false
	for _, allowed := range allowedTypes[kind] {
		if mimeType == allowed {
			ok = true
			break
		}
	}
	if !ok {
		if kind == models.KindImage {
			return hwaerrors.NewValidationError("type", "only JPEG and PNG images are supported")
		}
		return hwaerrors.NewValidationError("type", "only PDF documents are supported")
	}

	limit := int64(MaxImageSize)
	if kind == models.KindDocument {
		limit = MaxDocumentSize
	}
	if size > limit {
		return hwaerrors.NewValidationError("size",
			fmt.Sprintf("file is %d bytes, limit for %s uploads is %d", size, kind, limit))
	}

	return nil
}

// uploadPath returns the endpoint path for the kind.
func uploadPath(kind models.AttachmentKind) string {
	if kind == models.KindDocument {
		return models.PathUploadDocument
	}
	return models.PathUploadImage
}

// Uploader sends attachments to the upload endpoints.
type Uploader struct {
	client *Client
}

// NewUploader creates a new uploader
func NewUploader(client *Client) *Uploader {
	return &Uploader{client: client}
}

// UploadFile validates and uploads a file from disk. The MIME type is
// derived from the extension.
func (u *Uploader) UploadFile(filePath string, kind models.AttachmentKind) (*RemoteFile, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(filePath))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	if err := ValidateAttachment(kind, mimeType, fileInfo.Size()); err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return u.uploadStream(file, filepath.Base(filePath), mimeType, kind)
}

// UploadFromReader validates and uploads in-memory content.
func (u *Uploader) UploadFromReader(reader io.Reader, fileName, mimeType string, kind models.AttachmentKind) (*RemoteFile, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	if err := ValidateAttachment(kind, mimeType, int64(len(data))); err != nil {
		return nil, err
	}

	return u.uploadStream(bytes.NewReader(data), fileName, mimeType, kind)
}

// uploadStream performs the multipart POST. Validation has already
// passed by the time this runs.
func (u *Uploader) uploadStream(reader io.Reader, fileName, mimeType string, kind models.AttachmentKind) (*RemoteFile, error) {
	endpoint := uploadPath(kind)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := createFilePart(writer, fileName, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, reader); err != nil {
		return nil, fmt.Errorf("failed to write file data: %w", err)
	}
	_ = writer.Close()

	resp, err := u.client.do(fhttp.MethodPost, endpoint, nil, writer.FormDataContentType(), &body)
	if err != nil {
		return nil, hwaerrors.NewUploadError(0, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, hwaerrors.NewUploadError(resp.StatusCode, endpoint, err)
	}

	if !twoXX(resp.StatusCode) {
		return nil, hwaerrors.NewUploadError(resp.StatusCode, endpoint, nil)
	}

	fileURL := gjson.GetBytes(respBody, "url").String()
	if fileURL == "" {
		// Some deployments wrap the payload.
		fileURL = gjson.GetBytes(respBody, "data.url").String()
	}
	if fileURL == "" {
		return nil, fmt.Errorf("%w: upload response carries no url", hwaerrors.ErrInvalidResponse)
	}

	return &RemoteFile{URL: fileURL, Kind: kind}, nil
}

// createFilePart adds the "file" form field with an explicit MIME type.
// multipart.Writer.CreateFormFile hardcodes application/octet-stream,
// which the service rejects.
func createFilePart(writer *multipart.Writer, fileName, mimeType string) (io.Writer, error) {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	header.Set("Content-Type", mimeType)
	return writer.CreatePart(header)
}
