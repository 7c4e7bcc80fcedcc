package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
)

const DefaultMaxBytes = 10 << 20

var (
	ErrTooLarge     = errors.New("file too large")
	ErrMIMEMismatch = errors.New("declared type does not match file content")
)

// File is a local file checked and ready to upload.
type File struct {
	Name     string
	Detected Detected
	Data     []byte
}

// Load reads path and checks it before anything is sent: the content must
// be a known image type, and match declared (or the type implied by the
// extension when declared is empty). SVG content is sanitised.
func Load(path string, declared string, maxBytes int64) (File, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > maxBytes {
		return File{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, filepath.Base(path), maxBytes)
	}
	return Check(filepath.Base(path), data, declared)
}

func Check(name string, data []byte, declared string) (File, error) {
	detected, err := Detect(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", name, err)
	}

	if declared == "" {
		declared = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	}
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			declared = mt
		}
		if declared != detected.MIME {
			return File{}, fmt.Errorf("%w: %s is %s, not %s", ErrMIMEMismatch, name, detected.MIME, declared)
		}
	}

	if detected.Type == TypeSVG {
		data, err = SanitizeSVG(data)
		if err != nil {
			return File{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	return File{Name: name, Detected: detected, Data: data}, nil
}

type Uploader struct {
	client *apiclient.Client
	log    zerolog.Logger
}

func NewUploader(client *apiclient.Client, log zerolog.Logger) *Uploader {
	return &Uploader{client: client, log: log.With().Str("component", "media").Logger()}
}

// Upload posts the file as multipart form data under "file", with the
// optional title and alt text.
func (u *Uploader) Upload(ctx context.Context, file File, title string, altText string) (blog.Media, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range map[string]string{"title": strings.TrimSpace(title), "alt_text": strings.TrimSpace(altText)} {
		if value == "" {
			continue
		}
		if err := w.WriteField(name, value); err != nil {
			return blog.Media{}, fmt.Errorf("write %s: %w", name, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	header.Set("Content-Type", file.Detected.MIME)
	part, err := w.CreatePart(header)
	if err != nil {
		return blog.Media{}, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return blog.Media{}, fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return blog.Media{}, fmt.Errorf("close multipart: %w", err)
	}

	var fields map[string]any
	err = u.client.DoJSON(ctx, apiclient.Request{
		Method:      http.MethodPost,
		Path:        blog.MediaResource.Path,
		RawBody:     buf.Bytes(),
		ContentType: w.FormDataContentType(),
	}, &fields)
	if err != nil {
		return blog.Media{}, err
	}

	u.log.Info().Str("file", file.Name).Str("mime", file.Detected.MIME).Int("bytes", len(file.Data)).Msg("media uploaded")
	if fields == nil {
		return blog.Media{}, nil
	}
	return blog.Decode[blog.Media](fields)
}
