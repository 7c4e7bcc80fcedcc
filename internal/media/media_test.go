package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/session"
)

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 24)...)

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want Type
	}{
		{name: "jpeg", data: []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, want: TypeJPEG},
		{name: "png", data: pngBytes, want: TypePNG},
		{name: "gif", data: []byte("GIF89a......"), want: TypeGIF},
		{name: "webp", data: []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), want: TypeWEBP},
		{name: "avif", data: []byte("\x00\x00\x00\x1cftypavif\x00\x00\x00\x00"), want: TypeAVIF},
		{name: "svg", data: []byte("  <svg xmlns=\"http://www.w3.org/2000/svg\"></svg>"), want: TypeSVG},
		{name: "svg with prolog", data: []byte("<?xml version=\"1.0\"?>\n<svg></svg>"), want: TypeSVG},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Detect(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Type)
		})
	}

	_, err := Detect([]byte("%PDF-1.7"))
	assert.ErrorIs(t, err, ErrUnknownType)
	_, err = Detect(nil)
	assert.ErrorIs(t, err, ErrUnknownType)
	_, err = Detect([]byte("<?xml version=\"1.0\"?><feed></feed>"))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestSanitizeSVG(t *testing.T) {
	in := []byte(`<svg onload="alert(1)"><script>alert(2)</script><a href="javascript:alert(3)"><rect onclick='x()' width="1"/></a></svg>`)
	out, err := SanitizeSVG(in)
	require.NoError(t, err)
	assert.Equal(t, `<svg><a><rect width="1"/></a></svg>`, string(out))

	out, err = SanitizeSVG([]byte(`<svg><script src="x.js"/><foreignObject><div onmouseover="y()">hi</div></foreignObject><circle r="2"/></svg>`))
	require.NoError(t, err)
	assert.Equal(t, `<svg><circle r="2"/></svg>`, string(out))

	_, err = SanitizeSVG([]byte("<html></html>"))
	assert.ErrorIs(t, err, ErrNotSVG)
}

func TestCheck(t *testing.T) {
	f, err := Check("cover.png", pngBytes, "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.Detected.MIME)

	_, err = Check("cover.png", []byte{0xff, 0xd8, 0xff, 0xe0}, "")
	assert.ErrorIs(t, err, ErrMIMEMismatch)

	_, err = Check("cover.bin", pngBytes, "image/gif")
	assert.ErrorIs(t, err, ErrMIMEMismatch)

	f, err = Check("logo", []byte(`<svg><script>x</script></svg>`), "image/svg+xml; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "<svg></svg>", string(f.Data))
}

func TestLoadRejectsLargeFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	require.NoError(t, os.WriteFile(path, append(pngBytes, make([]byte, 100)...), 0o600))

	_, err := Load(path, "", 64)
	assert.ErrorIs(t, err, ErrTooLarge)

	f, err := Load(path, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "big.png", f.Name)
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/blog/media/", r.URL.Path)
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "Cover", r.FormValue("title"))
		assert.Empty(t, r.FormValue("alt_text"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, pngBytes, data)
		assert.Equal(t, "cover.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":31,"title":"Cover","url":"https://cdn.atom.test/cover.png","mime":"image/png"}`))
	}))
	defer srv.Close()

	mgr := session.NewManager(session.NewMemoryStore())
	require.NoError(t, mgr.SaveTokens(context.Background(), "access", "refresh"))
	up := NewUploader(apiclient.New(srv.URL, mgr), zerolog.Nop())

	file, err := Check("cover.png", pngBytes, "")
	require.NoError(t, err)
	m, err := up.Upload(context.Background(), file, " Cover ", "")
	require.NoError(t, err)
	assert.Equal(t, 31, m.ID)
	assert.Equal(t, "https://cdn.atom.test/cover.png", m.Link())
}
