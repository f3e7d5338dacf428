package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	dErrors "agencyops/pkg/domain-errors"
)

// MaxFormBytes bounds a submitted form, files included.
const MaxFormBytes = 10 << 20

// maxFormMemory is how much of a multipart body is held in memory before
// parts spill to temporary files.
const maxFormMemory = 8 << 20

var errBodyTooLarge = errors.New("body exceeds form size limit")

// boundedReader fails with errBodyTooLarge once more than remaining bytes
// have been read, instead of truncating silently.
type boundedReader struct {
	r         io.Reader
	remaining int64
}

func (b *boundedReader) Read(p []byte) (int, error) {
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.r.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, errBodyTooLarge
	}
	return n, err
}

// readError maps body read failures, including an exceeded size limit, to a
// bad request.
func readError(err error, msg string) error {
	var maxErr *http.MaxBytesError
	if errors.Is(err, errBodyTooLarge) || errors.As(err, &maxErr) {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "body too large")
	}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, msg)
}

// DecodeForm parses a multipart, urlencoded or flat JSON body into field
// values. Repeated fields keep their first value. Uploaded files are recorded
// by name only; their content is not forwarded.
func DecodeForm(body io.Reader, contentType string) (map[string]string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unsupported content type")
	}
	body = &boundedReader{r: body, remaining: MaxFormBytes}

	switch mediaType {
	case "multipart/form-data":
		return decodeMultipart(body, params["boundary"])
	case "application/x-www-form-urlencoded":
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, readError(err, "failed to read form")
		}
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed form body")
		}
		return flatten(values), nil
	case "application/json":
		return decodeJSON(body)
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "unsupported content type "+mediaType)
	}
}

func decodeMultipart(body io.Reader, boundary string) (map[string]string, error) {
	if boundary == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "multipart boundary missing")
	}
	form, err := multipart.NewReader(body, boundary).ReadForm(maxFormMemory)
	if err != nil {
		return nil, readError(err, "malformed multipart body")
	}
	defer func() { _ = form.RemoveAll() }()

	out := flatten(form.Value)
	for field, files := range form.File {
		if _, taken := out[field]; taken || len(files) == 0 {
			continue
		}
		out[field] = files[0].Filename
	}
	return out, nil
}

func decodeJSON(body io.Reader) (map[string]string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, readError(err, "failed to read body")
	}
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case json.Number, bool:
			out[k] = fmt.Sprint(val)
		default:
			return nil, dErrors.New(dErrors.CodeBadRequest, "field "+k+" must be a scalar")
		}
	}
	return out, nil
}

func flatten(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		k = strings.TrimSpace(k)
		if k == "" || len(v) == 0 {
			continue
		}
		out[k] = strings.TrimSpace(v[0])
	}
	return out
}

// Require fails with a validation error naming every missing or blank field.
func Require(fields map[string]string, names ...string) error {
	var missing []string
	for _, n := range names {
		if strings.TrimSpace(fields[n]) == "" {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeValidation, strings.Join(missing, ", ")+" required")
	}
	return nil
}
