package ingest

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/odyssey-erp/invoice-insights/internal/shared"
)

// CSVMediaType is the only accepted upload type.
const CSVMediaType = "text/csv"

// Upload is a file handed over by a transport.
type Upload struct {
	Filename  string
	MediaType string
	Body      io.Reader
	Reset     bool
}

// StagedUpload is an upload copied into the staging directory, ready to ingest.
type StagedUpload struct {
	Path      string `json:"path"`
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
	Reset     bool   `json:"reset"`
}

// CheckMediaType accepts text/csv with an optional charset parameter and
// returns the charset (empty for the default UTF-8).
func CheckMediaType(declared string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(declared)
	if err != nil || mediaType != CSVMediaType {
		return "", &shared.Error{
			Kind: shared.KindUnsupportedFileType,
			Op:   "ingest: media type",
			Key:  declared,
			Err:  fmt.Errorf("only %s uploads are accepted", CSVMediaType),
		}
	}
	charset := strings.ToLower(params["charset"])
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return "", nil
	}
	if _, err := htmlindex.Get(charset); err != nil {
		return "", &shared.Error{
			Kind: shared.KindUnsupportedFileType,
			Op:   "ingest: media type",
			Key:  declared,
			Err:  fmt.Errorf("unknown charset %q", charset),
		}
	}
	return charset, nil
}

// decodeReader converts r from charset to UTF-8, dropping a UTF-8 byte order mark.
func decodeReader(r io.Reader, charset string) (io.Reader, error) {
	if charset == "" {
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(r), nil
}

// stage copies body into dir under a fresh name.
func stage(dir string, body io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+".csv")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write staged file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close staged file: %w", err)
	}
	return path, nil
}
