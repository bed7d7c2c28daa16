package server

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
)

// errorPage is the fixed body for every failed slides request. Details go to the log only.
const errorPage = `
<html>
<body>
    <h1>Deck encountered an unexpected error</h1>
    <p>Check the server logs</p>
</body>
</html>
`

// respondError writes the generic error page with status 500.
func respondError(w http.ResponseWriter, logger *slog.Logger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if _, err := w.Write([]byte(errorPage)); err != nil {
		logger.Warn("write error page", slog.Any("err", err))
	}
}

// readOptional reads path when it is set. An empty path yields nil.
func readOptional(path string) (*string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // paths come from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	text := string(data)
	return &text, nil
}

// assetFS serves regular files only, so directories are never listed.
type assetFS struct {
	root http.FileSystem
}

func (a assetFS) Open(name string) (http.File, error) {
	f, err := a.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
