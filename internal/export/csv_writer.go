package export

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FilePrefix starts every exported file name.
const FilePrefix = "cf7_submissions_"

// CSVWriter writes one CSV file per form into a fixed directory. Files are
// truncated in place; two forms with the same title share one file.
type CSVWriter struct {
	fs  afero.Fs
	dir string
}

func NewCSVWriter(fs afero.Fs, dir string) *CSVWriter {
	return &CSVWriter{fs: fs, dir: dir}
}

// Path returns where the file for a resolved form title lives.
func (w *CSVWriter) Path(title string) string {
	return filepath.Join(w.dir, FilePrefix+title+".csv")
}

// Write stores the table under the form's resolved title and returns the path.
func (w *CSVWriter) Write(formID int64, title string, table Table) (string, error) {
	path := w.Path(title)

	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return "", &FilesystemError{Path: w.dir, FormID: formID, Err: err}
	}

	f, err := w.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", &FilesystemError{Path: path, FormID: formID, Err: err}
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(table.Header); err != nil {
		f.Close()
		return "", &FilesystemError{Path: path, FormID: formID, Err: err}
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		f.Close()
		return "", &FilesystemError{Path: path, FormID: formID, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &FilesystemError{Path: path, FormID: formID, Err: err}
	}
	return path, nil
}
