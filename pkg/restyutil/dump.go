// Package restyutil dumps the http exchanges of a resty client, which is
// mostly useful when a site changes the shape of its session flow.
package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"cccbdb-harvester/pkg/fsutil"

	"github.com/go-resty/resty/v2"
)

type Output interface {
	Write(name string, contents string)
}

type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(name string, contents string) {
	path := filepath.Join(o.directory, name)
	err := fsutil.WriteFile(path, []byte(contents), 0o600)
	if err != nil {
		slog.Warn("failed to write http exchange", "path", path, "err", err)
	}
}

// Dump writes every completed exchange of client to output, named
// <prefix>-<n>.txt where n counts the exchanges of this client from 1.
func Dump(client *resty.Client, output Output, prefix string) {
	if output == nil {
		return
	}
	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		n := atomic.AddUint64(&counter, 1)
		output.Write(fmt.Sprintf("%s-%d.txt", prefix, n), FormatExchange(res))
		return nil
	})
}
