package disk

import (
	"io/fs"
	"os"
)

// Reader keeps the ZIP file open for as long as the object is being read.
type Reader struct {
	cacheFile  *os.File
	blobReader fs.File
}

func (reader *Reader) Read(p []byte) (int, error) {
	return reader.blobReader.Read(p)
}

func (reader *Reader) Close() error {
	if err := reader.blobReader.Close(); err != nil {
		_ = reader.cacheFile.Close()

		return err
	}

	return reader.cacheFile.Close()
}
