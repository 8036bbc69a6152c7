package exporter

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	metadata "github.com/aarsakian/DiskTree/FS"
	"github.com/aarsakian/DiskTree/FS/NTFS/MFT"
	"github.com/aarsakian/DiskTree/disk"
	"github.com/aarsakian/DiskTree/disk/volume"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/aarsakian/DiskTree/utils"
	"github.com/pkg/errors"
)

const chunkSize = 1 << 20

type FileOpener interface {
	OpenFile(*MFT.Record) (*volume.AttributeStream, error)
}

type Exporter struct {
	Location string
	Hash     string // MD5 or SHA1, empty for none
	Strategy string // overwrite or Id
}

type ExportedFile struct {
	ID   int
	Name string
	Path string
	Size int64
	Hash string
}

func (exp Exporter) newHash() (hash.Hash, error) {
	switch exp.Hash {
	case "":
		return nil, nil
	case "MD5", "md5":
		return md5.New(), nil
	case "SHA1", "sha1":
		return sha1.New(), nil
	}
	return nil, errors.Errorf("only supported hashes are MD5 or SHA1 and not %s", exp.Hash)
}

func (exp Exporter) GetName(record metadata.Record) string {
	if exp.Strategy == "Id" {
		return fmt.Sprintf("[%d]%s", record.GetID(), record.GetFname())
	}
	return record.GetFname()
}

// ExportRecords copies the content of every file record to Location, folders are skipped.
func (exp Exporter) ExportRecords(opener FileOpener, records []metadata.Record) ([]ExportedFile, error) {
	if exp.Location == "" {
		return nil, errors.New("no export location was set")
	}
	err := os.MkdirAll(exp.Location, 0750)
	if err != nil {
		return nil, err
	}

	var exported []ExportedFile
	for _, record := range records {
		if record.IsFolder() {
			msg := fmt.Sprintf("Record %s Id %d is folder! No data to export.", record.GetFname(), record.GetID())
			logger.FSLogger.Warning(msg)
			continue
		}
		ntfsRecord, ok := record.(metadata.NTFSRecord)
		if !ok {
			return exported, errors.Errorf("record %d is not an NTFS record", record.GetID())
		}
		exportedFile, err := exp.ExportRecord(opener, ntfsRecord.Record, exp.GetName(record))
		if err != nil {
			return exported, errors.Wrapf(err, "exporting %s", record.GetFname())
		}
		exported = append(exported, exportedFile)
	}
	return exported, nil
}

// ExportRecord streams the unnamed DATA attribute of record into Location/fname.
func (exp Exporter) ExportRecord(opener FileOpener, record *MFT.Record, fname string) (ExportedFile, error) {
	exportedFile := ExportedFile{ID: record.Index, Name: fname, Path: filepath.Join(exp.Location, fname)}
	hasher, err := exp.newHash()
	if err != nil {
		return exportedFile, err
	}
	stream, err := opener.OpenFile(record)
	if err != nil {
		return exportedFile, err
	}

	file, err := os.Create(exportedFile.Path)
	if err != nil {
		return exportedFile, err
	}
	defer file.Close()

	var w io.Writer = file
	if hasher != nil {
		w = io.MultiWriter(file, hasher)
	}
	size := stream.GetDiskSize()
	for offset := int64(0); offset < size; offset += chunkSize {
		data, err := stream.ReadAbsolute(offset, int(min(chunkSize, size-offset)))
		if err != nil {
			return exportedFile, err
		}
		_, err = w.Write(data)
		if err != nil {
			return exportedFile, err
		}
	}
	exportedFile.Size = size
	if hasher != nil {
		exportedFile.Hash = hex.EncodeToString(hasher.Sum(nil))
		logger.FSLogger.Info(fmt.Sprintf("File %s has %s %s", fname, exp.Hash, exportedFile.Hash))
	}
	return exportedFile, nil
}

// ExportUnallocated writes the unallocated clusters of a partition one after the other to Location/Unallocated.
func (exp Exporter) ExportUnallocated(physicalDisk disk.Disk, partitionNum int) error {
	fullpath := filepath.Join(exp.Location, "Unallocated")
	err := utils.WriteFile(fullpath, nil)
	if err != nil {
		return err
	}
	blocks := make(chan []byte) // write for consecutive blocks
	errc := make(chan error, 1)
	go func() {
		errc <- physicalDisk.CollectUnallocated(partitionNum, blocks)
	}()

	var writeErr error
	for block := range blocks {
		if writeErr != nil {
			continue
		}
		writeErr = utils.AppendFile(fullpath, block)
	}
	if err := <-errc; err != nil {
		return err
	}
	return writeErr
}
