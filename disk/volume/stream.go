package volume

import (
	"fmt"

	"github.com/aarsakian/DiskTree/FS/NTFS/MFT"
	MFTAttributes "github.com/aarsakian/DiskTree/FS/NTFS/MFT/attributes"
	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/pkg/errors"
)

// AttributeStream exposes the content of one attribute of an MFT entry as a ByteSource.
// Non-resident content is assembled from the data runs, sparse runs and the part past
// the valid data size read as zeros.
type AttributeStream struct {
	ntfs      *NTFS
	Entry     int
	Header    MFTAttributes.AttributeHeader
	resident  []byte
	runs      []MFTAttributes.Run
	size      int64
	validSize int64
}

// OpenAttribute binds the attribute of attrType named name of the record to a stream.
func (ntfs *NTFS) OpenAttribute(record *MFT.Record, attrType uint32, name string) (*AttributeStream, error) {
	attr := record.FindNamedAttribute(attrType, name)
	if attr == nil {
		return nil, errs.NewIntegrityError("record %d has no %s attribute named %q",
			record.Index, MFTAttributes.AttributeHeader{Type: attrType}.GetType(), name)
	}
	header := attr.GetHeader()
	if header.IsCompressed() {
		return nil, errs.NewUnsupported("compressed attribute %s of record %d", header.GetType(), record.Index)
	}
	if header.IsEncrypted() {
		return nil, errs.NewUnsupported("encrypted attribute %s of record %d", header.GetType(), record.Index)
	}

	stream := &AttributeStream{ntfs: ntfs, Entry: record.Index, Header: header}
	if !header.IsNoNResident() {
		stream.resident = header.ATRrecordResident.Content
		stream.size = int64(len(stream.resident))
		stream.validSize = stream.size
		return stream, nil
	}

	nonResident := header.ATRrecordNoNResident
	if nonResident.StartVcn != 0 {
		return nil, errs.NewUnsupported("attribute %s of record %d continues in another entry",
			header.GetType(), record.Index)
	}
	clusterSize := uint64(ntfs.GetClusterSize())
	if clusterSize == 0 {
		return nil, errs.NewIntegrityError("NTFS volume without cluster size")
	}
	coveredCl := nonResident.ActualLength / clusterSize
	if nonResident.ActualLength%clusterSize != 0 {
		coveredCl++
	}
	if coveredCl > nonResident.RunListTotalLenCl {
		return nil, errs.NewIntegrityError("record %d %s size %d exceeds its %d run clusters",
			record.Index, header.GetType(), nonResident.ActualLength, nonResident.RunListTotalLenCl)
	}
	stream.runs = nonResident.RunList.Runs()
	totalClusters := int64(ntfs.GetTotalClusters())
	for _, run := range stream.runs {
		if run.Sparse {
			continue
		}
		if run.LCN < 0 || run.Length > uint64(totalClusters) || run.LCN+int64(run.Length) > totalClusters {
			return nil, errs.NewIntegrityError("record %d %s run at cluster %d of %d clusters is beyond the volume",
				record.Index, header.GetType(), run.LCN, run.Length)
		}
	}
	stream.size = int64(nonResident.ActualLength)
	stream.validSize = int64(nonResident.InitLength)
	if stream.validSize > stream.size {
		stream.validSize = stream.size
	}
	return stream, nil
}

// OpenFile opens the unnamed DATA stream of the record.
func (ntfs *NTFS) OpenFile(record *MFT.Record) (*AttributeStream, error) {
	return ntfs.OpenAttribute(record, MFTAttributes.DataType, "")
}

func (stream *AttributeStream) GetDiskSize() int64 {
	return stream.size
}

func (stream *AttributeStream) IsResident() bool {
	return !stream.Header.IsNoNResident()
}

func (stream *AttributeStream) ReadAbsolute(offset int64, size int) ([]byte, error) {
	if offset < 0 || size < 0 {
		return nil, fmt.Errorf("invalid read offset %d size %d", offset, size)
	}
	if offset+int64(size) > stream.size {
		read := max(stream.size-offset, 0)
		return nil, &errs.ShortReadError{Offset: offset, Requested: size, Read: int(read)}
	}
	if size == 0 {
		return []byte{}, nil
	}
	if !stream.Header.IsNoNResident() {
		return append([]byte(nil), stream.resident[offset:offset+int64(size)]...), nil
	}

	clusterSize := int64(stream.ntfs.GetClusterSize())
	firstVCN := offset / clusterSize
	lastVCN := (offset + int64(size) - 1) / clusterSize
	buf, err := stream.readVCNs(firstVCN, lastVCN)
	if err != nil {
		return nil, err
	}

	start := offset - firstVCN*clusterSize
	data := buf[start : start+int64(size)]
	if offset+int64(size) > stream.validSize {
		from := max(stream.validSize-offset, 0)
		clear(data[from:])
	}
	return data, nil
}

// readVCNs returns the clusters firstVCN to lastVCN of the stream.
func (stream *AttributeStream) readVCNs(firstVCN, lastVCN int64) ([]byte, error) {
	clusterSize := int64(stream.ntfs.GetClusterSize())
	buf := make([]byte, (lastVCN-firstVCN+1)*clusterSize)

	runStart := int64(0)
	for _, run := range stream.runs {
		runEnd := runStart + int64(run.Length)
		from := max(firstVCN, runStart)
		to := min(lastVCN+1, runEnd)
		if from < to && !run.Sparse {
			data, err := stream.ntfs.ReadClusters(run.LCN+from-runStart, int(to-from))
			if err != nil {
				return nil, errors.Wrapf(err, "record %d %s VCN %d", stream.Entry, stream.Header.GetType(), from)
			}
			copy(buf[(from-firstVCN)*clusterSize:], data)
		}
		runStart = runEnd
		if runStart > lastVCN {
			return buf, nil
		}
	}
	msg := fmt.Sprintf("record %d %s runs cover %d clusters, VCN %d requested",
		stream.Entry, stream.Header.GetType(), runStart, lastVCN)
	logger.FSLogger.Warning(msg)
	return nil, errs.NewIntegrityError("%s", msg)
}

// ReadAll returns the whole content of the stream.
func (stream *AttributeStream) ReadAll() ([]byte, error) {
	return stream.ReadAbsolute(0, int(stream.size))
}
