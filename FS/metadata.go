package metadata

import (
	"strings"

	"github.com/aarsakian/DiskTree/utils"
)

type Attribute interface {
}

// Record is the file system independent view of a file or directory entry.
type Record interface {
	HasFilenameExtension(string) bool
	HasFilenames([]string) bool
	HasPath(string) bool
	HasParent() bool
	HasSuffix(string) bool
	HasPrefix(string) bool
	IsDeleted() bool
	IsFolder() bool
	GetFname() string
	GetFullPath() string
	GetID() int
	GetLogicalFileSize() int64
	GetPhysicalSize() int64
	GetSequence() int
	GetTimestamps() (string, string, string, string)
	GetInfo() string
	GetParent() Record
	FindAttribute(string) Attribute
}

func FilterByExtensions(records []Record, extensions []string) []Record {
	var filteredRecords []Record
	for _, extension := range extensions {
		filteredRecords = append(filteredRecords, FilterByExtension(records, extension)...)
	}
	return filteredRecords
}

func FilterByExtension(records []Record, extension string) []Record {
	return utils.Filter(records, func(record Record) bool {
		return record.HasFilenameExtension(extension)
	})

}

func FilterByNames(records []Record, filenames []string) []Record {
	return utils.Filter(records, func(record Record) bool {
		return record.HasFilenames(filenames)
	})

}

func FilterByPath(records []Record, filespath string) []Record {
	return utils.Filter(records, func(record Record) bool {
		return record.HasPath(filespath)
	})
}

func FilterByName(records []Record, filename string) []Record {
	return utils.Filter(records, func(record Record) bool {
		return record.HasFilenames([]string{filename})
	})
}

// FilterUnderPath keeps the records stored below the directory dirpath.
func FilterUnderPath(records []Record, dirpath string) []Record {
	dirpath = strings.TrimSuffix(dirpath, "/")
	return utils.Filter(records, func(record Record) bool {
		fullpath := record.GetFullPath()
		return fullpath == dirpath || strings.HasPrefix(fullpath, dirpath+"/") || dirpath == ""
	})
}

func FilterOrphans(records []Record) []Record {
	return utils.Filter(records, func(record Record) bool {
		return record.IsDeleted() && record.HasParent()
	})
}

func FilterByPrefixSuffix(records []Record, prefix string, suffix string) []Record {
	return utils.Filter(records, func(record Record) bool {
		return record.HasPrefix(prefix) && record.HasSuffix(suffix)
	})

}

func FilterOutFiles(records []Record) []Record {
	return utils.Filter(records, func(record Record) bool {
		return record.IsFolder()
	})
}

func FilterOutFolders(records []Record) []Record {
	return utils.Filter(records, func(record Record) bool {
		return !record.IsFolder()
	})
}

func FilterDeleted(records []Record, includeDeleted bool) []Record {
	return utils.Filter(records, func(record Record) bool {
		if includeDeleted {
			return record.IsDeleted()
		}
		return !record.IsDeleted()
	})
}
