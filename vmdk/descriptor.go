package vmdk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/aarsakian/DiskTree/vmdk/extent"
	"github.com/google/uuid"
)

const NoParentCID = "ffffffff"

// Descriptor is the text description embedded in a sparse extent.
type Descriptor struct {
	Version            int
	Encoding           string
	CID                string
	ParentCID          string
	IsNativeSnapshot   string
	CreateType         string
	ParentFileNameHint string
	Extents            extent.Extents
	DDB                map[string]string
	UUID               uuid.UUID
}

func ParseDescriptor(text string) (*Descriptor, error) {
	descriptor := &Descriptor{DDB: map[string]string{}, ParentCID: NoParentCID}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\x00", ""), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}

		if extent.IsExtentLine(line) {
			extent_, err := extent.ParseExtent(line)
			if err != nil {
				return nil, err
			}
			descriptor.Extents = append(descriptor.Extents, extent_)
			continue
		}

		attr, content, found := strings.Cut(line, "=")
		if !found {
			logger.FSLogger.Warning(fmt.Sprintf("unknown descriptor line %s", line))
			continue
		}
		attr = strings.TrimSpace(attr)
		content = unquote(strings.TrimSpace(content))

		switch {
		case attr == "version":
			if content != "1" {
				return nil, errs.NewUnsupported("descriptor version %s", content)
			}
			descriptor.Version = 1
		case attr == "encoding":
			descriptor.Encoding = content
		case attr == "CID":
			descriptor.CID = content
		case attr == "parentCID":
			descriptor.ParentCID = content
		case attr == "isNativeSnapshot":
			descriptor.IsNativeSnapshot = content
		case attr == "createType":
			descriptor.CreateType = content
		case attr == "parentFileNameHint":
			descriptor.ParentFileNameHint = content
		case strings.HasPrefix(attr, "ddb."):
			descriptor.DDB[attr] = content
		default:
			logger.FSLogger.Warning(fmt.Sprintf("unknown descriptor line %s", line))
		}
	}

	if val, ok := descriptor.DDB["ddb.uuid"]; ok {
		id, err := parseVMwareUUID(val)
		if err != nil {
			logger.FSLogger.Warning(fmt.Sprintf("ddb.uuid %s not parsed %s", val, err))
		} else {
			descriptor.UUID = id
		}
	}
	if len(descriptor.Extents) > 1 {
		logger.FSLogger.Warning(fmt.Sprintf("descriptor lists %d extents, only the embedding extent is read",
			len(descriptor.Extents)))
	}
	return descriptor, nil
}

func unquote(content string) string {
	if len(content) >= 2 && content[0] == '"' && content[len(content)-1] == '"' {
		unquoted, err := strconv.Unquote(content)
		if err == nil {
			return unquoted
		}
		return content[1 : len(content)-1]
	}
	return content
}

// parseVMwareUUID accepts the "60 00 c2 9b ... 3b f9" form with an optional dash in the middle.
func parseVMwareUUID(val string) (uuid.UUID, error) {
	compact := strings.NewReplacer(" ", "", "-", "").Replace(val)
	return uuid.Parse(compact)
}

func (descriptor Descriptor) HasParent() bool {
	return descriptor.ParentCID != NoParentCID
}
