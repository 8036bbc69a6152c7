package filters

import (
	"fmt"

	metadata "github.com/aarsakian/DiskTree/FS"
	"github.com/aarsakian/DiskTree/logger"
)

// FilterManager applies the registered filters in registration order.
type FilterManager struct {
	filters []Filter
}

func (flm *FilterManager) Register(filter Filter) {
	flm.filters = append(flm.filters, filter)
}

func (flm FilterManager) Len() int {
	return len(flm.filters)
}

func (flm FilterManager) ApplyFilters(records []metadata.Record) []metadata.Record {
	for _, filter := range flm.filters {
		records = filter.Execute(records)
		logger.FSLogger.Info(fmt.Sprintf("%T kept %d records", filter, len(records)))
	}
	return records
}
