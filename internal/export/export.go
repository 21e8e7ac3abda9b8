// Package export ships finished reports to long term storage.
package export

import (
	"sync"
	"sync/atomic"

	"github.com/HarshVaragiya/pailfrog/internal/report"
)

var (
	ReportsExported  atomic.Int64
	ReportsProcessed atomic.Int64
)

// Target drains reports until the channel is closed, then marks wg done.
type Target interface {
	Export(reportChan chan *report.Report, wg *sync.WaitGroup) error
}
