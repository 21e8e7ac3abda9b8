package export

import (
	"encoding/json"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/HarshVaragiya/pailfrog/internal/report"
)

// DiskTarget appends reports to a file as JSON lines.
type DiskTarget struct {
	filename string
	outfile  *os.File
}

func NewDiskTarget(filename string) (*DiskTarget, error) {
	outfile, err := os.OpenFile(filename, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		log.WithFields(log.Fields{"state": "disk", "errmsg": err.Error()}).Errorf("error opening output file")
		return nil, err
	}
	return &DiskTarget{filename: filename, outfile: outfile}, nil
}

func (tg *DiskTarget) Export(reportChan chan *report.Report, wg *sync.WaitGroup) error {
	defer wg.Done()
	defer tg.outfile.Close()
	enc := json.NewEncoder(tg.outfile)
	log.WithFields(log.Fields{"state": "disk"}).Infof("exporting to file: %s", tg.filename)
	for r := range reportChan {
		if err := enc.Encode(r); err != nil {
			log.WithFields(log.Fields{"state": "disk", "errmsg": err.Error()}).Errorf("error exporting report")
		} else {
			ReportsExported.Add(1)
		}
		ReportsProcessed.Add(1)
	}
	return nil
}
