/*
Copyright © 2024 Harsh Varagiya

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/HarshVaragiya/pailfrog/internal/export"
	"github.com/HarshVaragiya/pailfrog/internal/report"
)

func addExportFlags(flags *pflag.FlagSet, defaultTarget string) {
	flags.StringVar(&exportTargetName, "export", defaultTarget, "export reports to: disk, elasticsearch, cassandra or postgres")
	flags.StringVar(&diskFilePath, "export-file", DEFAULT_DISK_EXPORT_FILE, "file to append JSON reports to (disk export)")
	flags.StringVar(&elasticsearchHost, "elastic-host", "https://localhost:9200", "elasticsearch host url")
	flags.StringVar(&elasticsearchUsername, "elastic-username", "elastic", "elasticsearch username")
	flags.StringVar(&elasticsearchPassword, "elastic-password", "", "elasticsearch password")
	flags.StringVar(&elasticsearchIndex, "elastic-index", "pailfrog", "elasticsearch index to export to")
	flags.StringVar(&cassandraConnectionString, "cassandra-connection-string", "127.0.0.1", "comma separated cassandra hosts")
	flags.StringVar(&cassandraKeyspaceDotTable, "cassandra-keyspace-table", "recon.pailfrog", "cassandra keyspace.table to export to")
	flags.StringVar(&cassandraRecordTimeStampKey, "cassandra-record-time", "", "record_ts value stored with every row")
	flags.StringVar(&postgresDSN, "postgres-dsn", "", "postgres connection string")
}

// GetExportTarget returns the configured target, or nil when exporting is
// disabled.
func GetExportTarget() export.Target {
	switch exportTargetName {
	case "":
		return nil
	case "disk":
		tg, err := export.NewDiskTarget(diskFilePath)
		if err != nil {
			log.WithFields(logrus.Fields{"state": "export", "type": "disk", "errmsg": err.Error()}).Fatalf("error configuring disk export target")
		}
		return tg
	case "cassandra":
		tg, err := export.NewCassandra(cassandraConnectionString, cassandraKeyspaceDotTable, cassandraRecordTimeStampKey)
		if err != nil {
			log.WithFields(logrus.Fields{"state": "export", "type": "cassandra", "errmsg": err.Error()}).Fatalf("error configuring cassandra export target")
		}
		return tg
	case "elasticsearch", "elastic":
		tg, err := export.NewElasticsearch(elasticsearchHost, elasticsearchUsername, elasticsearchPassword, elasticsearchIndex)
		if err != nil {
			log.WithFields(logrus.Fields{"state": "export", "type": "elastic", "errmsg": err.Error()}).Fatalf("error configuring elasticsearch export target")
		}
		return tg
	case "postgres":
		tg, err := export.NewPostgres(postgresDSN)
		if err != nil {
			log.WithFields(logrus.Fields{"state": "export", "type": "postgres", "errmsg": err.Error()}).Fatalf("error configuring postgres export target")
		}
		return tg
	}
	log.WithFields(logrus.Fields{"state": "export", "type": exportTargetName}).Fatalf("unknown export target")
	return nil
}

// StartExport runs target in the background. Close the channel and wait on
// the group to flush it.
func StartExport(target export.Target) (chan *report.Report, *sync.WaitGroup) {
	reportChan := make(chan *report.Report, 16)
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		if err := target.Export(reportChan, wg); err != nil {
			log.WithFields(logrus.Fields{"state": "export", "errmsg": err.Error()}).Error("export target failed")
		}
	}()
	return reportChan, wg
}
